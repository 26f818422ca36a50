package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Nursery ClassCategory = "Nursery"
	KGI     ClassCategory = "KGI"
	KGII    ClassCategory = "KGII"
	Class1  ClassCategory = "Class 1"
	Class2  ClassCategory = "Class 2"
	Class3  ClassCategory = "Class 3"
	Class4  ClassCategory = "Class 4"
	Class5  ClassCategory = "Class 5"
	Class6  ClassCategory = "Class 6"
	Class7  ClassCategory = "Class 7"
	Class8  ClassCategory = "Class 8"
	Class9  ClassCategory = "Class 9"
	Class10 ClassCategory = "Class 10 (Matric)"
)

const (
	April     Month = "APRIL"
	May       Month = "MAY"
	June      Month = "JUNE"
	July      Month = "JULY"
	August    Month = "AUGUST"
	September Month = "SEPTEMBER"
	October   Month = "OCTOBER"
	November  Month = "NOVEMBER"
	December  Month = "DECEMBER"
	January   Month = "JANUARY"
	February  Month = "FEBRUARY"
	March     Month = "MARCH"

	// Sentinel labels for rows that are not tied to an academic month.
	AnnualMonth        Month = "ANNUAL"
	AdmissionMonth     Month = "ADMISSION"
	ParentPaymentMonth Month = "PARENT_PAYMENT"
)

const (
	MethodCash         PaymentMethod = "Cash"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodJazzCash     PaymentMethod = "JazzCash"
	MethodEasyPaisa    PaymentMethod = "EasyPaisa"
	MethodCheque       PaymentMethod = "Cheque"
	MethodOther        PaymentMethod = "Other"
)

type (
	ClassCategory string

	// Month is an academic-year month label or one of the sentinel labels.
	Month string

	PaymentMethod string

	Student struct {
		ID           string        `json:"id" validate:"required,max=64"`
		Name         string        `json:"name" validate:"required,max=100"`
		GuardianName string        `json:"guardian_name" validate:"required,max=100"`
		Class        ClassCategory `json:"class" validate:"required,class"`
		Phone        string        `json:"phone,omitempty" validate:"max=20"`
		Age          int           `json:"age,omitempty" validate:"omitempty,min=3,max=25"`
		Address      string        `json:"address,omitempty" validate:"max=200"`
		CreatedAt    time.Time     `json:"created_at"`
	}

	FeeSchedule struct {
		Monthly   Money `json:"monthly_fee" validate:"min=0,max=1000000000"`
		Annual    Money `json:"annual_charges" validate:"min=0,max=1000000000"`
		Admission Money `json:"admission_fee" validate:"min=0,max=1000000000"`
	}

	// PaymentRecord is one fee-collection event. Records are append-only.
	PaymentRecord struct {
		ID            int64         `json:"id"`
		StudentID     string        `json:"student_id" validate:"required,max=64"`
		StudentName   string        `json:"student_name" validate:"max=100"`
		Class         ClassCategory `json:"class" validate:"omitempty,class"`
		Month         Month         `json:"month" validate:"required,month"`
		MonthlyFee    Money         `json:"monthly_fee" validate:"min=0,max=1000000000"`
		AnnualCharges Money         `json:"annual_charges" validate:"min=0,max=1000000000"`
		AdmissionFee  Money         `json:"admission_fee" validate:"min=0,max=1000000000"`
		Received      Money         `json:"received" validate:"min=0,max=1000000000"`
		Method        PaymentMethod `json:"payment_method" validate:"required,paymethod"`
		Reference     string        `json:"reference,omitempty" validate:"max=64"`
		Remarks       string        `json:"remarks,omitempty" validate:"max=200"`
		Date          time.Time     `json:"date"`
		EnteredAt     time.Time     `json:"entered_at"`
		AcademicYear  string        `json:"academic_year"`
	}
)

// ClassCategories lists the grade levels in school order.
var ClassCategories = []ClassCategory{
	Nursery, KGI, KGII,
	Class1, Class2, Class3, Class4, Class5,
	Class6, Class7, Class8, Class9, Class10,
}

// AcademicMonths lists the twelve months of an academic year, April first.
var AcademicMonths = []Month{
	April, May, June, July, August, September,
	October, November, December, January, February, March,
}

var PaymentMethods = []PaymentMethod{
	MethodCash, MethodBankTransfer, MethodJazzCash, MethodEasyPaisa, MethodCheque, MethodOther,
}

// ParseClassCategory matches s against the known class labels ignoring case.
func ParseClassCategory(s string) (ClassCategory, error) {
	s = strings.Join(strings.Fields(s), " ")
	for _, c := range ClassCategories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown class %q", ErrInvalidInput, s)
}

func (c ClassCategory) Valid() bool {
	for _, known := range ClassCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseMonth accepts academic month names and sentinel labels in any case.
func ParseMonth(s string) (Month, error) {
	m := Month(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown month %q", ErrInvalidInput, s)
	}
	return m, nil
}

// IsAcademic reports whether m is one of the twelve academic months.
func (m Month) IsAcademic() bool {
	return m.Index() >= 0
}

func (m Month) Valid() bool {
	switch m {
	case AnnualMonth, AdmissionMonth, ParentPaymentMonth:
		return true
	}
	return m.IsAcademic()
}

// Index returns the position of m in the academic year, or -1.
func (m Month) Index() int {
	for i, am := range AcademicMonths {
		if m == am {
			return i
		}
	}
	return -1
}

// MonthFromTime returns the academic month label for t's calendar month.
func MonthFromTime(t time.Time) Month {
	return Month(strings.ToUpper(t.Month().String()))
}

// AcademicYearFor returns the academic year label, e.g. "2024-2025" for
// any date from April 2024 through March 2025.
func AcademicYearFor(t time.Time) string {
	y := t.Year()
	if t.Month() < time.April {
		y--
	}
	return fmt.Sprintf("%d-%d", y, y+1)
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return MethodCash, nil
	}
	for _, m := range PaymentMethods {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, s)
}

func (p PaymentMethod) Valid() bool {
	for _, m := range PaymentMethods {
		if p == m {
			return true
		}
	}
	return false
}

// DefaultFeeSchedule is the school-wide schedule used until an
// administrator sets a different default.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{Monthly: 3000, Annual: 3500, Admission: 10000}
}

// IsZero reports whether no fee is charged at all.
func (f FeeSchedule) IsZero() bool {
	return f.Monthly == 0 && f.Annual == 0 && f.Admission == 0
}

func (f FeeSchedule) Validate() error {
	return validateStruct(f)
}

func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: student name is empty", ErrInvalidInput)
	}
	if strings.TrimSpace(s.GuardianName) == "" {
		return fmt.Errorf("%w: guardian name is empty", ErrInvalidInput)
	}
	return validateStruct(s)
}

// Expected is the sum of the three charges on the record.
func (r PaymentRecord) Expected() Money {
	return r.MonthlyFee + r.AnnualCharges + r.AdmissionFee
}

func (r PaymentRecord) Validate() error {
	if strings.TrimSpace(r.StudentID) == "" {
		return fmt.Errorf("%w: student id is empty", ErrInvalidInput)
	}
	return validateStruct(r)
}
