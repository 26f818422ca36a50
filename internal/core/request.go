package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNotesLength bounds the free-text notes on a request, in characters.
const MaxNotesLength = 500

const (
	StatusPending  RequestStatus = "pending"
	StatusVerified RequestStatus = "verified"
	StatusRejected RequestStatus = "rejected"
)

const (
	PayBalanceDue PaymentType = "Balance Due"
	PayMonthlyFee PaymentType = "Monthly Fee"
	PayCustom     PaymentType = "Custom"
)

type (
	RequestStatus string

	// PaymentType is the option a parent picked when asking to pay.
	PaymentType string

	// PaymentRequest is a parent's claim to have paid. It is not money until
	// an administrator verifies it.
	PaymentRequest struct {
		RequestID   string        `json:"request_id" validate:"required"`
		StudentID   string        `json:"student_id" validate:"required,max=64"`
		ParentEmail string        `json:"parent_email" validate:"required,email"`
		Amount      Money         `json:"amount" validate:"gt=0,max=1000000000"`
		PaymentType PaymentType   `json:"payment_type" validate:"required,paytype"`
		Method      PaymentMethod `json:"payment_method" validate:"required,paymethod"`
		Status      RequestStatus `json:"status" validate:"required"`
		RequestedAt time.Time     `json:"requested_at"`
		DecidedAt   time.Time     `json:"decided_at"`
		Notes       string        `json:"notes,omitempty" validate:"max=500"`
	}
)

var PaymentTypes = []PaymentType{PayBalanceDue, PayMonthlyFee, PayCustom}

func ParsePaymentType(s string) (PaymentType, error) {
	s = strings.TrimSpace(s)
	for _, t := range PaymentTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown payment type %q", ErrInvalidInput, s)
}

func (t PaymentType) Valid() bool {
	for _, known := range PaymentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusVerified || s == StatusRejected
}

func (r PaymentRequest) Validate() error {
	return validateStruct(r)
}

// Decide moves a pending request to verified or rejected.
func (r *PaymentRequest) Decide(to RequestStatus, notes string, at time.Time) error {
	if !to.IsTerminal() {
		return fmt.Errorf("%w: cannot move request to %q", ErrInvalidInput, to)
	}
	if r.Status != StatusPending {
		return fmt.Errorf("%w: request %s is already %s", ErrInvalidInput, r.RequestID, r.Status)
	}
	notes = strings.TrimSpace(notes)
	if n := utf8.RuneCountInString(notes); n > MaxNotesLength {
		return fmt.Errorf("%w: notes are %d characters, limit is %d", ErrInvalidInput, n, MaxNotesLength)
	}
	r.Status = to
	r.DecidedAt = at
	if notes != "" {
		r.Notes = notes
	}
	return nil
}

// SettlementRecord turns a verified request into the payment record that is
// appended to the ledger. It carries no charges, so it adds to the amount
// received without marking any month paid.
func (r PaymentRequest) SettlementRecord(student Student, at time.Time) PaymentRecord {
	return PaymentRecord{
		StudentID:    r.StudentID,
		StudentName:  student.Name,
		Class:        student.Class,
		Month:        ParentPaymentMonth,
		Received:     r.Amount,
		Method:       r.Method,
		Reference:    r.RequestID,
		Remarks:      "parent payment " + string(r.PaymentType),
		Date:         at,
		EnteredAt:    at,
		AcademicYear: AcademicYearFor(at),
	}
}
