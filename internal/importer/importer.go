// Package importer parses the bulk-upload spreadsheets administrators use
// to register students and set their fees. Parsing never stops at a bad
// row: each failure becomes a core.RowError and the next row is read.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"feeledger/internal/core"
)

// Column headers, matched ignoring case and surrounding whitespace.
const (
	ColStudentName   = "Student Name"
	ColFatherName    = "Father Name"
	ColClass         = "Class"
	ColPhone         = "Phone Number"
	ColAge           = "Age"
	ColAddress       = "Address"
	ColMonthlyFee    = "Monthly Fee"
	ColAnnualCharges = "Annual Charges"
	ColAdmissionFee  = "Admission Fee"
)

var (
	StudentColumns = []string{ColStudentName, ColFatherName, ColClass, ColPhone, ColAge, ColAddress}
	FeeColumns     = []string{ColStudentName, ColFatherName, ColClass, ColMonthlyFee, ColAnnualCharges, ColAdmissionFee}
)

// FeeRow is one parsed line of a fee upload.
type FeeRow struct {
	Row          int
	StudentID    string
	StudentName  string
	GuardianName string
	Class        core.ClassCategory
	Schedule     core.FeeSchedule
}

// StudentRow pairs a parsed student with the spreadsheet row it came from.
type StudentRow struct {
	Row     int
	Student core.Student
}

// ParseStudentRows reads a student roster. Phone, Age and Address may be
// left blank.
func ParseStudentRows(r io.Reader, now time.Time) ([]StudentRow, core.ImportReport) {
	var out []StudentRow
	report := readRows(r, []string{ColStudentName, ColFatherName, ColClass}, func(row int, get func(string) string, rep *core.ImportReport) {
		class, err := core.ParseClassCategory(get(ColClass))
		if err != nil {
			rep.AddError(row, ColClass, err)
			return
		}
		age := 0
		if v := get(ColAge); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f != float64(int(f)) {
				rep.AddError(row, ColAge, fmt.Errorf("%w: age %q is not a whole number", core.ErrInvalidInput, v))
				return
			}
			age = int(f)
		}
		name := core.CleanName(get(ColStudentName))
		st := core.Student{
			ID:           core.GenerateStudentID(name, class),
			Name:         name,
			GuardianName: core.CleanName(get(ColFatherName)),
			Class:        class,
			Phone:        get(ColPhone),
			Age:          age,
			Address:      get(ColAddress),
			CreatedAt:    now,
		}
		if err := st.Validate(); err != nil {
			rep.AddError(row, "", err)
			return
		}
		out = append(out, StudentRow{Row: row, Student: st})
	})
	return out, report
}

// ParseStudents is ParseStudentRows without row numbers.
func ParseStudents(r io.Reader, now time.Time) ([]core.Student, core.ImportReport) {
	rows, report := ParseStudentRows(r, now)
	out := make([]core.Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Student)
	}
	return out, report
}

// ParseFees reads a fee upload. All three amounts are required.
func ParseFees(r io.Reader) ([]FeeRow, core.ImportReport) {
	var out []FeeRow
	report := readRows(r, FeeColumns, func(row int, get func(string) string, rep *core.ImportReport) {
		class, err := core.ParseClassCategory(get(ColClass))
		if err != nil {
			rep.AddError(row, ColClass, err)
			return
		}
		var amounts [3]core.Money
		for i, col := range []string{ColMonthlyFee, ColAnnualCharges, ColAdmissionFee} {
			amt, err := core.ParseAmount(get(col))
			if err != nil {
				rep.AddError(row, col, err)
				return
			}
			amounts[i] = amt
		}
		name := core.CleanName(get(ColStudentName))
		if name == "" {
			rep.AddError(row, ColStudentName, fmt.Errorf("%w: student name is empty", core.ErrInvalidInput))
			return
		}
		out = append(out, FeeRow{
			Row:          row,
			StudentID:    core.GenerateStudentID(name, class),
			StudentName:  name,
			GuardianName: core.CleanName(get(ColFatherName)),
			Class:        class,
			Schedule:     core.FeeSchedule{Monthly: amounts[0], Annual: amounts[1], Admission: amounts[2]},
		})
	})
	return out, report
}

// headerAliases maps alternative header spellings, lower-cased, to the
// column they stand for. The canonical header wins when both are present.
var headerAliases = map[string]string{
	"guardian name": strings.ToLower(ColFatherName),
}

type rowFunc func(row int, get func(col string) string, rep *core.ImportReport)

// readRows maps the header, checks the required columns and hands every
// data row to fn. Row numbers are file line numbers, so the header is
// row 1.
func readRows(r io.Reader, required []string, fn rowFunc) core.ImportReport {
	var report core.ImportReport

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty file")
		}
		report.AddError(1, "", fmt.Errorf("%w: read header: %v", core.ErrInvalidInput, err))
		return report
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for alias, col := range headerAliases {
		if _, ok := index[col]; ok {
			continue
		}
		if i, ok := index[alias]; ok {
			index[col] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := index[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		report.AddError(1, "", fmt.Errorf("%w: missing columns %s", core.ErrInvalidInput, strings.Join(missing, ", ")))
		return report
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			report.AddError(line, "", fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
			continue
		}
		if blank(rec) {
			continue
		}
		row, _ := cr.FieldPos(0)
		get := func(col string) string {
			i, ok := index[strings.ToLower(col)]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		fn(row, get, &report)
	}
	return report
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
