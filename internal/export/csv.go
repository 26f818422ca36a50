// Package export renders ledgers, histories and reports as CSV files and
// reminder messages as plain text.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"feeledger/internal/core"
)

var LedgerHeader = []string{
	"Student ID", "Student Name", "Class",
	"Monthly Fee", "Annual Charges", "Admission Fee",
	"Total Due", "Total Received", "Balance Due", "Percentage Paid",
	"Paid Months", "Unpaid Months",
}

var HistoryHeader = []string{"Date", "Month", "Amount", "Payment Method", "Reference", "Remarks"}

var ClassReportHeader = []string{
	"Student ID", "Student Name", "Father Name", "Phone",
	"Paid Months", "Unpaid Months", "Total Received", "Outstanding", "Status",
}

var ReminderHeader = []string{"Student Name", "Father Name", "Class", "Phone", "Monthly Fee"}

// WriteLedgerCSV writes one header row and one data row. Paid months are
// written as MONTH:amount pairs separated by semicolons.
func WriteLedgerCSV(out io.Writer, s core.LedgerSummary) error {
	paid := make([]string, 0, len(s.PaidMonths))
	for _, pm := range s.PaidMonths {
		paid = append(paid, fmt.Sprintf("%s:%d", pm.Month, pm.Amount))
	}
	unpaid := make([]string, 0, len(s.UnpaidMonths))
	for _, m := range s.UnpaidMonths {
		unpaid = append(unpaid, string(m))
	}
	row := []string{
		s.StudentID, s.StudentName, string(s.Class),
		formatAmount(s.Schedule.Monthly), formatAmount(s.Schedule.Annual), formatAmount(s.Schedule.Admission),
		formatAmount(s.TotalDue), formatAmount(s.TotalReceived), formatAmount(s.BalanceDue),
		strconv.FormatFloat(s.PercentagePaid, 'f', 1, 64),
		strings.Join(paid, ";"), strings.Join(unpaid, ";"),
	}
	return writeAll(out, LedgerHeader, [][]string{row})
}

// ParseLedgerCSV reads a file written by WriteLedgerCSV.
func ParseLedgerCSV(in io.Reader) (core.LedgerSummary, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = len(LedgerHeader)
	rows, err := cr.ReadAll()
	if err != nil {
		return core.LedgerSummary{}, fmt.Errorf("%w: read ledger csv: %v", core.ErrInvalidInput, err)
	}
	if len(rows) != 2 {
		return core.LedgerSummary{}, fmt.Errorf("%w: ledger csv needs a header and one row, got %d rows", core.ErrInvalidInput, len(rows))
	}
	for i, h := range LedgerHeader {
		if !strings.EqualFold(strings.TrimSpace(rows[0][i]), h) {
			return core.LedgerSummary{}, fmt.Errorf("%w: column %d is %q, want %q", core.ErrInvalidInput, i+1, rows[0][i], h)
		}
	}
	row := rows[1]

	var amounts [6]core.Money
	for i := range amounts {
		amt, err := core.ParseAmount(row[3+i])
		if err != nil {
			return core.LedgerSummary{}, fmt.Errorf("%s: %w", LedgerHeader[3+i], err)
		}
		amounts[i] = amt
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(row[9]), 64)
	if err != nil {
		return core.LedgerSummary{}, fmt.Errorf("%w: percentage %q", core.ErrInvalidInput, row[9])
	}

	s := core.LedgerSummary{
		StudentID:      row[0],
		StudentName:    row[1],
		Class:          core.ClassCategory(row[2]),
		Schedule:       core.FeeSchedule{Monthly: amounts[0], Annual: amounts[1], Admission: amounts[2]},
		TotalDue:       amounts[3],
		TotalReceived:  amounts[4],
		BalanceDue:     amounts[5],
		PercentagePaid: pct,
		PaidMonths:     []core.MonthAmount{},
		UnpaidMonths:   []core.Month{},
	}
	if s.TotalDue > 0 {
		s.Ratio = float64(s.TotalReceived) / float64(s.TotalDue)
	}
	for _, part := range splitList(row[10]) {
		label, amt, ok := strings.Cut(part, ":")
		if !ok {
			return core.LedgerSummary{}, fmt.Errorf("%w: paid month %q", core.ErrInvalidInput, part)
		}
		m, err := core.ParseMonth(label)
		if err != nil {
			return core.LedgerSummary{}, err
		}
		a, err := core.ParseAmount(amt)
		if err != nil {
			return core.LedgerSummary{}, err
		}
		s.PaidMonths = append(s.PaidMonths, core.MonthAmount{Month: m, Amount: a})
	}
	for _, part := range splitList(row[11]) {
		m, err := core.ParseMonth(part)
		if err != nil {
			return core.LedgerSummary{}, err
		}
		s.UnpaidMonths = append(s.UnpaidMonths, m)
	}
	return s, nil
}

// WriteHistoryCSV writes records in the order given. Amount is the money
// received.
func WriteHistoryCSV(out io.Writer, records []core.PaymentRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Date.Format("2006-01-02"),
			string(r.Month),
			formatAmount(r.Received),
			string(r.Method),
			r.Reference,
			r.Remarks,
		})
	}
	return writeAll(out, HistoryHeader, rows)
}

func WriteClassReportCSV(out io.Writer, report core.ClassReport) error {
	rows := make([][]string, 0, len(report.Rows))
	for _, r := range report.Rows {
		rows = append(rows, []string{
			r.StudentID, r.StudentName, r.GuardianName, r.Phone,
			strconv.Itoa(r.PaidMonths), strconv.Itoa(r.UnpaidMonths),
			formatAmount(r.TotalReceived), formatAmount(r.Outstanding),
			string(r.Status),
		})
	}
	return writeAll(out, ClassReportHeader, rows)
}

func WriteReminderCSV(out io.Writer, report core.ReminderReport) error {
	rows := make([][]string, 0, len(report.Rows))
	for _, r := range report.Rows {
		rows = append(rows, []string{
			r.StudentName, r.GuardianName, string(r.Class), r.Phone, formatAmount(r.MonthlyFee),
		})
	}
	return writeAll(out, ReminderHeader, rows)
}

func writeAll(out io.Writer, header []string, rows [][]string) error {
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatAmount(m core.Money) string {
	return strconv.FormatInt(m.Int64(), 10)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
