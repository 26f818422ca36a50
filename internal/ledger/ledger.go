// Package ledger holds the fee arithmetic: per-student ledgers, monthly
// reminder classification and the class and dashboard aggregates built on
// the same reductions. Every function here is pure; callers load the rows.
package ledger

import (
	"fmt"
	"math"

	"feeledger/internal/core"
)

// MonthsPerYear is the number of monthly fees charged in an academic year.
const MonthsPerYear = 12

// ComputeLedger derives the fee summary of one student.
//
// Only records whose StudentID matches are considered, so callers may pass
// the whole record table. A nil student yields core.ErrNotFound: a ledger for
// someone who is not registered would be fabricated.
func ComputeLedger(student *core.Student, records []core.PaymentRecord, schedule core.FeeSchedule) (core.LedgerSummary, error) {
	if student == nil {
		return core.LedgerSummary{}, fmt.Errorf("compute ledger: %w", core.ErrNotFound)
	}

	var (
		received     core.Money
		maxAnnual    core.Money
		maxAdmission core.Money
		paid         = make(map[core.Month]core.Money, MonthsPerYear)
	)
	for _, r := range records {
		if r.StudentID != student.ID {
			continue
		}
		received += r.Received
		if r.AnnualCharges > maxAnnual {
			maxAnnual = r.AnnualCharges
		}
		if r.AdmissionFee > maxAdmission {
			maxAdmission = r.AdmissionFee
		}
		if r.MonthlyFee > 0 && r.Month.IsAcademic() {
			if _, seen := paid[r.Month]; !seen {
				paid[r.Month] = r.MonthlyFee
			}
		}
	}

	due := MonthsPerYear*schedule.Monthly + maxAnnual + maxAdmission
	ratio := Ratio(received, due)

	summary := core.LedgerSummary{
		StudentID:      student.ID,
		StudentName:    student.Name,
		Class:          student.Class,
		Schedule:       schedule,
		TotalDue:       due,
		TotalReceived:  received,
		BalanceDue:     Balance(due, received),
		PercentagePaid: RoundPercent(ratio * 100),
		Ratio:          ratio,
		PaidMonths:     make([]core.MonthAmount, 0, len(paid)),
		UnpaidMonths:   make([]core.Month, 0, MonthsPerYear-len(paid)),
	}
	for _, m := range core.AcademicMonths {
		if amt, ok := paid[m]; ok {
			summary.PaidMonths = append(summary.PaidMonths, core.MonthAmount{Month: m, Amount: amt})
		} else {
			summary.UnpaidMonths = append(summary.UnpaidMonths, m)
		}
	}
	return summary, nil
}

// Balance is max(0, due-received).
func Balance(due, received core.Money) core.Money {
	if received >= due {
		return 0
	}
	return due - received
}

// Ratio returns received/due, or 0 when nothing is due. Overpayment yields a
// ratio above 1 and is not clamped.
func Ratio(received, due core.Money) float64 {
	if due <= 0 {
		return 0
	}
	return float64(received) / float64(due)
}

// RoundPercent rounds a percentage to one decimal place for display.
func RoundPercent(p float64) float64 {
	return math.Round(p*10) / 10
}
