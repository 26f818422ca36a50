package ledger

import (
	"sort"

	"feeledger/internal/core"
)

// RecentLimit is the number of latest records shown on the dashboard.
const RecentLimit = 10

// StatusFor classifies a student's standing from their ledger figures.
func StatusFor(outstanding, received core.Money) core.PaidStatus {
	switch {
	case outstanding == 0:
		return core.StatusFullyPaid
	case received > 0:
		return core.StatusPartiallyPaid
	default:
		return core.StatusNotPaid
	}
}

// ClassReport builds the per-student analysis of one class. Rows cover the
// registered students of the class; the collected and expected totals cover
// the records tagged with the class, including rows of unregistered ids.
func ClassReport(class core.ClassCategory, students []core.Student, records []core.PaymentRecord, schedule ScheduleFunc) core.ClassReport {
	report := core.ClassReport{Class: class, Rows: []core.ClassReportRow{}}

	byStudent := make(map[string][]core.PaymentRecord)
	for _, r := range records {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
		if r.Class != class {
			continue
		}
		report.TotalCollected += r.Received
		report.TotalExpected += r.Expected()
	}
	report.CollectionRate = RoundPercent(Ratio(report.TotalCollected, report.TotalExpected) * 100)

	for i := range students {
		s := students[i]
		if s.Class != class {
			continue
		}
		var sched core.FeeSchedule
		if schedule != nil {
			sched = schedule(s.ID)
		}
		// The student is known, so ComputeLedger cannot fail here.
		sum, _ := ComputeLedger(&s, byStudent[s.ID], sched)
		row := core.ClassReportRow{
			StudentID:     s.ID,
			StudentName:   s.Name,
			GuardianName:  s.GuardianName,
			Phone:         s.Phone,
			PaidMonths:    len(sum.PaidMonths),
			UnpaidMonths:  len(sum.UnpaidMonths),
			TotalReceived: sum.TotalReceived,
			Outstanding:   sum.BalanceDue,
			Status:        StatusFor(sum.BalanceDue, sum.TotalReceived),
		}
		switch row.Status {
		case core.StatusFullyPaid:
			report.FullyPaid++
		case core.StatusPartiallyPaid:
			report.PartiallyPaid++
		default:
			report.NotPaid++
		}
		report.TotalOutstanding += row.Outstanding
		report.Rows = append(report.Rows, row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].StudentName < report.Rows[j].StudentName
	})
	report.TotalStudents = len(report.Rows)
	return report
}

// Dashboard aggregates the whole record table.
func Dashboard(records []core.PaymentRecord) core.DashboardOverview {
	ov := core.DashboardOverview{
		TotalRecords: len(records),
		ByClass:      []core.NamedAmount{},
		ByMonth:      []core.MonthAmount{},
		ByMethod:     []core.NamedAmount{},
		Recent:       []core.PaymentRecord{},
	}

	students := make(map[string]struct{})
	classes := make(map[core.ClassCategory]core.Money)
	months := make(map[core.Month]core.Money)
	methods := make(map[core.PaymentMethod]core.Money)
	var expected core.Money
	for _, r := range records {
		students[r.StudentID] = struct{}{}
		if r.Class != "" {
			classes[r.Class] += r.Received
		}
		if r.Month.IsAcademic() {
			months[r.Month] += r.Received
		}
		methods[r.Method] += r.Received
		ov.TotalCollected += r.Received
		expected += r.Expected()
	}
	ov.TotalStudents = len(students)
	ov.TotalClasses = len(classes)
	ov.CollectionRate = RoundPercent(Ratio(ov.TotalCollected, expected) * 100)

	for c, amt := range classes {
		ov.ByClass = append(ov.ByClass, core.NamedAmount{Name: string(c), Amount: amt})
	}
	sortNamedDesc(ov.ByClass)
	for _, m := range core.AcademicMonths {
		if amt, ok := months[m]; ok {
			ov.ByMonth = append(ov.ByMonth, core.MonthAmount{Month: m, Amount: amt})
		}
	}
	for m, amt := range methods {
		ov.ByMethod = append(ov.ByMethod, core.NamedAmount{Name: string(m), Amount: amt})
	}
	sortNamedDesc(ov.ByMethod)

	recent := make([]core.PaymentRecord, len(records))
	copy(recent, records)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].EnteredAt.After(recent[j].EnteredAt)
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	ov.Recent = recent
	return ov
}

func sortNamedDesc(items []core.NamedAmount) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Amount != items[j].Amount {
			return items[i].Amount > items[j].Amount
		}
		return items[i].Name < items[j].Name
	})
}
