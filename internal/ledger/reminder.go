package ledger

import (
	"sort"
	"time"

	"feeledger/internal/core"
)

// ReminderStartDay is the first day of the month on which reminders go out.
const ReminderStartDay = 8

// StudentSet is a set of student ids.
type StudentSet map[string]struct{}

func (s StudentSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s StudentSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ScheduleFunc resolves the effective fee schedule of a student.
type ScheduleFunc func(studentID string) core.FeeSchedule

// ReminderActive reports whether the reminder window of now's month is open.
func ReminderActive(now time.Time) bool {
	return now.Day() >= ReminderStartDay
}

// ActivationMonth is the month a reminder run on now refers to.
func ActivationMonth(now time.Time) core.Month {
	return core.MonthFromTime(now)
}

// ClassifyUnpaidForMonth returns the students who still owe for month.
//
// A student is paid when the money received on their rows for month covers
// the charges on those rows and the charges are positive. Only students that
// appear somewhere in records are considered; a student with no history at
// all is not reported.
func ClassifyUnpaidForMonth(month core.Month, records []core.PaymentRecord) StudentSet {
	type totals struct{ received, expected core.Money }

	all := make(StudentSet)
	perStudent := make(map[string]*totals)
	for _, r := range records {
		all[r.StudentID] = struct{}{}
		if r.Month != month {
			continue
		}
		t, ok := perStudent[r.StudentID]
		if !ok {
			t = &totals{}
			perStudent[r.StudentID] = t
		}
		t.received += r.Received
		t.expected += r.Expected()
	}

	unpaid := make(StudentSet, len(all))
	for id := range all {
		if t, ok := perStudent[id]; ok && t.expected > 0 && t.received >= t.expected {
			continue
		}
		unpaid[id] = struct{}{}
	}
	return unpaid
}

// BuildReminderReport classifies the activation month of now and resolves
// each unpaid id to contact details. Ids missing from students fall back to
// the name and class denormalized on their records.
func BuildReminderReport(now time.Time, records []core.PaymentRecord, students map[string]core.Student, schedule ScheduleFunc) core.ReminderReport {
	month := ActivationMonth(now)
	report := core.ReminderReport{
		Month:       month,
		Active:      ReminderActive(now),
		GeneratedAt: now,
		Rows:        []core.ReminderRow{},
	}
	if !report.Active {
		return report
	}

	fallback := make(map[string]core.PaymentRecord)
	for _, r := range records {
		if _, ok := fallback[r.StudentID]; !ok {
			fallback[r.StudentID] = r
		}
	}

	for _, id := range ClassifyUnpaidForMonth(month, records).Sorted() {
		row := core.ReminderRow{StudentID: id}
		if s, ok := students[id]; ok {
			row.StudentName = s.Name
			row.GuardianName = s.GuardianName
			row.Class = s.Class
			row.Phone = s.Phone
		} else {
			r := fallback[id]
			row.StudentName = r.StudentName
			row.Class = r.Class
		}
		if schedule != nil {
			row.MonthlyFee = schedule(id).Monthly
		}
		report.Rows = append(report.Rows, row)
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if a.Class != b.Class {
			return classIndex(a.Class) < classIndex(b.Class)
		}
		return a.StudentName < b.StudentName
	})
	return report
}

func classIndex(c core.ClassCategory) int {
	for i, known := range core.ClassCategories {
		if c == known {
			return i
		}
	}
	return len(core.ClassCategories)
}
