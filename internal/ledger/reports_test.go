package ledger

import (
	"testing"
	"time"

	"feeledger/internal/core"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		outstanding, received core.Money
		want                  core.PaidStatus
	}{
		{0, 36000, core.StatusFullyPaid},
		{0, 0, core.StatusFullyPaid},
		{1000, 500, core.StatusPartiallyPaid},
		{1000, 0, core.StatusNotPaid},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.outstanding, tc.received); got != tc.want {
			t.Errorf("StatusFor(%d, %d) = %s, want %s", tc.outstanding, tc.received, got, tc.want)
		}
	}
}

func TestClassReport(t *testing.T) {
	students := []core.Student{
		{ID: "A", Name: "Ayesha", GuardianName: "Tariq", Class: core.Class5},
		{ID: "B", Name: "Bilal", GuardianName: "Usman", Class: core.Class5},
		{ID: "C", Name: "Chand", GuardianName: "Hamid", Class: core.Class5},
		{ID: "D", Name: "Danish", GuardianName: "Kamran", Class: core.Class6},
	}
	records := []core.PaymentRecord{
		rec("A", core.April, 1000, 0, 0, 12000),
		rec("B", core.April, 1000, 0, 0, 500),
	}
	sched := func(string) core.FeeSchedule { return core.FeeSchedule{Monthly: 1000} }

	rep := ClassReport(core.Class5, students, records, sched)
	if rep.TotalStudents != 3 {
		t.Fatalf("expected 3 students in Class 5, got %d", rep.TotalStudents)
	}
	if rep.FullyPaid != 1 || rep.PartiallyPaid != 1 || rep.NotPaid != 1 {
		t.Fatalf("unexpected status counts %+v", rep)
	}
	if rep.TotalCollected != 12500 || rep.TotalExpected != 2000 {
		t.Fatalf("unexpected totals collected=%d expected=%d", rep.TotalCollected, rep.TotalExpected)
	}
	if rep.CollectionRate != 625 {
		t.Fatalf("collection rate = %v, want 625", rep.CollectionRate)
	}
	// B owes 12000-500, C owes 12000.
	if rep.TotalOutstanding != 11500+12000 {
		t.Fatalf("total outstanding = %d", rep.TotalOutstanding)
	}
	if rep.Rows[0].StudentName != "Ayesha" || rep.Rows[0].PaidMonths != 1 || rep.Rows[0].UnpaidMonths != 11 {
		t.Fatalf("unexpected first row %+v", rep.Rows[0])
	}
}

func TestDashboard(t *testing.T) {
	base := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	var records []core.PaymentRecord
	for i := 0; i < 12; i++ {
		r := rec("A", core.April, 3000, 0, 0, 3000)
		r.EnteredAt = base.Add(time.Duration(i) * time.Hour)
		records = append(records, r)
	}
	other := rec("B", core.May, 3000, 0, 0, 1000)
	other.Class = core.Class6
	other.Method = core.MethodJazzCash
	other.EnteredAt = base.Add(48 * time.Hour)
	records = append(records, other)

	ov := Dashboard(records)
	if ov.TotalStudents != 2 || ov.TotalClasses != 2 || ov.TotalRecords != 13 {
		t.Fatalf("unexpected counts %+v", ov)
	}
	if ov.TotalCollected != 37000 {
		t.Fatalf("collected = %d", ov.TotalCollected)
	}
	if ov.CollectionRate != RoundPercent(37000.0/39000.0*100) {
		t.Fatalf("collection rate = %v", ov.CollectionRate)
	}
	if len(ov.ByMonth) != 2 || ov.ByMonth[0].Month != core.April {
		t.Fatalf("months not in academic order: %v", ov.ByMonth)
	}
	if ov.ByClass[0].Name != string(core.Class5) {
		t.Fatalf("largest class first, got %v", ov.ByClass)
	}
	if len(ov.Recent) != RecentLimit || ov.Recent[0].StudentID != "B" {
		t.Fatalf("recent should hold the %d newest records, newest first", RecentLimit)
	}
}

func TestDashboard_Empty(t *testing.T) {
	ov := Dashboard(nil)
	if ov.TotalRecords != 0 || ov.CollectionRate != 0 || ov.ByClass == nil {
		t.Fatalf("unexpected empty overview %+v", ov)
	}
}
