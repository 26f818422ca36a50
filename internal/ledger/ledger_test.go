package ledger

import (
	"errors"
	"testing"

	"feeledger/internal/core"
)

func student(id string) *core.Student {
	return &core.Student{ID: id, Name: "Student " + id, GuardianName: "Guardian", Class: core.Class5}
}

func rec(id string, month core.Month, monthly, annual, admission, received core.Money) core.PaymentRecord {
	return core.PaymentRecord{
		StudentID:     id,
		Class:         core.Class5,
		Month:         month,
		MonthlyFee:    monthly,
		AnnualCharges: annual,
		AdmissionFee:  admission,
		Received:      received,
		Method:        core.MethodCash,
	}
}

func TestComputeLedger_NotFound(t *testing.T) {
	_, err := ComputeLedger(nil, nil, core.DefaultFeeSchedule())
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestComputeLedger_NoRecords(t *testing.T) {
	sched := core.DefaultFeeSchedule()
	sum, err := ComputeLedger(student("S1"), nil, sched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TotalReceived != 0 || sum.PercentagePaid != 0 {
		t.Fatalf("expected nothing received, got %+v", sum)
	}
	if sum.TotalDue != 12*3000 {
		t.Fatalf("total due = %d, want %d", sum.TotalDue, 12*3000)
	}
	if sum.BalanceDue != sum.TotalDue {
		t.Fatalf("balance %d should equal due %d", sum.BalanceDue, sum.TotalDue)
	}
	if len(sum.UnpaidMonths) != 12 || len(sum.PaidMonths) != 0 {
		t.Fatalf("expected all months unpaid, got paid=%v unpaid=%v", sum.PaidMonths, sum.UnpaidMonths)
	}
	if sum.UnpaidMonths[0] != core.April || sum.UnpaidMonths[11] != core.March {
		t.Fatalf("unpaid months not in academic order: %v", sum.UnpaidMonths)
	}
}

func TestComputeLedger_Totals(t *testing.T) {
	sched := core.FeeSchedule{Monthly: 3000, Annual: 3500, Admission: 10000}
	records := []core.PaymentRecord{
		rec("S1", core.April, 3000, 3500, 10000, 16500),
		rec("S1", core.May, 3000, 0, 0, 3000),
		rec("S1", core.AnnualMonth, 0, 2000, 0, 0),
		rec("S2", core.April, 3000, 0, 0, 3000),
	}
	sum, err := ComputeLedger(student("S1"), records, sched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 12*3000 + max annual 3500 + max admission 10000
	if sum.TotalDue != 49500 {
		t.Fatalf("total due = %d, want 49500", sum.TotalDue)
	}
	if sum.TotalReceived != 19500 {
		t.Fatalf("total received = %d, want 19500", sum.TotalReceived)
	}
	if sum.BalanceDue != 30000 {
		t.Fatalf("balance = %d, want 30000", sum.BalanceDue)
	}
	if sum.PercentagePaid != 39.4 {
		t.Fatalf("percentage = %v, want 39.4", sum.PercentagePaid)
	}
	if want := 19500.0 / 49500.0; sum.Ratio != want {
		t.Fatalf("ratio = %v, want unrounded %v", sum.Ratio, want)
	}
	if len(sum.PaidMonths) != 2 || sum.PaidMonths[0].Month != core.April || sum.PaidMonths[1].Month != core.May {
		t.Fatalf("unexpected paid months %v", sum.PaidMonths)
	}
}

func TestComputeLedger_Overpayment(t *testing.T) {
	sched := core.FeeSchedule{Monthly: 0, Annual: 0, Admission: 10000}
	records := []core.PaymentRecord{rec("S1", core.AdmissionMonth, 0, 0, 10000, 12000)}
	sum, err := ComputeLedger(student("S1"), records, sched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TotalDue != 10000 || sum.TotalReceived != 12000 {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if sum.BalanceDue != 0 {
		t.Fatalf("balance must not go negative, got %d", sum.BalanceDue)
	}
	if sum.PercentagePaid != 120.0 {
		t.Fatalf("percentage = %v, want 120.0 (unclamped)", sum.PercentagePaid)
	}
}

func TestComputeLedger_ZeroDue(t *testing.T) {
	sum, err := ComputeLedger(student("S1"), []core.PaymentRecord{rec("S1", core.ParentPaymentMonth, 0, 0, 0, 500)}, core.FeeSchedule{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TotalDue != 0 || sum.BalanceDue != 0 || sum.PercentagePaid != 0 || sum.Ratio != 0 {
		t.Fatalf("zero due should report zero balance and percentage: %+v", sum)
	}
}

func TestComputeLedger_PaidMonthRule(t *testing.T) {
	sched := core.DefaultFeeSchedule()
	base := []core.PaymentRecord{rec("S1", core.June, 3000, 0, 0, 3000)}

	sum, _ := ComputeLedger(student("S1"), base, sched)
	if len(sum.PaidMonths) != 1 || sum.PaidMonths[0] != (core.MonthAmount{Month: core.June, Amount: 3000}) {
		t.Fatalf("JUNE should be paid with 3000, got %v", sum.PaidMonths)
	}
	if !containsMonth(sum.UnpaidMonths, core.July) {
		t.Fatalf("JULY should be unpaid, got %v", sum.UnpaidMonths)
	}

	// A zero monthly-fee row never flips a month to paid.
	withZero := append(base, rec("S1", core.July, 0, 3500, 0, 3500))
	sum2, _ := ComputeLedger(student("S1"), withZero, sched)
	if !containsMonth(sum2.UnpaidMonths, core.July) {
		t.Fatalf("JULY must stay unpaid after zero monthly-fee record, got %v", sum2.UnpaidMonths)
	}
	if len(sum2.PaidMonths) != len(sum.PaidMonths) {
		t.Fatalf("paid months changed: %v vs %v", sum2.PaidMonths, sum.PaidMonths)
	}

	// Partial payment still counts as a charged month.
	partial := []core.PaymentRecord{rec("S1", core.August, 3000, 0, 0, 1000)}
	sum3, _ := ComputeLedger(student("S1"), partial, sched)
	if len(sum3.PaidMonths) != 1 || sum3.PaidMonths[0].Month != core.August {
		t.Fatalf("AUGUST should be listed as paid, got %v", sum3.PaidMonths)
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	cases := []struct{ due, received, want core.Money }{
		{10000, 0, 10000},
		{10000, 4000, 6000},
		{10000, 10000, 0},
		{10000, 12000, 0},
		{0, 500, 0},
	}
	for _, tc := range cases {
		if got := Balance(tc.due, tc.received); got != tc.want {
			t.Errorf("Balance(%d, %d) = %d, want %d", tc.due, tc.received, got, tc.want)
		}
	}
}

func TestRoundPercent(t *testing.T) {
	cases := map[float64]float64{
		39.39393: 39.4,
		33.33333: 33.3,
		120:      120,
		0:        0,
		66.66666: 66.7,
	}
	for in, want := range cases {
		if got := RoundPercent(in); got != want {
			t.Errorf("RoundPercent(%v) = %v, want %v", in, got, want)
		}
	}
}

func containsMonth(ms []core.Month, m core.Month) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}
