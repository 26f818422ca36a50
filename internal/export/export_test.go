package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/ledger"
)

func sampleLedger(t *testing.T) core.LedgerSummary {
	t.Helper()
	st := core.Student{ID: "STU-ABC", Name: "Ali Khan", GuardianName: "Imran Khan", Class: core.Class3}
	records := []core.PaymentRecord{
		{StudentID: st.ID, Month: core.April, MonthlyFee: 3000, Received: 3000, Method: core.MethodCash},
		{StudentID: st.ID, Month: core.AdmissionMonth, AdmissionFee: 10000, Received: 10000, Method: core.MethodCash},
		{StudentID: st.ID, Month: core.May, MonthlyFee: 3000, Received: 1500, Method: core.MethodCash},
	}
	s, err := ledger.ComputeLedger(&st, records, core.DefaultFeeSchedule())
	if err != nil {
		t.Fatalf("ComputeLedger() error = %v", err)
	}
	return s
}

func TestLedgerCSVRoundTrip(t *testing.T) {
	want := sampleLedger(t)

	var buf bytes.Buffer
	if err := WriteLedgerCSV(&buf, want); err != nil {
		t.Fatalf("WriteLedgerCSV() error = %v", err)
	}
	got, err := ParseLedgerCSV(&buf)
	if err != nil {
		t.Fatalf("ParseLedgerCSV() error = %v", err)
	}

	if got.TotalDue != want.TotalDue || got.TotalReceived != want.TotalReceived || got.BalanceDue != want.BalanceDue {
		t.Errorf("totals = %v/%v/%v, want %v/%v/%v",
			got.TotalDue, got.TotalReceived, got.BalanceDue,
			want.TotalDue, want.TotalReceived, want.BalanceDue)
	}
	if got.PercentagePaid != want.PercentagePaid {
		t.Errorf("PercentagePaid = %v, want %v", got.PercentagePaid, want.PercentagePaid)
	}
	if got.Schedule != want.Schedule {
		t.Errorf("Schedule = %+v, want %+v", got.Schedule, want.Schedule)
	}
	if len(got.PaidMonths) != len(want.PaidMonths) {
		t.Fatalf("PaidMonths = %v, want %v", got.PaidMonths, want.PaidMonths)
	}
	for i := range want.PaidMonths {
		if got.PaidMonths[i] != want.PaidMonths[i] {
			t.Errorf("PaidMonths[%d] = %v, want %v", i, got.PaidMonths[i], want.PaidMonths[i])
		}
	}
	if len(got.UnpaidMonths) != len(want.UnpaidMonths) {
		t.Errorf("UnpaidMonths = %v, want %v", got.UnpaidMonths, want.UnpaidMonths)
	}
	if got.StudentID != want.StudentID || got.Class != want.Class {
		t.Errorf("identity = %s/%s, want %s/%s", got.StudentID, got.Class, want.StudentID, want.Class)
	}
}

func TestParseLedgerCSVRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"header only", strings.Join(LedgerHeader, ",") + "\n"},
		{"wrong header", "a,b,c,d,e,f,g,h,i,j,k,l\n1,2,3,4,5,6,7,8,9,10,11,12\n"},
		{"bad amount", strings.Join(LedgerHeader, ",") + "\nS,N,Class 1,abc,0,0,0,0,0,0.0,,\n"},
		{"bad month", strings.Join(LedgerHeader, ",") + "\nS,N,Class 1,0,0,0,0,0,0,0.0,SMARCH:1,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLedgerCSV(strings.NewReader(tt.input))
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("ParseLedgerCSV() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestWriteHistoryCSV(t *testing.T) {
	records := []core.PaymentRecord{
		{Month: core.May, Received: 3000, Method: core.MethodBankTransfer, Reference: "TX-9",
			Date: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)},
		{Month: core.April, Received: 2500, Method: core.MethodCash, Remarks: "partial, rest later",
			Date: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
	}
	var buf bytes.Buffer
	if err := WriteHistoryCSV(&buf, records); err != nil {
		t.Fatalf("WriteHistoryCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[1][0] != "2025-05-10" || rows[1][2] != "3000" || rows[1][4] != "TX-9" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][5] != "partial, rest later" {
		t.Errorf("remarks = %q", rows[2][5])
	}
}

func TestWriteClassReportCSV(t *testing.T) {
	report := core.ClassReport{
		Class: core.Class1,
		Rows: []core.ClassReportRow{
			{StudentID: "STU-1", StudentName: "Sara", GuardianName: "Ahmed", PaidMonths: 2, UnpaidMonths: 10,
				TotalReceived: 6000, Outstanding: 39500, Status: core.StatusPartiallyPaid},
		},
	}
	var buf bytes.Buffer
	if err := WriteClassReportCSV(&buf, report); err != nil {
		t.Fatalf("WriteClassReportCSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	want := "STU-1,Sara,Ahmed,,2,10,6000,39500,Partially Paid"
	if lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
}

func reminderReport() core.ReminderReport {
	return core.ReminderReport{
		Month:  core.May,
		Active: true,
		Rows: []core.ReminderRow{
			{StudentID: "STU-1", StudentName: "Ali Khan", GuardianName: "Imran Khan", Class: core.Nursery, Phone: "0300", MonthlyFee: 3000},
			{StudentID: "STU-2", StudentName: "Sara Ahmed", GuardianName: "Ahmed Ali", Class: core.Class2, MonthlyFee: 12500},
		},
	}
}

func TestWriteReminderCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReminderCSV(&buf, reminderReport()); err != nil {
		t.Fatalf("WriteReminderCSV() error = %v", err)
	}
	want := "Student Name,Father Name,Class,Phone,Monthly Fee\n" +
		"Ali Khan,Imran Khan,Nursery,0300,3000\n" +
		"Sara Ahmed,Ahmed Ali,Class 2,,12500\n"
	if buf.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRenderReminderMessages(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReminderMessages(&buf, reminderReport(), "Green Valley School"); err != nil {
		t.Fatalf("RenderReminderMessages() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"the fee payment for May is due for Ali Khan (Nursery).",
		"Amount: Rs. 3,000",
		"Amount: Rs. 12,500",
		"Thank you,\nGreen Valley School",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "Dear Parent,"); n != 2 {
		t.Errorf("got %d messages, want 2", n)
	}
}

func TestRenderReminderMessagesInactive(t *testing.T) {
	report := reminderReport()
	report.Active = false

	var buf bytes.Buffer
	if err := RenderReminderMessages(&buf, report, "School"); err != nil {
		t.Fatalf("RenderReminderMessages() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("inactive report rendered %q", buf.String())
	}
}
