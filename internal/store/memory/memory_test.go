package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/store"
)

func TestStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	s := New(core.DefaultFeeSchedule())

	r, err := s.AppendRecord(ctx, core.PaymentRecord{
		StudentID: "STU-1", Month: core.April, MonthlyFee: 3000, Received: 3000, Method: core.MethodCash,
	})
	if err != nil || r.ID != 1 {
		t.Fatalf("unexpected append: %+v err=%v", r, err)
	}
	if _, err := s.AppendRecord(ctx, core.PaymentRecord{StudentID: "STU-2", Month: core.May, Method: core.MethodCash}); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, _ := s.ListRecords(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	mine, _ := s.ListRecordsFor(ctx, "STU-1")
	if len(mine) != 1 || mine[0].Month != core.April {
		t.Fatalf("unexpected records %+v", mine)
	}
	if _, err := s.GetRecord(ctx, 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.AppendRecord(ctx, core.PaymentRecord{StudentID: "", Month: core.May, Method: core.MethodCash}); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := New(core.DefaultFeeSchedule())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AppendRecord(ctx, core.PaymentRecord{StudentID: "STU-1", Month: core.June, Method: core.MethodCash})
		}()
	}
	wg.Wait()

	all, _ := s.ListRecords(ctx)
	if len(all) != 50 {
		t.Fatalf("expected 50 records, got %d", len(all))
	}
	seen := make(map[int64]bool)
	for _, r := range all {
		if seen[r.ID] {
			t.Fatalf("duplicate id %d", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestStoreSchedules(t *testing.T) {
	ctx := context.Background()
	s := New(core.DefaultFeeSchedule())

	got, err := store.EffectiveSchedule(ctx, s, "STU-1")
	if err != nil || got != core.DefaultFeeSchedule() {
		t.Fatalf("expected default schedule, got %+v err=%v", got, err)
	}
	own := core.FeeSchedule{Monthly: 5000}
	if err := s.PutSchedule(ctx, "STU-1", own); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, _ := store.EffectiveSchedule(ctx, s, "STU-1"); got != own {
		t.Fatalf("expected own schedule, got %+v", got)
	}
	if err := s.PutSchedule(ctx, "STU-1", core.FeeSchedule{Annual: -5}); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStoreRequestsKeepOrder(t *testing.T) {
	ctx := context.Background()
	s := New(core.DefaultFeeSchedule())
	at := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"PR_b", "PR_a", "PR_c"} {
		err := s.SaveRequest(ctx, core.PaymentRequest{
			RequestID: id, StudentID: "STU-1", ParentEmail: "p@example.com", Amount: 100,
			PaymentType: core.PayCustom, Method: core.MethodCash, Status: core.StatusPending, RequestedAt: at,
		})
		if err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	req, _ := s.GetRequest(ctx, "PR_a")
	req.Status = core.StatusRejected
	if err := s.SaveRequest(ctx, req); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending, _ := s.ListPending(ctx)
	if len(pending) != 2 || pending[0].RequestID != "PR_b" || pending[1].RequestID != "PR_c" {
		t.Fatalf("unexpected pending %+v", pending)
	}
	all, _ := s.ListRequests(ctx, "STU-1")
	if len(all) != 3 || all[1].RequestID != "PR_a" {
		t.Fatalf("updates should keep insertion order: %+v", all)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewFromFiles(dir, core.DefaultFeeSchedule())
	if all, _ := s.ListStudents(ctx); len(all) != 0 {
		t.Fatalf("expected empty store without seed files, got %d", len(all))
	}

	students := "Student Name,Father Name,Class,Phone Number,Age,Address\n" +
		"Ali Khan,Imran Khan,Class 5,,,\n" +
		"Bad,Row,Class 99,,,\n"
	fees := "Student Name,Father Name,Class,Monthly Fee,Annual Charges,Admission Fee\n" +
		"Ali Khan,Imran Khan,Class 5,4200,3000,0\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_students.csv"), []byte(students), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "seed_fees.csv"), []byte(fees), 0o644); err != nil {
		t.Fatal(err)
	}

	s = NewFromFiles(dir, core.DefaultFeeSchedule())
	all, _ := s.ListStudents(ctx)
	if len(all) != 1 || all[0].Name != "Ali Khan" {
		t.Fatalf("unexpected seeded students %+v", all)
	}
	sched, ok, _ := s.GetSchedule(ctx, all[0].ID)
	if !ok || sched.Monthly != 4200 {
		t.Fatalf("unexpected seeded schedule %+v ok=%v", sched, ok)
	}
}

func TestNewFromFilesSkipsFeesForAnotherGuardian(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	students := "Student Name,Father Name,Class,Phone Number,Age,Address\n" +
		"Ali Khan,Imran Khan,Class 3,,,\n"
	fees := "Student Name,Father Name,Class,Monthly Fee,Annual Charges,Admission Fee\n" +
		"Ali Khan,Someone Else,Class 3,9999,0,0\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_students.csv"), []byte(students), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "seed_fees.csv"), []byte(fees), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFromFiles(dir, core.DefaultFeeSchedule())
	id := core.GenerateStudentID("Ali Khan", core.ClassCategory("Class 3"))
	if _, err := s.GetStudent(ctx, id); err != nil {
		t.Fatalf("seeded student missing: %v", err)
	}
	if sched, ok, _ := s.GetSchedule(ctx, id); ok {
		t.Fatalf("schedule of another guardian's child was applied: %+v", sched)
	}
}
