package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/importer"
	"feeledger/internal/store"
)

var _ store.Backend = (*Store)(nil)

// Store keeps every table in process memory. A single mutex serializes all
// reads and writes, so read-modify-write sequences cannot lose updates.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	records   []core.PaymentRecord
	students  map[string]core.Student
	schedules map[string]core.FeeSchedule
	def       core.FeeSchedule
	requests  map[string]core.PaymentRequest
	reqOrder  []string
}

func New(def core.FeeSchedule) *Store {
	return &Store{
		students:  make(map[string]core.Student),
		schedules: make(map[string]core.FeeSchedule),
		requests:  make(map[string]core.PaymentRequest),
		def:       def,
	}
}

// NewFromFiles builds a store seeded from base/seed_students.csv and
// base/seed_fees.csv when they exist. Seed rows that fail to parse are
// logged and skipped.
func NewFromFiles(base string, def core.FeeSchedule) *Store {
	s := New(def)
	ctx := context.Background()
	now := time.Now()

	if f, err := os.Open(filepath.Join(base, "seed_students.csv")); err == nil {
		students, report := importer.ParseStudents(f, now)
		f.Close()
		for _, st := range students {
			_, _ = s.PutStudent(ctx, st)
		}
		logSeed("students", len(students), report)
	}
	if f, err := os.Open(filepath.Join(base, "seed_fees.csv")); err == nil {
		rows, report := importer.ParseFees(f)
		f.Close()
		for _, r := range rows {
			if st, ok := s.students[r.StudentID]; ok &&
				core.NormalizeName(st.GuardianName) != core.NormalizeName(r.GuardianName) {
				report.AddError(r.Row, importer.ColFatherName,
					fmt.Errorf("%w: student id %s belongs to guardian %s", core.ErrInvalidInput, r.StudentID, st.GuardianName))
				continue
			}
			_ = s.PutSchedule(ctx, r.StudentID, r.Schedule)
		}
		logSeed("fees", len(rows), report)
	}
	return s
}

func logSeed(kind string, n int, report core.ImportReport) {
	slog.Info("Seeded memory store", "kind", kind, "rows", n, "skipped", report.Failed())
	for _, e := range report.Errors {
		slog.Warn("Skipped seed row", "kind", kind, "error", e.Error())
	}
}

func (s *Store) AppendRecord(_ context.Context, r core.PaymentRecord) (core.PaymentRecord, error) {
	if err := r.Validate(); err != nil {
		return core.PaymentRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.records = append(s.records, r)
	return r, nil
}

func (s *Store) GetRecord(_ context.Context, id int64) (core.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return core.PaymentRecord{}, fmt.Errorf("record %d: %w", id, core.ErrNotFound)
}

func (s *Store) ListRecords(_ context.Context) ([]core.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PaymentRecord(nil), s.records...), nil
}

func (s *Store) ListRecordsFor(_ context.Context, studentID string) ([]core.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PaymentRecord
	for _, r := range s.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, id string) (core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return core.Student{}, fmt.Errorf("student %s: %w", id, core.ErrNotFound)
	}
	return st, nil
}

func (s *Store) PutStudent(_ context.Context, st core.Student) (bool, error) {
	if err := st.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.students[st.ID]
	s.students[st.ID] = st
	return !exists, nil
}

func (s *Store) ListStudents(_ context.Context) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetSchedule(_ context.Context, studentID string) (core.FeeSchedule, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[studentID]
	return sched, ok, nil
}

func (s *Store) PutSchedule(_ context.Context, studentID string, sched core.FeeSchedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[studentID] = sched
	return nil
}

func (s *Store) DefaultSchedule(_ context.Context) (core.FeeSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def, nil
}

func (s *Store) SetDefaultSchedule(_ context.Context, sched core.FeeSchedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = sched
	return nil
}

func (s *Store) SaveRequest(_ context.Context, r core.PaymentRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.RequestID]; !ok {
		s.reqOrder = append(s.reqOrder, r.RequestID)
	}
	s.requests[r.RequestID] = r
	return nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (core.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return core.PaymentRequest{}, fmt.Errorf("payment request %s: %w", requestID, core.ErrNotFound)
	}
	return r, nil
}

func (s *Store) ListRequests(_ context.Context, studentID string) ([]core.PaymentRequest, error) {
	return s.filterRequests(func(r core.PaymentRequest) bool { return r.StudentID == studentID }), nil
}

func (s *Store) ListPending(_ context.Context) ([]core.PaymentRequest, error) {
	return s.filterRequests(func(r core.PaymentRequest) bool { return r.Status == core.StatusPending }), nil
}

func (s *Store) filterRequests(keep func(core.PaymentRequest) bool) []core.PaymentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PaymentRequest
	for _, id := range s.reqOrder {
		if r := s.requests[id]; keep(r) {
			out = append(out, r)
		}
	}
	return out
}
