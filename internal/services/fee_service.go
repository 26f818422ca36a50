package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/importer"
	"feeledger/internal/ledger"
	"feeledger/internal/store"
)

// RecordPublisher announces stored records to the sheet mirror.
type RecordPublisher interface {
	PublishRecordSync(ctx context.Context, recordID int64, studentID string) error
	Close() error
}

// FeeService orchestrates registry, schedule and ledger operations over a
// storage backend, publishing every appended record.
type FeeService struct {
	store     store.Backend
	publisher RecordPublisher
	now       func() time.Time

	// registryMu covers every look-up-then-write on students and their
	// schedules, so two writers cannot both pass the collision check.
	registryMu sync.Mutex
}

// NewFeeService builds the service. publisher may be nil, in which case
// records are stored without being announced.
func NewFeeService(backend store.Backend, publisher RecordPublisher) *FeeService {
	return &FeeService{
		store:     backend,
		publisher: publisher,
		now:       time.Now,
	}
}

// RegisterStudent adds s, or overwrites the student with the same derived
// id. The id is derived from name and class, so two different children
// with the same name in the same class collide; that is detected through
// the guardian name and reported as invalid input.
func (s *FeeService) RegisterStudent(ctx context.Context, in core.Student) (core.Student, bool, error) {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	return s.registerLocked(ctx, in)
}

func (s *FeeService) registerLocked(ctx context.Context, in core.Student) (core.Student, bool, error) {
	in.Name = core.CleanName(in.Name)
	in.GuardianName = core.CleanName(in.GuardianName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return core.Student{}, false, fmt.Errorf("%w: student name is empty", core.ErrInvalidInput)
	}
	if !in.Class.Valid() {
		return core.Student{}, false, fmt.Errorf("%w: unknown class %q", core.ErrInvalidInput, in.Class)
	}
	in.ID = core.GenerateStudentID(in.Name, in.Class)
	in.CreatedAt = s.now()

	existing, err := s.store.GetStudent(ctx, in.ID)
	switch {
	case err == nil:
		if err := sameGuardian(existing, in.GuardianName); err != nil {
			return core.Student{}, false, err
		}
		in.CreatedAt = existing.CreatedAt
	case !errors.Is(err, core.ErrNotFound):
		return core.Student{}, false, fmt.Errorf("look up student: %w", err)
	}

	created, err := s.store.PutStudent(ctx, in)
	if err != nil {
		return core.Student{}, false, fmt.Errorf("save student: %w", err)
	}
	slog.InfoContext(ctx, "Student registered",
		"student_id", in.ID,
		"class", in.Class,
		"created", created)
	return in, created, nil
}

func (s *FeeService) Student(ctx context.Context, id string) (core.Student, error) {
	return s.store.GetStudent(ctx, id)
}

// Students lists registered students, optionally only those of class.
func (s *FeeService) Students(ctx context.Context, class core.ClassCategory) ([]core.Student, error) {
	all, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if class == "" {
		return all, nil
	}
	out := make([]core.Student, 0, len(all))
	for _, st := range all {
		if st.Class == class {
			out = append(out, st)
		}
	}
	return out, nil
}

// ImportStudents registers every valid row of a student roster. Invalid
// rows and collisions are reported per row; the rest are still stored.
func (s *FeeService) ImportStudents(ctx context.Context, r io.Reader) core.ImportReport {
	rows, report := importer.ParseStudentRows(r, s.now())
	for _, row := range rows {
		_, created, err := s.RegisterStudent(ctx, row.Student)
		if err != nil {
			report.AddError(row.Row, "", err)
			continue
		}
		if created {
			report.Imported++
		} else {
			report.Updated++
		}
	}
	slog.InfoContext(ctx, "Student import finished",
		"imported", report.Imported,
		"updated", report.Updated,
		"failed", report.Failed())
	return report
}

// ImportFees sets per-student schedules from a fee upload. A student not
// yet registered is registered from the row's name, guardian and class.
func (s *FeeService) ImportFees(ctx context.Context, r io.Reader) core.ImportReport {
	rows, report := importer.ParseFees(r)
	for _, row := range rows {
		had, field, err := s.importFeeRow(ctx, row)
		if err != nil {
			report.AddError(row.Row, field, err)
			continue
		}
		if had {
			report.Updated++
		} else {
			report.Imported++
		}
	}
	slog.InfoContext(ctx, "Fee import finished",
		"imported", report.Imported,
		"updated", report.Updated,
		"failed", report.Failed())
	return report
}

// importFeeRow stores one fee row. It reports whether the student already
// had a schedule and, on failure, which column was at fault.
func (s *FeeService) importFeeRow(ctx context.Context, row importer.FeeRow) (bool, string, error) {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()

	existing, err := s.store.GetStudent(ctx, row.StudentID)
	switch {
	case err == nil:
		// Same name and class, so the same id: only the guardian tells a
		// different child apart.
		if err := sameGuardian(existing, row.GuardianName); err != nil {
			return false, importer.ColFatherName, err
		}
	case errors.Is(err, core.ErrNotFound):
		_, _, err := s.registerLocked(ctx, core.Student{
			Name:         row.StudentName,
			GuardianName: row.GuardianName,
			Class:        row.Class,
		})
		if err != nil {
			return false, importer.ColStudentName, err
		}
	default:
		return false, "", err
	}

	_, had, err := s.store.GetSchedule(ctx, row.StudentID)
	if err != nil {
		return false, "", err
	}
	if err := s.store.PutSchedule(ctx, row.StudentID, row.Schedule); err != nil {
		return false, "", err
	}
	return had, "", nil
}

// sameGuardian rejects a write that derives existing's id for a child with
// another guardian.
func sameGuardian(existing core.Student, guardian string) error {
	if core.NormalizeName(existing.GuardianName) != core.NormalizeName(guardian) {
		return fmt.Errorf("%w: student id %s is already registered to %s with guardian %s",
			core.ErrInvalidInput, existing.ID, existing.Name, existing.GuardianName)
	}
	return nil
}

// Schedule returns the student's effective schedule.
func (s *FeeService) Schedule(ctx context.Context, studentID string) (core.FeeSchedule, error) {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return core.FeeSchedule{}, err
	}
	return store.EffectiveSchedule(ctx, s.store, studentID)
}

func (s *FeeService) SetSchedule(ctx context.Context, studentID string, sched core.FeeSchedule) error {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return err
	}
	return s.store.PutSchedule(ctx, studentID, sched)
}

func (s *FeeService) DefaultSchedule(ctx context.Context) (core.FeeSchedule, error) {
	return s.store.DefaultSchedule(ctx)
}

func (s *FeeService) SetDefaultSchedule(ctx context.Context, sched core.FeeSchedule) error {
	return s.store.SetDefaultSchedule(ctx, sched)
}

// RecordPayment appends r for a registered student. Name and class are
// copied from the registry, the payment date defaults to now and the
// academic year follows the payment date.
func (s *FeeService) RecordPayment(ctx context.Context, r core.PaymentRecord) (core.PaymentRecord, error) {
	st, err := s.store.GetStudent(ctx, r.StudentID)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	now := s.now()
	r.StudentName = st.Name
	r.Class = st.Class
	if r.Method == "" {
		r.Method = core.MethodCash
	}
	if r.Date.IsZero() {
		r.Date = now
	}
	r.EnteredAt = now
	r.AcademicYear = core.AcademicYearFor(r.Date)
	r.Reference = strings.TrimSpace(r.Reference)
	r.Remarks = strings.TrimSpace(r.Remarks)
	return s.appendRecord(ctx, r)
}

// appendRecord stores r and publishes it. A failed publish is logged and
// left to the worker's periodic sweep.
func (s *FeeService) appendRecord(ctx context.Context, r core.PaymentRecord) (core.PaymentRecord, error) {
	saved, err := s.store.AppendRecord(ctx, r)
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("save payment record: %w", err)
	}
	slog.InfoContext(ctx, "Payment recorded",
		"record_id", saved.ID,
		"student_id", saved.StudentID,
		"month", saved.Month,
		"received", saved.Received.Int64())

	if err := s.publishSyncMessage(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"record_id", saved.ID, "error", err)
	}
	return saved, nil
}

func (s *FeeService) publishSyncMessage(ctx context.Context, r core.PaymentRecord) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishRecordSync(ctx, r.ID, r.StudentID)
}

// Records lists all records, or one student's when studentID is set.
func (s *FeeService) Records(ctx context.Context, studentID string) ([]core.PaymentRecord, error) {
	if studentID == "" {
		return s.store.ListRecords(ctx)
	}
	return s.store.ListRecordsFor(ctx, studentID)
}

// Ledger computes the ledger summary of a registered student.
func (s *FeeService) Ledger(ctx context.Context, studentID string) (core.LedgerSummary, error) {
	st, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return core.LedgerSummary{}, err
	}
	records, err := s.store.ListRecordsFor(ctx, studentID)
	if err != nil {
		return core.LedgerSummary{}, fmt.Errorf("list records: %w", err)
	}
	sched, err := store.EffectiveSchedule(ctx, s.store, studentID)
	if err != nil {
		return core.LedgerSummary{}, fmt.Errorf("effective schedule: %w", err)
	}
	return ledger.ComputeLedger(&st, records, sched)
}

// History returns a student's records, newest payment first.
func (s *FeeService) History(ctx context.Context, studentID string) ([]core.PaymentRecord, error) {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	records, err := s.store.ListRecordsFor(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (s *FeeService) ClassReport(ctx context.Context, class core.ClassCategory) (core.ClassReport, error) {
	if !class.Valid() {
		return core.ClassReport{}, fmt.Errorf("%w: unknown class %q", core.ErrInvalidInput, class)
	}
	students, err := s.Students(ctx, class)
	if err != nil {
		return core.ClassReport{}, err
	}
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return core.ClassReport{}, fmt.Errorf("list records: %w", err)
	}
	lookup, err := s.scheduleLookup(ctx, students)
	if err != nil {
		return core.ClassReport{}, err
	}
	return ledger.ClassReport(class, students, records, lookup), nil
}

func (s *FeeService) Dashboard(ctx context.Context) (core.DashboardOverview, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return core.DashboardOverview{}, fmt.Errorf("list records: %w", err)
	}
	return ledger.Dashboard(records), nil
}

// Reminders builds the unpaid-fee report for the month of now.
func (s *FeeService) Reminders(ctx context.Context, now time.Time) (core.ReminderReport, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return core.ReminderReport{}, fmt.Errorf("list records: %w", err)
	}
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return core.ReminderReport{}, fmt.Errorf("list students: %w", err)
	}
	byID := make(map[string]core.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	lookup, err := s.scheduleLookup(ctx, students)
	if err != nil {
		return core.ReminderReport{}, err
	}
	return ledger.BuildReminderReport(now, records, byID, lookup), nil
}

// scheduleLookup resolves the effective schedules of students up front so
// report builders stay pure. Unknown ids get the default schedule.
func (s *FeeService) scheduleLookup(ctx context.Context, students []core.Student) (ledger.ScheduleFunc, error) {
	def, err := s.store.DefaultSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("default schedule: %w", err)
	}
	own := make(map[string]core.FeeSchedule, len(students))
	for _, st := range students {
		sched, ok, err := s.store.GetSchedule(ctx, st.ID)
		if err != nil {
			return nil, fmt.Errorf("schedule for %s: %w", st.ID, err)
		}
		if ok {
			own[st.ID] = sched
		}
	}
	return func(id string) core.FeeSchedule {
		if sched, ok := own[id]; ok {
			return sched
		}
		return def
	}, nil
}

// Close releases the backend and the publisher.
func (s *FeeService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close fee service: %w", errors.Join(errs...))
	}
	return nil
}
