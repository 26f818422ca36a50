package store

import (
	"context"

	"feeledger/internal/core"
)

// Ports for persistence adapters. Implementations return errors wrapping
// core.ErrNotFound for missing keys and core.ErrPersistence for storage
// failures.
type (
	RecordStore interface {
		// AppendRecord stores r and returns it with its assigned ID.
		AppendRecord(ctx context.Context, r core.PaymentRecord) (core.PaymentRecord, error)
		GetRecord(ctx context.Context, id int64) (core.PaymentRecord, error)
		ListRecords(ctx context.Context) ([]core.PaymentRecord, error)
		// ListRecordsFor returns the records of one student in insertion order.
		ListRecordsFor(ctx context.Context, studentID string) ([]core.PaymentRecord, error)
	}

	StudentRegistry interface {
		GetStudent(ctx context.Context, id string) (core.Student, error)
		// PutStudent inserts or overwrites s. created reports whether the
		// id was new.
		PutStudent(ctx context.Context, s core.Student) (created bool, err error)
		ListStudents(ctx context.Context) ([]core.Student, error)
	}

	ScheduleStore interface {
		// GetSchedule returns the student's own schedule; ok is false when
		// the student has none.
		GetSchedule(ctx context.Context, studentID string) (s core.FeeSchedule, ok bool, err error)
		PutSchedule(ctx context.Context, studentID string, s core.FeeSchedule) error
		DefaultSchedule(ctx context.Context) (core.FeeSchedule, error)
		SetDefaultSchedule(ctx context.Context, s core.FeeSchedule) error
	}

	PaymentRequestStore interface {
		SaveRequest(ctx context.Context, r core.PaymentRequest) error
		GetRequest(ctx context.Context, requestID string) (core.PaymentRequest, error)
		ListRequests(ctx context.Context, studentID string) ([]core.PaymentRequest, error)
		ListPending(ctx context.Context) ([]core.PaymentRequest, error)
	}

	// Backend is everything the fee service needs from storage.
	Backend interface {
		RecordStore
		StudentRegistry
		ScheduleStore
		PaymentRequestStore
	}
)

// EffectiveSchedule returns the student's own schedule, or the default when
// none is set.
func EffectiveSchedule(ctx context.Context, s ScheduleStore, studentID string) (core.FeeSchedule, error) {
	sched, ok, err := s.GetSchedule(ctx, studentID)
	if err != nil {
		return core.FeeSchedule{}, err
	}
	if ok {
		return sched, nil
	}
	return s.DefaultSchedule(ctx)
}
