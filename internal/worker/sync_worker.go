package worker

import (
	"context"
	"fmt"
	"log/slog"

	"feeledger/internal/amqp"
	"feeledger/internal/core"
	"feeledger/internal/sheets"
	"feeledger/internal/storage"
)

// SyncStore is the part of the SQLite repository the worker needs.
type SyncStore interface {
	GetRecord(ctx context.Context, id int64) (core.PaymentRecord, error)
	PendingSyncRecords(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

var _ SyncStore = (*storage.SQLiteRepository)(nil)

// SyncWorker mirrors stored payment records to the spreadsheet.
type SyncWorker struct {
	storage   SyncStore
	mirror    sheets.RecordMirror
	batchSize int
}

func NewSyncWorker(storage SyncStore, mirror sheets.RecordMirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage mirrors the record named by msg. Returning an error
// makes the consumer requeue the message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"record_id", msg.RecordID,
		"student_id", msg.StudentID)

	rec, err := w.storage.GetRecord(ctx, msg.RecordID)
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}
	return w.syncRecord(ctx, rec)
}

// ProcessPending mirrors up to one batch of records that are still
// unsynced. It is the fallback for lost or undelivered messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) (synced, failed int, err error) {
	pending, err := w.storage.PendingSyncRecords(ctx, w.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending records: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		rec, err := w.storage.GetRecord(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get record", "record_id", p.ID, "error", err)
			failed++
			continue
		}
		if err := w.syncRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync record", "record_id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// StartupSyncCheck drains a larger batch once when the worker starts, to
// recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	saved := w.batchSize
	w.batchSize = saved * 5
	defer func() { w.batchSize = saved }()

	synced, failed, err := w.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced, "errors", failed)
	return nil
}

func (w *SyncWorker) syncRecord(ctx context.Context, rec core.PaymentRecord) error {
	ref, err := w.mirror.MirrorRecord(ctx, rec)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "record_id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("mirror record %d: %w", rec.ID, err)
	}
	if err := w.storage.MarkSynced(ctx, rec.ID); err != nil {
		// The row is in the sheet; the next sweep finds it and skips it.
		slog.WarnContext(ctx, "Failed to mark record as synced", "record_id", rec.ID, "error", err)
	}
	slog.InfoContext(ctx, "Synced record to sheet", "record_id", rec.ID, "ref", ref)
	return nil
}
