package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Backend = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	version uint
}

// NewSQLiteRepository opens (or creates) the database at dbPath, migrates
// it and stores def as the default schedule unless one is already set.
func NewSQLiteRepository(dbPath string, def core.FeeSchedule) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps read-modify-write sequences serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO default_schedule (id, monthly, annual, admission) VALUES (1, ?, ?, ?)`,
		def.Monthly.Int64(), def.Annual.Int64(), def.Admission.Int64())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seed default schedule: %w", err)
	}

	return &SQLiteRepository{db: db, version: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return persistence("ping", err)
	}
	return nil
}

// SchemaVersion is the migration version applied at open time.
func (r *SQLiteRepository) SchemaVersion() uint { return r.version }

const recordColumns = `id, student_id, student_name, class, month, monthly_fee, annual_charges,
	admission_fee, received, payment_method, reference, remarks, date, entered_at, academic_year`

func (r *SQLiteRepository) AppendRecord(ctx context.Context, rec core.PaymentRecord) (core.PaymentRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.PaymentRecord{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO payment_records (
		student_id, student_name, class, month, monthly_fee, annual_charges,
		admission_fee, received, payment_method, reference, remarks, date, entered_at, academic_year
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StudentID, rec.StudentName, string(rec.Class), string(rec.Month),
		rec.MonthlyFee.Int64(), rec.AnnualCharges.Int64(), rec.AdmissionFee.Int64(), rec.Received.Int64(),
		string(rec.Method), rec.Reference, rec.Remarks, formatTime(rec.Date), formatTime(rec.EnteredAt), rec.AcademicYear)
	if err != nil {
		return core.PaymentRecord{}, persistence("insert payment record", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.PaymentRecord{}, persistence("read record id", err)
	}
	rec.ID = id

	slog.InfoContext(ctx, "Payment record saved to SQLite",
		"id", id,
		"student_id", rec.StudentID,
		"month", rec.Month,
		"received", rec.Received.Int64())
	return rec, nil
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id int64) (core.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM payment_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentRecord{}, fmt.Errorf("record %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.PaymentRecord{}, persistence("get payment record", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListRecords(ctx context.Context) ([]core.PaymentRecord, error) {
	return r.queryRecords(ctx, `SELECT `+recordColumns+` FROM payment_records ORDER BY id`)
}

func (r *SQLiteRepository) ListRecordsFor(ctx context.Context, studentID string) ([]core.PaymentRecord, error) {
	return r.queryRecords(ctx, `SELECT `+recordColumns+` FROM payment_records WHERE student_id = ? ORDER BY id`, studentID)
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]core.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence("list payment records", err)
	}
	defer rows.Close()

	var out []core.PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, persistence("scan payment record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list payment records", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetStudent(ctx context.Context, id string) (core.Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, guardian_name, class, phone, age, address, created_at
		FROM students WHERE id = ?`, id)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Student{}, fmt.Errorf("student %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Student{}, persistence("get student", err)
	}
	return st, nil
}

func (r *SQLiteRepository) PutStudent(ctx context.Context, st core.Student) (bool, error) {
	if err := st.Validate(); err != nil {
		return false, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, persistence("begin transaction", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM students WHERE id = ?`, st.ID).Scan(&n); err != nil {
		return false, persistence("check student", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO students (id, name, guardian_name, class, phone, age, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			guardian_name = excluded.guardian_name,
			class = excluded.class,
			phone = excluded.phone,
			age = excluded.age,
			address = excluded.address,
			created_at = excluded.created_at`,
		st.ID, st.Name, st.GuardianName, string(st.Class), st.Phone, st.Age, st.Address, formatTime(st.CreatedAt))
	if err != nil {
		return false, persistence("upsert student", err)
	}
	if err := tx.Commit(); err != nil {
		return false, persistence("commit student", err)
	}
	return n == 0, nil
}

func (r *SQLiteRepository) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, guardian_name, class, phone, age, address, created_at
		FROM students ORDER BY id`)
	if err != nil {
		return nil, persistence("list students", err)
	}
	defer rows.Close()

	var out []core.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, persistence("scan student", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list students", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetSchedule(ctx context.Context, studentID string) (core.FeeSchedule, bool, error) {
	var m, a, ad int64
	err := r.db.QueryRowContext(ctx, `SELECT monthly, annual, admission FROM fee_schedules WHERE student_id = ?`, studentID).
		Scan(&m, &a, &ad)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FeeSchedule{}, false, nil
	}
	if err != nil {
		return core.FeeSchedule{}, false, persistence("get fee schedule", err)
	}
	return core.FeeSchedule{Monthly: core.Money(m), Annual: core.Money(a), Admission: core.Money(ad)}, true, nil
}

func (r *SQLiteRepository) PutSchedule(ctx context.Context, studentID string, s core.FeeSchedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO fee_schedules (student_id, monthly, annual, admission)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET
			monthly = excluded.monthly,
			annual = excluded.annual,
			admission = excluded.admission`,
		studentID, s.Monthly.Int64(), s.Annual.Int64(), s.Admission.Int64())
	if err != nil {
		return persistence("put fee schedule", err)
	}
	return nil
}

func (r *SQLiteRepository) DefaultSchedule(ctx context.Context) (core.FeeSchedule, error) {
	var m, a, ad int64
	err := r.db.QueryRowContext(ctx, `SELECT monthly, annual, admission FROM default_schedule WHERE id = 1`).
		Scan(&m, &a, &ad)
	if err != nil {
		return core.FeeSchedule{}, persistence("get default schedule", err)
	}
	return core.FeeSchedule{Monthly: core.Money(m), Annual: core.Money(a), Admission: core.Money(ad)}, nil
}

func (r *SQLiteRepository) SetDefaultSchedule(ctx context.Context, s core.FeeSchedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO default_schedule (id, monthly, annual, admission)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			monthly = excluded.monthly,
			annual = excluded.annual,
			admission = excluded.admission`,
		s.Monthly.Int64(), s.Annual.Int64(), s.Admission.Int64())
	if err != nil {
		return persistence("set default schedule", err)
	}
	return nil
}

const requestColumns = `request_id, student_id, parent_email, amount, payment_type, payment_method,
	status, requested_at, decided_at, notes`

func (r *SQLiteRepository) SaveRequest(ctx context.Context, req core.PaymentRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	var decided sql.NullString
	if !req.DecidedAt.IsZero() {
		decided = sql.NullString{String: formatTime(req.DecidedAt), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO payment_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			status = excluded.status,
			decided_at = excluded.decided_at,
			notes = excluded.notes`,
		req.RequestID, req.StudentID, req.ParentEmail, req.Amount.Int64(), string(req.PaymentType),
		string(req.Method), string(req.Status), formatTime(req.RequestedAt), decided, req.Notes)
	if err != nil {
		return persistence("save payment request", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRequest(ctx context.Context, requestID string) (core.PaymentRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE request_id = ?`, requestID)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentRequest{}, fmt.Errorf("payment request %s: %w", requestID, core.ErrNotFound)
	}
	if err != nil {
		return core.PaymentRequest{}, persistence("get payment request", err)
	}
	return req, nil
}

func (r *SQLiteRepository) ListRequests(ctx context.Context, studentID string) ([]core.PaymentRequest, error) {
	return r.queryRequests(ctx, `SELECT `+requestColumns+` FROM payment_requests
		WHERE student_id = ? ORDER BY requested_at, request_id`, studentID)
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]core.PaymentRequest, error) {
	return r.queryRequests(ctx, `SELECT `+requestColumns+` FROM payment_requests
		WHERE status = ? ORDER BY requested_at, request_id`, string(core.StatusPending))
}

func (r *SQLiteRepository) queryRequests(ctx context.Context, query string, args ...any) ([]core.PaymentRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence("list payment requests", err)
	}
	defer rows.Close()

	var out []core.PaymentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, persistence("scan payment request", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list payment requests", err)
	}
	return out, nil
}

// PendingSync is the minimal data the sync queue needs about an unsynced record.
type PendingSync struct {
	ID        int64
	StudentID string
	EnteredAt time.Time
}

// PendingSyncRecords returns up to limit records not yet mirrored to the
// spreadsheet, oldest first. Records that previously failed are retried.
func (r *SQLiteRepository) PendingSyncRecords(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, student_id, entered_at FROM payment_records
		WHERE sync_status IN ('pending', 'error') ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, persistence("get pending sync records", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var p PendingSync
		var entered string
		if err := rows.Scan(&p.ID, &p.StudentID, &entered); err != nil {
			return nil, persistence("scan pending sync record", err)
		}
		p.EnteredAt = parseTime(entered)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("get pending sync records", err)
	}
	return out, nil
}

// MarkSynced marks a record as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, "synced"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Payment record marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a record whose mirroring failed.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, "error"); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Payment record marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	var syncedAt sql.NullString
	if status == "synced" {
		syncedAt = sql.NullString{String: formatTime(time.Now()), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `UPDATE payment_records SET sync_status = ?, synced_at = ? WHERE id = ?`,
		status, syncedAt, id)
	if err != nil {
		return persistence("update sync status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %d: %w", id, core.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (core.PaymentRecord, error) {
	var (
		rec                         core.PaymentRecord
		class, month, method        string
		monthly, annual, adm, recvd int64
		date, entered               string
	)
	err := s.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &class, &month, &monthly, &annual,
		&adm, &recvd, &method, &rec.Reference, &rec.Remarks, &date, &entered, &rec.AcademicYear)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	rec.Class = core.ClassCategory(class)
	rec.Month = core.Month(month)
	rec.Method = core.PaymentMethod(method)
	rec.MonthlyFee = core.Money(monthly)
	rec.AnnualCharges = core.Money(annual)
	rec.AdmissionFee = core.Money(adm)
	rec.Received = core.Money(recvd)
	rec.Date = parseTime(date)
	rec.EnteredAt = parseTime(entered)
	return rec, nil
}

func scanStudent(s scanner) (core.Student, error) {
	var st core.Student
	var class, created string
	if err := s.Scan(&st.ID, &st.Name, &st.GuardianName, &class, &st.Phone, &st.Age, &st.Address, &created); err != nil {
		return core.Student{}, err
	}
	st.Class = core.ClassCategory(class)
	st.CreatedAt = parseTime(created)
	return st, nil
}

func scanRequest(s scanner) (core.PaymentRequest, error) {
	var (
		req                   core.PaymentRequest
		amount                int64
		ptype, method, status string
		requested             string
		decided               sql.NullString
	)
	err := s.Scan(&req.RequestID, &req.StudentID, &req.ParentEmail, &amount, &ptype, &method,
		&status, &requested, &decided, &req.Notes)
	if err != nil {
		return core.PaymentRequest{}, err
	}
	req.Amount = core.Money(amount)
	req.PaymentType = core.PaymentType(ptype)
	req.Method = core.PaymentMethod(method)
	req.Status = core.RequestStatus(status)
	req.RequestedAt = parseTime(requested)
	if decided.Valid {
		req.DecidedAt = parseTime(decided.String)
	}
	return req, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrPersistence, err)
}
