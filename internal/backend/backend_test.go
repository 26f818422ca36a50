package backend

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"feeledger/internal/config"
	"feeledger/internal/core"
	applog "feeledger/internal/log"
)

func quietFactory() Factory {
	return NewFactory(applog.New(applog.Config{Output: &bytes.Buffer{}}))
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:          "sqlite",
		SQLiteDBPath:         "./data/test.db",
		AMQPURL:              "amqp://localhost:5672/",
		AMQPExchange:         "feeledger",
		AMQPQueue:            "sync_records",
		DefaultMonthlyFee:    2500,
		DefaultAnnualCharges: 1000,
		DefaultAdmissionFee:  5000,
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != SQLiteBackend || got.SQLiteDBPath != "./data/test.db" || got.AMQPQueue != "sync_records" {
		t.Errorf("config = %+v", got)
	}
	if got.DataDirectory != "data" {
		t.Errorf("DataDirectory = %q, want default data", got.DataDirectory)
	}
	if want := (core.FeeSchedule{Monthly: 2500, Annual: 1000, Admission: 5000}); got.DefaultSchedule != want {
		t.Errorf("DefaultSchedule = %+v", got.DefaultSchedule)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	def := core.DefaultFeeSchedule()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, DefaultSchedule: def}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", DefaultSchedule: def}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, DefaultSchedule: def}, true},
		{"amqp without queue", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", AMQPURL: "amqp://h/", AMQPExchange: "x", DefaultSchedule: def}, true},
		{"unknown type", Config{Type: "sheets", DefaultSchedule: def}, true},
		{"negative default", Config{Type: MemoryBackend, DefaultSchedule: core.FeeSchedule{Monthly: -1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackendSeedsFromDataDir(t *testing.T) {
	dir := t.TempDir()
	seed := "Student Name,Father Name,Class,Phone Number,Age,Address\n" +
		"Ali Khan,Imran Khan,Class 3,,,\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_students.csv"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	res, err := quietFactory().CreateBackend(ctx, Config{
		Type:            MemoryBackend,
		DataDirectory:   dir,
		DefaultSchedule: core.DefaultFeeSchedule(),
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	if err := res.Ready(ctx); err != nil {
		t.Errorf("Ready() error = %v", err)
	}
	if res.Publishing {
		t.Error("memory backend should not publish")
	}
	students, err := res.Fees.Students(ctx, "")
	if err != nil || len(students) != 1 {
		t.Fatalf("Students() = %v, %v", students, err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	res, err := quietFactory().CreateBackend(ctx, Config{
		Type:            SQLiteBackend,
		SQLiteDBPath:    filepath.Join(t.TempDir(), "feeledger.db"),
		DefaultSchedule: core.FeeSchedule{Monthly: 2000},
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}

	if err := res.Ready(ctx); err != nil {
		t.Errorf("Ready() error = %v", err)
	}
	sched, err := res.Fees.DefaultSchedule(ctx)
	if err != nil || sched.Monthly != 2000 {
		t.Errorf("DefaultSchedule() = %+v, %v", sched, err)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	if _, err := quietFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend}); err == nil {
		t.Error("expected error for sqlite without path")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}
