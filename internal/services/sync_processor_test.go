package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) ProcessPending(context.Context) (int, int, error) {
	s.calls.Add(1)
	return 1, 0, s.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
}

func TestNewSyncProcessor_ZeroIntervalUsesDefault(t *testing.T) {
	processor := NewSyncProcessor(&countingSweeper{}, SyncProcessorConfig{})
	if processor.config.PollInterval != 30*time.Second {
		t.Errorf("expected default PollInterval, got %v", processor.config.PollInterval)
	}

	processor = NewSyncProcessor(&countingSweeper{}, SyncProcessorConfig{PollInterval: 5 * time.Second})
	if processor.config.PollInterval != 5*time.Second {
		t.Errorf("expected custom PollInterval 5s, got %v", processor.config.PollInterval)
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingSweeper{}, DefaultSyncProcessorConfig())
	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StartSweepsAndStops(t *testing.T) {
	sweeper := &countingSweeper{}
	processor := NewSyncProcessor(sweeper, SyncProcessorConfig{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !processor.IsRunning() {
		t.Error("processor should be running after Start")
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := sweeper.calls.Load(); n < 3 {
		t.Errorf("expected at least 3 sweeps, got %d", n)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}

func TestSyncProcessor_SweepErrorKeepsLooping(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db locked")}
	processor := NewSyncProcessor(sweeper, SyncProcessorConfig{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := processor.Start(ctx); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sweeper.calls.Load() < 2 {
		t.Error("loop stopped after a failed sweep")
	}
	_ = processor.Stop(context.Background())
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingSweeper{}, DefaultSyncProcessorConfig())
	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
