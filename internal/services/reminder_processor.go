package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/export"
)

// ReminderSource builds the unpaid-fee report for a point in time.
type ReminderSource interface {
	Reminders(ctx context.Context, now time.Time) (core.ReminderReport, error)
}

// ReminderRun describes what one RunOnce call produced.
type ReminderRun struct {
	Month        core.Month
	Students     int
	CSVPath      string
	MessagesPath string
	// Skipped is set when the window was closed or the files already
	// existed.
	Skipped bool
}

// ReminderProcessor writes the monthly reminder export to a directory.
type ReminderProcessor struct {
	source    ReminderSource
	outputDir string
	school    string
}

func NewReminderProcessor(source ReminderSource, outputDir, school string) *ReminderProcessor {
	return &ReminderProcessor{
		source:    source,
		outputDir: outputDir,
		school:    school,
	}
}

// RunOnce writes reminders_<MONTH>_<date>.csv and messages_<MONTH>_<date>.txt
// for now. A second run on the same day leaves the existing files alone.
func (p *ReminderProcessor) RunOnce(ctx context.Context, now time.Time) (ReminderRun, error) {
	if p.source == nil {
		return ReminderRun{}, fmt.Errorf("reminder processor not properly initialized")
	}

	report, err := p.source.Reminders(ctx, now)
	if err != nil {
		return ReminderRun{}, fmt.Errorf("build reminder report: %w", err)
	}
	run := ReminderRun{Month: report.Month}
	if !report.Active {
		slog.InfoContext(ctx, "Reminder window not open yet", "date", now.Format("2006-01-02"))
		run.Skipped = true
		return run, nil
	}

	stamp := now.Format("2006-01-02")
	run.CSVPath = filepath.Join(p.outputDir, fmt.Sprintf("reminders_%s_%s.csv", report.Month, stamp))
	run.MessagesPath = filepath.Join(p.outputDir, fmt.Sprintf("messages_%s_%s.txt", report.Month, stamp))
	run.Students = len(report.Rows)

	if fileExists(run.CSVPath) && fileExists(run.MessagesPath) {
		slog.InfoContext(ctx, "Reminder export already written", "csv", run.CSVPath)
		run.Skipped = true
		return run, nil
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return ReminderRun{}, fmt.Errorf("create reminder dir: %w", err)
	}

	var csvBuf, msgBuf bytes.Buffer
	if err := export.WriteReminderCSV(&csvBuf, report); err != nil {
		return ReminderRun{}, err
	}
	if err := export.RenderReminderMessages(&msgBuf, report, p.school); err != nil {
		return ReminderRun{}, err
	}
	if err := writeFileAtomic(run.CSVPath, csvBuf.Bytes()); err != nil {
		return ReminderRun{}, err
	}
	if err := writeFileAtomic(run.MessagesPath, msgBuf.Bytes()); err != nil {
		return ReminderRun{}, err
	}

	slog.InfoContext(ctx, "Reminder export written",
		"month", report.Month,
		"students", run.Students,
		"csv", run.CSVPath,
		"messages", run.MessagesPath)
	return run, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFileAtomic writes through a temp file so a crash never leaves a
// half-written export that a later run would treat as done.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
