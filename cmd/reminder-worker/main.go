package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"feeledger/internal/backend"
	"feeledger/internal/cli"
	applog "feeledger/internal/log"
	"feeledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentReminder)
	logger.Info("Starting reminder-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	// Reminders only read; nothing is published from here
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	processor := services.NewReminderProcessor(res.Fees, cfg.ReminderOutputDir, cfg.SchoolName)
	run := func() {
		result, err := processor.RunOnce(ctx, time.Now())
		if err != nil {
			logger.Error("Reminder run failed", applog.FieldError, err)
			return
		}
		logger.Info("Reminder run finished",
			"month", result.Month,
			"students", result.Students,
			"skipped", result.Skipped)
	}

	// A run on startup covers a schedule missed while the worker was down.
	// RunOnce leaves files already written today alone.
	run()

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReminderCron, run); err != nil {
		logger.Error("Invalid reminder schedule", applog.FieldError, err, "cron", cfg.ReminderCron)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Start()
		logger.Info("Reminder schedule active",
			"cron", cfg.ReminderCron,
			"output_dir", cfg.ReminderOutputDir)
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cli.RunCleanup(logger, 30*time.Second, func(shutdownCtx context.Context) error {
			select {
			case <-c.Stop().Done():
				return nil
			case <-shutdownCtx.Done():
				return shutdownCtx.Err()
			}
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Reminder worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Reminder worker stopped")
}
