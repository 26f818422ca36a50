package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"feeledger/internal/backend"
	"feeledger/internal/cli"
	apphttp "feeledger/internal/http"
	applog "feeledger/internal/log"
	"feeledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	payments := services.NewPaymentRequestService(res.Fees)
	srv := apphttp.NewServer(":"+cfg.Port, res.Fees, payments,
		apphttp.WithLogger(logger),
		apphttp.WithReadiness(res.Ready),
		apphttp.WithSchoolName(cfg.SchoolName),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting feeledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", res.Publishing)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cli.RunCleanup(logger, 30*time.Second, func(shutdownCtx context.Context) error {
			return errors.Join(srv.Shutdown(shutdownCtx), res.Cleanup())
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
