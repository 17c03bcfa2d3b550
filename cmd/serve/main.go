package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mfDealFlow/config"
	"mfDealFlow/internal/adapters/logger"
	"mfDealFlow/internal/api"
	"mfDealFlow/internal/bootstrap"
	"mfDealFlow/internal/scheduler"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)

	pipeline, err := bootstrap.Build(cfg, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize pipeline: %v", err)
	}
	defer pipeline.Close()

	srv, err := api.New(api.Config{
		Port:          cfg.APIPort,
		Logger:        appLogger,
		Ingester:      pipeline.Service,
		Querier:       pipeline.Service,
		CacheTTL:      cfg.CacheTTL,
		HighWaterMark: pipeline.Service.HighWaterMark,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize API server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if cfg.IngestSchedule != "" {
		sched = scheduler.New(ctx, appLogger)
		if err := sched.AddJob(cfg.IngestSchedule, scheduler.NewIngestJob(srv.RunIngest, appLogger)); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		sched.Start()
	} else {
		appLogger.Info(ctx, "INGEST_SCHEDULE not set, ingestion is manual only")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info(context.Background(), "Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			appLogger.Error(context.Background(), err, "HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "Error during HTTP shutdown")
	}
	appLogger.Info(context.Background(), "Server stopped gracefully.")
}
