package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"mfDealFlow/config"
	"mfDealFlow/internal/adapters/logger"
	"mfDealFlow/internal/app"
	"mfDealFlow/internal/bootstrap"
	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

// main performs a single ingestion run and exits. A run where every source
// was unavailable exits with status 2; fatal errors exit with status 1.
func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{
		"level": cfg.LogLevel.String(), "format": string(cfg.LogFormat),
	})

	// 3. Wire store, sources and service
	pipeline, err := bootstrap.Build(cfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize pipeline")
		log.Fatalf("FATAL: Failed to initialize pipeline: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// 4. Run once
	report, err := pipeline.Service.Run(ctx)
	cancel()
	pipeline.Close()
	if err != nil {
		appLogger.Error(context.Background(), err, "Ingestion run failed")
		log.Fatalf("FATAL: Ingestion run failed: %v", err)
	}

	appLogger.Info(context.Background(), "Ingestion finished", map[string]interface{}{
		"runID":   report.RunID,
		"outcome": string(report.Outcome),
		"added":   report.Added,
		"total":   report.Total,
		"sources": app.SourceSummary(report.Sources),
	})

	switch err := app.OutcomeErr(report); {
	case errors.Is(err, ports.ErrSourceUnavailable):
		os.Exit(2)
	case errors.Is(err, ports.ErrNoNewData):
		appLogger.Info(context.Background(), "Store already up to date", map[string]interface{}{
			"highWaterMark": report.HighWaterMark.Format(domain.DateLayout),
		})
	}
}
