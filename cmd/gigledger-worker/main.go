package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gigledger/internal/amqp"
	"gigledger/internal/config"
	"gigledger/internal/export"
	gsheet "gigledger/internal/export/google"
	mem "gigledger/internal/export/memory"
	applog "gigledger/internal/log"
	"gigledger/internal/services"
	"gigledger/internal/storage"
	"gigledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting gigledger-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Report destination: Google Sheets when configured, an in-process buffer
	// otherwise so local runs still exercise the export path.
	var writer export.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = sheetsClient
		logger.Info("Google Sheets report writer initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = mem.NewWriter()
		logger.Info("Google Sheets disabled - reports are kept in memory only")
	}

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The worker recomputes aggregates on every event, so it runs uncached.
	aggregationService := services.NewAggregationService(repo, repo, repo, nil,
		cfg.MileageRate, cfg.DefaultTaxPercentage)
	reportWorker := worker.NewReportWorker(aggregationService, writer, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := amqpClient.ConsumeEvents(ctx, reportWorker.HandleEvent); err != nil {
			if err != context.Canceled {
				logger.Error("Event consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Promote overdue gigs once on startup, then on the sweep interval.
	if err := reportWorker.SweepStatuses(ctx); err != nil {
		logger.Error("Initial status sweep failed", "error", err)
	}

	ticker := time.NewTicker(cfg.StatusSweepInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reportWorker.SweepStatuses(ctx); err != nil {
					logger.Error("Status sweep failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
