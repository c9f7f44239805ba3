package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gigledger/internal/amqp"
	"gigledger/internal/cache"
	"gigledger/internal/config"
	"gigledger/internal/core"
	apphttp "gigledger/internal/http"
	applog "gigledger/internal/log"
	"gigledger/internal/services"
	"gigledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

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

	// Result caches: aggregates and gig-list pages, swept together.
	aggCache := cache.NewLRUCache[core.PeriodAggregate](cfg.CacheMaxEntries, cfg.CacheTTL)
	listCache := cache.NewLRUCache[services.GigListPage](cfg.CacheMaxEntries, cfg.CacheTTL)

	cacheManager := cache.NewManager()
	cacheManager.Register(aggCache)
	cacheManager.Register(listCache)
	cacheManager.StartCleanup(cfg.CacheCleanupInterval)
	defer cacheManager.Stop()

	// AMQP is optional: without it the ledger works, report exports just go
	// stale until the next manual sync.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			events = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - report exports will not sync")
	}

	invalidator := cache.MultiInvalidator{aggCache, listCache}
	gigService := services.NewGigService(repo, repo, events, invalidator, listCache)
	paymentService := services.NewPaymentService(repo, repo, events, invalidator)
	aggregationService := services.NewAggregationService(repo, repo, repo, aggCache,
		cfg.MileageRate, cfg.DefaultTaxPercentage)

	srv := apphttp.NewServer(":"+cfg.Port, gigService, paymentService, aggregationService, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting gigledger server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
