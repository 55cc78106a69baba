package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/amqp"
	"bilancio/internal/config"
	"bilancio/internal/feeds"
	"bilancio/internal/feeds/google"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
	"bilancio/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := applog.DefaultConfig()
	cfg.Component = applog.ComponentWorker
	logger := applog.New(cfg)
	applog.SetDefault(logger)

	logger.Info("Starting alerts worker")

	conf := config.Load()
	if err := conf.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if !conf.EventsEnabled() {
		logger.Error("Alerts worker requires an event stream; set AMQP_URL")
		os.Exit(1)
	}

	var (
		repo services.Repository
		sink feeds.TransactionSink
	)
	switch conf.Backend {
	case "sqlite":
		sqliteRepo, err := storage.NewSQLiteRepository(conf.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", conf.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteRepo.Close()
		repo, sink = sqliteRepo, sqliteRepo
	default:
		store := memory.New()
		repo, sink = store, store
	}

	amqpClient, err := amqp.NewClient(conf.AMQPURL, conf.AMQPExchange, conf.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := services.NewEngine(repo, services.WithCascadeHorizon(conf.CascadeHorizon))
	alertWorker := worker.NewAlertWorker(engine, conf.CascadeHorizon)

	go func() {
		err := amqpClient.ConsumeEvents(ctx, func(msg *amqp.EventMessage) error {
			return alertWorker.HandleEvent(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", "error", err)
		}
		cancel()
	}()

	// Optional Google Sheets transaction feed: import at startup, then on a
	// fixed interval.
	if conf.FeedEnabled() {
		feedClient, err := google.New(ctx, conf.GoogleSpreadsheetID, conf.GoogleTransactionSheet)
		if err != nil {
			logger.Error("Failed to initialize transaction feed", "error", err)
			os.Exit(1)
		}
		importer, err := feeds.NewImporter(feedClient, sink, conf.DefaultUserID)
		if err != nil {
			logger.Error("Failed to build feed importer", "error", err)
			os.Exit(1)
		}

		if _, err := importer.Run(ctx); err != nil {
			logger.Error("Startup feed import failed", "error", err)
		}

		go func() {
			ticker := time.NewTicker(conf.FeedSyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := importer.Run(ctx); err != nil {
						logger.Error("Periodic feed import failed", "error", err)
					}
				}
			}
		}()
		logger.Info("Transaction feed enabled",
			"spreadsheet_id", conf.GoogleSpreadsheetID,
			"sheet", conf.GoogleTransactionSheet,
			"interval", conf.FeedSyncInterval)
	} else {
		logger.Info("Transaction feed disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Worker stopped")
}
