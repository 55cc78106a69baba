package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/amqp"
	"bilancio/internal/cache"
	"bilancio/internal/config"
	"bilancio/internal/core"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
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

	var (
		repo    services.Repository
		catalog apphttp.CatalogStore
	)
	switch cfg.Backend {
	case "sqlite":
		sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
		catalog = sqliteRepo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store := memory.New()
		repo = store
		catalog = store
		logger.Info("Initialized memory backend")
	}

	opts := []services.Option{
		services.WithMatcherConfig(services.MatcherConfig{
			WindowDays:     cfg.MatchWindowDays,
			MaxSuggestions: cfg.MaxSuggestions,
		}),
		services.WithCascadeHorizon(cfg.CascadeHorizon),
	}

	if cfg.EventsEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient))
		logger.Info("Event stream enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	engine := services.NewEngine(repo, opts...)
	cached := services.NewCachedEngine(engine,
		cache.NewLRU[core.ProjectionResult](cfg.CacheSize, cfg.CacheTTL))

	srv := apphttp.NewServer(":"+cfg.Port, cached, catalog, cfg.DefaultUserID)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

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

	logger.Info("Starting bilancio server", "port", cfg.Port, "backend", cfg.Backend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
