package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	Backend      string // "memory" or "sqlite"
	SQLiteDBPath string

	// AMQP event stream (optional; empty URL disables it)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets transaction feed (optional)
	GoogleSpreadsheetID    string
	GoogleTransactionSheet string
	FeedSyncInterval       time.Duration

	// Engine tuning
	MatchWindowDays int
	MaxSuggestions  int
	CascadeHorizon  int

	// Projection cache
	CacheSize int
	CacheTTL  time.Duration

	// Fallback user for unauthenticated single-user deployments
	DefaultUserID string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		Backend:      getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bilancio.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bilancio"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "engine_events"),

		GoogleSpreadsheetID:    getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleTransactionSheet: getEnv("GOOGLE_TRANSACTION_SHEET", "Transactions"),
		FeedSyncInterval:       getEnvDuration("FEED_SYNC_INTERVAL", 15*time.Minute),

		MatchWindowDays: getEnvInt("MATCH_WINDOW_DAYS", 10),
		MaxSuggestions:  getEnvInt("MAX_SUGGESTIONS", 3),
		CascadeHorizon:  getEnvInt("CASCADE_HORIZON", 12),

		CacheSize: getEnvInt("PROJECTION_CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("PROJECTION_CACHE_TTL", 2*time.Minute),

		DefaultUserID: getEnv("DEFAULT_USER_ID", "local"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("invalid backend '%s': must be memory or sqlite", c.Backend))
	}

	if c.Backend == "sqlite" && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errs = append(errs, "sqlite backend requires SQLITE_DB_PATH")
	}
	if c.MatchWindowDays < 1 || c.MatchWindowDays > 31 {
		errs = append(errs, fmt.Sprintf("invalid match window %d: must be between 1 and 31 days", c.MatchWindowDays))
	}
	if c.MaxSuggestions < 1 || c.MaxSuggestions > 10 {
		errs = append(errs, fmt.Sprintf("invalid suggestion cap %d: must be between 1 and 10", c.MaxSuggestions))
	}
	if c.CascadeHorizon < 1 || c.CascadeHorizon > 120 {
		errs = append(errs, fmt.Sprintf("invalid cascade horizon %d: must be between 1 and 120 periods", c.CascadeHorizon))
	}
	if c.FeedEnabled() && c.FeedSyncInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid feed sync interval %s: must be at least 1m", c.FeedSyncInterval))
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %s", c.CacheTTL))
	}
	if strings.TrimSpace(c.DefaultUserID) == "" {
		errs = append(errs, "DEFAULT_USER_ID cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// EventsEnabled reports whether the AMQP event stream is configured.
func (c *Config) EventsEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// FeedEnabled reports whether the Google Sheets transaction feed is configured.
func (c *Config) FeedEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
