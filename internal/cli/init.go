// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/keuangan and cmd/keuangan-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"keuangan/internal/amqp"
	"keuangan/internal/config"
	"keuangan/internal/log"
	"keuangan/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level and sets
// it as the default logger.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and checks it with validate.
// Exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitStorage opens the shared SQLite pool and applies migrations.
// Exits the process on failure.
func InitStorage(ctx context.Context, logger *log.Logger, cfg *config.Config) *storage.DB {
	db, err := storage.Open(ctx, storage.Config{
		Path:        cfg.SQLiteDBPath,
		MaxConns:    cfg.DBMaxConns,
		BusyTimeout: cfg.DBBusyTimeout,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite storage", log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return db
}

// InitAMQP connects to the broker when an URL is configured. It returns
// nil when events are disabled.
func InitAMQP(ctx context.Context, logger *log.Logger, cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Warn("AMQP_URL not set, change events disabled")
		return nil, nil
	}
	return amqp.Dial(ctx, amqp.Config{
		URL:            cfg.AMQPURL,
		Exchange:       cfg.AMQPExchange,
		Queue:          cfg.AMQPQueue,
		ConnectTimeout: cfg.AMQPConnectTimeout,
	}, logger)
}

// InitSentry enables exception reporting when a DSN is configured. The
// returned func flushes buffered events and is safe to call either way.
func InitSentry(logger *log.Logger, cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
		logger.Error("Sentry init error", log.FieldError, err.Error())
		return func() {}
	}
	logger.Info("Sentry error reporting enabled")
	return func() { sentry.Flush(2 * time.Second) }
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
