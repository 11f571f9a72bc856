package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"keuangan/internal/log"

	_ "modernc.org/sqlite"
)

// timestampLayout keeps created_at fixed-width so text order is time order.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// Config describes the shared connection pool.
type Config struct {
	Path        string
	MaxConns    int
	BusyTimeout time.Duration
}

// Querier is satisfied by *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the process-wide connection pool. Open it once at startup, pass it
// to the repositories and Close it on shutdown.
type DB struct {
	db     *sql.DB
	logger *log.Logger
}

// Open creates the pool, verifies connectivity and applies migrations.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*DB, error) {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := buildDSN(cfg)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.InfoContext(ctx, "SQLite pool ready", "path", cfg.Path, "max_conns", cfg.MaxConns)

	return &DB{db: sqlDB, logger: logger}, nil
}

func buildDSN(cfg Config) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// WithConn runs fn on one pooled connection and always releases it.
// It blocks while the pool is exhausted, until ctx is done.
func (d *DB) WithConn(ctx context.Context, fn func(q Querier) error) error {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// Ping checks that the database answers a trivial query.
func (d *DB) Ping(ctx context.Context) error {
	return d.WithConn(ctx, func(q Querier) error {
		var result int
		if err := q.QueryRowContext(ctx, "SELECT 1 + 1").Scan(&result); err != nil {
			return fmt.Errorf("ping query: %w", err)
		}
		return nil
	})
}

// Stats exposes pool statistics.
func (d *DB) Stats() sql.DBStats {
	return d.db.Stats()
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
