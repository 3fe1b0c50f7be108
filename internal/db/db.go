package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tyljohnny/davsync/internal/utils"
)

const defaultPragma = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;
PRAGMA foreign_keys=ON;
PRAGMA temp_store=MEMORY;
PRAGMA cache_size=8000;
PRAGMA mmap_size=268435456;
`

const inMemoryDSN = ":memory:"

type config struct {
	path            string
	pragmas         string
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

func defaultConfig() *config {
	return &config{
		path:         inMemoryDSN,
		pragmas:      defaultPragma,
		maxIdleConns: 2,
	}
}

// SqliteOption configures a NewSqliteDb call.
type SqliteOption func(*config)

// WithPath points the connection at a file instead of an in-memory database.
func WithPath(path string) SqliteOption {
	return func(c *config) { c.path = path }
}

// WithPragmas overrides the default pragma block entirely.
func WithPragmas(pragmas string) SqliteOption {
	return func(c *config) { c.pragmas = pragmas }
}

func WithMaxOpenConns(n int) SqliteOption {
	return func(c *config) { c.maxOpenConns = n }
}

func WithMaxIdleConns(n int) SqliteOption {
	return func(c *config) { c.maxIdleConns = n }
}

func WithConnMaxLifetime(d time.Duration) SqliteOption {
	return func(c *config) { c.connMaxLifetime = d }
}

func buildDSN(cfg *config) (string, error) {
	if cfg.path == inMemoryDSN {
		return inMemoryDSN, nil
	}
	if err := utils.EnsureParent(cfg.path); err != nil {
		return "", fmt.Errorf("ensure parent directory: %w", err)
	}
	return fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", cfg.path), nil
}

// NewSqliteDb opens a sqlx.DB against the configured path (or an in-memory
// database by default), applying pragmas and pool limits.
func NewSqliteDb(opts ...SqliteOption) (*sqlx.DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("db", "driver", driverName, "path", cfg.path)
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.maxOpenConns)
	}
	if cfg.maxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.maxIdleConns)
	}
	if cfg.connMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.connMaxLifetime)
	}

	if _, err := db.Exec(cfg.pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	return db, nil
}
