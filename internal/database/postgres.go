// Package database provides PostgreSQL connectivity and session persistence.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations
	DefaultPingTimeout = 5 * time.Second
)

// Config holds database configuration.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// NewPostgresConnection creates a new PostgreSQL database connection and
// ensures the session schema exists.
func NewPostgresConnection(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	if schemaErr := EnsureSchema(ctx, db); schemaErr != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", schemaErr)
	}

	return db, nil
}

// sessionSchema is the DDL for the crawl session table. Idempotent so it can
// run at every startup.
const sessionSchema = `
CREATE TABLE IF NOT EXISTS crawl_sessions (
	session_id       TEXT PRIMARY KEY,
	crawler_instance INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'running',
	start_time       TIMESTAMPTZ NOT NULL,
	end_time         TIMESTAMPTZ,
	configuration    JSONB NOT NULL DEFAULT '{}',
	progress         JSONB NOT NULL DEFAULT '{}',
	statistics       JSONB NOT NULL DEFAULT '{}',
	results          JSONB NOT NULL DEFAULT '[]',
	errors           JSONB NOT NULL DEFAULT '[]',
	notifications    JSONB NOT NULL DEFAULT '[]',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_crawl_sessions_status
	ON crawl_sessions (status);
CREATE INDEX IF NOT EXISTS idx_crawl_sessions_start_time
	ON crawl_sessions (start_time DESC);
`

// EnsureSchema creates the session tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, sessionSchema); err != nil {
		return fmt.Errorf("failed to create session schema: %w", err)
	}
	return nil
}
