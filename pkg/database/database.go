package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Client holds the database handle
type Client struct {
	SQL    *sql.DB
	Driver string
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum amount of time a connection may be reused
	ConnMaxIdleTime time.Duration // Maximum amount of time a connection may be idle
}

// SSLConfig holds SSL/TLS configuration for PostgreSQL connections
type SSLConfig struct {
	Mode         string // disable, require, verify-ca, verify-full
	CertPath     string // Path to client certificate
	KeyPath      string // Path to client key
	RootCertPath string // Path to root CA certificate
}

// DefaultPoolConfig returns sensible defaults for connection pooling
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// BuildConnectionString builds a PostgreSQL connection string with SSL parameters
func BuildConnectionString(baseURL string, sslCfg *SSLConfig) (string, error) {
	if sslCfg == nil {
		return baseURL, nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}

	query := parsedURL.Query()

	// SSL mode overrides any sslmode already in the URL
	if sslCfg.Mode != "" {
		query.Set("sslmode", sslCfg.Mode)
	}
	if sslCfg.CertPath != "" {
		query.Set("sslcert", sslCfg.CertPath)
	}
	if sslCfg.KeyPath != "" {
		query.Set("sslkey", sslCfg.KeyPath)
	}
	if sslCfg.RootCertPath != "" {
		query.Set("sslrootcert", sslCfg.RootCertPath)
	}

	parsedURL.RawQuery = query.Encode()
	return parsedURL.String(), nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS templates (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		content    TEXT NOT NULL,
		type       TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT '',
		file_url   TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS funnels (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS funnel_steps (
		funnel_id         TEXT NOT NULL REFERENCES funnels(id) ON DELETE CASCADE,
		id                TEXT NOT NULL,
		position          INTEGER NOT NULL,
		name              TEXT NOT NULL DEFAULT '',
		template_id       TEXT NOT NULL,
		delay_minutes     INTEGER NOT NULL DEFAULT 0,
		trigger_condition TEXT NOT NULL,
		custom_condition  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (funnel_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_funnel_steps_position ON funnel_steps (funnel_id, position)`,
}

// NewClient opens a connection with the given driver ("postgres" or
// "sqlite3"), configures the pool, verifies the connection and applies the
// schema. sslCfg only applies to postgres and may be nil.
func NewClient(driver, databaseURL string, poolCfg PoolConfig, sslCfg *SSLConfig) (*Client, error) {
	connStr := databaseURL
	if driver == "postgres" {
		var err error
		connStr, err = BuildConnectionString(databaseURL, sslCfg)
		if err != nil {
			return nil, fmt.Errorf("failed building connection string: %w", err)
		}
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to %s: %w", driver, err)
	}

	if driver == "sqlite3" {
		// in-memory databases exist per connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(poolCfg.MaxOpenConns)
		db.SetMaxIdleConns(poolCfg.MaxIdleConns)
		db.SetConnMaxLifetime(poolCfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(poolCfg.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed connecting to %s: %w", driver, err)
	}

	c := &Client{SQL: db, Driver: driver}
	if err := c.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Migrate creates missing tables and indexes.
func (c *Client) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed creating schema resources: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.SQL.Close()
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.SQL.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (c *Client) Stats() sql.DBStats {
	return c.SQL.Stats()
}
