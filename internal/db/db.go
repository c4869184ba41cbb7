package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// Ping keeps the server side of the connection alive; используется
// периодическим таймером login_sql_ping.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// defaultIdleTimeout stands in when the server does not enforce one
// (исторический дефолт wait_timeout = 8 часов).
const defaultIdleTimeout = 8 * time.Hour

// KeepaliveInterval asks the server for its idle-session timeout and returns
// the ping period: max(30s, timeout − 30s).
func (d *DB) KeepaliveInterval(ctx context.Context) time.Duration {
	timeout := defaultIdleTimeout

	var setting string
	err := d.pool.QueryRow(ctx,
		`SELECT setting FROM pg_settings WHERE name = 'idle_session_timeout'`,
	).Scan(&setting)
	if err == nil && setting != "" && setting != "0" {
		var ms int64
		if _, err := fmt.Sscan(setting, &ms); err == nil && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}

	interval := timeout - 30*time.Second
	if interval < 30*time.Second {
		interval = 30 * time.Second
	}
	return interval
}
