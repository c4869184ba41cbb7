package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/athlogin/internal/config"
)

// AuditRepository пишет журнал попыток входа (loginlog).
// IP хранится числом в host-order, как его отдаёт клиентский сокет.
type AuditRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewAuditRepository creates the loginlog repository.
func NewAuditRepository(pool *pgxpool.Pool, tables config.Tables) *AuditRepository {
	return &AuditRepository{
		pool:  pool,
		table: pgx.Identifier{tables.LoginLog}.Sanitize(),
	}
}

// Append records one audit row. Errors are returned but callers normally
// just log them: аудит не должен ронять обработку пакета.
func (r *AuditRepository) Append(ctx context.Context, ip uint32, user string, rcode int, msg string) error {
	q := fmt.Sprintf(
		`INSERT INTO %s (time, ip, "user", rcode, log) VALUES (now(), $1, $2, $3, $4)`,
		r.table)
	if _, err := r.pool.Exec(ctx, q, int64(ip), user, rcode, msg); err != nil {
		return fmt.Errorf("appending audit row for %q: %w", user, err)
	}
	return nil
}

// CountPasswordFailures returns the number of password-failure rows (rcode 1)
// from the given IP within the trailing window.
func (r *AuditRepository) CountPasswordFailures(ctx context.Context, ip uint32, window time.Duration) (int, error) {
	q := fmt.Sprintf(
		`SELECT count(*) FROM %s WHERE ip = $1 AND rcode = 1 AND time > now() - $2::interval`,
		r.table)
	var n int
	if err := r.pool.QueryRow(ctx, q, int64(ip), window.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting password failures for ip %d: %w", ip, err)
	}
	return n, nil
}
