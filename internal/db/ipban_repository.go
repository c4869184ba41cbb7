package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/athlogin/internal/config"
)

// IPBanRepository работает с таблицей ipbanlist. Записи хранятся в виде
// шаблонов "a.*.*.*" / "a.b.*.*" / "a.b.c.*" / "a.b.c.d".
type IPBanRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewIPBanRepository creates the ipbanlist repository.
func NewIPBanRepository(pool *pgxpool.Pool, tables config.Tables) *IPBanRepository {
	return &IPBanRepository{
		pool:  pool,
		table: pgx.Identifier{tables.IPBan}.Sanitize(),
	}
}

// Patterns returns the four ban patterns matching a dotted-quad address,
// from the widest (/8) to the exact one.
func Patterns(a, b, c, d byte) [4]string {
	return [4]string{
		fmt.Sprintf("%d.*.*.*", a),
		fmt.Sprintf("%d.%d.*.*", a, b),
		fmt.Sprintf("%d.%d.%d.*", a, b, c),
		fmt.Sprintf("%d.%d.%d.%d", a, b, c, d),
	}
}

// IsBanned reports whether any active ban row matches the address.
func (r *IPBanRepository) IsBanned(ctx context.Context, a, b, c, d byte) (bool, error) {
	p := Patterns(a, b, c, d)
	q := fmt.Sprintf(
		`SELECT count(*) FROM %s
		 WHERE rtime > now() AND list IN ($1, $2, $3, $4)`, r.table)
	var n int
	if err := r.pool.QueryRow(ctx, q, p[0], p[1], p[2], p[3]).Scan(&n); err != nil {
		return false, fmt.Errorf("checking ip ban: %w", err)
	}
	return n > 0, nil
}

// Add inserts a ban row for the given pattern lasting the given duration.
func (r *IPBanRepository) Add(ctx context.Context, pattern string, d time.Duration, reason string) error {
	q := fmt.Sprintf(
		`INSERT INTO %s (list, btime, rtime, reason)
		 VALUES ($1, now(), now() + $2::interval, $3)`, r.table)
	if _, err := r.pool.Exec(ctx, q, pattern, d.String(), reason); err != nil {
		return fmt.Errorf("adding ip ban %q: %w", pattern, err)
	}
	return nil
}

// FlushExpired deletes every ban row whose release time has passed.
func (r *IPBanRepository) FlushExpired(ctx context.Context) (int64, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE rtime <= now()`, r.table)
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("flushing expired ip bans: %w", err)
	}
	return tag.RowsAffected(), nil
}
