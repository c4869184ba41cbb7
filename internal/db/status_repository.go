package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/athlogin/internal/config"
)

// StatusRepository обслуживает таблицу sstatus — по строке на подключённый
// char-server (слот, имя, число игроков).
type StatusRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewStatusRepository creates the sstatus repository.
func NewStatusRepository(pool *pgxpool.Pool, tables config.Tables) *StatusRepository {
	return &StatusRepository{
		pool:  pool,
		table: pgx.Identifier{tables.SStatus}.Sanitize(),
	}
}

// Insert adds a row for a freshly connected char-server slot.
func (r *StatusRepository) Insert(ctx context.Context, slot int, name string) error {
	q := fmt.Sprintf(
		`INSERT INTO %s ("index", name, "user") VALUES ($1, $2, 0)`, r.table)
	if _, err := r.pool.Exec(ctx, q, slot, name); err != nil {
		return fmt.Errorf("inserting sstatus row for slot %d: %w", slot, err)
	}
	return nil
}

// UpdateUsers rewrites the player count for a slot.
func (r *StatusRepository) UpdateUsers(ctx context.Context, slot int, users int) error {
	q := fmt.Sprintf(`UPDATE %s SET "user" = $2 WHERE "index" = $1`, r.table)
	if _, err := r.pool.Exec(ctx, q, slot, users); err != nil {
		return fmt.Errorf("updating sstatus users for slot %d: %w", slot, err)
	}
	return nil
}

// Delete removes the row for a slot.
func (r *StatusRepository) Delete(ctx context.Context, slot int) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE "index" = $1`, r.table)
	if _, err := r.pool.Exec(ctx, q, slot); err != nil {
		return fmt.Errorf("deleting sstatus row for slot %d: %w", slot, err)
	}
	return nil
}

// DeleteAll wipes the table; выполняется при старте и остановке сервера.
func (r *StatusRepository) DeleteAll(ctx context.Context) error {
	q := fmt.Sprintf(`DELETE FROM %s`, r.table)
	if _, err := r.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("wiping sstatus: %w", err)
	}
	return nil
}
