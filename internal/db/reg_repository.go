package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/model"
)

// account-scoped variable type in global_reg_value
const regTypeAccount = 1

// RegRepository хранит account-scoped переменные (global_reg_value, type=1).
type RegRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewRegRepository creates the global_reg_value repository.
func NewRegRepository(pool *pgxpool.Pool, tables config.Tables) *RegRepository {
	return &RegRepository{
		pool:  pool,
		table: pgx.Identifier{tables.Reg}.Sanitize(),
	}
}

// Replace atomically rewrites the account's variable set: delete all, insert
// the new rows in one transaction.
func (r *RegRepository) Replace(ctx context.Context, accountID int64, vars []model.Variable) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting reg transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	del := fmt.Sprintf(`DELETE FROM %s WHERE type = $1 AND account_id = $2`, r.table)
	if _, err := tx.Exec(ctx, del, regTypeAccount, accountID); err != nil {
		return fmt.Errorf("deleting reg rows for %d: %w", accountID, err)
	}

	ins := fmt.Sprintf(
		`INSERT INTO %s (type, account_id, str, value) VALUES ($1, $2, $3, $4)`, r.table)
	for _, v := range vars {
		if v.Name == "" {
			continue
		}
		if _, err := tx.Exec(ctx, ins, regTypeAccount, accountID, v.Name, v.Value); err != nil {
			return fmt.Errorf("inserting reg row %q for %d: %w", v.Name, accountID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing reg rows for %d: %w", accountID, err)
	}
	return nil
}

// Read returns the account's variables in stable order.
func (r *RegRepository) Read(ctx context.Context, accountID int64) ([]model.Variable, error) {
	q := fmt.Sprintf(
		`SELECT str, value FROM %s WHERE type = $1 AND account_id = $2 ORDER BY str`,
		r.table)
	rows, err := r.pool.Query(ctx, q, regTypeAccount, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying reg rows for %d: %w", accountID, err)
	}
	defer rows.Close()

	var vars []model.Variable
	for rows.Next() {
		var v model.Variable
		if err := rows.Scan(&v.Name, &v.Value); err != nil {
			return nil, fmt.Errorf("scanning reg row: %w", err)
		}
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading reg rows for %d: %w", accountID, err)
	}
	return vars, nil
}
