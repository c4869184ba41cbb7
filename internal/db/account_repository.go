package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/model"
)

// AccountRepository реализует операции над таблицей login.
// Имя таблицы конфигурируемо, поэтому запросы собираются через
// pgx.Identifier.Sanitize.
type AccountRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewAccountRepository creates the login-table repository.
func NewAccountRepository(pool *pgxpool.Pool, tables config.Tables) *AccountRepository {
	return &AccountRepository{
		pool:  pool,
		table: pgx.Identifier{tables.Login}.Sanitize(),
	}
}

// useridPredicate returns the WHERE clause for the userid column honoring the
// case-sensitivity policy (a query-time predicate, not a storage property).
func useridPredicate(caseSensitive bool) string {
	if caseSensitive {
		return `userid = $1`
	}
	return `LOWER(userid) = LOWER($1)`
}

// Lookup returns the account for the given user name, or nil if absent.
func (r *AccountRepository) Lookup(ctx context.Context, userid string, caseSensitive bool) (*model.Account, error) {
	q := fmt.Sprintf(
		`SELECT account_id, userid, user_pass, level, lastlogin, logincount,
		        sex, connect_until, last_ip, ban_until, state, email
		 FROM %s WHERE %s`, r.table, useridPredicate(caseSensitive))

	var (
		acc       model.Account
		lastLogin *time.Time
		sex       string
	)
	err := r.pool.QueryRow(ctx, q, userid).Scan(
		&acc.ID, &acc.UserID, &acc.Password, &acc.Level, &lastLogin, &acc.LoginCount,
		&sex, &acc.ConnectUntil, &acc.LastIP, &acc.BanUntil, &acc.State, &acc.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", userid, err)
	}
	if lastLogin != nil {
		acc.LastLogin = *lastLogin
	}
	acc.Sex = model.ParseSex(sex)
	if acc.Level > 99 {
		acc.Level = 99
	}
	return &acc, nil
}

// Exists reports whether an account with the exact user name exists.
func (r *AccountRepository) Exists(ctx context.Context, userid string) (bool, error) {
	var n int
	q := fmt.Sprintf(`SELECT count(*) FROM %s WHERE userid = $1`, r.table)
	if err := r.pool.QueryRow(ctx, q, userid).Scan(&n); err != nil {
		return false, fmt.Errorf("checking account %q: %w", userid, err)
	}
	return n > 0, nil
}

// Create inserts a new account with the placeholder e-mail and returns the
// assigned id. Ids below the floor are self-correcting: the row is rewritten
// to the floor, and deleted when the rewrite fails.
func (r *AccountRepository) Create(ctx context.Context, userid, password string, sex model.Sex) (int64, error) {
	q := fmt.Sprintf(
		`INSERT INTO %s (userid, user_pass, sex, email)
		 VALUES ($1, $2, $3, $4) RETURNING account_id`, r.table)

	var id int64
	if err := r.pool.QueryRow(ctx, q, userid, password, sex.Column(), model.DefaultEmail).Scan(&id); err != nil {
		return 0, fmt.Errorf("creating account %q: %w", userid, err)
	}

	if id < constants.StartAccountNum {
		upd := fmt.Sprintf(`UPDATE %s SET account_id = $1 WHERE account_id = $2`, r.table)
		if _, err := r.pool.Exec(ctx, upd, int64(constants.StartAccountNum), id); err != nil {
			del := fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1`, r.table)
			if _, derr := r.pool.Exec(ctx, del, id); derr != nil {
				return 0, fmt.Errorf("deleting misnumbered account %d: %w", id, derr)
			}
			return 0, fmt.Errorf("renumbering account %d to floor: %w", id, err)
		}
		id = constants.StartAccountNum
	}
	return id, nil
}

// UpdateLoginStats bumps lastlogin/logincount/last_ip on a granted login.
func (r *AccountRepository) UpdateLoginStats(ctx context.Context, userid string, caseSensitive bool, ip string) error {
	q := fmt.Sprintf(
		`UPDATE %s SET lastlogin = now(), logincount = logincount + 1, last_ip = $2
		 WHERE %s`, r.table, useridPredicate(caseSensitive))
	if _, err := r.pool.Exec(ctx, q, userid, ip); err != nil {
		return fmt.Errorf("updating login stats for %q: %w", userid, err)
	}
	return nil
}

// ClearBanByUser resets an elapsed ban_until.
func (r *AccountRepository) ClearBanByUser(ctx context.Context, userid string, caseSensitive bool) error {
	q := fmt.Sprintf(`UPDATE %s SET ban_until = 0 WHERE %s`, r.table, useridPredicate(caseSensitive))
	if _, err := r.pool.Exec(ctx, q, userid); err != nil {
		return fmt.Errorf("clearing ban for %q: %w", userid, err)
	}
	return nil
}

// BanUntil returns the ban expiry for an account id (0 = not banned).
func (r *AccountRepository) BanUntil(ctx context.Context, accountID int64) (int64, error) {
	var until int64
	q := fmt.Sprintf(`SELECT ban_until FROM %s WHERE account_id = $1`, r.table)
	err := r.pool.QueryRow(ctx, q, accountID).Scan(&until)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying ban_until for %d: %w", accountID, err)
	}
	return until, nil
}

// SetBanUntil rewrites the ban expiry.
func (r *AccountRepository) SetBanUntil(ctx context.Context, accountID int64, until int64) error {
	q := fmt.Sprintf(`UPDATE %s SET ban_until = $2 WHERE account_id = $1`, r.table)
	if _, err := r.pool.Exec(ctx, q, accountID, until); err != nil {
		return fmt.Errorf("setting ban_until for %d: %w", accountID, err)
	}
	return nil
}

// State returns the state code for an account id.
func (r *AccountRepository) State(ctx context.Context, accountID int64) (int32, error) {
	var state int32
	q := fmt.Sprintf(`SELECT state FROM %s WHERE account_id = $1`, r.table)
	err := r.pool.QueryRow(ctx, q, accountID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying state for %d: %w", accountID, err)
	}
	return state, nil
}

// SetState rewrites the state code.
func (r *AccountRepository) SetState(ctx context.Context, accountID int64, state int32) error {
	q := fmt.Sprintf(`UPDATE %s SET state = $2 WHERE account_id = $1`, r.table)
	if _, err := r.pool.Exec(ctx, q, accountID, state); err != nil {
		return fmt.Errorf("setting state for %d: %w", accountID, err)
	}
	return nil
}

// Sex returns the stored sex for an account id; ok=false when absent.
func (r *AccountRepository) Sex(ctx context.Context, accountID int64) (model.Sex, bool, error) {
	var s string
	q := fmt.Sprintf(`SELECT sex FROM %s WHERE account_id = $1`, r.table)
	err := r.pool.QueryRow(ctx, q, accountID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying sex for %d: %w", accountID, err)
	}
	return model.ParseSex(s), true, nil
}

// SetSex rewrites the stored sex.
func (r *AccountRepository) SetSex(ctx context.Context, accountID int64, sex model.Sex) error {
	q := fmt.Sprintf(`UPDATE %s SET sex = $2 WHERE account_id = $1`, r.table)
	if _, err := r.pool.Exec(ctx, q, accountID, sex.Column()); err != nil {
		return fmt.Errorf("setting sex for %d: %w", accountID, err)
	}
	return nil
}

// EmailInfo returns e-mail and connect_until for an account id.
func (r *AccountRepository) EmailInfo(ctx context.Context, accountID int64) (string, int64, error) {
	var (
		email string
		until int64
	)
	q := fmt.Sprintf(`SELECT email, connect_until FROM %s WHERE account_id = $1`, r.table)
	err := r.pool.QueryRow(ctx, q, accountID).Scan(&email, &until)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("querying email for %d: %w", accountID, err)
	}
	return email, until, nil
}

// ChangeEmail rewrites the e-mail iff the claimed current one matches
// (case-insensitive). Returns false without touching the row otherwise.
func (r *AccountRepository) ChangeEmail(ctx context.Context, accountID int64, current, next string) (bool, error) {
	q := fmt.Sprintf(
		`UPDATE %s SET email = $2 WHERE account_id = $1 AND LOWER(email) = LOWER($3)`,
		r.table)
	tag, err := r.pool.Exec(ctx, q, accountID, next, current)
	if err != nil {
		return false, fmt.Errorf("changing email for %d: %w", accountID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// LoadGMList returns every account with a positive GM level.
func (r *AccountRepository) LoadGMList(ctx context.Context) ([]model.GMAccount, error) {
	q := fmt.Sprintf(`SELECT account_id, level FROM %s WHERE level > 0 ORDER BY account_id`, r.table)
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying gm list: %w", err)
	}
	defer rows.Close()

	var gms []model.GMAccount
	for rows.Next() {
		var gm model.GMAccount
		if err := rows.Scan(&gm.AccountID, &gm.Level); err != nil {
			return nil, fmt.Errorf("scanning gm row: %w", err)
		}
		gms = append(gms, gm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading gm list: %w", err)
	}
	return gms, nil
}
