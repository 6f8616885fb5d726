package accounts

import (
	"context"
	"database/sql"
	"errors"

	"deployment-tracker/pkg/utils"

	"github.com/google/uuid"
)

// NOTE: This repository assumes the user_accounts table from internal/migrations.

type PostgresRepo struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepo)(nil)

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const accountColumns = `id, email, name, role, needs_password_reset, created_at, updated_at`

func (r *PostgresRepo) Get(ctx context.Context, id string) (Account, error) {
	if !validID(id) {
		return Account{}, ErrNotFound
	}
	return r.one(ctx, r.db, `SELECT `+accountColumns+` FROM user_accounts WHERE id = $1`, id)
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	return r.one(ctx, r.db, `SELECT `+accountColumns+` FROM user_accounts WHERE email = $1`, email)
}

func (r *PostgresRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM user_accounts ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Upsert(ctx context.Context, a Account) (Account, error) {
	const q = `
INSERT INTO user_accounts (id, email, name, role, needs_password_reset, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (email) DO UPDATE SET
	id = EXCLUDED.id,
	name = EXCLUDED.name,
	role = EXCLUDED.role,
	needs_password_reset = EXCLUDED.needs_password_reset,
	updated_at = now()
RETURNING ` + accountColumns
	return r.one(ctx, r.db, q, a.ID, a.Email, a.Name, a.Role, a.NeedsPasswordReset)
}

// Update locks the row for the duration of fn.
func (r *PostgresRepo) Update(ctx context.Context, id string, fn func(*Account) error) (before, after Account, err error) {
	if !validID(id) {
		return Account{}, Account{}, ErrNotFound
	}
	err = utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		cur, err := r.one(ctx, tx, `SELECT `+accountColumns+` FROM user_accounts WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		next := cur
		if err := fn(&next); err != nil {
			return err
		}

		const q = `
UPDATE user_accounts
SET name = $2, role = $3, needs_password_reset = $4, updated_at = now()
WHERE id = $1
RETURNING ` + accountColumns
		updated, err := r.one(ctx, tx, q, id, next.Name, next.Role, next.NeedsPasswordReset)
		if err != nil {
			return err
		}
		before, after = cur, updated
		return nil
	})
	if err != nil {
		return Account{}, Account{}, err
	}
	return before, after, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepo) one(ctx context.Context, q queryer, query string, args ...any) (Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.NeedsPasswordReset, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// validID filters ids the uuid column would reject with a cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
