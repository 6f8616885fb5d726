package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deployment-tracker/pkg/utils"

	"github.com/google/uuid"
)

// PostgresProvider stores bcrypt hashes in the identities table.
type PostgresProvider struct {
	db     *sql.DB
	hasher hasher
	now    func() time.Time
}

var _ Provider = (*PostgresProvider)(nil)

// NewPostgresProvider uses bcrypt.DefaultCost when cost is 0.
func NewPostgresProvider(db *sql.DB, cost int) *PostgresProvider {
	return &PostgresProvider{db: db, hasher: newHasher(cost), now: time.Now}
}

func (p *PostgresProvider) CreateUser(ctx context.Context, email, password string, emailConfirmed bool) (User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	hash, err := p.hasher.hash(password)
	if err != nil {
		return User{}, err
	}

	const q = `
INSERT INTO identities (id, email, password_hash, email_confirmed, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	u := User{
		ID:             uuid.NewString(),
		Email:          email,
		EmailConfirmed: emailConfirmed,
		CreatedAt:      p.now().UTC(),
	}
	if _, err := p.db.ExecContext(ctx, q, u.ID, u.Email, hash, u.EmailConfirmed, u.CreatedAt); err != nil {
		if utils.IsUniqueViolation(err) {
			return User{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		return User{}, err
	}
	return u, nil
}

func (p *PostgresProvider) DeleteUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
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

func (p *PostgresProvider) FindByEmail(ctx context.Context, email string) (User, error) {
	u, _, err := p.lookup(ctx, NormalizeEmail(email))
	return u, err
}

func (p *PostgresProvider) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, hash, err := p.lookup(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := p.hasher.check(hash, password); err != nil {
		return User{}, err
	}
	return u, nil
}

func (p *PostgresProvider) SetPassword(ctx context.Context, id, password string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	hash, err := p.hasher.hash(password)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE identities SET password_hash = $2 WHERE id = $1`, id, hash)
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

func (p *PostgresProvider) lookup(ctx context.Context, email string) (User, string, error) {
	const q = `
SELECT id, email, password_hash, email_confirmed, created_at
FROM identities
WHERE email = $1
`
	var (
		u    User
		hash string
	)
	if err := p.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Email, &hash, &u.EmailConfirmed, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, "", ErrNotFound
		}
		return User{}, "", err
	}
	return u, hash, nil
}
