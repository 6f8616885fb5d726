package accounts

import "context"

// Repository persists accounts.
type Repository interface {
	Get(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	// List returns accounts ordered by email.
	List(ctx context.Context) ([]Account, error)
	// Upsert inserts a or replaces the row with the same email, including its id.
	Upsert(ctx context.Context, a Account) (Account, error)
	// Update applies fn to the current row atomically and returns both versions.
	Update(ctx context.Context, id string, fn func(*Account) error) (before, after Account, err error)
	Delete(ctx context.Context, id string) error
}
