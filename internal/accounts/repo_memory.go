package accounts

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	accounts map[string]Account
	now      func() time.Time

	// UpsertErr, when set, fails every Upsert.
	UpsertErr error
}

var _ Repository = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{accounts: make(map[string]Account), now: time.Now}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, a Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpsertErr != nil {
		return Account{}, r.UpsertErr
	}
	now := r.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	for id, existing := range r.accounts {
		if existing.Email == a.Email {
			a.CreatedAt = existing.CreatedAt
			delete(r.accounts, id)
			break
		}
	}
	r.accounts[a.ID] = a
	return a, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(*Account) error) (Account, Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before, ok := r.accounts[id]
	if !ok {
		return Account{}, Account{}, ErrNotFound
	}
	after := before
	if err := fn(&after); err != nil {
		return Account{}, Account{}, err
	}
	after.ID, after.Email, after.CreatedAt = before.ID, before.Email, before.CreatedAt
	after.UpdatedAt = r.now().UTC()
	r.accounts[id] = after
	return before, after, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}
