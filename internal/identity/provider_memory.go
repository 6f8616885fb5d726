package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryProvider is an in-memory Provider for tests and local runs.
type MemoryProvider struct {
	mu     sync.Mutex
	users  map[string]memoryUser // by id
	hasher hasher

	// CreateErr, when set, fails every CreateUser.
	CreateErr error
}

type memoryUser struct {
	User
	hash string
}

var _ Provider = (*MemoryProvider)(nil)

// NewMemoryProvider hashes with bcrypt.MinCost.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{users: make(map[string]memoryUser), hasher: newHasher(bcrypt.MinCost)}
}

func (p *MemoryProvider) CreateUser(ctx context.Context, email, password string, emailConfirmed bool) (User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	hash, err := p.hasher.hash(password)
	if err != nil {
		return User{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CreateErr != nil {
		return User{}, p.CreateErr
	}
	for _, u := range p.users {
		if u.Email == email {
			return User{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
	}
	u := User{ID: uuid.NewString(), Email: email, EmailConfirmed: emailConfirmed, CreatedAt: time.Now().UTC()}
	p.users[u.ID] = memoryUser{User: u, hash: hash}
	return u, nil
}

func (p *MemoryProvider) DeleteUser(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[id]; !ok {
		return ErrNotFound
	}
	delete(p.users, id)
	return nil
}

func (p *MemoryProvider) FindByEmail(ctx context.Context, email string) (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byEmail(NormalizeEmail(email))
	if !ok {
		return User{}, ErrNotFound
	}
	return u.User, nil
}

func (p *MemoryProvider) Authenticate(ctx context.Context, email, password string) (User, error) {
	p.mu.Lock()
	u, ok := p.byEmail(NormalizeEmail(email))
	p.mu.Unlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := p.hasher.check(u.hash, password); err != nil {
		return User{}, err
	}
	return u.User, nil
}

func (p *MemoryProvider) SetPassword(ctx context.Context, id, password string) error {
	hash, err := p.hasher.hash(password)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[id]
	if !ok {
		return ErrNotFound
	}
	u.hash = hash
	p.users[id] = u
	return nil
}

// Len returns the number of stored identities.
func (p *MemoryProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

func (p *MemoryProvider) byEmail(email string) (memoryUser, bool) {
	for _, u := range p.users {
		if u.Email == email {
			return u, true
		}
	}
	return memoryUser{}, false
}
