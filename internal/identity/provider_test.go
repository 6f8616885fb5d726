package identity

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryProvider_CreateAndAuthenticate(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	u, err := p.CreateUser(ctx, "  Tech@Example.com ", "correct-horse", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "tech@example.com" || !u.EmailConfirmed || u.ID == "" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := p.CreateUser(ctx, "TECH@example.com", "another-pass", false); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := p.Authenticate(ctx, "tech@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, got.ID)
	}
	if _, err := p.Authenticate(ctx, "tech@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.Authenticate(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestMemoryProvider_SetPasswordAndDelete(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	u, err := p.CreateUser(ctx, "a@example.com", "first-pass", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := p.SetPassword(ctx, u.ID, "short"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if err := p.SetPassword(ctx, u.ID, "second-pass"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := p.Authenticate(ctx, "a@example.com", "first-pass"); err == nil {
		t.Fatalf("old password still accepted")
	}
	if _, err := p.Authenticate(ctx, "a@example.com", "second-pass"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	if err := p.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := p.DeleteUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.FindByEmail(ctx, "a@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	for _, email := range []string{"", "no-at", "@example.com", "a@", "a b@example.com"} {
		if _, err := p.CreateUser(ctx, email, "long-enough", true); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("CreateUser(%q): expected ErrInvalidEmail, got %v", email, err)
		}
	}
	long := make([]byte, MaxPasswordBytes+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := ValidatePassword(string(long)); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword for long password, got %v", err)
	}
}
