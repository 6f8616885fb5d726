package accounts

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"deployment-tracker/internal/audit"
	"deployment-tracker/internal/identity"
	"deployment-tracker/internal/rbac"
)

var (
	ErrNotFound         = errors.New("accounts: account not found")
	ErrInvalidArgument  = errors.New("accounts: invalid argument")
	ErrIdentityProvider = errors.New("accounts: identity provider failure")
)

// SystemActor performs bootstrap actions.
var SystemActor = audit.Actor{UserID: "system"}

// Service administers user accounts. Every mutation is recorded in the audit
// log; only the create path treats an audit failure as non-fatal.
type Service struct {
	repo  Repository
	idp   identity.Provider
	audit *audit.Service
	log   *slog.Logger

	tempPassword func() (string, error)
}

func NewService(repo Repository, idp identity.Provider, auditSvc *audit.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:         repo,
		idp:          idp,
		audit:        auditSvc,
		log:          log,
		tempPassword: temporaryPassword,
	}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	if id == "" {
		return Account{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create registers credentials and the profile, then records a create entry.
func (s *Service) Create(ctx context.Context, actor audit.Actor, in CreateInput) (Account, error) {
	in.Email = identity.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" {
		return Account{}, fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}
	if !rbac.IsValidRole(in.Role) {
		return Account{}, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, in.Role)
	}

	u, err := s.idp.CreateUser(ctx, in.Email, in.Password, true)
	if err != nil {
		return Account{}, identityErr(err)
	}

	acct, err := s.repo.Upsert(ctx, Account{ID: u.ID, Email: u.Email, Name: in.Name, Role: in.Role})
	if err != nil {
		if derr := s.idp.DeleteUser(ctx, u.ID); derr != nil {
			s.log.Error("orphaned identity after failed account insert", "user_id", u.ID, "err", derr)
		}
		return Account{}, fmt.Errorf("accounts: save account: %w", err)
	}

	if _, err := s.audit.LogCreate(ctx, actor, acct.ID, acct.Email, acct.Snapshot()); err != nil {
		s.log.Error("audit create failed", "target_user_id", acct.ID, "err", err)
	}
	return acct, nil
}

// Update changes name and/or role. Actors cannot change their own role.
func (s *Service) Update(ctx context.Context, actor audit.Actor, id string, in UpdateInput) (Account, error) {
	if in.Name == nil && in.Role == nil {
		return Account{}, fmt.Errorf("%w: nothing to update", ErrInvalidArgument)
	}
	if in.Role != nil {
		if !rbac.IsValidRole(*in.Role) {
			return Account{}, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, *in.Role)
		}
	}

	before, after, err := s.repo.Update(ctx, id, func(a *Account) error {
		if in.Name != nil {
			a.Name = strings.TrimSpace(*in.Name)
		}
		if in.Role != nil {
			if a.ID == actor.UserID && *in.Role != a.Role {
				return fmt.Errorf("%w: cannot change own role", ErrInvalidArgument)
			}
			a.Role = *in.Role
		}
		return nil
	})
	if err != nil {
		return Account{}, err
	}

	if _, err := s.audit.LogUpdate(ctx, actor, after.ID, after.Email, before.Snapshot(), after.Snapshot()); err != nil {
		return after, fmt.Errorf("accounts: audit update: %w", err)
	}
	return after, nil
}

// Delete removes credentials and profile and records the full prior state so
// the account can be restored later.
func (s *Service) Delete(ctx context.Context, actor audit.Actor, id string) error {
	if id == actor.UserID {
		return fmt.Errorf("%w: cannot delete own account", ErrInvalidArgument)
	}
	acct, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	snapshot := acct.Snapshot()

	if err := s.idp.DeleteUser(ctx, acct.ID); err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrIdentityProvider, err)
		}
		s.log.Warn("deleting account without identity", "user_id", acct.ID)
	}
	if err := s.repo.Delete(ctx, acct.ID); err != nil {
		return err
	}

	if _, err := s.audit.LogDelete(ctx, actor, acct.ID, acct.Email, snapshot); err != nil {
		return fmt.Errorf("accounts: audit delete: %w", err)
	}
	return nil
}

// Restore recreates the account captured by a delete entry under a new id
// with a temporary password. The delete entry itself is left as is.
//
// If saving the account fails after the identity was created, the identity
// is left in place and the error is returned.
func (s *Service) Restore(ctx context.Context, actor audit.Actor, entryID string) (RestoreResult, error) {
	src, err := s.audit.RestoreSource(ctx, entryID)
	if err != nil {
		return RestoreResult{}, err
	}
	prev := src.PreviousData

	password, err := s.tempPassword()
	if err != nil {
		return RestoreResult{}, fmt.Errorf("accounts: temporary password: %w", err)
	}

	u, err := s.idp.CreateUser(ctx, prev.String(audit.KeyEmail), password, true)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("%w: %w", ErrIdentityProvider, err)
	}

	role := prev.String(audit.KeyRole)
	if !rbac.IsValidRole(role) {
		role = rbac.RoleViewer
	}
	acct, err := s.repo.Upsert(ctx, Account{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               prev.String(audit.KeyName),
		Role:               role,
		NeedsPasswordReset: true,
	})
	if err != nil {
		s.log.Error("restore left identity without account", "user_id", u.ID, "audit_entry_id", entryID, "err", err)
		return RestoreResult{}, fmt.Errorf("accounts: save restored account: %w", err)
	}

	entry, err := s.audit.LogRestore(ctx, actor, src, acct.ID, acct.Snapshot())
	if err != nil {
		return RestoreResult{}, fmt.Errorf("accounts: audit restore: %w", err)
	}

	return RestoreResult{
		NewAccountID:       acct.ID,
		NeedsPasswordReset: true,
		TemporaryPassword:  password,
		AuditEntryID:       entry.ID,
	}, nil
}

// Authenticate checks credentials and returns the account. An identity with
// no account cannot log in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	u, err := s.idp.Authenticate(ctx, email, password)
	if err != nil {
		return Account{}, err
	}
	acct, err := s.repo.Get(ctx, u.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Warn("login for identity without account", "user_id", u.ID)
			return Account{}, identity.ErrInvalidCredentials
		}
		return Account{}, err
	}
	return acct, nil
}

// ChangePassword sets a new password and clears the reset flag.
func (s *Service) ChangePassword(ctx context.Context, userID, password string) (Account, error) {
	if err := s.idp.SetPassword(ctx, userID, password); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Account{}, ErrNotFound
		}
		return Account{}, identityErr(err)
	}
	_, after, err := s.repo.Update(ctx, userID, func(a *Account) error {
		a.NeedsPasswordReset = false
		return nil
	})
	return after, err
}

// EnsureBootstrapAdmin creates the first admin when no account uses email.
// It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	u, err := s.idp.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.log.Info("bootstrap admin reusing existing identity", "user_id", u.ID)
	case errors.Is(err, identity.ErrNotFound):
		u, err = s.idp.CreateUser(ctx, email, password, true)
		if err != nil {
			return false, identityErr(err)
		}
	default:
		return false, fmt.Errorf("%w: %w", ErrIdentityProvider, err)
	}

	if name == "" {
		name = "Administrator"
	}
	acct, err := s.repo.Upsert(ctx, Account{ID: u.ID, Email: u.Email, Name: name, Role: rbac.RoleAdmin})
	if err != nil {
		return false, fmt.Errorf("accounts: save bootstrap admin: %w", err)
	}
	if _, err := s.audit.LogCreate(ctx, SystemActor, acct.ID, acct.Email, acct.Snapshot()); err != nil {
		s.log.Error("audit bootstrap admin failed", "target_user_id", acct.ID, "err", err)
	}
	return true, nil
}

// identityErr keeps validation and conflict errors matchable and wraps the
// rest as provider failures.
func identityErr(err error) error {
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		return err
	case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrInvalidPassword):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	default:
		return fmt.Errorf("%w: %w", ErrIdentityProvider, err)
	}
}

const tempFragmentLen = 8

// temporaryPassword joins two random base-36 fragments.
func temporaryPassword() (string, error) {
	var b strings.Builder
	for range 2 {
		f, err := base36Fragment()
		if err != nil {
			return "", err
		}
		b.WriteString(f)
	}
	return b.String(), nil
}

func base36Fragment() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	s := strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 36)
	if len(s) < tempFragmentLen {
		s = strings.Repeat("0", tempFragmentLen-len(s)) + s
	}
	return s[len(s)-tempFragmentLen:], nil
}
