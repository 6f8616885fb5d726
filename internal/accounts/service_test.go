package accounts

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"deployment-tracker/internal/audit"
	"deployment-tracker/internal/identity"
	"deployment-tracker/internal/rbac"
	"deployment-tracker/pkg/logger"
)

type fixture struct {
	svc    *Service
	repo   *MemoryRepo
	idp    *identity.MemoryProvider
	audits *audit.MemoryRepo
	actor  audit.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := NewMemoryRepo()
	idp := identity.NewMemoryProvider()
	audits := audit.NewMemoryRepo()
	log := logger.Discard()
	svc := NewService(repo, idp, audit.NewService(audits, log), log)
	return fixture{
		svc:    svc,
		repo:   repo,
		idp:    idp,
		audits: audits,
		actor:  audit.Actor{UserID: "admin-1", Email: "admin@example.com"},
	}
}

func (f fixture) create(t *testing.T, email, role string) Account {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.actor, CreateInput{Email: email, Name: "Tech One", Role: role, Password: "initial-pass"})
	if err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return a
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Tech@Example.com", rbac.RoleTechnician)

	if a.Email != "tech@example.com" || a.Role != rbac.RoleTechnician || a.NeedsPasswordReset {
		t.Fatalf("unexpected account: %+v", a)
	}
	entries := f.audits.Entries()
	if len(entries) != 1 || entries[0].ActionType != audit.ActionCreate || entries[0].TargetUserID != a.ID {
		t.Fatalf("expected one create entry, got %+v", entries)
	}
	if entries[0].PreviousData != nil || entries[0].NewData.String(audit.KeyEmail) != a.Email {
		t.Fatalf("unexpected snapshots: %+v", entries[0])
	}

	ctx := context.Background()
	if _, err := f.svc.Create(ctx, f.actor, CreateInput{Email: "tech@example.com", Role: rbac.RoleViewer, Password: "another-pass"}); !errors.Is(err, identity.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.actor, CreateInput{Email: "x@example.com", Role: "owner", Password: "another-pass"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for role, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.actor, CreateInput{Email: "x@example.com", Role: rbac.RoleViewer, Password: "short"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for password, got %v", err)
	}
}

func TestCreate_AuditFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.audits.AppendErr = errors.New("db down")

	a, err := f.svc.Create(context.Background(), f.actor, CreateInput{Email: "a@example.com", Role: rbac.RoleViewer, Password: "initial-pass"})
	if err != nil {
		t.Fatalf("expected success despite audit failure, got %v", err)
	}
	if _, err := f.repo.Get(context.Background(), a.ID); err != nil {
		t.Fatalf("account not stored: %v", err)
	}
}

func TestCreate_RollsBackIdentityOnSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.UpsertErr = errors.New("db down")

	if _, err := f.svc.Create(context.Background(), f.actor, CreateInput{Email: "a@example.com", Role: rbac.RoleViewer, Password: "initial-pass"}); err == nil {
		t.Fatalf("expected error")
	}
	if f.idp.Len() != 0 {
		t.Fatalf("expected identity rollback, have %d", f.idp.Len())
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "a@example.com", rbac.RoleViewer)

	role := rbac.RoleTechnician
	got, err := f.svc.Update(ctx, f.actor, a.ID, UpdateInput{Role: &role})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Role != rbac.RoleTechnician || got.Name != "Tech One" {
		t.Fatalf("unexpected account: %+v", got)
	}

	entries := f.audits.Entries()
	last := entries[len(entries)-1]
	if last.ActionType != audit.ActionUpdate || last.PreviousData.String(audit.KeyRole) != rbac.RoleViewer || last.NewData.String(audit.KeyRole) != rbac.RoleTechnician {
		t.Fatalf("unexpected update entry: %+v", last)
	}

	if _, err := f.svc.Update(ctx, f.actor, a.ID, UpdateInput{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.svc.Update(ctx, f.actor, "missing", UpdateInput{Role: &role}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	self := audit.Actor{UserID: a.ID}
	admin := rbac.RoleAdmin
	if _, err := f.svc.Update(ctx, self, a.ID, UpdateInput{Role: &admin}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected self role change to be rejected, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "a@example.com", rbac.RoleTechnician)

	if err := f.svc.Delete(ctx, audit.Actor{UserID: a.ID}, a.ID); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected self delete to be rejected, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.actor, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.repo.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected account removed, got %v", err)
	}
	if f.idp.Len() != 0 {
		t.Fatalf("expected identity removed")
	}

	entries := f.audits.Entries()
	del := entries[len(entries)-1]
	if del.ActionType != audit.ActionDelete || del.NewData != nil {
		t.Fatalf("unexpected delete entry: %+v", del)
	}
	for _, k := range []string{audit.KeyID, audit.KeyEmail, audit.KeyName, audit.KeyRole} {
		if del.PreviousData.String(k) == "" {
			t.Fatalf("snapshot missing %s: %v", k, del.PreviousData)
		}
	}

	if err := f.svc.Delete(ctx, f.actor, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteThenRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "a@example.com", rbac.RoleTechnician)
	if err := f.svc.Delete(ctx, f.actor, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries := f.audits.Entries()
	del := entries[len(entries)-1]

	res, err := f.svc.Restore(ctx, f.actor, del.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if res.NewAccountID == "" || res.NewAccountID == a.ID || !res.NeedsPasswordReset {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !regexp.MustCompile(`^[0-9a-z]{16}$`).MatchString(res.TemporaryPassword) {
		t.Fatalf("unexpected temporary password %q", res.TemporaryPassword)
	}

	restored, err := f.repo.Get(ctx, res.NewAccountID)
	if err != nil {
		t.Fatalf("get restored: %v", err)
	}
	if restored.Email != a.Email || restored.Name != a.Name || restored.Role != a.Role || !restored.NeedsPasswordReset {
		t.Fatalf("unexpected restored account: %+v", restored)
	}

	if _, err := f.svc.Authenticate(ctx, a.Email, res.TemporaryPassword); err != nil {
		t.Fatalf("temporary password rejected: %v", err)
	}

	entries = f.audits.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].ID != del.ID || entries[1].ActionType != audit.ActionDelete {
		t.Fatalf("delete entry changed: %+v", entries[1])
	}
	rest := entries[2]
	if rest.ActionType != audit.ActionRestore || rest.ID != res.AuditEntryID || rest.TargetUserID != res.NewAccountID {
		t.Fatalf("unexpected restore entry: %+v", rest)
	}
	if rest.PreviousData.String(audit.KeyID) != a.ID || !rest.NewData.Bool(audit.KeyNeedsPasswordReset) {
		t.Fatalf("unexpected restore snapshots: %+v", rest)
	}

	changed, err := f.svc.ChangePassword(ctx, res.NewAccountID, "brand-new-pass")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if changed.NeedsPasswordReset {
		t.Fatalf("expected reset flag cleared")
	}
}

func TestRestore_RejectsNonDeleteEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "a@example.com", rbac.RoleViewer)
	create := f.audits.Entries()[0]
	before := f.idp.Len()

	if _, err := f.svc.Restore(ctx, f.actor, create.ID); !errors.Is(err, audit.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := f.svc.Restore(ctx, f.actor, "missing"); !errors.Is(err, audit.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := len(f.audits.Entries()); n != 1 {
		t.Fatalf("expected no new entries, have %d", n)
	}
	if f.idp.Len() != before {
		t.Fatalf("expected no identity created")
	}
}

func TestRestore_IdentityFailureAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "a@example.com", rbac.RoleViewer)
	if err := f.svc.Delete(ctx, f.actor, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	del := f.audits.Entries()[1]

	f.idp.CreateErr = errors.New("provider unavailable")
	if _, err := f.svc.Restore(ctx, f.actor, del.ID); !errors.Is(err, ErrIdentityProvider) {
		t.Fatalf("expected ErrIdentityProvider, got %v", err)
	}
	if n := len(f.audits.Entries()); n != 2 {
		t.Fatalf("expected no restore entry, have %d entries", n)
	}
	accts, _ := f.repo.List(ctx)
	if len(accts) != 0 {
		t.Fatalf("expected no account, got %+v", accts)
	}
}

func TestRestore_SaveFailureLeavesIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "a@example.com", rbac.RoleViewer)
	if err := f.svc.Delete(ctx, f.actor, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	del := f.audits.Entries()[1]

	f.repo.UpsertErr = errors.New("db down")
	if _, err := f.svc.Restore(ctx, f.actor, del.ID); err == nil {
		t.Fatalf("expected error")
	}
	if f.idp.Len() != 1 {
		t.Fatalf("expected orphaned identity to remain, have %d", f.idp.Len())
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "a@example.com", rbac.RoleViewer)

	got, err := f.svc.Authenticate(ctx, "A@example.com", "initial-pass")
	if err != nil || got.ID != a.ID {
		t.Fatalf("authenticate: %+v, %v", got, err)
	}
	if _, err := f.svc.Authenticate(ctx, "a@example.com", "wrong-pass"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := f.idp.CreateUser(ctx, "orphan@example.com", "orphan-pass", true); err != nil {
		t.Fatalf("create identity: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "orphan@example.com", "orphan-pass"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for orphan identity, got %v", err)
	}
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if created, err := f.svc.EnsureBootstrapAdmin(ctx, "", "", ""); err != nil || created {
		t.Fatalf("expected no-op without email, got %v, %v", created, err)
	}

	created, err := f.svc.EnsureBootstrapAdmin(ctx, "root@example.com", "bootstrap-pass", "")
	if err != nil || !created {
		t.Fatalf("expected admin created, got %v, %v", created, err)
	}
	acct, err := f.repo.GetByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if acct.Role != rbac.RoleAdmin || acct.Name != "Administrator" {
		t.Fatalf("unexpected admin: %+v", acct)
	}

	created, err = f.svc.EnsureBootstrapAdmin(ctx, "root@example.com", "bootstrap-pass", "")
	if err != nil || created {
		t.Fatalf("expected second call to be a no-op, got %v, %v", created, err)
	}
	if n := len(f.audits.Entries()); n != 1 {
		t.Fatalf("expected a single create entry, have %d", n)
	}
}

func TestTemporaryPassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 20 {
		p, err := temporaryPassword()
		if err != nil {
			t.Fatalf("temporary password: %v", err)
		}
		if len(p) != 2*tempFragmentLen {
			t.Fatalf("unexpected length %d", len(p))
		}
		if err := identity.ValidatePassword(p); err != nil {
			t.Fatalf("temporary password rejected by identity: %v", err)
		}
		if seen[p] {
			t.Fatalf("duplicate temporary password %q", p)
		}
		seen[p] = true
	}
}
