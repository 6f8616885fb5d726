package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	svc.clock = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return svc, repo
}

func TestService_AppendRequiresType(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Append(context.Background(), Entry{PerformedBy: "u"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestService_AppendAcceptsUnknownType(t *testing.T) {
	svc, repo := newTestService(t)
	e, err := svc.Append(context.Background(), Entry{ActionType: "archive"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", e)
	}
	if got := repo.Entries(); len(got) != 1 || got[0].ActionType != "archive" {
		t.Fatalf("expected stored entry, got %+v", got)
	}
}

func TestService_ListNewestFirstWithFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	actor := Actor{UserID: "admin", Email: "admin@example.com"}

	if _, err := svc.LogCreate(ctx, actor, "u1", "a@example.com", Snapshot{KeyEmail: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	del, err := svc.LogDelete(ctx, actor, "u1", "a@example.com", Snapshot{KeyEmail: "a@example.com"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.LogCreate(ctx, actor, "u2", "b@example.com", Snapshot{KeyEmail: "b@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := svc.List(ctx, Filter{}, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, e := range all {
		got = append(got, e.TargetUserID+":"+string(e.ActionType))
	}
	if diff := cmp.Diff([]string{"u2:create", "u1:delete", "u1:create"}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	deletes, err := svc.List(ctx, Filter{ActionType: ActionDelete}, 10, 0)
	if err != nil {
		t.Fatalf("list deletes: %v", err)
	}
	if len(deletes) != 1 || deletes[0].ID != del.ID {
		t.Fatalf("expected only the delete entry, got %+v", deletes)
	}

	page, err := svc.List(ctx, Filter{}, 2, 2)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].TargetUserID != "u1" {
		t.Fatalf("unexpected second page: %+v", page)
	}
}

func TestNormalizeLimit(t *testing.T) {
	tests := map[int]int{-1: DefaultListLimit, 0: DefaultListLimit, 1: 1, 200: 200, 500: MaxListLimit}
	for in, want := range tests {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestService_RestoreSource(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	actor := Actor{UserID: "admin"}

	created, _ := svc.LogCreate(ctx, actor, "u1", "a@example.com", Snapshot{KeyEmail: "a@example.com"})
	deleted, _ := svc.LogDelete(ctx, actor, "u1", "a@example.com", Snapshot{KeyEmail: "a@example.com", KeyRole: "viewer"})
	empty, _ := svc.LogDelete(ctx, actor, "u3", "", nil)

	if _, err := svc.RestoreSource(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.RestoreSource(ctx, created.ID); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := svc.RestoreSource(ctx, empty.ID); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	src, err := svc.RestoreSource(ctx, deleted.ID)
	if err != nil {
		t.Fatalf("restore source: %v", err)
	}
	if src.PreviousData.String(KeyRole) != "viewer" {
		t.Fatalf("expected snapshot, got %+v", src.PreviousData)
	}
}

func TestService_LogRestoreLeavesSourceUntouched(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	actor := Actor{UserID: "admin", Email: "admin@example.com"}

	before := Snapshot{KeyID: "u1", KeyEmail: "a@example.com", KeyName: "A", KeyRole: "technician"}
	deleted, _ := svc.LogDelete(ctx, actor, "u1", "a@example.com", before)

	restored, err := svc.LogRestore(ctx, actor, deleted, "u9", Snapshot{KeyID: "u9", KeyEmail: "a@example.com"})
	if err != nil {
		t.Fatalf("log restore: %v", err)
	}
	if restored.ActionType != ActionRestore || restored.TargetUserID != "u9" || restored.TargetUserEmail != "a@example.com" {
		t.Fatalf("unexpected restore entry: %+v", restored)
	}
	if !restored.NewData.Bool(KeyNeedsPasswordReset) {
		t.Fatalf("expected needs_password_reset in new_data")
	}
	if diff := cmp.Diff(before, restored.PreviousData); diff != "" {
		t.Fatalf("previous_data mismatch (-want +got):\n%s", diff)
	}

	entries := repo.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if diff := cmp.Diff(deleted, entries[0]); diff != "" {
		t.Fatalf("delete entry changed (-want +got):\n%s", diff)
	}
}

func TestUnmarshalSnapshot(t *testing.T) {
	for _, in := range []string{"", "null"} {
		s, err := unmarshalSnapshot([]byte(in))
		if err != nil || s != nil {
			t.Fatalf("unmarshalSnapshot(%q) = %v, %v; want nil", in, s, err)
		}
	}
	s, err := unmarshalSnapshot([]byte(`{"email":"a@example.com","needs_password_reset":true}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.String(KeyEmail) != "a@example.com" || !s.Bool(KeyNeedsPasswordReset) {
		t.Fatalf("unexpected snapshot: %v", s)
	}
	v, err := marshalSnapshot(nil)
	if err != nil || v != nil {
		t.Fatalf("marshalSnapshot(nil) = %v, %v; want nil", v, err)
	}
}
