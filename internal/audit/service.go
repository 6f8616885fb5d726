package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only. Append assigns the entry ID.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	// List returns entries newest-first.
	List(ctx context.Context, f Filter, limit, offset int) ([]Entry, error)
}

var (
	ErrNotFound      = errors.New("audit: entry not found")
	ErrInvalidEntry  = errors.New("audit: invalid entry")
	ErrInvalidAction = errors.New("audit: only delete entries can be restored")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Service records and reads the account audit trail.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

// Append stores e and returns it with its ID. Unknown action types are stored
// as given.
func (s *Service) Append(ctx context.Context, e Entry) (Entry, error) {
	if s.repo == nil {
		return Entry{}, errors.New("audit: repository not configured")
	}
	if e.ActionType == "" {
		return Entry{}, fmt.Errorf("%w: action_type is required", ErrInvalidEntry)
	}
	if !e.ActionType.Known() {
		s.log.Warn("audit entry with unknown action type", "action_type", string(e.ActionType))
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// List returns one page, newest-first. limit is clamped to [1, MaxListLimit]
// with DefaultListLimit for non-positive values; a full page means there may be more.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]Entry, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx, f, NormalizeLimit(limit), max(offset, 0))
}

func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	if id == "" {
		return Entry{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// RestoreSource loads the delete entry a restore starts from. It fails with
// ErrNotFound when the entry does not exist, ErrInvalidAction unless it is a
// delete, and ErrInvalidEntry when its snapshot has no email.
func (s *Service) RestoreSource(ctx context.Context, id string) (Entry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if e.ActionType != ActionDelete {
		return Entry{}, fmt.Errorf("%w: entry %s is %q", ErrInvalidAction, id, e.ActionType)
	}
	if e.PreviousData.String(KeyEmail) == "" {
		return Entry{}, fmt.Errorf("%w: entry %s has no account snapshot", ErrInvalidEntry, id)
	}
	return e, nil
}

// LogCreate records an account creation.
func (s *Service) LogCreate(ctx context.Context, actor Actor, targetID, targetEmail string, created Snapshot) (Entry, error) {
	return s.Append(ctx, Entry{
		ActionType:       ActionCreate,
		PerformedBy:      actor.UserID,
		PerformedByEmail: actor.Email,
		TargetUserID:     targetID,
		TargetUserEmail:  targetEmail,
		NewData:          created,
	})
}

// LogUpdate records an account change with before/after snapshots.
func (s *Service) LogUpdate(ctx context.Context, actor Actor, targetID, targetEmail string, before, after Snapshot) (Entry, error) {
	return s.Append(ctx, Entry{
		ActionType:       ActionUpdate,
		PerformedBy:      actor.UserID,
		PerformedByEmail: actor.Email,
		TargetUserID:     targetID,
		TargetUserEmail:  targetEmail,
		PreviousData:     before,
		NewData:          after,
	})
}

// LogDelete records a deletion. before must be the full account snapshot.
func (s *Service) LogDelete(ctx context.Context, actor Actor, targetID, targetEmail string, before Snapshot) (Entry, error) {
	return s.Append(ctx, Entry{
		ActionType:       ActionDelete,
		PerformedBy:      actor.UserID,
		PerformedByEmail: actor.Email,
		TargetUserID:     targetID,
		TargetUserEmail:  targetEmail,
		PreviousData:     before,
	})
}

// LogRestore records a restore of source under newAccountID. previous_data is
// copied from source; new_data carries the reset flag.
func (s *Service) LogRestore(ctx context.Context, actor Actor, source Entry, newAccountID string, restored Snapshot) (Entry, error) {
	next := restored.Clone()
	if next == nil {
		next = Snapshot{}
	}
	next[KeyNeedsPasswordReset] = true
	return s.Append(ctx, Entry{
		ActionType:       ActionRestore,
		PerformedBy:      actor.UserID,
		PerformedByEmail: actor.Email,
		TargetUserID:     newAccountID,
		TargetUserEmail:  source.PreviousData.String(KeyEmail),
		PreviousData:     source.PreviousData.Clone(),
		NewData:          next,
	})
}

// NormalizeLimit applies the default and maximum page sizes.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
