package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry

	// AppendErr, when set, fails every Append.
	AppendErr error
}

var _ Repository = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AppendErr != nil {
		return Entry{}, r.AppendErr
	}
	e.ID = uuid.NewString()
	e.PreviousData = e.PreviousData.Clone()
	e.NewData = e.NewData.Clone()
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// List returns entries newest-first; equal timestamps keep reverse insertion order.
func (r *MemoryRepo) List(ctx context.Context, f Filter, limit, offset int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]Entry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if f.ActionType != "" && e.ActionType != f.ActionType {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if offset >= len(matched) {
		return []Entry{}, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Entry, end-offset)
	copy(out, matched[offset:end])
	return out, nil
}

// Entries returns every entry in insertion order.
func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
