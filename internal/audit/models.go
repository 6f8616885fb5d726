package audit

import (
	"time"
)

// Entry is an immutable, append-only record of a user-account action.
//
// Invariants:
// - Entries are never updated or deleted. A restore appends a new entry and
//   leaves the originating delete entry untouched.
// - For delete, PreviousData holds the full account snapshot taken before
//   deletion; restore depends on it.
//
// Storage (Postgres): table audit_logs, snapshots as nullable JSONB.
type Entry struct {
	ID         string     `json:"id" db:"id"`
	ActionType ActionType `json:"action_type" db:"action_type"`

	PerformedBy      string `json:"performed_by" db:"performed_by"`
	PerformedByEmail string `json:"performed_by_email" db:"performed_by_email"`

	TargetUserID    string `json:"target_user_id" db:"target_user_id"`
	TargetUserEmail string `json:"target_user_email" db:"target_user_email"`

	PreviousData Snapshot `json:"previous_data" db:"previous_data"`
	NewData      Snapshot `json:"new_data" db:"new_data"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

type ActionType string

const (
	ActionCreate  ActionType = "create"
	ActionUpdate  ActionType = "update"
	ActionDelete  ActionType = "delete"
	ActionRestore ActionType = "restore"
)

// Known reports whether a is one of the four account actions.
func (a ActionType) Known() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionRestore:
		return true
	default:
		return false
	}
}

// Snapshot is a JSON object describing an account at one point in time.
// A nil Snapshot is stored as SQL NULL / JSON null.
type Snapshot map[string]any

// Snapshot keys written by this service.
const (
	KeyID                 = "id"
	KeyEmail              = "email"
	KeyName               = "name"
	KeyRole               = "role"
	KeyNeedsPasswordReset = "needs_password_reset"
)

// String returns the string at key, or "" if absent or not a string.
func (s Snapshot) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool at key, or false if absent or not a bool.
func (s Snapshot) Bool(key string) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return false
}

// Clone returns a shallow copy; nil stays nil.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Actor identifies who performed an action.
type Actor struct {
	UserID string
	Email  string
}

// Filter narrows List. Zero value lists everything.
type Filter struct {
	ActionType ActionType
}
