package accounts

import (
	"time"

	"deployment-tracker/internal/audit"
)

// Account is the profile half of a user; credentials live in internal/identity.
// ID equals the identity-provider user id. Email is unique.
//
// Storage (Postgres): table user_accounts.
type Account struct {
	ID                 string    `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	Name               string    `json:"name" db:"name"`
	Role               string    `json:"role" db:"role"`
	NeedsPasswordReset bool      `json:"needs_password_reset" db:"needs_password_reset"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Snapshot is the audit representation of a. Delete entries carry it in
// previous_data and restore rebuilds the account from it.
func (a Account) Snapshot() audit.Snapshot {
	return audit.Snapshot{
		audit.KeyID:                 a.ID,
		audit.KeyEmail:              a.Email,
		audit.KeyName:               a.Name,
		audit.KeyRole:               a.Role,
		audit.KeyNeedsPasswordReset: a.NeedsPasswordReset,
		"created_at":                a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type CreateInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// UpdateInput changes only the non-nil fields.
type UpdateInput struct {
	Name *string `json:"name"`
	Role *string `json:"role"`
}

// RestoreResult is returned once; the temporary password is never stored.
type RestoreResult struct {
	NewAccountID       string `json:"newAccountId"`
	NeedsPasswordReset bool   `json:"needsPasswordReset"`
	TemporaryPassword  string `json:"temporaryPassword"`
	AuditEntryID       string `json:"auditEntryId"`
}
