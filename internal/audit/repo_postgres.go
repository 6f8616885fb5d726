package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NOTE: This repository assumes the audit_logs table from internal/migrations.
// The table is INSERT-only; a trigger rejects UPDATE and DELETE.

type PostgresRepo struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepo)(nil)

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	const q = `
INSERT INTO audit_logs (
	action_type, performed_by, performed_by_email,
	target_user_id, target_user_email,
	previous_data, new_data, timestamp
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`
	prev, err := marshalSnapshot(e.PreviousData)
	if err != nil {
		return Entry{}, err
	}
	next, err := marshalSnapshot(e.NewData)
	if err != nil {
		return Entry{}, err
	}
	if err := r.db.QueryRowContext(ctx, q,
		string(e.ActionType),
		e.PerformedBy,
		e.PerformedByEmail,
		e.TargetUserID,
		e.TargetUserEmail,
		prev,
		next,
		e.Timestamp,
	).Scan(&e.ID); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Entry, error) {
	const q = `
SELECT id, action_type, performed_by, performed_by_email,
	target_user_id, target_user_email, previous_data, new_data, timestamp
FROM audit_logs
WHERE id = $1
`
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, ErrNotFound
	}
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (r *PostgresRepo) List(ctx context.Context, f Filter, limit, offset int) ([]Entry, error) {
	const q = `
SELECT id, action_type, performed_by, performed_by_email,
	target_user_id, target_user_email, previous_data, new_data, timestamp
FROM audit_logs
WHERE ($1 = '' OR action_type = $1)
ORDER BY timestamp DESC, id DESC
LIMIT $2 OFFSET $3
`
	rows, err := r.db.QueryContext(ctx, q, string(f.ActionType), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e          Entry
		action     string
		prev, next []byte
	)
	if err := row.Scan(
		&e.ID,
		&action,
		&e.PerformedBy,
		&e.PerformedByEmail,
		&e.TargetUserID,
		&e.TargetUserEmail,
		&prev,
		&next,
		&e.Timestamp,
	); err != nil {
		return Entry{}, err
	}
	e.ActionType = ActionType(action)
	var err error
	if e.PreviousData, err = unmarshalSnapshot(prev); err != nil {
		return Entry{}, fmt.Errorf("audit: previous_data of %s: %w", e.ID, err)
	}
	if e.NewData, err = unmarshalSnapshot(next); err != nil {
		return Entry{}, fmt.Errorf("audit: new_data of %s: %w", e.ID, err)
	}
	return e, nil
}

// marshalSnapshot returns nil (SQL NULL) for a nil snapshot.
func marshalSnapshot(s Snapshot) (any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalSnapshot(b []byte) (Snapshot, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s, nil
}
