package deployments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"deployment-tracker/internal/sheets"
)

var (
	ErrMissingIdentifier = errors.New("deployments: missing identifier")
	ErrRecordNotFound    = errors.New("deployments: record not found")
	ErrMissingHeader     = errors.New("deployments: sheet has no header row")
	ErrRemoteRead        = errors.New("deployments: remote read failed")
	ErrRemoteWrite       = errors.New("deployments: remote write failed")
)

// Config is fixed for the lifetime of a Store.
type Config struct {
	SheetName   string
	FormulaRows sheets.FormulaRowMask
}

// Store keeps deployment records in a remote sheet.
//
// Consistency model:
//   - Nothing is cached; every call reads the sheet again.
//   - Updates read the sheet, then write one full row. Columns the caller did
//     not set are filled from that fresh read.
//   - There is no locking. Two concurrent updates of the same record both
//     succeed and the later write wins.
//   - Failures are returned as is; the store never retries.
type Store struct {
	client sheets.Client
	cfg    Config
	log    *slog.Logger

	// clock and suffix are injectable for deterministic tests.
	clock  func() time.Time
	suffix func() int
}

func NewStore(client sheets.Client, cfg Config, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		client: client,
		cfg:    cfg,
		log:    log,
		clock:  time.Now,
		suffix: func() int { return 1000 + rand.IntN(9000) },
	}
}

// ListAll returns every non-formula row in sheet order.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	snap, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(snap.rows))
	for i, f := range snap.rows {
		out[i] = FromFields(f)
	}
	return out, nil
}

// Get returns the first record whose "Deployment ID" or "id" column equals id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, ErrMissingIdentifier
	}
	snap, err := s.read(ctx)
	if err != nil {
		return Record{}, err
	}
	idx := snap.find(id)
	if idx < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return FromFields(snap.rows[idx]), nil
}

// Create appends rec as a new row, generating an ID when rec has none.
// The row always goes after the last populated row, including trailing formula rows.
func (s *Store) Create(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	if rec.Values == nil {
		rec.Values = map[string]string{}
	}

	hdr, err := s.client.Values(ctx, sheets.HeaderRange(s.cfg.SheetName))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrRemoteRead, err)
	}
	if len(hdr) == 0 || len(hdr[0]) == 0 {
		return Record{}, ErrMissingHeader
	}

	row := sheets.Encode(hdr[0], rec.Fields(), nil)
	if err := s.client.Append(ctx, sheets.SheetRange(s.cfg.SheetName), row); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}
	s.log.Info("deployment created", "deployment_id", rec.ID)
	return rec, nil
}

// UpdateFull writes every field of rec onto its row. Fields absent from rec keep
// their current remote value.
func (s *Store) UpdateFull(ctx context.Context, rec Record) (UpdateResult, error) {
	return s.update(ctx, rec.ID, rec.Values)
}

// UpdateFields writes only the named fields of rec. The full row is still sent,
// rebuilt from the current remote values. An empty set rewrites the row unchanged.
func (s *Store) UpdateFields(ctx context.Context, rec Record, changed []string) (UpdateResult, error) {
	patch := make(map[string]string, len(changed))
	for _, f := range changed {
		if isAlias(f) {
			continue
		}
		if v, ok := rec.Values[f]; ok {
			patch[f] = v
		}
	}
	return s.update(ctx, rec.ID, patch)
}

func (s *Store) update(ctx context.Context, id string, patch map[string]string) (UpdateResult, error) {
	if id == "" {
		return UpdateResult{}, ErrMissingIdentifier
	}

	snap, err := s.read(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	if len(snap.headers) == 0 {
		return UpdateResult{}, ErrMissingHeader
	}
	idx := snap.find(id)
	if idx < 0 {
		return UpdateResult{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	merged := make(map[string]string, len(patch)+2)
	for k, v := range patch {
		merged[k] = v
	}
	merged[FieldID] = id
	merged[FieldDeploymentID] = id

	row := sheets.Encode(snap.headers, merged, snap.rows[idx])
	physical := s.cfg.FormulaRows.PhysicalRow(idx)
	a1 := sheets.RowRange(s.cfg.SheetName, physical, len(snap.headers))

	if err := s.client.Update(ctx, a1, [][]string{row}); err != nil {
		return UpdateResult{}, fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}

	written := make([]string, 0, len(patch))
	for _, h := range snap.headers {
		if _, ok := patch[h]; ok && !isAlias(h) {
			written = append(written, h)
		}
	}
	s.log.Info("deployment updated", "deployment_id", id, "row", physical, "fields", written)
	return UpdateResult{DeploymentID: id, FieldsUpdated: written, Row: physical}, nil
}

func (s *Store) newID() string {
	return fmt.Sprintf("DEP-%s-%04d", s.clock().Format("20060102"), s.suffix())
}

// snapshot is one read of the sheet. rows[i] is the record at logical index i.
type snapshot struct {
	headers []string
	rows    []map[string]string
}

func (s *Store) read(ctx context.Context) (snapshot, error) {
	values, err := s.client.Values(ctx, sheets.SheetRange(s.cfg.SheetName))
	if err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrRemoteRead, err)
	}
	if len(values) == 0 {
		return snapshot{}, nil
	}

	snap := snapshot{headers: values[0]}
	for i, rec := range sheets.Records(values[0], values[1:]) {
		if s.cfg.FormulaRows.IsFormulaRow(i) {
			continue
		}
		snap.rows = append(snap.rows, rec)
	}
	return snap, nil
}

// find returns the logical index of the first row matching id on either alias.
// Duplicate IDs resolve to the earliest row.
func (snap snapshot) find(id string) int {
	for i, f := range snap.rows {
		if f[FieldDeploymentID] == id || f[FieldID] == id {
			return i
		}
	}
	return -1
}
