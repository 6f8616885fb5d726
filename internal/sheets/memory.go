package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryClient is an in-memory single-sheet Client for tests and local runs.
// Row 0 of the grid is sheet row 1 (the header).
//
// Like the remote API it trims trailing empty cells from returned rows.
type MemoryClient struct {
	mu    sync.Mutex
	sheet string
	grid  [][]string

	// ReadErr / WriteErr, when set, are returned by every read / write call.
	ReadErr  error
	WriteErr error

	updates []string
}

var _ Client = (*MemoryClient)(nil)

func NewMemoryClient(sheet string, rows ...[]string) *MemoryClient {
	m := &MemoryClient{sheet: sheet}
	for _, r := range rows {
		m.grid = append(m.grid, append([]string(nil), r...))
	}
	return m
}

func (m *MemoryClient) Values(ctx context.Context, a1 string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	r, err := m.rangeFor(a1)
	if err != nil {
		return nil, err
	}

	first := 0
	if r.StartRow > 0 {
		first = r.StartRow - 1
	}
	last := len(m.grid) - 1
	if r.EndRow > 0 && r.EndRow-1 < last {
		last = r.EndRow - 1
	}

	out := make([][]string, 0)
	for i := first; i <= last; i++ {
		row := m.grid[i]
		lo, hi := r.StartCol, len(row)
		if r.EndCol >= 0 && r.EndCol+1 < hi {
			hi = r.EndCol + 1
		}
		var cells []string
		if lo < hi {
			cells = append([]string(nil), row[lo:hi]...)
		}
		out = append(out, trimTrailing(cells))
	}
	// The API omits trailing empty rows.
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *MemoryClient) Append(ctx context.Context, a1 string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if _, err := m.rangeFor(a1); err != nil {
		return err
	}
	m.grid = append(m.grid, append([]string(nil), row...))
	return nil
}

func (m *MemoryClient) Update(ctx context.Context, a1 string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	r, err := m.rangeFor(a1)
	if err != nil {
		return err
	}
	if r.StartRow < 1 {
		return fmt.Errorf("%w: update needs a start row: %q", ErrInvalidRange, a1)
	}
	for i, vals := range rows {
		idx := r.StartRow - 1 + i
		for len(m.grid) <= idx {
			m.grid = append(m.grid, nil)
		}
		row := m.grid[idx]
		for len(row) < r.StartCol+len(vals) {
			row = append(row, "")
		}
		copy(row[r.StartCol:], vals)
		m.grid[idx] = row
	}
	m.updates = append(m.updates, a1)
	return nil
}

// Row returns a copy of the 1-based sheet row, or nil if out of range.
func (m *MemoryClient) Row(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 || n > len(m.grid) {
		return nil
	}
	return append([]string(nil), m.grid[n-1]...)
}

// Len is the number of rows including the header.
func (m *MemoryClient) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.grid)
}

// Updates lists the A1 ranges written by Update, in call order.
func (m *MemoryClient) Updates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.updates...)
}

func (m *MemoryClient) rangeFor(a1 string) (Range, error) {
	r, err := ParseRange(a1)
	if err != nil {
		return Range{}, err
	}
	if r.Sheet != m.sheet {
		return Range{}, fmt.Errorf("sheets: unknown sheet %q", r.Sheet)
	}
	return r, nil
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
