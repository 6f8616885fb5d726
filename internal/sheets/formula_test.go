package sheets

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFormulaRowMask_IsFormulaRow(t *testing.T) {
	m := NewFormulaRowMask(3, 0, 3, -1)
	if diff := cmp.Diff([]int{0, 3}, m.Indices()); diff != "" {
		t.Fatalf("indices mismatch (-want +got):\n%s", diff)
	}
	for _, tc := range []struct {
		idx  int
		want bool
	}{{0, true}, {1, false}, {3, true}, {4, false}, {-1, false}} {
		if got := m.IsFormulaRow(tc.idx); got != tc.want {
			t.Fatalf("IsFormulaRow(%d) = %v, want %v", tc.idx, got, tc.want)
		}
	}
}

func TestFormulaRowMask_PhysicalRow(t *testing.T) {
	tests := []struct {
		name    string
		formula []int
		logical int
		want    int
	}{
		{"no formula rows", nil, 0, 2},
		{"no formula rows later record", nil, 4, 6},
		{"formula at first data row", []int{0}, 0, 3},
		{"formula after record", []int{5}, 1, 3},
		{"formula between records", []int{1}, 1, 4},
		{"formula directly at shifted candidate", []int{0, 1}, 0, 4},
		{"gaps", []int{0, 2, 4}, 2, 7},
		{"formula beyond all data", []int{10}, 3, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewFormulaRowMask(tc.formula...)
			if got := m.PhysicalRow(tc.logical); got != tc.want {
				t.Fatalf("PhysicalRow(%d) with %v = %d, want %d", tc.logical, tc.formula, got, tc.want)
			}
		})
	}
}

func TestFormulaRowMask_PhysicalRowNeverLandsOnFormula(t *testing.T) {
	m := NewFormulaRowMask(0, 1, 4, 7, 8)
	prev := 0
	for logical := 0; logical < 20; logical++ {
		row := m.PhysicalRow(logical)
		if row <= prev {
			t.Fatalf("PhysicalRow not increasing at %d: %d after %d", logical, row, prev)
		}
		if m.IsFormulaRow(row - 2) {
			t.Fatalf("logical %d mapped onto formula row %d", logical, row)
		}
		prev = row
	}
}

func TestFormulaRowMask_MatchesDecodeOrder(t *testing.T) {
	// Walk the data rows the same way a reader does and check every record
	// maps back to the row it was read from.
	m := NewFormulaRowMask(0, 3)
	logical := 0
	for dataIdx := 0; dataIdx < 8; dataIdx++ {
		if m.IsFormulaRow(dataIdx) {
			continue
		}
		if got := m.PhysicalRow(logical); got != dataIdx+2 {
			t.Fatalf("logical %d: got row %d, want %d", logical, got, dataIdx+2)
		}
		logical++
	}
}
