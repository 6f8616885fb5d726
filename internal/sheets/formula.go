package sheets

import "sort"

// FormulaRowMask is the immutable set of data rows that hold spreadsheet
// formulas. Indices are 0-based offsets from the first row below the header,
// i.e. physical sheet row = index + 2.
//
// Formula rows are skipped when decoding and are never used as write targets.
type FormulaRowMask struct {
	rows []int
}

// NewFormulaRowMask builds a mask from data-row indices. Negative and duplicate
// indices are dropped.
func NewFormulaRowMask(indices ...int) FormulaRowMask {
	seen := make(map[int]struct{}, len(indices))
	rows := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		rows = append(rows, i)
	}
	sort.Ints(rows)
	return FormulaRowMask{rows: rows}
}

// IsFormulaRow reports whether the data row at index is a formula row.
func (m FormulaRowMask) IsFormulaRow(index int) bool {
	i := sort.SearchInts(m.rows, index)
	return i < len(m.rows) && m.rows[i] == index
}

// PhysicalRow returns the 1-based sheet row holding the record at logicalIndex
// (its position among non-formula rows).
//
// Each formula row at or before the candidate data index pushes the record down
// by one; walking the sorted set once is enough because the set is fixed.
func (m FormulaRowMask) PhysicalRow(logicalIndex int) int {
	dataIndex := logicalIndex
	for _, f := range m.rows {
		if f > dataIndex {
			break
		}
		dataIndex++
	}
	return dataIndex + 2
}

// Indices returns a copy of the configured data-row indices in ascending order.
func (m FormulaRowMask) Indices() []int {
	out := make([]int, len(m.rows))
	copy(out, m.rows)
	return out
}

// Len is the number of formula rows.
func (m FormulaRowMask) Len() int { return len(m.rows) }
