package sheets

import "iter"

// Decode maps a value row onto the header row. Missing trailing cells decode
// to the empty string; blank header cells are skipped.
//
// The Sheets API drops trailing empty cells from each row, so short rows are
// the normal case rather than an error.
func Decode(headers, row []string) map[string]string {
	rec := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(row) {
			rec[h] = row[i]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

// Records yields (dataIndex, record) for every row. dataIndex is the 0-based
// offset from the first row below the header. The sequence holds no state and
// can be ranged over any number of times.
func Records(headers []string, rows [][]string) iter.Seq2[int, map[string]string] {
	return func(yield func(int, map[string]string) bool) {
		for i, row := range rows {
			if !yield(i, Decode(headers, row)) {
				return
			}
		}
	}
}

// Encode builds a value row in header order. A field set on record wins, then
// fallback, then the empty string. Passing the current remote record as
// fallback is what keeps partial updates from blanking untouched columns.
func Encode(headers []string, record, fallback map[string]string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if v, ok := record[h]; ok {
			row[i] = v
			continue
		}
		if v, ok := fallback[h]; ok {
			row[i] = v
		}
	}
	return row
}
