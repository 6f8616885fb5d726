package sheets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("sheets: invalid A1 range")

// ColumnName converts a 0-based column index into its A1 letters (0 -> A, 26 -> AA).
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ColumnIndex converts A1 column letters into a 0-based index.
func ColumnIndex(name string) (int, error) {
	if name == "" {
		return 0, ErrInvalidRange
	}
	n := 0
	for _, r := range strings.ToUpper(name) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("%w: column %q", ErrInvalidRange, name)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// QuoteSheet returns the sheet name in the form accepted before "!" in A1 notation.
func QuoteSheet(sheet string) string {
	plain := sheet != ""
	for _, r := range sheet {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			plain = false
			break
		}
	}
	if plain {
		return sheet
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// SheetRange addresses every populated cell of a sheet.
func SheetRange(sheet string) string { return QuoteSheet(sheet) }

// HeaderRange addresses row 1 of a sheet.
func HeaderRange(sheet string) string { return QuoteSheet(sheet) + "!1:1" }

// RowRange addresses columns A..<width> of a single 1-based row, e.g. Sheet!A3:C3.
func RowRange(sheet string, row, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s!A%d:%s%d", QuoteSheet(sheet), row, ColumnName(width-1), row)
}

// Range is a parsed A1 range. Zero-valued bounds are open: StartRow 0 means
// row 1, EndRow 0 means "to the last row", EndCol -1 means "to the last column".
type Range struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses the subset of A1 notation produced by this package:
// "Sheet", "Sheet!1:1", "Sheet!A3:C3", "Sheet!A:Z".
func ParseRange(a1 string) (Range, error) {
	sheet, cells, hasCells := cutSheet(a1)
	if sheet == "" {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, a1)
	}
	r := Range{Sheet: sheet, EndCol: -1}
	if !hasCells {
		return r, nil
	}

	from, to, ok := strings.Cut(cells, ":")
	if !ok {
		to = from
	}
	sc, sr, err := splitCell(from)
	if err != nil {
		return Range{}, err
	}
	ec, er, err := splitCell(to)
	if err != nil {
		return Range{}, err
	}
	if sc != "" {
		if r.StartCol, err = ColumnIndex(sc); err != nil {
			return Range{}, err
		}
	}
	if ec != "" {
		if r.EndCol, err = ColumnIndex(ec); err != nil {
			return Range{}, err
		}
	}
	r.StartRow, r.EndRow = sr, er
	if r.EndRow != 0 && r.StartRow > r.EndRow {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, a1)
	}
	return r, nil
}

func cutSheet(a1 string) (sheet, cells string, hasCells bool) {
	if strings.HasPrefix(a1, "'") {
		// quoted: 'My Sheet'!A1, with '' as an escaped quote
		for i := 1; i < len(a1); i++ {
			if a1[i] != '\'' {
				continue
			}
			if i+1 < len(a1) && a1[i+1] == '\'' {
				i++
				continue
			}
			sheet = strings.ReplaceAll(a1[1:i], "''", "'")
			rest := a1[i+1:]
			if strings.HasPrefix(rest, "!") {
				return sheet, rest[1:], true
			}
			return sheet, "", false
		}
		return "", "", false
	}
	sheet, cells, hasCells = strings.Cut(a1, "!")
	return sheet, cells, hasCells
}

func splitCell(cell string) (col string, row int, err error) {
	i := 0
	for i < len(cell) && (cell[i] >= 'A' && cell[i] <= 'Z' || cell[i] >= 'a' && cell[i] <= 'z') {
		i++
	}
	col = cell[:i]
	if i == len(cell) {
		if col == "" {
			return "", 0, fmt.Errorf("%w: empty cell", ErrInvalidRange)
		}
		return col, 0, nil
	}
	row, err = strconv.Atoi(cell[i:])
	if err != nil || row < 1 {
		return "", 0, fmt.Errorf("%w: cell %q", ErrInvalidRange, cell)
	}
	return col, row, nil
}
