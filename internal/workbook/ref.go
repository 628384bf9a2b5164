package workbook

import (
	"fmt"
	"strings"
)

// Grid limits of the xlsx format.
const (
	MaxRows    = 1048576
	MaxColumns = 16384
)

// Range is the rectangular extent of a table region, 1-based and inclusive
// on all four edges.
type Range struct {
	MinCol int
	MinRow int
	MaxCol int
	MaxRow int
}

// Rows returns the number of rows covered by the range.
func (r Range) Rows() int {
	return r.MaxRow - r.MinRow + 1
}

// Columns returns the number of columns covered by the range.
func (r Range) Columns() int {
	return r.MaxCol - r.MinCol + 1
}

// Contains reports whether the cell at (row, col) lies inside the range.
func (r Range) Contains(row, col int) bool {
	return row >= r.MinRow && row <= r.MaxRow && col >= r.MinCol && col <= r.MaxCol
}

// String renders the range in A1 notation, collapsing a single cell to one
// reference ("B2" rather than "B2:B2").
func (r Range) String() string {
	if r.MinCol == r.MaxCol && r.MinRow == r.MaxRow {
		return CellName(r.MinRow, r.MinCol)
	}
	return CellName(r.MinRow, r.MinCol) + ":" + CellName(r.MaxRow, r.MaxCol)
}

// ParseRange parses an A1-style area reference such as "A1:D10" or a single
// cell "B2". Absolute markers ($) are accepted and ignored.
func ParseRange(ref string) (Range, error) {
	first, rest, found := strings.Cut(ref, ":")
	minRow, minCol, err := ParseCell(first)
	if err != nil {
		return Range{}, err
	}
	if !found {
		return Range{MinCol: minCol, MinRow: minRow, MaxCol: minCol, MaxRow: minRow}, nil
	}
	maxRow, maxCol, err := ParseCell(rest)
	if err != nil {
		return Range{}, err
	}
	if maxRow < minRow || maxCol < minCol {
		return Range{}, fmt.Errorf("%w: %q is inverted", ErrInvalidRef, ref)
	}
	return Range{MinCol: minCol, MinRow: minRow, MaxCol: maxCol, MaxRow: maxRow}, nil
}

// ParseCell parses a single A1-style cell reference into its 1-based row and
// column. Absolute markers ($) are accepted and ignored.
func ParseCell(ref string) (row, col int, err error) {
	s := ref
	if strings.HasPrefix(s, "$") {
		s = s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i > 3 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	col, err = ColumnNumber(s[:i])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	if i < len(s) && s[i] == '$' {
		i++
	}
	digits := s[i:]
	if digits == "" {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
		}
		row = row*10 + int(ch-'0')
		if row > MaxRows {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
		}
	}
	if row == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return row, col, nil
}

// CellName renders a 1-based (row, col) pair in A1 notation.
func CellName(row, col int) string {
	return ColumnName(col) + fmt.Sprintf("%d", row)
}

// ColumnName converts a 1-based column number to its letter form (1 -> "A",
// 27 -> "AA").
func ColumnName(col int) string {
	var buf [3]byte
	i := len(buf)
	for col > 0 {
		i--
		col--
		buf[i] = byte('A' + col%26)
		col /= 26
	}
	return string(buf[i:])
}

// ColumnNumber converts a column letter form to its 1-based number. Only
// uppercase forms up to the xlsx column limit are valid.
func ColumnNumber(name string) (int, error) {
	if name == "" || len(name) > 3 {
		return 0, fmt.Errorf("%w: column %q", ErrInvalidRef, name)
	}
	n := 0
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("%w: column %q", ErrInvalidRef, name)
		}
		n = n*26 + int(ch-'A'+1)
	}
	if n > MaxColumns {
		return 0, fmt.Errorf("%w: column %q", ErrInvalidRef, name)
	}
	return n, nil
}
