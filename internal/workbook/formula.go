package workbook

import (
	"strconv"
	"strings"
)

// ShiftFormulaRows rewrites the relative row components of every cell
// reference in formula by delta. Rows anchored with $ keep their position,
// columns are never touched, and text inside double-quoted strings, quoted
// sheet names and bracketed structured references passes through verbatim.
// The leading = marker, if present, is preserved.
func ShiftFormulaRows(formula string, delta int) string {
	return ShiftFormula(formula, delta, 0)
}

// ShiftFormula rewrites the relative row and column components of every cell
// reference in formula by the given deltas. References whose shifted position
// would fall outside the sheet are left as they are.
func ShiftFormula(formula string, rowDelta, colDelta int) string {
	if rowDelta == 0 && colDelta == 0 {
		return formula
	}
	var b strings.Builder
	b.Grow(len(formula) + 8)
	n := len(formula)
	i := 0
	var prev byte
	for i < n {
		ch := formula[i]
		switch {
		case ch == '"' || ch == '\'':
			// String literal or quoted sheet name. A doubled quote is
			// an escape, not a terminator.
			j := i + 1
			for j < n {
				if formula[j] == ch {
					if j+1 < n && formula[j+1] == ch {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			b.WriteString(formula[i:j])
			prev = ch
			i = j
		case ch == '[':
			// Structured reference block, possibly nested.
			depth := 0
			j := i
			for j < n {
				switch formula[j] {
				case '[':
					depth++
				case ']':
					depth--
				}
				j++
				if depth == 0 {
					break
				}
			}
			b.WriteString(formula[i:j])
			prev = ']'
			i = j
		case isRefByte(ch) && !isRefByte(prev):
			j := i
			for j < n && isRefByte(formula[j]) {
				j++
			}
			run := formula[i:j]
			var next byte
			if j < n {
				next = formula[j]
			}
			b.WriteString(shiftRef(run, next, rowDelta, colDelta))
			prev = formula[j-1]
			i = j
		default:
			b.WriteByte(ch)
			prev = ch
			i++
		}
	}
	return b.String()
}

func isRefByte(ch byte) bool {
	switch {
	case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
		return true
	case ch == '$' || ch == '.' || ch == '_':
		return true
	}
	return false
}

func isLetterByte(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z'
}

// shiftRef shifts a single candidate token, returning it unchanged unless it
// is a well-formed A1-style reference. A token directly followed by ( is a
// function name, never a reference.
func shiftRef(run string, next byte, rowDelta, colDelta int) string {
	if next == '(' {
		return run
	}
	s := run
	colAbs := strings.HasPrefix(s, "$")
	if colAbs {
		s = s[1:]
	}
	k := 0
	for k < len(s) && isLetterByte(s[k]) {
		k++
	}
	if k == 0 || k > 3 {
		return run
	}
	letters, rest := s[:k], s[k:]
	rowAbs := strings.HasPrefix(rest, "$")
	if rowAbs {
		rest = rest[1:]
	}
	if rest == "" {
		return run
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return run
		}
	}
	col, err := ColumnNumber(strings.ToUpper(letters))
	if err != nil {
		return run
	}
	row, err := strconv.Atoi(rest)
	if err != nil || row < 1 || row > MaxRows {
		return run
	}
	newCol, newRow := col, row
	if !colAbs && colDelta != 0 {
		newCol += colDelta
		if newCol < 1 || newCol > MaxColumns {
			return run
		}
	}
	if !rowAbs && rowDelta != 0 {
		newRow += rowDelta
		if newRow < 1 || newRow > MaxRows {
			return run
		}
	}
	if newCol == col && newRow == row {
		return run
	}
	var b strings.Builder
	if colAbs {
		b.WriteByte('$')
	}
	b.WriteString(ColumnName(newCol))
	if rowAbs {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(newRow))
	return b.String()
}
