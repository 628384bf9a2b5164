package logbook

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ganot/trainlog/internal/domain/activity"
	"github.com/ganot/trainlog/internal/workbook"
)

// Appender grows a table by exactly one row per activity. It refuses any
// write that would touch existing data.
type Appender struct {
	// Zone rebases zoned timestamps before writing. Nil means activity.CET,
	// the same policy the metrics extractor applies.
	Zone *time.Location
}

// Append writes values into the row directly below the table and grows the
// table over it. The target row must be empty across the table's full width
// before anything is written. When the table already has data rows, the new
// row inherits the last row's height, cell styles, and formulas of columns
// the values leave empty, with relative row references shifted down by one.
func (a Appender) Append(sheet workbook.Sheet, table workbook.Table, values map[string]any) error {
	if table.HasTotalsRow() {
		return fmt.Errorf("table %s: %w", table.Name(), ErrTotalsRow)
	}

	rng := table.Range()
	columns := table.Columns()
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	rowIdx := rng.MaxRow + 1

	var unknown []string
	for name := range values {
		if _, ok := index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w in table %s: %s", ErrUnknownColumns, table.Name(), strings.Join(unknown, ", "))
	}

	for col := rng.MinCol; col <= rng.MaxCol; col++ {
		if sheet.Value(rowIdx, col) != nil {
			return fmt.Errorf("row %d below table %s: %w", rowIdx, table.Name(), ErrRowNotEmpty)
		}
	}

	for name, v := range values {
		if v == nil {
			continue
		}
		col := rng.MinCol + index[name]
		if err := sheet.SetValue(rowIdx, col, a.cellValue(v)); err != nil {
			return fmt.Errorf("writing %s: %w", workbook.CellName(rowIdx, col), err)
		}
	}

	if rng.MaxRow > rng.MinRow {
		a.propagateRow(sheet, rng, rowIdx)
	}

	grown := rng
	grown.MaxRow = rowIdx
	if err := table.SetRange(grown); err != nil {
		return fmt.Errorf("growing table %s: %w", table.Name(), err)
	}
	return nil
}

// propagateRow carries the last data row's texture into the new row: height,
// per-column styles, and formulas for columns the append left empty.
func (a Appender) propagateRow(sheet workbook.Sheet, rng workbook.Range, rowIdx int) {
	src := rng.MaxRow
	if h, ok := sheet.RowHeight(src); ok {
		sheet.SetRowHeight(rowIdx, h)
	}
	for col := rng.MinCol; col <= rng.MaxCol; col++ {
		if st := sheet.Style(src, col); st != nil {
			sheet.SetStyle(rowIdx, col, st.Clone())
		}
		if sheet.Value(rowIdx, col) != nil {
			continue
		}
		formula, ok := sheet.Value(src, col).(string)
		if !ok || !strings.HasPrefix(formula, "=") {
			continue
		}
		// The shifted formula is a plain string; SetValue cannot reject it.
		_ = sheet.SetValue(rowIdx, col, workbook.ShiftFormulaRows(formula, 1))
	}
}

// cellValue makes a value safe for a cell. Zoned timestamps become the same
// instant's wall clock in the append zone, with the offset stripped; naive
// timestamps pass through unchanged.
func (a Appender) cellValue(v any) any {
	t, ok := v.(time.Time)
	if !ok || workbook.IsNaive(t) {
		return v
	}
	zone := a.Zone
	if zone == nil {
		zone = activity.CET
	}
	return workbook.NaiveTime(t.In(zone))
}
