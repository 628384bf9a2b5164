package xlsx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/ganot/trainlog/internal/workbook"
)

// Table is one table part anchored on a sheet. The geometry is interpreted;
// column definitions, style info and filter state ride along and are
// re-emitted on save.
type Table struct {
	sheet *Sheet
	part  string
	xml   xlsxTable
	rng   workbook.Range
	dirty bool
}

func parseTable(sheet *Sheet, part string, data []byte) (*Table, error) {
	t := &Table{sheet: sheet, part: part}
	if err := xml.Unmarshal(data, &t.xml); err != nil {
		return nil, fmt.Errorf("parsing table part %s: %w", part, err)
	}
	rng, err := workbook.ParseRange(t.xml.Ref)
	if err != nil {
		return nil, fmt.Errorf("table %q ref %q: %w", t.Name(), t.xml.Ref, err)
	}
	t.rng = rng
	return t, nil
}

// Name returns the identifier shown in the workbook's UI.
func (t *Table) Name() string {
	if t.xml.DisplayName != "" {
		return t.xml.DisplayName
	}
	return t.xml.Name
}

// Columns returns the table's column names in declaration order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.xml.TableColumns.Columns))
	for i, c := range t.xml.TableColumns.Columns {
		out[i] = c.Name
	}
	return out
}

// HasTotalsRow reports whether the table keeps a totals row below its data.
func (t *Table) HasTotalsRow() bool {
	if t.xml.TotalsRowCount > 0 {
		return true
	}
	return t.xml.TotalsRowShown != nil && *t.xml.TotalsRowShown
}

// Range returns the table's extent, header row included.
func (t *Table) Range() workbook.Range {
	return t.rng
}

// SetRange moves the table's extent. The filter range tracks the new extent.
func (t *Table) SetRange(r workbook.Range) error {
	if r.MinCol < 1 || r.MinRow < 1 || r.MaxCol < r.MinCol || r.MaxRow < r.MinRow ||
		r.MaxCol > workbook.MaxColumns || r.MaxRow > workbook.MaxRows {
		return workbook.ErrInvalidRef
	}
	t.rng = r
	t.xml.Ref = r.String()
	if af := t.xml.AutoFilter; af != nil {
		filter := r
		if filter.MaxRow-t.xml.TotalsRowCount >= filter.MinRow {
			filter.MaxRow -= t.xml.TotalsRowCount
		}
		af.Ref = filter.String()
	}
	t.dirty = true
	return nil
}

func (t *Table) serialize() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<table xmlns="` + nsMain + `" xmlns:mc="` + nsMC + `" mc:Ignorable="xr" xmlns:xr="` + nsXR + `"`)
	b.WriteString(` id="` + strconv.Itoa(t.xml.ID) + `"`)
	if t.xml.Name != "" {
		b.WriteString(` name="` + escape(t.xml.Name) + `"`)
	}
	b.WriteString(` displayName="` + escape(t.xml.DisplayName) + `"`)
	b.WriteString(` ref="` + escape(t.xml.Ref) + `"`)
	if t.xml.HeaderRowCount != nil {
		b.WriteString(` headerRowCount="` + strconv.Itoa(*t.xml.HeaderRowCount) + `"`)
	}
	if t.xml.TotalsRowCount > 0 {
		b.WriteString(` totalsRowCount="` + strconv.Itoa(t.xml.TotalsRowCount) + `"`)
	}
	if t.xml.TotalsRowShown != nil {
		if *t.xml.TotalsRowShown {
			b.WriteString(` totalsRowShown="1"`)
		} else {
			b.WriteString(` totalsRowShown="0"`)
		}
	}
	writeAttrs(&b, t.xml.Attrs)
	b.WriteByte('>')
	if af := t.xml.AutoFilter; af != nil {
		b.WriteString(`<autoFilter ref="` + escape(af.Ref) + `"`)
		writeAttrs(&b, af.Attrs)
		if af.Inner == "" {
			b.WriteString("/>")
		} else {
			b.WriteByte('>')
			b.WriteString(af.Inner)
			b.WriteString(`</autoFilter>`)
		}
	}
	cols := t.xml.TableColumns.Columns
	b.WriteString(`<tableColumns count="` + strconv.Itoa(len(cols)) + `">`)
	for i := range cols {
		c := &cols[i]
		b.WriteString(`<tableColumn id="` + strconv.Itoa(c.ID) + `" name="` + escape(c.Name) + `"`)
		writeAttrs(&b, c.Attrs)
		if c.Inner == "" {
			b.WriteString("/>")
		} else {
			b.WriteByte('>')
			b.WriteString(c.Inner)
			b.WriteString(`</tableColumn>`)
		}
	}
	b.WriteString(`</tableColumns>`)
	writeRaw(&b, "tableStyleInfo", t.xml.TableStyleInfo)
	writeRaw(&b, "extLst", t.xml.ExtLst)
	b.WriteString(`</table>`)
	return b.Bytes()
}
