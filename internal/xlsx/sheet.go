package xlsx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ganot/trainlog/internal/workbook"
)

// Sheet is one worksheet of a Document. Cell content is held sparsely; rows
// and cells that were never populated read back as absent.
type Sheet struct {
	doc  *Document
	name string
	part string

	ws            *xlsxWorksheet
	rows          map[int]*sheetRow
	tables        []*Table
	tablePartRIDs []string

	dirty bool
}

type sheetRow struct {
	height    float64
	hasHeight bool
	custom    bool
	attrs     []xml.Attr
	cells     map[int]*cell
}

type cell struct {
	value   any
	styleID int
	style   *workbook.Style
}

type sharedMaster struct {
	formula  string
	row, col int
}

type sharedFollower struct {
	row, col, si int
}

func parseSheet(doc *Document, name, part string, data []byte) (*Sheet, error) {
	s := &Sheet{
		doc:  doc,
		name: name,
		part: part,
		ws:   &xlsxWorksheet{},
		rows: make(map[int]*sheetRow),
	}
	if err := xml.Unmarshal(data, s.ws); err != nil {
		return nil, fmt.Errorf("parsing sheet %q: %w", name, err)
	}

	masters := make(map[int]sharedMaster)
	var followers []sharedFollower

	lastRow := 0
	for i := range s.ws.SheetData.Row {
		xr := &s.ws.SheetData.Row[i]
		rowNum := xr.R
		if rowNum == 0 {
			rowNum = lastRow + 1
		}
		lastRow = rowNum
		sr := &sheetRow{attrs: xr.Attrs, custom: xr.CustomHeight}
		if xr.Ht != nil {
			sr.height = *xr.Ht
			sr.hasHeight = true
		}
		if len(xr.C) > 0 {
			sr.cells = make(map[int]*cell, len(xr.C))
		}
		lastCol := 0
		for j := range xr.C {
			xc := &xr.C[j]
			colNum := lastCol + 1
			if xc.R != "" {
				if _, col, err := workbook.ParseCell(xc.R); err == nil {
					colNum = col
				}
			}
			lastCol = colNum
			c := &cell{styleID: xc.S}
			if f := xc.F; f != nil && f.Si != nil {
				if f.Content != "" {
					masters[*f.Si] = sharedMaster{formula: f.Content, row: rowNum, col: colNum}
					c.value = "=" + f.Content
				} else {
					followers = append(followers, sharedFollower{row: rowNum, col: colNum, si: *f.Si})
				}
			} else {
				c.value = cellValue(xc, doc.sst)
			}
			sr.cells[colNum] = c
		}
		s.rows[rowNum] = sr
	}
	// Shared formulas store the text on one master cell only; the rest of
	// the range derives its formula by the coordinate offset from the
	// master.
	for _, fo := range followers {
		c := s.rows[fo.row].cells[fo.col]
		if m, ok := masters[fo.si]; ok {
			c.value = "=" + workbook.ShiftFormula(m.formula, fo.row-m.row, fo.col-m.col)
		}
	}
	s.ws.SheetData = xlsxSheetData{}
	if tp := s.ws.TableParts; tp != nil {
		for _, p := range tp.TableParts {
			s.tablePartRIDs = append(s.tablePartRIDs, p.RID)
		}
	}
	return s, nil
}

func cellValue(xc *xlsxC, sst []string) any {
	if f := xc.F; f != nil && f.Content != "" {
		return "=" + f.Content
	}
	switch xc.T {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(xc.V))
		if err != nil || i < 0 || i >= len(sst) {
			return ""
		}
		return sst[i]
	case "str":
		return xc.V
	case "inlineStr":
		return xc.IS.text()
	case "b":
		return xc.V == "1" || strings.EqualFold(xc.V, "true")
	case "e":
		return xc.V
	case "d":
		if t, ok := parseISOTime(xc.V); ok {
			return t
		}
		return xc.V
	default:
		if xc.V == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(xc.V), 64); err == nil {
			return f
		}
		return xc.V
	}
}

// Name returns the worksheet name.
func (s *Sheet) Name() string { return s.name }

// Table returns the named table of this sheet.
func (s *Sheet) Table(name string) (workbook.Table, error) {
	for _, t := range s.tables {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, workbook.ErrTableNotFound
}

// Tables lists the tables anchored on this sheet.
func (s *Sheet) Tables() []*Table {
	out := make([]*Table, len(s.tables))
	copy(out, s.tables)
	return out
}

// Value returns the cell content at row, col or nil for an empty cell.
func (s *Sheet) Value(row, col int) any {
	sr := s.rows[row]
	if sr == nil {
		return nil
	}
	c := sr.cells[col]
	if c == nil {
		return nil
	}
	return c.value
}

// SetValue writes v at row, col. Timestamps must carry the zone-less
// convention; the first timestamp written into an unformatted cell also
// assigns the built-in date-time number format.
func (s *Sheet) SetValue(row, col int, v any) error {
	if row < 1 || row > workbook.MaxRows || col < 1 || col > workbook.MaxColumns {
		return workbook.ErrInvalidRef
	}
	var stored any
	switch val := v.(type) {
	case nil:
		stored = nil
	case string, bool:
		stored = val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%v: %w", val, workbook.ErrValueType)
		}
		stored = val
	case float32:
		stored = float64(val)
	case int:
		stored = int64(val)
	case int32:
		stored = int64(val)
	case int64:
		stored = val
	case uint:
		stored = int64(val)
	case uint32:
		stored = int64(val)
	case time.Time:
		if !workbook.IsNaive(val) {
			return fmt.Errorf("timestamp %v carries a zone: %w", val, workbook.ErrValueType)
		}
		stored = val
	default:
		return fmt.Errorf("%T: %w", v, workbook.ErrValueType)
	}
	c := s.ensureCell(row, col)
	c.value = stored
	if _, ok := stored.(time.Time); ok {
		st := s.Style(row, col)
		if st == nil || st.NumFmtID == 0 {
			st = st.Clone()
			if st == nil {
				st = &workbook.Style{}
			}
			st.NumFmtID = numFmtDateTime
			st.ApplyNumberFormat = true
			c.style = st
		}
	}
	s.dirty = true
	return nil
}

// numFmtDateTime is the built-in m/d/yy h:mm number format.
const numFmtDateTime = 22

// Style returns the cell's format, or nil when the cell carries the default
// format. The returned value is live for this cell; Clone it before applying
// it elsewhere.
func (s *Sheet) Style(row, col int) *workbook.Style {
	sr := s.rows[row]
	if sr == nil {
		return nil
	}
	c := sr.cells[col]
	if c == nil {
		return nil
	}
	if c.style == nil && c.styleID > 0 {
		c.style = s.doc.styles.style(c.styleID)
	}
	return c.style
}

// SetStyle replaces the cell's format. A nil style resets the cell to the
// default format.
func (s *Sheet) SetStyle(row, col int, st *workbook.Style) {
	if row < 1 || col < 1 {
		return
	}
	c := s.ensureCell(row, col)
	c.style = st
	if st == nil {
		c.styleID = 0
	}
	s.dirty = true
}

// RowHeight returns the explicit height of a row, if one is recorded.
func (s *Sheet) RowHeight(row int) (float64, bool) {
	sr := s.rows[row]
	if sr == nil || !sr.hasHeight {
		return 0, false
	}
	return sr.height, true
}

// SetRowHeight records an explicit height for a row.
func (s *Sheet) SetRowHeight(row int, height float64) {
	if row < 1 {
		return
	}
	sr := s.ensureRow(row)
	sr.height = height
	sr.hasHeight = true
	sr.custom = true
	s.dirty = true
}

func (s *Sheet) ensureRow(row int) *sheetRow {
	sr := s.rows[row]
	if sr == nil {
		sr = &sheetRow{}
		s.rows[row] = sr
	}
	return sr
}

func (s *Sheet) ensureCell(row, col int) *cell {
	sr := s.ensureRow(row)
	if sr.cells == nil {
		sr.cells = make(map[int]*cell)
	}
	c := sr.cells[col]
	if c == nil {
		c = &cell{}
		sr.cells[col] = c
	}
	return c
}

func (s *Sheet) dimensionRef() string {
	r := workbook.Range{}
	first := true
	for rowNum, sr := range s.rows {
		for colNum := range sr.cells {
			if first {
				r = workbook.Range{MinCol: colNum, MinRow: rowNum, MaxCol: colNum, MaxRow: rowNum}
				first = false
				continue
			}
			if colNum < r.MinCol {
				r.MinCol = colNum
			}
			if colNum > r.MaxCol {
				r.MaxCol = colNum
			}
			if rowNum < r.MinRow {
				r.MinRow = rowNum
			}
			if rowNum > r.MaxRow {
				r.MaxRow = rowNum
			}
		}
	}
	if first {
		return "A1"
	}
	return r.String()
}

func (s *Sheet) serialize() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<worksheet xmlns="` + nsMain + `" xmlns:r="` + nsRel + `" xmlns:mc="` + nsMC + `" mc:Ignorable="x14ac xr" xmlns:x14ac="` + nsX14ac + `" xmlns:xr="` + nsXR + `">`)
	writeRaw(&b, "sheetPr", s.ws.SheetPr)
	b.WriteString(`<dimension ref="` + s.dimensionRef() + `"/>`)
	writeRaw(&b, "sheetViews", s.ws.SheetViews)
	writeRaw(&b, "sheetFormatPr", s.ws.SheetFormatPr)
	writeRaw(&b, "cols", s.ws.Cols)
	s.writeSheetData(&b)
	writeRaw(&b, "sheetProtection", s.ws.SheetProtection)
	writeRaw(&b, "protectedRanges", s.ws.ProtectedRanges)
	writeRaw(&b, "autoFilter", s.ws.AutoFilter)
	writeRaw(&b, "sortState", s.ws.SortState)
	writeRaw(&b, "mergeCells", s.ws.MergeCells)
	writeRaw(&b, "phoneticPr", s.ws.PhoneticPr)
	writeRawList(&b, "conditionalFormatting", s.ws.ConditionalFormatting)
	writeRaw(&b, "dataValidations", s.ws.DataValidations)
	writeRaw(&b, "hyperlinks", s.ws.Hyperlinks)
	writeRaw(&b, "printOptions", s.ws.PrintOptions)
	writeRaw(&b, "pageMargins", s.ws.PageMargins)
	writeRaw(&b, "pageSetup", s.ws.PageSetup)
	writeRaw(&b, "headerFooter", s.ws.HeaderFooter)
	writeRaw(&b, "rowBreaks", s.ws.RowBreaks)
	writeRaw(&b, "colBreaks", s.ws.ColBreaks)
	writeRaw(&b, "ignoredErrors", s.ws.IgnoredErrors)
	writeRaw(&b, "drawing", s.ws.Drawing)
	writeRaw(&b, "legacyDrawing", s.ws.LegacyDrawing)
	writeRaw(&b, "picture", s.ws.Picture)
	if len(s.tablePartRIDs) > 0 {
		b.WriteString(`<tableParts count="` + strconv.Itoa(len(s.tablePartRIDs)) + `">`)
		for _, rid := range s.tablePartRIDs {
			b.WriteString(`<tablePart r:id="` + escape(rid) + `"/>`)
		}
		b.WriteString(`</tableParts>`)
	}
	writeRaw(&b, "extLst", s.ws.ExtLst)
	b.WriteString(`</worksheet>`)
	return b.Bytes()
}

func (s *Sheet) writeSheetData(b *bytes.Buffer) {
	rowNums := make([]int, 0, len(s.rows))
	for n, sr := range s.rows {
		if len(sr.cells) == 0 && !sr.hasHeight && len(sr.attrs) == 0 {
			continue
		}
		rowNums = append(rowNums, n)
	}
	if len(rowNums) == 0 {
		b.WriteString(`<sheetData/>`)
		return
	}
	sort.Ints(rowNums)
	b.WriteString(`<sheetData>`)
	for _, rowNum := range rowNums {
		sr := s.rows[rowNum]
		b.WriteString(`<row r="` + strconv.Itoa(rowNum) + `"`)
		if sr.hasHeight {
			b.WriteString(` ht="` + strconv.FormatFloat(sr.height, 'f', -1, 64) + `"`)
		}
		if sr.custom {
			b.WriteString(` customHeight="1"`)
		}
		writeAttrs(b, sr.attrs)
		if len(sr.cells) == 0 {
			b.WriteString("/>")
			continue
		}
		b.WriteByte('>')
		colNums := make([]int, 0, len(sr.cells))
		for n := range sr.cells {
			colNums = append(colNums, n)
		}
		sort.Ints(colNums)
		for _, colNum := range colNums {
			s.writeCell(b, rowNum, colNum, sr.cells[colNum])
		}
		b.WriteString(`</row>`)
	}
	b.WriteString(`</sheetData>`)
}

func (s *Sheet) writeCell(b *bytes.Buffer, rowNum, colNum int, c *cell) {
	styleIdx := c.styleID
	if c.style != nil {
		styleIdx = s.doc.styles.intern(c.style)
	}
	if c.value == nil && styleIdx == 0 {
		return
	}
	open := func(typeAttr string) {
		b.WriteString(`<c r="` + workbook.CellName(rowNum, colNum) + `"`)
		if styleIdx > 0 {
			b.WriteString(` s="` + strconv.Itoa(styleIdx) + `"`)
		}
		if typeAttr != "" {
			b.WriteString(` t="` + typeAttr + `"`)
		}
	}
	switch v := c.value.(type) {
	case nil:
		open("")
		b.WriteString("/>")
		return
	case string:
		if strings.HasPrefix(v, "=") {
			open("")
			b.WriteString(`><f>` + escape(v[1:]) + `</f>`)
		} else {
			open("inlineStr")
			b.WriteString(`><is><t xml:space="preserve">` + escape(v) + `</t></is>`)
		}
	case bool:
		open("b")
		if v {
			b.WriteString(`><v>1</v>`)
		} else {
			b.WriteString(`><v>0</v>`)
		}
	case float64:
		open("")
		b.WriteString(`><v>` + strconv.FormatFloat(v, 'f', -1, 64) + `</v>`)
	case int64:
		open("")
		b.WriteString(`><v>` + strconv.FormatInt(v, 10) + `</v>`)
	case time.Time:
		open("")
		b.WriteString(`><v>` + strconv.FormatFloat(TimeSerial(v), 'f', -1, 64) + `</v>`)
	default:
		open("inlineStr")
		b.WriteString(`><is><t xml:space="preserve">` + escape(fmt.Sprint(v)) + `</t></is>`)
	}
	b.WriteString(`</c>`)
}
