package xlsx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/ganot/trainlog/internal/workbook"
)

// styleSheet holds the parsed styles part. Existing cell formats round-trip
// verbatim; formats produced by cell writes are appended to cellXfs and
// deduplicated by value.
type styleSheet struct {
	xml   xlsxStyleSheet
	xfs   []xlsxXf
	index map[workbook.Style]int // first xf whose interpreted view matches
	dirty bool
}

func parseStyleSheet(data []byte) (*styleSheet, error) {
	ss := &styleSheet{}
	if err := xml.Unmarshal(data, &ss.xml); err != nil {
		return nil, fmt.Errorf("parsing styles part: %w", err)
	}
	if ss.xml.CellXfs != nil {
		ss.xfs = ss.xml.CellXfs.Xf
	}
	if len(ss.xfs) == 0 {
		ss.xfs = []xlsxXf{{}}
	}
	ss.buildIndex()
	return ss, nil
}

// newStyleSheet builds the minimal stylesheet a generated workbook starts
// from: one font, the two mandatory fills, one border, one cell format.
func newStyleSheet() *styleSheet {
	ss := &styleSheet{
		xml: xlsxStyleSheet{
			Fonts: &rawElem{
				Attrs: []xml.Attr{{Name: xml.Name{Local: "count"}, Value: "1"}},
				Inner: `<font><sz val="11"/><name val="Calibri"/></font>`,
			},
			Fills: &rawElem{
				Attrs: []xml.Attr{{Name: xml.Name{Local: "count"}, Value: "2"}},
				Inner: `<fill><patternFill patternType="none"/></fill><fill><patternFill patternType="gray125"/></fill>`,
			},
			Borders: &rawElem{
				Attrs: []xml.Attr{{Name: xml.Name{Local: "count"}, Value: "1"}},
				Inner: `<border><left/><right/><top/><bottom/><diagonal/></border>`,
			},
			CellStyleXfs: &rawElem{
				Attrs: []xml.Attr{{Name: xml.Name{Local: "count"}, Value: "1"}},
				Inner: `<xf numFmtId="0" fontId="0" fillId="0" borderId="0"/>`,
			},
			CellStyles: &rawElem{
				Attrs: []xml.Attr{{Name: xml.Name{Local: "count"}, Value: "1"}},
				Inner: `<cellStyle name="Normal" xfId="0" builtinId="0"/>`,
			},
		},
		xfs: []xlsxXf{{XfID: intPtr(0)}},
	}
	ss.buildIndex()
	return ss
}

func intPtr(v int) *int { return &v }

func (ss *styleSheet) buildIndex() {
	ss.index = make(map[workbook.Style]int, len(ss.xfs))
	for i := range ss.xfs {
		view := xfView(&ss.xfs[i])
		if _, ok := ss.index[view]; !ok {
			ss.index[view] = i
		}
	}
}

// xfView interprets an xf record as a workbook.Style. Attributes outside the
// interpreted subset are not part of the view.
func xfView(xf *xlsxXf) workbook.Style {
	st := workbook.Style{
		NumFmtID:          xf.NumFmtID,
		FontID:            xf.FontID,
		FillID:            xf.FillID,
		BorderID:          xf.BorderID,
		ApplyNumberFormat: xf.ApplyNumberFormat,
		ApplyFont:         xf.ApplyFont,
		ApplyFill:         xf.ApplyFill,
		ApplyBorder:       xf.ApplyBorder,
		ApplyAlignment:    xf.ApplyAlignment,
	}
	if xf.XfID != nil {
		st.XfID = *xf.XfID
	}
	if xf.Alignment != nil {
		st.Alignment = workbook.Alignment{
			Horizontal: xf.Alignment.Horizontal,
			Vertical:   xf.Alignment.Vertical,
			WrapText:   xf.Alignment.WrapText,
		}
	}
	return st
}

// style materializes the xf at index i, or nil for the default format.
func (ss *styleSheet) style(i int) *workbook.Style {
	if i <= 0 || i >= len(ss.xfs) {
		return nil
	}
	view := xfView(&ss.xfs[i])
	return &view
}

// intern returns the cellXfs index for st, appending a new xf when no
// existing record matches.
func (ss *styleSheet) intern(st *workbook.Style) int {
	if st == nil {
		return 0
	}
	if i, ok := ss.index[*st]; ok {
		return i
	}
	xf := xlsxXf{
		NumFmtID:          st.NumFmtID,
		FontID:            st.FontID,
		FillID:            st.FillID,
		BorderID:          st.BorderID,
		XfID:              intPtr(st.XfID),
		ApplyNumberFormat: st.ApplyNumberFormat,
		ApplyFont:         st.ApplyFont,
		ApplyFill:         st.ApplyFill,
		ApplyBorder:       st.ApplyBorder,
		ApplyAlignment:    st.ApplyAlignment,
	}
	if st.Alignment != (workbook.Alignment{}) {
		xf.Alignment = &xlsxAlignment{
			Horizontal: st.Alignment.Horizontal,
			Vertical:   st.Alignment.Vertical,
			WrapText:   st.Alignment.WrapText,
		}
	}
	ss.xfs = append(ss.xfs, xf)
	i := len(ss.xfs) - 1
	ss.index[*st] = i
	ss.dirty = true
	return i
}

func (ss *styleSheet) serialize() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<styleSheet xmlns="` + nsMain + `" xmlns:mc="` + nsMC + `" mc:Ignorable="x14ac" xmlns:x14ac="` + nsX14ac + `">`)
	writeRaw(&b, "numFmts", ss.xml.NumFmts)
	writeRaw(&b, "fonts", ss.xml.Fonts)
	writeRaw(&b, "fills", ss.xml.Fills)
	writeRaw(&b, "borders", ss.xml.Borders)
	writeRaw(&b, "cellStyleXfs", ss.xml.CellStyleXfs)
	b.WriteString(`<cellXfs count="` + strconv.Itoa(len(ss.xfs)) + `">`)
	for i := range ss.xfs {
		writeXf(&b, &ss.xfs[i])
	}
	b.WriteString(`</cellXfs>`)
	writeRaw(&b, "cellStyles", ss.xml.CellStyles)
	writeRaw(&b, "dxfs", ss.xml.Dxfs)
	writeRaw(&b, "tableStyles", ss.xml.TableStyles)
	writeRaw(&b, "colors", ss.xml.Colors)
	writeRaw(&b, "extLst", ss.xml.ExtLst)
	b.WriteString(`</styleSheet>`)
	return b.Bytes()
}

func writeXf(b *bytes.Buffer, xf *xlsxXf) {
	b.WriteString(`<xf numFmtId="` + strconv.Itoa(xf.NumFmtID) + `"`)
	b.WriteString(` fontId="` + strconv.Itoa(xf.FontID) + `"`)
	b.WriteString(` fillId="` + strconv.Itoa(xf.FillID) + `"`)
	b.WriteString(` borderId="` + strconv.Itoa(xf.BorderID) + `"`)
	if xf.XfID != nil {
		b.WriteString(` xfId="` + strconv.Itoa(*xf.XfID) + `"`)
	}
	writeBoolAttr(b, "applyNumberFormat", xf.ApplyNumberFormat)
	writeBoolAttr(b, "applyFont", xf.ApplyFont)
	writeBoolAttr(b, "applyFill", xf.ApplyFill)
	writeBoolAttr(b, "applyBorder", xf.ApplyBorder)
	writeBoolAttr(b, "applyAlignment", xf.ApplyAlignment)
	writeAttrs(b, xf.Attrs)
	if xf.Alignment == nil && xf.Protection == nil {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	if a := xf.Alignment; a != nil {
		b.WriteString(`<alignment`)
		if a.Horizontal != "" {
			b.WriteString(` horizontal="` + escape(a.Horizontal) + `"`)
		}
		if a.Vertical != "" {
			b.WriteString(` vertical="` + escape(a.Vertical) + `"`)
		}
		writeBoolAttr(b, "wrapText", a.WrapText)
		writeAttrs(b, a.Attrs)
		b.WriteString("/>")
	}
	writeRaw(b, "protection", xf.Protection)
	b.WriteString(`</xf>`)
}

func writeBoolAttr(b *bytes.Buffer, name string, v bool) {
	if v {
		b.WriteString(` ` + name + `="1"`)
	}
}
