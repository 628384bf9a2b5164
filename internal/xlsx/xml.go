package xlsx

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// Namespaces and part types of the pieces of the SpreadsheetML package this
// package reads or writes.
const (
	nsMain   = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRel    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRel = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsMC     = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	nsX14ac  = "http://schemas.microsoft.com/office/spreadsheetml/2009/9/ac"
	nsXR     = "http://schemas.microsoft.com/office/spreadsheetml/2014/revision"

	relTypeOfficeDocument = nsRel + "/officeDocument"
	relTypeWorksheet      = nsRel + "/worksheet"
	relTypeStyles         = nsRel + "/styles"
	relTypeSharedStrings  = nsRel + "/sharedStrings"
	relTypeTable          = nsRel + "/table"

	ctWorkbook  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	ctWorksheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	ctStyles    = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	ctTable     = "application/vnd.openxmlformats-officedocument.spreadsheetml.table+xml"
	ctRels      = "application/vnd.openxmlformats-package.relationships+xml"
	ctXML       = "application/xml"
)

// rawElem round-trips an element this package doesn't interpret: its
// attributes plus its raw inner XML, re-emitted verbatim on save.
type rawElem struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Inner string     `xml:",innerxml"`
}

// xlsxWorkbook maps the workbook part. Read-only: the workbook part is never
// rewritten for opened documents.
type xlsxWorkbook struct {
	XMLName xml.Name   `xml:"workbook"`
	Sheets  xlsxSheets `xml:"sheets"`
}

type xlsxSheets struct {
	Sheet []xlsxWbSheet `xml:"sheet"`
}

type xlsxWbSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	State   string `xml:"state,attr,omitempty"`
}

// xlsxRelationships maps a .rels part.
type xlsxRelationships struct {
	XMLName      xml.Name           `xml:"Relationships"`
	Relationship []xlsxRelationship `xml:"Relationship"`
}

type xlsxRelationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// xlsxWorksheet maps the worksheet element. Only dimension, sheetData and
// tableParts are interpreted; the named siblings are carried through save as
// raw blocks in schema order, which is the same subset policy the rest of the
// ecosystem applies to worksheet content it doesn't model.
type xlsxWorksheet struct {
	XMLName               xml.Name        `xml:"worksheet"`
	SheetPr               *rawElem        `xml:"sheetPr"`
	Dimension             *rawElem        `xml:"dimension"`
	SheetViews            *rawElem        `xml:"sheetViews"`
	SheetFormatPr         *rawElem        `xml:"sheetFormatPr"`
	Cols                  *rawElem        `xml:"cols"`
	SheetData             xlsxSheetData   `xml:"sheetData"`
	SheetProtection       *rawElem        `xml:"sheetProtection"`
	ProtectedRanges       *rawElem        `xml:"protectedRanges"`
	AutoFilter            *rawElem        `xml:"autoFilter"`
	SortState             *rawElem        `xml:"sortState"`
	MergeCells            *rawElem        `xml:"mergeCells"`
	PhoneticPr            *rawElem        `xml:"phoneticPr"`
	ConditionalFormatting []rawElem       `xml:"conditionalFormatting"`
	DataValidations       *rawElem        `xml:"dataValidations"`
	Hyperlinks            *rawElem        `xml:"hyperlinks"`
	PrintOptions          *rawElem        `xml:"printOptions"`
	PageMargins           *rawElem        `xml:"pageMargins"`
	PageSetup             *rawElem        `xml:"pageSetup"`
	HeaderFooter          *rawElem        `xml:"headerFooter"`
	RowBreaks             *rawElem        `xml:"rowBreaks"`
	ColBreaks             *rawElem        `xml:"colBreaks"`
	IgnoredErrors         *rawElem        `xml:"ignoredErrors"`
	Drawing               *rawElem        `xml:"drawing"`
	LegacyDrawing         *rawElem        `xml:"legacyDrawing"`
	Picture               *rawElem        `xml:"picture"`
	TableParts            *xlsxTableParts `xml:"tableParts"`
	ExtLst                *rawElem        `xml:"extLst"`
}

type xlsxSheetData struct {
	Row []xlsxRow `xml:"row"`
}

// xlsxRow maps the row element. r, ht, customHeight and spans are managed by
// the writer; remaining attributes ride along untouched.
type xlsxRow struct {
	R            int        `xml:"r,attr,omitempty"`
	Ht           *float64   `xml:"ht,attr"`
	CustomHeight bool       `xml:"customHeight,attr,omitempty"`
	Spans        string     `xml:"spans,attr,omitempty"`
	Attrs        []xml.Attr `xml:",any,attr"`
	C            []xlsxC    `xml:"c"`
}

type xlsxC struct {
	R  string  `xml:"r,attr,omitempty"` // cell reference, e.g. A1
	S  int     `xml:"s,attr,omitempty"` // style index
	T  string  `xml:"t,attr,omitempty"` // value type
	F  *xlsxF  `xml:"f,omitempty"`      // formula
	V  string  `xml:"v,omitempty"`      // value
	IS *xlsxIS `xml:"is"`               // inline string
}

type xlsxF struct {
	Content string `xml:",chardata"`
	T       string `xml:"t,attr,omitempty"`
	Ref     string `xml:"ref,attr,omitempty"`
	Si      *int   `xml:"si,attr"`
}

type xlsxIS struct {
	T *string       `xml:"t"`
	R []xlsxRichRun `xml:"r"`
}

type xlsxRichRun struct {
	T string `xml:"t"`
}

func (is *xlsxIS) text() string {
	if is == nil {
		return ""
	}
	if is.T != nil {
		return *is.T
	}
	var b strings.Builder
	for _, r := range is.R {
		b.WriteString(r.T)
	}
	return b.String()
}

// xlsxSST maps the shared string table. Read-only: new string values are
// written as inline strings, so the table is never rewritten.
type xlsxSST struct {
	SI []xlsxSI `xml:"si"`
}

type xlsxSI struct {
	T *string       `xml:"t"`
	R []xlsxRichRun `xml:"r"`
}

func (si *xlsxSI) text() string {
	if si.T != nil {
		return *si.T
	}
	var b strings.Builder
	for _, r := range si.R {
		b.WriteString(r.T)
	}
	return b.String()
}

type xlsxTableParts struct {
	Count      int             `xml:"count,attr,omitempty"`
	TableParts []xlsxTablePart `xml:"tablePart"`
}

type xlsxTablePart struct {
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

// xlsxTable maps a table part. Geometry attributes are interpreted; column
// definitions and style info are carried through.
type xlsxTable struct {
	XMLName        xml.Name             `xml:"table"`
	ID             int                  `xml:"id,attr"`
	Name           string               `xml:"name,attr,omitempty"`
	DisplayName    string               `xml:"displayName,attr"`
	Ref            string               `xml:"ref,attr"`
	HeaderRowCount *int                 `xml:"headerRowCount,attr"`
	TotalsRowCount int                  `xml:"totalsRowCount,attr,omitempty"`
	TotalsRowShown *bool                `xml:"totalsRowShown,attr"`
	Attrs          []xml.Attr           `xml:",any,attr"`
	AutoFilter     *xlsxTableAutoFilter `xml:"autoFilter"`
	TableColumns   xlsxTableColumns     `xml:"tableColumns"`
	TableStyleInfo *rawElem             `xml:"tableStyleInfo"`
	ExtLst         *rawElem             `xml:"extLst"`
}

type xlsxTableAutoFilter struct {
	Ref   string     `xml:"ref,attr"`
	Attrs []xml.Attr `xml:",any,attr"`
	Inner string     `xml:",innerxml"`
}

type xlsxTableColumns struct {
	Count   int               `xml:"count,attr"`
	Columns []xlsxTableColumn `xml:"tableColumn"`
}

type xlsxTableColumn struct {
	ID    int        `xml:"id,attr"`
	Name  string     `xml:"name,attr"`
	Attrs []xml.Attr `xml:",any,attr"`
	Inner string     `xml:",innerxml"`
}

// xlsxStyleSheet maps the styles part. Only cellXfs is interpreted; the other
// blocks are carried through verbatim.
type xlsxStyleSheet struct {
	XMLName      xml.Name     `xml:"styleSheet"`
	NumFmts      *rawElem     `xml:"numFmts"`
	Fonts        *rawElem     `xml:"fonts"`
	Fills        *rawElem     `xml:"fills"`
	Borders      *rawElem     `xml:"borders"`
	CellStyleXfs *rawElem     `xml:"cellStyleXfs"`
	CellXfs      *xlsxCellXfs `xml:"cellXfs"`
	CellStyles   *rawElem     `xml:"cellStyles"`
	Dxfs         *rawElem     `xml:"dxfs"`
	TableStyles  *rawElem     `xml:"tableStyles"`
	Colors       *rawElem     `xml:"colors"`
	ExtLst       *rawElem     `xml:"extLst"`
}

type xlsxCellXfs struct {
	Count int      `xml:"count,attr"`
	Xf    []xlsxXf `xml:"xf"`
}

type xlsxXf struct {
	NumFmtID          int            `xml:"numFmtId,attr"`
	FontID            int            `xml:"fontId,attr"`
	FillID            int            `xml:"fillId,attr"`
	BorderID          int            `xml:"borderId,attr"`
	XfID              *int           `xml:"xfId,attr"`
	ApplyNumberFormat bool           `xml:"applyNumberFormat,attr,omitempty"`
	ApplyFont         bool           `xml:"applyFont,attr,omitempty"`
	ApplyFill         bool           `xml:"applyFill,attr,omitempty"`
	ApplyBorder       bool           `xml:"applyBorder,attr,omitempty"`
	ApplyAlignment    bool           `xml:"applyAlignment,attr,omitempty"`
	Attrs             []xml.Attr     `xml:",any,attr"`
	Alignment         *xlsxAlignment `xml:"alignment"`
	Protection        *rawElem       `xml:"protection"`
}

type xlsxAlignment struct {
	Horizontal string     `xml:"horizontal,attr,omitempty"`
	Vertical   string     `xml:"vertical,attr,omitempty"`
	WrapText   bool       `xml:"wrapText,attr,omitempty"`
	Attrs      []xml.Attr `xml:",any,attr"`
}

var xmlEsc = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escape(s string) string {
	return xmlEsc.Replace(s)
}

// attrName maps a parsed attribute back to its serialized name, or "" when
// the attribute cannot be re-emitted (unknown namespace, nested namespace
// declarations; the writer re-issues the declarations it needs at the root).
func attrName(a xml.Attr) string {
	switch a.Name.Space {
	case "":
		if a.Name.Local == "xmlns" {
			return ""
		}
		return a.Name.Local
	case "xmlns":
		return ""
	case nsMain:
		return a.Name.Local
	case nsRel:
		return "r:" + a.Name.Local
	case nsMC:
		return "mc:" + a.Name.Local
	case nsX14ac:
		return "x14ac:" + a.Name.Local
	case nsXR:
		return "xr:" + a.Name.Local
	default:
		return ""
	}
}

func writeAttrs(b *bytes.Buffer, attrs []xml.Attr) {
	for _, a := range attrs {
		name := attrName(a)
		if name == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(escape(a.Value))
		b.WriteByte('"')
	}
}

// writeRaw re-emits a carried-through element.
func writeRaw(b *bytes.Buffer, name string, e *rawElem) {
	if e == nil {
		return
	}
	b.WriteByte('<')
	b.WriteString(name)
	writeAttrs(b, e.Attrs)
	if e.Inner == "" {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	b.WriteString(e.Inner)
	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
}

func writeRawList(b *bytes.Buffer, name string, list []rawElem) {
	for i := range list {
		writeRaw(b, name, &list[i])
	}
}
