// Package xlsx reads and writes Office Open XML workbooks at the level the
// append pipeline needs: sheet cells, row heights, cell formats and table
// parts. Parts of an opened package that are not touched by an edit are
// carried through a save byte for byte; a document that is closed without
// saving leaves its file untouched.
package xlsx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ganot/trainlog/internal/workbook"
)

const nsCT = "http://schemas.openxmlformats.org/package/2006/content-types"

// Document is an open workbook package.
type Document struct {
	path   string
	src    *zip.Reader
	parts  map[string]*zip.File
	closer io.Closer
	closed bool

	sheets     []*Sheet
	byName     map[string]*Sheet
	styles     *styleSheet
	stylesPart string
	sst        []string
	nextTID    int
}

// Store opens workbook files from disk. It is the concrete document store
// the append pipeline runs against.
type Store struct{}

// NewStore returns a disk-backed Store.
func NewStore() Store { return Store{} }

// Open opens the workbook at path for editing in place.
func (Store) Open(path string) (workbook.Document, error) {
	d, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// New returns an empty in-memory workbook. Sheets and tables can be added
// until the first save; opened documents reject structural additions.
func New() *Document {
	return &Document{
		byName:     make(map[string]*Sheet),
		styles:     newStyleSheet(),
		stylesPart: "xl/styles.xml",
	}
}

// OpenFile opens the workbook file at path. The file stays open until Close.
func OpenFile(pathname string) (*Document, error) {
	f, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	zr, err := zip.NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading workbook package %s: %w", pathname, err)
	}
	d, err := openZip(zr)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.path = pathname
	d.closer = f
	return d, nil
}

// OpenReader opens a workbook package from an in-memory reader.
func OpenReader(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("reading workbook package: %w", err)
	}
	return openZip(zr)
}

func openZip(zr *zip.Reader) (*Document, error) {
	d := &Document{
		src:    zr,
		parts:  make(map[string]*zip.File, len(zr.File)),
		byName: make(map[string]*Sheet),
	}
	for _, f := range zr.File {
		d.parts[path.Clean(strings.TrimPrefix(f.Name, "/"))] = f
	}

	rootRels, err := d.readRels("")
	if err != nil {
		return nil, err
	}
	wbPart := ""
	for _, rel := range rootRels {
		if rel.Type == relTypeOfficeDocument {
			wbPart = resolveTarget("", rel.Target)
			break
		}
	}
	if wbPart == "" {
		return nil, errors.New("package has no workbook part")
	}
	wbData, err := d.readPart(wbPart)
	if err != nil {
		return nil, err
	}
	var wb xlsxWorkbook
	if err := xml.Unmarshal(wbData, &wb); err != nil {
		return nil, fmt.Errorf("parsing workbook part: %w", err)
	}
	wbDir := path.Dir(wbPart)
	wbRels, err := d.readRels(wbPart)
	if err != nil {
		return nil, err
	}
	relByID := make(map[string]xlsxRelationship, len(wbRels))
	for _, rel := range wbRels {
		relByID[rel.ID] = rel
		switch rel.Type {
		case relTypeStyles:
			d.stylesPart = resolveTarget(wbDir, rel.Target)
		case relTypeSharedStrings:
			sstPart := resolveTarget(wbDir, rel.Target)
			data, err := d.readPart(sstPart)
			if err != nil {
				return nil, err
			}
			var sst xlsxSST
			if err := xml.Unmarshal(data, &sst); err != nil {
				return nil, fmt.Errorf("parsing shared strings: %w", err)
			}
			d.sst = make([]string, len(sst.SI))
			for i := range sst.SI {
				d.sst[i] = sst.SI[i].text()
			}
		}
	}
	if d.stylesPart != "" {
		data, err := d.readPart(d.stylesPart)
		if err != nil {
			return nil, err
		}
		d.styles, err = parseStyleSheet(data)
		if err != nil {
			return nil, err
		}
	} else {
		d.styles = newStyleSheet()
		d.stylesPart = path.Join(wbDir, "styles.xml")
	}

	for _, ws := range wb.Sheets.Sheet {
		rel, ok := relByID[ws.RID]
		if !ok || rel.Type != relTypeWorksheet {
			continue
		}
		part := resolveTarget(wbDir, rel.Target)
		data, err := d.readPart(part)
		if err != nil {
			return nil, err
		}
		sheet, err := parseSheet(d, ws.Name, part, data)
		if err != nil {
			return nil, err
		}
		if err := d.loadTables(sheet); err != nil {
			return nil, err
		}
		d.sheets = append(d.sheets, sheet)
		d.byName[ws.Name] = sheet
	}
	return d, nil
}

func (d *Document) loadTables(sheet *Sheet) error {
	if len(sheet.tablePartRIDs) == 0 {
		return nil
	}
	rels, err := d.readRels(sheet.part)
	if err != nil {
		return err
	}
	relByID := make(map[string]xlsxRelationship, len(rels))
	for _, rel := range rels {
		relByID[rel.ID] = rel
	}
	dir := path.Dir(sheet.part)
	for _, rid := range sheet.tablePartRIDs {
		rel, ok := relByID[rid]
		if !ok || rel.Type != relTypeTable {
			continue
		}
		part := resolveTarget(dir, rel.Target)
		data, err := d.readPart(part)
		if err != nil {
			return err
		}
		t, err := parseTable(sheet, part, data)
		if err != nil {
			return err
		}
		sheet.tables = append(sheet.tables, t)
		if t.xml.ID > d.nextTID {
			d.nextTID = t.xml.ID
		}
	}
	return nil
}

func (d *Document) readPart(name string) ([]byte, error) {
	f, ok := d.parts[name]
	if !ok {
		return nil, fmt.Errorf("package part %s is missing", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading part %s: %w", name, err)
	}
	return data, nil
}

func (d *Document) readRels(part string) ([]xlsxRelationship, error) {
	var relsPart string
	if part == "" {
		relsPart = "_rels/.rels"
	} else {
		relsPart = path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	}
	f, ok := d.parts[relsPart]
	if !ok {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", relsPart, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading part %s: %w", relsPart, err)
	}
	var rels xlsxRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parsing part %s: %w", relsPart, err)
	}
	return rels.Relationship, nil
}

func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	return path.Clean(path.Join(baseDir, target))
}

// Sheet returns the named worksheet.
func (d *Document) Sheet(name string) (workbook.Sheet, error) {
	s, ok := d.byName[name]
	if !ok {
		return nil, workbook.ErrSheetNotFound
	}
	return s, nil
}

// SheetNames lists the worksheets in workbook order.
func (d *Document) SheetNames() []string {
	out := make([]string, len(d.sheets))
	for i, s := range d.sheets {
		out[i] = s.name
	}
	return out
}

// AddSheet appends a worksheet to a workbook created with New.
func (d *Document) AddSheet(name string) (*Sheet, error) {
	if d.src != nil {
		return nil, errors.New("cannot add sheets to an opened workbook")
	}
	if name == "" {
		return nil, errors.New("sheet name is empty")
	}
	if _, ok := d.byName[name]; ok {
		return nil, fmt.Errorf("sheet %q already exists", name)
	}
	s := &Sheet{
		doc:   d,
		name:  name,
		part:  fmt.Sprintf("xl/worksheets/sheet%d.xml", len(d.sheets)+1),
		ws:    &xlsxWorksheet{},
		rows:  make(map[int]*sheetRow),
		dirty: true,
	}
	d.sheets = append(d.sheets, s)
	d.byName[name] = s
	return s, nil
}

// AddTable declares a table on a sheet of a workbook created with New,
// writing the header row and anchoring the table over it.
func (s *Sheet) AddTable(name string, columns []string, topLeft string) (*Table, error) {
	if s.doc.src != nil {
		return nil, errors.New("cannot add tables to an opened workbook")
	}
	if name == "" {
		return nil, errors.New("table name is empty")
	}
	if len(columns) == 0 {
		return nil, errors.New("table needs at least one column")
	}
	for _, sheet := range s.doc.sheets {
		for _, t := range sheet.tables {
			if t.Name() == name {
				return nil, fmt.Errorf("table %q already exists", name)
			}
		}
	}
	row, col, err := workbook.ParseCell(topLeft)
	if err != nil {
		return nil, fmt.Errorf("table anchor %q: %w", topLeft, err)
	}
	for i, colName := range columns {
		if err := s.SetValue(row, col+i, colName); err != nil {
			return nil, err
		}
	}
	rng := workbook.Range{MinCol: col, MinRow: row, MaxCol: col + len(columns) - 1, MaxRow: row}
	s.doc.nextTID++
	id := s.doc.nextTID
	shown := false
	t := &Table{
		sheet: s,
		part:  fmt.Sprintf("xl/tables/table%d.xml", id),
		rng:   rng,
		dirty: true,
	}
	t.xml = xlsxTable{
		ID:             id,
		Name:           name,
		DisplayName:    name,
		Ref:            rng.String(),
		TotalsRowShown: &shown,
		AutoFilter:     &xlsxTableAutoFilter{Ref: rng.String()},
		TableStyleInfo: &rawElem{Attrs: []xml.Attr{
			{Name: xml.Name{Local: "name"}, Value: "TableStyleMedium2"},
			{Name: xml.Name{Local: "showFirstColumn"}, Value: "0"},
			{Name: xml.Name{Local: "showLastColumn"}, Value: "0"},
			{Name: xml.Name{Local: "showRowStripes"}, Value: "1"},
			{Name: xml.Name{Local: "showColumnStripes"}, Value: "0"},
		}},
	}
	t.xml.TableColumns.Count = len(columns)
	for i, colName := range columns {
		t.xml.TableColumns.Columns = append(t.xml.TableColumns.Columns, xlsxTableColumn{ID: i + 1, Name: colName})
	}
	s.tables = append(s.tables, t)
	return t, nil
}

// Save writes the document back to the file it was opened from. The new
// package is written beside the target and moved into place, so a failed
// save leaves the original file as it was.
func (d *Document) Save() error {
	if d.closed {
		return errors.New("document is closed")
	}
	if d.path == "" {
		return errors.New("document has no backing file")
	}
	return d.saveFile(d.path)
}

// SaveAs writes the document to pathname and makes that the backing file.
func (d *Document) SaveAs(pathname string) error {
	if d.closed {
		return errors.New("document is closed")
	}
	if err := d.saveFile(pathname); err != nil {
		return err
	}
	d.path = pathname
	return nil
}

func (d *Document) saveFile(pathname string) error {
	dir := filepath.Dir(pathname)
	tmp, err := os.CreateTemp(dir, ".trainlog-*.xlsx")
	if err != nil {
		return fmt.Errorf("creating temporary workbook: %w", err)
	}
	tmpName := tmp.Name()
	if err := d.SaveTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, pathname); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing workbook: %w", err)
	}
	return nil
}

// SaveTo writes the document as a complete package to w.
func (d *Document) SaveTo(w io.Writer) error {
	if d.closed {
		return errors.New("document is closed")
	}
	zw := zip.NewWriter(w)
	if d.src == nil {
		if err := d.writeGenerated(zw); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}

	dirty := make(map[string][]byte)
	for _, s := range d.sheets {
		if s.dirty {
			dirty[s.part] = s.serialize()
		}
		for _, t := range s.tables {
			if t.dirty {
				dirty[t.part] = t.serialize()
			}
		}
	}
	// Style interning happens while sheets serialize, so the styles part
	// is checked after them.
	if d.styles.dirty {
		dirty[d.stylesPart] = d.styles.serialize()
	}

	written := make(map[string]bool)
	for _, f := range d.src.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		name := path.Clean(strings.TrimPrefix(f.Name, "/"))
		out, err := zw.Create(f.Name)
		if err != nil {
			zw.Close()
			return err
		}
		if data, ok := dirty[name]; ok {
			if _, err := out.Write(data); err != nil {
				zw.Close()
				return err
			}
		} else {
			rc, err := f.Open()
			if err != nil {
				zw.Close()
				return err
			}
			if _, err := io.Copy(out, rc); err != nil {
				rc.Close()
				zw.Close()
				return err
			}
			rc.Close()
		}
		written[name] = true
	}
	for name, data := range dirty {
		if written[name] {
			continue
		}
		out, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return err
		}
		if _, err := out.Write(data); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

// writeGenerated assembles a package for a workbook created with New.
func (d *Document) writeGenerated(zw *zip.Writer) error {
	type part struct {
		name string
		data []byte
	}
	var parts []part

	// Sheets and tables first: serializing them interns any pending styles.
	var sheetParts, tableParts []part
	for _, s := range d.sheets {
		s.tablePartRIDs = s.tablePartRIDs[:0]
		for i := range s.tables {
			s.tablePartRIDs = append(s.tablePartRIDs, "rId"+strconv.Itoa(i+1))
		}
		sheetParts = append(sheetParts, part{s.part, s.serialize()})
		if len(s.tables) > 0 {
			var rels []xlsxRelationship
			for i, t := range s.tables {
				rels = append(rels, xlsxRelationship{
					ID:     "rId" + strconv.Itoa(i+1),
					Type:   relTypeTable,
					Target: "../tables/" + path.Base(t.part),
				})
				tableParts = append(tableParts, part{t.part, t.serialize()})
			}
			relsName := path.Join(path.Dir(s.part), "_rels", path.Base(s.part)+".rels")
			sheetParts = append(sheetParts, part{relsName, writeRels(rels)})
		}
	}

	var ct bytes.Buffer
	ct.WriteString(xml.Header)
	ct.WriteString(`<Types xmlns="` + nsCT + `">`)
	ct.WriteString(`<Default Extension="rels" ContentType="` + ctRels + `"/>`)
	ct.WriteString(`<Default Extension="xml" ContentType="` + ctXML + `"/>`)
	ct.WriteString(`<Override PartName="/xl/workbook.xml" ContentType="` + ctWorkbook + `"/>`)
	ct.WriteString(`<Override PartName="/xl/styles.xml" ContentType="` + ctStyles + `"/>`)
	for _, s := range d.sheets {
		ct.WriteString(`<Override PartName="/` + s.part + `" ContentType="` + ctWorksheet + `"/>`)
		for _, t := range s.tables {
			ct.WriteString(`<Override PartName="/` + t.part + `" ContentType="` + ctTable + `"/>`)
		}
	}
	ct.WriteString(`</Types>`)
	parts = append(parts, part{"[Content_Types].xml", ct.Bytes()})

	parts = append(parts, part{"_rels/.rels", writeRels([]xlsxRelationship{
		{ID: "rId1", Type: relTypeOfficeDocument, Target: "xl/workbook.xml"},
	})})

	var wb bytes.Buffer
	wb.WriteString(xml.Header)
	wb.WriteString(`<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRel + `"><sheets>`)
	for i, s := range d.sheets {
		wb.WriteString(`<sheet name="` + escape(s.name) + `" sheetId="` + strconv.Itoa(i+1) + `" r:id="rId` + strconv.Itoa(i+1) + `"/>`)
	}
	wb.WriteString(`</sheets></workbook>`)
	parts = append(parts, part{"xl/workbook.xml", wb.Bytes()})

	wbRels := make([]xlsxRelationship, 0, len(d.sheets)+1)
	for i, s := range d.sheets {
		wbRels = append(wbRels, xlsxRelationship{
			ID:     "rId" + strconv.Itoa(i+1),
			Type:   relTypeWorksheet,
			Target: "worksheets/" + path.Base(s.part),
		})
	}
	wbRels = append(wbRels, xlsxRelationship{
		ID:     "rId" + strconv.Itoa(len(d.sheets)+1),
		Type:   relTypeStyles,
		Target: "styles.xml",
	})
	parts = append(parts, part{"xl/_rels/workbook.xml.rels", writeRels(wbRels)})

	parts = append(parts, part{d.stylesPart, d.styles.serialize()})
	parts = append(parts, sheetParts...)
	parts = append(parts, tableParts...)

	for _, p := range parts {
		out, err := zw.Create(p.name)
		if err != nil {
			return err
		}
		if _, err := out.Write(p.data); err != nil {
			return err
		}
	}
	return nil
}

func writeRels(rels []xlsxRelationship) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="` + nsPkgRel + `">`)
	for _, r := range rels {
		b.WriteString(`<Relationship Id="` + escape(r.ID) + `" Type="` + escape(r.Type) + `" Target="` + escape(r.Target) + `"`)
		if r.TargetMode != "" {
			b.WriteString(` TargetMode="` + escape(r.TargetMode) + `"`)
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

// Close releases the underlying file. Closing without saving leaves the
// persisted form exactly as it was.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
