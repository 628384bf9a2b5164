package xlsx_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/trainlog/internal/workbook"
	"github.com/ganot/trainlog/internal/xlsx"
)

func saveAndReopen(t *testing.T, d *xlsx.Document) *xlsx.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, d.SaveTo(&buf))
	reopened, err := xlsx.OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return reopened
}

func newLogWorkbook(t *testing.T) (*xlsx.Document, *xlsx.Sheet) {
	t.Helper()
	d := xlsx.New()
	s, err := d.AddSheet("Training Log")
	require.NoError(t, err)
	_, err = s.AddTable("Trainings", []string{"Date", "Sport", "Workout", "Distance", "Load"}, "A1")
	require.NoError(t, err)
	return d, s
}

func TestNewWorkbookRoundTrip(t *testing.T) {
	d, s := newLogWorkbook(t)

	start := workbook.NaiveTime(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC))
	require.NoError(t, s.SetValue(2, 1, start))
	require.NoError(t, s.SetValue(2, 2, "running"))
	require.NoError(t, s.SetValue(2, 3, `Tempo & "long" <run>`))
	require.NoError(t, s.SetValue(2, 4, 12.5))
	require.NoError(t, s.SetValue(2, 5, "=D2*2"))
	s.SetRowHeight(2, 18)

	tbl, err := s.Table("Trainings")
	require.NoError(t, err)
	require.NoError(t, tbl.SetRange(workbook.Range{MinCol: 1, MinRow: 1, MaxCol: 5, MaxRow: 2}))

	reopened := saveAndReopen(t, d)
	require.Equal(t, []string{"Training Log"}, reopened.SheetNames())

	sheet, err := reopened.Sheet("Training Log")
	require.NoError(t, err)
	require.Equal(t, "Date", sheet.Value(1, 1))
	require.Equal(t, "running", sheet.Value(2, 2))
	require.Equal(t, `Tempo & "long" <run>`, sheet.Value(2, 3))
	require.Equal(t, 12.5, sheet.Value(2, 4))
	require.Equal(t, "=D2*2", sheet.Value(2, 5))
	require.Nil(t, sheet.Value(3, 1))

	serial, ok := sheet.Value(2, 1).(float64)
	require.True(t, ok, "timestamps come back as serial numbers")
	require.InDelta(t, xlsx.TimeSerial(start), serial, 1e-9)

	h, ok := sheet.RowHeight(2)
	require.True(t, ok)
	require.Equal(t, 18.0, h)

	tbl, err = sheet.Table("Trainings")
	require.NoError(t, err)
	require.Equal(t, []string{"Date", "Sport", "Workout", "Distance", "Load"}, tbl.Columns())
	require.False(t, tbl.HasTotalsRow())
	require.Equal(t, workbook.Range{MinCol: 1, MinRow: 1, MaxCol: 5, MaxRow: 2}, tbl.Range())
}

func TestLookupSentinels(t *testing.T) {
	d, s := newLogWorkbook(t)

	_, err := d.Sheet("Nope")
	require.ErrorIs(t, err, workbook.ErrSheetNotFound)

	_, err = s.Table("Nope")
	require.ErrorIs(t, err, workbook.ErrTableNotFound)
}

func TestSetValueRejectsZonedTimestamps(t *testing.T) {
	_, s := newLogWorkbook(t)

	err := s.SetValue(2, 1, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, workbook.ErrValueType)

	err = s.SetValue(2, 1, struct{}{})
	require.ErrorIs(t, err, workbook.ErrValueType)
}

func TestTimestampAssignsDateFormat(t *testing.T) {
	d, s := newLogWorkbook(t)

	when := workbook.NaiveTime(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC))
	require.NoError(t, s.SetValue(2, 1, when))

	st := s.Style(2, 1)
	require.NotNil(t, st)
	require.Equal(t, 22, st.NumFmtID)
	require.True(t, st.ApplyNumberFormat)

	reopened := saveAndReopen(t, d)
	sheet, err := reopened.Sheet("Training Log")
	require.NoError(t, err)
	st = sheet.Style(2, 1)
	require.NotNil(t, st)
	require.Equal(t, 22, st.NumFmtID)
}

func TestStyleRoundTrip(t *testing.T) {
	d, s := newLogWorkbook(t)

	s.SetStyle(2, 4, &workbook.Style{
		NumFmtID:          2,
		ApplyNumberFormat: true,
		ApplyAlignment:    true,
		Alignment:         workbook.Alignment{Horizontal: "right", WrapText: true},
	})
	require.NoError(t, s.SetValue(2, 4, 12.5))

	reopened := saveAndReopen(t, d)
	sheet, err := reopened.Sheet("Training Log")
	require.NoError(t, err)

	st := sheet.Style(2, 4)
	require.NotNil(t, st)
	require.Equal(t, 2, st.NumFmtID)
	require.True(t, st.ApplyNumberFormat)
	require.Equal(t, "right", st.Alignment.Horizontal)
	require.True(t, st.Alignment.WrapText)

	// The header cell carries no explicit format.
	require.Nil(t, sheet.Style(1, 1))
}

func TestStyledEmptyCellSurvives(t *testing.T) {
	d, s := newLogWorkbook(t)

	s.SetStyle(2, 1, &workbook.Style{NumFmtID: 22, ApplyNumberFormat: true})

	reopened := saveAndReopen(t, d)
	sheet, err := reopened.Sheet("Training Log")
	require.NoError(t, err)
	require.Nil(t, sheet.Value(2, 1))
	st := sheet.Style(2, 1)
	require.NotNil(t, st)
	require.Equal(t, 22, st.NumFmtID)
}

func TestGrowTableOnOpenedWorkbook(t *testing.T) {
	d, _ := newLogWorkbook(t)
	opened := saveAndReopen(t, d)

	sheet, err := opened.Sheet("Training Log")
	require.NoError(t, err)
	tbl, err := sheet.Table("Trainings")
	require.NoError(t, err)

	grown := tbl.Range()
	grown.MaxRow++
	require.NoError(t, tbl.SetRange(grown))
	require.NoError(t, sheet.SetValue(2, 2, "cycling"))

	final := saveAndReopen(t, opened)
	sheet, err = final.Sheet("Training Log")
	require.NoError(t, err)
	tbl, err = sheet.Table("Trainings")
	require.NoError(t, err)
	require.Equal(t, grown, tbl.Range())
	require.Equal(t, "cycling", sheet.Value(2, 2))
	// Header row written before the reopen is still there.
	require.Equal(t, "Date", sheet.Value(1, 1))
}

func TestOpenedWorkbookRejectsStructuralAdds(t *testing.T) {
	d, _ := newLogWorkbook(t)
	opened := saveAndReopen(t, d)

	_, err := opened.AddSheet("More")
	require.Error(t, err)
}

// buildPackage assembles a raw workbook package from part contents.
func buildPackage(t *testing.T, parts [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p[0])
		require.NoError(t, err)
		_, err = io.WriteString(w, p[1])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const nsMain = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
const nsRel = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
const nsPkgRel = "http://schemas.openxmlformats.org/package/2006/relationships"

func TestSharedFormulasExpandPerRow(t *testing.T) {
	pkg := buildPackage(t, [][2]string{
		{"_rels/.rels", `<Relationships xmlns="` + nsPkgRel + `"><Relationship Id="rId1" Type="` + nsRel + `/officeDocument" Target="xl/workbook.xml"/></Relationships>`},
		{"xl/workbook.xml", `<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRel + `"><sheets><sheet name="Log" sheetId="1" r:id="rId1"/></sheets></workbook>`},
		{"xl/_rels/workbook.xml.rels", `<Relationships xmlns="` + nsPkgRel + `"><Relationship Id="rId1" Type="` + nsRel + `/worksheet" Target="worksheets/sheet1.xml"/></Relationships>`},
		{"xl/worksheets/sheet1.xml", `<worksheet xmlns="` + nsMain + `"><sheetData>` +
			`<row r="2"><c r="A2"><v>1</v></c><c r="B2"><v>2</v></c><c r="C2"><f t="shared" ref="C2:C3" si="0">A2+B2</f><v>3</v></c></row>` +
			`<row r="3"><c r="A3"><v>4</v></c><c r="B3"><v>5</v></c><c r="C3"><f t="shared" si="0"/><v>9</v></c></row>` +
			`</sheetData></worksheet>`},
	})

	d, err := xlsx.OpenReader(bytes.NewReader(pkg), int64(len(pkg)))
	require.NoError(t, err)
	sheet, err := d.Sheet("Log")
	require.NoError(t, err)
	require.Equal(t, "=A2+B2", sheet.Value(2, 3))
	require.Equal(t, "=A3+B3", sheet.Value(3, 3))
}

func TestTotalsRowDetection(t *testing.T) {
	pkg := buildPackage(t, [][2]string{
		{"_rels/.rels", `<Relationships xmlns="` + nsPkgRel + `"><Relationship Id="rId1" Type="` + nsRel + `/officeDocument" Target="xl/workbook.xml"/></Relationships>`},
		{"xl/workbook.xml", `<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRel + `"><sheets><sheet name="Log" sheetId="1" r:id="rId1"/></sheets></workbook>`},
		{"xl/_rels/workbook.xml.rels", `<Relationships xmlns="` + nsPkgRel + `"><Relationship Id="rId1" Type="` + nsRel + `/worksheet" Target="worksheets/sheet1.xml"/></Relationships>`},
		{"xl/worksheets/sheet1.xml", `<worksheet xmlns="` + nsMain + `" xmlns:r="` + nsRel + `"><sheetData>` +
			`<row r="1"><c r="A1" t="inlineStr"><is><t>Date</t></is></c><c r="B1" t="inlineStr"><is><t>Load</t></is></c></row>` +
			`</sheetData><tableParts count="1"><tablePart r:id="rId1"/></tableParts></worksheet>`},
		{"xl/worksheets/_rels/sheet1.xml.rels", `<Relationships xmlns="` + nsPkgRel + `"><Relationship Id="rId1" Type="` + nsRel + `/table" Target="../tables/table1.xml"/></Relationships>`},
		{"xl/tables/table1.xml", `<table xmlns="` + nsMain + `" id="1" displayName="Totals" ref="A1:B3" totalsRowCount="1"><tableColumns count="2"><tableColumn id="1" name="Date"/><tableColumn id="2" name="Load"/></tableColumns></table>`},
	})

	d, err := xlsx.OpenReader(bytes.NewReader(pkg), int64(len(pkg)))
	require.NoError(t, err)
	sheet, err := d.Sheet("Log")
	require.NoError(t, err)
	tbl, err := sheet.Table("Totals")
	require.NoError(t, err)
	require.True(t, tbl.HasTotalsRow())
	require.Equal(t, workbook.Range{MinCol: 1, MinRow: 1, MaxCol: 2, MaxRow: 3}, tbl.Range())
	require.Equal(t, "Date", sheet.Value(1, 1))
}

func TestSharedStringsAreResolved(t *testing.T) {
	pkg := buildPackage(t, [][2]string{
		{"_rels/.rels", `<Relationships xmlns="` + nsPkgRel + `"><Relationship Id="rId1" Type="` + nsRel + `/officeDocument" Target="xl/workbook.xml"/></Relationships>`},
		{"xl/workbook.xml", `<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRel + `"><sheets><sheet name="Log" sheetId="1" r:id="rId1"/></sheets></workbook>`},
		{"xl/_rels/workbook.xml.rels", `<Relationships xmlns="` + nsPkgRel + `">` +
			`<Relationship Id="rId1" Type="` + nsRel + `/worksheet" Target="worksheets/sheet1.xml"/>` +
			`<Relationship Id="rId2" Type="` + nsRel + `/sharedStrings" Target="sharedStrings.xml"/>` +
			`</Relationships>`},
		{"xl/sharedStrings.xml", `<sst xmlns="` + nsMain + `" count="2" uniqueCount="2"><si><t>running</t></si><si><r><t>long </t></r><r><t>run</t></r></si></sst>`},
		{"xl/worksheets/sheet1.xml", `<worksheet xmlns="` + nsMain + `"><sheetData>` +
			`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>` +
			`</sheetData></worksheet>`},
	})

	d, err := xlsx.OpenReader(bytes.NewReader(pkg), int64(len(pkg)))
	require.NoError(t, err)
	sheet, err := d.Sheet("Log")
	require.NoError(t, err)
	require.Equal(t, "running", sheet.Value(1, 1))
	require.Equal(t, "long run", sheet.Value(1, 2))
}

func TestUnknownWorksheetContentSurvivesRewrite(t *testing.T) {
	pkg := buildPackage(t, [][2]string{
		{"_rels/.rels", `<Relationships xmlns="` + nsPkgRel + `"><Relationship Id="rId1" Type="` + nsRel + `/officeDocument" Target="xl/workbook.xml"/></Relationships>`},
		{"xl/workbook.xml", `<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRel + `"><sheets><sheet name="Log" sheetId="1" r:id="rId1"/></sheets></workbook>`},
		{"xl/_rels/workbook.xml.rels", `<Relationships xmlns="` + nsPkgRel + `"><Relationship Id="rId1" Type="` + nsRel + `/worksheet" Target="worksheets/sheet1.xml"/></Relationships>`},
		{"xl/worksheets/sheet1.xml", `<worksheet xmlns="` + nsMain + `">` +
			`<sheetViews><sheetView workbookViewId="0"><pane ySplit="1" topLeftCell="A2" state="frozen"/></sheetView></sheetViews>` +
			`<cols><col min="1" max="1" width="18.5" customWidth="1"/></cols>` +
			`<sheetData><row r="1"><c r="A1"><v>7</v></c></row></sheetData>` +
			`<mergeCells count="1"><mergeCell ref="B1:C1"/></mergeCells>` +
			`</worksheet>`},
	})

	d, err := xlsx.OpenReader(bytes.NewReader(pkg), int64(len(pkg)))
	require.NoError(t, err)
	sheet, err := d.Sheet("Log")
	require.NoError(t, err)
	require.NoError(t, sheet.SetValue(2, 1, 8.0))

	var buf bytes.Buffer
	require.NoError(t, d.SaveTo(&buf))
	reopened, err := xlsx.OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	raw := readPackagePart(t, buf.Bytes(), "xl/worksheets/sheet1.xml")
	require.Contains(t, raw, `state="frozen"`)
	require.Contains(t, raw, `width="18.5"`)
	require.Contains(t, raw, `<mergeCell ref="B1:C1"/>`)

	sheet, err = reopened.Sheet("Log")
	require.NoError(t, err)
	require.Equal(t, 7.0, sheet.Value(1, 1))
	require.Equal(t, 8.0, sheet.Value(2, 1))
}

func readPackagePart(t *testing.T, pkg []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(data)
		}
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func TestTimeSerial(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.InDelta(t, 45413.0, xlsx.TimeSerial(day), 1e-9)

	noon := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.InDelta(t, 45413.5, xlsx.TimeSerial(noon), 1e-9)

	// The location never contributes: only the clock reading is encoded.
	zoned := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	require.InDelta(t, 45413.5, xlsx.TimeSerial(zoned), 1e-9)
}
