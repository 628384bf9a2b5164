package workbook

// Store opens spreadsheet documents by path.
type Store interface {
	Open(path string) (Document, error)
}

// Document is one open spreadsheet document. Mutations stay in memory until
// Save; Close releases the document without persisting anything.
type Document interface {
	// Sheet resolves a worksheet by name, returning ErrSheetNotFound if absent.
	Sheet(name string) (Sheet, error)
	// Save persists the current in-memory state back to the document's origin.
	Save() error
	// Close releases the document. Closing without saving leaves the persisted
	// form untouched.
	Close() error
}

// Sheet exposes the cell-level primitives of one worksheet. Rows and columns
// are 1-based. A textual value beginning with "=" is a formula.
type Sheet interface {
	// Table resolves a table by name, returning ErrTableNotFound if absent.
	Table(name string) (Table, error)
	// Value returns the cell's value, or nil for an empty cell.
	Value(row, col int) any
	// SetValue writes a value into the cell. Supported types: nil, string,
	// bool, int variants, float64 and time.Time.
	SetValue(row, col int, v any) error
	// Style returns the cell's style, or nil if the cell carries none. The
	// returned pointer aliases the live style; use Clone before reusing it on
	// another cell.
	Style(row, col int) *Style
	// SetStyle attaches a style to the cell.
	SetStyle(row, col int, st *Style)
	// RowHeight returns a row's explicit height, if one is set.
	RowHeight(row int) (float64, bool)
	// SetRowHeight sets a row's explicit height.
	SetRowHeight(row int, height float64)
}

// Table is a named table region inside a sheet.
type Table interface {
	Name() string
	// Columns returns the header column names in declared order.
	Columns() []string
	// HasTotalsRow reports whether the table renders a totals row below its
	// data rows.
	HasTotalsRow() bool
	// Range returns the table's current extent, header row included.
	Range() Range
	// SetRange redeclares the table's extent.
	SetRange(r Range) error
}
