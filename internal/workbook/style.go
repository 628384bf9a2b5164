package workbook

// Style is the formatting record attached to a cell, mirroring one cell
// format (xf) entry of the document's style sheet: indexes into the shared
// number-format, font, fill and border tables plus the apply flags and inline
// alignment. It is a plain value type so that propagating a style from one
// row to another is a copy, never a shared reference.
type Style struct {
	NumFmtID int
	FontID   int
	FillID   int
	BorderID int
	XfID     int

	ApplyNumberFormat bool
	ApplyFont         bool
	ApplyFill         bool
	ApplyBorder       bool
	ApplyAlignment    bool

	Alignment Alignment
}

// Alignment is the inline alignment block of a cell format.
type Alignment struct {
	Horizontal string
	Vertical   string
	WrapText   bool
}

// Clone returns an independent copy of the style. Cloning nil yields nil.
func (s *Style) Clone() *Style {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// IsZero reports whether the style is indistinguishable from the default
// cell format.
func (s Style) IsZero() bool {
	return s == Style{}
}
