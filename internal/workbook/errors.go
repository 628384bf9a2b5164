package workbook

import "errors"

var (
	// ErrSheetNotFound is returned when a named sheet doesn't exist in a document.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrTableNotFound is returned when a named table doesn't exist in a sheet.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidRef is returned when a cell or range reference cannot be parsed.
	ErrInvalidRef = errors.New("invalid cell reference")

	// ErrValueType is returned when a cell value has an unsupported type.
	ErrValueType = errors.New("unsupported cell value type")
)
