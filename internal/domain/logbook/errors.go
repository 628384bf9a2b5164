package logbook

import "errors"

var (
	// ErrTotalsRow is returned when the target table reserves a totals row.
	// The row below the data region belongs to the totals then, and an
	// append would collide with it.
	ErrTotalsRow = errors.New("table has a totals row")

	// ErrUnknownColumns is returned when a row names columns the table does
	// not have.
	ErrUnknownColumns = errors.New("unknown columns")

	// ErrUnknownField is returned when a column mapping names a metric that
	// does not exist.
	ErrUnknownField = errors.New("unknown metrics field")

	// ErrRowNotEmpty is returned when the row an append would claim already
	// holds data.
	ErrRowNotEmpty = errors.New("append would overwrite data")
)
