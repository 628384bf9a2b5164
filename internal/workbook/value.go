package workbook

import "time"

// Naive is the location assigned to wall-clock timestamps that carry no
// timezone. Spreadsheet cells store plain clock readings, so every timestamp
// read from or destined for a grid is expressed in this zero-offset location.
// Identity matters: IsNaive compares against this exact value.
var Naive = time.FixedZone("", 0)

// NaiveTime rebases t's wall-clock reading into the Naive location,
// discarding the original zone.
func NaiveTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), Naive)
}

// IsNaive reports whether t is a zone-less wall-clock reading produced by
// NaiveTime (or read back from a grid).
func IsNaive(t time.Time) bool {
	return t.Location() == Naive
}
