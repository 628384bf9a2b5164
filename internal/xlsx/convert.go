package xlsx

import (
	"time"

	"github.com/ganot/trainlog/internal/workbook"
)

// serialEpoch is day zero of the serial date system. 1899-12-30 folds the
// historical Lotus leap-year bug into the epoch so that day 1 is 1900-01-01.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// TimeSerial converts a timestamp to the serial number stored in a cell.
// Only the wall-clock reading matters; the location carries no information
// at the grid level.
func TimeSerial(t time.Time) float64 {
	u := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return float64(u.Sub(serialEpoch)) / float64(24*time.Hour)
}

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05",
}

// parseISOTime reads the ISO 8601 form used by cells typed d.
func parseISOTime(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, workbook.Naive); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
