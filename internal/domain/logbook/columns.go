package logbook

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ganot/trainlog/internal/domain/activity"
)

// ColumnMap routes metrics into table columns, keyed by metric field.
type ColumnMap map[activity.Field]string

// MapRow builds the column-to-value row for one activity. Metrics the
// activity does not carry map to nil, which leaves the cell empty but keeps
// the column subject to validation. Fields that name no known metric abort
// with ErrUnknownField.
func MapRow(m *activity.Metrics, columns ColumnMap) (map[string]any, error) {
	var unknown []string
	row := make(map[string]any, len(columns))
	for field, column := range columns {
		if !field.Valid() {
			unknown = append(unknown, string(field))
			continue
		}
		v, _ := m.Value(field)
		row[column] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(unknown, ", "))
	}
	return row, nil
}
