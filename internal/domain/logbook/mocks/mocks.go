package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ganot/trainlog/internal/domain/activity"
	"github.com/ganot/trainlog/internal/domain/logbook"
)

// Decoder is a mock for logbook.Decoder.
type Decoder struct {
	mock.Mock
}

func (m *Decoder) DecodeFile(path string) (*activity.Record, []string, error) {
	args := m.Called(path)
	var rec *activity.Record
	if r, ok := args.Get(0).(*activity.Record); ok {
		rec = r
	}
	var warnings []string
	if w, ok := args.Get(1).([]string); ok {
		warnings = w
	}
	return rec, warnings, args.Error(2)
}

// ExportLog is a mock for logbook.ExportLog.
type ExportLog struct {
	mock.Mock
}

func (m *ExportLog) Contains(ctx context.Context, workbook, table, file string) (bool, error) {
	args := m.Called(ctx, workbook, table, file)
	return args.Bool(0), args.Error(1)
}

func (m *ExportLog) Add(ctx context.Context, entries []logbook.ExportEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *ExportLog) List(ctx context.Context, workbook string, limit int) ([]logbook.ExportEntry, error) {
	args := m.Called(ctx, workbook, limit)
	if entries, ok := args.Get(0).([]logbook.ExportEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}
