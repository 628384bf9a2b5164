package mocks

import (
	"github.com/ganot/trainlog/internal/workbook"
	"github.com/stretchr/testify/mock"
)

// Store is a mock for workbook.Store.
type Store struct {
	mock.Mock
}

func (m *Store) Open(path string) (workbook.Document, error) {
	args := m.Called(path)
	if doc, ok := args.Get(0).(workbook.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

// Document is a mock for workbook.Document.
type Document struct {
	mock.Mock
}

func (m *Document) Sheet(name string) (workbook.Sheet, error) {
	args := m.Called(name)
	if sheet, ok := args.Get(0).(workbook.Sheet); ok {
		return sheet, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Document) Save() error {
	return m.Called().Error(0)
}

func (m *Document) Close() error {
	return m.Called().Error(0)
}

// Sheet is a mock for workbook.Sheet.
type Sheet struct {
	mock.Mock
}

func (m *Sheet) Table(name string) (workbook.Table, error) {
	args := m.Called(name)
	if table, ok := args.Get(0).(workbook.Table); ok {
		return table, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Sheet) Value(row, col int) any {
	return m.Called(row, col).Get(0)
}

func (m *Sheet) SetValue(row, col int, v any) error {
	return m.Called(row, col, v).Error(0)
}

func (m *Sheet) Style(row, col int) *workbook.Style {
	args := m.Called(row, col)
	if st, ok := args.Get(0).(*workbook.Style); ok {
		return st
	}
	return nil
}

func (m *Sheet) SetStyle(row, col int, st *workbook.Style) {
	m.Called(row, col, st)
}

func (m *Sheet) RowHeight(row int) (float64, bool) {
	args := m.Called(row)
	return args.Get(0).(float64), args.Bool(1)
}

func (m *Sheet) SetRowHeight(row int, height float64) {
	m.Called(row, height)
}

// Table is a mock for workbook.Table.
type Table struct {
	mock.Mock
}

func (m *Table) Name() string {
	return m.Called().String(0)
}

func (m *Table) Columns() []string {
	args := m.Called()
	if cols, ok := args.Get(0).([]string); ok {
		return cols
	}
	return nil
}

func (m *Table) HasTotalsRow() bool {
	return m.Called().Bool(0)
}

func (m *Table) Range() workbook.Range {
	return m.Called().Get(0).(workbook.Range)
}

func (m *Table) SetRange(r workbook.Range) error {
	return m.Called(r).Error(0)
}
