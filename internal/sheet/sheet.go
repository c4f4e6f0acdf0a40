// Package sheet reads raw spreadsheet data for the conversion pipeline.
//
// A sheet follows the three-header-row layout: row 1 is a human
// description, row 2 holds field names, row 3 holds declared type
// expressions, and data starts at row 4. The reader hands the pipeline
// raw strings only; all typing happens downstream in package decode.
package sheet

import "fmt"

// Field is one column declared by a sheet's header rows.
type Field struct {
	Name     string
	TypeExpr string // declared type from the type row, raw
	Column   int    // 1-based column of the field's first cell
}

// RawRow is one raw data row: field name to cell text, blank cells as "".
type RawRow struct {
	Index int // 1-based sheet row index, for diagnostics
	Cells map[string]string
}

// RawSheet is the raw content of one (file, sheet) source.
type RawSheet struct {
	File   string
	Sheet  string
	Fields []Field
	Rows   []RawRow
}

// Field returns the declared column named name.
func (s *RawSheet) Field(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// HasField reports whether the sheet's header row declares name.
func (s *RawSheet) HasField(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// Reader supplies raw sheets per source descriptor. Implementations:
// ExcelReader for xlsx files, MemoryReader for tests.
type Reader interface {
	Read(file, sheet string) (*RawSheet, error)
}

// MemoryReader serves pre-built sheets from memory.
type MemoryReader struct {
	sheets map[string]*RawSheet
}

// NewMemoryReader creates an empty MemoryReader.
func NewMemoryReader() *MemoryReader {
	return &MemoryReader{sheets: make(map[string]*RawSheet)}
}

// Add registers a sheet under its own (File, Sheet) pair.
func (m *MemoryReader) Add(s *RawSheet) *MemoryReader {
	m.sheets[s.File+"#"+s.Sheet] = s
	return m
}

// Read implements Reader.
func (m *MemoryReader) Read(file, sheet string) (*RawSheet, error) {
	s, ok := m.sheets[file+"#"+sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found in %q", sheet, file)
	}
	return s, nil
}
