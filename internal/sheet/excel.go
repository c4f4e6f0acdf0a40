package sheet

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	nameRow      = 2 // field names
	typeRow      = 3 // declared types
	firstDataRow = 4
)

// ExcelReader reads xlsx workbooks laid out in the three-header-row
// format. An array-typed column may spill into following columns whose
// name and type cells are blank; the spilled cells are rejoined with
// ArrayJoin before decoding, so array fields read that way must declare
// ArrayJoin as their separator.
type ExcelReader struct {
	// Dir is prepended to source file names.
	Dir string

	// ArrayJoin joins horizontally expanded array cells. Defaults to "|".
	ArrayJoin string
}

// NewExcelReader creates a reader rooted at dir.
func NewExcelReader(dir string) *ExcelReader {
	return &ExcelReader{Dir: dir, ArrayJoin: "|"}
}

// Read implements Reader.
func (r *ExcelReader) Read(file, sheetName string) (*RawSheet, error) {
	path := filepath.Join(r.Dir, file)
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer wb.Close()

	grid, err := wb.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w (available: %s)",
			sheetName, path, err, strings.Join(wb.GetSheetList(), ", "))
	}
	if len(grid) < typeRow {
		return nil, fmt.Errorf("sheet %q of %s: need at least %d header rows (description, names, types)",
			sheetName, path, typeRow)
	}

	fields := parseHeader(cellRow(grid, nameRow), cellRow(grid, typeRow), gridWidth(grid))
	if len(fields) == 0 {
		return nil, fmt.Errorf("sheet %q of %s: no fields declared in header rows", sheetName, path)
	}

	out := &RawSheet{File: file, Sheet: sheetName, Fields: fieldList(fields)}
	for i := firstDataRow; i <= len(grid); i++ {
		row := r.parseDataRow(cellRow(grid, i), fields, i)
		if row != nil {
			out.Rows = append(out.Rows, *row)
		}
	}
	return out, nil
}

// SheetNames lists the sheets of a workbook, for the preview command.
func (r *ExcelReader) SheetNames(file string) ([]string, error) {
	path := filepath.Join(r.Dir, file)
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer wb.Close()
	return wb.GetSheetList(), nil
}

// headerField tracks a declared column plus any horizontal spill columns.
type headerField struct {
	Field
	spill []int // 0-based extra columns for array expansion
}

// parseHeader walks the name and type header rows. width is the widest
// row of the whole grid, not the header width: GetRows trims trailing
// blank cells per row, so the spill columns of a trailing array field
// only exist in the data rows.
func parseHeader(names, types []string, width int) []headerField {
	var fields []headerField
	col := 0
	for col < len(names) {
		name := strings.TrimSpace(cell(names, col))
		typeExpr := strings.TrimSpace(cell(types, col))
		if name == "" || typeExpr == "" {
			col++
			continue
		}

		f := headerField{Field: Field{Name: name, TypeExpr: typeExpr, Column: col + 1}}
		col++
		if strings.HasPrefix(typeExpr, "array<") {
			// Blank-named columns after an array column belong to it.
			for col < width && strings.TrimSpace(cell(names, col)) == "" {
				f.spill = append(f.spill, col)
				col++
			}
		}
		fields = append(fields, f)
	}
	return fields
}

func (r *ExcelReader) parseDataRow(cells []string, fields []headerField, index int) *RawRow {
	join := r.ArrayJoin
	if join == "" {
		join = "|"
	}

	row := RawRow{Index: index, Cells: make(map[string]string, len(fields))}
	hasData := false
	for _, f := range fields {
		raw := strings.TrimSpace(cell(cells, f.Column-1))
		if len(f.spill) > 0 {
			parts := make([]string, 0, len(f.spill)+1)
			if raw != "" {
				parts = append(parts, raw)
			}
			for _, c := range f.spill {
				if v := strings.TrimSpace(cell(cells, c)); v != "" {
					parts = append(parts, v)
				}
			}
			raw = strings.Join(parts, join)
		}
		if raw != "" {
			hasData = true
		}
		row.Cells[f.Name] = raw
	}
	if !hasData {
		return nil // blank rows are skipped, not errors
	}
	return &row
}

func fieldList(fields []headerField) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.Field
	}
	return out
}

// gridWidth returns the widest row of a ragged grid.
func gridWidth(grid [][]string) int {
	w := 0
	for _, row := range grid {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// cellRow returns the 1-based row of a ragged grid, or nil past the end.
func cellRow(grid [][]string, row int) []string {
	if row-1 < len(grid) {
		return grid[row-1]
	}
	return nil
}

// cell returns the 0-based column of a ragged row, or "" past the end.
func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
