// Package dataset defines the merged, typed row set one export produces.
//
// Rows are immutable once decoded: validators and serializers read them
// but never mutate. Every row carries its originating source location so
// diagnostics can always name file, sheet, and row index.
package dataset

import (
	"fmt"

	"github.com/mkarres/tablecast/internal/value"
)

// Ref locates a row in its originating source.
type Ref struct {
	File  string `json:"file"`
	Sheet string `json:"sheet"`
	Row   int    `json:"row"` // 1-based sheet row index
}

func (r Ref) String() string {
	return fmt.Sprintf("%s#%s:%d", r.File, r.Sheet, r.Row)
}

// Row is one decoded record: an ordered field-name to value mapping
// tagged with its source location.
type Row struct {
	Values *value.Map
	Ref    Ref
}

// Get returns the typed value of the named field.
func (r *Row) Get(name string) (value.Value, bool) {
	return r.Values.Get(name)
}

// Dataset is the ordered row sequence for one export after merge.
// Order is source-list order then sheet-row order and is preserved
// through validation and output.
type Dataset struct {
	Export     string
	PrimaryKey string
	Rows       []*Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Key returns a row's primary-key value.
func (d *Dataset) Key(row *Row) (value.Value, bool) {
	return row.Get(d.PrimaryKey)
}
