// Package merge combines rows from an export's sources into one ordered,
// typed dataset.
//
// Sources are decoded independently and concatenated in source-list
// order, then sheet-row order. That concatenation order is the dataset's
// canonical order and is preserved into validation and output.
// Primary-key uniqueness is checked once over the fully concatenated
// dataset, so duplicates introduced by merging distinct sources are
// caught.
package merge

import (
	"fmt"
	"strings"

	"github.com/mkarres/tablecast/internal/config"
	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/decode"
	"github.com/mkarres/tablecast/internal/schema"
	"github.com/mkarres/tablecast/internal/scope"
	"github.com/mkarres/tablecast/internal/sheet"
	"github.com/mkarres/tablecast/internal/validate"
	"github.com/mkarres/tablecast/internal/value"
)

// SchemaMismatchError reports a source whose header or type row disagrees
// with the export's declared field set. Fatal for the export when schema
// validation is enabled.
type SchemaMismatchError struct {
	File   string
	Sheet  string
	Field  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s#%s, field %q: %s", e.File, e.Sheet, e.Field, e.Reason)
}

// field is one effective field with its resolved descriptor.
type field struct {
	config.FieldSpec
	desc *schema.TypeDescriptor
}

// Merge decodes and concatenates sheets into one dataset. Sheets must be
// ordered as the export's source list. Rows that fail to decode are
// excluded from the dataset and recorded as issues; a non-nil error means
// the whole export is aborted (schema mismatch or unresolvable types).
func Merge(sheets []*sheet.RawSheet, spec *config.ExportSpec, dec *decode.Decoder) (*dataset.Dataset, []validate.Issue, error) {
	fields, err := effectiveFields(sheets, spec)
	if err != nil {
		return nil, nil, err
	}
	if spec.ValidateSchema {
		if err := checkSchema(sheets, spec, fields); err != nil {
			return nil, nil, err
		}
	}
	// Resolve every field's descriptor before touching any data row.
	resolved, err := resolveTypes(sheets, spec, fields)
	if err != nil {
		return nil, nil, err
	}

	ds := &dataset.Dataset{Export: spec.Name, PrimaryKey: spec.PrimaryKey}
	var issues []validate.Issue
	for _, s := range sheets {
		for _, raw := range s.Rows {
			row, issue := decodeRow(s, raw, resolved, spec, dec)
			if issue != nil {
				issues = append(issues, *issue)
				continue
			}
			ds.Rows = append(ds.Rows, row)
		}
	}

	if spec.ValidateUniqueKeys {
		issues = append(issues, checkUniqueKeys(ds)...)
	}
	return ds, issues, nil
}

// effectiveFields returns the export's field list. An export declaring no
// fields takes every column of its first source, scoped sc, with types
// inferred from the type row.
func effectiveFields(sheets []*sheet.RawSheet, spec *config.ExportSpec) ([]field, error) {
	var fields []field
	if len(spec.Fields) > 0 {
		for _, fs := range spec.Fields {
			fields = append(fields, field{FieldSpec: fs})
		}
	} else {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("export %q: no sources to derive fields from", spec.Name)
		}
		for _, col := range sheets[0].Fields {
			fields = append(fields, field{FieldSpec: config.FieldSpec{
				Name:  col.Name,
				Scope: scope.ServerClient,
			}})
		}
	}

	// The primary key participates in decoding even when the field list
	// does not name it.
	if _, ok := fieldByName(fields, spec.PrimaryKey); !ok {
		fields = append([]field{{FieldSpec: config.FieldSpec{
			Name:  spec.PrimaryKey,
			Scope: scope.ServerClient,
		}}}, fields...)
	}
	return fields, nil
}

func fieldByName(fields []field, name string) (*field, bool) {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i], true
		}
	}
	return nil, false
}

// checkSchema verifies each source's header and type rows against the
// effective field set. Extra, unreferenced source columns are permitted
// and ignored.
func checkSchema(sheets []*sheet.RawSheet, spec *config.ExportSpec, fields []field) error {
	for _, f := range fields {
		var baseline string // first declared type row entry, for override-free fields
		for _, s := range sheets {
			col, ok := s.Field(f.Name)
			if !ok {
				return &SchemaMismatchError{File: s.File, Sheet: s.Sheet, Field: f.Name,
					Reason: "field missing from source header row"}
			}
			if f.Type != nil {
				continue // configured type is authoritative, sheet types ignored
			}
			declared := strings.TrimSpace(col.TypeExpr)
			if baseline == "" {
				baseline = declared
				continue
			}
			if declared != baseline {
				return &SchemaMismatchError{File: s.File, Sheet: s.Sheet, Field: f.Name,
					Reason: fmt.Sprintf("declared type %q disagrees with %q in an earlier source; configure an explicit type to override", declared, baseline)}
			}
		}
	}
	return nil
}

// resolveTypes fills each field's descriptor: the configured type when
// declared, otherwise the type inferred from the first source declaring
// the column. All resolution completes before any data row is decoded.
func resolveTypes(sheets []*sheet.RawSheet, spec *config.ExportSpec, fields []field) ([]field, error) {
	for i := range fields {
		f := &fields[i]
		if f.Type != nil {
			f.desc = f.Type
			continue
		}
		expr := ""
		for _, s := range sheets {
			if col, ok := s.Field(f.Name); ok && strings.TrimSpace(col.TypeExpr) != "" {
				expr = col.TypeExpr
				break
			}
		}
		if expr == "" {
			return nil, fmt.Errorf("export %q field %q: no declared type in configuration or source type row", spec.Name, f.Name)
		}
		desc, err := schema.Parse(expr, spec.Registry)
		if err != nil {
			return nil, fmt.Errorf("export %q field %q: %w", spec.Name, f.Name, err)
		}
		f.desc = desc
	}
	return fields, nil
}

// decodeRow decodes one raw row. On any cell failure the row is excluded
// and the failure reported; a primary-key failure is reported as such.
func decodeRow(s *sheet.RawSheet, raw sheet.RawRow, fields []field, spec *config.ExportSpec, dec *decode.Decoder) (*dataset.Row, *validate.Issue) {
	ref := dataset.Ref{File: s.File, Sheet: s.Sheet, Row: raw.Index}
	values := value.NewMap()
	for i := range fields {
		f := &fields[i]
		ctx := decode.Context{Field: f.Name, File: s.File, Sheet: s.Sheet, Row: raw.Index}
		v, err := dec.Decode(f.desc, raw.Cells[f.Name], f.Separator, ctx)
		if err != nil {
			msg := err.Error()
			if f.Name == spec.PrimaryKey {
				msg = "row excluded, primary key undecodable: " + msg
			} else {
				msg = "row excluded: " + msg
			}
			return nil, &validate.Issue{
				Severity: validate.SeverityError,
				Stage:    validate.StageMerge,
				Field:    f.Name,
				Ref:      &ref,
				Message:  msg,
			}
		}
		values.Set(f.Name, v)
	}
	return &dataset.Row{Values: values, Ref: ref}, nil
}

// checkUniqueKeys scans the concatenated dataset once and reports each
// duplicate primary key with both row locations.
func checkUniqueKeys(ds *dataset.Dataset) []validate.Issue {
	firstSeen := make(map[string]dataset.Ref, ds.Len())
	var issues []validate.Issue
	for _, row := range ds.Rows {
		v, ok := row.Get(ds.PrimaryKey)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v", value.Unwrap(v))
		prev, dup := firstSeen[key]
		if !dup {
			firstSeen[key] = row.Ref
			continue
		}
		ref := row.Ref
		issues = append(issues, validate.Issue{
			Severity: validate.SeverityError,
			Stage:    validate.StageDataset,
			Field:    ds.PrimaryKey,
			Ref:      &ref,
			Message:  fmt.Sprintf("duplicate primary key %q at %s, first seen at %s", key, row.Ref, prev),
		})
	}
	return issues
}
