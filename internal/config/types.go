package config

import (
	"sort"

	"github.com/mkarres/tablecast/internal/decode"
	"github.com/mkarres/tablecast/internal/schema"
	"github.com/mkarres/tablecast/internal/scope"
)

// Source names one (file, sheet) pair contributing rows to an export.
type Source struct {
	File  string
	Sheet string
}

// FieldSpec is the resolved declaration of one exported field. When Type
// is nil the field's type is inferred from the source's own type row at
// merge time; a configured type is authoritative and overrides the sheet.
type FieldSpec struct {
	Name      string
	TypeExpr  string
	Type      *schema.TypeDescriptor
	Scope     scope.Scope
	Separator string
}

// Binding attaches one named validator to one field, with its parameters.
type Binding struct {
	Field  string
	Script string
	Params map[string]any
}

// ExportSpec is one export's fully resolved configuration. Built once per
// run, immutable thereafter; consumed by the merge engine and the
// validation pipeline.
type ExportSpec struct {
	Name       string
	Sources    []Source
	Scope      scope.Scope
	PrimaryKey string
	Fields     []FieldSpec
	Validators []Binding

	ValidateUniqueKeys    bool
	ValidateSchema        bool
	StopOnValidationError bool

	// Registry is the shared, read-only object-schema registry.
	Registry *schema.Registry
}

// Field returns the declared spec for name.
func (e *ExportSpec) Field(name string) (*FieldSpec, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// FieldScopes returns the field-name to scope mapping used by projection.
func (e *ExportSpec) FieldScopes() map[string]scope.Scope {
	out := make(map[string]scope.Scope, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Name] = f.Scope
	}
	return out
}

// Defaults is the resolved [defaults] section.
type Defaults struct {
	PrimaryKey            string
	Separator             string
	KVSeparator           string
	TrueTokens            []string
	FalseTokens           []string
	ValidateUniqueKeys    bool
	ValidateSchema        bool
	StopOnValidationError bool
}

// Input is the resolved [input] section.
type Input struct {
	SourceDir string
	OutputDir string
}

// Output is the resolved [output] section.
type Output struct {
	Format   string
	Encoding string
	Compact  bool
}

// Config is the fully resolved configuration for one run.
type Config struct {
	Input    Input
	Output   Output
	Defaults Defaults
	Registry *schema.Registry
	Exports  map[string]*ExportSpec
}

// DecodeOptions derives the value-decoder options from the defaults.
func (c *Config) DecodeOptions() decode.Options {
	return decode.Options{
		TrueTokens:  c.Defaults.TrueTokens,
		FalseTokens: c.Defaults.FalseTokens,
		DefaultSep:  c.Defaults.Separator,
	}
}

// ExportNames returns export names sorted for deterministic processing.
func (c *Config) ExportNames() []string {
	names := make([]string, 0, len(c.Exports))
	for name := range c.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
