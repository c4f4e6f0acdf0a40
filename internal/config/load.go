package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/mkarres/tablecast/internal/schema"
	"github.com/mkarres/tablecast/internal/scope"
)

// rawConfig mirrors the configuration file structure before the cascade
// is collapsed. Pointer fields distinguish "unset" from explicit values.
type rawConfig struct {
	Defaults      rawDefaults          `toml:"defaults" yaml:"defaults"`
	Input         rawInput             `toml:"input" yaml:"input"`
	Output        rawOutput            `toml:"output" yaml:"output"`
	ObjectSchemas map[string]rawSchema `toml:"object_schemas" yaml:"object_schemas"`
	Exports       map[string]rawExport `toml:"exports" yaml:"exports"`
}

type rawDefaults struct {
	PrimaryKey            *string  `toml:"primary_key" yaml:"primary_key"`
	Separator             *string  `toml:"separator" yaml:"separator"`
	KVSeparator           *string  `toml:"key_value_separator" yaml:"key_value_separator"`
	TrueTokens            []string `toml:"bool_true" yaml:"bool_true"`
	FalseTokens           []string `toml:"bool_false" yaml:"bool_false"`
	ValidateUniqueKeys    *bool    `toml:"validate_unique_keys" yaml:"validate_unique_keys"`
	ValidateSchema        *bool    `toml:"validate_schema" yaml:"validate_schema"`
	StopOnValidationError *bool    `toml:"stop_on_validation_error" yaml:"stop_on_validation_error"`
}

type rawInput struct {
	SourceDir string `toml:"source_dir" yaml:"source_dir"`
	OutputDir string `toml:"output_dir" yaml:"output_dir"`
}

type rawOutput struct {
	Format   string `toml:"format" yaml:"format"`
	Encoding string `toml:"encoding" yaml:"encoding"`
	Compact  bool   `toml:"compact" yaml:"compact"`
}

type rawSchema struct {
	Description string           `toml:"description" yaml:"description"`
	Separator   *string          `toml:"separator" yaml:"separator"`
	KVSeparator *string          `toml:"key_value_separator" yaml:"key_value_separator"`
	Fields      []map[string]any `toml:"fields" yaml:"fields"`
}

type rawExport struct {
	Sources               []rawSource    `toml:"sources" yaml:"sources"`
	Scope                 string         `toml:"scope" yaml:"scope"`
	PrimaryKey            *string        `toml:"primary_key" yaml:"primary_key"`
	Fields                []any          `toml:"fields" yaml:"fields"`
	Validators            []rawValidator `toml:"validators" yaml:"validators"`
	ValidateUniqueKeys    *bool          `toml:"validate_unique_keys" yaml:"validate_unique_keys"`
	ValidateSchema        *bool          `toml:"validate_schema" yaml:"validate_schema"`
	StopOnValidationError *bool          `toml:"stop_on_validation_error" yaml:"stop_on_validation_error"`
}

type rawSource struct {
	File  string `toml:"file" yaml:"file"`
	Sheet string `toml:"sheet" yaml:"sheet"`
}

type rawValidator struct {
	Field  string         `toml:"field" yaml:"field"`
	Script string         `toml:"script" yaml:"script"`
	Params map[string]any `toml:"params" yaml:"params"`
}

// Load reads, parses, resolves, and validates a configuration file.
// All problems found are returned together; a nil Config means the file
// could not even be parsed.
func Load(path string) (*Config, []ValidationError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []ValidationError{{Section: "config", Code: ErrConfigRead,
			Message: fmt.Sprintf("read %s: %v", path, err)}}
	}

	var raw rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, []ValidationError{{Section: "config", Code: ErrConfigParse,
			Message: fmt.Sprintf("parse %s: %v", path, err)}}
	}

	return resolve(&raw)
}

// resolve collapses the raw cascade into a flat Config and collects all
// validation errors. The returned Config is non-nil whenever the file
// was structurally sound, even if validation errors were found.
func resolve(raw *rawConfig) (*Config, []ValidationError) {
	var errs []ValidationError

	cfg := &Config{
		Input: Input{
			SourceDir: fallback(raw.Input.SourceDir, "./excel"),
			OutputDir: fallback(raw.Input.OutputDir, "./output"),
		},
		Output: Output{
			Format:   fallback(raw.Output.Format, "lua"),
			Encoding: fallback(raw.Output.Encoding, "utf-8"),
			Compact:  raw.Output.Compact,
		},
		Defaults: Defaults{
			PrimaryKey:            strFallback(raw.Defaults.PrimaryKey, "ID"),
			Separator:             strFallback(raw.Defaults.Separator, ","),
			KVSeparator:           strFallback(raw.Defaults.KVSeparator, ":"),
			TrueTokens:            raw.Defaults.TrueTokens,
			FalseTokens:           raw.Defaults.FalseTokens,
			ValidateUniqueKeys:    boolFallback(raw.Defaults.ValidateUniqueKeys, true),
			ValidateSchema:        boolFallback(raw.Defaults.ValidateSchema, true),
			StopOnValidationError: boolFallback(raw.Defaults.StopOnValidationError, false),
		},
		Exports: make(map[string]*ExportSpec, len(raw.Exports)),
	}

	cfg.Registry, errs = buildRegistry(raw, cfg.Defaults, errs)

	if len(raw.Exports) == 0 {
		errs = append(errs, ValidationError{Section: "exports", Code: ErrNoExports,
			Message: "configuration declares no exports"})
	}

	names := make([]string, 0, len(raw.Exports))
	for name := range raw.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec, exportErrs := resolveExport(name, raw.Exports[name], cfg)
		errs = append(errs, exportErrs...)
		cfg.Exports[name] = spec
	}

	return cfg, errs
}

func buildRegistry(raw *rawConfig, def Defaults, errs []ValidationError) (*schema.Registry, []ValidationError) {
	reg := schema.NewRegistry()

	names := make([]string, 0, len(raw.ObjectSchemas))
	for name := range raw.ObjectSchemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rs := raw.ObjectSchemas[name]
		s := &schema.ObjectSchema{
			Name:        name,
			Description: rs.Description,
			ValueSep:    strFallback(rs.Separator, def.Separator),
			KVSep:       strFallback(rs.KVSeparator, def.KVSeparator),
		}
		for _, fm := range rs.Fields {
			f := schema.SchemaField{
				Key:      cast.ToString(fm["key"]),
				TypeExpr: cast.ToString(fm["type"]),
			}
			if dv, ok := fm["default"]; ok {
				f.Default = cast.ToString(dv)
				f.HasDefault = true
			}
			if f.Key == "" || f.TypeExpr == "" {
				errs = append(errs, ValidationError{
					Section: "object_schemas." + name, Code: ErrSchemaField,
					Message: "schema fields require key and type",
				})
				continue
			}
			s.Fields = append(s.Fields, f)
		}
		if err := reg.Register(s); err != nil {
			errs = append(errs, ValidationError{Section: "object_schemas." + name,
				Code: ErrSchemaField, Message: err.Error()})
		}
	}

	if err := reg.ResolveTypes(); err != nil {
		errs = append(errs, ValidationError{Section: "object_schemas",
			Code: ErrBadType, Message: err.Error()})
	}
	return reg, errs
}

func resolveExport(name string, raw rawExport, cfg *Config) (*ExportSpec, []ValidationError) {
	var errs []ValidationError
	section := "exports." + name

	spec := &ExportSpec{
		Name:                  name,
		PrimaryKey:            strFallback(raw.PrimaryKey, cfg.Defaults.PrimaryKey),
		ValidateUniqueKeys:    boolFallback(raw.ValidateUniqueKeys, cfg.Defaults.ValidateUniqueKeys),
		ValidateSchema:        boolFallback(raw.ValidateSchema, cfg.Defaults.ValidateSchema),
		StopOnValidationError: boolFallback(raw.StopOnValidationError, cfg.Defaults.StopOnValidationError),
		Registry:              cfg.Registry,
	}

	if len(raw.Sources) == 0 {
		errs = append(errs, ValidationError{Section: section, Code: ErrNoSources,
			Message: "export declares no sources"})
	}
	for i, src := range raw.Sources {
		if src.File == "" || src.Sheet == "" {
			errs = append(errs, ValidationError{Section: section, Code: ErrBadSource,
				Message: fmt.Sprintf("sources[%d]: file and sheet must both be set", i)})
			continue
		}
		spec.Sources = append(spec.Sources, Source{File: src.File, Sheet: src.Sheet})
	}

	sc, err := scope.Parse(raw.Scope)
	if err != nil {
		errs = append(errs, ValidationError{Section: section, Field: "scope",
			Code: ErrBadScope, Message: err.Error()})
		sc = scope.ServerClient
	}
	spec.Scope = sc

	for i, entry := range raw.Fields {
		fs, fieldErrs := resolveField(section, i, entry, cfg)
		errs = append(errs, fieldErrs...)
		if fs != nil {
			spec.Fields = append(spec.Fields, *fs)
		}
	}

	for i, v := range raw.Validators {
		if v.Field == "" || v.Script == "" {
			errs = append(errs, ValidationError{Section: section, Code: ErrBadValidator,
				Message: fmt.Sprintf("validators[%d]: field and script must both be set", i)})
			continue
		}
		spec.Validators = append(spec.Validators, Binding{
			Field: v.Field, Script: v.Script, Params: v.Params,
		})
	}

	return spec, errs
}

// resolveField accepts the two field forms: a bare string naming the
// column, or a table with name/type/scope/separator.
func resolveField(section string, index int, entry any, cfg *Config) (*FieldSpec, []ValidationError) {
	var errs []ValidationError
	fieldRef := fmt.Sprintf("fields[%d]", index)

	fs := FieldSpec{
		Scope:     scope.ServerClient,
		Separator: cfg.Defaults.Separator,
	}

	switch e := entry.(type) {
	case string:
		fs.Name = e
	case map[string]any:
		fs.Name = cast.ToString(e["name"])
		fs.TypeExpr = cast.ToString(e["type"])
		if raw, ok := e["scope"]; ok {
			sc, err := scope.Parse(cast.ToString(raw))
			if err != nil {
				errs = append(errs, ValidationError{Section: section, Field: fieldRef,
					Code: ErrBadScope, Message: err.Error()})
			} else {
				fs.Scope = sc
			}
		}
		if sep, ok := e["separator"]; ok {
			fs.Separator = cast.ToString(sep)
		}
	default:
		return nil, []ValidationError{{Section: section, Field: fieldRef, Code: ErrBadField,
			Message: fmt.Sprintf("field entries must be a name or a table, got %T", entry)}}
	}

	if fs.Name == "" {
		return nil, append(errs, ValidationError{Section: section, Field: fieldRef,
			Code: ErrBadField, Message: "field name must not be empty"})
	}

	if fs.TypeExpr != "" {
		desc, err := schema.Parse(fs.TypeExpr, cfg.Registry)
		if err != nil {
			return nil, append(errs, ValidationError{Section: section, Field: fs.Name,
				Code: ErrBadType, Message: err.Error()})
		}
		fs.Type = desc
		if err := schema.CheckSeparators(desc, fs.Separator); err != nil {
			errs = append(errs, ValidationError{Section: section, Field: fs.Name,
				Code: ErrSeparatorClash, Message: err.Error()})
		}
	}

	return &fs, errs
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func strFallback(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func boolFallback(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
