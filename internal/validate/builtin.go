package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"

	"github.com/mkarres/tablecast/internal/config"
	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/value"
)

// Builtin returns a registry pre-populated with the built-in validators:
// required, enum, range, length, pattern, array_length, unique.
func Builtin() *Registry {
	r := NewRegistry()
	for name, handler := range map[string]any{
		"required":     requiredValidator{},
		"enum":         enumValidator{},
		"range":        rangeValidator{},
		"length":       lengthValidator{},
		"pattern":      patternValidator{},
		"array_length": arrayLengthValidator{},
		"unique":       uniqueValidator{},
	} {
		if err := r.Register(name, handler); err != nil {
			// Builtins are registered from a literal map; a failure here
			// is a programming error, not a configuration error.
			panic(err)
		}
	}
	return r
}

// requiredValidator rejects absent values and blank strings.
type requiredValidator struct{}

func (requiredValidator) ValidateField(field string, v value.Value, _ map[string]any, _ *dataset.Row) (bool, string) {
	if isBlank(v) {
		return false, fmt.Sprintf("field %q is required but empty", field)
	}
	return true, ""
}

// enumValidator checks membership in the params "values" list.
type enumValidator struct{}

func (enumValidator) ValidateField(field string, v value.Value, params map[string]any, _ *dataset.Row) (bool, string) {
	allowed := cast.ToSlice(params["values"])
	if len(allowed) == 0 {
		return false, fmt.Sprintf("enum validation for field %q requires a 'values' parameter", field)
	}
	for _, a := range allowed {
		if looseEqual(v, a) {
			return true, ""
		}
	}
	return false, fmt.Sprintf("field %q value %v not in allowed values %v", field, value.Unwrap(v), allowed)
}

// rangeValidator checks numeric bounds, inclusive on both ends.
type rangeValidator struct{}

func (rangeValidator) ValidateField(field string, v value.Value, params map[string]any, _ *dataset.Row) (bool, string) {
	num, ok := asFloat(v)
	if !ok {
		return false, fmt.Sprintf("field %q value %v is not a number", field, value.Unwrap(v))
	}
	if min, ok := floatParam(params, "min"); ok && num < min {
		return false, fmt.Sprintf("field %q value %v is less than minimum %v", field, num, min)
	}
	if max, ok := floatParam(params, "max"); ok && num > max {
		return false, fmt.Sprintf("field %q value %v is greater than maximum %v", field, num, max)
	}
	return true, ""
}

// lengthValidator checks string length bounds, inclusive on both ends.
type lengthValidator struct{}

func (lengthValidator) ValidateField(field string, v value.Value, params map[string]any, _ *dataset.Row) (bool, string) {
	length := utf8.RuneCountInString(asString(v))
	if min, ok := intParam(params, "min"); ok && length < min {
		return false, fmt.Sprintf("field %q length %d is less than minimum %d", field, length, min)
	}
	if max, ok := intParam(params, "max"); ok && length > max {
		return false, fmt.Sprintf("field %q length %d is greater than maximum %d", field, length, max)
	}
	return true, ""
}

// patternValidator matches against the params "pattern" regex. By
// default a partial match anywhere in the value passes; set full=true
// to require the whole value to match.
type patternValidator struct{}

func (patternValidator) ValidateField(field string, v value.Value, params map[string]any, _ *dataset.Row) (bool, string) {
	pattern := cast.ToString(params["pattern"])
	if pattern == "" {
		return false, fmt.Sprintf("pattern validation for field %q requires a 'pattern' parameter", field)
	}
	if cast.ToBool(params["full"]) {
		pattern = "^(?:" + pattern + ")$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid pattern %q: %v", pattern, err)
	}
	s := asString(v)
	if !re.MatchString(s) {
		return false, fmt.Sprintf("field %q value %q does not match pattern %q", field, s, pattern)
	}
	return true, ""
}

// arrayLengthValidator checks element counts, either exact or min/max.
// Absent values pass; pairing with required covers mandatory arrays.
type arrayLengthValidator struct{}

func (arrayLengthValidator) ValidateField(field string, v value.Value, params map[string]any, _ *dataset.Row) (bool, string) {
	if v == nil {
		return true, ""
	}
	var n int
	switch val := v.(type) {
	case value.List:
		n = len(val)
	case value.String:
		sep := cast.ToString(params["separator"])
		if sep == "" {
			sep = ","
		}
		n = len(splitNonEmpty(string(val), sep))
	default:
		n = 1
	}

	if exact, ok := intParam(params, "exact"); ok {
		if n != exact {
			return false, fmt.Sprintf("field %q array length %d does not match exact requirement %d", field, n, exact)
		}
		return true, ""
	}
	if min, ok := intParam(params, "min"); ok && n < min {
		return false, fmt.Sprintf("field %q array length %d is less than minimum %d", field, n, min)
	}
	if max, ok := intParam(params, "max"); ok && n > max {
		return false, fmt.Sprintf("field %q array length %d is greater than maximum %d", field, n, max)
	}
	return true, ""
}

// uniqueValidator enforces per-field uniqueness across the whole dataset.
// The field check always passes; the real work happens once at dataset
// level, over every field bound to this validator.
type uniqueValidator struct{}

func (uniqueValidator) ValidateField(string, value.Value, map[string]any, *dataset.Row) (bool, string) {
	return true, ""
}

func (uniqueValidator) ValidateDataset(ds *dataset.Dataset, spec *config.ExportSpec) (bool, string) {
	var problems []string
	for _, b := range spec.Validators {
		if b.Script != "unique" {
			continue
		}
		checkBlank := cast.ToBool(b.Params["check_null"])
		firstSeen := make(map[string]*dataset.Ref, ds.Len())
		for _, row := range ds.Rows {
			v, _ := row.Get(b.Field)
			if isBlank(v) && !checkBlank {
				continue
			}
			key := fmt.Sprintf("%v", value.Unwrap(v))
			if prev, dup := firstSeen[key]; dup {
				problems = append(problems, fmt.Sprintf(
					"field %q duplicate value %q at %s (first seen at %s)",
					b.Field, key, row.Ref, prev))
				continue
			}
			ref := row.Ref
			firstSeen[key] = &ref
		}
	}
	if len(problems) > 0 {
		return false, strings.Join(problems, "; ")
	}
	return true, ""
}

func isBlank(v value.Value) bool {
	if v == nil {
		return true
	}
	s, ok := v.(value.String)
	return ok && strings.TrimSpace(string(s)) == ""
}

func asFloat(v value.Value) (float64, bool) {
	switch val := v.(type) {
	case value.Int:
		return float64(val), true
	case value.Float:
		return float64(val), true
	default:
		return 0, false
	}
}

func asString(v value.Value) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(value.String); ok {
		return string(s)
	}
	return cast.ToString(value.Unwrap(v))
}

// looseEqual compares a typed value with an untyped configuration
// literal, coercing the literal to the value's kind.
func looseEqual(v value.Value, lit any) bool {
	switch val := v.(type) {
	case value.Int:
		n, err := cast.ToInt64E(lit)
		return err == nil && n == int64(val)
	case value.Float:
		f, err := cast.ToFloat64E(lit)
		return err == nil && f == float64(val)
	case value.String:
		s, err := cast.ToStringE(lit)
		return err == nil && s == string(val)
	case value.Bool:
		b, err := cast.ToBoolE(lit)
		return err == nil && b == bool(val)
	default:
		return false
	}
}

func floatParam(params map[string]any, key string) (float64, bool) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, false
	}
	return f, true
}

func intParam(params map[string]any, key string) (int, bool) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, false
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitNonEmpty(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if strings.TrimSpace(part) != "" {
			out = append(out, part)
		}
	}
	return out
}
