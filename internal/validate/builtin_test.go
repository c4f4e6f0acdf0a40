package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarres/tablecast/internal/config"
	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/value"
)

func fieldCheck(t *testing.T, script string, v value.Value, params map[string]any) (bool, string) {
	t.Helper()
	handler, err := Builtin().Resolve(script)
	require.NoError(t, err)
	return handler.ValidateField("f", v, params, nil)
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t,
		[]string{"array_length", "enum", "length", "pattern", "range", "required", "unique"},
		Builtin().Names())
}

func TestRequired(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
		ok   bool
	}{
		{"present string", value.String("x"), true},
		{"zero int", value.Int(0), true},
		{"empty string", value.String(""), false},
		{"whitespace string", value.String("   "), false},
		{"absent", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := fieldCheck(t, "required", tt.v, nil)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestEnum(t *testing.T) {
	params := map[string]any{"values": []any{"sword", "shield"}}

	ok, _ := fieldCheck(t, "enum", value.String("sword"), params)
	assert.True(t, ok)

	ok, msg := fieldCheck(t, "enum", value.String("axe"), params)
	assert.False(t, ok)
	assert.Contains(t, msg, "not in allowed values")

	// int values compare against untyped config literals
	ok, _ = fieldCheck(t, "enum", value.Int(2), map[string]any{"values": []any{1, 2, 3}})
	assert.True(t, ok)

	ok, msg = fieldCheck(t, "enum", value.String("x"), nil)
	assert.False(t, ok)
	assert.Contains(t, msg, "'values' parameter")
}

func TestRange(t *testing.T) {
	params := map[string]any{"min": 1, "max": 10}

	tests := []struct {
		name string
		v    value.Value
		ok   bool
	}{
		{"inside", value.Int(5), true},
		{"min inclusive", value.Int(1), true},
		{"max inclusive", value.Int(10), true},
		{"below", value.Int(0), false},
		{"above", value.Float(10.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := fieldCheck(t, "range", tt.v, params)
			assert.Equal(t, tt.ok, ok)
		})
	}

	ok, msg := fieldCheck(t, "range", value.String("fast"), params)
	assert.False(t, ok)
	assert.Contains(t, msg, "not a number")

	// one-sided bound
	ok, _ = fieldCheck(t, "range", value.Int(-100), map[string]any{"max": 0})
	assert.True(t, ok)
}

func TestLength(t *testing.T) {
	ok, _ := fieldCheck(t, "length", value.String("abc"), map[string]any{"min": 2, "max": 4})
	assert.True(t, ok)

	ok, _ = fieldCheck(t, "length", value.String("a"), map[string]any{"min": 2})
	assert.False(t, ok)

	// rune count, not byte count
	ok, _ = fieldCheck(t, "length", value.String("日本語"), map[string]any{"max": 3})
	assert.True(t, ok)
}

func TestPattern(t *testing.T) {
	ok, _ := fieldCheck(t, "pattern", value.String("item_01"), map[string]any{"pattern": `^[a-z_0-9]+$`})
	assert.True(t, ok)

	ok, _ = fieldCheck(t, "pattern", value.String("Item 1"), map[string]any{"pattern": `^[a-z_0-9]+$`})
	assert.False(t, ok)

	// partial match by default, full=true anchors
	ok, _ = fieldCheck(t, "pattern", value.String("abc123"), map[string]any{"pattern": `\d+`})
	assert.True(t, ok)
	ok, _ = fieldCheck(t, "pattern", value.String("abc123"), map[string]any{"pattern": `\d+`, "full": true})
	assert.False(t, ok)

	ok, msg := fieldCheck(t, "pattern", value.String("x"), map[string]any{"pattern": `(`})
	assert.False(t, ok)
	assert.Contains(t, msg, "invalid pattern")
}

func TestArrayLength(t *testing.T) {
	list := value.List{value.Int(1), value.Int(2), value.Int(3)}

	ok, _ := fieldCheck(t, "array_length", list, map[string]any{"exact": 3})
	assert.True(t, ok)
	ok, _ = fieldCheck(t, "array_length", list, map[string]any{"exact": 2})
	assert.False(t, ok)
	ok, _ = fieldCheck(t, "array_length", list, map[string]any{"min": 1, "max": 2})
	assert.False(t, ok)

	// undecoded string cells count separator-delimited tokens
	ok, _ = fieldCheck(t, "array_length", value.String("a,b,c"), map[string]any{"exact": 3})
	assert.True(t, ok)

	// absent values pass; required covers mandatory arrays
	ok, _ = fieldCheck(t, "array_length", nil, map[string]any{"min": 1})
	assert.True(t, ok)
}

func TestUniqueDataset(t *testing.T) {
	handler, err := Builtin().Resolve("unique")
	require.NoError(t, err)
	dv, ok := handler.(DatasetValidator)
	require.True(t, ok)

	spec := &config.ExportSpec{
		Name:       "items",
		Validators: []config.Binding{{Field: "Code", Script: "unique"}},
	}

	ds := &dataset.Dataset{Export: "items", PrimaryKey: "ID", Rows: []*dataset.Row{
		newRow(t, "a.xlsx", 4, "Code", value.String("X1")),
		newRow(t, "a.xlsx", 5, "Code", value.String("X2")),
		newRow(t, "b.xlsx", 4, "Code", value.String("X1")),
	}}

	valid, msg := dv.ValidateDataset(ds, spec)
	assert.False(t, valid)
	assert.Contains(t, msg, `duplicate value "X1"`)
	assert.Contains(t, msg, "b.xlsx#Sheet1:4")
	assert.Contains(t, msg, "first seen at a.xlsx#Sheet1:4")
}

func TestUniqueSkipsBlanksByDefault(t *testing.T) {
	handler, _ := Builtin().Resolve("unique")
	dv := handler.(DatasetValidator)

	spec := &config.ExportSpec{
		Validators: []config.Binding{{Field: "Code", Script: "unique"}},
	}
	ds := &dataset.Dataset{Rows: []*dataset.Row{
		newRow(t, "a.xlsx", 4, "Code", value.String("")),
		newRow(t, "a.xlsx", 5, "Code", value.String("")),
	}}

	valid, _ := dv.ValidateDataset(ds, spec)
	assert.True(t, valid, "blank values are not duplicates unless check_null is set")

	spec.Validators[0].Params = map[string]any{"check_null": true}
	valid, _ = dv.ValidateDataset(ds, spec)
	assert.False(t, valid)
}

func newRow(t *testing.T, file string, rowIdx int, kv ...any) *dataset.Row {
	t.Helper()
	m := value.NewMap()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1].(value.Value))
	}
	return &dataset.Row{
		Values: m,
		Ref:    dataset.Ref{File: file, Sheet: "Sheet1", Row: rowIdx},
	}
}
