package decode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarres/tablecast/internal/schema"
	"github.com/mkarres/tablecast/internal/value"
)

func statsRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(&schema.ObjectSchema{
		Name:     "Stats",
		ValueSep: ",",
		KVSep:    ":",
		Fields: []schema.SchemaField{
			{Key: "Attack", TypeExpr: "int"},
			{Key: "Defense", TypeExpr: "int", Default: "0", HasDefault: true},
			{Key: "Speed", TypeExpr: "float", Default: "1.0", HasDefault: true},
		},
	}))
	require.NoError(t, reg.ResolveTypes())
	return reg
}

func mustParse(t *testing.T, expr string, reg *schema.Registry) *schema.TypeDescriptor {
	t.Helper()
	d, err := schema.Parse(expr, reg)
	require.NoError(t, err)
	return d
}

func TestDecodeScalars(t *testing.T) {
	d := New(DefaultOptions())
	reg := schema.NewRegistry()
	ctx := Context{Field: "f"}

	tests := []struct {
		name string
		expr string
		raw  string
		want value.Value
	}{
		{"int", "int", "42", value.Int(42)},
		{"int negative", "int", " -7 ", value.Int(-7)},
		{"float", "float", "2.5", value.Float(2.5)},
		{"float integer form", "float", "3", value.Float(3)},
		{"string verbatim", "string", "  spaced  ", value.String("  spaced  ")},
		{"string empty", "string", "", value.String("")},
		{"bool true token", "bool", "yes", value.Bool(true)},
		{"bool case insensitive", "bool", "TRUE", value.Bool(true)},
		{"bool false token", "bool", "0", value.Bool(false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Decode(mustParse(t, tt.expr, reg), tt.raw, "", ctx)
			require.NoError(t, err)
			assert.True(t, value.Equal(tt.want, got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestDecodeScalarErrors(t *testing.T) {
	d := New(DefaultOptions())
	reg := schema.NewRegistry()
	ctx := Context{Field: "hp", File: "units.xlsx", Sheet: "Units", Row: 7}

	tests := []struct {
		name string
		expr string
		raw  string
	}{
		{"int word", "int", "abc"},
		{"int float form", "int", "1.5"},
		{"float word", "float", "fast"},
		{"bool unknown token", "bool", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(mustParse(t, tt.expr, reg), tt.raw, "", ctx)
			var decodeErr *Error
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, "hp", decodeErr.Field)
			assert.Equal(t, 7, decodeErr.Row)
			assert.Contains(t, decodeErr.Error(), "units.xlsx#Units:7")
		})
	}
}

func TestDecodeCustomBoolTokens(t *testing.T) {
	d := New(Options{TrueTokens: []string{"on"}, FalseTokens: []string{"off"}})
	desc := mustParse(t, "bool", schema.NewRegistry())

	got, err := d.Decode(desc, "ON", "", Context{})
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), got)

	// configured sets replace the defaults entirely
	_, err = d.Decode(desc, "true", "", Context{})
	assert.Error(t, err)
}

func TestDecodeArray(t *testing.T) {
	d := New(DefaultOptions())
	reg := schema.NewRegistry()
	desc := mustParse(t, "array<int>", reg)

	got, err := d.Decode(desc, "1, 2, 3", ",", Context{})
	require.NoError(t, err)
	assert.True(t, value.Equal(value.List{value.Int(1), value.Int(2), value.Int(3)}, got))
}

func TestDecodeArrayEmptyCell(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "array<int>", schema.NewRegistry())

	got, err := d.Decode(desc, "   ", ",", Context{})
	require.NoError(t, err)
	assert.True(t, value.Equal(value.List{}, got), "blank cell is an empty list, not an error")
}

func TestDecodeArraySkipsEmptyTokens(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "array<int>", schema.NewRegistry())

	got, err := d.Decode(desc, "1,,2,", ",", Context{})
	require.NoError(t, err)
	assert.True(t, value.Equal(value.List{value.Int(1), value.Int(2)}, got))
}

func TestDecodeArrayCustomSeparator(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "array<string>", schema.NewRegistry())

	got, err := d.Decode(desc, "a|b|c", "|", Context{})
	require.NoError(t, err)
	assert.True(t, value.Equal(value.List{value.String("a"), value.String("b"), value.String("c")}, got))
}

func TestDecodeArrayElementError(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "array<int>", schema.NewRegistry())

	_, err := d.Decode(desc, "1,x,3", ",", Context{Field: "ids"})
	var decodeErr *Error
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "x", decodeErr.Raw)
}

func TestDecodeObjectPositional(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	got, err := d.Decode(desc, "100,50,2.5", "", Context{})
	require.NoError(t, err)

	m, ok := got.(*value.Map)
	require.True(t, ok)
	assert.Equal(t, []string{"Attack", "Defense", "Speed"}, m.Keys())
	attack, _ := m.Get("Attack")
	assert.Equal(t, value.Int(100), attack)
	speed, _ := m.Get("Speed")
	assert.Equal(t, value.Float(2.5), speed)
}

func TestDecodeObjectKeyed(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	got, err := d.Decode(desc, "Speed:2.5, Attack:100, Defense:50", "", Context{})
	require.NoError(t, err)

	m, ok := got.(*value.Map)
	require.True(t, ok)
	// output order is the declared order regardless of input order
	assert.Equal(t, []string{"Attack", "Defense", "Speed"}, m.Keys())
}

func TestDecodeObjectModeEquivalence(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	positional, err := d.Decode(desc, "100,50,2.5", "", Context{})
	require.NoError(t, err)
	keyed, err := d.Decode(desc, "Defense:50,Speed:2.5,Attack:100", "", Context{})
	require.NoError(t, err)

	assert.True(t, value.Equal(positional, keyed))
}

func TestDecodeObjectKeyedDefaults(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	got, err := d.Decode(desc, "Attack:100", "", Context{})
	require.NoError(t, err)

	m := got.(*value.Map)
	defense, _ := m.Get("Defense")
	assert.Equal(t, value.Int(0), defense)
	speed, _ := m.Get("Speed")
	assert.Equal(t, value.Float(1.0), speed)
}

func TestDecodeObjectKeyedMissingNoDefault(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	// Attack has no default, so omitting it is an error
	_, err := d.Decode(desc, "Defense:50", "", Context{})
	var decodeErr *Error
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.Reason, `missing key "Attack"`)
}

func TestDecodeObjectKeyedUnknownKey(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	_, err := d.Decode(desc, "Attack:100,Mana:5", "", Context{})
	var decodeErr *Error
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.Reason, `unknown key "Mana"`)
}

func TestDecodeObjectPositionalDefaults(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	got, err := d.Decode(desc, "100", "", Context{})
	require.NoError(t, err)

	m := got.(*value.Map)
	defense, _ := m.Get("Defense")
	assert.Equal(t, value.Int(0), defense)
}

func TestDecodeObjectPositionalTooMany(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	_, err := d.Decode(desc, "1,2,3,4", "", Context{})
	var decodeErr *Error
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.Reason, "4 values supplied")
}

func TestDecodeObjectPositionalMissingNoDefault(t *testing.T) {
	d := New(DefaultOptions())
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(&schema.ObjectSchema{
		Name:     "Pair",
		ValueSep: ",",
		KVSep:    ":",
		Fields: []schema.SchemaField{
			{Key: "a", TypeExpr: "int"},
			{Key: "b", TypeExpr: "int"},
		},
	}))
	require.NoError(t, reg.ResolveTypes())
	desc := mustParse(t, "object:Pair", reg)

	_, err := d.Decode(desc, "1", "", Context{})
	var decodeErr *Error
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.Reason, `no value for field "b"`)
}

func TestDecodeObjectEmptyCell(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	got, err := d.Decode(desc, "", "", Context{})
	require.NoError(t, err)
	m, ok := got.(*value.Map)
	require.True(t, ok)
	assert.Equal(t, 0, m.Len(), "blank cell is an empty object, not an error")
}

func TestDecodeArrayOfObjects(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "array<object:Stats>", statsRegistry(t))

	// outer separator | must differ from the schema's , and :
	got, err := d.Decode(desc, "100,50,2.5|Attack:7", "|", Context{})
	require.NoError(t, err)

	list, ok := got.(value.List)
	require.True(t, ok)
	require.Len(t, list, 2)

	second := list[1].(*value.Map)
	attack, _ := second.Get("Attack")
	assert.Equal(t, value.Int(7), attack)
	defense, _ := second.Get("Defense")
	assert.Equal(t, value.Int(0), defense)
}

func TestDecodeConcurrentUse(t *testing.T) {
	d := New(DefaultOptions())
	desc := mustParse(t, "object:Stats", statsRegistry(t))

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_, err := d.Decode(desc, "Attack:1", "", Context{})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
