package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all variants implement Value (compile-time check via assignment)
	var _ Value = Int(42)
	var _ Value = Float(1.5)
	var _ Value = String("test")
	var _ Value = Bool(true)
	var _ Value = List{Int(1), String("a")}
	var _ Value = NewMap()
}

func TestMapInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("zebra", Int(1))
	m.Set("apple", Int(2))
	m.Set("banana", Int(3))

	assert.Equal(t, []string{"zebra", "apple", "banana"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestMapSetOverwriteKeepsPosition(t *testing.T) {
	m := NewMap()
	m.Set("a", Int(1))
	m.Set("b", Int(2))
	m.Set("a", Int(10))

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, Int(10), v)
}

func TestMapProject(t *testing.T) {
	m := NewMap()
	m.Set("id", Int(1))
	m.Set("secret", String("x"))
	m.Set("name", String("sword"))

	out := m.Project(func(key string) bool { return key != "secret" })

	assert.Equal(t, []string{"id", "name"}, out.Keys())
	_, ok := out.Get("secret")
	assert.False(t, ok)

	// input untouched
	assert.Equal(t, 3, m.Len())
}

func TestUnwrap(t *testing.T) {
	m := NewMap()
	m.Set("hp", Int(100))
	m.Set("rate", Float(0.5))

	tests := []struct {
		name string
		in   Value
		want any
	}{
		{"int", Int(7), int64(7)},
		{"float", Float(2.5), 2.5},
		{"string", String("x"), "x"},
		{"bool", Bool(true), true},
		{"list", List{Int(1), Int(2)}, []any{int64(1), int64(2)}},
		{"map", m, map[string]any{"hp": int64(100), "rate": 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unwrap(tt.in))
		})
	}
}

func TestEqualScalars(t *testing.T) {
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Int(2)))
	assert.False(t, Equal(Int(1), Float(1)), "kinds never compare equal across variants")
	assert.True(t, Equal(String(""), String("")))
	assert.False(t, Equal(Bool(true), Bool(false)))
}

func TestEqualLists(t *testing.T) {
	assert.True(t, Equal(List{Int(1), String("a")}, List{Int(1), String("a")}))
	assert.False(t, Equal(List{Int(1)}, List{Int(1), Int(2)}))
	assert.False(t, Equal(List{Int(1)}, List{Int(2)}))
}

func TestEqualMapsIgnoresKeyOrder(t *testing.T) {
	a := NewMap()
	a.Set("x", Int(1))
	a.Set("y", Int(2))

	b := NewMap()
	b.Set("y", Int(2))
	b.Set("x", Int(1))

	assert.True(t, Equal(a, b))

	b.Set("y", Int(3))
	assert.False(t, Equal(a, b))
}

func TestMarshalMapOrder(t *testing.T) {
	m := NewMap()
	m.Set("zebra", Int(1))
	m.Set("apple", List{Float(1.5), Bool(false)})

	out, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":1,"apple":[1.5,false]}`, string(out))
}

func TestMarshalStringEscaping(t *testing.T) {
	out, err := Marshal(String(`he said "hi"`))
	require.NoError(t, err)
	assert.Equal(t, `"he said \"hi\""`, string(out))
}

func TestMapMarshalJSONViaEncodingJSON(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(2))
	m.Set("a", Int(1))

	wrapper := struct {
		Values *Map `json:"values"`
	}{Values: m}

	out, err := json.Marshal(wrapper)
	require.NoError(t, err)
	assert.Equal(t, `{"values":{"b":2,"a":1}}`, string(out))
}

func TestMarshalEmptyComposites(t *testing.T) {
	out, err := Marshal(List{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))

	out, err = Marshal(NewMap())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}
