package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a sealed interface representing a decoded cell value.
// Only Int, Float, String, Bool, List, and *Map implement it.
type Value interface {
	typedValue() // Sealed - only these types implement it
}

// Int represents an integer cell value. Always int64.
type Int int64

func (Int) typedValue() {}

// Float represents a floating-point cell value.
type Float float64

func (Float) typedValue() {}

// String represents a string cell value, kept verbatim including "".
type String string

func (String) typedValue() {}

// Bool represents a boolean cell value.
type Bool bool

func (Bool) typedValue() {}

// List represents an ordered sequence decoded from an array cell.
type List []Value

func (List) typedValue() {}

// Map represents an object cell decoded against an object schema.
// Keys iterate in insertion order, which is the schema's declared
// field order for decoded objects.
type Map struct {
	keys   []string
	values map[string]Value
}

func (*Map) typedValue() {}

// NewMap creates an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores v under key, appending the key on first insertion.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not mutate it.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}

// Project returns a new map containing only the entries whose key satisfies
// keep, preserving order. The values are shared, not copied.
func (m *Map) Project(keep func(key string) bool) *Map {
	out := NewMap()
	for _, k := range m.keys {
		if keep(k) {
			out.Set(k, m.values[k])
		}
	}
	return out
}

// Unwrap converts a Value into the corresponding plain Go value
// (int64, float64, string, bool, []any, map[string]any). Map order is
// lost; Unwrap exists for handing values to interfaces that take any,
// such as sql drivers and cast.
func Unwrap(v Value) any {
	switch val := v.(type) {
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Unwrap(elem)
		}
		return out
	case *Map:
		out := make(map[string]any, val.Len())
		for _, k := range val.Keys() {
			elem, _ := val.Get(k)
			out[k] = Unwrap(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality of two values. Map comparison ignores key
// order: two objects decoded from positional and keyed forms of the same
// data compare equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.Keys() {
			x, _ := av.Get(k)
			y, found := bv.Get(k)
			if !found || !Equal(x, y) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Marshal serializes a Value to JSON bytes. Map keys are written in
// insertion order; floats use the shortest round-trip representation.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		buf.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
	case String:
		b, err := json.Marshal(string(val))
		if err != nil {
			return err
		}
		buf.Write(b)
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case *Map:
		buf.WriteByte('{')
		for i, k := range val.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			elem, _ := val.Get(k)
			if err := writeJSON(buf, elem); err != nil {
				return fmt.Errorf("map[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value type: %T", v)
	}
	return nil
}

// MarshalJSON implements json.Marshaler so a *Map embedded in structs
// serialized with encoding/json keeps its field order.
func (m *Map) MarshalJSON() ([]byte, error) {
	return Marshal(m)
}
