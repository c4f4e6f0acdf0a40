package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies the variant of a TypeDescriptor.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindArray
	KindObject
)

// String returns the kind's name as used in type expressions.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// TypeDescriptor is a resolved type tree. Exactly one of Elem (KindArray)
// or Schema (KindObject) is set for composite kinds; both are nil for
// primitives.
type TypeDescriptor struct {
	Kind   Kind
	Elem   *TypeDescriptor
	Schema *ObjectSchema
}

// String renders the descriptor back as a type expression.
func (d *TypeDescriptor) String() string {
	switch d.Kind {
	case KindArray:
		return "array<" + d.Elem.String() + ">"
	case KindObject:
		return "object:" + d.Schema.Name
	default:
		return d.Kind.String()
	}
}

// IsNumeric reports whether the descriptor is int or float.
func (d *TypeDescriptor) IsNumeric() bool {
	return d.Kind == KindInt || d.Kind == KindFloat
}

// MalformedTypeError reports a type expression that does not match the
// grammar, such as an unbalanced array<...> or an unknown primitive.
type MalformedTypeError struct {
	Expr   string
	Reason string
}

func (e *MalformedTypeError) Error() string {
	return fmt.Sprintf("malformed type expression %q: %s", e.Expr, e.Reason)
}

// UnknownSchemaError reports an object:<name> reference whose schema is
// not present in the registry.
type UnknownSchemaError struct {
	Name string
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("unknown object schema %q", e.Name)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse resolves a type expression against reg. The returned descriptor
// is immutable and shares ObjectSchema pointers with the registry.
func Parse(expr string, reg *Registry) (*TypeDescriptor, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, &MalformedTypeError{Expr: expr, Reason: "empty type expression"}
	}

	switch trimmed {
	case "int":
		return &TypeDescriptor{Kind: KindInt}, nil
	case "float":
		return &TypeDescriptor{Kind: KindFloat}, nil
	case "string":
		return &TypeDescriptor{Kind: KindString}, nil
	case "bool":
		return &TypeDescriptor{Kind: KindBool}, nil
	}

	if rest, ok := strings.CutPrefix(trimmed, "array<"); ok {
		inner, ok := strings.CutSuffix(rest, ">")
		if !ok {
			return nil, &MalformedTypeError{Expr: expr, Reason: "unbalanced array<...>"}
		}
		elem, err := Parse(inner, reg)
		if err != nil {
			return nil, err
		}
		return &TypeDescriptor{Kind: KindArray, Elem: elem}, nil
	}

	if name, ok := strings.CutPrefix(trimmed, "object:"); ok {
		name = strings.TrimSpace(name)
		if !identPattern.MatchString(name) {
			return nil, &MalformedTypeError{Expr: expr, Reason: fmt.Sprintf("invalid schema name %q", name)}
		}
		s, found := reg.Lookup(name)
		if !found {
			return nil, &UnknownSchemaError{Name: name}
		}
		return &TypeDescriptor{Kind: KindObject, Schema: s}, nil
	}

	return nil, &MalformedTypeError{Expr: expr, Reason: "unknown type"}
}

// CheckSeparators verifies that an array-of-object field's outer separator
// differs from the element schema's internal separators. With equal
// separators the decode is ambiguous, so this is rejected at configuration
// time rather than handled as a runtime fallback.
func CheckSeparators(d *TypeDescriptor, arraySep string) error {
	if d.Kind != KindArray || d.Elem.Kind != KindObject {
		return nil
	}
	s := d.Elem.Schema
	if arraySep == s.ValueSep {
		return fmt.Errorf("array separator %q collides with schema %q value separator", arraySep, s.Name)
	}
	if arraySep == s.KVSep {
		return fmt.Errorf("array separator %q collides with schema %q key-value separator", arraySep, s.Name)
	}
	return nil
}
