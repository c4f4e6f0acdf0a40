package schema

import "fmt"

// SchemaField is one declared field of an object schema. Type is resolved
// by Registry.ResolveTypes after all schemas are registered, so schemas
// may reference each other regardless of declaration order.
type SchemaField struct {
	Key        string
	TypeExpr   string
	Type       *TypeDescriptor
	Default    string // raw form, decoded against Type when applied
	HasDefault bool
}

// ObjectSchema is a named, ordered field set describing how to decode a
// composite cell value. ValueSep splits the cell into tokens, KVSep splits
// a token into key and value in keyed form.
type ObjectSchema struct {
	Name        string
	Description string
	ValueSep    string
	KVSep       string
	Fields      []SchemaField

	byKey map[string]int
}

// Field returns the declared field for key.
func (s *ObjectSchema) Field(key string) (*SchemaField, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	return &s.Fields[i], true
}

// Registry holds named object schemas. It is populated at configuration
// load time and read-only afterwards.
type Registry struct {
	schemas map[string]*ObjectSchema
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*ObjectSchema)}
}

// Register adds a schema, rejecting duplicate schema names and duplicate
// field keys within one schema.
func (r *Registry) Register(s *ObjectSchema) error {
	if s.Name == "" {
		return fmt.Errorf("object schema name must not be empty")
	}
	if _, exists := r.schemas[s.Name]; exists {
		return fmt.Errorf("duplicate object schema %q", s.Name)
	}
	s.byKey = make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		if _, dup := s.byKey[f.Key]; dup {
			return fmt.Errorf("object schema %q: duplicate field key %q", s.Name, f.Key)
		}
		s.byKey[f.Key] = i
	}
	r.schemas[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*ObjectSchema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns schema names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ResolveTypes parses every field's type expression. Called once after
// all schemas are registered; any error is fatal for the configuration.
func (r *Registry) ResolveTypes() error {
	for _, name := range r.order {
		s := r.schemas[name]
		for i := range s.Fields {
			f := &s.Fields[i]
			desc, err := Parse(f.TypeExpr, r)
			if err != nil {
				return fmt.Errorf("object schema %q field %q: %w", name, f.Key, err)
			}
			f.Type = desc
		}
	}
	return nil
}
