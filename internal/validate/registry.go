package validate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mkarres/tablecast/internal/config"
	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/value"
)

// FieldValidator is the capability every validator must implement.
// It checks one field of one row and returns (valid, message).
//
// Validators are pure functions of their inputs: they must not mutate
// the row, dataset, or export spec they receive.
type FieldValidator interface {
	ValidateField(field string, v value.Value, params map[string]any, row *dataset.Row) (bool, string)
}

// RowValidator is the optional whole-row capability.
type RowValidator interface {
	ValidateRow(row *dataset.Row, params map[string]any, spec *config.ExportSpec) (bool, string)
}

// DatasetValidator is the optional whole-dataset capability, invoked
// once per export after all rows are merged.
type DatasetValidator interface {
	ValidateDataset(ds *dataset.Dataset, spec *config.ExportSpec) (bool, string)
}

// LoadError reports a validator that cannot be used: unknown name, or a
// handler missing the required field-check capability. It is fatal for
// the export referencing the validator and raised at setup, before any
// row is processed.
type LoadError struct {
	Script string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Script, e.Reason)
}

// Registry maps validator names to handlers. Handlers are registered
// once and reused across rows and exports; the registry is effectively
// read-only while exports run.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]FieldValidator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]FieldValidator)}
}

// Register adds a handler under name. The handler must implement
// FieldValidator; row and dataset capabilities are optional and detected
// later by assertion.
func (r *Registry) Register(name string, handler any) error {
	fv, ok := handler.(FieldValidator)
	if !ok {
		return &LoadError{Script: name, Reason: "missing required ValidateField capability"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return &LoadError{Script: name, Reason: "already registered"}
	}
	r.handlers[name] = fv
	return nil
}

// Resolve returns the handler registered under name.
func (r *Registry) Resolve(name string) (FieldValidator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fv, ok := r.handlers[name]
	if !ok {
		return nil, &LoadError{Script: name, Reason: "not registered"}
	}
	return fv, nil
}

// Names lists registered validators, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
