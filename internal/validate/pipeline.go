package validate

import (
	"github.com/mkarres/tablecast/internal/config"
	"github.com/mkarres/tablecast/internal/dataset"
)

// Pipeline runs the validation stages for one export against a resolved
// validator registry.
type Pipeline struct {
	reg *Registry
}

// NewPipeline creates a pipeline over reg.
func NewPipeline(reg *Registry) *Pipeline {
	return &Pipeline{reg: reg}
}

// binding pairs a configured validator binding with its resolved handler.
type binding struct {
	config.Binding
	handler FieldValidator
}

// Run executes field, row, and dataset checks over ds, appending all
// findings to report. The returned error is non-nil only for setup
// failures (a validator that cannot be loaded), which abort the export
// before any row is checked. When stop_on_validation_error is set, the
// pipeline stops at the first error-severity issue and marks the report
// stopped.
func (p *Pipeline) Run(ds *dataset.Dataset, spec *config.ExportSpec, report *Report) error {
	bindings, err := p.setup(spec)
	if err != nil {
		return err
	}
	if len(bindings) == 0 {
		return nil
	}

	if !p.fieldStage(ds, spec, bindings, report) {
		return nil
	}
	if !p.rowStage(ds, spec, bindings, report) {
		return nil
	}
	p.datasetStage(ds, spec, bindings, report)
	return nil
}

// setup resolves every bound validator once. Resolution failures are
// fatal for the export and happen before any row is processed.
func (p *Pipeline) setup(spec *config.ExportSpec) ([]binding, error) {
	bindings := make([]binding, 0, len(spec.Validators))
	for _, b := range spec.Validators {
		handler, err := p.reg.Resolve(b.Script)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding{Binding: b, handler: handler})
	}
	return bindings, nil
}

// fieldStage checks each bound field of each row, in declaration order.
// A failing validator never prevents later validators or later fields
// from running. Returns false when the pipeline must stop.
func (p *Pipeline) fieldStage(ds *dataset.Dataset, spec *config.ExportSpec, bindings []binding, report *Report) bool {
	for _, row := range ds.Rows {
		for _, b := range bindings {
			v, _ := row.Get(b.Field) // nil value for absent fields; validators decide
			ok, msg := b.handler.ValidateField(b.Field, v, b.Params, row)
			if ok {
				continue
			}
			ref := row.Ref
			report.Add(Issue{
				Severity: SeverityError,
				Stage:    StageField,
				Field:    b.Field,
				Ref:      &ref,
				Message:  msg,
			})
			if spec.StopOnValidationError {
				report.Stopped = true
				return false
			}
		}
	}
	return true
}

// rowStage invokes every bound validator implementing the optional row
// capability, once per binding per row.
func (p *Pipeline) rowStage(ds *dataset.Dataset, spec *config.ExportSpec, bindings []binding, report *Report) bool {
	for _, row := range ds.Rows {
		for _, b := range bindings {
			rv, ok := b.handler.(RowValidator)
			if !ok {
				continue
			}
			valid, msg := rv.ValidateRow(row, b.Params, spec)
			if valid {
				continue
			}
			ref := row.Ref
			report.Add(Issue{
				Severity: SeverityError,
				Stage:    StageRow,
				Field:    b.Field,
				Ref:      &ref,
				Message:  msg,
			})
			if spec.StopOnValidationError {
				report.Stopped = true
				return false
			}
		}
	}
	return true
}

// datasetStage invokes each distinct bound validator implementing the
// optional dataset capability exactly once per export. Deduplication by
// script name keeps a validator bound to several fields from scanning
// the dataset repeatedly; the handler sees all its bindings via spec.
func (p *Pipeline) datasetStage(ds *dataset.Dataset, spec *config.ExportSpec, bindings []binding, report *Report) {
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if seen[b.Script] {
			continue
		}
		seen[b.Script] = true

		dv, ok := b.handler.(DatasetValidator)
		if !ok {
			continue
		}
		valid, msg := dv.ValidateDataset(ds, spec)
		if valid {
			continue
		}
		report.Add(Issue{
			Severity: SeverityError,
			Stage:    StageDataset,
			Message:  msg,
		})
		if spec.StopOnValidationError {
			report.Stopped = true
			return
		}
	}
}
