// Package export orchestrates the conversion pipeline for one run:
// read sources, merge, validate, project, serialize.
//
// Exports are mutually independent. They share only read-only state
// (schema registry, validator registry, decoder), so RunAll processes
// them concurrently. Within one export the pipeline is a single
// synchronous pass; rows are processed in source-then-sheet order so the
// merge stays deterministic.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/mkarres/tablecast/internal/config"
	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/decode"
	"github.com/mkarres/tablecast/internal/format"
	"github.com/mkarres/tablecast/internal/merge"
	"github.com/mkarres/tablecast/internal/scope"
	"github.com/mkarres/tablecast/internal/sheet"
	"github.com/mkarres/tablecast/internal/validate"
)

// Options adjusts one run, overriding configuration where set.
type Options struct {
	Format    string      // output format, "" = config default
	Scope     scope.Scope // requested scope, "" = each export's own
	OutputDir string      // "" = config default
	Compact   bool
	DryRun    bool // run the full pipeline but write nothing
}

// Result is the outcome of one export.
type Result struct {
	Export     string           `json:"export"`
	Report     *validate.Report `json:"report"`
	Rows       int              `json:"rows"`
	OutputPath string           `json:"output_path,omitempty"`
	Written    bool             `json:"written"`
	Err        error            `json:"-"`
	ErrMessage string           `json:"error,omitempty"`
}

// Failed reports whether the export aborted or found validation errors.
func (r *Result) Failed() bool {
	return r.Err != nil || r.Report == nil || r.Report.HasErrors()
}

// Summary is the outcome of a whole run.
type Summary struct {
	RunID   string    `json:"run_id"`
	Results []*Result `json:"results"`
}

// Failed counts failed exports.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Runner executes exports against loaded configuration. All fields are
// read-only once the runner is built; a Runner is safe for concurrent
// exports.
type Runner struct {
	cfg        *config.Config
	reader     sheet.Reader
	validators *validate.Registry
	decoder    *decode.Decoder
}

// NewRunner builds a runner. validators defaults to the builtin registry
// when nil.
func NewRunner(cfg *config.Config, reader sheet.Reader, validators *validate.Registry) *Runner {
	if validators == nil {
		validators = validate.Builtin()
	}
	return &Runner{
		cfg:        cfg,
		reader:     reader,
		validators: validators,
		decoder:    decode.New(cfg.DecodeOptions()),
	}
}

// RunAll processes the named exports concurrently and returns results in
// the given order. An empty names slice means every configured export.
func (r *Runner) RunAll(ctx context.Context, names []string, opts Options) *Summary {
	if len(names) == 0 {
		names = r.cfg.ExportNames()
	}
	summary := &Summary{
		RunID:   uuid.NewString(),
		Results: make([]*Result, len(names)),
	}
	slog.Info("run started", "run_id", summary.RunID, "exports", len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			summary.Results[i] = r.RunExport(ctx, name, opts)
		}(i, name)
	}
	wg.Wait()

	slog.Info("run finished", "run_id", summary.RunID, "failed", summary.Failed())
	return summary
}

// RunExport processes one export end to end. Configuration, schema, and
// validator-load failures abort this export only; decode failures drop
// rows and are reported in the result's issue report.
func (r *Runner) RunExport(ctx context.Context, name string, opts Options) *Result {
	res := &Result{Export: name, Report: &validate.Report{Export: name}}
	fail := func(err error) *Result {
		res.Err = err
		res.ErrMessage = err.Error()
		slog.Error("export failed", "export", name, "error", err)
		return res
	}

	spec, ok := r.cfg.Exports[name]
	if !ok {
		return fail(fmt.Errorf("export %q is not configured", name))
	}

	sheets, err := r.readSources(ctx, spec)
	if err != nil {
		return fail(err)
	}

	merged, issues, err := merge.Merge(sheets, spec, r.decoder)
	if err != nil {
		return fail(err)
	}
	res.Report.Add(issues...)
	res.Rows = merged.Len()
	slog.Debug("merge complete", "export", name, "rows", merged.Len(), "dropped", len(issues))

	if spec.StopOnValidationError && res.Report.HasErrors() {
		res.Report.Stopped = true
		return res
	}

	pipeline := validate.NewPipeline(r.validators)
	if err := pipeline.Run(merged, spec, res.Report); err != nil {
		return fail(err) // validator load failure, before any row was checked
	}
	if res.Report.Stopped || res.Report.HasErrors() {
		slog.Warn("export has validation errors, output skipped",
			"export", name, "errors", res.Report.ErrorCount())
		return res
	}

	requested := spec.Scope
	if opts.Scope != "" {
		requested = opts.Scope
	}
	projected := scope.ProjectDataset(merged, spec.FieldScopes(), requested)

	return r.writeOutput(res, projected, opts)
}

func (r *Runner) readSources(ctx context.Context, spec *config.ExportSpec) ([]*sheet.RawSheet, error) {
	sheets := make([]*sheet.RawSheet, 0, len(spec.Sources))
	for _, src := range spec.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := r.reader.Read(src.File, src.Sheet)
		if err != nil {
			return nil, fmt.Errorf("export %q: %w", spec.Name, err)
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

func (r *Runner) writeOutput(res *Result, ds *dataset.Dataset, opts Options) *Result {
	formatName := opts.Format
	if formatName == "" {
		formatName = r.cfg.Output.Format
	}
	formatter, err := format.New(formatName)
	if err != nil {
		res.Err = err
		res.ErrMessage = err.Error()
		return res
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = r.cfg.Input.OutputDir
	}
	res.OutputPath = filepath.Join(outDir, res.Export+"."+formatter.Extension())

	if opts.DryRun {
		slog.Info("dry run, output skipped", "export", res.Export, "path", res.OutputPath)
		return res
	}
	if err := formatter.Write(ds, res.OutputPath, format.Options{
		Compact:  opts.Compact || r.cfg.Output.Compact,
		Encoding: r.cfg.Output.Encoding,
	}); err != nil {
		res.Err = err
		res.ErrMessage = err.Error()
		return res
	}
	res.Written = true
	slog.Info("export written", "export", res.Export, "path", res.OutputPath, "rows", res.Rows)
	return res
}
