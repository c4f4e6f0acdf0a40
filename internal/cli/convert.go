package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkarres/tablecast/internal/export"
	"github.com/mkarres/tablecast/internal/format"
	"github.com/mkarres/tablecast/internal/scope"
	"github.com/mkarres/tablecast/internal/validate"
)

// ConvertResult holds one run's outcome for JSON output.
type ConvertResult struct {
	RunID   string           `json:"run_id"`
	Results []*export.Result `json:"results"`
	Failed  int              `json:"failed"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		exports      []string
		outputFormat string
		outputDir    string
		scopeFlag    string
		compact      bool
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert configured exports to data files",
		Long: `Convert spreadsheet sources into typed data files.

Runs the full pipeline for each selected export: read sources, merge and
decode rows, validate, project by scope, and serialize. Exports with
validation errors are reported and produce no output file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.Options{
				Format:    outputFormat,
				OutputDir: outputDir,
				Compact:   compact,
				DryRun:    dryRun,
			}
			if scopeFlag != "" {
				sc, err := scope.Parse(scopeFlag)
				if err != nil {
					return NewExitError(ExitCommandError, err.Error())
				}
				opts.Scope = sc
			}
			return runConvert(rootOpts, cmd, exports, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&exports, "export", "e", nil, "export name to convert (repeatable, default all)")
	cmd.Flags().StringVarP(&outputFormat, "output-format", "f", "", "output format ("+strings.Join(format.Names(), "|")+"), default from config")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory, default from config")
	cmd.Flags().StringVarP(&scopeFlag, "scope", "s", "", "scope projection override (s|c|sc)")
	cmd.Flags().BoolVar(&compact, "compact", false, "compact output (no indentation)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the pipeline but write no output files")

	return cmd
}

func runConvert(rootOpts *RootOptions, cmd *cobra.Command, names []string, opts export.Options) error {
	formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(rootOpts, formatter)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := cfg.Exports[name]; !ok {
			_ = formatter.Error("C110", fmt.Sprintf("export %q is not configured", name), cfg.ExportNames())
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown export %q", name))
		}
	}

	runner := export.NewRunner(cfg, newReader(cfg), validate.Builtin())
	summary := runner.RunAll(cmd.Context(), names, opts)

	return outputConvertSummary(formatter, summary)
}

func outputConvertSummary(formatter *OutputFormatter, summary *export.Summary) error {
	failed := summary.Failed()

	if formatter.Format == "json" {
		result := ConvertResult{RunID: summary.RunID, Results: summary.Results, Failed: failed}
		status := "ok"
		if failed > 0 {
			status = "error"
		}
		response := CLIResponse{Status: status, Data: result, RunID: summary.RunID}
		if failed > 0 {
			response.Error = &CLIError{
				Code:    "E100",
				Message: fmt.Sprintf("%d export(s) failed", failed),
			}
		}
		if err := jsonEncode(formatter, response); err != nil {
			return err
		}
		if failed > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d export(s) failed", failed))
		}
		return nil
	}

	// Text format: one line per export, then issues for failed ones.
	for _, r := range summary.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(formatter.Writer, "✗ %s: %s\n", r.Export, r.ErrMessage)
		case r.Report.HasErrors():
			fmt.Fprintf(formatter.Writer, "✗ %s: %s\n", r.Export, r.Report.Summary())
			printIssues(formatter, r.Report)
		case r.Written:
			fmt.Fprintf(formatter.Writer, "✓ %s: %d row(s) → %s\n", r.Export, r.Rows, r.OutputPath)
		default:
			fmt.Fprintf(formatter.Writer, "✓ %s: %d row(s) (not written)\n", r.Export, r.Rows)
		}
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d export(s) failed", failed))
	}
	return nil
}

func printIssues(formatter *OutputFormatter, report *validate.Report) {
	for _, issue := range report.Issues {
		fmt.Fprintf(formatter.Writer, "    %s\n", issue.String())
	}
}
