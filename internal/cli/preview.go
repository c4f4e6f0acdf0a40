package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/decode"
	"github.com/mkarres/tablecast/internal/merge"
	"github.com/mkarres/tablecast/internal/scope"
	"github.com/mkarres/tablecast/internal/sheet"
	"github.com/mkarres/tablecast/internal/value"
)

// PreviewRow is one decoded row for JSON output.
type PreviewRow struct {
	Ref    string     `json:"ref"`
	Values *value.Map `json:"values"`
}

// PreviewResult holds decoded sample rows for one export.
type PreviewResult struct {
	Export string       `json:"export"`
	Rows   []PreviewRow `json:"rows"`
	Total  int          `json:"total"`
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		rows      int
		scopeFlag string
	)

	cmd := &cobra.Command{
		Use:   "preview <export>",
		Short: "Decode an export's sources and print sample rows",
		Long: `Decode an export's sources and print sample rows.

Runs the read, merge, and decode stages only; validators do not run and
no output file is written. Useful to check header layout, type
expressions, and separators against real sheet data.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(rootOpts, cmd, args[0], rows, scopeFlag)
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "number of rows to show")
	cmd.Flags().StringVarP(&scopeFlag, "scope", "s", "", "scope projection override (s|c|sc)")

	return cmd
}

func runPreview(rootOpts *RootOptions, cmd *cobra.Command, name string, limit int, scopeFlag string) error {
	formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(rootOpts, formatter)
	if err != nil {
		return err
	}
	spec, ok := cfg.Exports[name]
	if !ok {
		_ = formatter.Error("C110", fmt.Sprintf("export %q is not configured", name), cfg.ExportNames())
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown export %q", name))
	}

	reader := newReader(cfg)
	sheets := make([]*sheet.RawSheet, 0, len(spec.Sources))
	for _, src := range spec.Sources {
		s, err := reader.Read(src.File, src.Sheet)
		if err != nil {
			_ = formatter.Error("E101", err.Error(), nil)
			return WrapExitError(ExitCommandError, "reading sources", err)
		}
		sheets = append(sheets, s)
	}

	ds, issues, err := merge.Merge(sheets, spec, decode.New(cfg.DecodeOptions()))
	if err != nil {
		_ = formatter.Error("E102", err.Error(), nil)
		return WrapExitError(ExitFailure, "merging sources", err)
	}
	for _, issue := range issues {
		formatter.VerboseLog("dropped: %s", issue.String())
	}

	if scopeFlag != "" {
		sc, err := scope.Parse(scopeFlag)
		if err != nil {
			return NewExitError(ExitCommandError, err.Error())
		}
		ds = scope.ProjectDataset(ds, spec.FieldScopes(), sc)
	}

	return outputPreview(formatter, ds, limit)
}

func outputPreview(formatter *OutputFormatter, ds *dataset.Dataset, limit int) error {
	shown := ds.Rows
	if limit >= 0 && limit < len(shown) {
		shown = shown[:limit]
	}

	if formatter.Format == "json" {
		result := PreviewResult{Export: ds.Export, Total: ds.Len()}
		for _, row := range shown {
			result.Rows = append(result.Rows, PreviewRow{Ref: row.Ref.String(), Values: row.Values})
		}
		return jsonEncode(formatter, CLIResponse{Status: "ok", Data: result})
	}

	for _, row := range shown {
		payload, err := value.Marshal(row.Values)
		if err != nil {
			return err
		}
		fmt.Fprintf(formatter.Writer, "%s  %s\n", row.Ref.String(), payload)
	}
	if len(shown) < ds.Len() {
		fmt.Fprintf(formatter.Writer, "… %d of %d row(s) shown\n", len(shown), ds.Len())
	}
	return nil
}
