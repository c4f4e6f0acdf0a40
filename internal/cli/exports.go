package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkarres/tablecast/internal/config"
)

// ExportInfo describes one configured export for JSON output.
type ExportInfo struct {
	Name       string   `json:"name"`
	Sources    []string `json:"sources"`
	Scope      string   `json:"scope"`
	PrimaryKey string   `json:"primary_key"`
	Fields     int      `json:"fields"`
	Validators int      `json:"validators"`
}

// NewListExportsCommand creates the list-exports command.
func NewListExportsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list-exports",
		Short:         "List exports declared in the configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			cfg, err := loadConfig(rootOpts, formatter)
			if err != nil {
				return err
			}
			return outputExportList(formatter, cfg)
		},
	}
}

func outputExportList(formatter *OutputFormatter, cfg *config.Config) error {
	infos := make([]ExportInfo, 0, len(cfg.Exports))
	for _, name := range cfg.ExportNames() {
		spec := cfg.Exports[name]
		sources := make([]string, len(spec.Sources))
		for i, src := range spec.Sources {
			sources[i] = src.File + "#" + src.Sheet
		}
		infos = append(infos, ExportInfo{
			Name:       name,
			Sources:    sources,
			Scope:      string(spec.Scope),
			PrimaryKey: spec.PrimaryKey,
			Fields:     len(spec.Fields),
			Validators: len(spec.Validators),
		})
	}

	if formatter.Format == "json" {
		return jsonEncode(formatter, CLIResponse{Status: "ok", Data: infos})
	}

	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%s\n", info.Name)
		for _, src := range info.Sources {
			fmt.Fprintf(formatter.Writer, "    source  %s\n", src)
		}
		fmt.Fprintf(formatter.Writer, "    scope=%s key=%s fields=%d validators=%d\n",
			info.Scope, info.PrimaryKey, info.Fields, info.Validators)
	}
	return nil
}
