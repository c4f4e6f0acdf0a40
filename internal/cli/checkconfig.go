package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateConfigCommand creates the validate-config command.
func NewValidateConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Check the configuration file without converting anything",
		Long: `Check the configuration file without converting anything.

Parses the file, resolves the defaults cascade, registers object schemas,
and resolves every field's type expression. All problems are reported
together rather than one at a time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			cfg, err := loadConfig(rootOpts, formatter)
			if err != nil {
				return err
			}

			if formatter.Format == "json" {
				return jsonEncode(formatter, CLIResponse{
					Status: "ok",
					Data:   ConfigResult{Valid: true},
				})
			}
			fmt.Fprintf(formatter.Writer, "✓ Configuration valid (%d export(s))\n", len(cfg.Exports))
			return nil
		},
	}
}
