package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mkarres/tablecast/internal/config"
	"github.com/mkarres/tablecast/internal/sheet"
)

// ConfigResult holds validation results for a configuration file.
type ConfigResult struct {
	Valid  bool                     `json:"valid"`
	Errors []config.ValidationError `json:"errors,omitempty"`
}

// loadConfig loads and resolves the configuration named by the global
// --config flag. On failure it prints every validation error and returns
// an ExitError, so commands can simply propagate the error.
func loadConfig(opts *RootOptions, formatter *OutputFormatter) (*config.Config, error) {
	cfg, errs := config.Load(opts.ConfigPath)
	if len(errs) > 0 {
		return nil, outputConfigErrors(formatter, errs)
	}
	formatter.VerboseLog("Loaded %d export(s) from %s", len(cfg.Exports), opts.ConfigPath)
	return cfg, nil
}

// newReader builds the workbook reader rooted at the configured source
// directory.
func newReader(cfg *config.Config) sheet.Reader {
	return sheet.NewExcelReader(cfg.Input.SourceDir)
}

// newFormatter builds the output formatter for a command, wiring verbose
// logs to stderr so JSON output stays clean.
func newFormatter(opts *RootOptions, outWriter, errWriter io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    outWriter,
		ErrWriter: errWriter,
		Verbose:   opts.Verbose,
	}
}

// jsonEncode writes an indented JSON response.
func jsonEncode(formatter *OutputFormatter, response CLIResponse) error {
	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputConfigErrors prints configuration errors in the configured format
// and returns the ExitError the command should propagate.
func outputConfigErrors(formatter *OutputFormatter, errs []config.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ConfigResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := jsonEncode(formatter, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("configuration invalid with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Configuration invalid")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", err.Code, err.Error())
	}
	fmt.Fprintln(formatter.Writer)
	return NewExitError(ExitFailure, fmt.Sprintf("configuration invalid with %d error(s)", len(errs)))
}
