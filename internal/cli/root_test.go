package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tablecast.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[exports.items]
sources = [{ file = "items.xlsx", sheet = "Items" }]
fields = [
    "ID",
    { name = "Name", type = "string", scope = "c" },
]
`), 0o644))
	return path
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, _, err := runCommand(t, "--format", "yaml", "list-exports")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestRootHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"convert", "list-exports", "validate-config", "preview"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestValidateConfigValid(t *testing.T) {
	out, _, err := runCommand(t, "--config", writeTestConfig(t), "validate-config")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Configuration valid")
}

func TestValidateConfigValidJSON(t *testing.T) {
	out, _, err := runCommand(t, "--config", writeTestConfig(t), "--format", "json", "validate-config")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[exports.bad]
sources = []
`), 0o644))

	out, _, err := runCommand(t, "--config", path, "validate-config")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "C111")
}

func TestValidateConfigMissingFile(t *testing.T) {
	_, _, err := runCommand(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "validate-config")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestListExportsText(t *testing.T) {
	out, _, err := runCommand(t, "--config", writeTestConfig(t), "list-exports")
	require.NoError(t, err)
	assert.Contains(t, out, "items")
	assert.Contains(t, out, "items.xlsx#Items")
	assert.Contains(t, out, "key=ID")
}

func TestListExportsJSON(t *testing.T) {
	out, _, err := runCommand(t, "--config", writeTestConfig(t), "--format", "json", "list-exports")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []ExportInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "items", resp.Data[0].Name)
	assert.Equal(t, 2, resp.Data[0].Fields)
}

func TestConvertUnknownExport(t *testing.T) {
	_, _, err := runCommand(t, "--config", writeTestConfig(t), "convert", "--export", "ghosts", "--dry-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown export "ghosts"`)
}

func TestConvertInvalidScope(t *testing.T) {
	_, _, err := runCommand(t, "--config", writeTestConfig(t), "convert", "--scope", "server")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPreviewUnknownExport(t *testing.T) {
	_, _, err := runCommand(t, "--config", writeTestConfig(t), "preview", "ghosts")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPreviewRequiresExportArg(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", writeTestConfig(t), "preview"})
	assert.Error(t, cmd.Execute())
}
