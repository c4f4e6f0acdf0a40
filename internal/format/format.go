// Package format serializes a projected dataset into its output file.
//
// Text formats (lua, json_map, json_array, json_packed) render the
// dataset keyed or ordered by the pipeline's canonical row order, with
// object fields in declared schema order. The sqlite format writes the
// dataset into a database file instead of text; it shares the same
// Formatter interface.
package format

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkarres/tablecast/internal/dataset"
)

// Options selects the output flavor.
type Options struct {
	// Compact suppresses indentation and comments.
	Compact bool

	// Encoding names the text output encoding: utf-8 (default), gbk, or
	// gb18030. Ignored by the sqlite format.
	Encoding string
}

// Formatter writes one export's projected dataset to a file.
type Formatter interface {
	// Extension is the output file extension without the dot.
	Extension() string

	// Write serializes ds to path.
	Write(ds *dataset.Dataset, path string, opts Options) error
}

// Renderer is implemented by the text formats; it produces the file
// content as bytes, before encoding. Used by previews and tests.
type Renderer interface {
	Render(ds *dataset.Dataset, opts Options) ([]byte, error)
}

// New returns the formatter registered under name.
func New(name string) (Formatter, error) {
	switch name {
	case "lua":
		return luaFormatter{}, nil
	case "json_map":
		return jsonFormatter{variant: jsonMap}, nil
	case "json_array":
		return jsonFormatter{variant: jsonArray}, nil
	case "json_packed":
		return jsonFormatter{variant: jsonPacked}, nil
	case "sqlite":
		return sqliteFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// Names lists the supported output formats.
func Names() []string {
	return []string{"lua", "json_map", "json_array", "json_packed", "sqlite"}
}

// writeTextFile renders content through the configured encoding into
// path, creating parent directories as needed.
func writeTextFile(path string, content []byte, encoding string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	encoded, err := encodeText(content, encoding)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}
