package format

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/value"
)

// luaFormatter renders the dataset as a Lua table literal returned from
// the file, keyed by primary key.
type luaFormatter struct{}

func (luaFormatter) Extension() string { return "lua" }

func (f luaFormatter) Write(ds *dataset.Dataset, path string, opts Options) error {
	content, err := f.Render(ds, opts)
	if err != nil {
		return err
	}
	return writeTextFile(path, content, opts.Encoding)
}

func (f luaFormatter) Render(ds *dataset.Dataset, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if !opts.Compact {
		fmt.Fprintf(&buf, "-- %s data\n", ds.Export)
		buf.WriteString("-- generated by tablecast\n\n")
	}
	buf.WriteString("return {")
	if !opts.Compact {
		buf.WriteByte('\n')
	}
	for _, row := range ds.Rows {
		key, _ := ds.Key(row)
		if opts.Compact {
			writeLuaKey(&buf, key, opts)
			buf.WriteByte('=')
			if err := writeLuaValue(&buf, row.Values, 0, opts); err != nil {
				return nil, err
			}
			buf.WriteByte(',')
		} else {
			buf.WriteString("    ")
			writeLuaKey(&buf, key, opts)
			buf.WriteString(" = ")
			if err := writeLuaValue(&buf, row.Values, 1, opts); err != nil {
				return nil, err
			}
			buf.WriteString(",\n")
		}
	}
	buf.WriteString("}")
	if !opts.Compact {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

var luaIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// writeLuaKey writes a table key: bare for identifier strings, bracketed
// otherwise.
func writeLuaKey(buf *bytes.Buffer, key value.Value, opts Options) {
	if s, ok := key.(value.String); ok && luaIdent.MatchString(string(s)) {
		buf.WriteString(string(s))
		return
	}
	buf.WriteByte('[')
	writeLuaScalar(buf, key)
	buf.WriteByte(']')
}

func writeLuaValue(buf *bytes.Buffer, v value.Value, indent int, opts Options) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("nil")
	case value.Int, value.Float, value.String, value.Bool:
		writeLuaScalar(buf, val)
	case value.List:
		return writeLuaList(buf, val, indent, opts)
	case *value.Map:
		return writeLuaMap(buf, val, indent, opts)
	default:
		return fmt.Errorf("unknown value type: %T", v)
	}
	return nil
}

func writeLuaScalar(buf *bytes.Buffer, v value.Value) {
	switch val := v.(type) {
	case value.Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case value.Float:
		buf.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
	case value.Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case value.String:
		buf.WriteString(escapeLuaString(string(val)))
	}
}

func writeLuaList(buf *bytes.Buffer, list value.List, indent int, opts Options) error {
	if len(list) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteByte('{')
	for i, elem := range list {
		if i > 0 {
			if opts.Compact {
				buf.WriteByte(',')
			} else {
				buf.WriteString(", ")
			}
		}
		if err := writeLuaValue(buf, elem, indent, opts); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeLuaMap(buf *bytes.Buffer, m *value.Map, indent int, opts Options) error {
	if m.Len() == 0 {
		buf.WriteString("{}")
		return nil
	}
	if opts.Compact {
		buf.WriteByte('{')
		for i, k := range m.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeLuaKey(buf, value.String(k), opts)
			buf.WriteByte('=')
			elem, _ := m.Get(k)
			if err := writeLuaValue(buf, elem, indent, opts); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}

	pad := strings.Repeat("    ", indent)
	buf.WriteString("{\n")
	for _, k := range m.Keys() {
		buf.WriteString(pad + "    ")
		writeLuaKey(buf, value.String(k), opts)
		buf.WriteString(" = ")
		elem, _ := m.Get(k)
		if err := writeLuaValue(buf, elem, indent+1, opts); err != nil {
			return err
		}
		buf.WriteString(",\n")
	}
	buf.WriteString(pad + "}")
	return nil
}

var luaEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLuaString(s string) string {
	return `"` + luaEscaper.Replace(s) + `"`
}
