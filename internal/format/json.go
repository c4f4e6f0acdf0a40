package format

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/value"
)

type jsonVariant int

const (
	jsonMap    jsonVariant = iota // object keyed by primary key
	jsonArray                     // array of rows in canonical order
	jsonPacked                    // field-name header plus positional rows
)

// jsonFormatter renders the dataset as JSON. Row fields keep their
// declared order via the ordered map marshaler.
type jsonFormatter struct {
	variant jsonVariant
}

func (jsonFormatter) Extension() string { return "json" }

func (f jsonFormatter) Write(ds *dataset.Dataset, path string, opts Options) error {
	content, err := f.Render(ds, opts)
	if err != nil {
		return err
	}
	return writeTextFile(path, content, opts.Encoding)
}

func (f jsonFormatter) Render(ds *dataset.Dataset, opts Options) ([]byte, error) {
	var compact []byte
	var err error
	switch f.variant {
	case jsonMap:
		compact, err = renderJSONMap(ds)
	case jsonArray:
		compact, err = renderJSONArray(ds)
	case jsonPacked:
		compact, err = renderJSONPacked(ds)
	default:
		return nil, fmt.Errorf("unknown json variant %d", f.variant)
	}
	if err != nil {
		return nil, err
	}
	if opts.Compact {
		return compact, nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compact, "", "    "); err != nil {
		return nil, err
	}
	pretty.WriteByte('\n')
	return pretty.Bytes(), nil
}

func renderJSONMap(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, row := range ds.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := ds.Key(row)
		kb, err := json.Marshal(keyString(key))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		rb, err := value.Marshal(row.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(rb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func renderJSONArray(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range ds.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		rb, err := value.Marshal(row.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(rb)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// renderJSONPacked emits {"fields": [...], "rows": [[...], ...]}, with
// column order taken from the first row.
func renderJSONPacked(ds *dataset.Dataset) ([]byte, error) {
	var fields []string
	if len(ds.Rows) > 0 {
		fields = ds.Rows[0].Values.Keys()
	}

	var buf bytes.Buffer
	buf.WriteString(`{"fields":`)
	fb, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	buf.Write(fb)
	buf.WriteString(`,"rows":[`)
	for i, row := range ds.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for j, name := range fields {
			if j > 0 {
				buf.WriteByte(',')
			}
			v, _ := row.Get(name)
			vb, err := value.Marshal(orNull(v))
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte(']')
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// keyString renders a primary-key value as a JSON object key.
func keyString(v value.Value) string {
	if s, ok := v.(value.String); ok {
		return string(s)
	}
	return fmt.Sprintf("%v", value.Unwrap(v))
}

// orNull substitutes an empty string for fields a packed row lacks.
func orNull(v value.Value) value.Value {
	if v == nil {
		return value.String("")
	}
	return v
}
