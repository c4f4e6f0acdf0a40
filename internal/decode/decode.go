// Package decode turns raw cell text into typed values against a
// resolved type descriptor.
//
// Object cells support two input forms, auto-detected per occurrence:
//
//	"100,50,200"            positional, matched against declared order
//	"Defense:50,Attack:100" keyed, order-free
//
// The branch is a structural predicate: the cell is parsed as keyed iff
// every token contains the schema's key-value separator. A positional
// value that itself contains that separator would be misdetected; the
// configuration-time separator checks in package schema keep the two
// alphabets disjoint for composite types.
package decode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mkarres/tablecast/internal/schema"
	"github.com/mkarres/tablecast/internal/value"
)

// Context identifies the cell being decoded for diagnostics.
type Context struct {
	Field string
	File  string
	Sheet string
	Row   int // 1-based sheet row index
}

// Error reports a cell whose raw text does not decode against its
// declared type. The offending cell is identified by source, row, and
// field so no failure is ever anonymous.
type Error struct {
	Field  string
	Raw    string
	Reason string
	File   string
	Sheet  string
	Row    int
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s#%s:%d field %q: cannot decode %q: %s",
			e.File, e.Sheet, e.Row, e.Field, e.Raw, e.Reason)
	}
	return fmt.Sprintf("field %q: cannot decode %q: %s", e.Field, e.Raw, e.Reason)
}

// Options configures a Decoder. The boolean token sets come from
// configuration; the decoder itself hard-codes nothing.
type Options struct {
	TrueTokens  []string
	FalseTokens []string

	// DefaultSep splits arrays nested inside object fields, where no
	// field-level separator applies.
	DefaultSep string
}

// DefaultOptions returns the decoder defaults used when configuration
// does not override them.
func DefaultOptions() Options {
	return Options{
		TrueTokens:  []string{"true", "1", "yes"},
		FalseTokens: []string{"false", "0", "no"},
		DefaultSep:  ",",
	}
}

// Decoder decodes raw cell strings. It is immutable after construction
// and safe for concurrent use across rows and exports.
type Decoder struct {
	trueTokens  map[string]struct{}
	falseTokens map[string]struct{}
	defaultSep  string
}

// New creates a Decoder from opts, falling back to defaults for any
// zero-valued option.
func New(opts Options) *Decoder {
	def := DefaultOptions()
	if len(opts.TrueTokens) == 0 {
		opts.TrueTokens = def.TrueTokens
	}
	if len(opts.FalseTokens) == 0 {
		opts.FalseTokens = def.FalseTokens
	}
	if opts.DefaultSep == "" {
		opts.DefaultSep = def.DefaultSep
	}
	d := &Decoder{
		trueTokens:  make(map[string]struct{}, len(opts.TrueTokens)),
		falseTokens: make(map[string]struct{}, len(opts.FalseTokens)),
		defaultSep:  opts.DefaultSep,
	}
	for _, t := range opts.TrueTokens {
		d.trueTokens[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range opts.FalseTokens {
		d.falseTokens[strings.ToLower(t)] = struct{}{}
	}
	return d
}

// Decode decodes raw against desc. sep is the field's array separator;
// pass "" for the configured default. All failures are *Error values
// carrying ctx.
func (d *Decoder) Decode(desc *schema.TypeDescriptor, raw, sep string, ctx Context) (value.Value, error) {
	if sep == "" {
		sep = d.defaultSep
	}
	switch desc.Kind {
	case schema.KindInt:
		return d.decodeInt(raw, ctx)
	case schema.KindFloat:
		return d.decodeFloat(raw, ctx)
	case schema.KindString:
		return value.String(raw), nil
	case schema.KindBool:
		return d.decodeBool(raw, ctx)
	case schema.KindArray:
		return d.decodeArray(desc.Elem, raw, sep, ctx)
	case schema.KindObject:
		return d.decodeObject(desc.Schema, raw, ctx)
	default:
		return nil, d.errf(ctx, raw, "unsupported type %s", desc)
	}
}

func (d *Decoder) decodeInt(raw string, ctx Context) (value.Value, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, d.errf(ctx, raw, "not an integer")
	}
	return value.Int(n), nil
}

func (d *Decoder) decodeFloat(raw string, ctx Context) (value.Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, d.errf(ctx, raw, "not a number")
	}
	return value.Float(f), nil
}

func (d *Decoder) decodeBool(raw string, ctx Context) (value.Value, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := d.trueTokens[token]; ok {
		return value.Bool(true), nil
	}
	if _, ok := d.falseTokens[token]; ok {
		return value.Bool(false), nil
	}
	return nil, d.errf(ctx, raw, "not a boolean")
}

func (d *Decoder) decodeArray(elem *schema.TypeDescriptor, raw, sep string, ctx Context) (value.Value, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return value.List{}, nil
	}
	parts := strings.Split(trimmed, sep)
	out := make(value.List, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := d.Decode(elem, part, d.defaultSep, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *Decoder) decodeObject(s *schema.ObjectSchema, raw string, ctx Context) (value.Value, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return value.NewMap(), nil
	}

	tokens := strings.Split(trimmed, s.ValueSep)
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}

	if allContain(tokens, s.KVSep) {
		return d.decodeKeyed(s, tokens, ctx)
	}
	return d.decodePositional(s, tokens, ctx)
}

// allContain is the keyed-form predicate: every token carries the
// key-value separator.
func allContain(tokens []string, sep string) bool {
	for _, t := range tokens {
		if !strings.Contains(t, sep) {
			return false
		}
	}
	return len(tokens) > 0
}

func (d *Decoder) decodeKeyed(s *schema.ObjectSchema, tokens []string, ctx Context) (value.Value, error) {
	supplied := make(map[string]string, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		key, val, _ := strings.Cut(token, s.KVSep)
		key = strings.TrimSpace(key)
		if _, ok := s.Field(key); !ok {
			return nil, d.errf(ctx, token, "unknown key %q in object schema %q", key, s.Name)
		}
		supplied[key] = strings.TrimSpace(val)
	}

	out := value.NewMap()
	for i := range s.Fields {
		f := &s.Fields[i]
		raw, ok := supplied[f.Key]
		if !ok {
			if !f.HasDefault {
				return nil, d.errf(ctx, strings.Join(tokens, s.ValueSep),
					"missing key %q in object schema %q and no default declared", f.Key, s.Name)
			}
			raw = f.Default
		}
		v, err := d.Decode(f.Type, raw, d.defaultSep, ctx)
		if err != nil {
			return nil, err
		}
		out.Set(f.Key, v)
	}
	return out, nil
}

func (d *Decoder) decodePositional(s *schema.ObjectSchema, tokens []string, ctx Context) (value.Value, error) {
	if len(tokens) > len(s.Fields) {
		return nil, d.errf(ctx, strings.Join(tokens, s.ValueSep),
			"%d values supplied but object schema %q declares %d fields", len(tokens), s.Name, len(s.Fields))
	}

	out := value.NewMap()
	for i := range s.Fields {
		f := &s.Fields[i]
		var raw string
		switch {
		case i < len(tokens) && tokens[i] != "":
			raw = tokens[i]
		case f.HasDefault:
			raw = f.Default
		default:
			return nil, d.errf(ctx, strings.Join(tokens, s.ValueSep),
				"no value for field %q of object schema %q and no default declared", f.Key, s.Name)
		}
		v, err := d.Decode(f.Type, raw, d.defaultSep, ctx)
		if err != nil {
			return nil, err
		}
		out.Set(f.Key, v)
	}
	return out, nil
}

func (d *Decoder) errf(ctx Context, raw, format string, args ...any) *Error {
	return &Error{
		Field:  ctx.Field,
		Raw:    raw,
		Reason: fmt.Sprintf(format, args...),
		File:   ctx.File,
		Sheet:  ctx.Sheet,
		Row:    ctx.Row,
	}
}
