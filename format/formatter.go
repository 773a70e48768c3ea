// Package format implements the output formatter of spec §4.6: a compact
// or indented serializer for value.Value, plus a raw-bytes passthrough for
// fast paths that never materialize a Value at all. Adapted from the
// teacher's Printer interface (printer.go) — indent/dedent/newline/bytes —
// generalized from token-stream printing to value.Value serialization.
package format

import (
	"bufio"
	"fmt"
	"math"
	"strconv"

	"github.com/fastjq/fastjq/value"
)

// Options controls serialization per the §6.1 CLI flags that affect it.
type Options struct {
	Compact    bool
	Raw        bool // -r: top-level strings emitted unquoted
	Ascii      bool // -a: escape non-ASCII
	SortKeys   bool // -S
	IndentSize int  // spaces per level in non-compact mode; ignored if Tab
	Tab        bool
}

// Formatter writes Values to an underlying buffered writer.
type Formatter struct {
	w     *bufio.Writer
	opts  Options
	level int
}

func New(w *bufio.Writer, opts Options) *Formatter {
	return &Formatter{w: w, opts: opts}
}

// WriteValue serializes v followed by a single newline (spec §4.6).
func (f *Formatter) WriteValue(v value.Value) error {
	if f.opts.Raw && v.Kind() == value.KindString {
		s, _ := v.AsString()
		if _, err := f.w.WriteString(s); err != nil {
			return err
		}
	} else if err := f.writeValue(v); err != nil {
		return err
	}
	return f.w.WriteByte('\n')
}

// WriteRawLine passes bytes through verbatim followed by a newline — used
// by fast-path passthrough executors (spec §4.7) that already hold the
// exact output bytes and must not re-serialize them.
func (f *Formatter) WriteRawLine(b []byte) error {
	if _, err := f.w.Write(b); err != nil {
		return err
	}
	return f.w.WriteByte('\n')
}

func (f *Formatter) indentUnit() string {
	if f.opts.Tab {
		return "\t"
	}
	n := f.opts.IndentSize
	if n <= 0 {
		n = 2
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	return string(out)
}

func (f *Formatter) newline() error {
	if f.opts.Compact {
		return nil
	}
	if err := f.w.WriteByte('\n'); err != nil {
		return err
	}
	unit := f.indentUnit()
	for i := 0; i < f.level; i++ {
		if _, err := f.w.WriteString(unit); err != nil {
			return err
		}
	}
	return nil
}

func (f *Formatter) writeValue(v value.Value) error {
	switch v.Kind() {
	case value.KindNull:
		_, err := f.w.WriteString("null")
		return err
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			_, err := f.w.WriteString("true")
			return err
		}
		_, err := f.w.WriteString("false")
		return err
	case value.KindInt:
		i, _ := v.AsInt()
		_, err := f.w.WriteString(strconv.FormatInt(i, 10))
		return err
	case value.KindFloat:
		return f.writeFloat(v)
	case value.KindString:
		s, _ := v.AsString()
		return f.writeString(s)
	case value.KindArray:
		return f.writeArray(v)
	case value.KindObject:
		return f.writeObject(v)
	default:
		return fmt.Errorf("format: invalid value kind")
	}
}

// writeFloat implements the shortest-round-trip-or-raw-text rule of spec
// §4.6: a preserved raw literal wins when present; otherwise strconv's
// shortest representation in 'g' form (-1 precision), which uses an
// exponent for large or small magnitudes (1000000 prints as 1e+06).
func (f *Formatter) writeFloat(v value.Value) error {
	fv, _ := v.AsFloat()
	if raw, ok := v.RawText(); ok {
		_, err := f.w.WriteString(raw)
		return err
	}
	if math.IsNaN(fv) {
		_, err := f.w.WriteString("null")
		return err
	}
	if math.IsInf(fv, 1) {
		_, err := f.w.WriteString("1.7976931348623157e+308")
		return err
	}
	if math.IsInf(fv, -1) {
		_, err := f.w.WriteString("-1.7976931348623157e+308")
		return err
	}
	s := strconv.FormatFloat(fv, 'g', -1, 64)
	_, err := f.w.WriteString(s)
	return err
}

func (f *Formatter) writeString(s string) error {
	if err := f.w.WriteByte('"'); err != nil {
		return err
	}
	for _, r := range s {
		switch r {
		case '"':
			f.w.WriteString(`\"`)
		case '\\':
			f.w.WriteString(`\\`)
		case '\b':
			f.w.WriteString(`\b`)
		case '\f':
			f.w.WriteString(`\f`)
		case '\n':
			f.w.WriteString(`\n`)
		case '\r':
			f.w.WriteString(`\r`)
		case '\t':
			f.w.WriteString(`\t`)
		default:
			switch {
			case r < 0x20:
				fmt.Fprintf(f.w, `\u%04x`, r)
			case r > 0x7E && f.opts.Ascii:
				if r > 0xFFFF {
					r1, r2 := utf16Surrogates(r)
					fmt.Fprintf(f.w, `\u%04x\u%04x`, r1, r2)
				} else {
					fmt.Fprintf(f.w, `\u%04x`, r)
				}
			default:
				f.w.WriteRune(r)
			}
		}
	}
	return f.w.WriteByte('"')
}

func utf16Surrogates(r rune) (rune, rune) {
	r -= 0x10000
	return 0xD800 + (r >> 10), 0xDC00 + (r & 0x3FF)
}

func (f *Formatter) writeArray(v value.Value) error {
	items, _ := v.AsArray()
	if len(items) == 0 {
		_, err := f.w.WriteString("[]")
		return err
	}
	if err := f.w.WriteByte('['); err != nil {
		return err
	}
	f.level++
	for i, item := range items {
		if i > 0 {
			if err := f.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := f.newline(); err != nil {
			return err
		}
		if err := f.writeValue(item); err != nil {
			return err
		}
	}
	f.level--
	if err := f.newline(); err != nil {
		return err
	}
	return f.w.WriteByte(']')
}

func (f *Formatter) writeObject(v value.Value) error {
	obj, _ := v.AsObject()
	if obj.Len() == 0 {
		_, err := f.w.WriteString("{}")
		return err
	}
	keys := obj.Keys()
	if f.opts.SortKeys {
		keys = obj.SortedKeys()
	}
	if err := f.w.WriteByte('{'); err != nil {
		return err
	}
	f.level++
	for i, k := range keys {
		if i > 0 {
			if err := f.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := f.newline(); err != nil {
			return err
		}
		if err := f.writeString(k); err != nil {
			return err
		}
		if err := f.w.WriteByte(':'); err != nil {
			return err
		}
		if !f.opts.Compact {
			f.w.WriteByte(' ')
		}
		val, _ := obj.Get(k)
		if err := f.writeValue(val); err != nil {
			return err
		}
	}
	f.level--
	if err := f.newline(); err != nil {
		return err
	}
	return f.w.WriteByte('}')
}

// Minify parses nothing; it copies raw with every whitespace byte outside
// string literals removed: used when a fast path already holds the exact raw bytes of a
// value and only needs whitespace collapsed for compact output. Kept here
// (not in fastpath) since it is strictly an output-formatting concern.
func Minify(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	inStr := false
	escaped := false
	for _, b := range raw {
		if inStr {
			out = append(out, b)
			if escaped {
				escaped = false
			} else if b == '\\' {
				escaped = true
			} else if b == '"' {
				inStr = false
			}
			continue
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '"':
			inStr = true
			out = append(out, b)
		default:
			out = append(out, b)
		}
	}
	return out
}
