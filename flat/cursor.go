package flat

import (
	"encoding/binary"
	"math"

	"github.com/fastjq/fastjq/value"
)

// Cursor is a borrowed, read-only position into a Buffer (component 2,
// spec §3.2/§4.3). It is cheap to copy (a single int offset plus a buffer
// pointer) so callers pass it by value between descent steps.
type Cursor struct {
	buf *Buffer
	off int
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf *Buffer) Cursor { return Cursor{buf: buf, off: 0} }

func (c Cursor) tag() Tag { return Tag(c.buf.b[c.off]) }

// Kind reports the value.Kind of the record at the cursor without
// materializing anything.
func (c Cursor) Kind() value.Kind {
	switch c.tag() {
	case TagNull:
		return value.KindNull
	case TagBool:
		return value.KindBool
	case TagInt:
		return value.KindInt
	case TagDouble:
		return value.KindFloat
	case TagString:
		return value.KindString
	case TagArrayStart:
		return value.KindArray
	case TagObjectStart:
		return value.KindObject
	default:
		panic("flat.Cursor: invalid tag at cursor")
	}
}

// skip returns the offset just past the whole record starting at c.off (a
// container's contents and end tag included), used to step over a value
// without descending into it.
func (c Cursor) skip() int {
	off := c.off
	b := c.buf.b
	switch Tag(b[off]) {
	case TagNull:
		return off + 1
	case TagBool:
		return off + 2
	case TagInt:
		return off + 9
	case TagDouble:
		rawLen := int(binary.LittleEndian.Uint32(b[off+9 : off+13]))
		return off + 13 + rawLen
	case TagString:
		strLen := int(binary.LittleEndian.Uint32(b[off+1 : off+5]))
		return off + 5 + strLen
	case TagArrayStart:
		return c.skipContainer(off, TagArrayEnd)
	case TagObjectStart:
		return c.skipContainer(off, TagObjectEnd)
	default:
		panic("flat.Cursor: invalid tag")
	}
}

func (c Cursor) skipContainer(off int, endTag Tag) int {
	// off+1..off+5 is the patched count, which we don't need to skip: we
	// just scan record by record until the matching end tag at depth 0.
	pos := off + 5
	depth := 0
	for {
		t := Tag(c.buf.b[pos])
		switch t {
		case TagArrayStart, TagObjectStart:
			depth++
			pos = (Cursor{buf: c.buf, off: pos}).skipHeader()
		case TagArrayEnd, TagObjectEnd:
			if depth == 0 {
				return pos + 1
			}
			depth--
			pos++
		default:
			pos = (Cursor{buf: c.buf, off: pos}).skip()
		}
	}
}

// skipHeader advances past just the 5-byte Start tag+count header.
func (c Cursor) skipHeader() int { return c.off + 5 }

// Bool returns the boolean payload; only valid when Kind() == KindBool.
func (c Cursor) Bool() bool { return c.buf.b[c.off+1] != 0 }

// Int returns the int64 payload; only valid when Kind() == KindInt.
func (c Cursor) Int() int64 {
	return int64(binary.LittleEndian.Uint64(c.buf.b[c.off+1 : c.off+9]))
}

// Double returns the float64 payload and, if present, the raw source text;
// only valid when Kind() == KindFloat.
func (c Cursor) Double() (float64, string) {
	off := c.off
	b := c.buf.b
	f := math.Float64frombits(binary.LittleEndian.Uint64(b[off+1 : off+9]))
	rawLen := int(binary.LittleEndian.Uint32(b[off+9 : off+13]))
	if rawLen == 0 {
		return f, ""
	}
	return f, string(b[off+13 : off+13+rawLen])
}

// Str returns the string payload; valid for Kind() == KindString.
func (c Cursor) Str() string {
	off := c.off
	b := c.buf.b
	strLen := int(binary.LittleEndian.Uint32(b[off+1 : off+5]))
	return string(b[off+5 : off+5+strLen])
}

// Len returns the element/field count for arrays and objects.
func (c Cursor) Len() int {
	return int(binary.LittleEndian.Uint32(c.buf.b[c.off+1 : c.off+5]))
}

// Elements returns a cursor positioned at each array element in turn.
func (c Cursor) Elements() []Cursor {
	n := c.Len()
	out := make([]Cursor, 0, n)
	pos := c.off + 5
	for i := 0; i < n; i++ {
		out = append(out, Cursor{buf: c.buf, off: pos})
		pos = (Cursor{buf: c.buf, off: pos}).skip()
	}
	return out
}

// Fields returns the (key, valueCursor) pairs of an object in order.
func (c Cursor) Fields() []FieldCursor {
	n := c.Len()
	out := make([]FieldCursor, 0, n)
	pos := c.off + 5
	for i := 0; i < n; i++ {
		keyCur := Cursor{buf: c.buf, off: pos}
		key := keyCur.Str()
		pos = keyCur.skip()
		valCur := Cursor{buf: c.buf, off: pos}
		out = append(out, FieldCursor{Key: key, Val: valCur})
		pos = valCur.skip()
	}
	return out
}

type FieldCursor struct {
	Key string
	Val Cursor
}

// Field descends into an object field by name, returning ok=false if the
// key is absent (or the cursor is not an object).
func (c Cursor) Field(name string) (Cursor, bool) {
	if c.Kind() != value.KindObject {
		return Cursor{}, false
	}
	for _, f := range c.Fields() {
		if f.Key == name {
			return f.Val, true
		}
	}
	return Cursor{}, false
}

// Index descends into an array element by position; negative indices count
// from the end, matching jq semantics.
func (c Cursor) Index(i int) (Cursor, bool) {
	if c.Kind() != value.KindArray {
		return Cursor{}, false
	}
	els := c.Elements()
	if i < 0 {
		i += len(els)
	}
	if i < 0 || i >= len(els) {
		return Cursor{}, false
	}
	return els[i], true
}

// Materialize builds a full value.Value from the cursor's subtree on
// demand — the escape hatch the flat evaluator uses when a filter falls
// outside its subset (spec §4.3).
func (c Cursor) Materialize() value.Value {
	switch c.Kind() {
	case value.KindNull:
		return value.Null
	case value.KindBool:
		return value.Bool(c.Bool())
	case value.KindInt:
		return value.Int(c.Int())
	case value.KindFloat:
		f, raw := c.Double()
		if raw != "" {
			return value.FloatRaw(f, raw)
		}
		return value.Float(f)
	case value.KindString:
		return value.String(c.Str())
	case value.KindArray:
		els := c.Elements()
		out := make([]value.Value, len(els))
		for i, e := range els {
			out[i] = e.Materialize()
		}
		return value.Array(out)
	case value.KindObject:
		fields := c.Fields()
		kvs := make([]value.KV, len(fields))
		for i, f := range fields {
			kvs[i] = value.KV{Key: f.Key, Val: f.Val.Materialize()}
		}
		return value.ObjectValue(value.NewObject(kvs))
	default:
		panic("flat.Cursor: invalid tag")
	}
}

// span returns the [start, end) offsets of this cursor's whole record
// within the flat buffer (not within the source JSON text).
func (c Cursor) span() (int, int) {
	return c.off, c.skip()
}
