// Package flat implements the flat buffer (spec §3.2) — a linear
// tag-length-value byte stream (wire layout in spec §6.3) that a Cursor
// (cursor.go) can descend without allocating intermediate value.Value
// nodes. It is produced either by internal/simd (walking a simdjson-go
// tape) or by internal/flatdecode (the scanner-based fallback), and
// consumed by flateval and, via Materialize, by the tree-walking evaluator.
package flat

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tag identifies the kind of record at a given buffer offset (spec §6.3).
type Tag byte

const (
	TagNull        Tag = 0
	TagBool        Tag = 1
	TagInt         Tag = 2
	TagDouble      Tag = 3
	TagString      Tag = 4
	TagArrayStart  Tag = 5
	TagArrayEnd    Tag = 6
	TagObjectStart Tag = 7
	TagObjectEnd   Tag = 8
)

// Buffer is an immutable flat-encoded document (or NDJSON line). Its bytes
// outlive every Cursor built over it, per spec §3.2.
type Buffer struct {
	b []byte
}

func NewBuffer(b []byte) *Buffer { return &Buffer{b: b} }

func (buf *Buffer) Bytes() []byte { return buf.b }

// Builder accumulates TLV records; Array/Object counts are patched in place
// once their children have been written, matching spec §6.3's "count
// written after children are emitted" rule.
type Builder struct {
	buf []byte
	// stack of offsets of the count field for array/object starts still open.
	countPatch []int
	// counts[i] parallels countPatch: running child/field count for that level.
	counts []uint32
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) bumpParentCount() {
	if n := len(b.counts); n > 0 {
		b.counts[n-1]++
	}
}

func (b *Builder) Null() {
	b.bumpParentCount()
	b.buf = append(b.buf, byte(TagNull))
}

func (b *Builder) Bool(v bool) {
	b.bumpParentCount()
	b.buf = append(b.buf, byte(TagBool))
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
}

func (b *Builder) Int(v int64) {
	b.bumpParentCount()
	b.buf = append(b.buf, byte(TagInt))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	b.buf = append(b.buf, tmp[:]...)
}

// Double appends a double record; raw is the original source token, or ""
// if the value was computed (raw_len == 0 per spec §6.3).
func (b *Builder) Double(v float64, raw string) {
	b.bumpParentCount()
	b.buf = append(b.buf, byte(TagDouble))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	b.buf = append(b.buf, tmp[:]...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(raw)))
	b.buf = append(b.buf, lenBuf[:]...)
	b.buf = append(b.buf, raw...)
}

func (b *Builder) String(s string) {
	b.bumpParentCount()
	b.buf = append(b.buf, byte(TagString))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	b.buf = append(b.buf, lenBuf[:]...)
	b.buf = append(b.buf, s...)
}

// Key appends a string record representing an object key; it does not bump
// the parent count since the following value record is what's counted (one
// count increment per field, not per key+value pair = two records).
func (b *Builder) Key(s string) {
	b.buf = append(b.buf, byte(TagString))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	b.buf = append(b.buf, lenBuf[:]...)
	b.buf = append(b.buf, s...)
}

func (b *Builder) StartArray() {
	b.bumpParentCount()
	b.buf = append(b.buf, byte(TagArrayStart))
	b.countPatch = append(b.countPatch, len(b.buf))
	b.counts = append(b.counts, 0)
	var zero [4]byte
	b.buf = append(b.buf, zero[:]...)
}

func (b *Builder) EndArray() {
	b.patchCount()
	b.buf = append(b.buf, byte(TagArrayEnd))
}

func (b *Builder) StartObject() {
	b.bumpParentCount()
	b.buf = append(b.buf, byte(TagObjectStart))
	b.countPatch = append(b.countPatch, len(b.buf))
	b.counts = append(b.counts, 0)
	var zero [4]byte
	b.buf = append(b.buf, zero[:]...)
}

func (b *Builder) EndObject() {
	b.patchCount()
	b.buf = append(b.buf, byte(TagObjectEnd))
}

func (b *Builder) patchCount() {
	n := len(b.countPatch)
	off := b.countPatch[n-1]
	cnt := b.counts[n-1]
	b.countPatch = b.countPatch[:n-1]
	b.counts = b.counts[:n-1]
	binary.LittleEndian.PutUint32(b.buf[off:off+4], cnt)
}

func (b *Builder) Build() *Buffer {
	if len(b.countPatch) != 0 {
		panic(fmt.Sprintf("flat.Builder: %d unclosed container(s)", len(b.countPatch)))
	}
	return &Buffer{b: b.buf}
}
