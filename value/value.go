// Package value implements the fastjq runtime value model (spec §3.1): the
// seven-variant JSON value sum type that every evaluator in this module
// (tree-walking and flat) ultimately produces and consumes.
package value

import (
	"fmt"
	"sort"
)

// Kind discriminates the seven Value variants.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt, KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable JSON value. It is small enough to pass by value;
// Array and Object share their backing storage (slice headers / pointers),
// so copying a Value is O(1) and concurrent readers never race — nothing
// ever mutates an Array or Object in place once constructed. There are no
// cycles (jq has no way to construct one), so plain GC ownership stands in
// for the refcounting the design notes describe as the other valid option.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	// raw, when non-empty, is the literal source text for a Float that was
	// read from input and never touched arithmetic (spec §3.1/§4.6). It is
	// absent from every Float that arithmetic computes; adding null returns
	// the other operand unchanged, raw text included.
	raw string
	str string
	arr []Value
	obj *Object
}

// Null is the singleton null value.
var Null = Value{kind: KindNull}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float constructs a float value with no preserved literal text.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// FloatRaw constructs a float value that preserves its original source
// text for literal round-tripping (spec §3.1, §4.6).
func FloatRaw(f float64, raw string) Value { return Value{kind: KindFloat, f: f, raw: raw} }

// String constructs a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array constructs an array value from a shared element slice. Callers must
// not mutate items after passing it here.
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }

// EmptyArray is the canonical empty array.
var EmptyArray = Value{kind: KindArray, arr: []Value{}}

// ObjectValue wraps an already-built *Object as a Value.
func ObjectValue(o *Object) Value { return Value{kind: KindObject, obj: o} }

// EmptyObject is the canonical empty object.
var EmptyObject = ObjectValue(NewObject(nil))

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Truthy implements jq truthiness: only false and null are false.
func (v Value) Truthy() bool {
	return !(v.kind == KindNull || (v.kind == KindBool && !v.b))
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsFloat returns the numeric value as a float64 regardless of whether it
// is stored as Int or Float.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// AsInt returns the exact int64 if this is an Int; ok is false for Float
// even when it happens to be integral, since callers that need this
// distinction (e.g. the flat evaluator's literal passthrough) care about
// the stored representation, not the mathematical value.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

func (v Value) RawText() (string, bool) {
	if v.kind != KindFloat || v.raw == "" {
		return "", false
	}
	return v.raw, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Object is an ordered, last-writer-wins (key, value) sequence (spec §3.1).
// Position follows first insertion of a key; a later write to the same key
// updates the value in place without moving it, which matches jq's own
// object-literal construction order.
type Object struct {
	keys []string
	vals []Value
	idx  map[string]int
}

// KV is a single field used to build an Object.
type KV struct {
	Key string
	Val Value
}

// NewObject builds an ordered Object from fields, resolving duplicate keys
// last-writer-wins while keeping the first occurrence's position.
func NewObject(fields []KV) *Object {
	o := &Object{idx: make(map[string]int, len(fields))}
	for _, f := range fields {
		o.Set(f.Key, f.Val)
	}
	return o
}

// Set inserts or updates a field, preserving first-insertion order.
func (o *Object) Set(key string, val Value) {
	if i, ok := o.idx[key]; ok {
		o.vals[i] = val
		return
	}
	o.idx[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, val)
}

func (o *Object) Get(key string) (Value, bool) {
	i, ok := o.idx[key]
	if !ok {
		return Value{}, false
	}
	return o.vals[i], true
}

func (o *Object) Len() int { return len(o.keys) }

// Delete removes key if present, preserving the relative order of the
// remaining keys.
func (o *Object) Delete(key string) {
	i, ok := o.idx[key]
	if !ok {
		return
	}
	o.keys = append(o.keys[:i], o.keys[i+1:]...)
	o.vals = append(o.vals[:i], o.vals[i+1:]...)
	delete(o.idx, key)
	for k, j := range o.idx {
		if j > i {
			o.idx[k] = j - 1
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string { return o.keys }

// SortedKeys returns a freshly sorted copy of the keys.
func (o *Object) SortedKeys() []string {
	ks := make([]string, len(o.keys))
	copy(ks, o.keys)
	sort.Strings(ks)
	return ks
}

// Each calls fn for every field in insertion order.
func (o *Object) Each(fn func(key string, val Value)) {
	for i, k := range o.keys {
		fn(k, o.vals[i])
	}
}

// Clone returns a shallow copy safe to Set on without affecting o.
func (o *Object) Clone() *Object {
	clone := &Object{
		keys: append([]string(nil), o.keys...),
		vals: append([]Value(nil), o.vals...),
		idx:  make(map[string]int, len(o.idx)),
	}
	for k, i := range o.idx {
		clone.idx[k] = i
	}
	return clone
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.str
	case KindArray:
		return fmt.Sprintf("array[%d]", len(v.arr))
	case KindObject:
		return fmt.Sprintf("object[%d]", v.obj.Len())
	default:
		return "<invalid>"
	}
}
