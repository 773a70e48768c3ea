package fastpath

import (
	"bufio"
	"bytes"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/format"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/internal/simd"
	"github.com/fastjq/fastjq/value"
)

// Result is one fast-path execution outcome: either Raw bytes to write
// verbatim (already minified, no trailing newline), a computed Value to
// hand to the normal formatter, or Skip for a select that didn't match
// (the line/element is dropped, nothing is written).
type Result struct {
	Raw      []byte
	Value    value.Value
	HasValue bool
	Skip     bool
}

// Exec runs plan against doc (one NDJSON line, or the whole single-document
// input) using parser for raw field extraction. It never falls back on its
// own — Detect already guaranteed the shape matches, so any error here is
// a genuine parse/type failure to surface, not a reason to degrade.
func Exec(plan *Plan, parser simd.Parser, doc []byte) (Result, error) {
	if plan.PerElement {
		return execPerElement(plan, parser, doc)
	}
	return execOne(plan, parser, doc)
}

func execPerElement(plan *Plan, parser simd.Parser, doc []byte) (Result, error) {
	buf, err := parser.ParseDocument(doc)
	if err != nil {
		return Result{}, err
	}
	root := flat.NewCursor(buf)
	if root.Kind() != value.KindArray {
		return Result{}, fastjqerr.New(fastjqerr.KindType, "Cannot iterate over %s", root.Kind())
	}
	inner := *plan
	inner.PerElement = false
	out := make([]value.Value, 0, root.Len())
	for _, el := range root.Elements() {
		elDoc := materializeBytes(el)
		r, err := execOne(&inner, parser, elDoc)
		if err != nil {
			return Result{}, err
		}
		if r.Skip {
			continue
		}
		out = append(out, resultValue(r))
	}
	return Result{Value: value.Array(out), HasValue: true}, nil
}

// materializeBytes re-serializes an element cursor back to compact JSON
// bytes so the per-element executor can reuse the same raw-bytes-oriented
// Exec path as top-level documents; elements of an already-parsed array
// are cheap to re-flatten since they never left the same flat.Buffer. It
// goes through the normal Formatter rather than a hand-rolled encoder so
// string escaping and number formatting stay in one place.
func materializeBytes(c flat.Cursor) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fm := format.New(w, format.Options{Compact: true})
	_ = fm.WriteValue(c.Materialize())
	_ = w.Flush()
	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return out
}

func resultValue(r Result) value.Value {
	if r.HasValue {
		return r.Value
	}
	return value.Null
}

func execOne(plan *Plan, parser simd.Parser, doc []byte) (Result, error) {
	switch plan.Kind {
	case KindIdentity:
		// Validate by parsing into a flat buffer and materialize the Value
		// (returned alongside for callers that need it); the output bytes
		// are the minified original bytes, not a re-serialization of it.
		buf, err := parser.ParseDocument(doc)
		if err != nil {
			return Result{}, err
		}
		v := flat.NewCursor(buf).Materialize()
		return Result{Raw: format.Minify(doc), Value: v, HasValue: true}, nil

	case KindFieldChain:
		raw, found, err := chainRaw(parser, doc, plan.Chain)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Result{Raw: []byte("null"), Value: value.Null, HasValue: true}, nil
		}
		buf, err := parser.ParseDocument(raw)
		if err != nil {
			return Result{}, err
		}
		v := flat.NewCursor(buf).Materialize()
		return Result{Raw: format.Minify(raw), Value: v, HasValue: true}, nil

	case KindLength, KindType, KindKeys, KindKeysUnsorted:
		cur, err := chainCursor(parser, doc, plan.Chain)
		if err != nil {
			return Result{}, err
		}
		v, err := computeBuiltin(plan.Kind, cur)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: v, HasValue: true}, nil

	case KindHas:
		cur, err := chainCursor(parser, doc, plan.Chain)
		if err != nil {
			return Result{}, err
		}
		has, err := hasKey(cur, plan.HasArg)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: value.Bool(has), HasValue: true}, nil

	case KindMultiFieldObject:
		v, err := buildObject(parser, doc, plan.Fields)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: v, HasValue: true}, nil

	case KindMultiFieldArray:
		v, err := buildArray(parser, doc, plan.Fields)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: v, HasValue: true}, nil

	case KindSelectEq:
		ok, err := matchSelect(parser, doc, plan)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{Skip: true}, nil
		}
		return Result{Raw: format.Minify(doc)}, nil

	case KindSelectExtract:
		ok, err := matchSelect(parser, doc, plan)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{Skip: true}, nil
		}
		return execOne(plan.Second, parser, doc)

	default:
		return Result{}, fastjqerr.New(fastjqerr.KindType, "fastpath: unrecognized plan")
	}
}

func chainRaw(parser simd.Parser, doc []byte, chain []string) ([]byte, bool, error) {
	if len(chain) == 0 {
		return doc, true, nil
	}
	return parser.FieldChain(doc, chain)
}

func chainCursor(parser simd.Parser, doc []byte, chain []string) (flat.Cursor, error) {
	raw, found, err := chainRaw(parser, doc, chain)
	if err != nil {
		return flat.Cursor{}, err
	}
	if !found {
		raw = []byte("null")
	}
	buf, err := parser.ParseDocument(raw)
	if err != nil {
		return flat.Cursor{}, err
	}
	return flat.NewCursor(buf), nil
}

func computeBuiltin(kind Kind, cur flat.Cursor) (value.Value, error) {
	switch kind {
	case KindLength:
		return lengthOf(cur)
	case KindType:
		return value.String(cur.Kind().String()), nil
	case KindKeys:
		return keysOf(cur, true)
	case KindKeysUnsorted:
		return keysOf(cur, false)
	default:
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "fastpath: not a builtin kind")
	}
}

func lengthOf(cur flat.Cursor) (value.Value, error) {
	switch cur.Kind() {
	case value.KindNull:
		return value.Int(0), nil
	case value.KindBool:
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "boolean has no length")
	case value.KindInt:
		n := cur.Int()
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	case value.KindFloat:
		f, _ := cur.Double()
		if f < 0 {
			f = -f
		}
		return value.Float(f), nil
	case value.KindString:
		return value.Int(int64(len([]rune(cur.Str())))), nil
	case value.KindArray, value.KindObject:
		return value.Int(int64(cur.Len())), nil
	default:
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "%s has no length", cur.Kind())
	}
}

func keysOf(cur flat.Cursor, sorted bool) (value.Value, error) {
	switch cur.Kind() {
	case value.KindArray:
		n := cur.Len()
		out := make([]value.Value, n)
		for i := range out {
			out[i] = value.Int(int64(i))
		}
		return value.Array(out), nil
	case value.KindObject:
		fields := cur.Fields()
		ks := make([]string, len(fields))
		for i, f := range fields {
			ks[i] = f.Key
		}
		if sorted {
			for i := 1; i < len(ks); i++ {
				for j := i; j > 0 && ks[j-1] > ks[j]; j-- {
					ks[j-1], ks[j] = ks[j], ks[j-1]
				}
			}
		}
		out := make([]value.Value, len(ks))
		for i, k := range ks {
			out[i] = value.String(k)
		}
		return value.Array(out), nil
	default:
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "%s has no keys", cur.Kind())
	}
}

func hasKey(cur flat.Cursor, key string) (bool, error) {
	switch cur.Kind() {
	case value.KindObject:
		_, ok := cur.Field(key)
		return ok, nil
	default:
		return false, fastjqerr.New(fastjqerr.KindType, "Cannot check whether %s has a key", cur.Kind())
	}
}

func buildObject(parser simd.Parser, doc []byte, fields []FieldSpec) (value.Value, error) {
	kvs := make([]value.KV, len(fields))
	for i, f := range fields {
		cur, err := chainCursor(parser, doc, f.Chain)
		if err != nil {
			return value.Value{}, err
		}
		kvs[i] = value.KV{Key: f.Key, Val: cur.Materialize()}
	}
	return value.ObjectValue(value.NewObject(kvs)), nil
}

func buildArray(parser simd.Parser, doc []byte, fields []FieldSpec) (value.Value, error) {
	out := make([]value.Value, len(fields))
	for i, f := range fields {
		cur, err := chainCursor(parser, doc, f.Chain)
		if err != nil {
			return value.Value{}, err
		}
		out[i] = cur.Materialize()
	}
	return value.Array(out), nil
}

func matchSelect(parser simd.Parser, doc []byte, plan *Plan) (bool, error) {
	cur, err := chainCursor(parser, doc, plan.Chain)
	if err != nil {
		return false, err
	}
	lhs := cur.Materialize()
	cmp := value.Compare(lhs, plan.Literal)
	switch plan.Op {
	case ast.CmpEq:
		return cmp == 0, nil
	case ast.CmpNe:
		return cmp != 0, nil
	case ast.CmpLt:
		return cmp < 0, nil
	case ast.CmpLe:
		return cmp <= 0, nil
	case ast.CmpGt:
		return cmp > 0, nil
	case ast.CmpGe:
		return cmp >= 0, nil
	default:
		return false, fastjqerr.New(fastjqerr.KindType, "fastpath: unrecognized compare op")
	}
}
