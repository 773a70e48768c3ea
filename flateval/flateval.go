// Package flateval implements the flat evaluator of spec §4.3: a subset
// interpreter that runs filters directly against a flat.Cursor instead of
// a materialized value.Value tree. It exists purely as an optimization —
// flateval.Eval must produce, output for output, the exact same sequence
// of value.Values that eval.Eval would over the same filter and the
// cursor's materialized root. Anything outside the subset is not handled
// here at all; callers check Supported(node) once up front (per
// pipeline/singledoc's dispatch, spec §4.5 step 3) and use eval.Eval
// directly when it returns false.
package flateval

import (
	"strconv"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/eval"
	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/value"
)

func key(name string, arity int) string { return name + "/" + strconv.Itoa(arity) }

// Supported reports whether node's shape stays entirely inside the
// flat-eval subset: Identity, Field, OptionalField, Pipe, Comma, Iterate,
// ArrayConstruct, ObjectConstruct, Literal, select/1, //, try/?, and
// length/type/keys/keys_unsorted/not/has builtins, plus Reduce when its
// update never reads the bound pattern variable (dead-variable
// elimination — the source's output count can then drive a plain N-times
// update loop instead of threading a per-iteration binding).
func Supported(node ast.Node) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *ast.Identity, *ast.Iterate, *ast.Literal:
		return true
	case *ast.Field, *ast.OptionalField:
		return true
	case *ast.Pipe:
		return Supported(n.Left) && Supported(n.Right)
	case *ast.Comma:
		return Supported(n.Left) && Supported(n.Right)
	case *ast.ArrayConstruct:
		return Supported(n.Body)
	case *ast.ObjectConstruct:
		for _, e := range n.Entries {
			if e.VarShorthand {
				return false
			}
			if e.KeyExpr != nil && !Supported(e.KeyExpr) {
				return false
			}
			if e.Val != nil && !Supported(e.Val) {
				return false
			}
		}
		return true
	case *ast.Alternative:
		return Supported(n.Left) && Supported(n.Right)
	case *ast.TryCatch:
		return Supported(n.Body) && (n.Handler == nil || Supported(n.Handler))
	case *ast.FuncCall:
		for _, a := range n.Args {
			if !Supported(a) {
				return false
			}
		}
		switch key(n.Name, len(n.Args)) {
		case "length/0", "type/0", "keys/0", "keys_unsorted/0", "not/0", "has/1", "select/1":
			return true
		}
		return false
	case *ast.Reduce:
		if !n.Pattern.IsSimpleVar() {
			return false
		}
		return Supported(n.Source) && Supported(n.Init) && Supported(n.Update) &&
			!usesVar(n.Update, n.Pattern.Var)
	default:
		return false
	}
}

// usesVar conservatively reports whether $name is referenced anywhere
// under node, without tracking shadowing by nested bindings of the same
// name. A false positive only costs a fallback to the tree evaluator, so
// over-reporting "used" is safe; under-reporting would not be.
func usesVar(node ast.Node, name string) bool {
	switch n := node.(type) {
	case nil:
		return false
	case *ast.Var:
		return n.Name == name
	case *ast.Field, *ast.OptionalField, *ast.Identity, *ast.Iterate, *ast.Recurse, *ast.Literal, *ast.Break:
		return false
	case *ast.Pipe:
		return usesVar(n.Left, name) || usesVar(n.Right, name)
	case *ast.Comma:
		return usesVar(n.Left, name) || usesVar(n.Right, name)
	case *ast.ArrayConstruct:
		return usesVar(n.Body, name)
	case *ast.ObjectConstruct:
		for _, e := range n.Entries {
			if usesVar(e.KeyExpr, name) || usesVar(e.Val, name) {
				return true
			}
		}
		return false
	case *ast.Negate:
		return usesVar(n.Expr, name)
	case *ast.Arith:
		return usesVar(n.Left, name) || usesVar(n.Right, name)
	case *ast.Compare:
		return usesVar(n.Left, name) || usesVar(n.Right, name)
	case *ast.BoolOp:
		return usesVar(n.Left, name) || usesVar(n.Right, name)
	case *ast.Not:
		return usesVar(n.Expr, name)
	case *ast.Alternative:
		return usesVar(n.Left, name) || usesVar(n.Right, name)
	case *ast.TryCatch:
		return usesVar(n.Body, name) || usesVar(n.Handler, name)
	case *ast.IfThenElse:
		return usesVar(n.Cond, name) || usesVar(n.Then, name) || usesVar(n.Else, name)
	case *ast.Reduce:
		return usesVar(n.Source, name) || usesVar(n.Init, name) || usesVar(n.Update, name)
	case *ast.Foreach:
		return usesVar(n.Source, name) || usesVar(n.Init, name) || usesVar(n.Update, name) || usesVar(n.Extract, name)
	case *ast.Bind:
		return usesVar(n.Expr, name) || usesVar(n.Body, name)
	case *ast.FuncDef:
		return usesVar(n.Body, name) || usesVar(n.Rest, name)
	case *ast.FuncCall:
		for _, a := range n.Args {
			if usesVar(a, name) {
				return true
			}
		}
		return false
	case *ast.Builtin:
		for _, a := range n.Args {
			if usesVar(a, name) {
				return true
			}
		}
		return false
	case *ast.Label:
		return usesVar(n.Body, name)
	case *ast.StringInterpolation:
		for _, e := range n.Exprs {
			if usesVar(e, name) {
				return true
			}
		}
		return false
	case *ast.FormatNode:
		return usesVar(n.Body, name)
	case *ast.Paths:
		return usesVar(n.Expr, name)
	case *ast.PathUpdate:
		return usesVar(n.PathExpr, name) || usesVar(n.Rhs, name)
	case *ast.Slice:
		return usesVar(n.From, name) || usesVar(n.To, name)
	default:
		return true
	}
}

// cursorEmit receives one generator output while it is still a bare
// flat.Cursor. Every producer in this package — navigation as well as
// literals, constructors and builtin results re-encoded via valueCursor —
// funnels through this type, so a pipe/comma chain never drops back to
// value.Value until the top-level Eval call materializes the final
// output.
type cursorEmit func(flat.Cursor) error

// Eval runs node against cur, calling emit once per generator output in
// order. Supported(node) must already hold; Eval does not fall back.
func Eval(node ast.Node, cur flat.Cursor, sc *eval.Scope, emit eval.Emit) error {
	return step(node, cur, sc, func(c flat.Cursor) error {
		return emit(c.Materialize())
	})
}

func step(node ast.Node, cur flat.Cursor, sc *eval.Scope, next cursorEmit) error {
	switch n := node.(type) {
	case nil, *ast.Identity:
		return next(cur)

	case *ast.Literal:
		return next(valueCursor(n.Val))

	case *ast.Iterate:
		switch cur.Kind() {
		case value.KindArray:
			for _, e := range cur.Elements() {
				if err := next(e); err != nil {
					return err
				}
			}
			return nil
		case value.KindObject:
			for _, f := range cur.Fields() {
				if err := next(f.Val); err != nil {
					return err
				}
			}
			return nil
		default:
			return fastjqerr.New(fastjqerr.KindType, "Cannot iterate over %s", cur.Kind())
		}

	case *ast.Field:
		return stepField(cur, n.Name, false, next)

	case *ast.OptionalField:
		return stepField(cur, n.Name, true, next)

	case *ast.Pipe:
		return step(n.Left, cur, sc, func(c flat.Cursor) error {
			return step(n.Right, c, sc, next)
		})

	case *ast.Comma:
		if err := step(n.Left, cur, sc, next); err != nil {
			return err
		}
		return step(n.Right, cur, sc, next)

	case *ast.ArrayConstruct:
		var out []value.Value
		if n.Body != nil {
			if err := step(n.Body, cur, sc, func(c flat.Cursor) error {
				out = append(out, c.Materialize())
				return nil
			}); err != nil {
				return err
			}
		}
		if out == nil {
			out = []value.Value{}
		}
		return next(valueCursor(value.Array(out)))

	case *ast.ObjectConstruct:
		return stepObjectConstruct(n, cur, sc, next)

	case *ast.Alternative:
		got := false
		err := step(n.Left, cur, sc, func(c flat.Cursor) error {
			v := c.Materialize()
			if !v.Truthy() {
				return nil
			}
			got = true
			return next(c)
		})
		if err != nil {
			if _, ok := err.(*fastjqerr.Error); !ok {
				return err
			}
			err = nil
		}
		if got {
			return err
		}
		return step(n.Right, cur, sc, next)

	case *ast.TryCatch:
		err := step(n.Body, cur, sc, next)
		if err == nil {
			return nil
		}
		fe, ok := err.(*fastjqerr.Error)
		if !ok {
			return err // BreakSignal or other non-catchable error passes through
		}
		if n.Handler == nil {
			return nil
		}
		return step(n.Handler, valueCursor(value.String(fe.Msg)), sc, next)

	case *ast.FuncCall:
		return stepBuiltin(n, cur, sc, next)

	case *ast.Reduce:
		return stepReduce(n, cur, sc, next)

	default:
		return fastjqerr.New(fastjqerr.KindType, "flateval: unsupported node %T", node)
	}
}

func stepField(cur flat.Cursor, name string, optional bool, next cursorEmit) error {
	v, ok := cur.Field(name)
	if ok {
		return next(v)
	}
	switch cur.Kind() {
	case value.KindObject, value.KindNull:
		return next(valueCursor(value.Null))
	default:
		if optional {
			return nil
		}
		return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with \"%s\"", cur.Kind(), name)
	}
}

func stepObjectConstruct(n *ast.ObjectConstruct, cur flat.Cursor, sc *eval.Scope, next cursorEmit) error {
	return stepEntries(n.Entries, 0, cur, sc, nil, next)
}

// stepEntries builds the cross-product of every entry's generator outputs,
// exactly as eval.go's tree-walking ObjectConstruct does, one field at a
// time via recursion over the entry list.
func stepEntries(entries []ast.ObjectEntry, i int, cur flat.Cursor, sc *eval.Scope, acc []value.KV, next cursorEmit) error {
	if i == len(entries) {
		out := make([]value.KV, len(acc))
		copy(out, acc)
		return next(valueCursor(value.ObjectValue(value.NewObject(out))))
	}
	e := entries[i]
	if e.Val == nil {
		// `{name}` shorthand: value is `.name` on the input cur (`{$var}`
		// never gets here; Supported rejects it).
		v, ok := cur.Field(e.KeyName)
		var mv value.Value
		if ok {
			mv = v.Materialize()
		} else {
			mv = value.Null
		}
		return stepEntries(entries, i+1, cur, sc, append(acc, value.KV{Key: e.KeyName, Val: mv}), next)
	}
	keyFor := func(k string) error {
		return step(e.Val, cur, sc, func(vc flat.Cursor) error {
			return stepEntries(entries, i+1, cur, sc, append(acc, value.KV{Key: k, Val: vc.Materialize()}), next)
		})
	}
	if e.KeyExpr == nil {
		return keyFor(e.KeyName)
	}
	return step(e.KeyExpr, cur, sc, func(kc flat.Cursor) error {
		k, _ := kc.Materialize().AsString()
		return keyFor(k)
	})
}

func stepBuiltin(n *ast.FuncCall, cur flat.Cursor, sc *eval.Scope, next cursorEmit) error {
	switch key(n.Name, len(n.Args)) {
	case "length/0":
		v, err := flatLength(cur)
		if err != nil {
			return err
		}
		return next(valueCursor(v))
	case "type/0":
		return next(valueCursor(value.String(cur.Kind().String())))
	case "keys/0":
		v, err := flatKeys(cur, true)
		if err != nil {
			return err
		}
		return next(valueCursor(v))
	case "keys_unsorted/0":
		v, err := flatKeys(cur, false)
		if err != nil {
			return err
		}
		return next(valueCursor(v))
	case "not/0":
		return next(valueCursor(value.Bool(!cur.Materialize().Truthy())))
	case "has/1":
		return step(n.Args[0], cur, sc, func(kc flat.Cursor) error {
			ok, err := flatHas(cur, kc.Materialize())
			if err != nil {
				return err
			}
			return next(valueCursor(value.Bool(ok)))
		})
	case "select/1":
		matched := false
		if err := step(n.Args[0], cur, sc, func(c flat.Cursor) error {
			if c.Materialize().Truthy() {
				matched = true
			}
			return nil
		}); err != nil {
			return err
		}
		if !matched {
			return nil
		}
		return next(cur)
	default:
		return fastjqerr.New(fastjqerr.KindType, "flateval: unsupported builtin %s/%d", n.Name, len(n.Args))
	}
}

func flatLength(cur flat.Cursor) (value.Value, error) {
	switch cur.Kind() {
	case value.KindNull:
		return value.Int(0), nil
	case value.KindBool:
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "boolean (%s) has no length", cur.Materialize().String())
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

func flatKeys(cur flat.Cursor, sorted bool) (value.Value, error) {
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
			out := make([]string, len(ks))
			copy(out, ks)
			for i := 1; i < len(out); i++ {
				for j := i; j > 0 && out[j-1] > out[j]; j-- {
					out[j-1], out[j] = out[j], out[j-1]
				}
			}
			ks = out
		}
		vals := make([]value.Value, len(ks))
		for i, k := range ks {
			vals[i] = value.String(k)
		}
		return value.Array(vals), nil
	default:
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "%s has no keys", cur.Kind())
	}
}

func flatHas(cur flat.Cursor, kv value.Value) (bool, error) {
	switch cur.Kind() {
	case value.KindObject:
		key, _ := kv.AsString()
		_, ok := cur.Field(key)
		return ok, nil
	case value.KindArray:
		idx, _ := kv.AsFloat()
		i := int64(idx)
		return i >= 0 && int(i) < cur.Len(), nil
	default:
		return false, fastjqerr.New(fastjqerr.KindType, "Cannot check whether %s has a key", cur.Kind())
	}
}

// stepReduce implements dead-variable-elimination reduce (spec §4.3): the
// update never reads the bound pattern variable, so the source is counted
// rather than bound per iteration, and the update runs N times against the
// accumulator alone via the tree-walking evaluator (the accumulator is an
// evolving constructed value, not a flat-buffer subtree, once it leaves
// Init).
func stepReduce(n *ast.Reduce, cur flat.Cursor, sc *eval.Scope, next cursorEmit) error {
	count := 0
	if err := step(n.Source, cur, sc, func(flat.Cursor) error {
		count++
		return nil
	}); err != nil {
		return err
	}
	var acc value.Value = value.Null
	gotInit := false
	if err := step(n.Init, cur, sc, func(c flat.Cursor) error {
		if !gotInit {
			acc = c.Materialize()
			gotInit = true
		}
		return nil
	}); err != nil {
		return err
	}
	if !gotInit {
		acc = value.Null
	}
	for i := 0; i < count; i++ {
		var last value.Value
		got := false
		if err := eval.Eval(n.Update, acc, sc, func(v value.Value) error {
			last = v
			got = true
			return nil
		}); err != nil {
			return err
		}
		if got {
			acc = last
		} else {
			acc = value.Null
		}
	}
	return next(valueCursor(acc))
}

// valueCursor re-encodes a constructed value.Value as a flat.Cursor over a
// freshly built one-off Buffer, so literals, builtin results and
// constructed arrays/objects can keep flowing through the same
// cursorEmit-based chain as genuine flat-buffer navigation instead of
// forcing the rest of the pipe to fall back to eval.Eval.
func valueCursor(v value.Value) flat.Cursor {
	b := flat.NewBuilder()
	writeValue(b, v)
	return flat.NewCursor(b.Build())
}

func writeValue(b *flat.Builder, v value.Value) {
	switch v.Kind() {
	case value.KindNull:
		b.Null()
	case value.KindBool:
		bo, _ := v.AsBool()
		b.Bool(bo)
	case value.KindInt:
		i, _ := v.AsInt()
		b.Int(i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		raw, _ := v.RawText()
		b.Double(f, raw)
	case value.KindString:
		s, _ := v.AsString()
		b.String(s)
	case value.KindArray:
		arr, _ := v.AsArray()
		b.StartArray()
		for _, e := range arr {
			writeValue(b, e)
		}
		b.EndArray()
	case value.KindObject:
		obj, _ := v.AsObject()
		b.StartObject()
		obj.Each(func(k string, fv value.Value) {
			b.Key(k)
			writeValue(b, fv)
		})
		b.EndObject()
	}
}
