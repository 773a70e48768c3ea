// Package eval implements the tree-walking evaluator of spec §4.2: the
// generator-style core semantics every other evaluator (flateval, the
// fast-path executors' fallback) ultimately defers to. Structurally this
// mirrors the teacher's transform.Transformer pipeline (transform/*.go) —
// a tree of composable stages threading a stream of values through — but
// generalized from JSON-stream transforms to full jq filter evaluation,
// and from a push-stream of tokens to a push-stream (callback) of
// value.Value generator outputs.
package eval

import (
	"fmt"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/env"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/value"
)

// Emit receives one generator output. Returning a non-nil error aborts the
// remainder of evaluation, propagating up through every enclosing Eval call
// (ordinary Go error return, not panic — panic/recover is reserved for
// label/break non-local exit, see evalLabel and the *ast.Break case of
// evalNode below).
type Emit func(value.Value) error

// Scope bundles the two parallel environments a filter evaluates against:
// variable bindings ($x) and function definitions (def f: ...;).
type Scope struct {
	Vars  *env.Env
	Funcs *env.FuncEnv
}

// NewScope returns the top-level scope with no bindings.
func NewScope() *Scope {
	return &Scope{Vars: env.Empty, Funcs: env.EmptyFuncs}
}

// Eval runs node against input under sc, calling emit once per generator
// output in order. It is the single entry point every other package in
// this module (flateval's fallback, fastpath's fallback, the pipelines)
// uses to run a filter.
func Eval(node ast.Node, input value.Value, sc *Scope, emit Emit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if bs, ok := r.(*fastjqerr.BreakSignal); ok {
				err = bs
				return
			}
			panic(r)
		}
	}()
	return evalNode(node, input, sc, emit)
}

func evalNode(node ast.Node, input value.Value, sc *Scope, emit Emit) error {
	switch n := node.(type) {
	case *ast.Identity:
		return emit(input)

	case *ast.Recurse:
		return recurseValue(input, emit)

	case *ast.Field:
		if input.IsNull() {
			return emit(value.Null)
		}
		obj, ok := input.AsObject()
		if !ok {
			return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with \"%s\"", input.Kind(), n.Name)
		}
		v, _ := obj.Get(n.Name)
		return emit(v)

	case *ast.OptionalField:
		if input.IsNull() {
			return emit(value.Null)
		}
		obj, ok := input.AsObject()
		if !ok {
			return nil
		}
		v, _ := obj.Get(n.Name)
		return emit(v)

	case *ast.Index:
		return evalNode(n.IndexExpr, input, sc, func(idx value.Value) error {
			return indexInto(input, idx, emit)
		})

	case *ast.Slice:
		return evalSlice(n, input, sc, emit)

	case *ast.Iterate:
		return iterateValue(input, emit)

	case *ast.Pipe:
		return evalNode(n.Left, input, sc, func(v value.Value) error {
			return evalNode(n.Right, v, sc, emit)
		})

	case *ast.Comma:
		if err := evalNode(n.Left, input, sc, emit); err != nil {
			return err
		}
		return evalNode(n.Right, input, sc, emit)

	case *ast.ArrayConstruct:
		if n.Body == nil {
			return emit(value.EmptyArray)
		}
		var items []value.Value
		if err := evalNode(n.Body, input, sc, func(v value.Value) error {
			items = append(items, v)
			return nil
		}); err != nil {
			return err
		}
		if items == nil {
			items = []value.Value{}
		}
		return emit(value.Array(items))

	case *ast.ObjectConstruct:
		return evalObjectEntries(n.Entries, 0, input, sc, nil, emit)

	case *ast.Literal:
		return emit(n.Val)

	case *ast.Negate:
		return evalNode(n.Expr, input, sc, func(v value.Value) error {
			nv, err := value.Negate(v)
			if err != nil {
				return wrapTypeErr(err)
			}
			return emit(nv)
		})

	case *ast.Arith:
		return evalNode(n.Left, input, sc, func(lv value.Value) error {
			return evalNode(n.Right, input, sc, func(rv value.Value) error {
				res, err := value.Arith(lv, arithOpOf(n.Op), rv)
				if err != nil {
					return wrapTypeErr(err)
				}
				return emit(res)
			})
		})

	case *ast.Compare:
		return evalNode(n.Left, input, sc, func(lv value.Value) error {
			return evalNode(n.Right, input, sc, func(rv value.Value) error {
				return emit(value.Bool(compareResult(n.Op, lv, rv)))
			})
		})

	case *ast.BoolOp:
		return evalNode(n.Left, input, sc, func(lv value.Value) error {
			if n.And && !lv.Truthy() {
				return emit(value.Bool(false))
			}
			if !n.And && lv.Truthy() {
				return emit(value.Bool(true))
			}
			return evalNode(n.Right, input, sc, func(rv value.Value) error {
				return emit(value.Bool(rv.Truthy()))
			})
		})

	case *ast.Not:
		return evalNode(n.Expr, input, sc, func(v value.Value) error {
			return emit(value.Bool(!v.Truthy()))
		})

	case *ast.Alternative:
		return evalAlternative(n, input, sc, emit)

	case *ast.TryCatch:
		return evalTryCatch(n, input, sc, emit)

	case *ast.IfThenElse:
		return evalNode(n.Cond, input, sc, func(cv value.Value) error {
			if cv.Truthy() {
				return evalNode(n.Then, input, sc, emit)
			}
			if n.Else == nil {
				return emit(input)
			}
			return evalNode(n.Else, input, sc, emit)
		})

	case *ast.Reduce:
		return evalReduce(n, input, sc, emit)

	case *ast.Foreach:
		return evalForeach(n, input, sc, emit)

	case *ast.Bind:
		return evalNode(n.Expr, input, sc, func(bv value.Value) error {
			return withBindings(n, bv, sc, func(childSc *Scope) error {
				return evalNode(n.Body, input, childSc, emit)
			})
		})

	case *ast.Var:
		v, ok := sc.Vars.Lookup(n.Name)
		if !ok {
			return fastjqerr.New(fastjqerr.KindType, "$%s is not defined", n.Name)
		}
		return emit(v)

	case *ast.FuncDef:
		cl := &Closure{Def: n, Env: sc.Vars}
		childFuncs := sc.Funcs.Cons(funcKey(n.Name, len(n.Params)), cl)
		cl.Funcs = childFuncs
		childSc := &Scope{Vars: sc.Vars, Funcs: childFuncs}
		return evalNode(n.Rest, input, childSc, emit)

	case *ast.FuncCall:
		return evalCall(n, input, sc, emit)

	case *ast.Label:
		return evalLabel(n, input, sc, emit)

	case *ast.Break:
		panic(&fastjqerr.BreakSignal{Label: n.Name})

	case *ast.StringInterpolation:
		return evalInterpolation(n, input, sc, emit)

	case *ast.FormatNode:
		return evalFormatNode(n, input, sc, emit)

	case *ast.Paths:
		var out []value.Value
		if err := EvalPaths(n.Expr, input, sc, func(p Path, _ value.Value) error {
			out = append(out, value.Array(append([]value.Value(nil), p...)))
			return nil
		}); err != nil {
			return err
		}
		for _, p := range out {
			if err := emit(p); err != nil {
				return err
			}
		}
		return nil

	case *ast.PathUpdate:
		return evalPathUpdate(n, input, sc, emit)

	case *ast.Builtin:
		return evalBuiltinNode(n, input, sc, emit)

	default:
		return fmt.Errorf("eval: unhandled node type %T", node)
	}
}

func arithOpOf(op ast.ArithOp) value.Op {
	switch op {
	case ast.ArithAdd:
		return value.OpAdd
	case ast.ArithSub:
		return value.OpSub
	case ast.ArithMul:
		return value.OpMul
	case ast.ArithDiv:
		return value.OpDiv
	case ast.ArithMod:
		return value.OpMod
	default:
		panic("invalid arith op")
	}
}

func compareResult(op ast.CompareOp, l, r value.Value) bool {
	c := value.Compare(l, r)
	switch op {
	case ast.CmpEq:
		return c == 0
	case ast.CmpNe:
		return c != 0
	case ast.CmpLt:
		return c < 0
	case ast.CmpLe:
		return c <= 0
	case ast.CmpGt:
		return c > 0
	case ast.CmpGe:
		return c >= 0
	default:
		return false
	}
}

func wrapTypeErr(err error) error {
	if fe, ok := err.(*fastjqerr.Error); ok {
		return fe
	}
	return fastjqerr.New(fastjqerr.KindType, "%s", err.Error())
}

func indexInto(input, idx value.Value, emit Emit) error {
	switch idx.Kind() {
	case value.KindString:
		key, _ := idx.AsString()
		if input.IsNull() {
			return emit(value.Null)
		}
		obj, ok := input.AsObject()
		if !ok {
			return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with \"%s\"", input.Kind(), key)
		}
		v, _ := obj.Get(key)
		return emit(v)
	case value.KindInt, value.KindFloat:
		f, _ := idx.AsFloat()
		i := int(f)
		if input.IsNull() {
			return emit(value.Null)
		}
		arr, ok := input.AsArray()
		if !ok {
			return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with number", input.Kind())
		}
		if i < 0 {
			i += len(arr)
		}
		if i < 0 || i >= len(arr) {
			return emit(value.Null)
		}
		return emit(arr[i])
	case value.KindArray:
		// `.[$array]` — jq's "indices" shorthand when the index is itself an
		// array: return all indices at which it occurs as a sub-sequence.
		needle, _ := idx.AsArray()
		hay, ok := input.AsArray()
		if !ok {
			if input.IsNull() {
				return emit(value.Null)
			}
			return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with array", input.Kind())
		}
		return emit(value.Array(indicesOf(hay, needle)))
	case value.KindObject:
		return evalSliceFromObject(input, idx, emit)
	default:
		return fastjqerr.New(fastjqerr.KindType, "Cannot index with this value")
	}
}

func evalSliceFromObject(input, marker value.Value, emit Emit) error {
	obj, _ := marker.AsObject()
	sv, _ := obj.Get("start")
	ev, _ := obj.Get("end")
	arr, ok := input.AsArray()
	if !ok {
		if input.IsNull() {
			return emit(value.Null)
		}
		return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with object", input.Kind())
	}
	start, end := 0, len(arr)
	if !sv.IsNull() {
		f, _ := sv.AsFloat()
		start = clampIndex(int(f), len(arr))
	}
	if !ev.IsNull() {
		f, _ := ev.AsFloat()
		end = clampIndex(int(f), len(arr))
	}
	if end < start {
		end = start
	}
	return emit(value.Array(arr[start:end]))
}

func evalSlice(n *ast.Slice, input value.Value, sc *Scope, emit Emit) error {
	fromGen := func(body Emit) error {
		if n.From == nil {
			return body(value.Null)
		}
		return evalNode(n.From, input, sc, body)
	}
	toGen := func(body Emit) error {
		if n.To == nil {
			return body(value.Null)
		}
		return evalNode(n.To, input, sc, body)
	}
	return toGen(func(tv value.Value) error {
		return fromGen(func(fv value.Value) error {
			arr, isArr := input.AsArray()
			var str string
			isStr := false
			if !isArr {
				if s, ok := input.AsString(); ok {
					isStr = true
					str = s
				} else if !input.IsNull() {
					return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with object", input.Kind())
				}
			}
			length := len(arr)
			if isStr {
				length = len([]rune(str))
			}
			start, end := 0, length
			if !fv.IsNull() {
				f, _ := fv.AsFloat()
				start = clampIndex(int(f), length)
			}
			if !tv.IsNull() {
				f, _ := tv.AsFloat()
				end = clampIndex(int(f), length)
			}
			if end < start {
				end = start
			}
			if isStr {
				runes := []rune(str)
				return emit(value.String(string(runes[start:end])))
			}
			if input.IsNull() {
				return emit(value.Null)
			}
			return emit(value.Array(arr[start:end]))
		})
	})
}

func iterateValue(input value.Value, emit Emit) error {
	switch input.Kind() {
	case value.KindArray:
		arr, _ := input.AsArray()
		for _, v := range arr {
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	case value.KindObject:
		obj, _ := input.AsObject()
		var outerErr error
		obj.Each(func(_ string, v value.Value) {
			if outerErr != nil {
				return
			}
			outerErr = emit(v)
		})
		return outerErr
	default:
		return fastjqerr.New(fastjqerr.KindType, "Cannot iterate over %s (%s)", input.Kind(), previewOf(input))
	}
}

func previewOf(v value.Value) string {
	return v.String()
}

func recurseValue(v value.Value, emit Emit) error {
	if err := emit(v); err != nil {
		return err
	}
	switch v.Kind() {
	case value.KindArray:
		arr, _ := v.AsArray()
		for _, e := range arr {
			if err := recurseValue(e, emit); err != nil {
				return err
			}
		}
	case value.KindObject:
		obj, _ := v.AsObject()
		var outerErr error
		obj.Each(func(_ string, e value.Value) {
			if outerErr != nil {
				return
			}
			outerErr = recurseValue(e, emit)
		})
		return outerErr
	}
	return nil
}

func evalObjectEntries(entries []ast.ObjectEntry, idx int, input value.Value, sc *Scope, acc []value.KV, emit Emit) error {
	if idx == len(entries) {
		return emit(value.ObjectValue(value.NewObject(acc)))
	}
	e := entries[idx]
	withKey := func(key string) error {
		next := func(v value.Value) error {
			acc2 := append(append([]value.KV(nil), acc...), value.KV{Key: key, Val: v})
			return evalObjectEntries(entries, idx+1, input, sc, acc2, emit)
		}
		if e.Val == nil {
			if e.VarShorthand {
				return evalNode(&ast.Var{Name: key}, input, sc, next)
			}
			return evalNode(&ast.Field{Name: key}, input, sc, next)
		}
		return evalNode(e.Val, input, sc, next)
	}
	if e.KeyExpr != nil {
		return evalNode(e.KeyExpr, input, sc, func(kv value.Value) error {
			s, ok := kv.AsString()
			if !ok {
				return fastjqerr.New(fastjqerr.KindType, "Object keys must be strings")
			}
			return withKey(s)
		})
	}
	return withKey(e.KeyName)
}

func evalAlternative(n *ast.Alternative, input value.Value, sc *Scope, emit Emit) error {
	emitted := false
	err := evalNode(n.Left, input, sc, func(v value.Value) error {
		if !v.Truthy() {
			return nil
		}
		emitted = true
		return emit(v)
	})
	if err != nil {
		if _, ok := err.(*fastjqerr.Error); !ok {
			return err
		}
		err = nil
	}
	if emitted {
		return err
	}
	return evalNode(n.Right, input, sc, emit)
}

func evalTryCatch(n *ast.TryCatch, input value.Value, sc *Scope, emit Emit) error {
	err := evalNode(n.Body, input, sc, emit)
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
	return evalNode(n.Handler, value.String(fe.Msg), sc, emit)
}

func evalLabel(n *ast.Label, input value.Value, sc *Scope, emit Emit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if bs, ok := r.(*fastjqerr.BreakSignal); ok && bs.Label == n.Name {
				err = nil
				return
			}
			panic(r)
		}
	}()
	return evalNode(n.Body, input, sc, emit)
}

func evalInterpolation(n *ast.StringInterpolation, input value.Value, sc *Scope, emit Emit) error {
	return buildInterp(n.Lits, n.Exprs, 0, "", input, sc, emit)
}

func buildInterp(lits []string, exprs []ast.Node, idx int, acc string, input value.Value, sc *Scope, emit Emit) error {
	acc += lits[idx]
	if idx == len(exprs) {
		return emit(value.String(acc))
	}
	return evalNode(exprs[idx], input, sc, func(v value.Value) error {
		s := stringify(v)
		return buildInterp(lits, exprs, idx+1, acc+s, input, sc, emit)
	})
}

func stringify(v value.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}

// withBindings destructures val against n.Pattern (or its ?// alternatives)
// and invokes body with the scope extended by the first successful match.
func withBindings(n *ast.Bind, val value.Value, sc *Scope, body func(*Scope) error) error {
	patterns := append([]ast.Pattern{n.Pattern}, n.AltPatterns...)
	var lastErr error
	for i, pat := range patterns {
		bindings, err := destructureFirst(pat, val, sc)
		if err != nil {
			lastErr = err
			if i < len(patterns)-1 {
				continue
			}
			return err
		}
		allVars := collectVars(patterns)
		full := zeroFill(allVars, bindings)
		childVars := sc.Vars.Bulk(full)
		childSc := &Scope{Vars: childVars, Funcs: sc.Funcs}
		err = body(childSc)
		if err != nil {
			lastErr = err
			if i < len(patterns)-1 {
				if _, ok := err.(*fastjqerr.Error); ok {
					continue
				}
			}
			return err
		}
		return nil
	}
	return lastErr
}

// collectVars gathers every variable name across all alternative patterns
// so each branch binds the full set (unbound ones to null), matching jq's
// `?//` requirement that all alternatives bind the same variable names.
func collectVars(pats []ast.Pattern) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(p ast.Pattern)
	walk = func(p ast.Pattern) {
		if p.Var != "" {
			if !seen[p.Var] {
				seen[p.Var] = true
				out = append(out, p.Var)
			}
		}
		for _, c := range p.ArrayPat {
			walk(c)
		}
		for _, e := range p.ObjectPat {
			walk(e.Pat)
		}
	}
	for _, p := range pats {
		walk(p)
	}
	return out
}

func zeroFill(names []string, have map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(names))
	for _, n := range names {
		if v, ok := have[n]; ok {
			out[n] = v
		} else {
			out[n] = value.Null
		}
	}
	return out
}
