package eval

import (
	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/value"
)

// destructure matches pat against val, invoking emit once per binding
// combination pat can produce. A plain `$x` or array/object pattern without
// computed keys produces exactly one combination; a pattern containing a
// computed object key (`{(expr): pat}`) can fan out like any other
// generator, which destructureFirst collapses back to one by convention
// (see reduce.go, whose reduce and foreach only use the first).
func destructure(pat ast.Pattern, val value.Value, sc *Scope, bindings map[string]value.Value, emit func(map[string]value.Value) error) error {
	switch {
	case pat.IsSimpleVar():
		b2 := cloneBindings(bindings)
		b2[pat.Var] = val
		return emit(b2)
	case pat.ArrayPat != nil:
		var arr []value.Value
		switch val.Kind() {
		case value.KindArray:
			arr, _ = val.AsArray()
		case value.KindNull:
			arr = nil
		default:
			return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with number", val.Kind())
		}
		return destructureArray(pat.ArrayPat, 0, arr, sc, bindings, emit)
	case pat.ObjectPat != nil:
		return destructureObject(pat.ObjectPat, 0, val, sc, bindings, emit)
	default:
		// Empty pattern (bare `.` via `as $_` edge case) binds nothing.
		return emit(bindings)
	}
}

func destructureArray(pats []ast.Pattern, idx int, arr []value.Value, sc *Scope, bindings map[string]value.Value, emit func(map[string]value.Value) error) error {
	if idx == len(pats) {
		return emit(bindings)
	}
	var elem value.Value
	if idx < len(arr) {
		elem = arr[idx]
	} else {
		elem = value.Null
	}
	return destructure(pats[idx], elem, sc, bindings, func(b2 map[string]value.Value) error {
		return destructureArray(pats, idx+1, arr, sc, b2, emit)
	})
}

func destructureObject(entries []ast.ObjectPatEntry, idx int, val value.Value, sc *Scope, bindings map[string]value.Value, emit func(map[string]value.Value) error) error {
	if idx == len(entries) {
		return emit(bindings)
	}
	e := entries[idx]
	fieldOf := func(key string) value.Value {
		if obj, ok := val.AsObject(); ok {
			if v, ok2 := obj.Get(key); ok2 {
				return v
			}
		}
		return value.Null
	}
	step := func(key string) error {
		fv := fieldOf(key)
		return destructure(e.Pat, fv, sc, bindings, func(b2 map[string]value.Value) error {
			return destructureObject(entries, idx+1, val, sc, b2, emit)
		})
	}
	if e.KeyExpr != nil {
		return evalNode(e.KeyExpr, val, sc, func(kv value.Value) error {
			key, ok := kv.AsString()
			if !ok {
				return fastjqerr.New(fastjqerr.KindType, "Cannot use %s as object key", kv.Kind())
			}
			return step(key)
		})
	}
	return step(e.Key)
}

func cloneBindings(b map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// destructureFirst collapses a (possibly multi-output) destructuring to its
// first binding set, which is all reduce/foreach ever consume.
func destructureFirst(pat ast.Pattern, val value.Value, sc *Scope) (map[string]value.Value, error) {
	var result map[string]value.Value
	err := destructure(pat, val, sc, map[string]value.Value{}, func(b map[string]value.Value) error {
		if result == nil {
			result = b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = map[string]value.Value{}
	}
	return result, nil
}
