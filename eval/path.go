package eval

import (
	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/value"
)

// Path is a sequence of object-key / array-index components, the runtime
// representation of jq's `path(EXPR)` output (spec §4.2).
type Path []value.Value

// Clone returns a copy safe to extend without aliasing p.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// pathInt reads an integer path/index component regardless of whether it
// is stored as Int or Float — source literals lex as Float (spec's number
// token carries no int/float distinction), so path code must not require
// KindInt specifically the way arithmetic's exact-integer tracking does.
func pathInt(v value.Value) (int64, bool) {
	f, ok := v.AsFloat()
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// EvalPaths runs node in path-tracking mode and emits every (path, value)
// pair it produces. Only a subset of the AST is a valid path expression
// (spec §4.2's "path expressions" restriction); anything else reports a
// Path-kind error, matching jq's "Invalid path expression" behaviour.
func EvalPaths(node ast.Node, input value.Value, sc *Scope, emit func(p Path, v value.Value) error) error {
	return evalPath(node, input, Path{}, input, sc, emit)
}

// evalPath threads cur (the value reached so far) and root (the original
// input the whole path expression runs against, needed by e.g. Bind
// sub-expressions) separately from path (the path accumulated so far).
func evalPath(node ast.Node, cur value.Value, path Path, root value.Value, sc *Scope, emit func(p Path, v value.Value) error) error {
	switch n := node.(type) {
	case *ast.Identity:
		return emit(path, cur)
	case *ast.Recurse:
		return recursePath(cur, path, emit)
	case *ast.Field:
		obj, ok := cur.AsObject()
		var v value.Value
		if cur.IsNull() {
			v = value.Null
		} else if ok {
			v, _ = obj.Get(n.Name)
		} else {
			return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with \"%s\"", cur.Kind(), n.Name)
		}
		return emit(append(path.Clone(), value.String(n.Name)), v)
	case *ast.OptionalField:
		if cur.Kind() != value.KindObject && !cur.IsNull() {
			return nil
		}
		var v value.Value
		if obj, ok := cur.AsObject(); ok {
			v, _ = obj.Get(n.Name)
		}
		return emit(append(path.Clone(), value.String(n.Name)), v)
	case *ast.Index:
		return Eval(n.IndexExpr, root, sc, func(idxVal value.Value) error {
			switch {
			case idxVal.Kind() == value.KindString:
				key, _ := idxVal.AsString()
				if cur.IsNull() {
					return emit(append(path.Clone(), value.String(key)), value.Null)
				}
				obj, ok := cur.AsObject()
				if !ok {
					return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with \"%s\"", cur.Kind(), key)
				}
				v, _ := obj.Get(key)
				return emit(append(path.Clone(), value.String(key)), v)
			case idxVal.IsNumber():
				i, _ := pathInt(idxVal)
				if cur.IsNull() {
					return emit(append(path.Clone(), value.Int(i)), value.Null)
				}
				arr, ok := cur.AsArray()
				if !ok {
					return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with number", cur.Kind())
				}
				real := int(i)
				if real < 0 {
					real += len(arr)
				}
				var v value.Value
				if real >= 0 && real < len(arr) {
					v = arr[real]
				} else {
					v = value.Null
				}
				return emit(append(path.Clone(), value.Int(i)), v)
			default:
				return fastjqerr.New(fastjqerr.KindType, "invalid index expression")
			}
		})
	case *ast.Iterate:
		if cur.IsNull() {
			return fastjqerr.New(fastjqerr.KindType, "Cannot iterate over null")
		}
		if arr, ok := cur.AsArray(); ok {
			for i, v := range arr {
				if err := emit(append(path.Clone(), value.Int(int64(i))), v); err != nil {
					return err
				}
			}
			return nil
		}
		if obj, ok := cur.AsObject(); ok {
			var outerErr error
			obj.Each(func(k string, v value.Value) {
				if outerErr != nil {
					return
				}
				outerErr = emit(append(path.Clone(), value.String(k)), v)
			})
			return outerErr
		}
		return fastjqerr.New(fastjqerr.KindType, "Cannot iterate over %s", cur.Kind())
	case *ast.Slice:
		arr, isArr := cur.AsArray()
		if !isArr && !cur.IsNull() {
			return fastjqerr.New(fastjqerr.KindType, "Cannot index %s with object", cur.Kind())
		}
		from, to := 0, len(arr)
		if n.From != nil {
			var f value.Value
			if err := firstOf(n.From, root, sc, &f); err != nil {
				return err
			}
			fi, _ := pathInt(f)
			from = clampIndex(int(fi), len(arr))
		}
		if n.To != nil {
			var t value.Value
			if err := firstOf(n.To, root, sc, &t); err != nil {
				return err
			}
			ti, _ := pathInt(t)
			to = clampIndex(int(ti), len(arr))
		}
		if to < from {
			to = from
		}
		var slice []value.Value
		if isArr {
			slice = arr[from:to]
		}
		pe := value.ObjectValue(value.NewObject([]value.KV{
			{Key: "start", Val: value.Int(int64(from))},
			{Key: "end", Val: value.Int(int64(to))},
		}))
		return emit(append(path.Clone(), pe), value.Array(slice))
	case *ast.Pipe:
		return evalPath(n.Left, cur, path, root, sc, func(p Path, v value.Value) error {
			return evalPath(n.Right, v, p, root, sc, emit)
		})
	case *ast.Comma:
		if err := evalPath(n.Left, cur, path, root, sc, emit); err != nil {
			return err
		}
		return evalPath(n.Right, cur, path, root, sc, emit)
	case *ast.IfThenElse:
		return Eval(n.Cond, cur, sc, func(cv value.Value) error {
			if cv.Truthy() {
				return evalPath(n.Then, cur, path, root, sc, emit)
			}
			if n.Else == nil {
				return emit(path, cur)
			}
			return evalPath(n.Else, cur, path, root, sc, emit)
		})
	case *ast.Alternative:
		emitted := false
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(*fastjqerr.Error); ok {
						err = nil
						return
					}
					panic(r)
				}
			}()
			return evalPath(n.Left, cur, path, root, sc, func(p Path, v value.Value) error {
				if !v.Truthy() {
					return nil
				}
				emitted = true
				return emit(p, v)
			})
		}()
		if err != nil {
			return err
		}
		if emitted {
			return nil
		}
		return evalPath(n.Right, cur, path, root, sc, emit)
	case *ast.TryCatch:
		err := evalPath(n.Body, cur, path, root, sc, emit)
		if err == nil {
			return nil
		}
		if _, ok := err.(*fastjqerr.Error); !ok {
			return err
		}
		if n.Handler == nil {
			return nil
		}
		return evalPath(n.Handler, cur, path, root, sc, emit)
	case *ast.Bind:
		return Eval(n.Expr, cur, sc, func(bv value.Value) error {
			return withBindings(n, bv, sc, func(childSc *Scope) error {
				return evalPath(n.Body, cur, path, root, childSc, emit)
			})
		})
	case *ast.FuncCall:
		return evalPathCall(n, cur, path, root, sc, emit)
	case *ast.Builtin:
		if n.Name == "getpath" && len(n.Args) == 1 {
			return Eval(n.Args[0], root, sc, func(pv value.Value) error {
				arr, _ := pv.AsArray()
				full := append(path.Clone(), arr...)
				v, err := getPath(cur, Path(arr))
				if err != nil {
					return err
				}
				return emit(full, v)
			})
		}
		return fastjqerr.New(fastjqerr.KindPath, "Invalid path expression near %s", n.Name)
	default:
		return fastjqerr.New(fastjqerr.KindPath, "Invalid path expression")
	}
}

// evalPathCall handles the handful of builtin/user calls that are valid
// inside a path expression: select, recurse with no arguments, empty, and
// any user-defined function, by inlining its body the same way Eval does.
// Every other call, first and last included, is an invalid path expression.
func evalPathCall(n *ast.FuncCall, cur value.Value, path Path, root value.Value, sc *Scope, emit func(p Path, v value.Value) error) error {
	switch n.Name {
	case "empty":
		return nil
	case "select":
		if len(n.Args) != 1 {
			return fastjqerr.New(fastjqerr.KindArity, "select/%d not defined", len(n.Args))
		}
		return Eval(n.Args[0], cur, sc, func(cv value.Value) error {
			if cv.Truthy() {
				return emit(path, cur)
			}
			return nil
		})
	case "recurse":
		if len(n.Args) == 0 {
			return recursePath(cur, path, emit)
		}
	}
	if cl, ok := lookupClosure(sc, n.Name, len(n.Args)); ok {
		childSc, err := bindCallArgs(cl, n.Args, sc)
		if err != nil {
			return err
		}
		return evalPath(cl.Def.Body, cur, path, root, childSc, emit)
	}
	return fastjqerr.New(fastjqerr.KindPath, "Invalid path expression near %s", n.Name)
}

func recursePath(cur value.Value, path Path, emit func(p Path, v value.Value) error) error {
	if err := emit(path, cur); err != nil {
		return err
	}
	switch cur.Kind() {
	case value.KindArray:
		arr, _ := cur.AsArray()
		for i, v := range arr {
			if err := recursePath(v, append(path.Clone(), value.Int(int64(i))), emit); err != nil {
				return err
			}
		}
	case value.KindObject:
		obj, _ := cur.AsObject()
		var outerErr error
		obj.Each(func(k string, v value.Value) {
			if outerErr != nil {
				return
			}
			outerErr = recursePath(v, append(path.Clone(), value.String(k)), emit)
		})
		return outerErr
	}
	return nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// firstOf evaluates node and stores its first output in out, or leaves out
// as Null if node produced nothing — used for slice bounds, which jq
// evaluates in ordinary (non-generator-fanning) mode.
func firstOf(node ast.Node, input value.Value, sc *Scope, out *value.Value) error {
	got := false
	err := Eval(node, input, sc, func(v value.Value) error {
		if !got {
			*out = v
			got = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !got {
		*out = value.Null
	}
	return nil
}

func getPath(v value.Value, path Path) (value.Value, error) {
	cur := v
	for _, p := range path {
		switch {
		case p.Kind() == value.KindString:
			key, _ := p.AsString()
			if cur.IsNull() {
				continue
			}
			obj, ok := cur.AsObject()
			if !ok {
				return value.Value{}, fastjqerr.New(fastjqerr.KindType, "Cannot index %s with \"%s\"", cur.Kind(), key)
			}
			v2, ok := obj.Get(key)
			if !ok {
				cur = value.Null
			} else {
				cur = v2
			}
		case p.IsNumber():
			idx, _ := pathInt(p)
			if cur.IsNull() {
				continue
			}
			arr, ok := cur.AsArray()
			if !ok {
				return value.Value{}, fastjqerr.New(fastjqerr.KindType, "Cannot index %s with number", cur.Kind())
			}
			i := int(idx)
			if i < 0 {
				i += len(arr)
			}
			if i < 0 || i >= len(arr) {
				cur = value.Null
			} else {
				cur = arr[i]
			}
		default:
			return value.Value{}, fastjqerr.New(fastjqerr.KindType, "invalid path component")
		}
	}
	return cur, nil
}

func setPath(v value.Value, path Path, newVal value.Value) (value.Value, error) {
	if len(path) == 0 {
		return newVal, nil
	}
	p := path[0]
	switch {
	case p.Kind() == value.KindString:
		key, _ := p.AsString()
		var obj *value.Object
		if v.IsNull() {
			obj = value.NewObject(nil)
		} else if o, ok := v.AsObject(); ok {
			obj = o.Clone()
		} else {
			return value.Value{}, fastjqerr.New(fastjqerr.KindType, "Cannot index %s with \"%s\"", v.Kind(), key)
		}
		cur, _ := obj.Get(key)
		nv, err := setPath(cur, path[1:], newVal)
		if err != nil {
			return value.Value{}, err
		}
		obj.Set(key, nv)
		return value.ObjectValue(obj), nil
	case p.IsNumber():
		idx, _ := pathInt(p)
		var arr []value.Value
		if v.IsNull() {
			arr = nil
		} else if a, ok := v.AsArray(); ok {
			arr = append([]value.Value(nil), a...)
		} else {
			return value.Value{}, fastjqerr.New(fastjqerr.KindType, "Cannot index %s with number", v.Kind())
		}
		i := int(idx)
		if i < 0 {
			i += len(arr)
			if i < 0 {
				return value.Value{}, fastjqerr.New(fastjqerr.KindPath, "Out of bounds negative array index")
			}
		}
		for len(arr) <= i {
			arr = append(arr, value.Null)
		}
		cur := arr[i]
		nv, err := setPath(cur, path[1:], newVal)
		if err != nil {
			return value.Value{}, err
		}
		arr[i] = nv
		return value.Array(arr), nil
	default:
		// object-form path element (slice marker {start,end}) — only valid
		// as a terminal path component.
		if obj, ok := p.AsObject(); ok && len(path) == 1 {
			return setSlice(v, obj, newVal)
		}
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "Invalid path key")
	}
}

func setSlice(v value.Value, marker *value.Object, newVal value.Value) (value.Value, error) {
	sv, _ := marker.Get("start")
	ev, _ := marker.Get("end")
	start, _ := pathInt(sv)
	end, _ := pathInt(ev)
	var arr []value.Value
	if !v.IsNull() {
		a, ok := v.AsArray()
		if !ok {
			return value.Value{}, fastjqerr.New(fastjqerr.KindType, "A slice of %s cannot be assigned to", v.Kind())
		}
		arr = a
	}
	repl, ok := newVal.AsArray()
	if !ok {
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "A slice must be assigned an array")
	}
	s, e := clampIndex(int(start), len(arr)), clampIndex(int(end), len(arr))
	if e < s {
		e = s
	}
	out := make([]value.Value, 0, len(arr)-(e-s)+len(repl))
	out = append(out, arr[:s]...)
	out = append(out, repl...)
	out = append(out, arr[e:]...)
	return value.Array(out), nil
}

func delPath(v value.Value, path Path) (value.Value, error) {
	if len(path) == 0 {
		return value.Null, nil
	}
	if len(path) == 1 {
		p := path[0]
		switch {
		case p.Kind() == value.KindString:
			key, _ := p.AsString()
			if v.IsNull() {
				return v, nil
			}
			obj, ok := v.AsObject()
			if !ok {
				return value.Value{}, fastjqerr.New(fastjqerr.KindType, "Cannot delete field of %s", v.Kind())
			}
			clone := obj.Clone()
			clone.Delete(key)
			return value.ObjectValue(clone), nil
		case p.IsNumber():
			idx, _ := pathInt(p)
			if v.IsNull() {
				return v, nil
			}
			arr, ok := v.AsArray()
			if !ok {
				return value.Value{}, fastjqerr.New(fastjqerr.KindType, "Cannot delete element of %s", v.Kind())
			}
			i := int(idx)
			if i < 0 {
				i += len(arr)
			}
			if i < 0 || i >= len(arr) {
				return v, nil
			}
			out := append([]value.Value(nil), arr[:i]...)
			out = append(out, arr[i+1:]...)
			return value.Array(out), nil
		}
		return value.Value{}, fastjqerr.New(fastjqerr.KindType, "Invalid path key")
	}
	head := path[:1]
	cur, err := getPath(v, head)
	if err != nil {
		return value.Value{}, err
	}
	nv, err := delPath(cur, path[1:])
	if err != nil {
		return value.Value{}, err
	}
	return setPath(v, head, nv)
}

// delPaths deletes every path in paths, descending-sorted so that earlier
// deletions never shift the indices later ones rely on (spec §4.2).
func delPaths(v value.Value, paths []Path) (value.Value, error) {
	sorted := make([]Path, len(paths))
	copy(sorted, paths)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && pathLess(sorted[j], sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	result := v
	for i := len(sorted) - 1; i >= 0; i-- {
		var err error
		result, err = delPath(result, sorted[i])
		if err != nil {
			return value.Value{}, err
		}
	}
	return result, nil
}

func pathLess(a, b Path) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := value.Compare(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return len(a) < len(b)
}
