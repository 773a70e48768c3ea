package eval

import (
	"strings"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/value"
)

func lookupClosure(sc *Scope, name string, arity int) (*Closure, bool) {
	def, ok := sc.Funcs.Lookup(funcKey(name, arity))
	if !ok {
		return nil, false
	}
	return def.(*Closure), true
}

func evalCall(n *ast.FuncCall, input value.Value, sc *Scope, emit Emit) error {
	if cl, ok := lookupClosure(sc, n.Name, len(n.Args)); ok {
		childSc, err := bindCallArgs(cl, n.Args, input, sc)
		if err != nil {
			return err
		}
		if cl.Def == nil {
			// a bound filter argument, called as a 0-arity function
			return evalNode(cl.ArgExpr, cl.ArgInput, &Scope{Vars: cl.Env, Funcs: cl.Funcs}, emit)
		}
		return evalNode(cl.Def.Body, input, childSc, emit)
	}
	return callBuiltin(n.Name, n.Args, input, sc, emit)
}

// bindCallArgs extends cl's own lexical scope (NOT the caller's) with one
// binding per declared parameter, per jq's static-scoping rule: a function
// body sees its own definition-time environment plus its parameters, never
// the caller's local variables.
func bindCallArgs(cl *Closure, args []ast.Node, callerInput value.Value, callerSc *Scope) (*Scope, error) {
	if cl.Def == nil {
		return &Scope{Vars: cl.Env, Funcs: cl.Funcs}, nil
	}
	vars := cl.Env
	funcs := cl.Funcs
	for i, param := range cl.Def.Params {
		arg := args[i]
		if strings.HasPrefix(param, "$") {
			name := strings.TrimPrefix(param, "$")
			val, err := firstValue(arg, callerInput, callerSc)
			if err != nil {
				return nil, err
			}
			vars = vars.Cons(name, val)
			funcs = funcs.Cons(funcKey(name, 0), &Closure{ArgExpr: &ast.Literal{Val: val}, Env: vars, Funcs: funcs})
			continue
		}
		funcs = funcs.Cons(funcKey(param, 0), &Closure{ArgExpr: arg, ArgInput: callerInput, Env: callerSc.Vars, Funcs: callerSc.Funcs})
	}
	return &Scope{Vars: vars, Funcs: funcs}, nil
}

func indicesOf(hay, needle []value.Value) []value.Value {
	if len(needle) == 0 {
		return []value.Value{}
	}
	var out []value.Value
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j, nv := range needle {
			if !value.Equal(hay[i+j], nv) {
				match = false
				break
			}
		}
		if match {
			out = append(out, value.Int(int64(i)))
		}
	}
	if out == nil {
		out = []value.Value{}
	}
	return out
}

func evalPathUpdate(n *ast.PathUpdate, input value.Value, sc *Scope, emit Emit) error {
	switch n.Op {
	case ast.UpdateAssign:
		return evalNode(n.Rhs, input, sc, func(rv value.Value) error {
			paths, err := collectPaths(n.PathExpr, input, sc)
			if err != nil {
				return err
			}
			result := input
			for _, p := range paths {
				result, err = setPath(result, p, rv)
				if err != nil {
					return err
				}
			}
			return emit(result)
		})
	case ast.UpdateModify:
		paths, err := collectPaths(n.PathExpr, input, sc)
		if err != nil {
			return err
		}
		result := input
		for _, p := range paths {
			cur, gerr := getPath(result, p)
			if gerr != nil {
				return gerr
			}
			nv, has, uerr := lastValue(n.Rhs, cur, sc)
			if uerr != nil {
				return uerr
			}
			if has {
				result, err = setPath(result, p, nv)
			} else {
				result, err = delPath(result, p)
			}
			if err != nil {
				return err
			}
		}
		return emit(result)
	default:
		return evalNode(n.Rhs, input, sc, func(rv value.Value) error {
			paths, err := collectPaths(n.PathExpr, input, sc)
			if err != nil {
				return err
			}
			result := input
			for _, p := range paths {
				cur, gerr := getPath(result, p)
				if gerr != nil {
					return gerr
				}
				var nv value.Value
				var aerr error
				switch n.Op {
				case ast.UpdateAdd:
					nv, aerr = value.Arith(cur, value.OpAdd, rv)
				case ast.UpdateSub:
					nv, aerr = value.Arith(cur, value.OpSub, rv)
				case ast.UpdateMul:
					nv, aerr = value.Arith(cur, value.OpMul, rv)
				case ast.UpdateDiv:
					nv, aerr = value.Arith(cur, value.OpDiv, rv)
				case ast.UpdateMod:
					nv, aerr = value.Arith(cur, value.OpMod, rv)
				case ast.UpdateAlt:
					if cur.Truthy() {
						nv = cur
					} else {
						nv = rv
					}
				}
				if aerr != nil {
					return wrapTypeErr(aerr)
				}
				result, err = setPath(result, p, nv)
				if err != nil {
					return err
				}
			}
			return emit(result)
		})
	}
}

func collectPaths(node ast.Node, input value.Value, sc *Scope) ([]Path, error) {
	var out []Path
	err := EvalPaths(node, input, sc, func(p Path, _ value.Value) error {
		out = append(out, p.Clone())
		return nil
	})
	return out, err
}

func evalFormatNode(n *ast.FormatNode, input value.Value, sc *Scope, emit Emit) error {
	apply := func(v value.Value) (value.Value, error) {
		s, err := applyFormat(n.Name, v)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	}
	if n.Body == nil {
		v, err := apply(input)
		if err != nil {
			return err
		}
		return emit(v)
	}
	si, ok := n.Body.(*ast.StringInterpolation)
	if !ok {
		return evalNode(n.Body, input, sc, func(v value.Value) error {
			fv, err := apply(v)
			if err != nil {
				return err
			}
			return emit(fv)
		})
	}
	return buildFormattedInterp(n.Name, si.Lits, si.Exprs, 0, "", input, sc, emit)
}

func buildFormattedInterp(fmtName ast.Format, lits []string, exprs []ast.Node, idx int, acc string, input value.Value, sc *Scope, emit Emit) error {
	acc += lits[idx]
	if idx == len(exprs) {
		return emit(value.String(acc))
	}
	return evalNode(exprs[idx], input, sc, func(v value.Value) error {
		s, err := applyFormat(fmtName, v)
		if err != nil {
			return err
		}
		return buildFormattedInterp(fmtName, lits, exprs, idx+1, acc+s, input, sc, emit)
	})
}
