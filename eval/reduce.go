package eval

import (
	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/value"
)

func evalReduce(n *ast.Reduce, input value.Value, sc *Scope, emit Emit) error {
	acc, err := firstValue(n.Init, input, sc)
	if err != nil {
		return err
	}
	err = evalNode(n.Source, input, sc, func(sv value.Value) error {
		bindings, berr := destructureFirst(n.Pattern, sv, sc)
		if berr != nil {
			return berr
		}
		childSc := &Scope{Vars: sc.Vars.Bulk(bindings), Funcs: sc.Funcs}
		next, hasNext, uerr := lastValue(n.Update, acc, childSc)
		if uerr != nil {
			return uerr
		}
		if hasNext {
			acc = next
		} else {
			acc = value.Null
		}
		return nil
	})
	if err != nil {
		return err
	}
	return emit(acc)
}

func evalForeach(n *ast.Foreach, input value.Value, sc *Scope, emit Emit) error {
	acc, err := firstValue(n.Init, input, sc)
	if err != nil {
		return err
	}
	return evalNode(n.Source, input, sc, func(sv value.Value) error {
		bindings, berr := destructureFirst(n.Pattern, sv, sc)
		if berr != nil {
			return berr
		}
		childSc := &Scope{Vars: sc.Vars.Bulk(bindings), Funcs: sc.Funcs}
		next, hasNext, uerr := lastValue(n.Update, acc, childSc)
		if uerr != nil {
			return uerr
		}
		if hasNext {
			acc = next
		} else {
			acc = value.Null
		}
		extract := n.Extract
		if extract == nil {
			return emit(acc)
		}
		return evalNode(extract, acc, childSc, emit)
	})
}

// firstValue evaluates node once, using only its first emitted output
// (null if it emits nothing) — the convention `reduce`/`foreach` use for
// their INIT clause.
func firstValue(node ast.Node, input value.Value, sc *Scope) (value.Value, error) {
	var out value.Value
	got := false
	err := evalNode(node, input, sc, func(v value.Value) error {
		if !got {
			out = v
			got = true
		}
		return nil
	})
	if err != nil {
		return value.Value{}, err
	}
	if !got {
		out = value.Null
	}
	return out, nil
}

// lastValue evaluates node and keeps only the last emitted output, per
// reduce's UPDATE-clause contract (spec §4.2).
func lastValue(node ast.Node, input value.Value, sc *Scope) (value.Value, bool, error) {
	var out value.Value
	got := false
	err := evalNode(node, input, sc, func(v value.Value) error {
		out = v
		got = true
		return nil
	})
	if err != nil {
		return value.Value{}, false, err
	}
	return out, got, nil
}
