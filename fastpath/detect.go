// Package fastpath implements the fast-path detector and executors of spec
// §4.7: a set of AST shapes recognized once at startup that can be
// executed against raw input bytes via the parser bridge's FieldChain
// instead of through flateval/eval. They do not all skip parsing: Identity
// and FieldChain still parse their bytes into a flat buffer and materialize
// the value they emit. A fast path never guesses — any AST
// shape outside the recognized set, or any argument form the detector
// doesn't recognize exactly, disables the path and the caller falls back
// to flateval/eval as usual.
package fastpath

import (
	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/internal/diag"
	"github.com/fastjq/fastjq/value"
)

type Kind int

const (
	KindNone Kind = iota
	KindIdentity
	KindLength
	KindType
	KindKeys
	KindKeysUnsorted
	KindHas
	KindFieldChain
	KindMultiFieldObject
	KindMultiFieldArray
	KindSelectEq
	KindSelectExtract
)

var kindNames = map[Kind]string{
	KindIdentity:         "identity",
	KindLength:           "length",
	KindType:             "type",
	KindKeys:             "keys",
	KindKeysUnsorted:     "keys_unsorted",
	KindHas:              "has",
	KindFieldChain:       "field_chain",
	KindMultiFieldObject: "multi_field_object",
	KindMultiFieldArray:  "multi_field_array",
	KindSelectEq:         "select_eq",
	KindSelectExtract:    "select_extract",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "none"
}

// FieldSpec is one member of a {..}/[..] fast-path construction: a
// destination key (empty for array members) and the dotted chain that
// produces its value.
type FieldSpec struct {
	Key   string
	Chain []string
}

// Plan is the fully-resolved shape a recognized filter reduces to; it
// carries everything an executor needs without re-walking the AST.
type Plan struct {
	Kind Kind

	Chain  []string // FieldChain / Length / Type / Keys / KeysUnsorted / Has / SelectEq's LHS
	HasArg string    // has(k)'s key argument

	Fields []FieldSpec // MultiFieldObject / MultiFieldArray

	Op      ast.CompareOp // SelectEq / SelectExtract
	Literal value.Value

	Second *Plan // SelectExtract's post-select half

	// PerElement marks a `map(...)`/`.[] | ...` form (spec §4.7): the plan
	// applies once per top-level array element rather than to the document
	// root directly.
	PerElement bool
}

// Detect inspects root once and returns the recognized Plan, or nil if no
// fast path matches.
func Detect(root ast.Node) *Plan {
	if p := detectMapForm(root); p != nil {
		diag.FastPathHit(p.Kind.String())
		return p
	}
	if p := detectScalarForm(root); p != nil {
		diag.FastPathHit(p.Kind.String())
		return p
	}
	diag.FastPathMiss("no recognized shape")
	return nil
}

func detectScalarForm(root ast.Node) *Plan {
	if chain, ok := fieldChainOf(root); ok {
		if len(chain) == 0 {
			return &Plan{Kind: KindIdentity}
		}
		return &Plan{Kind: KindFieldChain, Chain: chain}
	}
	if name, chain, ok := rootBuiltinOf(root); ok {
		switch name {
		case "length":
			return &Plan{Kind: KindLength, Chain: chain}
		case "type":
			return &Plan{Kind: KindType, Chain: chain}
		case "keys":
			return &Plan{Kind: KindKeys, Chain: chain}
		case "keys_unsorted":
			return &Plan{Kind: KindKeysUnsorted, Chain: chain}
		}
	}
	if chain, key, ok := hasOf(root); ok {
		return &Plan{Kind: KindHas, Chain: chain, HasArg: key}
	}
	if fields, ok := objectConstructChainsOf(root); ok {
		return &Plan{Kind: KindMultiFieldObject, Fields: fields}
	}
	if fields, ok := arrayConstructChainsOf(root); ok {
		return &Plan{Kind: KindMultiFieldArray, Fields: fields}
	}
	if plan, ok := selectFormOf(root); ok {
		return plan
	}
	return nil
}

// detectMapForm recognizes `map(F)` and its `.[] | F` equivalent, where F
// itself reduces to one of the per-element scalar forms.
func detectMapForm(root ast.Node) *Plan {
	var body ast.Node
	switch n := root.(type) {
	case *ast.FuncCall:
		if n.Name != "map" || len(n.Args) != 1 {
			return nil
		}
		body = n.Args[0]
	case *ast.Pipe:
		if _, ok := n.Left.(*ast.Iterate); !ok {
			return nil
		}
		body = n.Right
	default:
		return nil
	}
	inner := detectScalarForm(body)
	if inner == nil || inner.Kind == KindSelectEq || inner.Kind == KindSelectExtract {
		return nil
	}
	inner.PerElement = true
	return inner
}

// fieldChainOf reduces a node to the dotted field chain it represents —
// Identity is the empty chain, a lone Field is a one-element chain, and a
// Pipe of such nodes concatenates (the parser represents `.a.b.c` as
// nested Pipe/Field nodes, per internal/jqlang's postfix-chain desugaring).
func fieldChainOf(node ast.Node) ([]string, bool) {
	switch n := node.(type) {
	case nil, *ast.Identity:
		return []string{}, true
	case *ast.Field:
		return []string{n.Name}, true
	case *ast.Pipe:
		left, ok := fieldChainOf(n.Left)
		if !ok {
			return nil, false
		}
		right, ok := fieldChainOf(n.Right)
		if !ok {
			return nil, false
		}
		return append(left, right...), true
	default:
		return nil, false
	}
}

// rootBuiltinOf recognizes `length`/`type`/`keys`/`keys_unsorted`, with or
// without a preceding field chain (`.a.b | length`).
func rootBuiltinOf(node ast.Node) (string, []string, bool) {
	if fc, ok := node.(*ast.FuncCall); ok && len(fc.Args) == 0 {
		switch fc.Name {
		case "length", "type", "keys", "keys_unsorted":
			return fc.Name, nil, true
		}
	}
	if p, ok := node.(*ast.Pipe); ok {
		chain, ok := fieldChainOf(p.Left)
		if !ok {
			return "", nil, false
		}
		name, rest, ok := rootBuiltinOf(p.Right)
		if !ok || len(rest) != 0 {
			return "", nil, false
		}
		return name, chain, true
	}
	return "", nil, false
}

// hasOf recognizes `has("k")`, with or without a preceding field chain.
func hasOf(node ast.Node) ([]string, string, bool) {
	if fc, ok := node.(*ast.FuncCall); ok && fc.Name == "has" && len(fc.Args) == 1 {
		lit, ok := fc.Args[0].(*ast.Literal)
		if !ok {
			return nil, "", false
		}
		s, ok := lit.Val.AsString()
		if !ok {
			return nil, "", false
		}
		return nil, s, true
	}
	if p, ok := node.(*ast.Pipe); ok {
		chain, ok := fieldChainOf(p.Left)
		if !ok {
			return nil, "", false
		}
		_, key, ok := hasOf(p.Right)
		if !ok {
			return nil, "", false
		}
		return chain, key, true
	}
	return nil, "", false
}

// objectConstructChainsOf recognizes `{a, b: .x.y, ...}` where every entry
// value is itself a field chain.
func objectConstructChainsOf(node ast.Node) ([]FieldSpec, bool) {
	oc, ok := node.(*ast.ObjectConstruct)
	if !ok {
		return nil, false
	}
	out := make([]FieldSpec, 0, len(oc.Entries))
	for _, e := range oc.Entries {
		if e.KeyExpr != nil {
			return nil, false
		}
		if e.Val == nil {
			if e.VarShorthand {
				return nil, false
			}
			out = append(out, FieldSpec{Key: e.KeyName, Chain: []string{e.KeyName}})
			continue
		}
		chain, ok := fieldChainOf(e.Val)
		if !ok {
			return nil, false
		}
		out = append(out, FieldSpec{Key: e.KeyName, Chain: chain})
	}
	return out, true
}

// arrayConstructChainsOf recognizes `[.a, .b, ...]` where every member is a
// field chain.
func arrayConstructChainsOf(node ast.Node) ([]FieldSpec, bool) {
	ac, ok := node.(*ast.ArrayConstruct)
	if !ok || ac.Body == nil {
		return nil, false
	}
	var out []FieldSpec
	for _, it := range commaList(ac.Body) {
		chain, ok := fieldChainOf(it)
		if !ok {
			return nil, false
		}
		out = append(out, FieldSpec{Chain: chain})
	}
	return out, true
}

func commaList(node ast.Node) []ast.Node {
	if c, ok := node.(*ast.Comma); ok {
		return append(commaList(c.Left), commaList(c.Right)...)
	}
	return []ast.Node{node}
}

// selectFormOf recognizes `select(.p.q OP literal)` and the combined
// `select(...) | SECOND` form, where SECOND reduces to a FieldChain,
// MultiFieldObject or MultiFieldArray.
func selectFormOf(node ast.Node) (*Plan, bool) {
	sel := node
	var second ast.Node
	if p, ok := node.(*ast.Pipe); ok {
		sel = p.Left
		second = p.Right
	}
	fc, ok := sel.(*ast.FuncCall)
	if !ok || fc.Name != "select" || len(fc.Args) != 1 {
		return nil, false
	}
	cmp, ok := fc.Args[0].(*ast.Compare)
	if !ok {
		return nil, false
	}
	chain, ok := fieldChainOf(cmp.Left)
	if !ok {
		return nil, false
	}
	lit, ok := cmp.Right.(*ast.Literal)
	if !ok {
		return nil, false
	}
	plan := &Plan{Kind: KindSelectEq, Chain: chain, Op: cmp.Op, Literal: lit.Val}
	if second == nil {
		return plan, true
	}
	var sp *Plan
	switch {
	case func() bool { _, ok := fieldChainOf(second); return ok }():
		chain2, _ := fieldChainOf(second)
		sp = &Plan{Kind: KindFieldChain, Chain: chain2}
	default:
		if fields, ok := objectConstructChainsOf(second); ok {
			sp = &Plan{Kind: KindMultiFieldObject, Fields: fields}
		} else if fields, ok := arrayConstructChainsOf(second); ok {
			sp = &Plan{Kind: KindMultiFieldArray, Fields: fields}
		} else {
			return nil, false
		}
	}
	plan.Kind = KindSelectExtract
	plan.Second = sp
	return plan, true
}
