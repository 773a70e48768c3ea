// Package ast defines the filter AST (spec §3.3) that the evaluator
// packages (eval, flateval) and the fast-path detector (fastpath) consume.
// Nothing in this package knows how to parse jq source text — that is
// internal/jqlang's job — so the node set here is the single shared
// contract between the (unspecified) parser and the (specified) evaluators.
package ast

import "github.com/fastjq/fastjq/value"

// Node is any filter AST node.
type Node interface {
	isNode()
}

// Filter is a fully parsed program: a chain of top-level `def`s (folded
// into FuncDef.Rest already) wrapping the final pipeline expression.
type Filter struct {
	Root Node
}

type base struct{}

func (base) isNode() {}

// Identity is `.`.
type Identity struct{ base }

// Field is `.name`.
type Field struct {
	base
	Name string
}

// OptionalField is `.name?`.
type OptionalField struct {
	base
	Name string
}

// Index is `.[n]`.
type Index struct {
	base
	IndexExpr Node // evaluated per-input; often a Literal(Int)
}

// Slice is `.[from:to]`. Either bound may be nil for an open slice.
type Slice struct {
	base
	From, To Node
}

// Iterate is `.[]`.
type Iterate struct{ base }

// Recurse is `..` (equivalent to `recurse`).
type Recurse struct{ base }

// Pipe is `A | B`.
type Pipe struct {
	base
	Left, Right Node
}

// Comma is `A , B`.
type Comma struct {
	base
	Left, Right Node
}

// ArrayConstruct is `[ F ]`. F may be nil for the empty array literal `[]`.
type ArrayConstruct struct {
	base
	Body Node
}

// ObjectEntry is one (key, value) pair of an ObjectConstruct.
type ObjectEntry struct {
	// KeyExpr evaluates to the key; KeyName is set instead for the common
	// `{name: expr}` / `{name}` / `{$var}` shorthand forms so the evaluator
	// doesn't need to special-case a Literal wrapping a constant string.
	KeyExpr Node
	KeyName string
	// VarShorthand marks the `{$var}` shorthand (value is the bound
	// variable), as opposed to `{name}` (value is `.name` on the input).
	// Only meaningful when Val == nil.
	VarShorthand bool
	Val          Node // nil for the `{name}`/`{$var}` object-construction shorthand
}

// ObjectConstruct is `{ (key: val)* }`.
type ObjectConstruct struct {
	base
	Entries []ObjectEntry
}

// Literal is a constant value embedded in the AST.
type Literal struct {
	base
	Val value.Value
}

// Negate is unary `-`.
type Negate struct {
	base
	Expr Node
}

type ArithOp uint8

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
)

// Arith is a binary arithmetic expression.
type Arith struct {
	base
	Op          ArithOp
	Left, Right Node
}

type CompareOp uint8

const (
	CmpEq CompareOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// Compare is a binary comparison expression.
type Compare struct {
	base
	Op          CompareOp
	Left, Right Node
}

// BoolOp is `and`/`or`.
type BoolOp struct {
	base
	And         bool
	Left, Right Node
}

// Not is `not` (a builtin, but common enough to merit its own node).
type Not struct {
	base
	Expr Node
}

// Alternative is `A // B`.
type Alternative struct {
	base
	Left, Right Node
}

// TryCatch is `try A catch B`. Handler may be nil for the bare `try A`
// (equivalent to `A?`), `?` uses the zero-output suppression semantics.
type TryCatch struct {
	base
	Body    Node
	Handler Node
}

// IfThenElse is `if P then A elif ... else B end`. Else may be nil, which
// evaluates to Identity per jq semantics.
type IfThenElse struct {
	base
	Cond, Then, Else Node
}

// Pattern is a (possibly nested, possibly destructuring) binding pattern.
type Pattern struct {
	// Var is set for a simple `$name` pattern.
	Var string
	// ArrayPat is set for `[pat, pat, ...]` destructuring.
	ArrayPat []Pattern
	// ObjectPat is set for `{key: pat, ...}` destructuring.
	ObjectPat []ObjectPatEntry
}

type ObjectPatEntry struct {
	Key     string   // literal key name
	KeyExpr Node     // computed key `(expr): pat`, mutually exclusive with Key
	Pat     Pattern
}

func (p Pattern) IsSimpleVar() bool {
	return p.Var != "" && p.ArrayPat == nil && p.ObjectPat == nil
}

// Reduce is `reduce SOURCE as PATTERN (INIT; UPDATE)`.
type Reduce struct {
	base
	Source, Init, Update Node
	Pattern              Pattern
}

// Foreach is `foreach SOURCE as PATTERN (INIT; UPDATE; EXTRACT)`. Extract
// may be nil, defaulting to Identity.
type Foreach struct {
	base
	Source, Init, Update, Extract Node
	Pattern                       Pattern
}

// Bind is `EXPR as PATTERN | BODY` (also covers `... as $a ?// $b | ...`
// alternative destructuring via AltPatterns).
type Bind struct {
	base
	Expr        Node
	Pattern     Pattern
	AltPatterns []Pattern
	Body        Node
}

// Var is `$name`.
type Var struct {
	base
	Name string
}

// FuncDef is `def name(params): body;` followed by the rest of the program.
type FuncDef struct {
	base
	Name   string
	Params []string // parameter names; a `$x`-style param is stored as "$x"
	Body   Node
	Rest   Node
}

// FuncCall is a call to a user-defined or builtin function.
type FuncCall struct {
	base
	Name string
	Args []Node
}

// Label/Break implement non-local exit (spec §4.2).
type Label struct {
	base
	Name string
	Body Node
}

type Break struct {
	base
	Name string
}

// StringInterpolation is `"...\( expr )..."`.
type StringInterpolation struct {
	base
	// Lits holds the literal string chunks and Exprs the interpolated
	// expressions; Lits[i] precedes Exprs[i], and len(Lits) == len(Exprs)+1.
	Lits  []string
	Exprs []Node
}

type Format string

const (
	FormatJSON   Format = "json"
	FormatHTML   Format = "html"
	FormatURI    Format = "uri"
	FormatSh     Format = "sh"
	FormatCSV    Format = "csv"
	FormatTSV    Format = "tsv"
	FormatBase64 Format = "base64"
	FormatB64D   Format = "base64d"
	FormatBase32 Format = "base32"
	FormatB32D   Format = "base32d"
	FormatText   Format = "text"
)

// FormatNode is `@format` optionally applied to a following string literal
// with interpolation (`@base64 "\(.x)"`); Body is nil for a bare `@format`.
type FormatNode struct {
	base
	Name Format
	Body Node
}

// Paths is the `path(EXPR)` builtin surfaced as its own node since the
// evaluator needs to run EXPR in "path-tracking" mode (spec §4.2).
type Paths struct {
	base
	Expr Node
}

type UpdateOp uint8

const (
	UpdateAssign UpdateOp = iota // =
	UpdateModify                 // |=
	UpdateAdd                    // +=
	UpdateSub                    // -=
	UpdateMul                    // *=
	UpdateDiv                    // /=
	UpdateMod                    // %=
	UpdateAlt                    // //=
)

// PathUpdate is `PATHEXPR OP RHS` (spec §4.2).
type PathUpdate struct {
	base
	Op       UpdateOp
	PathExpr Node
	Rhs      Node
}

// Builtin is a call to a fixed-arity intrinsic the evaluator implements
// natively (as opposed to FuncCall, which also covers user `def`s). The
// internal/jqlang parser never constructs Builtin: every call, `length`
// included, is parsed as a FuncCall and resolved by name in eval's builtin
// table.
type Builtin struct {
	base
	Name string
	Args []Node
}
