package eval

import (
	"strconv"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/env"
	"github.com/fastjq/fastjq/value"
)

// Closure is the concrete function-definition payload stored in
// env.FuncEnv, deferred out of the env package to avoid env importing ast
// (env sits below ast in the dependency graph; see env/env.go).
//
// Def is set for a real `def name(params): body;`. For a plain (non-$)
// filter parameter, calling the function just re-evaluates the argument
// expression against the call site's input/scope each time it is
// referenced — Def is nil and ArgExpr/ArgInput carry that instead.
type Closure struct {
	Def   *ast.FuncDef
	Env   *env.Env
	Funcs *env.FuncEnv

	ArgExpr  ast.Node
	ArgInput value.Value
}

func funcKey(name string, arity int) string {
	return name + "/" + strconv.Itoa(arity)
}
