// Package env implements the immutable variable/function scope chain of
// spec §3.4: O(1) cons-style extension, Bulk nodes for batch startup
// bindings ($ENV, --arg/--argjson/--slurpfile), and lookup by walking
// parent pointers.
package env

import "github.com/fastjq/fastjq/value"

// Env is an immutable variable scope. The zero value is the empty scope.
type Env struct {
	name   string
	val    value.Value
	bulk   map[string]value.Value
	parent *Env
}

// Empty is the root scope with no bindings.
var Empty = &Env{}

// Cons extends e with a single new binding.
func (e *Env) Cons(name string, val value.Value) *Env {
	return &Env{name: name, val: val, parent: e}
}

// Bulk extends e with a batch of bindings (used for $ENV and CLI --arg*).
func (e *Env) Bulk(bindings map[string]value.Value) *Env {
	if len(bindings) == 0 {
		return e
	}
	return &Env{bulk: bindings, parent: e}
}

// Lookup walks the parent chain for name, returning ok=false if unbound.
func (e *Env) Lookup(name string) (value.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.bulk != nil {
			if v, ok := cur.bulk[name]; ok {
				return v, true
			}
			continue
		}
		if cur.name == name {
			return cur.val, true
		}
	}
	return value.Value{}, false
}

// FuncEnv is the parallel scope chain for user-defined functions (`def`),
// keyed by "name/arity" so overloads on arity resolve correctly. The
// definition payload is generic (any) because this package sits below ast
// in the import graph; *eval.Closure is what actually gets stored.
type FuncEnv struct {
	key    string
	def    any
	parent *FuncEnv
}

var EmptyFuncs = (*FuncEnv)(nil)

func (f *FuncEnv) Cons(key string, def any) *FuncEnv {
	return &FuncEnv{key: key, def: def, parent: f}
}

func (f *FuncEnv) Lookup(key string) (any, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.key == key {
			return cur.def, true
		}
	}
	return nil, false
}
