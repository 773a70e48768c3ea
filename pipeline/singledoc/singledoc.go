// Package singledoc implements the single-document pipeline of spec §4.5:
// whole-document fast-path detection, then flat-buffer parsing, then
// dispatch to the flat evaluator or the tree-walking evaluator, then
// serialization. Grounded on the teacher's cmd/pj "decode → transform →
// print" wiring (cmd/pj/main.go), generalized from a transformer chain to a
// single filter evaluation.
package singledoc

import (
	"bufio"
	"io"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/eval"
	"github.com/fastjq/fastjq/fastpath"
	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/flateval"
	"github.com/fastjq/fastjq/format"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/internal/simd"
	"github.com/fastjq/fastjq/value"
)

// Options carries the subset of CLI flags (§6.1) that affect how the
// single-document pipeline runs.
type Options struct {
	Format          format.Options
	DisableFastPath bool
	ExitOnFalseNull bool // -e
}

// Run evaluates filter against the single document in doc, writing results
// to w. It returns the last emitted value (for the -e exit code) and
// whether any value was emitted at all.
func Run(filter *ast.Filter, doc []byte, parser simd.Parser, sc *eval.Scope, w *bufio.Writer, opts Options) (last value.Value, any bool, err error) {
	if !opts.DisableFastPath && opts.Format.Compact {
		if plan := fastpath.Detect(filter.Root); plan != nil {
			res, err := fastpath.Exec(plan, parser, doc)
			if err != nil {
				return value.Value{}, false, err
			}
			if res.Skip {
				return value.Value{}, false, nil
			}
			fm := format.New(w, opts.Format)
			if res.Raw != nil {
				if err := fm.WriteRawLine(res.Raw); err != nil {
					return value.Value{}, false, fastjqerr.New(fastjqerr.KindIO, "%s", err)
				}
				lv := res.Value
				if !res.HasValue && opts.ExitOnFalseNull {
					buf, err := parser.ParseDocument(doc)
					if err != nil {
						return value.Value{}, false, fastjqerr.New(fastjqerr.KindParse, "%s", err)
					}
					lv = flat.NewCursor(buf).Materialize()
				}
				return lv, true, nil
			}
			if err := fm.WriteValue(res.Value); err != nil {
				return value.Value{}, false, fastjqerr.New(fastjqerr.KindIO, "%s", err)
			}
			return res.Value, true, nil
		}
	}

	buf, err := parser.ParseDocument(doc)
	if err != nil {
		return value.Value{}, false, fastjqerr.New(fastjqerr.KindParse, "%s", err)
	}
	cur := flat.NewCursor(buf)
	fm := format.New(w, opts.Format)

	emit := func(v value.Value) error {
		any = true
		last = v
		if err := fm.WriteValue(v); err != nil {
			return fastjqerr.New(fastjqerr.KindIO, "%s", err)
		}
		return nil
	}

	if flateval.Supported(filter.Root) {
		err = flateval.Eval(filter.Root, cur, sc, emit)
	} else {
		err = eval.Eval(filter.Root, cur.Materialize(), sc, emit)
	}
	return last, any, err
}

// ReadAll slurps r fully — used for the single-document path, which (unlike
// NDJSON) always needs the whole input resident before parsing (spec §4.5
// step 2 parses "the whole padded input" in one shot).
func ReadAll(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fastjqerr.New(fastjqerr.KindIO, "%s", err)
	}
	return b, nil
}

// NewScope builds the top-level evaluation scope bound with --arg/--argjson/
// --slurpfile values and $ENV, mirroring spec §3.4's Bulk binding.
func NewScope(bindings map[string]value.Value) *eval.Scope {
	sc := eval.NewScope()
	sc.Vars = sc.Vars.Bulk(bindings)
	return sc
}
