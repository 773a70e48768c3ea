// Package ndjson implements the NDJSON pipeline of spec §4.4: split the
// input into line-aligned chunks, run the chunks in parallel across a
// bounded worker pool (internal/workpool), and write their outputs to
// stdout in strict chunk order. Grounded on the teacher's channel-based
// token.StartStream/TransformStream/ConsumeStream pipeline (pipeline.go) —
// generalized from an unbounded goroutine-per-stage model to a fixed-size
// worker pool over line-aligned byte chunks, since spec §5 requires a
// worker pool "sized to performance cores", not one goroutine per pipeline
// stage.
package ndjson

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/eval"
	"github.com/fastjq/fastjq/fastpath"
	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/flateval"
	"github.com/fastjq/fastjq/format"
	"github.com/fastjq/fastjq/internal/diag"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/internal/simd"
	"github.com/fastjq/fastjq/internal/workpool"
	"github.com/fastjq/fastjq/value"
)

// Options carries the subset of CLI flags/env (§6.1/§6.2) that affect the
// NDJSON pipeline.
type Options struct {
	Format          format.Options
	DisableFastPath bool
	Threads         int // 0 = runtime.NumCPU(), 1 = disables parallelism
}

// chunkLines is the target number of lines per parallel chunk (spec §4.4
// step 3: "partition the window's line-aligned span into parallel chunks of
// roughly equal size"). A line count rather than a byte count keeps the
// per-chunk work roughly even for the common case of similarly-sized
// NDJSON records without needing a second byte-accounting pass.
const chunkLines = 4096

// Sniff reports whether data looks like NDJSON: a newline appears within
// the leading bytes before end of input (spec §4.4 step 1 — "growing scan
// 64 KiB → 1 MiB"). Input with no interior newline within its first 1 MiB
// is treated as a single JSON value and is routed to pipeline/singledoc
// instead.
func Sniff(data []byte) bool {
	limit := 64 * 1024
	for {
		if limit > len(data) {
			limit = len(data)
		}
		if i := bytes.IndexByte(data[:limit], '\n'); i >= 0 {
			return len(bytes.TrimSpace(data[i+1:])) > 0
		}
		if limit == len(data) || limit >= 1<<20 {
			return false
		}
		limit *= 16
	}
}

// Run drives the chunked window loop of spec §4.4 over r, writing results
// to w in strict chunk order. plan is the whole-pipeline fast path (nil if
// the filter doesn't reduce to one); when non-nil it must already cover a
// per-line shape (FieldChain/MultiFieldObject/MultiFieldArray/SelectEq/
// SelectExtract/Length/Type/Keys/Has) — §4.7's whole-document forms (plain
// `.`, root-level length/type/keys with no per-line framing) only apply to
// pipeline/singledoc.
func Run(filter *ast.Filter, plan *fastpath.Plan, r io.Reader, parser simd.Parser, sc *eval.Scope, w *bufio.Writer, opts Options) error {
	pool := workpool.New(opts.Threads)

	var chunks [][][]byte
	var cur [][]byte
	lines := parser.NDJSONLines(r)
	for lines.Next() {
		cur = append(cur, append([]byte(nil), lines.Line()...))
		if len(cur) >= chunkLines {
			chunks = append(chunks, cur)
			cur = nil
		}
	}
	if err := lines.Err(); err != nil {
		return fastjqerr.New(fastjqerr.KindIO, "%s", err)
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}

	firstLine := make([]int, len(chunks))
	n := 1
	for i, c := range chunks {
		firstLine[i] = n
		n += len(c)
	}

	outs, err := workpool.Run(pool, len(chunks), func(_ context.Context, i int) ([]byte, error) {
		out, err := processChunk(filter, plan, chunks[i], firstLine[i], parser, sc, opts)
		if err == nil {
			diag.ChunkDone(i, len(chunks[i]))
		}
		return out, err
	})
	if err != nil {
		return err
	}
	for _, out := range outs {
		if _, err := w.Write(out); err != nil {
			return fastjqerr.New(fastjqerr.KindIO, "%s", err)
		}
	}
	return nil
}

func processChunk(filter *ast.Filter, plan *fastpath.Plan, lines [][]byte, firstLineNo int, parser simd.Parser, sc *eval.Scope, opts Options) ([]byte, error) {
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	fm := format.New(w, opts.Format)

	for i, line := range lines {
		lineNo := firstLineNo + i
		if err := processLine(filter, plan, line, parser, sc, fm, opts); err != nil {
			fe, ok := err.(*fastjqerr.Error)
			if !ok || fe.Kind == fastjqerr.KindIO {
				// Output write failures abort per spec §4.9; anything else
				// recoverable is an *fastjqerr.Error we can report inline.
				return nil, err
			}
			fmt.Fprintf(os.Stderr, "fastjq: error (at line %d): %s\n", lineNo, fe.Msg)
			continue
		}
	}
	if err := w.Flush(); err != nil {
		return nil, fastjqerr.New(fastjqerr.KindIO, "%s", err)
	}
	return out.Bytes(), nil
}

// processLine runs the filter (or fast path) against one line, appending
// its output(s) to fm. A malformed line is reported and skipped (spec
// §4.4's "a parse failure on a line is reported and the line is skipped");
// a filter failure is reported the same way but does not abort the chunk.
func processLine(filter *ast.Filter, plan *fastpath.Plan, line []byte, parser simd.Parser, sc *eval.Scope, fm *format.Formatter, opts Options) error {
	if plan != nil && !opts.DisableFastPath {
		res, err := fastpath.Exec(plan, parser, line)
		if err != nil {
			if _, ok := err.(*fastjqerr.Error); !ok {
				err = fastjqerr.New(fastjqerr.KindParse, "%s", err)
			}
			return err
		}
		if res.Skip {
			return nil
		}
		if res.Raw != nil {
			return fm.WriteRawLine(res.Raw)
		}
		return fm.WriteValue(res.Value)
	}

	buf, err := parser.ParseDocument(line)
	if err != nil {
		return fastjqerr.New(fastjqerr.KindParse, "%s", err)
	}
	cur := flat.NewCursor(buf)

	emit := func(v value.Value) error { return fm.WriteValue(v) }
	if flateval.Supported(filter.Root) {
		return flateval.Eval(filter.Root, cur, sc, emit)
	}
	return eval.Eval(filter.Root, cur.Materialize(), sc, emit)
}
