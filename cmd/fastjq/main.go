// Command fastjq is the CLI front end of SPEC_FULL.md §12: parse flags,
// resolve input, detect NDJSON vs single document, and drive one of
// pipeline/singledoc or pipeline/ndjson. It owns nothing evaluator-shaped,
// matching how the teacher's cmd/jp/main.go only parses flags, picks a
// decoder/encoder pair and calls token.ConsumeStream.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/eval"
	"github.com/fastjq/fastjq/fastpath"
	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/format"
	"github.com/fastjq/fastjq/internal/diag"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/internal/flatdecode"
	"github.com/fastjq/fastjq/internal/jqlang"
	"github.com/fastjq/fastjq/internal/mmapio"
	"github.com/fastjq/fastjq/internal/simd"
	"github.com/fastjq/fastjq/pipeline/ndjson"
	"github.com/fastjq/fastjq/pipeline/singledoc"
	"github.com/fastjq/fastjq/value"
)

func main() {
	signal.Ignore(syscall.SIGPIPE)
	defer func() {
		if e := recover(); e != nil {
			fmt.Fprintf(os.Stderr, "fastjq: %s\n%s", e, debug.Stack())
			os.Exit(5)
		}
	}()
	os.Exit(run())
}

type cliOptions struct {
	disableFastPath bool
	threads         int
	slurp           bool
	rawInput        bool
	exitOnNull      bool
	fmtOpts         format.Options
}

func run() int {
	var (
		compact    bool
		raw        bool
		rawInput   bool
		slurp      bool
		nullInput  bool
		ascii      bool
		sortKeys   bool
		tab        bool
		indent     int
		threads    int
		exitOnNull bool
		args       = map[string]string{}
		argjson    = map[string]string{}
		slurpfile  = map[string]string{}
	)

	flag.BoolVarP(&compact, "compact-output", "c", false, "compact instead of pretty-printed output")
	flag.BoolVarP(&raw, "raw-output", "r", false, "output raw strings, not JSON texts")
	flag.BoolVarP(&rawInput, "raw-input", "R", false, "read raw strings, not JSON texts, as input")
	flag.BoolVarP(&slurp, "slurp", "s", false, "read (slurp) all inputs into an array")
	flag.BoolVarP(&nullInput, "null-input", "n", false, "use `null` as the single input value")
	flag.BoolVarP(&ascii, "ascii-output", "a", false, "output strings with non-ASCII characters escaped")
	flag.BoolVarP(&sortKeys, "sort-keys", "S", false, "sort keys of objects on output")
	flag.BoolVar(&tab, "tab", false, "use tabs for indentation")
	flag.IntVar(&indent, "indent", 2, "use N spaces for indentation")
	flag.IntVar(&threads, "threads", 0, "override worker-pool size (1 disables parallelism)")
	flag.BoolVarP(&exitOnNull, "exit-status", "e", false, "set exit status to 1 if last output was false/null")
	flag.StringToStringVar(&args, "arg", nil, "--arg NAME=VALUE: bind $NAME to the string VALUE (one NAME=VALUE token; NAME VALUE as two tokens is not accepted)")
	flag.StringToStringVar(&argjson, "argjson", nil, "--argjson NAME=JSON: bind $NAME to parsed JSON (one NAME=JSON token)")
	flag.StringToStringVar(&slurpfile, "slurpfile", nil, "--slurpfile NAME=PATH: bind $NAME to JSON values read from PATH (one NAME=PATH token)")
	flag.Parse()

	if os.Getenv("FASTJQ_DEBUG") != "" {
		diag.Enable(os.Stderr)
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: fastjq [FLAGS] FILTER [FILE...]")
		return 2
	}
	src := flag.Arg(0)
	files := flag.Args()[1:]

	filter, err := jqlang.Parse(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fastjq: compile error: %s\n", err)
		return 3
	}

	bindings, err := resolveBindings(args, argjson, slurpfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fastjq: %s\n", err)
		return 2
	}
	sc := singledoc.NewScope(bindings)

	opts := cliOptions{
		disableFastPath: os.Getenv("DISABLE_FAST_PATH") == "1",
		threads:         threads,
		slurp:           slurp,
		rawInput:        rawInput,
		exitOnNull:      exitOnNull,
		fmtOpts: format.Options{
			Compact:    compact,
			Raw:        raw,
			Ascii:      ascii,
			SortKeys:   sortKeys,
			IndentSize: indent,
			Tab:        tab,
		},
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	parser := simd.New()

	if nullInput {
		last, any, err := singledoc.Run(filter, []byte("null"), parser, sc, out, singledoc.Options{
			Format:          opts.fmtOpts,
			DisableFastPath: true,
			ExitOnFalseNull: exitOnNull,
		})
		if err != nil {
			return reportErr(err)
		}
		return finalExit(any, last, exitOnNull)
	}

	if len(files) == 0 {
		code, err := runInput(filter, os.Stdin, parser, sc, out, opts)
		if err != nil {
			return reportErr(err)
		}
		return code
	}

	lastCode := 0
	for _, path := range files {
		code, err := runFile(filter, path, parser, sc, out, opts)
		if err != nil {
			return reportErr(err)
		}
		lastCode = code
	}
	return lastCode
}

func reportErr(err error) int {
	if fe, ok := err.(*fastjqerr.Error); ok {
		fmt.Fprintf(os.Stderr, "fastjq: error: %s\n", fe.Msg)
		return fastjqerr.ExitCode(fe.Kind)
	}
	fmt.Fprintf(os.Stderr, "fastjq: %s\n", err)
	return 5
}

func finalExit(any bool, last value.Value, exitOnNull bool) int {
	if !exitOnNull {
		return 0
	}
	if !any || last.IsNull() {
		return 1
	}
	if b, ok := last.AsBool(); ok && !b {
		return 1
	}
	return 0
}

func resolveBindings(args, argjson, slurpfile map[string]string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(args)+len(argjson)+len(slurpfile)+1)
	for k, v := range args {
		out[k] = value.String(v)
	}
	for k, v := range argjson {
		buf, err := flatdecode.ParseOne([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("--argjson %s: %w", k, err)
		}
		out[k] = flat.NewCursor(buf).Materialize()
	}
	for k, path := range slurpfile {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("--slurpfile %s: %w", k, err)
		}
		buf, err := flatdecode.ParseOne(data)
		if err != nil {
			return nil, fmt.Errorf("--slurpfile %s: %w", k, err)
		}
		v := flat.NewCursor(buf).Materialize()
		if v.Kind() != value.KindArray {
			v = value.Array([]value.Value{v})
		}
		out[k] = v
	}
	envBindings := map[string]value.Value{}
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				envBindings[kv[:i]] = value.String(kv[i+1:])
				break
			}
		}
	}
	out["ENV"] = value.ObjectValue(objectFromMap(envBindings))
	return out, nil
}

func objectFromMap(m map[string]value.Value) *value.Object {
	kvs := make([]value.KV, 0, len(m))
	for k, v := range m {
		kvs = append(kvs, value.KV{Key: k, Val: v})
	}
	return value.NewObject(kvs)
}

func runFile(filter *ast.Filter, path string, parser simd.Parser, sc *eval.Scope, out *bufio.Writer, opts cliOptions) (int, error) {
	if os.Getenv("DISABLE_MMAP") != "1" {
		if mf, err := mmapio.Open(path); err == nil {
			defer mf.Close()
			return dispatch(filter, mf.Bytes(), parser, sc, out, opts)
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fastjqerr.New(fastjqerr.KindIO, "opening %s: %s", path, err)
	}
	defer f.Close()
	return runInput(filter, f, parser, sc, out, opts)
}

func runInput(filter *ast.Filter, r *os.File, parser simd.Parser, sc *eval.Scope, out *bufio.Writer, opts cliOptions) (int, error) {
	data, err := singledoc.ReadAll(r)
	if err != nil {
		return 0, err
	}
	return dispatch(filter, data, parser, sc, out, opts)
}

func dispatch(filter *ast.Filter, data []byte, parser simd.Parser, sc *eval.Scope, out *bufio.Writer, opts cliOptions) (int, error) {
	if !opts.slurp && !opts.rawInput && ndjson.Sniff(data) {
		var plan *fastpath.Plan
		if !opts.disableFastPath {
			plan = fastpath.Detect(filter.Root)
		}
		err := ndjson.Run(filter, plan, bytes.NewReader(data), parser, sc, out, ndjson.Options{
			Format:          opts.fmtOpts,
			DisableFastPath: opts.disableFastPath,
			Threads:         opts.threads,
		})
		return 0, err
	}

	last, any, err := singledoc.Run(filter, data, parser, sc, out, singledoc.Options{
		Format:          opts.fmtOpts,
		DisableFastPath: opts.disableFastPath || opts.rawInput,
		ExitOnFalseNull: opts.exitOnNull,
	})
	if err != nil {
		return 0, err
	}
	return finalExit(any, last, opts.exitOnNull), nil
}
