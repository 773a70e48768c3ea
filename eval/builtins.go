// builtins.go implements the fixed-arity intrinsic table of spec §4.2: the
// ≥100-entry builtin surface every FuncCall falls back to once no
// user-defined `def` shadows it. Each entry is grounded in the same
// generator-composition idioms the rest of eval uses — nothing here
// materializes more of the input than the operation needs.
package eval

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/internal/flatdecode"
	"github.com/fastjq/fastjq/value"
)

type builtinFn func(args []ast.Node, input value.Value, sc *Scope, emit Emit) error

var builtinTable map[string]builtinFn

func init() {
	builtinTable = map[string]builtinFn{
		"length/0":            biLength,
		"utf8bytelength/0":    biUtf8ByteLength,
		"not/0":               biNot,
		"empty/0":             func(a []ast.Node, in value.Value, sc *Scope, emit Emit) error { return nil },
		"error/0":             biError0,
		"error/1":             biError1,
		"keys/0":              biKeysSorted,
		"keys_unsorted/0":     biKeysUnsorted,
		"values/0":            biValuesFilter,
		"has/1":               biHas,
		"in/1":                biIn,
		"contains/1":          biContains,
		"inside/1":            biInside,
		"add/0":               biAdd0,
		"any/0":               biAny0,
		"any/1":               biAny1,
		"any/2":               biAny2,
		"all/0":               biAll0,
		"all/1":               biAll1,
		"all/2":               biAll2,
		"map/1":               biMap,
		"map_values/1":        biMapValues,
		"select/1":            biSelect,
		"recurse/0":           func(a []ast.Node, in value.Value, sc *Scope, emit Emit) error { return recurseValue(in, emit) },
		"recurse/1":           biRecurse1,
		"recurse/2":           biRecurse2,
		"recurse_down/0":      func(a []ast.Node, in value.Value, sc *Scope, emit Emit) error { return recurseValue(in, emit) },
		"range/1":             biRange1,
		"range/2":             biRange2,
		"range/3":             biRange3,
		"floor/0":             biFloor,
		"ceil/0":              biCeil,
		"round/0":             biRound,
		"sqrt/0":              biSqrt,
		"pow/2":               biPow,
		"log/0":               biUnaryMath(math.Log),
		"log10/0":             biUnaryMath(math.Log10),
		"log2/0":              biUnaryMath(math.Log2),
		"exp/0":               biUnaryMath(math.Exp),
		"exp10/0":             biUnaryMath(func(x float64) float64 { return math.Pow(10, x) }),
		"exp2/0":              biUnaryMath(math.Exp2),
		"fabs/0":              biUnaryMath(math.Abs),
		"min/0":               biMin,
		"max/0":               biMax,
		"min_by/1":            biMinBy,
		"max_by/1":            biMaxBy,
		"sort/0":              biSort,
		"sort_by/1":           biSortBy,
		"group_by/1":          biGroupBy,
		"unique/0":            biUnique,
		"unique_by/1":         biUniqueBy,
		"reverse/0":           biReverse,
		"flatten/0":           biFlatten0,
		"flatten/1":           biFlatten1,
		"first/0":             biFirst0,
		"first/1":             biFirst1,
		"last/0":              biLast0,
		"last/1":              biLast1,
		"nth/1":               biNth1,
		"nth/2":               biNth2,
		"limit/2":             biLimit,
		"until/2":             biUntil,
		"while/2":             biWhile,
		"repeat/1":            biRepeat,
		"tostring/0":          biToString,
		"tonumber/0":          biToNumber,
		"tojson/0":            biToJSON,
		"fromjson/0":          biFromJSON,
		"type/0":              biType,
		"isnan/0":             biIsNaN,
		"isinfinite/0":        biIsInfinite,
		"isnormal/0":          biIsNormal,
		"infinite/0":          func(a []ast.Node, in value.Value, sc *Scope, emit Emit) error { return emit(value.Float(math.Inf(1))) },
		"nan/0":               func(a []ast.Node, in value.Value, sc *Scope, emit Emit) error { return emit(value.Float(math.NaN())) },
		"startswith/1":        biStartsWith,
		"endswith/1":          biEndsWith,
		"ltrimstr/1":          biLTrimStr,
		"rtrimstr/1":          biRTrimStr,
		"explode/0":           biExplode,
		"implode/0":           biImplode,
		"split/1":             biSplit1,
		"split/2":             biSplit2,
		"splits/1":            biSplits1,
		"splits/2":            biSplits2,
		"join/1":              biJoin,
		"ascii_downcase/0":    biAsciiDowncase,
		"ascii_upcase/0":      biAsciiUpcase,
		"test/1":              biTest1,
		"test/2":              biTest2,
		"match/1":             biMatch1,
		"match/2":             biMatch2,
		"capture/1":           biCapture1,
		"capture/2":           biCapture2,
		"scan/1":              biScan1,
		"sub/2":               biSub,
		"gsub/2":              biGsub,
		"splits_by/1":         biSplits1,
		"walk/1":              biWalk,
		"transpose/0":         biTranspose,
		"combinations/0":      biCombinations0,
		"combinations/1":      biCombinations1,
		"to_entries/0":        biToEntries,
		"from_entries/0":      biFromEntries,
		"with_entries/1":      biWithEntries,
		"paths/0":             biPaths0,
		"paths/1":             biPaths1,
		"leaf_paths/0":        biLeafPaths,
		"path/1":              biPathBuiltin,
		"getpath/1":           biGetPath,
		"setpath/2":           biSetPath,
		"delpaths/1":          biDelPaths,
		"del/1":               biDel,
		"env/0":               biEnv,
		"$ENV/0":              biEnv,
		"now/0":               biNow,
		"gmtime/0":            biGmtime,
		"mktime/0":            biMktime,
		"strftime/1":          biStrftime,
		"todate/0":            biTodate,
		"fromdate/0":          biFromdate,
		"objects/0":           biOfKind(value.KindObject),
		"arrays/0":            biOfKind(value.KindArray),
		"booleans/0":          biOfKind(value.KindBool),
		"numbers/0":           biOfKindNumber,
		"strings/0":           biOfKind(value.KindString),
		"nulls/0":             biOfKind(value.KindNull),
		"scalars/0":           biScalars,
		"iterables/0":         biIterables,
		"values_all/0":        biValuesFilter,
		"indices/1":           biIndices,
		"index/1":             biIndex,
		"rindex/1":            biRindex,
		"debug/0":             biDebug0,
		"debug/1":             biDebug1,
		"input_line_number/0": func(a []ast.Node, in value.Value, sc *Scope, emit Emit) error { return emit(value.Int(0)) },
	}
}

func callBuiltin(name string, args []ast.Node, input value.Value, sc *Scope, emit Emit) error {
	fn, ok := builtinTable[funcKey(name, len(args))]
	if !ok {
		return fastjqerr.New(fastjqerr.KindArity, "%s/%d is not defined", name, len(args))
	}
	return fn(args, input, sc, emit)
}

func evalBuiltinNode(n *ast.Builtin, input value.Value, sc *Scope, emit Emit) error {
	return callBuiltin(n.Name, n.Args, input, sc, emit)
}

func typeErr(format string, args ...any) error {
	return fastjqerr.New(fastjqerr.KindType, format, args...)
}

func biLength(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	switch in.Kind() {
	case value.KindNull:
		return emit(value.Int(0))
	case value.KindBool:
		return typeErr("boolean (%s) has no length", in.String())
	case value.KindInt, value.KindFloat:
		f, _ := in.AsFloat()
		return emit(value.Float(math.Abs(f)))
	case value.KindString:
		s, _ := in.AsString()
		return emit(value.Int(int64(len([]rune(s)))))
	case value.KindArray:
		arr, _ := in.AsArray()
		return emit(value.Int(int64(len(arr))))
	case value.KindObject:
		obj, _ := in.AsObject()
		return emit(value.Int(int64(obj.Len())))
	}
	return nil
}

func biUtf8ByteLength(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("%s has no utf8 byte length", in.Kind())
	}
	return emit(value.Int(int64(len(s))))
}

func biNot(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return emit(value.Bool(!in.Truthy()))
}

func biError0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	if s, ok := in.AsString(); ok {
		return fastjqerr.New(fastjqerr.KindType, "%s", s)
	}
	return fastjqerr.New(fastjqerr.KindType, "%s (not a string)", in.String())
}

func biError1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(v value.Value) error {
		if s, ok := v.AsString(); ok {
			return fastjqerr.New(fastjqerr.KindType, "%s", s)
		}
		return fastjqerr.New(fastjqerr.KindType, "%s", v.String())
	})
}

func biKeysSorted(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	obj, ok := in.AsObject()
	if ok {
		ks := obj.SortedKeys()
		out := make([]value.Value, len(ks))
		for i, k := range ks {
			out[i] = value.String(k)
		}
		return emit(value.Array(out))
	}
	arr, ok := in.AsArray()
	if !ok {
		return typeErr("%s has no keys", in.Kind())
	}
	out := make([]value.Value, len(arr))
	for i := range arr {
		out[i] = value.Int(int64(i))
	}
	return emit(value.Array(out))
}

func biKeysUnsorted(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	obj, ok := in.AsObject()
	if ok {
		ks := obj.Keys()
		out := make([]value.Value, len(ks))
		for i, k := range ks {
			out[i] = value.String(k)
		}
		return emit(value.Array(out))
	}
	return biKeysSorted(nil, in, sc, emit)
}

func biValuesFilter(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	if in.IsNull() {
		return nil
	}
	return emit(in)
}

func biHas(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(kv value.Value) error {
		switch in.Kind() {
		case value.KindObject:
			obj, _ := in.AsObject()
			key, _ := kv.AsString()
			_, ok := obj.Get(key)
			return emit(value.Bool(ok))
		case value.KindArray:
			arr, _ := in.AsArray()
			idx, _ := pathInt(kv)
			return emit(value.Bool(idx >= 0 && int(idx) < len(arr)))
		default:
			return typeErr("Cannot check whether %s has a key", in.Kind())
		}
	})
}

func biIn(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(container value.Value) error {
		switch container.Kind() {
		case value.KindObject:
			obj, _ := container.AsObject()
			key, _ := in.AsString()
			_, ok := obj.Get(key)
			return emit(value.Bool(ok))
		case value.KindArray:
			arr, _ := container.AsArray()
			idx, _ := pathInt(in)
			return emit(value.Bool(idx >= 0 && int(idx) < len(arr)))
		default:
			return typeErr("Cannot check whether %s has a key", container.Kind())
		}
	})
}

func containsValue(a, b value.Value) bool {
	switch {
	case a.Kind() == value.KindObject && b.Kind() == value.KindObject:
		ao, _ := a.AsObject()
		bo, _ := b.AsObject()
		ok := true
		bo.Each(func(k string, bv value.Value) {
			if !ok {
				return
			}
			av, found := ao.Get(k)
			if !found || !containsValue(av, bv) {
				ok = false
			}
		})
		return ok
	case a.Kind() == value.KindArray && b.Kind() == value.KindArray:
		aarr, _ := a.AsArray()
		barr, _ := b.AsArray()
		for _, bv := range barr {
			found := false
			for _, av := range aarr {
				if containsValue(av, bv) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case a.Kind() == value.KindString && b.Kind() == value.KindString:
		as, _ := a.AsString()
		bs, _ := b.AsString()
		return strings.Contains(as, bs)
	default:
		return value.Equal(a, b)
	}
}

func biContains(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(v value.Value) error {
		return emit(value.Bool(containsValue(in, v)))
	})
}

func biInside(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(v value.Value) error {
		return emit(value.Bool(containsValue(v, in)))
	})
}

func biAdd0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, ok := in.AsArray()
	if !ok {
		if in.IsNull() {
			return emit(value.Null)
		}
		return typeErr("Cannot add %s", in.Kind())
	}
	if len(arr) == 0 {
		return emit(value.Null)
	}
	acc := arr[0]
	var err error
	for _, v := range arr[1:] {
		acc, err = value.Arith(acc, value.OpAdd, v)
		if err != nil {
			return wrapTypeErr(err)
		}
	}
	return emit(acc)
}

func biAny0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, _ := in.AsArray()
	for _, v := range arr {
		if v.Truthy() {
			return emit(value.Bool(true))
		}
	}
	return emit(value.Bool(false))
}

func biAny1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, _ := in.AsArray()
	found := false
	for _, v := range arr {
		if err := evalNode(args[0], v, sc, func(cv value.Value) error {
			if cv.Truthy() {
				found = true
			}
			return nil
		}); err != nil {
			return err
		}
		if found {
			break
		}
	}
	return emit(value.Bool(found))
}

func biAny2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	found := false
	err := evalNode(args[0], in, sc, func(v value.Value) error {
		if found {
			return nil
		}
		return evalNode(args[1], v, sc, func(cv value.Value) error {
			if cv.Truthy() {
				found = true
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	return emit(value.Bool(found))
}

func biAll0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, _ := in.AsArray()
	for _, v := range arr {
		if !v.Truthy() {
			return emit(value.Bool(false))
		}
	}
	return emit(value.Bool(true))
}

func biAll1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, _ := in.AsArray()
	all := true
	for _, v := range arr {
		if err := evalNode(args[0], v, sc, func(cv value.Value) error {
			if !cv.Truthy() {
				all = false
			}
			return nil
		}); err != nil {
			return err
		}
		if !all {
			break
		}
	}
	return emit(value.Bool(all))
}

func biAll2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	all := true
	err := evalNode(args[0], in, sc, func(v value.Value) error {
		if !all {
			return nil
		}
		return evalNode(args[1], v, sc, func(cv value.Value) error {
			if !cv.Truthy() {
				all = false
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	return emit(value.Bool(all))
}

func biMap(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	var out []value.Value
	err := iterateValue(in, func(v value.Value) error {
		return evalNode(args[0], v, sc, func(rv value.Value) error {
			out = append(out, rv)
			return nil
		})
	})
	if err != nil {
		return err
	}
	if out == nil {
		out = []value.Value{}
	}
	return emit(value.Array(out))
}

func biMapValues(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	switch in.Kind() {
	case value.KindArray:
		arr, _ := in.AsArray()
		var out []value.Value
		for _, v := range arr {
			got := false
			err := evalNode(args[0], v, sc, func(rv value.Value) error {
				if !got {
					out = append(out, rv)
					got = true
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		if out == nil {
			out = []value.Value{}
		}
		return emit(value.Array(out))
	case value.KindObject:
		obj, _ := in.AsObject()
		result := value.NewObject(nil)
		var outerErr error
		obj.Each(func(k string, v value.Value) {
			if outerErr != nil {
				return
			}
			got := false
			outerErr = evalNode(args[0], v, sc, func(rv value.Value) error {
				if !got {
					result.Set(k, rv)
					got = true
				}
				return nil
			})
		})
		if outerErr != nil {
			return outerErr
		}
		return emit(value.ObjectValue(result))
	default:
		return typeErr("Cannot iterate over %s", in.Kind())
	}
}

func biSelect(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(cv value.Value) error {
		if cv.Truthy() {
			return emit(in)
		}
		return nil
	})
}

func biRecurse1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	var step func(v value.Value) error
	step = func(v value.Value) error {
		if err := emit(v); err != nil {
			return err
		}
		return evalNode(args[0], v, sc, step)
	}
	return step(in)
}

func biRecurse2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	var step func(v value.Value) error
	step = func(v value.Value) error {
		cond := false
		if err := evalNode(args[1], v, sc, func(cv value.Value) error {
			if cv.Truthy() {
				cond = true
			}
			return nil
		}); err != nil {
			return err
		}
		if !cond {
			return nil
		}
		if err := emit(v); err != nil {
			return err
		}
		return evalNode(args[0], v, sc, step)
	}
	return step(in)
}

func biRange1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(hv value.Value) error {
		return rangeEmit(0, firstFloat(hv), 1, emit)
	})
}

func biRange2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(fv value.Value) error {
		return evalNode(args[1], in, sc, func(tv value.Value) error {
			return rangeEmit(firstFloat(fv), firstFloat(tv), 1, emit)
		})
	})
}

func biRange3(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(fv value.Value) error {
		return evalNode(args[1], in, sc, func(tv value.Value) error {
			return evalNode(args[2], in, sc, func(bv value.Value) error {
				return rangeEmit(firstFloat(fv), firstFloat(tv), firstFloat(bv), emit)
			})
		})
	})
}

func firstFloat(v value.Value) float64 {
	f, _ := v.AsFloat()
	return f
}

func rangeEmit(from, to, by float64, emit Emit) error {
	if by == 0 {
		return nil
	}
	if by > 0 {
		for x := from; x < to; x += by {
			if err := emit(value.Float(x)); err != nil {
				return err
			}
		}
		return nil
	}
	for x := from; x > to; x += by {
		if err := emit(value.Float(x)); err != nil {
			return err
		}
	}
	return nil
}

func numUnary(in value.Value, fn func(float64) float64) (value.Value, error) {
	f, ok := in.AsFloat()
	if !ok {
		return value.Value{}, typeErr("%s number required", in.Kind())
	}
	return value.Float(fn(f)), nil
}

func biFloor(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	v, err := numUnary(in, math.Floor)
	if err != nil {
		return err
	}
	return emit(v)
}

func biCeil(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	v, err := numUnary(in, math.Ceil)
	if err != nil {
		return err
	}
	return emit(v)
}

func biRound(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	v, err := numUnary(in, math.Round)
	if err != nil {
		return err
	}
	return emit(v)
}

func biSqrt(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	v, err := numUnary(in, math.Sqrt)
	if err != nil {
		return err
	}
	return emit(v)
}

func biUnaryMath(fn func(float64) float64) builtinFn {
	return func(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
		v, err := numUnary(in, fn)
		if err != nil {
			return err
		}
		return emit(v)
	}
}

func biPow(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(bv value.Value) error {
		return evalNode(args[1], in, sc, func(ev value.Value) error {
			bf, _ := bv.AsFloat()
			ef, _ := ev.AsFloat()
			return emit(value.Float(math.Pow(bf, ef)))
		})
	})
}

func arrayValues(in value.Value) ([]value.Value, error) {
	arr, ok := in.AsArray()
	if !ok {
		return nil, typeErr("Cannot iterate over %s", in.Kind())
	}
	return arr, nil
}

func biMin(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	if len(arr) == 0 {
		return emit(value.Null)
	}
	best := arr[0]
	for _, v := range arr[1:] {
		if value.Less(v, best) {
			best = v
		}
	}
	return emit(best)
}

func biMax(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	if len(arr) == 0 {
		return emit(value.Null)
	}
	best := arr[0]
	for _, v := range arr[1:] {
		if !value.Less(v, best) && !value.Equal(v, best) {
			best = v
		}
		if value.Compare(v, best) >= 0 {
			best = v
		}
	}
	return emit(best)
}

func keyOf(node ast.Node, v value.Value, sc *Scope) (value.Value, error) {
	return firstValue(node, v, sc)
}

func biMinBy(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	if len(arr) == 0 {
		return emit(value.Null)
	}
	bestKey, err := keyOf(args[0], arr[0], sc)
	if err != nil {
		return err
	}
	best := arr[0]
	for _, v := range arr[1:] {
		k, kerr := keyOf(args[0], v, sc)
		if kerr != nil {
			return kerr
		}
		if value.Less(k, bestKey) {
			best, bestKey = v, k
		}
	}
	return emit(best)
}

func biMaxBy(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	if len(arr) == 0 {
		return emit(value.Null)
	}
	bestKey, err := keyOf(args[0], arr[0], sc)
	if err != nil {
		return err
	}
	best := arr[0]
	for _, v := range arr[1:] {
		k, kerr := keyOf(args[0], v, sc)
		if kerr != nil {
			return kerr
		}
		if value.Compare(k, bestKey) >= 0 {
			best, bestKey = v, k
		}
	}
	return emit(best)
}

func biSort(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	out := append([]value.Value(nil), arr...)
	sort.SliceStable(out, func(i, j int) bool { return value.Less(out[i], out[j]) })
	return emit(value.Array(out))
}

func biSortBy(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	type kv struct {
		key value.Value
		val value.Value
	}
	pairs := make([]kv, len(arr))
	for i, v := range arr {
		k, kerr := keyOf(args[0], v, sc)
		if kerr != nil {
			return kerr
		}
		pairs[i] = kv{key: k, val: v}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return value.Less(pairs[i].key, pairs[j].key) })
	out := make([]value.Value, len(pairs))
	for i, p := range pairs {
		out[i] = p.val
	}
	return emit(value.Array(out))
}

func biGroupBy(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	type kv struct {
		key value.Value
		val value.Value
	}
	pairs := make([]kv, len(arr))
	for i, v := range arr {
		k, kerr := keyOf(args[0], v, sc)
		if kerr != nil {
			return kerr
		}
		pairs[i] = kv{key: k, val: v}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return value.Less(pairs[i].key, pairs[j].key) })
	var groups []value.Value
	var cur []value.Value
	for i, p := range pairs {
		if i > 0 && !value.Equal(p.key, pairs[i-1].key) {
			groups = append(groups, value.Array(cur))
			cur = nil
		}
		cur = append(cur, p.val)
	}
	if cur != nil {
		groups = append(groups, value.Array(cur))
	}
	if groups == nil {
		groups = []value.Value{}
	}
	return emit(value.Array(groups))
}

func biUnique(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	out := append([]value.Value(nil), arr...)
	sort.SliceStable(out, func(i, j int) bool { return value.Less(out[i], out[j]) })
	var uniq []value.Value
	for i, v := range out {
		if i == 0 || !value.Equal(v, out[i-1]) {
			uniq = append(uniq, v)
		}
	}
	if uniq == nil {
		uniq = []value.Value{}
	}
	return emit(value.Array(uniq))
}

func biUniqueBy(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	type kv struct {
		key value.Value
		val value.Value
	}
	pairs := make([]kv, len(arr))
	for i, v := range arr {
		k, kerr := keyOf(args[0], v, sc)
		if kerr != nil {
			return kerr
		}
		pairs[i] = kv{key: k, val: v}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return value.Less(pairs[i].key, pairs[j].key) })
	var out []value.Value
	for i, p := range pairs {
		if i == 0 || !value.Equal(p.key, pairs[i-1].key) {
			out = append(out, p.val)
		}
	}
	if out == nil {
		out = []value.Value{}
	}
	return emit(value.Array(out))
}

func biReverse(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	if s, ok := in.AsString(); ok {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return emit(value.String(string(runes)))
	}
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	out := make([]value.Value, len(arr))
	for i, v := range arr {
		out[len(arr)-1-i] = v
	}
	return emit(value.Array(out))
}

func flattenInto(arr []value.Value, depth int, out *[]value.Value) {
	for _, v := range arr {
		if sub, ok := v.AsArray(); ok && depth != 0 {
			flattenInto(sub, depth-1, out)
			continue
		}
		*out = append(*out, v)
	}
}

func biFlatten0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	var out []value.Value
	flattenInto(arr, -1, &out)
	if out == nil {
		out = []value.Value{}
	}
	return emit(value.Array(out))
}

func biFlatten1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	return evalNode(args[0], in, sc, func(dv value.Value) error {
		d, _ := pathInt(dv)
		var out []value.Value
		flattenInto(arr, int(d), &out)
		if out == nil {
			out = []value.Value{}
		}
		return emit(value.Array(out))
	})
}

func biFirst0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	if len(arr) == 0 {
		return typeErr("Cannot index array with number")
	}
	return emit(arr[0])
}

func biFirst1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(v value.Value) error {
		return emit(v)
	})
}

func biLast0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	if len(arr) == 0 {
		return typeErr("Cannot index array with number")
	}
	return emit(arr[len(arr)-1])
}

func biLast1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	var last value.Value
	got := false
	err := evalNode(args[0], in, sc, func(v value.Value) error {
		last = v
		got = true
		return nil
	})
	if err != nil {
		return err
	}
	if !got {
		return nil
	}
	return emit(last)
}

func biNth1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(nv value.Value) error {
		n, _ := pathInt(nv)
		arr, err := arrayValues(in)
		if err != nil {
			return err
		}
		if n < 0 || int(n) >= len(arr) {
			return typeErr("Out of bounds index")
		}
		return emit(arr[n])
	})
}

func biNth2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(nv value.Value) error {
		n, _ := pathInt(nv)
		if n < 0 {
			return typeErr("Out of bounds negative array index")
		}
		count := int64(0)
		var result value.Value
		found := false
		err := evalNode(args[1], in, sc, func(v value.Value) error {
			if found {
				return nil
			}
			if count == n {
				result = v
				found = true
			}
			count++
			return nil
		})
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		return emit(result)
	})
}

func biLimit(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(nv value.Value) error {
		n, _ := pathInt(nv)
		if n <= 0 {
			return nil
		}
		count := int64(0)
		stop := fmt.Errorf("limit-reached")
		err := evalNode(args[1], in, sc, func(v value.Value) error {
			if count >= n {
				return stop
			}
			if err := emit(v); err != nil {
				return err
			}
			count++
			if count >= n {
				return stop
			}
			return nil
		})
		if err != nil && err != stop {
			return err
		}
		return nil
	})
}

func biUntil(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	cur := in
	for {
		stop := false
		if err := evalNode(args[0], cur, sc, func(cv value.Value) error {
			if cv.Truthy() {
				stop = true
			}
			return nil
		}); err != nil {
			return err
		}
		if stop {
			return emit(cur)
		}
		next, err := firstValue(args[1], cur, sc)
		if err != nil {
			return err
		}
		cur = next
	}
}

func biWhile(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	cur := in
	for {
		cont := false
		if err := evalNode(args[0], cur, sc, func(cv value.Value) error {
			if cv.Truthy() {
				cont = true
			}
			return nil
		}); err != nil {
			return err
		}
		if !cont {
			return nil
		}
		if err := emit(cur); err != nil {
			return err
		}
		next, err := firstValue(args[1], cur, sc)
		if err != nil {
			return err
		}
		cur = next
	}
}

func biRepeat(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	cur := in
	for {
		if err := emit(cur); err != nil {
			return err
		}
		next, err := firstValue(args[0], cur, sc)
		if err != nil {
			return err
		}
		cur = next
	}
}

func biToString(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	if s, ok := in.AsString(); ok {
		return emit(value.String(s))
	}
	return emit(value.String(compactJSON(in)))
}

func biToNumber(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	switch in.Kind() {
	case value.KindInt, value.KindFloat:
		return emit(in)
	case value.KindString:
		s, _ := in.AsString()
		if iv, err := strconv.ParseInt(s, 10, 64); err == nil {
			return emit(value.Int(iv))
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return typeErr("Cannot parse '%s' as number", s)
		}
		return emit(value.FloatRaw(f, s))
	default:
		return typeErr("Cannot parse %s as number", in.Kind())
	}
}

func biToJSON(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return emit(value.String(compactJSON(in)))
}

func biFromJSON(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("%s cannot be parsed as JSON (not a string)", in.Kind())
	}
	buf, err := flatdecode.ParseOne([]byte(s))
	if err != nil {
		return fastjqerr.New(fastjqerr.KindParse, "%s", err)
	}
	return emit(flat.NewCursor(buf).Materialize())
}

func biType(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return emit(value.String(in.Kind().String()))
}

func biIsNaN(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	f, ok := in.AsFloat()
	return emit(value.Bool(ok && math.IsNaN(f)))
}

func biIsInfinite(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	f, ok := in.AsFloat()
	return emit(value.Bool(ok && math.IsInf(f, 0)))
}

func biIsNormal(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	f, ok := in.AsFloat()
	if !ok {
		return emit(value.Bool(false))
	}
	normal := f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) >= math.SmallestNonzeroFloat64
	return emit(value.Bool(normal))
}

func biStartsWith(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("startswith() requires string inputs")
	}
	return evalNode(args[0], in, sc, func(pv value.Value) error {
		p, _ := pv.AsString()
		return emit(value.Bool(strings.HasPrefix(s, p)))
	})
}

func biEndsWith(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("endswith() requires string inputs")
	}
	return evalNode(args[0], in, sc, func(pv value.Value) error {
		p, _ := pv.AsString()
		return emit(value.Bool(strings.HasSuffix(s, p)))
	})
}

func biLTrimStr(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(pv value.Value) error {
		s, ok := in.AsString()
		p, ok2 := pv.AsString()
		if !ok || !ok2 {
			return emit(in)
		}
		return emit(value.String(strings.TrimPrefix(s, p)))
	})
}

func biRTrimStr(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(pv value.Value) error {
		s, ok := in.AsString()
		p, ok2 := pv.AsString()
		if !ok || !ok2 {
			return emit(in)
		}
		return emit(value.String(strings.TrimSuffix(s, p)))
	})
}

func biExplode(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("explode input must be a string")
	}
	runes := []rune(s)
	out := make([]value.Value, len(runes))
	for i, r := range runes {
		out[i] = value.Int(int64(r))
	}
	return emit(value.Array(out))
}

func biImplode(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	var sb strings.Builder
	for _, v := range arr {
		i, _ := pathInt(v)
		sb.WriteRune(rune(i))
	}
	return emit(value.String(sb.String()))
}

func biSplit1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("split input and separator must be strings")
	}
	return evalNode(args[0], in, sc, func(sep value.Value) error {
		sepStr, _ := sep.AsString()
		parts := strings.Split(s, sepStr)
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = value.String(p)
		}
		return emit(value.Array(out))
	})
}

func biSplit2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[1], in, sc, func(flagsV value.Value) error {
		return evalNode(args[0], in, sc, func(reV value.Value) error {
			s, _ := in.AsString()
			re, err := compileRegex(reV, flagsV)
			if err != nil {
				return err
			}
			parts := re.Split(s, -1)
			out := make([]value.Value, len(parts))
			for i, p := range parts {
				out[i] = value.String(p)
			}
			return emit(value.Array(out))
		})
	})
}

func biSplits1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(reV value.Value) error {
		s, _ := in.AsString()
		re, err := compileRegex(reV, value.Null)
		if err != nil {
			return err
		}
		for _, p := range re.Split(s, -1) {
			if err := emit(value.String(p)); err != nil {
				return err
			}
		}
		return nil
	})
}

func biSplits2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[1], in, sc, func(flagsV value.Value) error {
		return evalNode(args[0], in, sc, func(reV value.Value) error {
			s, _ := in.AsString()
			re, err := compileRegex(reV, flagsV)
			if err != nil {
				return err
			}
			for _, p := range re.Split(s, -1) {
				if err := emit(value.String(p)); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func biJoin(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	return evalNode(args[0], in, sc, func(sepV value.Value) error {
		sep, _ := sepV.AsString()
		parts := make([]string, len(arr))
		for i, v := range arr {
			if v.IsNull() {
				parts[i] = ""
				continue
			}
			if s, ok := v.AsString(); ok {
				parts[i] = s
				continue
			}
			parts[i] = compactJSON(v)
		}
		return emit(value.String(strings.Join(parts, sep)))
	})
}

func biAsciiDowncase(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("ascii_downcase input must be a string")
	}
	return emit(value.String(strings.ToLower(s)))
}

func biAsciiUpcase(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("ascii_upcase input must be a string")
	}
	return emit(value.String(strings.ToUpper(s)))
}

// compileRegex builds a Go regexp from a jq-style pattern/flags pair
// (spec's regex builtins are grounded on Go's stdlib regexp/RE2 engine —
// no example repo carries a third-party regex engine). Flags i, s and m map
// to the RE2 flags of the same name; x is passed on as (?x), which RE2
// rejects, so a pattern compiled with x fails; g is handled by callers.
func compileRegex(reV, flagsV value.Value) (*regexp.Regexp, error) {
	pattern, ok := reV.AsString()
	if !ok {
		return nil, typeErr("regex must be a string")
	}
	flags, _ := flagsV.AsString()
	var goFlags string
	for _, f := range flags {
		switch f {
		case 'i':
			goFlags += "i"
		case 'x':
			goFlags += "x"
		case 's':
			goFlags += "s"
		case 'm':
			goFlags += "m"
		}
	}
	expr := pattern
	if goFlags != "" {
		expr = "(?" + goFlags + ")" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, typeErr("%s is not a valid regex: %s", pattern, err.Error())
	}
	return re, nil
}

func biTest1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(reV value.Value) error {
		s, _ := in.AsString()
		re, err := compileRegex(reV, value.Null)
		if err != nil {
			return err
		}
		return emit(value.Bool(re.MatchString(s)))
	})
}

func biTest2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[1], in, sc, func(flagsV value.Value) error {
		return evalNode(args[0], in, sc, func(reV value.Value) error {
			s, _ := in.AsString()
			re, err := compileRegex(reV, flagsV)
			if err != nil {
				return err
			}
			return emit(value.Bool(re.MatchString(s)))
		})
	})
}

func matchObject(re *regexp.Regexp, s string, idx int) value.Value {
	names := re.SubexpNames()
	caps := make([]value.Value, 0, len(names)-1)
	for i := 1; i < len(names); i++ {
		var nameVal value.Value
		if names[i] == "" {
			nameVal = value.Null
		} else {
			nameVal = value.String(names[i])
		}
		caps = append(caps, value.ObjectValue(value.NewObject([]value.KV{
			{Key: "offset", Val: value.Int(-1)},
			{Key: "length", Val: value.Int(0)},
			{Key: "string", Val: value.Null},
			{Key: "name", Val: nameVal},
		})))
	}
	return value.ObjectValue(value.NewObject([]value.KV{
		{Key: "offset", Val: value.Int(int64(idx))},
		{Key: "length", Val: value.Int(int64(len(s)))},
		{Key: "string", Val: value.String(s)},
		{Key: "captures", Val: value.Array(caps)},
	}))
}

func matchAll(re *regexp.Regexp, s string, global bool) []value.Value {
	var out []value.Value
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if !global && len(matches) > 1 {
		matches = matches[:1]
	}
	names := re.SubexpNames()
	for _, m := range matches {
		full := s[m[0]:m[1]]
		var caps []value.Value
		for gi := 1; gi*2 < len(m); gi++ {
			start, end := m[gi*2], m[gi*2+1]
			var nameVal value.Value
			if names[gi] == "" {
				nameVal = value.Null
			} else {
				nameVal = value.String(names[gi])
			}
			if start < 0 {
				caps = append(caps, value.ObjectValue(value.NewObject([]value.KV{
					{Key: "offset", Val: value.Int(-1)},
					{Key: "length", Val: value.Int(0)},
					{Key: "string", Val: value.Null},
					{Key: "name", Val: nameVal},
				})))
				continue
			}
			caps = append(caps, value.ObjectValue(value.NewObject([]value.KV{
				{Key: "offset", Val: value.Int(int64(start))},
				{Key: "length", Val: value.Int(int64(end - start))},
				{Key: "string", Val: value.String(s[start:end])},
				{Key: "name", Val: nameVal},
			})))
		}
		if caps == nil {
			caps = []value.Value{}
		}
		out = append(out, value.ObjectValue(value.NewObject([]value.KV{
			{Key: "offset", Val: value.Int(int64(m[0]))},
			{Key: "length", Val: value.Int(int64(m[1] - m[0]))},
			{Key: "string", Val: value.String(full)},
			{Key: "captures", Val: value.Array(caps)},
		})))
	}
	return out
}

func biMatch1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(reV value.Value) error {
		s, _ := in.AsString()
		re, err := compileRegex(reV, value.Null)
		if err != nil {
			return err
		}
		for _, m := range matchAll(re, s, false) {
			if err := emit(m); err != nil {
				return err
			}
		}
		return nil
	})
}

func biMatch2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[1], in, sc, func(flagsV value.Value) error {
		return evalNode(args[0], in, sc, func(reV value.Value) error {
			s, _ := in.AsString()
			flags, _ := flagsV.AsString()
			re, err := compileRegex(reV, flagsV)
			if err != nil {
				return err
			}
			global := strings.Contains(flags, "g")
			for _, m := range matchAll(re, s, global) {
				if err := emit(m); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func capturesToObject(m value.Value) value.Value {
	obj, _ := m.AsObject()
	capsV, _ := obj.Get("captures")
	caps, _ := capsV.AsArray()
	out := value.NewObject(nil)
	for _, c := range caps {
		co, _ := c.AsObject()
		nameV, _ := co.Get("name")
		if nameV.IsNull() {
			continue
		}
		name, _ := nameV.AsString()
		sv, _ := co.Get("string")
		out.Set(name, sv)
	}
	return value.ObjectValue(out)
}

func biCapture1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(reV value.Value) error {
		s, _ := in.AsString()
		re, err := compileRegex(reV, value.Null)
		if err != nil {
			return err
		}
		matches := matchAll(re, s, false)
		if len(matches) == 0 {
			return nil
		}
		return emit(capturesToObject(matches[0]))
	})
}

func biCapture2(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[1], in, sc, func(flagsV value.Value) error {
		return evalNode(args[0], in, sc, func(reV value.Value) error {
			s, _ := in.AsString()
			re, err := compileRegex(reV, flagsV)
			if err != nil {
				return err
			}
			matches := matchAll(re, s, false)
			if len(matches) == 0 {
				return nil
			}
			return emit(capturesToObject(matches[0]))
		})
	})
}

func biScan1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(reV value.Value) error {
		s, _ := in.AsString()
		re, err := compileRegex(reV, value.Null)
		if err != nil {
			return err
		}
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if len(m) == 1 {
				if err := emit(value.String(m[0])); err != nil {
					return err
				}
				continue
			}
			out := make([]value.Value, len(m)-1)
			for i, g := range m[1:] {
				out[i] = value.String(g)
			}
			if err := emit(value.Array(out)); err != nil {
				return err
			}
		}
		return nil
	})
}

func biSub(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return subImpl(args, in, sc, emit, false)
}

func biGsub(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return subImpl(args, in, sc, emit, true)
}

func subImpl(args []ast.Node, in value.Value, sc *Scope, emit Emit, global bool) error {
	return evalNode(args[0], in, sc, func(reV value.Value) error {
		s, ok := in.AsString()
		if !ok {
			return typeErr("%s cannot be matched, as it is not a string", in.Kind())
		}
		re, err := compileRegex(reV, value.Null)
		if err != nil {
			return err
		}
		matches := re.FindAllStringSubmatchIndex(s, -1)
		if !global && len(matches) > 1 {
			matches = matches[:1]
		}
		if len(matches) == 0 {
			return emit(value.String(s))
		}
		names := re.SubexpNames()
		var sb strings.Builder
		last := 0
		for _, m := range matches {
			sb.WriteString(s[last:m[0]])
			capObj := value.NewObject(nil)
			for gi := 1; gi*2 < len(m); gi++ {
				if names[gi] == "" {
					continue
				}
				if m[gi*2] < 0 {
					capObj.Set(names[gi], value.Null)
					continue
				}
				capObj.Set(names[gi], value.String(s[m[gi*2]:m[gi*2+1]]))
			}
			repl, rerr := firstValue(args[1], value.ObjectValue(capObj), sc)
			if rerr != nil {
				return rerr
			}
			rs, _ := repl.AsString()
			sb.WriteString(rs)
			last = m[1]
		}
		sb.WriteString(s[last:])
		return emit(value.String(sb.String()))
	})
}

func biWalk(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	v, err := walkValue(args[0], in, sc)
	if err != nil {
		return err
	}
	return emit(v)
}

func walkValue(f ast.Node, v value.Value, sc *Scope) (value.Value, error) {
	switch v.Kind() {
	case value.KindArray:
		arr, _ := v.AsArray()
		out := make([]value.Value, len(arr))
		for i, e := range arr {
			w, err := walkValue(f, e, sc)
			if err != nil {
				return value.Value{}, err
			}
			out[i] = w
		}
		return applyWalkFunc(f, value.Array(out), sc)
	case value.KindObject:
		obj, _ := v.AsObject()
		result := value.NewObject(nil)
		var outerErr error
		obj.Each(func(k string, e value.Value) {
			if outerErr != nil {
				return
			}
			w, err := walkValue(f, e, sc)
			if err != nil {
				outerErr = err
				return
			}
			result.Set(k, w)
		})
		if outerErr != nil {
			return value.Value{}, outerErr
		}
		return applyWalkFunc(f, value.ObjectValue(result), sc)
	default:
		return applyWalkFunc(f, v, sc)
	}
}

func applyWalkFunc(f ast.Node, v value.Value, sc *Scope) (value.Value, error) {
	return firstValue(f, v, sc)
}

func biTranspose(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	maxLen := 0
	rows := make([][]value.Value, len(arr))
	for i, r := range arr {
		row, _ := r.AsArray()
		rows[i] = row
		if len(row) > maxLen {
			maxLen = len(row)
		}
	}
	out := make([]value.Value, maxLen)
	for c := 0; c < maxLen; c++ {
		col := make([]value.Value, len(rows))
		for r, row := range rows {
			if c < len(row) {
				col[r] = row[c]
			} else {
				col[r] = value.Null
			}
		}
		out[c] = value.Array(col)
	}
	return emit(value.Array(out))
}

func biCombinations0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	return combine(arr, nil, emit)
}

func combine(rows []value.Value, prefix []value.Value, emit Emit) error {
	if len(rows) == 0 {
		out := make([]value.Value, len(prefix))
		copy(out, prefix)
		return emit(value.Array(out))
	}
	row, ok := rows[0].AsArray()
	if !ok {
		return typeErr("%s cannot be combined", rows[0].Kind())
	}
	for _, elem := range row {
		if err := combine(rows[1:], append(prefix, elem), emit); err != nil {
			return err
		}
	}
	return nil
}

func biCombinations1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(nv value.Value) error {
		n, ok := nv.AsInt()
		if !ok || n < 0 {
			return typeErr("combinations argument must be a non-negative number")
		}
		rows := make([]value.Value, n)
		for i := range rows {
			rows[i] = in
		}
		return combine(rows, nil, emit)
	})
}

func biToEntries(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	obj, ok := in.AsObject()
	if !ok {
		return typeErr("%s has no keys", in.Kind())
	}
	var out []value.Value
	obj.Each(func(k string, v value.Value) {
		out = append(out, value.ObjectValue(value.NewObject([]value.KV{
			{Key: "key", Val: value.String(k)},
			{Key: "value", Val: v},
		})))
	})
	if out == nil {
		out = []value.Value{}
	}
	return emit(value.Array(out))
}

func biFromEntries(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, err := arrayValues(in)
	if err != nil {
		return err
	}
	result := value.NewObject(nil)
	for _, e := range arr {
		eo, ok := e.AsObject()
		if !ok {
			return typeErr("Cannot use %s as object key", e.Kind())
		}
		key := entryKeyOf(eo)
		val, ok := eo.Get("value")
		if !ok {
			val, ok = eo.Get("v")
		}
		if !ok {
			val = value.Null
		}
		result.Set(key, val)
	}
	return emit(value.ObjectValue(result))
}

func entryKeyOf(eo *value.Object) string {
	for _, k := range []string{"key", "k", "name", "Name", "Key", "K"} {
		if v, ok := eo.Get(k); ok && !v.IsNull() {
			if s, ok := v.AsString(); ok {
				return s
			}
			return compactJSON(v)
		}
	}
	return "null"
}

func biWithEntries(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	var entries []value.Value
	if err := biToEntries(nil, in, sc, func(v value.Value) error {
		entries = append(entries, v)
		return nil
	}); err != nil {
		return err
	}
	var mapped []value.Value
	for _, e := range entries {
		got := false
		if err := evalNode(args[0], e, sc, func(rv value.Value) error {
			if !got {
				mapped = append(mapped, rv)
				got = true
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return biFromEntries(nil, value.Array(mapped), sc, emit)
}

func biPaths0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	first := true
	return recursePathValues(in, nil, func(p []value.Value, _ value.Value) error {
		if first {
			first = false
			return nil
		}
		return emit(value.Array(append([]value.Value(nil), p...)))
	})
}

func biPaths1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	first := true
	return recursePathValues(in, nil, func(p []value.Value, v value.Value) error {
		if first {
			first = false
			return nil
		}
		keep := false
		if err := evalNode(args[0], v, sc, func(cv value.Value) error {
			if cv.Truthy() {
				keep = true
			}
			return nil
		}); err != nil {
			return err
		}
		if !keep {
			return nil
		}
		return emit(value.Array(append([]value.Value(nil), p...)))
	})
}

func biLeafPaths(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return recursePathValues(in, nil, func(p []value.Value, v value.Value) error {
		if len(p) == 0 {
			return nil
		}
		if v.Kind() == value.KindArray || v.Kind() == value.KindObject {
			return nil
		}
		return emit(value.Array(append([]value.Value(nil), p...)))
	})
}

func recursePathValues(v value.Value, path []value.Value, emit func(p []value.Value, v value.Value) error) error {
	if err := emit(path, v); err != nil {
		return err
	}
	switch v.Kind() {
	case value.KindArray:
		arr, _ := v.AsArray()
		for i, e := range arr {
			if err := recursePathValues(e, append(append([]value.Value(nil), path...), value.Int(int64(i))), emit); err != nil {
				return err
			}
		}
	case value.KindObject:
		obj, _ := v.AsObject()
		var outerErr error
		obj.Each(func(k string, e value.Value) {
			if outerErr != nil {
				return
			}
			outerErr = recursePathValues(e, append(append([]value.Value(nil), path...), value.String(k)), emit)
		})
		return outerErr
	}
	return nil
}

func biPathBuiltin(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return EvalPaths(args[0], in, sc, func(p Path, _ value.Value) error {
		return emit(value.Array(append([]value.Value(nil), p...)))
	})
}

func biGetPath(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(pv value.Value) error {
		arr, _ := pv.AsArray()
		v, err := getPath(in, Path(arr))
		if err != nil {
			return err
		}
		return emit(v)
	})
}

func biSetPath(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(pv value.Value) error {
		arr, _ := pv.AsArray()
		return evalNode(args[1], in, sc, func(nv value.Value) error {
			v, err := setPath(in, Path(arr), nv)
			if err != nil {
				return err
			}
			return emit(v)
		})
	})
}

func biDelPaths(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(pv value.Value) error {
		arr, _ := pv.AsArray()
		paths := make([]Path, len(arr))
		for i, p := range arr {
			pa, _ := p.AsArray()
			paths[i] = Path(pa)
		}
		v, err := delPaths(in, paths)
		if err != nil {
			return err
		}
		return emit(v)
	})
}

func biDel(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	paths, err := collectPaths(args[0], in, sc)
	if err != nil {
		return err
	}
	v, err := delPaths(in, paths)
	if err != nil {
		return err
	}
	return emit(v)
}

func biEnv(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	v, ok := sc.Vars.Lookup("ENV")
	if !ok {
		return emit(value.EmptyObject)
	}
	return emit(v)
}

func biNow(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return emit(value.Float(float64(time.Now().UnixNano()) / 1e9))
}

func biGmtime(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	f, ok := in.AsFloat()
	if !ok {
		return typeErr("gmtime() requires a number")
	}
	t := time.Unix(int64(f), 0).UTC()
	return emit(brokenDownTime(t))
}

func brokenDownTime(t time.Time) value.Value {
	return value.Array([]value.Value{
		value.Int(int64(t.Year())),
		value.Int(int64(t.Month() - 1)),
		value.Int(int64(t.Day())),
		value.Int(int64(t.Hour())),
		value.Int(int64(t.Minute())),
		value.Float(float64(t.Second())),
		value.Int(int64(t.Weekday())),
		value.Int(int64(t.YearDay() - 1)),
	})
}

func biMktime(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	arr, ok := in.AsArray()
	if !ok || len(arr) < 6 {
		return typeErr("mktime requires array of at least 6 elements")
	}
	year, _ := pathInt(arr[0])
	month, _ := pathInt(arr[1])
	day, _ := pathInt(arr[2])
	hour, _ := pathInt(arr[3])
	min, _ := pathInt(arr[4])
	secF, _ := arr[5].AsFloat()
	t := time.Date(int(year), time.Month(month+1), int(day), int(hour), int(min), int(secF), 0, time.UTC)
	return emit(value.Int(t.Unix()))
}

func biStrftime(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(fv value.Value) error {
		format, _ := fv.AsString()
		t, err := timeFromBrokenDown(in)
		if err != nil {
			return err
		}
		return emit(value.String(strftime(format, t)))
	})
}

func timeFromBrokenDown(in value.Value) (time.Time, error) {
	arr, ok := in.AsArray()
	if !ok || len(arr) < 6 {
		return time.Time{}, typeErr("strftime/1 requires parsed datetime inputs")
	}
	year, _ := pathInt(arr[0])
	month, _ := pathInt(arr[1])
	day, _ := pathInt(arr[2])
	hour, _ := pathInt(arr[3])
	min, _ := pathInt(arr[4])
	secF, _ := arr[5].AsFloat()
	return time.Date(int(year), time.Month(month+1), int(day), int(hour), int(min), int(secF), 0, time.UTC), nil
}

// strftime implements the small subset of C strftime directives jq's date
// builtins document (spec §4.2's date/time section); unknown directives
// pass through literally.
func strftime(format string, t time.Time) string {
	var sb strings.Builder
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' || i+1 >= len(runes) {
			sb.WriteRune(runes[i])
			continue
		}
		i++
		switch runes[i] {
		case 'Y':
			sb.WriteString(strconv.Itoa(t.Year()))
		case 'm':
			sb.WriteString(fmt.Sprintf("%02d", int(t.Month())))
		case 'd':
			sb.WriteString(fmt.Sprintf("%02d", t.Day()))
		case 'H':
			sb.WriteString(fmt.Sprintf("%02d", t.Hour()))
		case 'M':
			sb.WriteString(fmt.Sprintf("%02d", t.Minute()))
		case 'S':
			sb.WriteString(fmt.Sprintf("%02d", t.Second()))
		case 'Z':
			sb.WriteString("UTC")
		case 'j':
			sb.WriteString(fmt.Sprintf("%03d", t.YearDay()))
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteRune(runes[i])
		}
	}
	return sb.String()
}

func biTodate(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	f, ok := in.AsFloat()
	if !ok {
		return typeErr("todate requires a number")
	}
	t := time.Unix(int64(f), 0).UTC()
	return emit(value.String(t.Format("2006-01-02T15:04:05Z")))
}

func biFromdate(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	s, ok := in.AsString()
	if !ok {
		return typeErr("fromdate requires a string")
	}
	t, err := time.Parse("2006-01-02T15:04:05Z", s)
	if err != nil {
		return typeErr("date \"%s\" does not match format", s)
	}
	return emit(value.Int(t.Unix()))
}

func biOfKind(k value.Kind) builtinFn {
	return func(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
		if in.Kind() == k {
			return emit(in)
		}
		return nil
	}
}

func biOfKindNumber(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	if in.IsNumber() {
		return emit(in)
	}
	return nil
}

func biScalars(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	if in.Kind() != value.KindArray && in.Kind() != value.KindObject {
		return emit(in)
	}
	return nil
}

func biIterables(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	if in.Kind() == value.KindArray || in.Kind() == value.KindObject {
		return emit(in)
	}
	return nil
}

func biIndices(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(nv value.Value) error {
		switch {
		case in.Kind() == value.KindString && nv.Kind() == value.KindString:
			s, _ := in.AsString()
			sub, _ := nv.AsString()
			if sub == "" {
				return emit(value.EmptyArray)
			}
			var out []value.Value
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					out = append(out, value.Int(int64(i)))
				}
			}
			if out == nil {
				out = []value.Value{}
			}
			return emit(value.Array(out))
		case in.Kind() == value.KindArray && nv.Kind() == value.KindArray:
			hay, _ := in.AsArray()
			needle, _ := nv.AsArray()
			return emit(value.Array(indicesOf(hay, needle)))
		case in.Kind() == value.KindArray:
			hay, _ := in.AsArray()
			var out []value.Value
			for i, v := range hay {
				if value.Equal(v, nv) {
					out = append(out, value.Int(int64(i)))
				}
			}
			if out == nil {
				out = []value.Value{}
			}
			return emit(value.Array(out))
		default:
			return emit(value.Null)
		}
	})
}

func biIndex(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	var result value.Value
	if err := biIndices(args, in, sc, func(v value.Value) error { result = v; return nil }); err != nil {
		return err
	}
	arr, ok := result.AsArray()
	if !ok || len(arr) == 0 {
		return emit(value.Null)
	}
	return emit(arr[0])
}

func biRindex(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	var result value.Value
	if err := biIndices(args, in, sc, func(v value.Value) error { result = v; return nil }); err != nil {
		return err
	}
	arr, ok := result.AsArray()
	if !ok || len(arr) == 0 {
		return emit(value.Null)
	}
	return emit(arr[len(arr)-1])
}

func biDebug0(_ []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return emit(in)
}

func biDebug1(args []ast.Node, in value.Value, sc *Scope, emit Emit) error {
	return evalNode(args[0], in, sc, func(_ value.Value) error {
		return emit(in)
	})
}
