package value

import (
	"fmt"
	"math"
	"strings"
)

// Op identifies an arithmetic operator for Arith.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// TypeError is raised when an operation is applied to operand types it
// does not support (spec §7 "Type" error kind).
type TypeError struct {
	Op    string
	Left  Kind
	Right Kind
}

func (e *TypeError) Error() string {
	if e.Right == 0 && e.Op == "negate" {
		return fmt.Sprintf("%s (%s) not numeric", e.Op, e.Left)
	}
	return fmt.Sprintf("%s and %s cannot be %sed", e.Left, e.Right, e.Op)
}

// ArithError covers division/modulo-by-zero (spec §7 "Arithmetic" kind).
type ArithError struct{ Msg string }

func (e *ArithError) Error() string { return e.Msg }

// Arith implements the single dispatch contract of spec §4.1.
func Arith(left Value, op Op, right Value) (Value, error) {
	switch op {
	case OpAdd:
		return add(left, right)
	case OpSub:
		return sub(left, right)
	case OpMul:
		return mul(left, right)
	case OpDiv:
		return div(left, right)
	case OpMod:
		return mod(left, right)
	default:
		panic("invalid op")
	}
}

func numAdd(a, b Value) Value {
	ai, aIsInt := a.AsInt()
	bi, bIsInt := b.AsInt()
	if aIsInt && bIsInt {
		sum := ai + bi
		// overflow check: if signs of operands match but differ from result, we overflowed.
		if (ai > 0 && bi > 0 && sum < 0) || (ai < 0 && bi < 0 && sum > 0) {
			return Float(float64(ai) + float64(bi))
		}
		return Int(sum)
	}
	af, _ := a.AsFloat()
	bf, _ := b.AsFloat()
	return Float(af + bf)
}

func numSub(a, b Value) Value {
	ai, aIsInt := a.AsInt()
	bi, bIsInt := b.AsInt()
	if aIsInt && bIsInt {
		diff := ai - bi
		if (ai >= 0 && bi < 0 && diff < 0) || (ai < 0 && bi > 0 && diff > 0) {
			return Float(float64(ai) - float64(bi))
		}
		return Int(diff)
	}
	af, _ := a.AsFloat()
	bf, _ := b.AsFloat()
	return Float(af - bf)
}

func numMul(a, b Value) Value {
	ai, aIsInt := a.AsInt()
	bi, bIsInt := b.AsInt()
	if aIsInt && bIsInt {
		if ai == 0 || bi == 0 {
			return Int(0)
		}
		prod := ai * bi
		if prod/bi != ai {
			return Float(float64(ai) * float64(bi))
		}
		return Int(prod)
	}
	af, _ := a.AsFloat()
	bf, _ := b.AsFloat()
	return Float(af * bf)
}

func add(left, right Value) (Value, error) {
	if left.IsNull() {
		return right, nil
	}
	if right.IsNull() {
		return left, nil
	}
	switch {
	case left.IsNumber() && right.IsNumber():
		return numAdd(left, right), nil
	case left.kind == KindString && right.kind == KindString:
		return String(left.str + right.str), nil
	case left.kind == KindArray && right.kind == KindArray:
		out := make([]Value, 0, len(left.arr)+len(right.arr))
		out = append(out, left.arr...)
		out = append(out, right.arr...)
		return Array(out), nil
	case left.kind == KindObject && right.kind == KindObject:
		merged := left.obj.Clone()
		right.obj.Each(func(k string, v Value) { merged.Set(k, v) })
		return ObjectValue(merged), nil
	default:
		return Value{}, &TypeError{Op: "add", Left: left.kind, Right: right.kind}
	}
}

func sub(left, right Value) (Value, error) {
	switch {
	case left.IsNumber() && right.IsNumber():
		return numSub(left, right), nil
	case left.kind == KindArray && right.kind == KindArray:
		out := make([]Value, 0, len(left.arr))
		for _, v := range left.arr {
			found := false
			for _, r := range right.arr {
				if Equal(v, r) {
					found = true
					break
				}
			}
			if !found {
				out = append(out, v)
			}
		}
		return Array(out), nil
	default:
		return Value{}, &TypeError{Op: "subtract", Left: left.kind, Right: right.kind}
	}
}

func mul(left, right Value) (Value, error) {
	switch {
	case left.IsNumber() && right.IsNumber():
		return numMul(left, right), nil
	case left.kind == KindString && right.IsNumber():
		return repeatString(left.str, right)
	case left.IsNumber() && right.kind == KindString:
		return repeatString(right.str, left)
	case left.kind == KindObject && right.kind == KindObject:
		return ObjectValue(deepMerge(left.obj, right.obj)), nil
	default:
		return Value{}, &TypeError{Op: "multiply", Left: left.kind, Right: right.kind}
	}
}

func repeatString(s string, n Value) (Value, error) {
	f, _ := n.AsFloat()
	if f < 1 {
		return Null, nil
	}
	count := int(f) // trailing fractional bits truncate
	return String(strings.Repeat(s, count)), nil
}

func deepMerge(a, b *Object) *Object {
	merged := a.Clone()
	b.Each(func(k string, bv Value) {
		if av, ok := merged.Get(k); ok && av.kind == KindObject && bv.kind == KindObject {
			merged.Set(k, ObjectValue(deepMerge(av.obj, bv.obj)))
			return
		}
		merged.Set(k, bv)
	})
	return merged
}

func div(left, right Value) (Value, error) {
	switch {
	case left.IsNumber() && right.IsNumber():
		rf, _ := right.AsFloat()
		if rf == 0 {
			return Value{}, &ArithError{Msg: fmt.Sprintf("%s and %s cannot be divided because the divisor is zero", left.kind, right.kind)}
		}
		lf, _ := left.AsFloat()
		li, lIsInt := left.AsInt()
		ri, rIsInt := right.AsInt()
		if lIsInt && rIsInt && ri != 0 && li%ri == 0 {
			return Int(li / ri), nil
		}
		return Float(lf / rf), nil
	case left.kind == KindString && right.kind == KindString:
		return Array(splitString(left.str, right.str)), nil
	default:
		return Value{}, &TypeError{Op: "divide", Left: left.kind, Right: right.kind}
	}
}

// splitString implements the "÷" string split contract: splitting by "" yields
// characters with no leading/trailing empties; otherwise a literal split.
func splitString(s, sep string) []Value {
	if sep == "" {
		runes := []rune(s)
		out := make([]Value, 0, len(runes))
		for _, r := range runes {
			out = append(out, String(string(r)))
		}
		return out
	}
	parts := strings.Split(s, sep)
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = String(p)
	}
	return out
}

func mod(left, right Value) (Value, error) {
	if !left.IsNumber() || !right.IsNumber() {
		return Value{}, &TypeError{Op: "mod", Left: left.kind, Right: right.kind}
	}
	lf, _ := left.AsFloat()
	rf, _ := right.AsFloat()
	if math.IsNaN(lf) || math.IsNaN(rf) {
		return Float(math.NaN()), nil
	}
	// spec §4.1: an infinite dividend reduces to 0; an infinite divisor
	// (with a finite dividend) passes the dividend through unchanged —
	// checked before truncToInt64's saturation, which would otherwise
	// turn an infinite dividend into MaxInt64/MinInt64 and produce a
	// nonzero remainder instead of the mandated 0.
	if math.IsInf(lf, 0) {
		return Int(0), nil
	}
	if math.IsInf(rf, 0) {
		return Int(truncToInt64(lf)), nil
	}
	li := truncToInt64(lf)
	ri := truncToInt64(rf)
	if ri == 0 {
		return Value{}, &ArithError{Msg: "number and number cannot be divided because the divisor is zero"}
	}
	return Int(li % ri), nil
}

// truncToInt64 truncates a float to a signed 64-bit integer, saturating
// ±infinity at the max/min int64. mod handles infinite operands itself
// before calling it, so that saturation never decides a remainder.
func truncToInt64(f float64) int64 {
	if math.IsInf(f, 1) {
		return math.MaxInt64
	}
	if math.IsInf(f, -1) {
		return math.MinInt64
	}
	return int64(f)
}

// Negate implements unary minus.
func Negate(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		return Int(-v.i), nil
	case KindFloat:
		return Float(-v.f), nil
	default:
		return Value{}, &TypeError{Op: "negate", Left: v.kind}
	}
}
