package value

import (
	"bytes"
	"math"
)

// typeOrder gives the canonical jq type ordering used by Compare:
// null < false < true < numbers < strings < arrays < objects.
func typeOrder(v Value) int {
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		if !v.b {
			return 1
		}
		return 2
	case KindInt, KindFloat:
		return 3
	case KindString:
		return 4
	case KindArray:
		return 5
	case KindObject:
		return 6
	default:
		return 7
	}
}

// Compare implements the total order from spec §4.1. It returns -1, 0 or 1.
// NaN compares equal to itself for ordering purposes, per spec.
func Compare(a, b Value) int {
	oa, ob := typeOrder(a), typeOrder(b)
	if oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		return 0 // same typeOrder bucket implies same bool value
	case KindInt, KindFloat:
		fa, _ := a.AsFloat()
		fb, _ := b.AsFloat()
		return compareFloat(fa, fb)
	case KindString:
		return bytes.Compare([]byte(a.str), []byte(b.str))
	case KindArray:
		return compareArrays(a.arr, b.arr)
	case KindObject:
		return compareObjects(a.obj, b.obj)
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareArrays(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// compareObjects compares objects as sorted-key-list then by values in key order,
// per spec §4.1.
func compareObjects(a, b *Object) int {
	ka, kb := a.SortedKeys(), b.SortedKeys()
	n := len(ka)
	if len(kb) < n {
		n = len(kb)
	}
	for i := 0; i < n; i++ {
		if c := bytes.Compare([]byte(ka[i]), []byte(kb[i])); c != 0 {
			return c
		}
	}
	if len(ka) != len(kb) {
		if len(ka) < len(kb) {
			return -1
		}
		return 1
	}
	for _, k := range ka {
		va, _ := a.Get(k)
		vb, _ := b.Get(k)
		if c := Compare(va, vb); c != 0 {
			return c
		}
	}
	return 0
}

// Equal reports whether a and b are structurally equal under the same
// ordering rules Compare uses (Compare(a,b) == 0).
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

// Less reports whether a sorts strictly before b.
func Less(a, b Value) bool { return Compare(a, b) < 0 }
