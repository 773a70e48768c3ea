package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/value"
)

func TestArithAddNullIdentity(t *testing.T) {
	v, err := value.Arith(value.Null, value.OpAdd, value.Int(5))
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), v)

	v, err = value.Arith(value.Int(5), value.OpAdd, value.Null)
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), v)
}

func TestArithAddStringsArraysObjects(t *testing.T) {
	v, err := value.Arith(value.String("foo"), value.OpAdd, value.String("bar"))
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "foobar", s)

	v, err = value.Arith(
		value.Array([]value.Value{value.Int(1)}),
		value.OpAdd,
		value.Array([]value.Value{value.Int(2)}),
	)
	require.NoError(t, err)
	arr, _ := v.AsArray()
	assert.Len(t, arr, 2)

	left := value.ObjectValue(value.NewObject([]value.KV{{Key: "a", Val: value.Int(1)}}))
	right := value.ObjectValue(value.NewObject([]value.KV{{Key: "b", Val: value.Int(2)}}))
	v, err = value.Arith(left, value.OpAdd, right)
	require.NoError(t, err)
	obj, _ := v.AsObject()
	assert.Equal(t, 2, obj.Len())
}

func TestArithAddTypeMismatchErrors(t *testing.T) {
	_, err := value.Arith(value.Int(1), value.OpAdd, value.String("x"))
	require.Error(t, err)
	var te *value.TypeError
	assert.ErrorAs(t, err, &te)
}

func TestArithSubtractArraySetDifference(t *testing.T) {
	v, err := value.Arith(
		value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)}),
		value.OpSub,
		value.Array([]value.Value{value.Int(2)}),
	)
	require.NoError(t, err)
	arr, _ := v.AsArray()
	require.Len(t, arr, 2)
	assert.True(t, value.Equal(arr[0], value.Int(1)))
	assert.True(t, value.Equal(arr[1], value.Int(3)))
}

func TestArithMultiplyStringByNumber(t *testing.T) {
	v, err := value.Arith(value.String("ab"), value.OpMul, value.Int(3))
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "ababab", s)

	v, err = value.Arith(value.String("ab"), value.OpMul, value.Int(0))
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestArithMultiplyDeepMergesObjects(t *testing.T) {
	left := value.ObjectValue(value.NewObject([]value.KV{
		{Key: "a", Val: value.ObjectValue(value.NewObject([]value.KV{{Key: "x", Val: value.Int(1)}}))},
	}))
	right := value.ObjectValue(value.NewObject([]value.KV{
		{Key: "a", Val: value.ObjectValue(value.NewObject([]value.KV{{Key: "y", Val: value.Int(2)}}))},
	}))
	v, err := value.Arith(left, value.OpMul, right)
	require.NoError(t, err)
	obj, _ := v.AsObject()
	inner, ok := obj.Get("a")
	require.True(t, ok)
	innerObj, _ := inner.AsObject()
	assert.Equal(t, 2, innerObj.Len())
}

func TestArithDivideByZero(t *testing.T) {
	_, err := value.Arith(value.Int(1), value.OpDiv, value.Int(0))
	require.Error(t, err)
	var ae *value.ArithError
	assert.ErrorAs(t, err, &ae)
}

func TestArithDivideIntegersExactlyStaysInt(t *testing.T) {
	v, err := value.Arith(value.Int(6), value.OpDiv, value.Int(3))
	require.NoError(t, err)
	i, ok := v.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(2), i)
}

func TestArithDivideStringsSplits(t *testing.T) {
	v, err := value.Arith(value.String("a,b,c"), value.OpDiv, value.String(","))
	require.NoError(t, err)
	arr, _ := v.AsArray()
	require.Len(t, arr, 3)
}

func TestArithModuloByZero(t *testing.T) {
	_, err := value.Arith(value.Int(5), value.OpMod, value.Int(0))
	require.Error(t, err)
}

func TestArithModuloTruncates(t *testing.T) {
	v, err := value.Arith(value.Int(7), value.OpMod, value.Int(3))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(1), i)
}

func TestArithModuloInfiniteDividendIsZero(t *testing.T) {
	v, err := value.Arith(value.Float(math.Inf(1)), value.OpMod, value.Int(2))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(0), i)

	v, err = value.Arith(value.Float(math.Inf(-1)), value.OpMod, value.Int(2))
	require.NoError(t, err)
	i, _ = v.AsInt()
	assert.Equal(t, int64(0), i)
}

func TestArithModuloInfiniteDivisorPassesDividendThrough(t *testing.T) {
	v, err := value.Arith(value.Int(5), value.OpMod, value.Float(math.Inf(1)))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(5), i)
}

func TestNegate(t *testing.T) {
	v, err := value.Negate(value.Int(5))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(-5), i)

	_, err = value.Negate(value.String("x"))
	assert.Error(t, err)
}

func TestArithAddOverflowPromotesToFloat(t *testing.T) {
	v, err := value.Arith(value.Int(1<<62), value.OpAdd, value.Int(1<<62))
	require.NoError(t, err)
	assert.Equal(t, value.KindFloat, v.Kind())
}
