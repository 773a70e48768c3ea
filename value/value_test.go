package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/value"
)

func TestTruthy(t *testing.T) {
	assert.False(t, value.Null.Truthy())
	assert.False(t, value.Bool(false).Truthy())
	assert.True(t, value.Bool(true).Truthy())
	assert.True(t, value.Int(0).Truthy())
	assert.True(t, value.String("").Truthy())
	assert.True(t, value.EmptyArray.Truthy())
}

func TestObjectOrderPreservedOnUpdate(t *testing.T) {
	o := value.NewObject([]value.KV{
		{Key: "a", Val: value.Int(1)},
		{Key: "b", Val: value.Int(2)},
		{Key: "a", Val: value.Int(3)},
	})
	require.Equal(t, []string{"a", "b"}, o.Keys())
	v, ok := o.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(3), mustInt(t, v))
}

func TestObjectDeletePreservesOrder(t *testing.T) {
	o := value.NewObject([]value.KV{
		{Key: "a", Val: value.Int(1)},
		{Key: "b", Val: value.Int(2)},
		{Key: "c", Val: value.Int(3)},
	})
	o.Delete("b")
	assert.Equal(t, []string{"a", "c"}, o.Keys())
	_, ok := o.Get("b")
	assert.False(t, ok)
}

func TestCompareTypeOrdering(t *testing.T) {
	ordered := []value.Value{
		value.Null,
		value.Bool(false),
		value.Bool(true),
		value.Int(1),
		value.String("x"),
		value.Array([]value.Value{value.Int(1)}),
		value.ObjectValue(value.NewObject(nil)),
	}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Truef(t, value.Less(ordered[i], ordered[i+1]), "expected %v < %v", ordered[i], ordered[i+1])
	}
}

func TestCompareNumbersAcrossIntFloat(t *testing.T) {
	assert.True(t, value.Equal(value.Int(2), value.Float(2.0)))
	assert.True(t, value.Less(value.Int(1), value.Float(1.5)))
}

func TestCompareArraysLexicographic(t *testing.T) {
	a := value.Array([]value.Value{value.Int(1), value.Int(2)})
	b := value.Array([]value.Value{value.Int(1), value.Int(3)})
	assert.True(t, value.Less(a, b))

	short := value.Array([]value.Value{value.Int(1)})
	assert.True(t, value.Less(short, a))
}

func TestCompareObjectsBySortedKeysThenValues(t *testing.T) {
	a := value.ObjectValue(value.NewObject([]value.KV{{Key: "b", Val: value.Int(1)}}))
	b := value.ObjectValue(value.NewObject([]value.KV{{Key: "a", Val: value.Int(1)}, {Key: "b", Val: value.Int(1)}}))
	assert.True(t, value.Less(b, a))
}

func TestFloatRawPreservesLiteralText(t *testing.T) {
	v := value.FloatRaw(1.0, "1.00")
	raw, ok := v.RawText()
	require.True(t, ok)
	assert.Equal(t, "1.00", raw)

	plain := value.Float(1.0)
	_, ok = plain.RawText()
	assert.False(t, ok)
}

func mustInt(t *testing.T, v value.Value) int64 {
	t.Helper()
	i, ok := v.AsInt()
	require.True(t, ok)
	return i
}
