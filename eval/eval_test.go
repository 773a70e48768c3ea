package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/eval"
	"github.com/fastjq/fastjq/internal/jqlang"
	"github.com/fastjq/fastjq/value"
)

func run(t *testing.T, filter string, input value.Value) ([]value.Value, error) {
	t.Helper()
	f, err := jqlang.Parse(filter)
	require.NoError(t, err)
	var out []value.Value
	err = eval.Eval(f.Root, input, eval.NewScope(), func(v value.Value) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

func TestForeachAccumulatesAndExtracts(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	out, err := run(t, "foreach .[] as $x (0; . + $x; .)", arr)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, value.Equal(out[0], value.Int(1)))
	assert.True(t, value.Equal(out[1], value.Int(3)))
	assert.True(t, value.Equal(out[2], value.Int(6)))
}

func TestLabelBreakStopsEarly(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	out, err := run(t, "label $out | .[] | if . == 2 then ., break $out else . end", arr)
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Int(1), value.Int(2)}, out)
}

func TestDestructuringBind(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2)})
	out, err := run(t, ". as [$a, $b] | $a + $b", arr)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, value.Equal(out[0], value.Int(3)))
}

func TestStringInterpolation(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{{Key: "name", Val: value.String("ada")}}))
	out, err := run(t, `"hello \(.name)"`, obj)
	require.NoError(t, err)
	require.Len(t, out, 1)
	s, _ := out[0].AsString()
	assert.Equal(t, "hello ada", s)
}

func TestTryCatchSuppressesError(t *testing.T) {
	out, err := run(t, `(1, error("boom"), 2)?`, value.Null)
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.FloatRaw(1, "1")}, out)
}

func TestAlternativeOperator(t *testing.T) {
	out, err := run(t, "empty // 5", value.Null)
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.FloatRaw(5, "5")}, out)
}

func TestPathBuiltin(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{
		{Key: "a", Val: value.ObjectValue(value.NewObject([]value.KV{{Key: "b", Val: value.Int(1)}}))},
	}))
	out, err := run(t, "path(.a.b)", obj)
	require.NoError(t, err)
	require.Len(t, out, 1)
	arr, ok := out[0].AsArray()
	require.True(t, ok)
	require.Len(t, arr, 2)
	s0, _ := arr[0].AsString()
	s1, _ := arr[1].AsString()
	assert.Equal(t, "a", s0)
	assert.Equal(t, "b", s1)
}

func TestErrorPropagatesWhenUncaught(t *testing.T) {
	_, err := run(t, `error("boom")`, value.Null)
	assert.Error(t, err)
}
