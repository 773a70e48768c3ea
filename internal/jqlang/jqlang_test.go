package jqlang_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/eval"
	"github.com/fastjq/fastjq/internal/jqlang"
	"github.com/fastjq/fastjq/value"
)

func evalOne(t *testing.T, filter string, input value.Value) []value.Value {
	t.Helper()
	f, err := jqlang.Parse(filter)
	require.NoError(t, err, "parsing %q", filter)
	var out []value.Value
	err = eval.Eval(f.Root, input, eval.NewScope(), func(v value.Value) error {
		out = append(out, v)
		return nil
	})
	require.NoError(t, err, "evaluating %q", filter)
	return out
}

func TestParseAndEvalIdentity(t *testing.T) {
	out := evalOne(t, ".", value.Int(5))
	require.Len(t, out, 1)
	assert.True(t, value.Equal(out[0], value.Int(5)))
}

func TestParseAndEvalFieldChain(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{
		{Key: "a", Val: value.ObjectValue(value.NewObject([]value.KV{{Key: "b", Val: value.Int(42)}}))},
	}))
	out := evalOne(t, ".a.b", obj)
	require.Len(t, out, 1)
	assert.True(t, value.Equal(out[0], value.Int(42)))
}

func TestParseAndEvalIteratePipe(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	out := evalOne(t, ".[] | . + 1", arr)
	require.Len(t, out, 3)
	assert.True(t, value.Equal(out[0], value.Int(2)))
	assert.True(t, value.Equal(out[2], value.Int(4)))
}

func TestParseAndEvalObjectConstruct(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{
		{Key: "x", Val: value.Int(1)},
		{Key: "y", Val: value.Int(2)},
	}))
	out := evalOne(t, "{x, z: .y}", obj)
	require.Len(t, out, 1)
	o, ok := out[0].AsObject()
	require.True(t, ok)
	x, _ := o.Get("x")
	z, _ := o.Get("z")
	assert.True(t, value.Equal(x, value.Int(1)))
	assert.True(t, value.Equal(z, value.Int(2)))
}

func TestParseAndEvalSelect(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4)})
	out := evalOne(t, "map(select(. > 2))", arr)
	require.Len(t, out, 1)
	got, ok := out[0].AsArray()
	require.True(t, ok)
	require.Len(t, got, 2)
}

func TestParseAndEvalReduce(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	out := evalOne(t, "reduce .[] as $x (0; . + $x)", arr)
	require.Len(t, out, 1)
	assert.True(t, value.Equal(out[0], value.Int(6)))
}

func TestParseAndEvalTryCatch(t *testing.T) {
	out := evalOne(t, `try error("boom") catch .`, value.Null)
	require.Len(t, out, 1)
	s, ok := out[0].AsString()
	require.True(t, ok)
	assert.Equal(t, "boom", s)
}

func TestParseRejectsInvalidSyntax(t *testing.T) {
	_, err := jqlang.Parse(".a |")
	assert.Error(t, err)
}
