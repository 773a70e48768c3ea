package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/env"
	"github.com/fastjq/fastjq/value"
)

func TestConsShadowsOuterBinding(t *testing.T) {
	e := env.Empty.Cons("x", value.Int(1)).Cons("x", value.Int(2))
	v, ok := e.Lookup("x")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.Int(2)))
}

func TestConsDoesNotMutateParent(t *testing.T) {
	parent := env.Empty.Cons("x", value.Int(1))
	_ = parent.Cons("x", value.Int(2))
	v, ok := parent.Lookup("x")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.Int(1)))
}

func TestLookupUnbound(t *testing.T) {
	_, ok := env.Empty.Lookup("nope")
	assert.False(t, ok)
}

func TestBulkBindings(t *testing.T) {
	e := env.Empty.Bulk(map[string]value.Value{"a": value.Int(1), "b": value.Int(2)})
	v, ok := e.Lookup("b")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.Int(2)))
}

func TestBulkThenConsOverridesBulk(t *testing.T) {
	e := env.Empty.Bulk(map[string]value.Value{"a": value.Int(1)}).Cons("a", value.Int(99))
	v, ok := e.Lookup("a")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.Int(99)))
}

func TestEmptyBulkIsNoOp(t *testing.T) {
	e := env.Empty.Bulk(nil)
	assert.Same(t, env.Empty, e)
}

func TestFuncEnvArityOverload(t *testing.T) {
	f := env.EmptyFuncs.Cons("f/0", "zero-arity").Cons("f/1", "one-arity")
	got, ok := f.Lookup("f/1")
	require.True(t, ok)
	assert.Equal(t, "one-arity", got)

	got, ok = f.Lookup("f/0")
	require.True(t, ok)
	assert.Equal(t, "zero-arity", got)

	_, ok = f.Lookup("f/2")
	assert.False(t, ok)
}
