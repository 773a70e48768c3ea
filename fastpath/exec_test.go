package fastpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/fastpath"
	"github.com/fastjq/fastjq/internal/simd"
	"github.com/fastjq/fastjq/value"
)

func TestExecIdentityMinifies(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindIdentity}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`{ "a" : 1 }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(res.Raw))
}

func TestExecFieldChain(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindFieldChain, Chain: []string{"user", "name"}}
	doc := []byte(`{"user":{"name":"ada","id":1}}`)
	res, err := fastpath.Exec(plan, simd.New(), doc)
	require.NoError(t, err)
	assert.Equal(t, `"ada"`, string(res.Raw))
}

func TestExecFieldChainMissingYieldsNull(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindFieldChain, Chain: []string{"missing"}}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `null`, string(res.Raw))
}

func TestExecLength(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindLength, Chain: []string{"items"}}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`{"items":[1,2,3]}`))
	require.NoError(t, err)
	require.True(t, res.HasValue)
	i, ok := res.Value.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(3), i)
}

func TestExecType(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindType}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`[1,2]`))
	require.NoError(t, err)
	s, _ := res.Value.AsString()
	assert.Equal(t, "array", s)
}

func TestExecKeysSorted(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindKeys}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`{"b":1,"a":2}`))
	require.NoError(t, err)
	arr, _ := res.Value.AsArray()
	require.Len(t, arr, 2)
	s0, _ := arr[0].AsString()
	s1, _ := arr[1].AsString()
	assert.Equal(t, "a", s0)
	assert.Equal(t, "b", s1)
}

func TestExecKeysUnsortedPreservesInsertionOrder(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindKeysUnsorted}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`{"b":1,"a":2}`))
	require.NoError(t, err)
	arr, _ := res.Value.AsArray()
	require.Len(t, arr, 2)
	s0, _ := arr[0].AsString()
	assert.Equal(t, "b", s0)
}

func TestExecHas(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindHas, HasArg: "a"}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`{"a":1}`))
	require.NoError(t, err)
	b, ok := res.Value.AsBool()
	require.True(t, ok)
	assert.True(t, b)
}

func TestExecMultiFieldObject(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindMultiFieldObject, Fields: []fastpath.FieldSpec{
		{Key: "x", Chain: []string{"a"}},
		{Key: "y", Chain: []string{"b"}},
	}}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`{"a":1,"b":2}`))
	require.NoError(t, err)
	obj, ok := res.Value.AsObject()
	require.True(t, ok)
	x, _ := obj.Get("x")
	xi, _ := x.AsInt()
	assert.Equal(t, int64(1), xi)
}

func TestExecSelectEqMatchAndSkip(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindSelectEq, Chain: []string{"status"}, Op: ast.CmpEq, Literal: value.String("ok")}

	res, err := fastpath.Exec(plan, simd.New(), []byte(`{"status":"ok","v":1}`))
	require.NoError(t, err)
	assert.False(t, res.Skip)

	res, err = fastpath.Exec(plan, simd.New(), []byte(`{"status":"fail","v":1}`))
	require.NoError(t, err)
	assert.True(t, res.Skip)
}

func TestExecSelectExtract(t *testing.T) {
	plan := &fastpath.Plan{
		Kind:    fastpath.KindSelectExtract,
		Chain:   []string{"status"},
		Op:      ast.CmpEq,
		Literal: value.String("ok"),
		Second:  &fastpath.Plan{Kind: fastpath.KindFieldChain, Chain: []string{"name"}},
	}
	res, err := fastpath.Exec(plan, simd.New(), []byte(`{"status":"ok","name":"ada"}`))
	require.NoError(t, err)
	assert.Equal(t, `"ada"`, string(res.Raw))

	res, err = fastpath.Exec(plan, simd.New(), []byte(`{"status":"no","name":"ada"}`))
	require.NoError(t, err)
	assert.True(t, res.Skip)
}

func TestExecPerElement(t *testing.T) {
	plan := &fastpath.Plan{Kind: fastpath.KindFieldChain, Chain: []string{"x"}, PerElement: true}
	doc := []byte(`[{"x":1},{"x":2}]`)
	res, err := fastpath.Exec(plan, simd.New(), doc)
	require.NoError(t, err)
	require.True(t, res.HasValue)
	arr, ok := res.Value.AsArray()
	require.True(t, ok)
	require.Len(t, arr, 2)
	i0, _ := arr[0].AsInt()
	assert.Equal(t, int64(1), i0)
}
