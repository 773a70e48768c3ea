package fastpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/fastpath"
	"github.com/fastjq/fastjq/value"
)

func field(name string) *ast.Field { return &ast.Field{Name: name} }

func TestDetectIdentity(t *testing.T) {
	p := fastpath.Detect(&ast.Identity{})
	require.NotNil(t, p)
	assert.Equal(t, fastpath.KindIdentity, p.Kind)
}

func TestDetectFieldChain(t *testing.T) {
	root := &ast.Pipe{Left: field("a"), Right: field("b")}
	p := fastpath.Detect(root)
	require.NotNil(t, p)
	assert.Equal(t, fastpath.KindFieldChain, p.Kind)
	assert.Equal(t, []string{"a", "b"}, p.Chain)
}

func TestDetectLengthWithChain(t *testing.T) {
	root := &ast.Pipe{Left: field("items"), Right: &ast.FuncCall{Name: "length"}}
	p := fastpath.Detect(root)
	require.NotNil(t, p)
	assert.Equal(t, fastpath.KindLength, p.Kind)
	assert.Equal(t, []string{"items"}, p.Chain)
}

func TestDetectHas(t *testing.T) {
	root := &ast.FuncCall{Name: "has", Args: []ast.Node{&ast.Literal{Val: value.String("k")}}}
	p := fastpath.Detect(root)
	require.NotNil(t, p)
	assert.Equal(t, fastpath.KindHas, p.Kind)
	assert.Equal(t, "k", p.HasArg)
}

func TestDetectObjectConstruct(t *testing.T) {
	root := &ast.ObjectConstruct{Entries: []ast.ObjectEntry{
		{KeyName: "x", Val: field("x")},
		{KeyName: "y", Val: field("y")},
	}}
	p := fastpath.Detect(root)
	require.NotNil(t, p)
	assert.Equal(t, fastpath.KindMultiFieldObject, p.Kind)
	require.Len(t, p.Fields, 2)
}

func TestDetectSelectEq(t *testing.T) {
	root := &ast.FuncCall{Name: "select", Args: []ast.Node{
		&ast.Compare{Op: ast.CmpEq, Left: field("status"), Right: &ast.Literal{Val: value.String("ok")}},
	}}
	p := fastpath.Detect(root)
	require.NotNil(t, p)
	assert.Equal(t, fastpath.KindSelectEq, p.Kind)
	assert.Equal(t, []string{"status"}, p.Chain)
}

func TestDetectSelectExtract(t *testing.T) {
	sel := &ast.FuncCall{Name: "select", Args: []ast.Node{
		&ast.Compare{Op: ast.CmpEq, Left: field("status"), Right: &ast.Literal{Val: value.String("ok")}},
	}}
	root := &ast.Pipe{Left: sel, Right: field("name")}
	p := fastpath.Detect(root)
	require.NotNil(t, p)
	assert.Equal(t, fastpath.KindSelectExtract, p.Kind)
	require.NotNil(t, p.Second)
	assert.Equal(t, fastpath.KindFieldChain, p.Second.Kind)
}

func TestDetectMapFormMarksPerElement(t *testing.T) {
	root := &ast.FuncCall{Name: "map", Args: []ast.Node{field("x")}}
	p := fastpath.Detect(root)
	require.NotNil(t, p)
	assert.True(t, p.PerElement)
	assert.Equal(t, fastpath.KindFieldChain, p.Kind)
}

func TestDetectUnrecognizedShapeReturnsNil(t *testing.T) {
	root := &ast.Recurse{}
	assert.Nil(t, fastpath.Detect(root))
}
