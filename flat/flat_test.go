package flat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/value"
)

func buildObjectDoc() *flat.Buffer {
	b := flat.NewBuilder()
	b.StartObject()
	b.Key("name")
	b.String("ada")
	b.Key("tags")
	b.StartArray()
	b.Int(1)
	b.Int(2)
	b.EndArray()
	b.Key("active")
	b.Bool(true)
	b.Key("score")
	b.Double(1.5, "1.50")
	b.Key("meta")
	b.Null()
	b.EndObject()
	return b.Build()
}

func TestCursorFieldAndIndex(t *testing.T) {
	cur := flat.NewCursor(buildObjectDoc())
	require.Equal(t, value.KindObject, cur.Kind())
	require.Equal(t, 5, cur.Len())

	name, ok := cur.Field("name")
	require.True(t, ok)
	assert.Equal(t, "ada", name.Str())

	tags, ok := cur.Field("tags")
	require.True(t, ok)
	require.Equal(t, value.KindArray, tags.Kind())
	el, ok := tags.Index(-1)
	require.True(t, ok)
	assert.Equal(t, int64(2), el.Int())

	_, ok = cur.Field("missing")
	assert.False(t, ok)
}

func TestCursorMaterializeRoundTrips(t *testing.T) {
	cur := flat.NewCursor(buildObjectDoc())
	v := cur.Materialize()
	require.Equal(t, value.KindObject, v.Kind())
	obj, _ := v.AsObject()

	name, ok := obj.Get("name")
	require.True(t, ok)
	s, _ := name.AsString()
	assert.Equal(t, "ada", s)

	score, ok := obj.Get("score")
	require.True(t, ok)
	raw, ok := score.RawText()
	require.True(t, ok)
	assert.Equal(t, "1.50", raw)

	meta, ok := obj.Get("meta")
	require.True(t, ok)
	assert.True(t, meta.IsNull())
}

func TestCursorFieldsOrderPreserved(t *testing.T) {
	cur := flat.NewCursor(buildObjectDoc())
	fields := cur.Fields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"name", "tags", "active", "score", "meta"}, keys)
}

func TestBuilderPanicsOnUnclosedContainer(t *testing.T) {
	b := flat.NewBuilder()
	b.StartArray()
	b.Int(1)
	assert.Panics(t, func() { b.Build() })
}

func TestElementsSkipsNestedContainers(t *testing.T) {
	b := flat.NewBuilder()
	b.StartArray()
	b.StartObject()
	b.Key("a")
	b.Int(1)
	b.EndObject()
	b.String("after")
	b.EndArray()
	buf := b.Build()

	cur := flat.NewCursor(buf)
	els := cur.Elements()
	require.Len(t, els, 2)
	assert.Equal(t, value.KindObject, els[0].Kind())
	assert.Equal(t, "after", els[1].Str())
}
