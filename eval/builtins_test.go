package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/value"
)

func TestBuiltinSortUnique(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(3), value.Int(1), value.Int(2), value.Int(1)})
	out, err := run(t, "sort", arr)
	require.NoError(t, err)
	require.Len(t, out, 1)
	got, _ := out[0].AsArray()
	require.Len(t, got, 4)
	ints := make([]int64, len(got))
	for i, v := range got {
		ints[i], _ = v.AsInt()
	}
	assert.Equal(t, []int64{1, 1, 2, 3}, ints)

	out, err = run(t, "unique", arr)
	require.NoError(t, err)
	got, _ = out[0].AsArray()
	assert.Len(t, got, 3)
}

func TestBuiltinGroupBy(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4)})
	out, err := run(t, "group_by(. % 2)", arr)
	require.NoError(t, err)
	require.Len(t, out, 1)
	groups, _ := out[0].AsArray()
	require.Len(t, groups, 2)
}

func TestBuiltinMap(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	out, err := run(t, "map(. * 2)", arr)
	require.NoError(t, err)
	got, _ := out[0].AsArray()
	ints := make([]int64, len(got))
	for i, v := range got {
		ints[i], _ = v.AsInt()
	}
	assert.Equal(t, []int64{2, 4, 6}, ints)
}

func TestBuiltinToEntriesFromEntries(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{{Key: "a", Val: value.Int(1)}}))
	out, err := run(t, "to_entries", obj)
	require.NoError(t, err)
	entries, _ := out[0].AsArray()
	require.Len(t, entries, 1)
	e, _ := entries[0].AsObject()
	k, _ := e.Get("key")
	ks, _ := k.AsString()
	assert.Equal(t, "a", ks)

	out, err = run(t, "to_entries | from_entries", obj)
	require.NoError(t, err)
	back, _ := out[0].AsObject()
	v, ok := back.Get("a")
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int64(1), i)
}

func TestBuiltinSplitJoin(t *testing.T) {
	out, err := run(t, `split(",")`, value.String("a,b,c"))
	require.NoError(t, err)
	arr, _ := out[0].AsArray()
	require.Len(t, arr, 3)

	out, err = run(t, `join("-")`, value.Array([]value.Value{value.String("a"), value.String("b")}))
	require.NoError(t, err)
	s, _ := out[0].AsString()
	assert.Equal(t, "a-b", s)
}

func TestBuiltinTestMatchCapture(t *testing.T) {
	out, err := run(t, `test("^a.c$")`, value.String("abc"))
	require.NoError(t, err)
	b, _ := out[0].AsBool()
	assert.True(t, b)

	out, err = run(t, `capture("(?<year>[0-9]{4})")`, value.String("born 1990"))
	require.NoError(t, err)
	obj, _ := out[0].AsObject()
	yr, ok := obj.Get("year")
	require.True(t, ok)
	s, _ := yr.AsString()
	assert.Equal(t, "1990", s)
}

func TestBuiltinSubGsub(t *testing.T) {
	out, err := run(t, `sub("a"; "X")`, value.String("banana"))
	require.NoError(t, err)
	s, _ := out[0].AsString()
	assert.Equal(t, "bXnana", s)

	out, err = run(t, `gsub("a"; "X")`, value.String("banana"))
	require.NoError(t, err)
	s, _ = out[0].AsString()
	assert.Equal(t, "bXnXnX", s)
}

func TestBuiltinAtFormats(t *testing.T) {
	out, err := run(t, `@base64`, value.String("hi"))
	require.NoError(t, err)
	s, _ := out[0].AsString()
	assert.Equal(t, "aGk=", s)

	out, err = run(t, `@base64 | @base64d`, value.String("hi"))
	require.NoError(t, err)
	s, _ = out[0].AsString()
	assert.Equal(t, "hi", s)

	out, err = run(t, `@csv`, value.Array([]value.Value{value.Int(1), value.String("x,y")}))
	require.NoError(t, err)
	s, _ = out[0].AsString()
	assert.Equal(t, `1,"x,y"`, s)

	out, err = run(t, `@html`, value.String("<a>&"))
	require.NoError(t, err)
	s, _ = out[0].AsString()
	assert.Equal(t, "&lt;a&gt;&amp;", s)
}

func TestBuiltinGetSetDelPath(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{{Key: "a", Val: value.Int(1)}}))
	out, err := run(t, `getpath(["a"])`, obj)
	require.NoError(t, err)
	i, _ := out[0].AsInt()
	assert.Equal(t, int64(1), i)

	out, err = run(t, `setpath(["b"]; 2)`, obj)
	require.NoError(t, err)
	o, _ := out[0].AsObject()
	v, ok := o.Get("b")
	require.True(t, ok)
	i, _ = v.AsInt()
	assert.Equal(t, int64(2), i)

	out, err = run(t, `del(.a)`, obj)
	require.NoError(t, err)
	o, _ = out[0].AsObject()
	_, ok = o.Get("a")
	assert.False(t, ok)
}

func TestBuiltinPathUpdateAssignAndModify(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{{Key: "a", Val: value.Int(1)}}))
	out, err := run(t, `.a = 99`, obj)
	require.NoError(t, err)
	o, _ := out[0].AsObject()
	v, _ := o.Get("a")
	i, _ := v.AsInt()
	assert.Equal(t, int64(99), i)

	out, err = run(t, `.a += 1`, obj)
	require.NoError(t, err)
	o, _ = out[0].AsObject()
	v, _ = o.Get("a")
	i, _ = v.AsInt()
	assert.Equal(t, int64(2), i)

	out, err = run(t, `.a |= . + 10`, obj)
	require.NoError(t, err)
	o, _ = out[0].AsObject()
	v, _ = o.Get("a")
	i, _ = v.AsInt()
	assert.Equal(t, int64(11), i)
}

func TestBuiltinFlattenReverseFirst(t *testing.T) {
	arr := value.Array([]value.Value{
		value.Array([]value.Value{value.Int(1), value.Int(2)}),
		value.Int(3),
	})
	out, err := run(t, "flatten", arr)
	require.NoError(t, err)
	got, _ := out[0].AsArray()
	assert.Len(t, got, 3)

	out, err = run(t, "reverse", value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)}))
	require.NoError(t, err)
	got, _ = out[0].AsArray()
	i0, _ := got[0].AsInt()
	assert.Equal(t, int64(3), i0)

	out, err = run(t, "first", value.Array([]value.Value{value.Int(5), value.Int(6)}))
	require.NoError(t, err)
	i, _ := out[0].AsInt()
	assert.Equal(t, int64(5), i)
}

func TestBuiltinAnyAllEmptyCases(t *testing.T) {
	out, err := run(t, "any", value.Array([]value.Value{value.Bool(false), value.Bool(true)}))
	require.NoError(t, err)
	b, _ := out[0].AsBool()
	assert.True(t, b)

	out, err = run(t, "all", value.Array(nil))
	require.NoError(t, err)
	b, _ = out[0].AsBool()
	assert.True(t, b)
}

func TestBuiltinCombinations(t *testing.T) {
	arr := value.Array([]value.Value{
		value.Array([]value.Value{value.Int(1), value.Int(2)}),
		value.Array([]value.Value{value.Int(3), value.Int(4)}),
	})
	out, err := run(t, "combinations", arr)
	require.NoError(t, err)
	require.Len(t, out, 4)
	first, _ := out[0].AsArray()
	a, _ := first[0].AsInt()
	b, _ := first[1].AsInt()
	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(3), b)
}

func TestBuiltinCombinationsWithArity(t *testing.T) {
	out, err := run(t, "combinations(2)", value.Array([]value.Value{value.Int(1), value.Int(2)}))
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestBuiltinBase32RoundTrips(t *testing.T) {
	out, err := run(t, `@base32 | @base32d`, value.String("hello"))
	require.NoError(t, err)
	s, _ := out[0].AsString()
	assert.Equal(t, "hello", s)
}

func TestBuiltinToJSONFromJSON(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{{Key: "a", Val: value.Int(1)}}))
	out, err := run(t, "tojson", obj)
	require.NoError(t, err)
	s, _ := out[0].AsString()
	assert.Equal(t, `{"a":1}`, s)

	out, err = run(t, "fromjson", value.String(`{"a":1}`))
	require.NoError(t, err)
	back, _ := out[0].AsObject()
	v, ok := back.Get("a")
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int64(1), i)

	out, err = run(t, "tojson | fromjson", value.Array([]value.Value{value.Int(1), value.Int(2)}))
	require.NoError(t, err)
	arr, _ := out[0].AsArray()
	assert.Len(t, arr, 2)
}

func TestBuiltinFromJSONRejectsNonString(t *testing.T) {
	_, err := run(t, "fromjson", value.Int(1))
	assert.Error(t, err)
}

func TestBuiltinHasContainsIndices(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{{Key: "a", Val: value.Int(1)}}))
	out, err := run(t, `has("a")`, obj)
	require.NoError(t, err)
	b, _ := out[0].AsBool()
	assert.True(t, b)

	out, err = run(t, `contains("ell")`, value.String("hello"))
	require.NoError(t, err)
	b, _ = out[0].AsBool()
	assert.True(t, b)

	out, err = run(t, `indices(",")`, value.String("a,b,c"))
	require.NoError(t, err)
	arr, _ := out[0].AsArray()
	assert.Len(t, arr, 2)
}
