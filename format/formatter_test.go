package format_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/format"
	"github.com/fastjq/fastjq/value"
)

func render(t *testing.T, v value.Value, opts format.Options) string {
	t.Helper()
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fm := format.New(w, opts)
	require.NoError(t, fm.WriteValue(v))
	require.NoError(t, w.Flush())
	return buf.String()
}

func TestWriteValueCompact(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{
		{Key: "b", Val: value.Int(2)},
		{Key: "a", Val: value.Int(1)},
	}))
	got := render(t, obj, format.Options{Compact: true})
	assert.Equal(t, `{"b":2,"a":1}`+"\n", got)
}

func TestWriteValueSortKeys(t *testing.T) {
	obj := value.ObjectValue(value.NewObject([]value.KV{
		{Key: "b", Val: value.Int(2)},
		{Key: "a", Val: value.Int(1)},
	}))
	got := render(t, obj, format.Options{Compact: true, SortKeys: true})
	assert.Equal(t, `{"a":1,"b":2}`+"\n", got)
}

func TestWriteValuePrettyIndents(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.Int(2)})
	got := render(t, arr, format.Options{IndentSize: 2})
	assert.Equal(t, "[\n  1,\n  2\n]\n", got)
}

func TestWriteValueRawStringUnquoted(t *testing.T) {
	got := render(t, value.String("hi"), format.Options{Compact: true, Raw: true})
	assert.Equal(t, "hi\n", got)
}

func TestWriteValueAsciiEscapesNonASCII(t *testing.T) {
	got := render(t, value.String("café"), format.Options{Compact: true, Ascii: true})
	assert.Equal(t, "\"caf\\u00e9\"\n", got)
}

func TestWriteValuePreservesRawFloatLiteral(t *testing.T) {
	got := render(t, value.FloatRaw(1.0, "1.00"), format.Options{Compact: true})
	assert.Equal(t, "1.00\n", got)
}

func TestWriteValueEmptyContainers(t *testing.T) {
	assert.Equal(t, "[]\n", render(t, value.EmptyArray, format.Options{Compact: true}))
	assert.Equal(t, "{}\n", render(t, value.EmptyObject, format.Options{Compact: true}))
}

func TestMinifyStripsWhitespaceOutsideStrings(t *testing.T) {
	in := []byte("{ \"a\" :  1,\n\"b\": \"x y\" }")
	out := format.Minify(in)
	assert.Equal(t, `{"a":1,"b":"x y"}`, string(out))
}

func TestWriteRawLinePassesThroughVerbatim(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fm := format.New(w, format.Options{Compact: true})
	require.NoError(t, fm.WriteRawLine([]byte(`{"a":1}`)))
	require.NoError(t, w.Flush())
	assert.Equal(t, "{\"a\":1}\n", buf.String())
}
