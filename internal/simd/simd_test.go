package simd_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/internal/simd"
)

func TestParseDocumentRoundTrips(t *testing.T) {
	p := simd.New()
	buf, err := p.ParseDocument([]byte(`{"a":1,"b":[1,2,3],"c":"x","d":null,"e":true,"f":1.5}`))
	require.NoError(t, err)

	v := flat.NewCursor(buf).Materialize()
	obj, ok := v.AsObject()
	require.True(t, ok)

	a, ok := obj.Get("a")
	require.True(t, ok)
	i, _ := a.AsInt()
	assert.Equal(t, int64(1), i)

	b, ok := obj.Get("b")
	require.True(t, ok)
	arr, _ := b.AsArray()
	assert.Len(t, arr, 3)

	d, ok := obj.Get("d")
	require.True(t, ok)
	assert.True(t, d.IsNull())
}

func TestParseDocumentRejectsGarbage(t *testing.T) {
	p := simd.New()
	_, err := p.ParseDocument([]byte(`{not json`))
	assert.Error(t, err)
}

func TestFieldChainExtractsRawBytes(t *testing.T) {
	p := simd.New()
	raw, found, err := p.FieldChain([]byte(`{"user":{"name":"ada","age":36}}`), []string{"user", "name"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `"ada"`, string(raw))
}

func TestFieldChainMissingKey(t *testing.T) {
	p := simd.New()
	_, found, err := p.FieldChain([]byte(`{"a":1}`), []string{"b"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNDJSONLinesSkipsBlankLines(t *testing.T) {
	p := simd.New()
	r := strings.NewReader("{\"a\":1}\n\n{\"a\":2}\n   \n{\"a\":3}\n")
	it := p.NDJSONLines(r)

	var lines []string
	for it.Next() {
		lines = append(lines, string(it.Line()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`, `{"a":3}`}, lines)
}

func TestNDJSONLinesOnEmptyInput(t *testing.T) {
	p := simd.New()
	it := p.NDJSONLines(strings.NewReader(""))
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestParseDocumentPreservesKeyInsertionOrder(t *testing.T) {
	p := simd.New()
	buf, err := p.ParseDocument([]byte(`{"z":1,"a":2}`))
	require.NoError(t, err)
	v := flat.NewCursor(buf).Materialize()
	obj, _ := v.AsObject()
	assert.Equal(t, []string{"z", "a"}, obj.Keys())
}
