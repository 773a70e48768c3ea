package ndjson_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fastjq/fastjq/pipeline/ndjson"
)

func TestSniffDetectsMultipleLines(t *testing.T) {
	assert.True(t, ndjson.Sniff([]byte("{\"a\":1}\n{\"a\":2}\n")))
}

func TestSniffRejectsSingleDocument(t *testing.T) {
	assert.False(t, ndjson.Sniff([]byte(`{"a":1,"b":[1,2,3]}`)))
}

func TestSniffRejectsTrailingNewlineOnly(t *testing.T) {
	assert.False(t, ndjson.Sniff([]byte("{\"a\":1}\n")))
}

func TestSniffRejectsEmptyInput(t *testing.T) {
	assert.False(t, ndjson.Sniff([]byte{}))
}

// Sniff implements spec §4.4 step 1 literally: "finding a newline within the
// leading bytes" with non-whitespace content after it. A pretty-printed
// single document also has interior newlines followed by content, so it
// sniffs as NDJSON too — a known heuristic limitation inherited directly
// from the spec's own detection rule, not something this test papers over.
func TestSniffPrettyPrintedSingleDocumentIsANaiveFalsePositive(t *testing.T) {
	doc := []byte("{\n  \"a\": 1,\n  \"b\": 2\n}\n")
	assert.True(t, ndjson.Sniff(doc))
}
