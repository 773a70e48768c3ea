package singledoc_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/format"
	"github.com/fastjq/fastjq/internal/jqlang"
	"github.com/fastjq/fastjq/internal/simd"
	"github.com/fastjq/fastjq/pipeline/singledoc"
	"github.com/fastjq/fastjq/value"
)

func run(t *testing.T, filter, doc string, opts singledoc.Options) (string, value.Value, bool) {
	t.Helper()
	f, err := jqlang.Parse(filter)
	require.NoError(t, err)
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	last, any, err := singledoc.Run(f, []byte(doc), simd.New(), singledoc.NewScope(nil), w, opts)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	return buf.String(), last, any
}

func TestRunUsesFastPathWhenCompactAndShapeRecognized(t *testing.T) {
	out, last, any := run(t, ".a.b", `{"a":{"b":42}}`, singledoc.Options{
		Format: format.Options{Compact: true},
	})
	assert.Equal(t, "42\n", out)
	assert.True(t, any)
	i, _ := last.AsInt()
	assert.Equal(t, int64(42), i)
}

func TestRunFallsBackToEvalForUnrecognizedShape(t *testing.T) {
	out, _, any := run(t, "[.[] | . * 2]", `[1,2,3]`, singledoc.Options{
		Format: format.Options{Compact: true},
	})
	assert.Equal(t, "[2,4,6]\n", out)
	assert.True(t, any)
}

func TestRunFastPathDisabledFallsBackEvenForRecognizedShape(t *testing.T) {
	out, _, _ := run(t, ".a", `{"a":1}`, singledoc.Options{
		Format:          format.Options{Compact: true},
		DisableFastPath: true,
	})
	assert.Equal(t, "1\n", out)
}

func TestRunNotCompactSkipsFastPath(t *testing.T) {
	out, _, _ := run(t, ".a", `{"a":1}`, singledoc.Options{Format: format.Options{IndentSize: 2}})
	assert.Equal(t, "1\n", out)
}

func TestRunPrettyPrintsWhenNotCompact(t *testing.T) {
	out, _, _ := run(t, ".", `{"a":1}`, singledoc.Options{
		Format:          format.Options{IndentSize: 2},
		DisableFastPath: true,
	})
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out)
}

func TestRunSelectSkipReturnsNoOutput(t *testing.T) {
	out, _, any := run(t, `select(.status == "ok")`, `{"status":"fail"}`, singledoc.Options{
		Format: format.Options{Compact: true},
	})
	assert.Equal(t, "", out)
	assert.False(t, any)
}
