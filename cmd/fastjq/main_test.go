package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/value"
)

func TestFinalExitNoFlag(t *testing.T) {
	assert.Equal(t, 0, finalExit(true, value.Bool(false), false))
}

func TestFinalExitFalseOrNullSetsExitOne(t *testing.T) {
	assert.Equal(t, 1, finalExit(true, value.Bool(false), true))
	assert.Equal(t, 1, finalExit(true, value.Null, true))
	assert.Equal(t, 1, finalExit(false, value.Value{}, true))
}

func TestFinalExitTruthyIsZero(t *testing.T) {
	assert.Equal(t, 0, finalExit(true, value.Int(1), true))
}

func TestResolveBindingsArgAndArgjson(t *testing.T) {
	bindings, err := resolveBindings(
		map[string]string{"name": "ada"},
		map[string]string{"n": "42"},
		nil,
	)
	require.NoError(t, err)
	name, ok := bindings["name"]
	require.True(t, ok)
	s, _ := name.AsString()
	assert.Equal(t, "ada", s)

	n, ok := bindings["n"]
	require.True(t, ok)
	i, _ := n.AsInt()
	assert.Equal(t, int64(42), i)

	_, ok = bindings["ENV"]
	assert.True(t, ok)
}

func TestResolveBindingsSlurpfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vals.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o644))

	bindings, err := resolveBindings(nil, nil, map[string]string{"cfg": path})
	require.NoError(t, err)
	cfg, ok := bindings["cfg"]
	require.True(t, ok)
	arr, ok := cfg.AsArray()
	require.True(t, ok)
	require.Len(t, arr, 1)
}

func TestResolveBindingsInvalidArgjsonErrors(t *testing.T) {
	_, err := resolveBindings(nil, map[string]string{"n": "not json"}, nil)
	assert.Error(t, err)
}

func TestReportErrMapsFastjqErrorExitCode(t *testing.T) {
	code := reportErr(fastjqerr.New(fastjqerr.KindParse, "bad json"))
	assert.Equal(t, 3, code)
}

func TestReportErrMapsUnknownErrorToFive(t *testing.T) {
	code := reportErr(os.ErrClosed)
	assert.Equal(t, 5, code)
}
