package mmapio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/internal/mmapio"
)

func TestOpenMapsFileContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	want := []byte(`{"a":1,"b":2}` + "\n")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	f, err := mmapio.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, want, f.Bytes())
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f, err := mmapio.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Empty(t, f.Bytes())
}

func TestOpenMissingFileErrors(t *testing.T) {
	_, err := mmapio.Open(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}

func TestReleaseAndCloseDoNotPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	data := make([]byte, 3*os.Getpagesize())
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	f, err := mmapio.Open(path)
	require.NoError(t, err)
	f.Release(os.Getpagesize())
	f.Release(0) // no-op, nothing to release past what's already gone
	require.NoError(t, f.Close())
}
