package workpool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/internal/workpool"
)

func TestRunPreservesOrder(t *testing.T) {
	p := workpool.New(4)
	out, err := workpool.Run(p, 8, func(_ context.Context, i int) (int, error) {
		return i * i, nil
	})
	require.NoError(t, err)
	require.Len(t, out, 8)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestRunPropagatesFirstError(t *testing.T) {
	p := workpool.New(2)
	boom := errors.New("boom")
	_, err := workpool.Run(p, 5, func(_ context.Context, i int) (int, error) {
		if i == 3 {
			return 0, boom
		}
		return i, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNewDefaultsToNumCPUWhenNonPositive(t *testing.T) {
	p := workpool.New(0)
	out, err := workpool.Run(p, 3, func(_ context.Context, i int) (int, error) { return i, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, out)
}

func TestRunWithSingleWorkerStillCompletes(t *testing.T) {
	p := workpool.New(1)
	out, err := workpool.Run(p, 4, func(_ context.Context, i int) (int, error) { return i + 1, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, out)
}
