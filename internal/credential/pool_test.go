package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelhub-api/internal/model"
)

func TestPool_Resolve(t *testing.T) {
	pool := NewPool([]string{"key-a", " ", "key-b", "key-c"})
	require.Equal(t, 3, pool.Size())

	for i, want := range []string{"key-a", "key-b", "key-c"} {
		got, err := pool.Resolve(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, idx := range []int{-1, 3, 42} {
		_, err := pool.Resolve(idx)
		assert.ErrorIs(t, err, model.ErrOutOfRange, "index %d", idx)
	}
}

func TestPool_Empty(t *testing.T) {
	pool := NewPool(nil)
	assert.Equal(t, 0, pool.Size())

	for _, idx := range []int{-1, 0, 1} {
		_, err := pool.Resolve(idx)
		assert.ErrorIs(t, err, model.ErrNotConfigured)
	}

	var nilPool *Pool
	assert.Equal(t, 0, nilPool.Size())
	assert.Equal(t, -1, nilPool.IndexOf("x"))
}

func TestPool_IndexOfAndMasked(t *testing.T) {
	pool := NewPool([]string{"abc", "secret-1234"})
	assert.Equal(t, 1, pool.IndexOf("secret-1234"))
	assert.Equal(t, -1, pool.IndexOf("missing"))
	assert.Equal(t, []string{"****", "****1234"}, pool.Masked())
}
