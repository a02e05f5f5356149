package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Options{Prefix: "test", DefaultTTL: time.Minute})

	n, err := store.Increment(ctx, "hits", 1, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	first, ok := store.TTL(ctx, "hits")
	require.True(t, ok)

	n, err = store.Increment(ctx, "hits", 2, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	second, ok := store.TTL(ctx, "hits")
	require.True(t, ok)
	assert.Greater(t, second, 30*time.Minute)
	assert.LessOrEqual(t, second, first)

	_, err = store.Increment(ctx, "  ", 1, 0)
	assert.Error(t, err)
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	root := NewStore(Options{Prefix: ":panel:"})
	a := root.Namespace("a")
	b := root.Namespace("b")

	require.NoError(t, a.Set(ctx, "k", "va", 0))
	require.NoError(t, b.Set(ctx, "k", "vb", 0))

	v, ok := a.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "va", v)

	v, ok = root.Get(ctx, "b:k")
	require.True(t, ok)
	assert.Equal(t, "vb", v)

	a.Delete(ctx, "k")
	_, ok = a.Get(ctx, "k")
	assert.False(t, ok)
}
