package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/domain"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	stored := time.UnixMilli(1700000000000)
	key := domain.CacheKey("vault", "books")
	require.NoError(t, c.Put(ctx, domain.BucketWidget, key, domain.CacheEntry{Fingerprint: "fp", Payload: []byte(`{"x":1}`), StoredAt: stored}))

	got, ok, err := c.Get(ctx, domain.BucketWidget, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fp", got.Fingerprint)
	assert.Equal(t, `{"x":1}`, string(got.Payload))
	assert.True(t, got.StoredAt.Equal(stored))

	_, ok, err = c.Get(ctx, domain.BucketSimilarity, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_DeletePrefixAndCount(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	for _, k := range []string{
		domain.CacheKey("vault", "w1"),
		domain.CacheKey("vault", "w10"),
		domain.CacheKey("other", "w1"),
	} {
		require.NoError(t, c.Put(ctx, domain.BucketWidget, k, domain.CacheEntry{Fingerprint: "f"}))
	}
	require.NoError(t, c.Put(ctx, domain.BucketSimilarity, domain.CacheKey("vault", "w1", "a.md"), domain.CacheEntry{Fingerprint: "f"}))

	n, err := c.DeletePrefix(ctx, domain.BucketWidget, domain.CacheKey("vault", "w1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := c.Count(ctx, domain.BucketWidget)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = c.Count(ctx, domain.BucketSimilarity)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = c.DeletePrefix(ctx, domain.BucketWidget, "nothing-here")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, domain.BucketWidget, "k", domain.CacheEntry{Fingerprint: "f", Payload: []byte("p")}))
	require.NoError(t, c.Close())

	c, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer c.Close()

	got, ok, err := c.Get(ctx, domain.BucketWidget, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p", string(got.Payload))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
