package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/domain"
)

func TestBackend_PutGetDeletePrefix(t *testing.T) {
	ctx := context.Background()
	b := New()

	k1 := domain.CacheKey("v", "w1")
	k10 := domain.CacheKey("v", "w10")
	s1 := domain.CacheKey("v", "w1", "a.md")

	require.NoError(t, b.Put(ctx, domain.BucketWidget, k1, domain.CacheEntry{Fingerprint: "f1", Payload: []byte("1")}))
	require.NoError(t, b.Put(ctx, domain.BucketWidget, k10, domain.CacheEntry{Fingerprint: "f10"}))
	require.NoError(t, b.Put(ctx, domain.BucketSimilarity, s1, domain.CacheEntry{Fingerprint: "s"}))

	got, ok, err := b.Get(ctx, domain.BucketWidget, k1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f1", got.Fingerprint)
	assert.Equal(t, []byte("1"), got.Payload)

	_, ok, _ = b.Get(ctx, domain.BucketSimilarity, k1)
	assert.False(t, ok, "buckets are separate")

	n, err := b.DeletePrefix(ctx, domain.BucketWidget, k1)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "w1 prefix must not remove w10")

	count, _ := b.Count(ctx, domain.BucketWidget)
	assert.Equal(t, 1, count)
	count, _ = b.Count(ctx, domain.BucketSimilarity)
	assert.Equal(t, 1, count)
}

func TestBackend_PayloadIsCopied(t *testing.T) {
	ctx := context.Background()
	b := New()

	payload := []byte("abc")
	require.NoError(t, b.Put(ctx, domain.BucketWidget, "k", domain.CacheEntry{Payload: payload}))
	payload[0] = 'x'

	got, _, _ := b.Get(ctx, domain.BucketWidget, "k")
	assert.Equal(t, "abc", string(got.Payload))
}

func TestNoop_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var b Noop

	require.NoError(t, b.Put(ctx, domain.BucketWidget, "k", domain.CacheEntry{Fingerprint: "f"}))
	_, ok, err := b.Get(ctx, domain.BucketWidget, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, b.IsFallback())
}
