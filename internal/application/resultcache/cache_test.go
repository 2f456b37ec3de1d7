package resultcache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/adapters/memory"
	"tessera/internal/domain"
)

func sampleResult(id string) domain.WidgetResult {
	res := domain.NewWidgetResult(domain.WidgetConfig{
		ID:       id,
		Name:     "Books",
		Type:     domain.WidgetTypeAggregate,
		Location: domain.LocationGround,
		Display:  map[string]any{"icon": "book"},
	})
	res.Values = domain.NewFieldValues()
	res.Values.Set("count", 3.0)
	res.Values.Set("avg", 4.5)
	res.Values.Set("none", nil)
	res.ComputeTimeMs = 7
	return res
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(), nil)

	want := sampleResult("books")
	c.Set(ctx, "vault", "books", "fp1", want)

	got, ok := c.Get(ctx, "vault", "books", "fp1")
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"count", "avg", "none"}, got.Values.Keys())
}

func TestCache_FingerprintMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(), nil)

	c.Set(ctx, "vault", "books", "fp1", sampleResult("books"))

	_, ok := c.Get(ctx, "vault", "books", "fp2")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "other", "books", "fp1")
	assert.False(t, ok)
}

func TestCache_SimilarityIsPerSource(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(), nil)

	res := domain.NewWidgetResult(domain.WidgetConfig{ID: "related", Type: domain.WidgetTypeSimilarity})
	res.Matches = []domain.SimilarityMatch{{Path: "b.md", Score: 0.5, Title: "b"}}
	c.SetSimilarity(ctx, "vault", "related", "a.md", "fp", res)

	got, ok := c.GetSimilarity(ctx, "vault", "related", "a.md", "fp")
	require.True(t, ok)
	assert.Equal(t, res.Matches, got.Matches)

	_, ok = c.GetSimilarity(ctx, "vault", "related", "c.md", "fp")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "vault", "related", "fp")
	assert.False(t, ok)
}

func TestCache_Invalidation(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(), nil)

	c.Set(ctx, "vault", "w1", "fp", sampleResult("w1"))
	c.Set(ctx, "vault", "w10", "fp", sampleResult("w10"))
	c.SetSimilarity(ctx, "vault", "w1", "a.md", "fp", sampleResult("w1"))
	c.SetSimilarity(ctx, "vault", "w1", "b.md", "fp", sampleResult("w1"))
	c.Set(ctx, "other", "w1", "fp", sampleResult("w1"))

	assert.Equal(t, 1, c.InvalidateWidget(ctx, "vault", "w1"))
	assert.Equal(t, 2, c.InvalidateSimilarity(ctx, "vault", "w1"))

	_, ok := c.Get(ctx, "vault", "w10", "fp")
	assert.True(t, ok, "invalidating w1 must not touch w10")

	assert.Equal(t, 1, c.InvalidateVault(ctx, "vault"))

	stats := c.Stats(ctx)
	assert.Equal(t, domain.CacheStats{WidgetEntries: 1, SimilarityEntries: 0}, stats)
}

func TestCache_FallbackAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	c := New(memory.Noop{}, nil)

	c.Set(ctx, "vault", "books", "fp", sampleResult("books"))
	_, ok := c.Get(ctx, "vault", "books", "fp")

	assert.False(t, ok)
	assert.True(t, c.UsingFallback())
	assert.True(t, c.Stats(ctx).UsingFallback)
	assert.Zero(t, c.InvalidateVault(ctx, "vault"))
}

// brokenBackend fails every operation
type brokenBackend struct{}

var errBroken = errors.New("disk on fire")

func (brokenBackend) Get(context.Context, domain.CacheBucket, string) (domain.CacheEntry, bool, error) {
	return domain.CacheEntry{}, false, errBroken
}

func (brokenBackend) Put(context.Context, domain.CacheBucket, string, domain.CacheEntry) error {
	return errBroken
}

func (brokenBackend) DeletePrefix(context.Context, domain.CacheBucket, string) (int, error) {
	return 0, errBroken
}

func (brokenBackend) Count(context.Context, domain.CacheBucket) (int, error) {
	return 0, errBroken
}

func (brokenBackend) Close() error { return nil }

func TestCache_BackendErrorsAreMisses(t *testing.T) {
	ctx := context.Background()
	c := New(brokenBackend{}, nil)

	c.Set(ctx, "vault", "books", "fp", sampleResult("books"))
	_, ok := c.Get(ctx, "vault", "books", "fp")
	assert.False(t, ok)
	assert.Zero(t, c.InvalidateWidget(ctx, "vault", "books"))
	assert.Equal(t, domain.CacheStats{}, c.Stats(ctx))
}

func TestCache_UndecodablePayloadIsMiss(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	c := New(backend, nil)

	require.NoError(t, backend.Put(ctx, domain.BucketWidget, domain.CacheKey("vault", "books"),
		domain.CacheEntry{Fingerprint: "fp", Payload: []byte("{not json")}))

	_, ok := c.Get(ctx, "vault", "books", "fp")
	assert.False(t, ok)
}
