// Package resultcache stores computed widget results keyed by content fingerprint.
package resultcache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// Fallback is implemented by backends that store nothing
type Fallback interface {
	IsFallback() bool
}

// Cache serves widget results whose stored fingerprint equals the current one.
//
// Backend failures never reach the caller: reads turn into misses and writes
// and deletes are logged and dropped.
type Cache struct {
	backend  ports.CacheBackend
	fallback bool
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Cache over backend. A nil logger discards output.
func New(backend ports.CacheBackend, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fb, ok := backend.(Fallback)
	return &Cache{
		backend:  backend,
		fallback: ok && fb.IsFallback(),
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the result stored for a widget when it was computed from the same documents
func (c *Cache) Get(ctx context.Context, vaultID, widgetID, fingerprint string) (domain.WidgetResult, bool) {
	return c.get(ctx, domain.BucketWidget, domain.CacheKey(vaultID, widgetID), vaultID, widgetID, fingerprint)
}

// Set stores a freshly computed widget result
func (c *Cache) Set(ctx context.Context, vaultID, widgetID, fingerprint string, result domain.WidgetResult) {
	c.set(ctx, domain.BucketWidget, domain.CacheKey(vaultID, widgetID), vaultID, widgetID, fingerprint, result)
}

// GetSimilarity returns the result stored for a widget relative to one source document
func (c *Cache) GetSimilarity(ctx context.Context, vaultID, widgetID, sourcePath, fingerprint string) (domain.WidgetResult, bool) {
	return c.get(ctx, domain.BucketSimilarity, domain.CacheKey(vaultID, widgetID, sourcePath), vaultID, widgetID, fingerprint)
}

// SetSimilarity stores a result computed relative to one source document
func (c *Cache) SetSimilarity(ctx context.Context, vaultID, widgetID, sourcePath, fingerprint string, result domain.WidgetResult) {
	c.set(ctx, domain.BucketSimilarity, domain.CacheKey(vaultID, widgetID, sourcePath), vaultID, widgetID, fingerprint, result)
}

// InvalidateWidget drops the collection result of a widget
func (c *Cache) InvalidateWidget(ctx context.Context, vaultID, widgetID string) int {
	return c.deletePrefix(ctx, domain.BucketWidget, domain.CacheKey(vaultID, widgetID))
}

// InvalidateSimilarity drops every per-source result of a widget
func (c *Cache) InvalidateSimilarity(ctx context.Context, vaultID, widgetID string) int {
	return c.deletePrefix(ctx, domain.BucketSimilarity, domain.CacheKey(vaultID, widgetID))
}

// InvalidateVault drops every entry of a vault in both buckets
func (c *Cache) InvalidateVault(ctx context.Context, vaultID string) int {
	prefix := domain.CacheKey(vaultID)
	return c.deletePrefix(ctx, domain.BucketWidget, prefix) +
		c.deletePrefix(ctx, domain.BucketSimilarity, prefix)
}

// Stats reports entry counts. Counting failures report zero entries.
func (c *Cache) Stats(ctx context.Context) domain.CacheStats {
	stats := domain.CacheStats{UsingFallback: c.fallback}

	var err error
	if stats.WidgetEntries, err = c.backend.Count(ctx, domain.BucketWidget); err != nil {
		c.logger.Warn("cache count failed", "bucket", domain.BucketWidget, "error", err)
	}
	if stats.SimilarityEntries, err = c.backend.Count(ctx, domain.BucketSimilarity); err != nil {
		c.logger.Warn("cache count failed", "bucket", domain.BucketSimilarity, "error", err)
	}
	return stats
}

// UsingFallback reports whether results are never stored
func (c *Cache) UsingFallback() bool {
	return c.fallback
}

// Close releases the backend
func (c *Cache) Close() error {
	return c.backend.Close()
}

func (c *Cache) get(ctx context.Context, bucket domain.CacheBucket, key, vaultID, widgetID, fingerprint string) (domain.WidgetResult, bool) {
	ctx, span := startSpan(ctx, "Get", vaultID, widgetID)
	defer span.End()

	hit := false
	defer func() {
		span.SetAttributes(attribute.Bool("cache.hit", hit))
		recordLookup(ctx, bucket, hit)
	}()

	entry, ok, err := c.backend.Get(ctx, bucket, key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "bucket", bucket, "widget", widgetID, "error", err)
		return domain.WidgetResult{}, false
	}
	if !ok || entry.Fingerprint != fingerprint {
		return domain.WidgetResult{}, false
	}

	var result domain.WidgetResult
	if err := json.Unmarshal(entry.Payload, &result); err != nil {
		c.logger.Warn("cached result undecodable, treating as miss", "bucket", bucket, "widget", widgetID, "error", err)
		return domain.WidgetResult{}, false
	}

	hit = true
	return result, true
}

func (c *Cache) set(ctx context.Context, bucket domain.CacheBucket, key, vaultID, widgetID, fingerprint string, result domain.WidgetResult) {
	ctx, span := startSpan(ctx, "Set", vaultID, widgetID)
	defer span.End()

	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cannot encode widget result", "widget", widgetID, "error", err)
		return
	}

	entry := domain.CacheEntry{Fingerprint: fingerprint, Payload: payload, StoredAt: c.now()}
	if err := c.backend.Put(ctx, bucket, key, entry); err != nil {
		c.logger.Warn("cache write failed", "bucket", bucket, "widget", widgetID, "error", err)
	}
}

func (c *Cache) deletePrefix(ctx context.Context, bucket domain.CacheBucket, prefix string) int {
	n, err := c.backend.DeletePrefix(ctx, bucket, prefix)
	if err != nil {
		c.logger.Warn("cache invalidation failed", "bucket", bucket, "error", err)
		return 0
	}
	recordInvalidations(ctx, bucket, n)
	return n
}
