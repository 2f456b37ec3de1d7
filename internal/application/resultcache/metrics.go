package resultcache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"tessera/internal/domain"
)

var (
	tracer = otel.Tracer("tessera.resultcache")
	meter  = otel.Meter("tessera.resultcache")
)

var (
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
	cacheInvalidations metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		cacheHits, err = meter.Int64Counter(
			"tessera_cache_hits_total",
			metric.WithDescription("Total number of widget result cache hits"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheMisses, err = meter.Int64Counter(
			"tessera_cache_misses_total",
			metric.WithDescription("Total number of widget result cache misses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheInvalidations, err = meter.Int64Counter(
			"tessera_cache_invalidations_total",
			metric.WithDescription("Total number of invalidated cache entries"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordLookup(ctx context.Context, bucket domain.CacheBucket, hit bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("bucket", string(bucket)))
	if hit {
		cacheHits.Add(ctx, 1, attrs)
		return
	}
	cacheMisses.Add(ctx, 1, attrs)
}

func recordInvalidations(ctx context.Context, bucket domain.CacheBucket, n int) {
	if err := initMetrics(); err != nil || n == 0 {
		return
	}
	cacheInvalidations.Add(ctx, int64(n), metric.WithAttributes(attribute.String("bucket", string(bucket))))
}

// startSpan creates a span for a cache operation
func startSpan(ctx context.Context, operation, vaultID, widgetID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ResultCache."+operation,
		trace.WithAttributes(
			attribute.String("cache.operation", operation),
			attribute.String("cache.vault_id", vaultID),
			attribute.String("cache.widget_id", widgetID),
		),
	)
}
