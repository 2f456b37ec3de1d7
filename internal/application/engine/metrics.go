package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("tessera.engine")
	meter  = otel.Meter("tessera.engine")
)

var (
	backgroundRecomputes metric.Int64Counter
	computeDuration      metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		backgroundRecomputes, err = meter.Int64Counter(
			"tessera_background_recomputes_total",
			metric.WithDescription("Total number of background widget recomputations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		computeDuration, err = meter.Float64Histogram(
			"tessera_widget_compute_duration_seconds",
			metric.WithDescription("Duration of widget computations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBackgroundRecompute(ctx context.Context, key string, failed bool) {
	if err := initMetrics(); err != nil {
		return
	}
	backgroundRecomputes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
		attribute.Bool("failed", failed),
	))
}

func recordComputeDuration(ctx context.Context, widgetType string, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	computeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("widget.type", widgetType)))
}

func startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine."+operation, trace.WithAttributes(attrs...))
}
