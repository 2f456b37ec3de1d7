package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"tessera/internal/domain"
)

// ComputeGroundWidgets computes every ground widget.
//
// Cached results are served when their fingerprint still matches. Misses are
// computed before returning and mark the response stale, which starts one
// background recomputation of the whole ground set. While that recomputation
// runs, further triggers are ignored.
func (e *Engine) ComputeGroundWidgets(ctx context.Context, opts ComputeOptions) (domain.GroundResponse, error) {
	widgets, err := e.snapshot()
	if err != nil {
		return domain.GroundResponse{}, err
	}

	ctx, span := startSpan(ctx, "ComputeGroundWidgets", attribute.Bool("force", opts.Force))
	defer span.End()

	var ground []domain.WidgetConfig
	for _, w := range widgets {
		if w.IsGround() && w.Type == domain.WidgetTypeAggregate {
			ground = append(ground, w)
		}
	}

	results := make([]domain.WidgetResult, len(ground))
	missed := make([]bool, len(ground))

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range ground {
		g.Go(func() error {
			results[i], missed[i] = e.groundWidget(gctx, w, opts.Force)
			return nil
		})
	}
	_ = g.Wait()

	stale := false
	for _, m := range missed {
		stale = stale || m
	}
	if stale && !opts.Force {
		e.triggerGround(ctx)
	}

	span.SetAttributes(attribute.Bool("stale", stale), attribute.Int("widgets", len(results)))
	return domain.GroundResponse{
		Widgets:    results,
		IsStale:    stale && !opts.Force,
		ComputedAt: e.now(),
	}, nil
}

// groundWidget returns the result of one ground widget and whether it had to be computed
func (e *Engine) groundWidget(ctx context.Context, w domain.WidgetConfig, force bool) (domain.WidgetResult, bool) {
	docs := e.documentsFor(ctx, w)
	fp := domain.Fingerprint(docs)

	if !force {
		if res, ok := e.cache.Get(ctx, e.vaultID, w.ID, fp); ok {
			return res, false
		}
	}

	v, _, _ := e.flight.Do(domain.CacheKey(w.ID, fp), func() (any, error) {
		res := e.computeAggregate(ctx, w, docs, nil)
		e.cache.Set(ctx, e.vaultID, w.ID, fp, res)
		return res, nil
	})
	return v.(domain.WidgetResult), true
}

// computeAggregate evaluates an aggregate widget. current is nil for ground widgets.
func (e *Engine) computeAggregate(ctx context.Context, w domain.WidgetConfig, docs []domain.DocumentRecord, current *domain.DocumentRecord) domain.WidgetResult {
	start := time.Now()
	res := domain.NewWidgetResult(w)

	if len(docs) == 0 {
		res.IsEmpty = true
		res.EmptyReason = "no documents match " + w.Source.Pattern
	} else {
		res.Values = e.evaluator.Evaluate(w, docs, current)
	}

	elapsed := time.Since(start)
	res.ComputeTimeMs = elapsed.Milliseconds()
	recordComputeDuration(ctx, string(w.Type), elapsed)
	return res
}

// triggerGround starts the background recompute of all ground widgets unless one is already running
func (e *Engine) triggerGround(ctx context.Context) bool {
	if !e.pending.TryAcquire(GroundKey) {
		e.logger.Debug("ground recompute already pending")
		return false
	}
	e.runBackground(ctx, GroundKey, e.recomputeGround)
	return true
}
