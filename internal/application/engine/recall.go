package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"tessera/internal/application"
	"tessera/internal/domain"
)

// ComputeRecallWidgets computes every recall widget relative to the document at path.
// Results are in configuration order. Recall widgets are always computed synchronously.
func (e *Engine) ComputeRecallWidgets(ctx context.Context, path string, opts ComputeOptions) ([]domain.WidgetResult, error) {
	widgets, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	if err := application.ValidateRequired("sourcePath", path); err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "ComputeRecallWidgets", attribute.String("path", path))
	defer span.End()

	var recall []domain.WidgetConfig
	for _, w := range widgets {
		if w.Location == domain.LocationRecall {
			recall = append(recall, w)
		}
	}

	// an unreadable current document empties the aggregate widgets only
	var current *domain.DocumentRecord
	var readErr error
	if needsCurrent(recall) {
		doc, err := e.documents.Read(ctx, e.vaultPath, path)
		if err != nil {
			readErr = fmt.Errorf("%w: %s: %v", application.ErrDocumentNotFound, path, err)
			e.logger.Warn("cannot read current document", "path", path, "error", err)
			e.health.Report(domain.Issue{
				ID:       "document-read:" + path,
				Severity: domain.SeverityWarning,
				Message:  readErr.Error(),
				Details:  map[string]any{"path": path},
			})
		} else {
			current = &doc
		}
	}

	results := make([]domain.WidgetResult, len(recall))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range recall {
		g.Go(func() error {
			switch {
			case w.Type == domain.WidgetTypeSimilarity:
				results[i] = e.similarityWidget(gctx, w, path, opts.Force)
			case current == nil:
				results[i] = unreadableResult(w, path)
			default:
				results[i] = e.recallAggregate(gctx, w, *current, opts.Force)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func unreadableResult(w domain.WidgetConfig, path string) domain.WidgetResult {
	res := domain.NewWidgetResult(w)
	res.IsEmpty = true
	res.EmptyReason = "cannot read " + path
	return res
}

func needsCurrent(widgets []domain.WidgetConfig) bool {
	for _, w := range widgets {
		if w.Type == domain.WidgetTypeAggregate {
			return true
		}
	}
	return false
}

// ComputeSimilarity ranks the documents of a similarity widget against sourcePath
func (e *Engine) ComputeSimilarity(ctx context.Context, widgetID, sourcePath string) (domain.WidgetResult, error) {
	w, err := e.widget(widgetID)
	if err != nil {
		return domain.WidgetResult{}, err
	}
	if w.Type != domain.WidgetTypeSimilarity {
		return domain.WidgetResult{}, &application.WidgetError{WidgetID: widgetID, Err: application.ErrWrongWidgetType}
	}
	if err := application.ValidateRequired("sourcePath", sourcePath); err != nil {
		return domain.WidgetResult{}, err
	}

	ctx, span := startSpan(ctx, "ComputeSimilarity",
		attribute.String("widget", widgetID), attribute.String("path", sourcePath))
	defer span.End()

	return e.similarityWidget(ctx, w, sourcePath, false), nil
}

func (e *Engine) similarityWidget(ctx context.Context, w domain.WidgetConfig, sourcePath string, force bool) domain.WidgetResult {
	docs := e.documentsFor(ctx, w)
	fp := domain.Fingerprint(docs)

	if !force {
		if res, ok := e.cache.GetSimilarity(ctx, e.vaultID, w.ID, sourcePath, fp); ok {
			return res
		}
	}

	v, _, _ := e.flight.Do(domain.CacheKey(w.ID, sourcePath, fp), func() (any, error) {
		start := time.Now()
		res := e.ranker.Evaluate(w, docs, sourcePath)

		elapsed := time.Since(start)
		res.ComputeTimeMs = elapsed.Milliseconds()
		recordComputeDuration(ctx, string(w.Type), elapsed)

		e.cache.SetSimilarity(ctx, e.vaultID, w.ID, sourcePath, fp, res)
		return res, nil
	})
	return v.(domain.WidgetResult)
}

// recallAggregate evaluates an aggregate widget with current as the document in view.
// Results are stored per source document.
func (e *Engine) recallAggregate(ctx context.Context, w domain.WidgetConfig, current domain.DocumentRecord, force bool) domain.WidgetResult {
	docs := e.documentsFor(ctx, w)
	fp := domain.FingerprintWith(docs, current)

	if !force {
		if res, ok := e.cache.GetSimilarity(ctx, e.vaultID, w.ID, current.Path, fp); ok {
			return res
		}
	}

	v, _, _ := e.flight.Do(domain.CacheKey(w.ID, current.Path, fp), func() (any, error) {
		res := e.computeAggregate(ctx, w, docs, &current)
		e.cache.SetSimilarity(ctx, e.vaultID, w.ID, current.Path, fp, res)
		return res, nil
	})
	return v.(domain.WidgetResult)
}
