package engine

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"tessera/internal/domain"
)

// HandleFilesChanged invalidates the cached results of every widget whose
// source pattern matches at least one of the changed vault-relative paths
func (e *Engine) HandleFilesChanged(ctx context.Context, paths []string, opts ChangeOptions) (domain.ChangeReport, error) {
	widgets, err := e.snapshot()
	if err != nil {
		return domain.ChangeReport{}, err
	}

	ctx, span := startSpan(ctx, "HandleFilesChanged", attribute.Int("paths", len(paths)))
	defer span.End()

	normalized := make([]string, 0, len(paths))
	for _, p := range paths {
		normalized = append(normalized, normalizePath(p))
	}

	report := domain.ChangeReport{InvalidatedWidgets: []domain.InvalidatedWidget{}}
	var ids []string
	for _, w := range widgets {
		if !matchesAny(w.Source.Pattern, normalized) {
			continue
		}
		n := e.cache.InvalidateWidget(ctx, e.vaultID, w.ID) + e.cache.InvalidateSimilarity(ctx, e.vaultID, w.ID)
		report.InvalidatedWidgets = append(report.InvalidatedWidgets, domain.InvalidatedWidget{WidgetID: w.ID, Entries: n})
		ids = append(ids, w.ID)
	}

	e.logger.Debug("files changed", "paths", len(paths), "invalidated", len(report.InvalidatedWidgets))

	if opts.Recompute && len(ids) > 0 {
		started, err := e.TriggerBackgroundRecomputation(ctx, ids)
		if err != nil {
			return report, err
		}
		report.Recomputing = started
	}
	return report, nil
}

// TriggerBackgroundRecomputation recomputes the given ground widgets in the
// background, skipping unknown or recall widgets and widgets already being
// recomputed. It returns the IDs it started.
func (e *Engine) TriggerBackgroundRecomputation(ctx context.Context, widgetIDs []string) ([]string, error) {
	widgets, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.WidgetConfig, len(widgets))
	for _, w := range widgets {
		byID[w.ID] = w
	}

	var started []string
	for _, id := range widgetIDs {
		w, ok := byID[id]
		if !ok || !w.IsGround() || w.Type != domain.WidgetTypeAggregate {
			continue
		}
		if !e.pending.TryAcquire(id) {
			continue
		}
		e.runBackground(ctx, id, func(ctx context.Context) error {
			e.groundWidget(ctx, w, true)
			return nil
		})
		started = append(started, id)
	}
	return started, nil
}

// InvalidateWidget drops every cached result of one widget
func (e *Engine) InvalidateWidget(ctx context.Context, widgetID string) (int, error) {
	if _, err := e.widget(widgetID); err != nil {
		return 0, err
	}
	return e.cache.InvalidateWidget(ctx, e.vaultID, widgetID) + e.cache.InvalidateSimilarity(ctx, e.vaultID, widgetID), nil
}

// InvalidateAll drops every cached result of the vault
func (e *Engine) InvalidateAll(ctx context.Context) (int, error) {
	if _, err := e.snapshot(); err != nil {
		return 0, err
	}
	return e.cache.InvalidateVault(ctx, e.vaultID), nil
}

func matchesAny(pattern string, paths []string) bool {
	for _, p := range paths {
		ok, err := doublestar.Match(pattern, p)
		if err == nil && ok {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(p), "./")
}

func newJobID() string {
	return uuid.NewString()
}
