// Package engine computes, caches and invalidates the widgets of one vault.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tessera/internal/application"
	"tessera/internal/application/evaluator"
	"tessera/internal/application/resultcache"
	"tessera/internal/application/similarity"
	"tessera/internal/domain"
	"tessera/internal/ports"
)

// Options wires an Engine to its collaborators
type Options struct {
	VaultPath string
	VaultID   string

	Loader    ports.WidgetLoader
	Documents ports.DocumentSource
	Evaluator *evaluator.Evaluator
	Ranker    *similarity.Ranker
	Cache     *resultcache.Cache
	Health    ports.HealthSink
	Logger    *slog.Logger
}

// ComputeOptions control a widget computation
type ComputeOptions struct {
	// Force skips the cache lookup; the fresh result is still stored
	Force bool
}

// ChangeOptions control file change handling
type ChangeOptions struct {
	// Recompute starts background recomputation of the invalidated ground widgets
	Recompute bool
}

// Engine is the widget computation service for one vault
type Engine struct {
	vaultPath string
	vaultID   string

	loader    ports.WidgetLoader
	documents ports.DocumentSource
	evaluator *evaluator.Evaluator
	ranker    *similarity.Ranker
	cache     *resultcache.Cache
	health    ports.HealthSink
	logger    *slog.Logger

	mu           sync.RWMutex
	initialized  bool
	widgets      []domain.WidgetConfig
	configErrors []error

	pending    *PendingSet
	flight     singleflight.Group
	background sync.WaitGroup

	// recomputeGround is the background stale-while-revalidate job
	recomputeGround func(ctx context.Context) error
	now             func() time.Time
}

// New creates an Engine. Init must be called before any computation.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	health := opts.Health
	if health == nil {
		health = discardSink{}
	}

	e := &Engine{
		vaultPath: opts.VaultPath,
		vaultID:   opts.VaultID,
		loader:    opts.Loader,
		documents: opts.Documents,
		evaluator: opts.Evaluator,
		ranker:    opts.Ranker,
		cache:     opts.Cache,
		health:    health,
		logger:    logger.With("vault", opts.VaultID),
		pending:   NewPendingSet(),
		now:       time.Now,
	}
	e.recomputeGround = func(ctx context.Context) error {
		_, err := e.ComputeGroundWidgets(ctx, ComputeOptions{Force: true})
		return err
	}
	return e
}

type discardSink struct{}

func (discardSink) Report(domain.Issue) {}

// Init loads the widget definitions. It may be called again to reload them.
func (e *Engine) Init(ctx context.Context) error {
	if e.loader == nil || e.documents == nil || e.evaluator == nil || e.ranker == nil || e.cache == nil {
		return fmt.Errorf("%w: missing collaborator", application.ErrInvalidConfig)
	}

	widgets, errs := e.loader.Load(ctx)
	for i, err := range errs {
		e.health.Report(domain.Issue{
			ID:       fmt.Sprintf("widget-config:%d", i),
			Severity: domain.SeverityError,
			Message:  err.Error(),
		})
	}

	e.mu.Lock()
	e.widgets = widgets
	e.configErrors = errs
	e.initialized = true
	e.mu.Unlock()

	e.logger.Debug("widgets loaded", "count", len(widgets), "errors", len(errs))
	return nil
}

// Widgets returns the loaded widget definitions in configuration order
func (e *Engine) Widgets() ([]domain.WidgetConfig, error) {
	return e.snapshot()
}

// ConfigErrors returns the problems found while loading widget definitions
func (e *Engine) ConfigErrors() []error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.configErrors
}

// Plan returns the computation plan of an aggregate widget
func (e *Engine) Plan(widgetID string) (domain.ComputationPlan, error) {
	w, err := e.widget(widgetID)
	if err != nil {
		return domain.ComputationPlan{}, err
	}
	if w.Type != domain.WidgetTypeAggregate {
		return domain.ComputationPlan{}, &application.WidgetError{WidgetID: widgetID, Err: application.ErrWrongWidgetType}
	}
	return domain.BuildPlan(w.Fields), nil
}

// CacheStats summarises the result cache
func (e *Engine) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	if _, err := e.snapshot(); err != nil {
		return domain.CacheStats{}, err
	}
	return e.cache.Stats(ctx), nil
}

// Pending returns the keys of background recomputations in flight
func (e *Engine) Pending() []string {
	return e.pending.Keys()
}

// Wait blocks until every background recomputation has finished
func (e *Engine) Wait() {
	e.background.Wait()
}

func (e *Engine) snapshot() ([]domain.WidgetConfig, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return nil, application.ErrNotInitialized
	}
	return e.widgets, nil
}

func (e *Engine) widget(id string) (domain.WidgetConfig, error) {
	widgets, err := e.snapshot()
	if err != nil {
		return domain.WidgetConfig{}, err
	}
	for _, w := range widgets {
		if w.ID == id {
			return w, nil
		}
	}
	return domain.WidgetConfig{}, &application.WidgetError{WidgetID: id, Err: application.ErrWidgetNotFound}
}

// documentsFor collects the documents matching a widget's source.
// Discovery failures yield an empty collection.
func (e *Engine) documentsFor(ctx context.Context, w domain.WidgetConfig) []domain.DocumentRecord {
	docs, err := e.documents.Match(ctx, w.Source.Pattern, e.vaultPath)
	if err != nil {
		e.logger.Warn("document discovery failed, using zero matches",
			"widget", w.ID, "pattern", w.Source.Pattern, "error", err)
		return nil
	}
	return docs
}

// runBackground runs fn detached from the caller. key is released when fn returns.
func (e *Engine) runBackground(ctx context.Context, key string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	e.background.Add(1)
	go func() {
		defer e.background.Done()
		defer e.pending.Release(key)

		jobID := newJobID()
		logger := e.logger.With("job", jobID, "key", key)
		start := e.now()
		logger.Info("background recompute started")

		err := fn(ctx)
		recordBackgroundRecompute(ctx, key, err != nil)
		if err != nil {
			logger.Error("background recompute failed", "error", err)
			return
		}
		logger.Info("background recompute finished", "duration", e.now().Sub(start))
	}()
}
