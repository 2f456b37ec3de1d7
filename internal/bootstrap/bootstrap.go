// Package bootstrap wires the adapters and the engine from a Config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"tessera/internal/adapters/badger"
	"tessera/internal/adapters/compare"
	"tessera/internal/adapters/exprlang"
	"tessera/internal/adapters/filesystem"
	"tessera/internal/adapters/fswatch"
	"tessera/internal/adapters/health"
	"tessera/internal/adapters/memory"
	"tessera/internal/adapters/sqlite"
	"tessera/internal/adapters/stats"
	"tessera/internal/adapters/widgetconfig"
	"tessera/internal/application/engine"
	"tessera/internal/application/evaluator"
	"tessera/internal/application/resultcache"
	"tessera/internal/application/similarity"
	"tessera/internal/config"
	"tessera/internal/logging"
	"tessera/internal/ports"
)

// Service is an initialised engine together with the adapters it owns
type Service struct {
	Config *config.Config
	Engine *engine.Engine
	Health *health.Collector
	Logger *slog.Logger

	cache *resultcache.Cache
}

// Open builds and initialises the engine for cfg
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	collector := health.NewCollector(health.NewLogSink(logger))
	cache := resultcache.New(OpenBackend(cfg, logger), logger)

	e := engine.New(engine.Options{
		VaultPath: cfg.Vault,
		VaultID:   cfg.VaultID,
		Loader:    widgetconfig.New(cfg.Widgets, cfg.Similarity.DefaultLimit, logger),
		Documents: filesystem.NewRepository(logger),
		Evaluator: evaluator.New(exprlang.New(), stats.Aggregator{}, collector, logger),
		Ranker:    similarity.New(compare.Comparator{}, cfg.Similarity.DefaultLimit),
		Cache:     cache,
		Health:    collector,
		Logger:    logger,
	})
	if err := e.Init(ctx); err != nil {
		cache.Close()
		return nil, fmt.Errorf("initialise engine: %w", err)
	}

	return &Service{
		Config: cfg,
		Engine: e,
		Health: collector,
		Logger: logger,
		cache:  cache,
	}, nil
}

// OpenBackend opens the configured cache backend. A backend that cannot be
// opened is replaced by the no-op fallback so computation still works.
func OpenBackend(cfg *config.Config, logger *slog.Logger) ports.CacheBackend {
	var (
		backend ports.CacheBackend
		err     error
	)

	switch cfg.Cache.Backend {
	case config.BackendNone:
		return memory.Noop{}
	case config.BackendMemory:
		return memory.New()
	case config.BackendBadger:
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = filepath.Dir(sqlite.DatabasePath("", cfg.VaultID))
		}
		bcfg := badger.DefaultConfig(filepath.Join(dir, cfg.VaultID+".badger"))
		bcfg.Logger = logger
		backend, err = badger.Open(bcfg)
	default:
		backend, err = sqlite.Open(sqlite.DatabasePath(cfg.Cache.Dir, cfg.VaultID))
	}

	if err != nil {
		logger.Warn("cache unavailable, results will not be persisted",
			"backend", cfg.Cache.Backend, "error", err)
		return memory.Noop{}
	}
	return backend
}

// Watcher returns a file watcher for the configured vault
func (s *Service) Watcher() *fswatch.Watcher {
	return fswatch.New(s.Config.Vault, time.Duration(s.Config.Watch.DebounceMs)*time.Millisecond, s.Logger)
}

// Close waits for background work and closes the cache
func (s *Service) Close() error {
	s.Engine.Wait()
	return s.cache.Close()
}
