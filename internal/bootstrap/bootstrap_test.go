package bootstrap

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/adapters/memory"
	"tessera/internal/application/engine"
	"tessera/internal/config"
	"tessera/internal/logging"
)

const widgetsYAML = `
widgets:
  - id: books
    name: Books
    source:
      pattern: "books/*.md"
    fields:
      total: { count: true }
      avg_score: { avg: result.z }
      z: { expr: "this.rating * 2", visible: false }
  - id: related
    type: similarity
    location: recall
    source:
      pattern: "books/*.md"
    dimensions:
      - { field: tags, method: jaccard }
`

func writeVault(t *testing.T) string {
	t.Helper()
	vault := t.TempDir()
	files := map[string]string{
		".tessera/widgets.yaml": widgetsYAML,
		"books/a.md":            "---\nrating: 3\ntags: [scifi, classic]\n---\n# A\n",
		"books/b.md":            "---\nrating: 5\ntags: [scifi]\n---\n# B\n",
		"books/c.md":            "---\nrating: 4\ntags: [romance]\n---\n# C\n",
	}
	for rel, content := range files {
		path := filepath.Join(vault, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return vault
}

func testConfig(vault, backend string) *config.Config {
	return &config.Config{
		Vault:      vault,
		VaultID:    "test",
		Widgets:    filepath.Join(vault, ".tessera", "widgets.yaml"),
		Cache:      config.CacheConfig{Backend: backend, Dir: filepath.Join(vault, ".cache")},
		Log:        config.LogConfig{Level: "warn"},
		Watch:      config.WatchConfig{DebounceMs: 50},
		Similarity: config.SimilarityConfig{DefaultLimit: 10},
	}
}

func TestOpen_EndToEnd(t *testing.T) {
	ctx := context.Background()
	vault := writeVault(t)

	svc, err := Open(ctx, testConfig(vault, config.BackendMemory), nil)
	require.NoError(t, err)
	defer svc.Close()

	resp, err := svc.Engine.ComputeGroundWidgets(ctx, engine.ComputeOptions{})
	require.NoError(t, err)
	require.Len(t, resp.Widgets, 1)

	values := resp.Widgets[0].Values
	total, _ := values.Get("total")
	avg, _ := values.Get("avg_score")
	assert.Equal(t, 3.0, total)
	assert.Equal(t, 8.0, avg)
	assert.Equal(t, []string{"total", "avg_score"}, values.Keys())

	sim, err := svc.Engine.ComputeSimilarity(ctx, "related", "books/a.md")
	require.NoError(t, err)
	require.NotEmpty(t, sim.Matches)
	assert.Equal(t, "books/b.md", sim.Matches[0].Path)

	// z needs a document; without one at ground level it is reported and nulled
	issues := svc.Health.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "widget-expr:books:z", issues[0].ID)
}

func TestOpen_DivisionByZeroIsCached(t *testing.T) {
	ctx := context.Background()
	vault := writeVault(t)
	require.NoError(t, os.WriteFile(filepath.Join(vault, ".tessera", "widgets.yaml"), []byte(`
widgets:
  - id: ratios
    source:
      pattern: "books/*.md"
    fields:
      total: { count: true }
      zero: { sum: this.missing }
      ratio: { expr: "result.total / result.zero" }
`), 0644))

	svc, err := Open(ctx, testConfig(vault, config.BackendMemory), nil)
	require.NoError(t, err)
	defer svc.Close()

	first, err := svc.Engine.ComputeGroundWidgets(ctx, engine.ComputeOptions{})
	require.NoError(t, err)
	assert.True(t, first.IsStale)
	svc.Engine.Wait()

	second, err := svc.Engine.ComputeGroundWidgets(ctx, engine.ComputeOptions{})
	require.NoError(t, err)
	assert.False(t, second.IsStale, "the first result must have been cached")
	assert.Empty(t, svc.Engine.Pending())

	ratio, ok := second.Widgets[0].Values.Get("ratio")
	assert.True(t, ok)
	assert.Nil(t, ratio)

	_, err = json.Marshal(second)
	assert.NoError(t, err)

	stats, err := svc.Engine.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WidgetEntries)
}

func TestOpen_RecallWithBrokenFrontmatter(t *testing.T) {
	ctx := context.Background()
	vault := writeVault(t)
	require.NoError(t, os.WriteFile(filepath.Join(vault, ".tessera", "widgets.yaml"), []byte(widgetsYAML+`
  - id: here
    location: recall
    source:
      pattern: "books/*.md"
    fields:
      mine: { expr: "this.rating" }
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(vault, "books", "bad.md"), []byte("---\nrating: [3\n---\n"), 0644))

	svc, err := Open(ctx, testConfig(vault, config.BackendMemory), nil)
	require.NoError(t, err)
	defer svc.Close()

	results, err := svc.Engine.ComputeRecallWidgets(ctx, "books/bad.md", engine.ComputeOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "related", results[0].WidgetID)
	assert.True(t, results[0].IsEmpty)
	assert.Equal(t, "here", results[1].WidgetID)
	assert.True(t, results[1].IsEmpty)
}

func TestOpen_PersistentBackends(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			vault := writeVault(t)

			svc, err := Open(ctx, testConfig(vault, backend), nil)
			require.NoError(t, err)

			_, err = svc.Engine.ComputeGroundWidgets(ctx, engine.ComputeOptions{})
			require.NoError(t, err)

			stats, err := svc.Engine.CacheStats(ctx)
			require.NoError(t, err)
			assert.False(t, stats.UsingFallback)
			assert.Equal(t, 1, stats.WidgetEntries)
			require.NoError(t, svc.Close())
		})
	}
}

func TestOpenBackend_FallsBackToNoop(t *testing.T) {
	vault := t.TempDir()
	blocker := filepath.Join(vault, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := testConfig(vault, config.BackendSQLite)
	cfg.Cache.Dir = filepath.Join(blocker, "cache")

	backend := OpenBackend(cfg, logging.NewDiscardLogger())
	_, isNoop := backend.(memory.Noop)
	assert.True(t, isNoop)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig(t.TempDir(), "redis")
	_, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestOpen_ConfigErrorsAreReported(t *testing.T) {
	ctx := context.Background()
	vault := writeVault(t)
	require.NoError(t, os.WriteFile(filepath.Join(vault, ".tessera", "widgets.yaml"), []byte(`
widgets:
  - id: broken
    type: chart
    source: { pattern: "*.md" }
`), 0644))

	svc, err := Open(ctx, testConfig(vault, config.BackendNone), nil)
	require.NoError(t, err)
	defer svc.Close()

	assert.Len(t, svc.Engine.ConfigErrors(), 1)
	require.Len(t, svc.Health.Issues(), 1)
	assert.Equal(t, "widget-config:0", svc.Health.Issues()[0].ID)
}

func TestService_Watcher(t *testing.T) {
	vault := writeVault(t)
	svc, err := Open(context.Background(), testConfig(vault, config.BackendNone), nil)
	require.NoError(t, err)
	defer svc.Close()

	assert.NotNil(t, svc.Watcher())
}
