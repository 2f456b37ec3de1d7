package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/application"
	"tessera/internal/application/engine"
	"tessera/internal/domain"
)

type stubEngine struct {
	force     bool
	recompute bool
	paths     []string
	err       error
}

func (s *stubEngine) ComputeGroundWidgets(_ context.Context, opts engine.ComputeOptions) (domain.GroundResponse, error) {
	s.force = opts.Force
	res := domain.NewWidgetResult(domain.WidgetConfig{ID: "books", Name: "Books", Type: domain.WidgetTypeAggregate})
	res.Values = domain.NewFieldValues()
	res.Values.Set("count", 2.0)
	return domain.GroundResponse{Widgets: []domain.WidgetResult{res}}, s.err
}

func (s *stubEngine) ComputeRecallWidgets(_ context.Context, path string, _ engine.ComputeOptions) ([]domain.WidgetResult, error) {
	return []domain.WidgetResult{{WidgetID: "recall:" + path}}, s.err
}

func (s *stubEngine) ComputeSimilarity(_ context.Context, widgetID, sourcePath string) (domain.WidgetResult, error) {
	return domain.WidgetResult{WidgetID: widgetID, Matches: []domain.SimilarityMatch{{Path: "b.md", Score: 1}}}, s.err
}

func (s *stubEngine) HandleFilesChanged(_ context.Context, paths []string, opts engine.ChangeOptions) (domain.ChangeReport, error) {
	s.paths = paths
	s.recompute = opts.Recompute
	return domain.ChangeReport{InvalidatedWidgets: []domain.InvalidatedWidget{{WidgetID: "books", Entries: 1}}}, s.err
}

func (s *stubEngine) InvalidateWidget(context.Context, string) (int, error) { return 1, s.err }
func (s *stubEngine) InvalidateAll(context.Context) (int, error)           { return 4, s.err }

func (s *stubEngine) Plan(widgetID string) (domain.ComputationPlan, error) {
	if widgetID != "books" {
		return domain.ComputationPlan{}, &application.WidgetError{WidgetID: widgetID, Err: application.ErrWidgetNotFound}
	}
	return domain.ComputationPlan{Phases: []domain.Phase{{Scope: domain.ScopeCollection, Fields: []string{"count"}}}}, nil
}

func (s *stubEngine) CacheStats(context.Context) (domain.CacheStats, error) {
	return domain.CacheStats{WidgetEntries: 3}, s.err
}

func (s *stubEngine) Widgets() ([]domain.WidgetConfig, error) {
	return []domain.WidgetConfig{{ID: "books", Name: "Books", Type: domain.WidgetTypeAggregate, Location: domain.LocationGround, Source: domain.SourceConfig{Pattern: "books/*.md"}}}, s.err
}

func (s *stubEngine) ConfigErrors() []error { return nil }

type staticIssues []domain.Issue

func (s staticIssues) Issues() []domain.Issue { return s }

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestGroundHandler(t *testing.T) {
	e := &stubEngine{}
	out, isErr := call(t, groundHandler(e), map[string]any{"force": true})

	assert.False(t, isErr)
	assert.True(t, e.force)

	var resp struct {
		Widgets []struct {
			WidgetID string         `json:"widgetId"`
			Values   map[string]any `json:"values"`
		} `json:"widgets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Widgets, 1)
	assert.Equal(t, "books", resp.Widgets[0].WidgetID)
	assert.Equal(t, 2.0, resp.Widgets[0].Values["count"])
}

func TestGroundHandler_EngineError(t *testing.T) {
	out, isErr := call(t, groundHandler(&stubEngine{err: application.ErrNotInitialized}), nil)
	assert.True(t, isErr)
	assert.Contains(t, out, "engine not initialized")
}

func TestRecallHandler(t *testing.T) {
	out, isErr := call(t, recallHandler(&stubEngine{}), map[string]any{"path": "books/a.md"})
	assert.False(t, isErr)
	assert.Contains(t, out, "recall:books/a.md")

	out, isErr = call(t, recallHandler(&stubEngine{}), map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, out, "source path is required")
}

func TestSimilarHandler(t *testing.T) {
	out, isErr := call(t, similarHandler(&stubEngine{}), map[string]any{"widget_id": "related", "path": "a.md"})
	assert.False(t, isErr)
	assert.Contains(t, out, `"path": "b.md"`)
}

func TestPlanHandler(t *testing.T) {
	out, isErr := call(t, planHandler(&stubEngine{}), map[string]any{"widget_id": "books"})
	assert.False(t, isErr)
	assert.Contains(t, out, `"scope": "collection"`)

	out, isErr = call(t, planHandler(&stubEngine{}), map[string]any{"widget_id": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, out, "widget not found")
}

func TestInvalidateHandler(t *testing.T) {
	out, isErr := call(t, invalidateHandler(&stubEngine{}), map[string]any{"all": true})
	assert.False(t, isErr)
	assert.Equal(t, "Invalidated 4 cached results", out)

	_, isErr = call(t, invalidateHandler(&stubEngine{}), map[string]any{})
	assert.True(t, isErr)
}

func TestFilesChangedHandler(t *testing.T) {
	e := &stubEngine{}
	out, isErr := call(t, filesChangedHandler(e), map[string]any{
		"paths":     []any{"books/a.md", "books/b.md"},
		"recompute": true,
	})

	assert.False(t, isErr)
	assert.Equal(t, []string{"books/a.md", "books/b.md"}, e.paths)
	assert.True(t, e.recompute)
	assert.Contains(t, out, `"widgetId": "books"`)
}

func TestCacheStatsAndListWidgets(t *testing.T) {
	out, _ := call(t, cacheStatsHandler(&stubEngine{}), nil)
	assert.Contains(t, out, `"widgetEntries": 3`)

	out, _ = call(t, listWidgetsHandler(&stubEngine{}), nil)
	assert.Contains(t, out, `"pattern": "books/*.md"`)
	assert.Contains(t, out, `"errors": []`)
}

func TestHealthHandler(t *testing.T) {
	out, _ := call(t, healthHandler(staticIssues(nil)), nil)
	assert.Equal(t, "No issues.", out)

	out, _ = call(t, healthHandler(staticIssues{{ID: "widget-cycle:w:a", Severity: domain.SeverityWarning, Message: "cycle"}}), nil)
	assert.Contains(t, out, "widget-cycle:w:a")
}

func TestRegisterEngineTools(t *testing.T) {
	s := server.NewMCPServer("test", "0.0.0", server.WithToolCapabilities(true))
	RegisterEngineTools(s, &stubEngine{}, staticIssues(nil))
}
