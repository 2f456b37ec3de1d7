// Package commands holds the use cases shared by the CLI and the MCP server.
// Each command validates its input before touching the engine.
package commands

import (
	"context"

	"tessera/internal/application/engine"
	"tessera/internal/domain"
)

// Engine is the part of engine.Engine the commands use
type Engine interface {
	ComputeGroundWidgets(ctx context.Context, opts engine.ComputeOptions) (domain.GroundResponse, error)
	ComputeRecallWidgets(ctx context.Context, path string, opts engine.ComputeOptions) ([]domain.WidgetResult, error)
	ComputeSimilarity(ctx context.Context, widgetID, sourcePath string) (domain.WidgetResult, error)
	HandleFilesChanged(ctx context.Context, paths []string, opts engine.ChangeOptions) (domain.ChangeReport, error)
	InvalidateWidget(ctx context.Context, widgetID string) (int, error)
	InvalidateAll(ctx context.Context) (int, error)
	Plan(widgetID string) (domain.ComputationPlan, error)
	CacheStats(ctx context.Context) (domain.CacheStats, error)
	Widgets() ([]domain.WidgetConfig, error)
	ConfigErrors() []error
}

// Ensure engine.Engine satisfies Engine
var _ Engine = (*engine.Engine)(nil)
