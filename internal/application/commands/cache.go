package commands

import (
	"context"
	"fmt"
	"strings"

	"tessera/internal/application"
	"tessera/internal/application/engine"
	"tessera/internal/domain"
)

// InvalidateResult contains the result of an invalidation
type InvalidateResult struct {
	Entries int
	Message string
}

// InvalidateCommand drops cached results of one widget or of the whole vault
type InvalidateCommand struct {
	engine   Engine
	WidgetID string
	All      bool
}

// NewInvalidateCommand creates a new InvalidateCommand
func NewInvalidateCommand(e Engine, widgetID string, all bool) *InvalidateCommand {
	return &InvalidateCommand{engine: e, WidgetID: widgetID, All: all}
}

// Validate checks that exactly one target was given
func (c *InvalidateCommand) Validate() error {
	hasID := strings.TrimSpace(c.WidgetID) != ""
	if hasID == c.All {
		return &application.ValidationError{
			Field:   "widgetID",
			Message: "give either a widget ID or --all",
		}
	}
	return nil
}

// Execute runs the invalidate command
func (c *InvalidateCommand) Execute(ctx context.Context) (*InvalidateResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.All {
		n, err := c.engine.InvalidateAll(ctx)
		if err != nil {
			return nil, err
		}
		return &InvalidateResult{Entries: n, Message: fmt.Sprintf("Invalidated %d cached results", n)}, nil
	}

	n, err := c.engine.InvalidateWidget(ctx, c.WidgetID)
	if err != nil {
		return nil, err
	}
	return &InvalidateResult{Entries: n, Message: fmt.Sprintf("Invalidated %d cached results of %s", n, c.WidgetID)}, nil
}

// FilesChangedCommand routes a batch of changed vault paths to the engine
type FilesChangedCommand struct {
	engine    Engine
	Paths     []string
	Recompute bool
}

// NewFilesChangedCommand creates a new FilesChangedCommand
func NewFilesChangedCommand(e Engine, paths []string, recompute bool) *FilesChangedCommand {
	return &FilesChangedCommand{engine: e, Paths: paths, Recompute: recompute}
}

// Validate checks the changed paths
func (c *FilesChangedCommand) Validate() error {
	if len(c.Paths) == 0 {
		return &application.ValidationError{Field: "paths", Message: "at least one path is required"}
	}
	for _, p := range c.Paths {
		if err := validateDocumentPath("paths", p); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the files changed command
func (c *FilesChangedCommand) Execute(ctx context.Context) (domain.ChangeReport, error) {
	if err := c.Validate(); err != nil {
		return domain.ChangeReport{}, err
	}
	return c.engine.HandleFilesChanged(ctx, c.Paths, engine.ChangeOptions{Recompute: c.Recompute})
}

// StatsCommand reports cache statistics
type StatsCommand struct {
	engine Engine
}

// NewStatsCommand creates a new StatsCommand
func NewStatsCommand(e Engine) *StatsCommand {
	return &StatsCommand{engine: e}
}

// Execute runs the stats command
func (c *StatsCommand) Execute(ctx context.Context) (domain.CacheStats, error) {
	return c.engine.CacheStats(ctx)
}

// WidgetList is the configured widgets plus the problems found loading them
type WidgetList struct {
	Widgets []domain.WidgetConfig
	Errors  []error
}

// ListWidgetsCommand lists the configured widgets
type ListWidgetsCommand struct {
	engine Engine
}

// NewListWidgetsCommand creates a new ListWidgetsCommand
func NewListWidgetsCommand(e Engine) *ListWidgetsCommand {
	return &ListWidgetsCommand{engine: e}
}

// Execute runs the list widgets command
func (c *ListWidgetsCommand) Execute(ctx context.Context) (*WidgetList, error) {
	widgets, err := c.engine.Widgets()
	if err != nil {
		return nil, err
	}
	return &WidgetList{Widgets: widgets, Errors: c.engine.ConfigErrors()}, nil
}
