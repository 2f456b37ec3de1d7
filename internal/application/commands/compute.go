package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"tessera/internal/application"
	"tessera/internal/application/engine"
	"tessera/internal/domain"
	"tessera/internal/ports"
)

// GroundCommand computes every ground widget
type GroundCommand struct {
	engine Engine
	Force  bool
}

// NewGroundCommand creates a new GroundCommand
func NewGroundCommand(e Engine, force bool) *GroundCommand {
	return &GroundCommand{engine: e, Force: force}
}

// Execute runs the ground command
func (c *GroundCommand) Execute(ctx context.Context) (domain.GroundResponse, error) {
	return c.engine.ComputeGroundWidgets(ctx, engine.ComputeOptions{Force: c.Force})
}

// RecallCommand computes the recall widgets for one document
type RecallCommand struct {
	engine Engine
	Path   string
	Force  bool
}

// NewRecallCommand creates a new RecallCommand
func NewRecallCommand(e Engine, path string, force bool) *RecallCommand {
	return &RecallCommand{engine: e, Path: path, Force: force}
}

// Validate checks the document path
func (c *RecallCommand) Validate() error {
	return validateDocumentPath("sourcePath", c.Path)
}

// Execute runs the recall command
func (c *RecallCommand) Execute(ctx context.Context) ([]domain.WidgetResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c.engine.ComputeRecallWidgets(ctx, filepath.ToSlash(c.Path), engine.ComputeOptions{Force: c.Force})
}

// SimilarResult is the outcome of a SimilarCommand
type SimilarResult struct {
	Result domain.WidgetResult
	Opened string // path of the opened match, if any
}

// SimilarCommand ranks the documents most similar to a source document
type SimilarCommand struct {
	engine     Engine
	opener     ports.DocumentOpener
	WidgetID   string
	SourcePath string
	OpenTop    bool
}

// NewSimilarCommand creates a new SimilarCommand. opener may be nil when OpenTop is false.
func NewSimilarCommand(e Engine, opener ports.DocumentOpener, widgetID, sourcePath string, openTop bool) *SimilarCommand {
	return &SimilarCommand{
		engine:     e,
		opener:     opener,
		WidgetID:   widgetID,
		SourcePath: sourcePath,
		OpenTop:    openTop,
	}
}

// Validate checks the widget ID and the source path
func (c *SimilarCommand) Validate() error {
	if err := application.ValidateRequired("widgetID", c.WidgetID); err != nil {
		return err
	}
	if err := validateDocumentPath("sourcePath", c.SourcePath); err != nil {
		return err
	}
	if c.OpenTop && c.opener == nil {
		return &application.ValidationError{Field: "open", Message: "no document opener configured"}
	}
	return nil
}

// Execute runs the similar command, opening the best match when asked
func (c *SimilarCommand) Execute(ctx context.Context) (*SimilarResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	res, err := c.engine.ComputeSimilarity(ctx, c.WidgetID, filepath.ToSlash(c.SourcePath))
	if err != nil {
		return nil, err
	}

	out := &SimilarResult{Result: res}
	if c.OpenTop && len(res.Matches) > 0 {
		top := res.Matches[0].Path
		if err := c.opener.Open(top); err != nil {
			return out, fmt.Errorf("failed to open %s: %w", top, err)
		}
		out.Opened = top
	}
	return out, nil
}

// PlanCommand shows the computation plan of an aggregate widget
type PlanCommand struct {
	engine   Engine
	WidgetID string
}

// NewPlanCommand creates a new PlanCommand
func NewPlanCommand(e Engine, widgetID string) *PlanCommand {
	return &PlanCommand{engine: e, WidgetID: widgetID}
}

// Execute runs the plan command
func (c *PlanCommand) Execute(ctx context.Context) (domain.ComputationPlan, error) {
	if err := application.ValidateRequired("widgetID", c.WidgetID); err != nil {
		return domain.ComputationPlan{}, err
	}
	return c.engine.Plan(c.WidgetID)
}

func validateDocumentPath(field, path string) error {
	if err := application.ValidateRequired(field, path); err != nil {
		return err
	}
	if !filepath.IsLocal(filepath.FromSlash(path)) {
		return &application.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("path must be relative to the vault: %s", path),
		}
	}
	return nil
}
