package application

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNotInitialized   = errors.New("engine not initialized")
	ErrWidgetNotFound   = errors.New("widget not found")
	ErrWrongWidgetType  = errors.New("wrong widget type")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidConfig    = errors.New("invalid config")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// EvaluationError wraps a failed expression evaluation
type EvaluationError struct {
	Expr string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// WidgetError attaches a widget ID to a failure
type WidgetError struct {
	WidgetID string
	Err      error
}

func (e *WidgetError) Error() string {
	return fmt.Sprintf("widget %s: %v", e.WidgetID, e.Err)
}

func (e *WidgetError) Unwrap() error {
	return e.Err
}
