package ports

import (
	"context"

	"tessera/internal/domain"
)

// WidgetLoader loads widget definitions.
// Invalid definitions are reported in the error list and left out of the widget list.
type WidgetLoader interface {
	Load(ctx context.Context) ([]domain.WidgetConfig, []error)
}

// ChangeWatcher emits batches of vault-relative paths whose content changed
type ChangeWatcher interface {
	Watch(ctx context.Context, onChange func(paths []string)) error
}
