package ports

import (
	"context"

	"tessera/internal/domain"
)

// DocumentSource discovers markdown documents and reads their frontmatter
type DocumentSource interface {
	// Match returns every document under root whose vault-relative path matches pattern.
	// Unreadable files are skipped. A malformed pattern is an error.
	Match(ctx context.Context, pattern, root string) ([]domain.DocumentRecord, error)

	// Read loads the single document at the vault-relative path relPath
	Read(ctx context.Context, root, relPath string) (domain.DocumentRecord, error)
}

// DocumentOpener opens a vault document in an external application
type DocumentOpener interface {
	// Open opens the document at the given vault-relative path
	Open(relPath string) error
}
