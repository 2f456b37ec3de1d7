package filesystem

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// Repository implements ports.DocumentSource over markdown files on disk
type Repository struct {
	logger *slog.Logger
}

// Ensure Repository implements ports.DocumentSource
var _ ports.DocumentSource = (*Repository)(nil)

// NewRepository creates a new filesystem repository. A nil logger discards output.
func NewRepository(logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{logger: logger}
}

// ExpandHome expands a leading ~ to the user's home directory
func ExpandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[1:])
	}
	return p
}

// Match returns the documents under root whose vault-relative path matches pattern.
// Files that cannot be read or parsed are skipped. Results are sorted by path.
func (r *Repository) Match(ctx context.Context, pattern, root string) ([]domain.DocumentRecord, error) {
	root = ExpandHome(root)
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")

	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	docs := make([]domain.DocumentRecord, 0, len(matches))
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isHidden(rel) {
			continue
		}

		doc, err := r.Read(ctx, root, rel)
		if err != nil {
			r.logger.Debug("skipping unreadable document", "path", rel, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Read loads one document and its frontmatter
func (r *Repository) Read(_ context.Context, root, relPath string) (domain.DocumentRecord, error) {
	root = ExpandHome(root)
	relPath = path.Clean(strings.TrimPrefix(filepath.ToSlash(relPath), "./"))
	if !fs.ValidPath(relPath) {
		return domain.DocumentRecord{}, fmt.Errorf("path outside vault: %s", relPath)
	}

	abs := filepath.Join(root, filepath.FromSlash(relPath))
	info, err := os.Stat(abs)
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		return domain.DocumentRecord{}, fmt.Errorf("not a file: %s", relPath)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("failed to read document: %w", err)
	}

	meta, err := ParseFrontmatter(content)
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("failed to parse frontmatter of %s: %w", relPath, err)
	}

	return domain.DocumentRecord{
		Path:         relPath,
		AbsolutePath: abs,
		Metadata:     meta,
		Mtime:        info.ModTime().UnixMilli(),
		Size:         info.Size(),
	}, nil
}

// isHidden reports whether any segment of a relative path starts with a dot (.git, .obsidian, .tessera)
func isHidden(rel string) bool {
	for _, segment := range strings.Split(rel, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
