// Package fswatch turns file system events under a vault into batches of
// changed vault-relative paths.
package fswatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tessera/internal/ports"
)

// DefaultDebounce is the quiet period used when none is configured
const DefaultDebounce = 500 * time.Millisecond

// Watcher implements ports.ChangeWatcher with fsnotify
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	hashes map[string]string // relative path -> content hash
}

// Ensure Watcher implements ChangeWatcher
var _ ports.ChangeWatcher = (*Watcher)(nil)

// New creates a watcher for the vault at root
func New(root string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		logger:   logger,
		hashes:   make(map[string]string),
	}
}

// Watch blocks until ctx is done, calling onChange with each batch of
// changed paths. onChange is never called concurrently with itself.
func (w *Watcher) Watch(ctx context.Context, onChange func(paths []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root); err != nil {
		return err
	}
	w.seed()

	var emitMu sync.Mutex
	debouncer := NewBatchDebouncer(w.debounce, func(paths []string) {
		emitMu.Lock()
		defer emitMu.Unlock()

		changed := w.verify(paths)
		if len(changed) == 0 {
			return
		}
		w.logger.Debug("files changed", "count", len(changed))
		onChange(changed)
	})
	defer debouncer.Cancel()

	w.logger.Info("watching vault", "root", w.root, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, ok := w.relative(event.Name)
			if !ok || hidden(rel) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", rel, "error", err)
					}
					// files moved in with the directory produce no events of their own
					for _, file := range w.filesUnder(event.Name) {
						debouncer.Add(file)
					}
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			debouncer.Add(rel)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// addRecursive watches dir and every non-hidden directory below it
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// seed records the content hash of every visible file so that a later
// touch without a content change is not reported
func (w *Watcher) seed() {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, ok := w.relative(path)
		if !ok {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if sum, err := hashFile(path); err == nil {
			w.hashes[rel] = sum
		}
		return nil
	})
}

// filesUnder lists the visible files below dir as vault-relative paths
func (w *Watcher) filesUnder(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok {
			files = append(files, rel)
		}
		return nil
	})
	return files
}

// trackedUnder returns the seen files below the vault-relative directory dir.
// Callers hold w.mu.
func (w *Watcher) trackedUnder(dir string) []string {
	prefix := dir + "/"
	var files []string
	for rel := range w.hashes {
		if strings.HasPrefix(rel, prefix) {
			files = append(files, rel)
		}
	}
	return files
}

func (w *Watcher) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func hidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// verify dedupes paths and drops those whose content hash did not change.
// Removed files count as changed when they were seen before.
func (w *Watcher) verify(paths []string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(paths))
	var changed []string
	for _, rel := range paths {
		if seen[rel] {
			continue
		}
		seen[rel] = true

		sum, err := hashFile(filepath.Join(w.root, filepath.FromSlash(rel)))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if _, tracked := w.hashes[rel]; tracked {
				delete(w.hashes, rel)
				changed = append(changed, rel)
				continue
			}
			// a removed directory reports the files it held
			under := w.trackedUnder(rel)
			if len(under) == 0 {
				changed = append(changed, rel)
				continue
			}
			for _, file := range under {
				delete(w.hashes, file)
				if !seen[file] {
					seen[file] = true
					changed = append(changed, file)
				}
			}
		case err != nil:
			w.logger.Debug("cannot hash changed file", "path", rel, "error", err)
			changed = append(changed, rel)
		case w.hashes[rel] == sum:
			w.logger.Debug("content unchanged, ignoring", "path", rel)
		default:
			w.hashes[rel] = sum
			changed = append(changed, rel)
		}
	}
	sort.Strings(changed)
	return changed
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("is a directory")
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
