// Package memory provides in-process cache backends.
package memory

import (
	"context"
	"strings"
	"sync"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// Backend keeps cache entries in maps. Contents are lost on exit.
type Backend struct {
	mu      sync.RWMutex
	buckets map[domain.CacheBucket]map[string]domain.CacheEntry
}

// Ensure Backend implements ports.CacheBackend
var _ ports.CacheBackend = (*Backend)(nil)

// New creates an empty in-memory backend
func New() *Backend {
	return &Backend{buckets: make(map[domain.CacheBucket]map[string]domain.CacheEntry)}
}

func (b *Backend) Get(_ context.Context, bucket domain.CacheBucket, key string) (domain.CacheEntry, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.buckets[bucket][key]
	if !ok {
		return domain.CacheEntry{}, false, nil
	}
	entry.Payload = append([]byte(nil), entry.Payload...)
	return entry, true, nil
}

func (b *Backend) Put(_ context.Context, bucket domain.CacheBucket, key string, entry domain.CacheEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buckets[bucket] == nil {
		b.buckets[bucket] = make(map[string]domain.CacheEntry)
	}
	entry.Payload = append([]byte(nil), entry.Payload...)
	b.buckets[bucket][key] = entry
	return nil
}

func (b *Backend) DeletePrefix(_ context.Context, bucket domain.CacheBucket, prefix string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for key := range b.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			delete(b.buckets[bucket], key)
			n++
		}
	}
	return n, nil
}

func (b *Backend) Count(_ context.Context, bucket domain.CacheBucket) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buckets[bucket]), nil
}

func (b *Backend) Close() error {
	return nil
}

// Noop stores nothing: every read is a miss.
// It stands in for a persistent backend that could not be opened.
type Noop struct{}

var _ ports.CacheBackend = Noop{}

func (Noop) Get(context.Context, domain.CacheBucket, string) (domain.CacheEntry, bool, error) {
	return domain.CacheEntry{}, false, nil
}

func (Noop) Put(context.Context, domain.CacheBucket, string, domain.CacheEntry) error {
	return nil
}

func (Noop) DeletePrefix(context.Context, domain.CacheBucket, string) (int, error) {
	return 0, nil
}

func (Noop) Count(context.Context, domain.CacheBucket) (int, error) {
	return 0, nil
}

func (Noop) Close() error {
	return nil
}

// IsFallback reports that this backend is a stand-in
func (Noop) IsFallback() bool {
	return true
}
