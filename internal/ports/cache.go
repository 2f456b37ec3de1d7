package ports

import (
	"context"

	"tessera/internal/domain"
)

// CacheBackend is a key/value store for serialized widget results
type CacheBackend interface {
	Get(ctx context.Context, bucket domain.CacheBucket, key string) (domain.CacheEntry, bool, error)
	Put(ctx context.Context, bucket domain.CacheBucket, key string, entry domain.CacheEntry) error

	// DeletePrefix removes every key in bucket starting with prefix and returns how many were removed
	DeletePrefix(ctx context.Context, bucket domain.CacheBucket, prefix string) (int, error)
	Count(ctx context.Context, bucket domain.CacheBucket) (int, error)
	Close() error
}
