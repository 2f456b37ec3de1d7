package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// bucketSeparator joins bucket and key into one badger key
const bucketSeparator = "\x1e"

// Cache implements ports.CacheBackend on BadgerDB
type Cache struct {
	db *badger.DB
	gc *gcRunner
}

// Ensure Cache implements CacheBackend
var _ ports.CacheBackend = (*Cache)(nil)

type storedEntry struct {
	Fingerprint string `json:"fingerprint"`
	Payload     []byte `json:"payload"`
	StoredAt    int64  `json:"storedAt"`
}

// Open opens a Badger cache
func Open(cfg Config) (*Cache, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	c := &Cache{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.gc = startGC(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
	}
	return c, nil
}

// Close stops GC and closes the database
func (c *Cache) Close() error {
	if c.gc != nil {
		c.gc.stop()
	}
	return c.db.Close()
}

func bucketPrefix(bucket domain.CacheBucket) []byte {
	return []byte(string(bucket) + bucketSeparator)
}

func fullKey(bucket domain.CacheBucket, key string) []byte {
	return append(bucketPrefix(bucket), key...)
}

func (c *Cache) Get(ctx context.Context, bucket domain.CacheBucket, key string) (domain.CacheEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CacheEntry{}, false, err
	}

	var stored storedEntry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fullKey(bucket, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("badger get: %w", err)
	}

	return domain.CacheEntry{
		Fingerprint: stored.Fingerprint,
		Payload:     stored.Payload,
		StoredAt:    time.UnixMilli(stored.StoredAt),
	}, true, nil
}

func (c *Cache) Put(ctx context.Context, bucket domain.CacheBucket, key string, entry domain.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	val, err := json.Marshal(storedEntry{
		Fingerprint: entry.Fingerprint,
		Payload:     entry.Payload,
		StoredAt:    entry.StoredAt.UnixMilli(),
	})
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fullKey(bucket, key), val)
	})
}

func (c *Cache) DeletePrefix(ctx context.Context, bucket domain.CacheBucket, prefix string) (int, error) {
	keys, err := c.keys(ctx, fullKey(bucket, prefix))
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("badger delete: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("badger flush: %w", err)
	}
	return len(keys), nil
}

func (c *Cache) Count(ctx context.Context, bucket domain.CacheBucket) (int, error) {
	keys, err := c.keys(ctx, bucketPrefix(bucket))
	return len(keys), err
}

// keys lists every key with prefix without reading values
func (c *Cache) keys(ctx context.Context, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}
