package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tessera/internal/domain"
	"tessera/internal/ports"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Cache implements ports.CacheBackend using SQLite
type Cache struct {
	db     *sql.DB
	dbPath string
}

// Ensure Cache implements CacheBackend
var _ ports.CacheBackend = (*Cache)(nil)

// Open opens (creating if needed) the cache database at dbPath
func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	// modernc applies _pragma parameters to every new connection
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// the batch pragmas below are per connection; one connection keeps them in effect
	db.SetMaxOpenConns(1)

	// Performance pragmas + schema in single batch (reduces round-trips)
	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -16000;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS cache_entries (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			payload BLOB NOT NULL,
			stored_at INTEGER NOT NULL,
			PRIMARY KEY (bucket, key)
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	c := &Cache{db: db, dbPath: dbPath}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}
	return c, nil
}

// DatabasePath returns the cache database location for a vault.
// An empty dir selects the XDG data directory.
func DatabasePath(dir, vaultID string) string {
	if dir == "" {
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, _ := os.UserHomeDir()
			dataHome = filepath.Join(home, ".local", "share")
		}
		dir = filepath.Join(dataHome, "tessera")
	}
	return filepath.Join(dir, vaultID+".db")
}

// Path returns the database file path
func (c *Cache) Path() string {
	return c.dbPath
}

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// migrate drops cached entries written by a different schema version
func (c *Cache) migrate() error {
	var version string
	err := c.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if version == schemaVersion {
		return nil
	}

	return c.withTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM cache_entries`); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
		return err
	})
}

// Get retrieves an entry
func (c *Cache) Get(ctx context.Context, bucket domain.CacheBucket, key string) (domain.CacheEntry, bool, error) {
	var entry domain.CacheEntry
	var storedAt int64

	err := c.db.QueryRowContext(ctx, `
		SELECT fingerprint, payload, stored_at
		FROM cache_entries WHERE bucket = ? AND key = ?
	`, string(bucket), key).Scan(&entry.Fingerprint, &entry.Payload, &storedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}

	entry.StoredAt = time.UnixMilli(storedAt)
	return entry, true, nil
}

// Put inserts or replaces an entry
func (c *Cache) Put(ctx context.Context, bucket domain.CacheBucket, key string, entry domain.CacheEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache_entries (bucket, key, fingerprint, payload, stored_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(bucket), key, entry.Fingerprint, entry.Payload, entry.StoredAt.UnixMilli())
	return err
}

// DeletePrefix removes every entry of bucket whose key starts with prefix
func (c *Cache) DeletePrefix(ctx context.Context, bucket domain.CacheBucket, prefix string) (int, error) {
	// substr instead of LIKE: keys may contain % and _
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE bucket = ? AND substr(key, 1, length(?)) = ?
	`, string(bucket), prefix, prefix)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Count returns the number of entries in bucket
func (c *Cache) Count(ctx context.Context, bucket domain.CacheBucket) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries WHERE bucket = ?`, string(bucket)).Scan(&n)
	return n, err
}
