package domain

import (
	"strings"
	"time"
)

// CacheBucket separates collection-wide results from per-source-document results
type CacheBucket string

const (
	BucketWidget     CacheBucket = "widget"
	BucketSimilarity CacheBucket = "similarity"
)

// CacheEntry is a stored, serialized widget result
type CacheEntry struct {
	Fingerprint string
	Payload     []byte
	StoredAt    time.Time
}

// keySeparator is the ASCII unit separator; it cannot appear in vault ids, widget ids or paths
const keySeparator = "\x1f"

// CacheKey joins key parts. Every key ends with the separator so that the key
// of one part sequence is never a prefix of a different sequence.
func CacheKey(parts ...string) string {
	return strings.Join(parts, keySeparator) + keySeparator
}
