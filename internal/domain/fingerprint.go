package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Fingerprint returns a short hash of the sorted (path, mtime, size) triples of docs.
//
// Two identical fingerprints are taken to mean identical input documents.
// Metadata is not hashed: this is a fast change heuristic, not a content guarantee.
func Fingerprint(docs []DocumentRecord) string {
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = fmt.Sprintf("%s\x00%d\x00%d", d.Path, d.Mtime, d.Size)
	}
	slices.Sort(lines)

	h := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(h[:8])
}

// FingerprintWith fingerprints docs plus extra, ignoring extra when it is already in docs
func FingerprintWith(docs []DocumentRecord, extra DocumentRecord) string {
	if _, ok := FindDocument(docs, extra.Path); ok {
		return Fingerprint(docs)
	}
	all := make([]DocumentRecord, 0, len(docs)+1)
	all = append(all, docs...)
	all = append(all, extra)
	return Fingerprint(all)
}
