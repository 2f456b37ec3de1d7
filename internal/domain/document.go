package domain

import (
	"path"
	"strconv"
	"strings"
)

// Metadata holds a document's frontmatter as parsed from YAML
type Metadata map[string]any

// Lookup walks a dot-separated path through nested maps.
// It returns false when any segment is absent or not a map.
func (m Metadata) Lookup(dotPath string) (any, bool) {
	if m == nil || dotPath == "" {
		return nil, false
	}

	var current any = map[string]any(m)
	for _, segment := range strings.Split(dotPath, ".") {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(v any, key string) (any, bool) {
	switch node := v.(type) {
	case map[string]any:
		val, ok := node[key]
		return val, ok
	case Metadata:
		val, ok := node[key]
		return val, ok
	case map[any]any:
		val, ok := node[key]
		return val, ok
	default:
		return nil, false
	}
}

// Number extracts a numeric value at dotPath. Missing or non-numeric values yield nil.
func (m Metadata) Number(dotPath string) *float64 {
	v, ok := m.Lookup(dotPath)
	if !ok {
		return nil
	}
	return ToNumber(v)
}

// ToNumber converts YAML/JSON scalars to a float64 pointer.
// Numeric strings are accepted; everything else yields nil.
func ToNumber(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// DocumentRecord is one matching markdown document.
// Records are collected fresh on every computation and never mutated.
type DocumentRecord struct {
	Path         string // relative to the vault root, slash separated
	AbsolutePath string
	Metadata     Metadata
	Mtime        int64 // unix milliseconds
	Size         int64
}

// Title returns the frontmatter title, falling back to the file name without extension
func (d DocumentRecord) Title() string {
	if t, ok := d.Metadata["title"].(string); ok && strings.TrimSpace(t) != "" {
		return t
	}
	base := path.Base(d.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// FindDocument returns the document with the given relative path
func FindDocument(docs []DocumentRecord, relPath string) (DocumentRecord, bool) {
	for _, d := range docs {
		if d.Path == relPath {
			return d, true
		}
	}
	return DocumentRecord{}, false
}
