package domain

import (
	"regexp"
	"strings"
)

// PathSource says where a field path is resolved
type PathSource string

const (
	// SourceThis resolves against a document's own metadata
	SourceThis PathSource = "this"
	// SourceResult resolves against already computed widget fields
	SourceResult PathSource = "result"
)

// FieldPath is a parsed field reference such as "this.rating" or "result.total"
type FieldPath struct {
	Source PathSource
	Path   string
}

// ParseFieldPath splits a raw path into its source and the remaining dot path.
// Paths without a recognised prefix resolve against the document ("rating" == "this.rating").
func ParseFieldPath(raw string) FieldPath {
	raw = strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(raw, string(SourceResult)+"."); ok {
		return FieldPath{Source: SourceResult, Path: rest}
	}
	if rest, ok := strings.CutPrefix(raw, string(SourceThis)+"."); ok {
		return FieldPath{Source: SourceThis, Path: rest}
	}
	return FieldPath{Source: SourceThis, Path: raw}
}

// Root returns the first segment of the path.
// For a result path this is the referenced field name.
func (p FieldPath) Root() string {
	root, _, _ := strings.Cut(p.Path, ".")
	return root
}

// Rest returns the path below the root segment, or "" when there is none
func (p FieldPath) Rest() string {
	_, rest, _ := strings.Cut(p.Path, ".")
	return rest
}

func (p FieldPath) String() string {
	return string(p.Source) + "." + p.Path
}

var resultRefPattern = regexp.MustCompile(`result\.(\w+)`)

// ResultReferences returns the field names referenced as result.<name> in text,
// deduplicated, in order of first appearance
func ResultReferences(text string) []string {
	matches := resultRefPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs, name)
	}
	return refs
}

// References returns the names of other results this field depends on
func (f FieldConfig) References() []string {
	switch {
	case f.IsExpression():
		return ResultReferences(f.Expr)
	case f.IsAggregator() && f.Path != "":
		p := ParseFieldPath(f.Path)
		if p.Source == SourceResult && p.Root() != "" {
			return []string{p.Root()}
		}
	}
	return nil
}
