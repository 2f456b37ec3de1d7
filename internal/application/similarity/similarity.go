// Package similarity ranks documents by weighted metadata similarity to a source document.
package similarity

import (
	"fmt"
	"sort"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// DefaultLimit is the number of matches returned when a widget sets no limit
const DefaultLimit = 10

// Ranker scores documents against a source document
type Ranker struct {
	cmp          ports.Comparator
	defaultLimit int
}

// New creates a Ranker. A non-positive defaultLimit falls back to DefaultLimit.
func New(cmp ports.Comparator, defaultLimit int) *Ranker {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Ranker{cmp: cmp, defaultLimit: defaultLimit}
}

// Rank scores every document except source and returns the best limit matches,
// highest score first. Equal scores keep their order in docs.
func (r *Ranker) Rank(source domain.DocumentRecord, docs []domain.DocumentRecord, dims []domain.DimensionConfig, limit int) []domain.SimilarityMatch {
	if limit <= 0 {
		limit = r.defaultLimit
	}

	matches := make([]domain.SimilarityMatch, 0, len(docs))
	for _, d := range docs {
		if d.Path == source.Path {
			continue
		}
		c := r.cmp.Compare(source.Metadata, d.Metadata, dims)
		matches = append(matches, domain.SimilarityMatch{
			Path:       d.Path,
			Score:      c.Score,
			Dimensions: c.Dimensions,
			Title:      d.Title(),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Evaluate computes a similarity widget for the document at sourcePath
func (r *Ranker) Evaluate(w domain.WidgetConfig, docs []domain.DocumentRecord, sourcePath string) domain.WidgetResult {
	res := domain.NewWidgetResult(w)

	source, ok := domain.FindDocument(docs, sourcePath)
	if !ok {
		res.IsEmpty = true
		res.EmptyReason = fmt.Sprintf("%s does not match %s", sourcePath, w.Source.Pattern)
		return res
	}

	res.Matches = r.Rank(source, docs, w.Dimensions, w.Limit)
	if len(res.Matches) == 0 {
		res.IsEmpty = true
		res.EmptyReason = fmt.Sprintf("no other documents match %s", w.Source.Pattern)
	}
	return res
}
