// Package compare scores metadata records against each other for similarity widgets.
package compare

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// Method names
const (
	MethodExact   = "exact"
	MethodNumeric = "numeric"
	MethodJaccard = "jaccard"
	MethodText    = "text"
)

// Comparator computes weighted per-dimension similarity in [0, 1].
// A dimension is skipped when either record lacks a usable value; skipped
// dimensions do not count towards the weighted mean.
type Comparator struct{}

// Ensure Comparator implements ports.Comparator
var _ ports.Comparator = Comparator{}

func (Comparator) Compare(a, b domain.Metadata, dims []domain.DimensionConfig) domain.Comparison {
	out := domain.Comparison{Dimensions: make([]domain.DimensionScore, 0, len(dims))}

	var weighted, total float64
	for _, d := range dims {
		ds := domain.DimensionScore{Field: d.Field, Method: d.Method, Weight: d.Weight}

		av, aok := a.Lookup(d.Field)
		bv, bok := b.Lookup(d.Field)
		if !aok || !bok || av == nil || bv == nil {
			ds.Skipped = true
		} else if score, ok := scoreDimension(d.Method, av, bv); ok {
			ds.Score = score
			weighted += d.Weight * score
			total += d.Weight
		} else {
			ds.Skipped = true
		}

		out.Dimensions = append(out.Dimensions, ds)
	}

	if total > 0 {
		out.Score = weighted / total
	}
	return out
}

func scoreDimension(method string, a, b any) (float64, bool) {
	switch method {
	case MethodExact:
		return exact(a, b), true
	case MethodNumeric:
		return numeric(a, b)
	case MethodJaccard:
		return jaccard(toSet(a), toSet(b))
	case MethodText:
		return jaccard(tokens(a), tokens(b))
	default:
		return 0, false
	}
}

func exact(a, b any) float64 {
	if an, bn := domain.ToNumber(a), domain.ToNumber(b); an != nil && bn != nil {
		if *an == *bn {
			return 1
		}
		return 0
	}
	if strings.EqualFold(fmt.Sprint(a), fmt.Sprint(b)) {
		return 1
	}
	return 0
}

// numeric is 1 minus the difference relative to the larger magnitude
func numeric(a, b any) (float64, bool) {
	an, bn := domain.ToNumber(a), domain.ToNumber(b)
	if an == nil || bn == nil || !isFinite(*an) || !isFinite(*bn) {
		return 0, false
	}
	scale := math.Max(math.Abs(*an), math.Abs(*bn))
	if scale == 0 {
		return 1, true
	}
	return math.Max(0, 1-math.Abs(*an-*bn)/scale), true
}

func isFinite(n float64) bool {
	return !math.IsInf(n, 0) && !math.IsNaN(n)
}

func jaccard(a, b map[string]struct{}) (float64, bool) {
	if len(a) == 0 && len(b) == 0 {
		return 0, false
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union), true
}

// toSet turns a list, or a single scalar, into a set of lowercase strings
func toSet(v any) map[string]struct{} {
	set := make(map[string]struct{})
	add := func(item any) {
		if item == nil {
			return
		}
		s := strings.ToLower(strings.TrimSpace(fmt.Sprint(item)))
		if s != "" {
			set[s] = struct{}{}
		}
	}

	switch val := v.(type) {
	case []any:
		for _, item := range val {
			add(item)
		}
	case []string:
		for _, item := range val {
			add(item)
		}
	default:
		add(val)
	}
	return set
}

// tokens splits text into a set of lowercase words
func tokens(v any) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(fmt.Sprint(v)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
