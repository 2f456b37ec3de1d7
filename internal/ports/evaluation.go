package ports

import "tessera/internal/domain"

// ExprContext is the variable scope an expression is evaluated in
type ExprContext struct {
	This   map[string]any // current document metadata, empty for ground widgets
	Stats  map[string]any // results computed so far
	Result map[string]any // same values as Stats
}

// ExpressionEvaluator evaluates user expressions.
// Malformed expressions and missing references return an error.
type ExpressionEvaluator interface {
	Evaluate(expr string, ctx ExprContext) (any, error)
}

// Aggregator reduces a numeric sequence. Nil entries are skipped.
// The boolean result is false when the aggregate is undefined (for example the average of nothing).
type Aggregator interface {
	Aggregate(kind domain.AggregatorKind, values []*float64) (float64, bool)
}

// Comparator scores the similarity of two metadata records along weighted dimensions
type Comparator interface {
	Compare(a, b domain.Metadata, dims []domain.DimensionConfig) domain.Comparison
}

// HealthSink receives structured warnings. Report must not block.
type HealthSink interface {
	Report(issue domain.Issue)
}
