package evaluator

import (
	"tessera/internal/domain"
)

// aggregate computes one aggregator field over the run's documents
func (e *Evaluator) aggregate(r *run, cfg domain.FieldConfig) any {
	if cfg.Aggregate == domain.AggregatorCount && cfg.Path == "" {
		return float64(len(r.docs))
	}

	values := e.collect(r, domain.ParseFieldPath(cfg.Path))
	result, ok := e.agg.Aggregate(cfg.Aggregate, values)
	if !ok {
		return nil
	}
	return normalize(result)
}

// collect gathers one numeric value (or nil) per document for path
func (e *Evaluator) collect(r *run, path domain.FieldPath) []*float64 {
	values := make([]*float64, len(r.docs))

	if path.Source == domain.SourceThis {
		for i, doc := range r.docs {
			values[i] = doc.Metadata.Number(path.Path)
		}
		return values
	}

	name := path.Root()
	ref, defined := r.widget.Fields.Lookup(name)

	if defined && ref.IsExpression() && !r.plan.IsCycleField(name) {
		for i, doc := range r.docs {
			val, err := e.itemValue(r, name, doc)
			if err != nil {
				e.logger.Debug("per-document value failed",
					"widget", r.widget.ID, "field", name, "path", doc.Path, "error", err)
				continue
			}
			values[i] = domain.ToNumber(descend(val, path.Rest()))
		}
		return values
	}

	// A collection value does not vary per document: broadcast it
	scalar, ok := r.acc[name]
	if !ok {
		return values
	}
	n := domain.ToNumber(descend(scalar, path.Rest()))
	for i := range values {
		values[i] = n
	}
	return values
}

// descend follows a dot path below a computed value
func descend(v any, rest string) any {
	if rest == "" {
		return v
	}
	switch m := v.(type) {
	case map[string]any:
		val, _ := domain.Metadata(m).Lookup(rest)
		return val
	case domain.Metadata:
		val, _ := m.Lookup(rest)
		return val
	default:
		return nil
	}
}
