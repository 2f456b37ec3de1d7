// Package evaluator executes a widget's computation plan over a document collection.
package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// CountField is the accumulator entry seeded with the number of documents
const CountField = "count"

// Evaluator computes aggregate widget fields in dependency order
type Evaluator struct {
	expr   ports.ExpressionEvaluator
	agg    ports.Aggregator
	health ports.HealthSink
	logger *slog.Logger
}

// New creates an Evaluator. A nil health sink drops issues, a nil logger discards output.
func New(expr ports.ExpressionEvaluator, agg ports.Aggregator, health ports.HealthSink, logger *slog.Logger) *Evaluator {
	if health == nil {
		health = discardSink{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{expr: expr, agg: agg, health: health, logger: logger}
}

type discardSink struct{}

func (discardSink) Report(domain.Issue) {}

// run holds the state of one widget evaluation
type run struct {
	widget domain.WidgetConfig
	plan   domain.ComputationPlan
	docs   []domain.DocumentRecord
	acc    map[string]any
}

// Evaluate computes the visible fields of w over docs.
//
// current is the document being viewed for recall widgets and nil for ground
// widgets. Cycle fields and failing expressions evaluate to nil; neither stops
// the remaining fields from being computed.
func (e *Evaluator) Evaluate(w domain.WidgetConfig, docs []domain.DocumentRecord, current *domain.DocumentRecord) *domain.FieldValues {
	r := &run{
		widget: w,
		plan:   domain.BuildPlan(w.Fields),
		docs:   docs,
		acc:    map[string]any{CountField: float64(len(docs))},
	}

	for i, name := range r.plan.CycleFields {
		r.acc[name] = nil
		e.health.Report(domain.Issue{
			ID:       fmt.Sprintf("widget-cycle:%s:%s", w.ID, name),
			Severity: domain.SeverityWarning,
			Message:  r.plan.Warnings[i],
			Details:  map[string]any{"widget": w.ID, "field": name},
		})
	}

	this := map[string]any{}
	if current != nil && current.Metadata != nil {
		this = current.Metadata
	}

	for _, phase := range r.plan.Phases {
		for _, name := range phase.Fields {
			cfg, _ := w.Fields.Lookup(name)

			switch {
			case cfg.IsLiteral():
				r.acc[name] = normalize(cfg.Value)
			case cfg.IsAggregator():
				r.acc[name] = e.aggregate(r, cfg)
			case cfg.IsExpression():
				val, err := e.expr.Evaluate(cfg.Expr, ports.ExprContext{This: this, Stats: r.acc, Result: r.acc})
				if err != nil {
					r.acc[name] = nil
					e.health.Report(domain.Issue{
						ID:       fmt.Sprintf("widget-expr:%s:%s", w.ID, name),
						Severity: domain.SeverityWarning,
						Message:  fmt.Sprintf("field %q: %v", name, err),
						Details:  map[string]any{"widget": w.ID, "field": name, "expr": cfg.Expr},
					})
					continue
				}
				r.acc[name] = normalize(val)
			}
		}
	}

	out := domain.NewFieldValues()
	for _, f := range w.Fields {
		if f.Visible() {
			out.Set(f.Name, r.acc[f.Name])
		}
	}
	return out
}

// normalize converts numbers to float64, recursively, so results survive a JSON round trip unchanged.
// Infinities and NaN have no JSON form and become nil.
func normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool:
		return val
	case float64:
		return finite(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case domain.Metadata:
		return normalize(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		if n := domain.ToNumber(val); n != nil {
			return finite(*n)
		}
		return val
	}
}

func finite(n float64) any {
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return nil
	}
	return n
}
