package evaluator

import (
	"fmt"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// frame is one entry of the dependency worklist
type frame struct {
	name     string
	expanded bool
}

// itemValue computes expression field target as if doc were the current document.
//
// Collection values (aggregators, literals, count and nulled cycle fields) are
// copied from the accumulator. Expression fields that target depends on are
// evaluated first, for the same document, in post order. Each expression is
// evaluated at most once per call and a failure anywhere fails the whole call.
func (e *Evaluator) itemValue(r *run, target string, doc domain.DocumentRecord) (any, error) {
	ctx := make(map[string]any, len(r.acc))
	for name, val := range r.acc {
		cfg, defined := r.widget.Fields.Lookup(name)
		if !defined || !cfg.IsExpression() || r.plan.IsCycleField(name) {
			ctx[name] = val
		}
	}

	this := map[string]any{}
	if doc.Metadata != nil {
		this = doc.Metadata
	}

	computed := make(map[string]bool)
	inProgress := make(map[string]bool)
	stack := []frame{{name: target}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if computed[top.name] {
			continue
		}

		cfg, defined := r.widget.Fields.Lookup(top.name)
		if !defined || !cfg.IsExpression() || r.plan.IsCycleField(top.name) {
			computed[top.name] = true
			continue
		}

		if top.expanded {
			val, err := e.expr.Evaluate(cfg.Expr, ports.ExprContext{This: this, Stats: ctx, Result: ctx})
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", top.name, err)
			}
			ctx[top.name] = normalize(val)
			computed[top.name] = true
			delete(inProgress, top.name)
			continue
		}

		if inProgress[top.name] {
			return nil, fmt.Errorf("field %s: circular reference", top.name)
		}
		inProgress[top.name] = true
		stack = append(stack, frame{name: top.name, expanded: true})

		refs := domain.ResultReferences(cfg.Expr)
		for i := len(refs) - 1; i >= 0; i-- {
			if !computed[refs[i]] {
				stack = append(stack, frame{name: refs[i]})
			}
		}
	}

	return ctx[target], nil
}
