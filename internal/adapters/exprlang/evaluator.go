// Package exprlang evaluates widget expressions with github.com/expr-lang/expr.
package exprlang

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"tessera/internal/application"
	"tessera/internal/ports"
)

// Evaluator compiles each distinct expression once and runs it against
// an environment with the variables this, stats and result
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// Ensure Evaluator implements ports.ExpressionEvaluator
var _ ports.ExpressionEvaluator = (*Evaluator)(nil)

// New creates an Evaluator with an empty program cache
func New() *Evaluator {
	return &Evaluator{programs: make(map[string]*vm.Program)}
}

// Evaluate runs text. Syntax errors and runtime failures, such as arithmetic
// on a missing reference, are returned as *application.EvaluationError.
func (e *Evaluator) Evaluate(text string, ctx ports.ExprContext) (any, error) {
	program, err := e.compile(text)
	if err != nil {
		return nil, &application.EvaluationError{Expr: text, Err: err}
	}

	env := map[string]any{
		"this":   orEmpty(ctx.This),
		"stats":  orEmpty(ctx.Stats),
		"result": orEmpty(ctx.Result),
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, &application.EvaluationError{Expr: text, Err: err}
	}
	return out, nil
}

func (e *Evaluator) compile(text string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[text]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(text)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[text] = program
	e.mu.Unlock()
	return program, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
