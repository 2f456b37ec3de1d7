package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Scope says whether a phase is computed once for the collection or per document
type Scope string

const (
	ScopeCollection Scope = "collection"
	ScopeItem       Scope = "item"
)

// Phase is one layer of the evaluation order. Every field in a phase depends
// only on fields placed in earlier phases.
type Phase struct {
	Scope  Scope    `json:"scope"`
	Fields []string `json:"fields"`
}

// ComputationPlan is the dependency-respecting evaluation order of a widget's fields
type ComputationPlan struct {
	Phases      []Phase  `json:"phases"`
	CycleFields []string `json:"cycleFields,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// IsCycleField reports whether name was excluded because of a dependency cycle
func (p ComputationPlan) IsCycleField(name string) bool {
	return slices.Contains(p.CycleFields, name)
}

// BuildPlan orders fields into phases with a layered topological sort (Kahn).
//
// Each round extracts, in declaration order, every unplaced field whose
// dependencies are already placed. Fields left over when no progress is
// possible are on, or downstream of, a dependency cycle: they go to
// CycleFields with one warning each and never appear in a phase.
func BuildPlan(fields Fields) ComputationPlan {
	defined := make(map[string]bool, len(fields))
	for _, f := range fields {
		defined[f.Name] = true
	}

	deps := make(map[string][]string, len(fields))
	for _, f := range fields {
		for _, ref := range f.References() {
			if defined[ref] {
				deps[f.Name] = append(deps[f.Name], ref)
			}
		}
	}

	var plan ComputationPlan
	placed := make(map[string]bool, len(fields))
	remaining := fields.Names()

	for len(remaining) > 0 {
		var ready, blocked []string
		for _, name := range remaining {
			if allPlaced(deps[name], placed) {
				ready = append(ready, name)
			} else {
				blocked = append(blocked, name)
			}
		}
		if len(ready) == 0 {
			break
		}

		for _, name := range ready {
			placed[name] = true
		}
		plan.Phases = append(plan.Phases, Phase{
			Scope:  phaseScope(fields, ready),
			Fields: ready,
		})
		remaining = blocked
	}

	if len(remaining) == 0 {
		return plan
	}

	unplaced := make(map[string]bool, len(remaining))
	for _, name := range remaining {
		unplaced[name] = true
	}
	for _, name := range remaining {
		plan.CycleFields = append(plan.CycleFields, name)
		plan.Warnings = append(plan.Warnings, describeCycle(name, deps, unplaced))
	}

	return plan
}

func allPlaced(deps []string, placed map[string]bool) bool {
	for _, d := range deps {
		if !placed[d] {
			return false
		}
	}
	return true
}

// phaseScope is collection only when no field in the phase reads per-document data
func phaseScope(fields Fields, names []string) Scope {
	for _, name := range names {
		cfg, _ := fields.Lookup(name)
		if !cfg.IsAggregator() && !cfg.IsLiteral() {
			return ScopeItem
		}
	}
	return ScopeCollection
}

func describeCycle(name string, deps map[string][]string, unplaced map[string]bool) string {
	if slices.Contains(deps[name], name) {
		return fmt.Sprintf("field %q references itself", name)
	}

	if cycle := cyclePath(name, deps, unplaced); cycle != nil {
		return fmt.Sprintf("field %q is part of a dependency cycle: %s", name, strings.Join(cycle, " -> "))
	}

	var blockers []string
	for _, d := range deps[name] {
		if unplaced[d] {
			blockers = append(blockers, d)
		}
	}
	return fmt.Sprintf("field %q depends on cyclic field(s): %s", name, strings.Join(blockers, ", "))
}

// cyclePath finds the shortest path start -> ... -> start through unplaced fields
func cyclePath(start string, deps map[string][]string, unplaced map[string]bool) []string {
	parent := make(map[string]string)
	visited := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, d := range deps[node] {
			if !unplaced[d] {
				continue
			}
			if d == start {
				var chain []string
				for c := node; c != start; c = parent[c] {
					chain = append(chain, c)
				}
				slices.Reverse(chain)

				path := append([]string{start}, chain...)
				return append(path, start)
			}
			if !visited[d] {
				visited[d] = true
				parent[d] = node
				queue = append(queue, d)
			}
		}
	}
	return nil
}
