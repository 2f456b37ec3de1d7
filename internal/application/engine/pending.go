package engine

import (
	"slices"
	"sync"
)

// GroundKey is the pending-set key of the background recompute of all ground widgets
const GroundKey = "ground"

// PendingSet tracks background recomputations in flight.
// TryAcquire is an atomic check-then-insert.
type PendingSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewPendingSet creates an empty PendingSet
func NewPendingSet() *PendingSet {
	return &PendingSet{keys: make(map[string]struct{})}
}

// TryAcquire adds key and reports true, or reports false when key is already present
func (p *PendingSet) TryAcquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.keys[key]; ok {
		return false
	}
	p.keys[key] = struct{}{}
	return true
}

// Release removes key
func (p *PendingSet) Release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, key)
}

// Keys returns the keys in flight, sorted
func (p *PendingSet) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.keys))
	for k := range p.keys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
