package fswatch

import (
	"sync"
	"time"
)

// BatchDebouncer collects paths and emits them as one batch after a quiet period
type BatchDebouncer struct {
	delay time.Duration
	timer *time.Timer
	mu    sync.Mutex
	paths []string
	emit  func([]string)
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer(delay time.Duration, emit func([]string)) *BatchDebouncer {
	return &BatchDebouncer{
		delay: delay,
		emit:  emit,
	}
}

// Add adds a path to the batch and restarts the quiet period
func (b *BatchDebouncer) Add(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.paths = append(b.paths, path)

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	paths := b.paths
	b.paths = nil
	b.timer = nil
	b.mu.Unlock()

	if len(paths) > 0 && b.emit != nil {
		b.emit(paths)
	}
}

// Cancel drops any pending batch
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.paths = nil
}

// Flush immediately emits any pending paths
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// Pending returns the number of paths waiting to be emitted
func (b *BatchDebouncer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.paths)
}
