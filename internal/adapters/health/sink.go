// Package health collects structured warnings raised while computing widgets.
package health

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// LogSink writes issues to a logger
type LogSink struct {
	logger *slog.Logger
}

var _ ports.HealthSink = (*LogSink)(nil)

// NewLogSink creates a LogSink. A nil logger discards output.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(issue domain.Issue) {
	level := slog.LevelWarn
	if issue.Severity == domain.SeverityError {
		level = slog.LevelError
	}

	attrs := []any{"id", issue.ID}
	for k, v := range issue.Details {
		attrs = append(attrs, k, v)
	}
	s.logger.Log(context.Background(), level, issue.Message, attrs...)
}

// Collector keeps the latest issue per ID and forwards every issue to next
type Collector struct {
	mu     sync.Mutex
	issues map[string]domain.Issue
	next   ports.HealthSink
}

var _ ports.HealthSink = (*Collector)(nil)

// NewCollector creates a Collector. next may be nil.
func NewCollector(next ports.HealthSink) *Collector {
	return &Collector{issues: make(map[string]domain.Issue), next: next}
}

func (c *Collector) Report(issue domain.Issue) {
	c.mu.Lock()
	c.issues[issue.ID] = issue
	c.mu.Unlock()

	if c.next != nil {
		c.next.Report(issue)
	}
}

// Issues returns the retained issues sorted by ID
func (c *Collector) Issues() []domain.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Issue, 0, len(c.issues))
	for _, issue := range c.issues {
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear drops every retained issue
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = make(map[string]domain.Issue)
}
