package audit

import (
	"context"
	"sync"
	"time"

	"memberhub.org/internal/ids"
)

// InMemoryTrail implements Trail for tests and dev mode.
type InMemoryTrail struct {
	mu      sync.RWMutex
	entries []Entry
}

var _ Trail = (*InMemoryTrail)(nil)

// NewInMemoryTrail creates an empty trail.
func NewInMemoryTrail() *InMemoryTrail {
	return &InMemoryTrail{}
}

func (t *InMemoryTrail) Append(ctx context.Context, e *Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	t.entries = append(t.entries, *e)
	return nil
}

func (t *InMemoryTrail) List(ctx context.Context, limit int) ([]Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := len(t.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	// Newest first.
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, t.entries[i])
	}
	return out, nil
}

// InMemoryEventSink implements EventSink for tests and dev mode.
type InMemoryEventSink struct {
	mu     sync.RWMutex
	events []Event
}

var _ EventSink = (*InMemoryEventSink)(nil)

// NewInMemoryEventSink creates an empty sink.
func NewInMemoryEventSink() *InMemoryEventSink {
	return &InMemoryEventSink{}
}

func (s *InMemoryEventSink) Append(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *InMemoryEventSink) List(ctx context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}
