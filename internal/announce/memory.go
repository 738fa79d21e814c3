package announce

import (
	"context"
	"sort"
	"sync"
)

// InMemory is an in-memory announcement store for tests and local runs.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]*Announcement
}

// NewInMemory creates an empty in-memory announcement store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]*Announcement)}
}

func (m *InMemory) Create(_ context.Context, a *Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *InMemory) List(_ context.Context, limit int) ([]*Announcement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Announcement, 0, len(m.items))
	for _, a := range m.items {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *InMemory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// InMemoryNotifications is an in-memory notification store.
type InMemoryNotifications struct {
	mu    sync.RWMutex
	items map[string]*Notification
}

// NewInMemoryNotifications creates an empty in-memory notification store.
func NewInMemoryNotifications() *InMemoryNotifications {
	return &InMemoryNotifications{items: make(map[string]*Notification)}
}

func (m *InMemoryNotifications) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *InMemoryNotifications) ListByUser(_ context.Context, userID string, limit int) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Notification, 0)
	for _, n := range m.items {
		if n.UserID != userID {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *InMemoryNotifications) MarkRead(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	return nil
}
