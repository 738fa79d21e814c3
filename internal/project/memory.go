package project

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory is an in-memory project store for tests and local runs.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]*Project
}

// NewInMemory creates an empty in-memory project store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]*Project)}
}

func (m *InMemory) Create(_ context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *InMemory) Get(_ context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *InMemory) Update(_ context.Context, id string, u Update, at time.Time) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Department != nil {
		p.Department = *u.Department
	}
	if u.Progress != nil {
		p.Progress = *u.Progress
	}
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
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

func (m *InMemory) List(_ context.Context) ([]*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Project, 0, len(m.items))
	for _, p := range m.items {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
