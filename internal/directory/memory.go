package directory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[string]*Profile)}
}

func (s *InMemory) Get(ctx context.Context, uid string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return *p, nil
}

func (s *InMemory) Put(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.profiles[p.UID]
	if !ok {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		s.profiles[p.UID] = &p
		return nil
	}

	// Merge semantics: provided non-zero fields win, the rest survive.
	merged := *existing
	if p.Email != "" {
		merged.Email = p.Email
	}
	if p.FirstName != "" {
		merged.FirstName = p.FirstName
	}
	if p.LastName != "" {
		merged.LastName = p.LastName
	}
	if p.Role != "" {
		merged.Role = p.Role
	}
	if p.Department != "" {
		merged.Department = p.Department
	}
	if p.PhotoURL != "" {
		merged.PhotoURL = p.PhotoURL
	}
	merged.IsActive = p.IsActive
	merged.UpdatedAt = now
	s.profiles[p.UID] = &merged
	return nil
}

func (s *InMemory) SetRole(ctx context.Context, uid, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok {
		return ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) Update(ctx context.Context, uid string, upd ProfileUpdate) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok {
		return Profile{}, ErrNotFound
	}
	if upd.FirstName != nil {
		p.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		p.LastName = *upd.LastName
	}
	if upd.Department != nil {
		p.Department = *upd.Department
	}
	if upd.PhotoURL != nil {
		p.PhotoURL = *upd.PhotoURL
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	p.UpdatedAt = time.Now().UTC()
	return *p, nil
}

func (s *InMemory) Delete(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, uid)
	return nil
}

func (s *InMemory) List(ctx context.Context) ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
