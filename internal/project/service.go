package project

import (
	"context"
	"fmt"
	"strings"
	"time"

	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/ids"
	"memberhub.org/internal/rbac"
	"memberhub.org/internal/stream"
)

// Service applies role checks to project mutations and records system events.
// Executives and admins manage projects; any signed-in member can view them.
type Service struct {
	authority *rbac.Authority
	store     Store
	events    *audit.Recorder
	live      *stream.Stream
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a project service. The stream may be nil.
func NewService(authority *rbac.Authority, store Store, events *audit.Recorder, live *stream.Stream, opts ...Option) *Service {
	s := &Service{authority: authority, store: store, events: events, live: live, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries a new project.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Department  string `json:"department"`
	Progress    int    `json:"progress"`
}

// Create registers a new project.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, req CreateRequest) (*Project, error) {
	if err := s.requireManager(ctx, actor); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: project name is required", rbac.ErrInvalidArgument)
	}
	if req.Status == "" {
		req.Status = StatusPlanning
	}
	if !ValidStatus(req.Status) {
		return nil, fmt.Errorf("%w: unknown project status %q", rbac.ErrInvalidArgument, req.Status)
	}
	if req.Department != "" && !directory.ValidDepartment(req.Department) {
		return nil, fmt.Errorf("%w: unknown department %q", rbac.ErrInvalidArgument, req.Department)
	}
	if req.Progress < 0 || req.Progress > 100 {
		return nil, fmt.Errorf("%w: progress must be between 0 and 100", rbac.ErrInvalidArgument)
	}

	now := s.now().UTC()
	p := &Project{
		ID:          ids.New(),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Status:      req.Status,
		Department:  req.Department,
		Progress:    req.Progress,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("store project: %w", err)
	}

	s.events.Record(ctx, audit.Event{
		Type:        audit.EventProjectCreate,
		ActorID:     actor.ID,
		ActorEmail:  actor.Email,
		Description: "project created: " + p.Name,
	})
	if s.live != nil {
		s.live.Publish(stream.Event{Kind: "project", Title: p.Name, Actor: actor.ID, Timestamp: now})
	}
	return p, nil
}

// Update applies a partial edit to a project.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id string, u Update) (*Project, error) {
	if err := s.requireManager(ctx, actor); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: project id is required", rbac.ErrInvalidArgument)
	}
	if u.Status != nil && !ValidStatus(*u.Status) {
		return nil, fmt.Errorf("%w: unknown project status %q", rbac.ErrInvalidArgument, *u.Status)
	}
	if u.Department != nil && *u.Department != "" && !directory.ValidDepartment(*u.Department) {
		return nil, fmt.Errorf("%w: unknown department %q", rbac.ErrInvalidArgument, *u.Department)
	}
	if u.Progress != nil && (*u.Progress < 0 || *u.Progress > 100) {
		return nil, fmt.Errorf("%w: progress must be between 0 and 100", rbac.ErrInvalidArgument)
	}

	now := s.now().UTC()
	p, err := s.store.Update(ctx, id, u, now)
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, audit.Event{
		Type:        audit.EventProjectUpdate,
		ActorID:     actor.ID,
		ActorEmail:  actor.Email,
		Description: "project updated: " + p.Name,
	})
	if s.live != nil {
		s.live.Publish(stream.Event{Kind: "project", Title: p.Name, Actor: actor.ID, Timestamp: now})
	}
	return p, nil
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id string) error {
	if err := s.requireManager(ctx, actor); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: project id is required", rbac.ErrInvalidArgument)
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Record(ctx, audit.Event{
		Type:        audit.EventProjectDelete,
		ActorID:     actor.ID,
		ActorEmail:  actor.Email,
		Description: "project deleted: " + p.Name,
	})
	return nil
}

// List returns all projects, newest first. Any signed-in member may view.
func (s *Service) List(ctx context.Context, actor rbac.Actor) ([]*Project, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: you must be signed in", rbac.ErrUnauthenticated)
	}
	return s.store.List(ctx)
}

func (s *Service) requireManager(ctx context.Context, actor rbac.Actor) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: you must be signed in", rbac.ErrUnauthenticated)
	}
	role, err := s.authority.ResolveRole(ctx, actor.ID)
	if err != nil {
		return err
	}
	if role != rbac.RoleAdmin && role != rbac.RoleExecutive {
		return fmt.Errorf("%w: only executives and administrators can manage projects", rbac.ErrPermissionDenied)
	}
	return nil
}
