package announce

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

// Service coordinates announcement posting, the notification fan-out to
// active members, and the live event stream.
type Service struct {
	authority *rbac.Authority
	dir       directory.Store
	store     Store
	notes     NotificationStore
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

// NewService wires an announcement service. The stream may be nil when no
// live subscribers are served.
func NewService(authority *rbac.Authority, dir directory.Store, store Store, notes NotificationStore, events *audit.Recorder, live *stream.Stream, opts ...Option) *Service {
	s := &Service{
		authority: authority,
		dir:       dir,
		store:     store,
		notes:     notes,
		events:    events,
		live:      live,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries a new announcement.
type CreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Create posts an announcement and fans out one notification per active
// member other than the author. Only executives and admins may post.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, req CreateRequest) (*Announcement, error) {
	role, err := s.requirePoster(ctx, actor)
	if err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" || req.Content == "" {
		return nil, fmt.Errorf("%w: title and content are required", rbac.ErrInvalidArgument)
	}

	now := s.now().UTC()
	a := &Announcement{
		ID:         ids.New(),
		Title:      req.Title,
		Content:    req.Content,
		CreatedBy:  actor.ID,
		AuthorRole: role.String(),
		CreatedAt:  now,
	}
	if p, err := s.dir.Get(ctx, actor.ID); err == nil {
		a.CreatedByName = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("store announcement: %w", err)
	}

	s.fanOut(ctx, a)

	s.events.Record(ctx, audit.Event{
		Type:        audit.EventAnnouncementCreate,
		ActorID:     actor.ID,
		ActorEmail:  actor.Email,
		Description: "announcement posted: " + a.Title,
	})
	if s.live != nil {
		s.live.Publish(stream.Event{Kind: "announcement", Title: a.Title, Actor: actor.ID, Timestamp: now})
	}
	return a, nil
}

// fanOut creates one notification per active member other than the author.
// Failures are logged by the notification store caller path but never fail
// the announcement itself.
func (s *Service) fanOut(ctx context.Context, a *Announcement) {
	profiles, err := s.dir.List(ctx)
	if err != nil {
		return
	}
	for _, p := range profiles {
		if !p.IsActive || p.UID == a.CreatedBy {
			continue
		}
		n := &Notification{
			ID:        ids.New(),
			UserID:    p.UID,
			Title:     "New Announcement: " + a.Title,
			Content:   a.Content,
			Type:      "announcement",
			CreatedBy: a.CreatedBy,
			CreatedAt: a.CreatedAt,
		}
		_ = s.notes.Create(ctx, n)
	}
}

// List returns the latest announcements. Any signed-in member may read them.
func (s *Service) List(ctx context.Context, actor rbac.Actor, limit int) ([]*Announcement, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: you must be signed in", rbac.ErrUnauthenticated)
	}
	return s.store.List(ctx, limit)
}

// Delete removes an announcement. Admin only.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id string) error {
	if err := s.authority.RequireAdmin(ctx, actor, "only administrators can delete announcements"); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: announcement id is required", rbac.ErrInvalidArgument)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	return nil
}

// Notifications returns the actor's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, actor rbac.Actor, limit int) ([]*Notification, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: you must be signed in", rbac.ErrUnauthenticated)
	}
	return s.notes.ListByUser(ctx, actor.ID, limit)
}

// MarkNotificationRead marks one of the actor's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, actor rbac.Actor, id string) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: you must be signed in", rbac.ErrUnauthenticated)
	}
	if id == "" {
		return fmt.Errorf("%w: notification id is required", rbac.ErrInvalidArgument)
	}
	return s.notes.MarkRead(ctx, id, actor.ID)
}

func (s *Service) requirePoster(ctx context.Context, actor rbac.Actor) (rbac.Role, error) {
	if !actor.Authenticated() {
		return "", fmt.Errorf("%w: you must be signed in", rbac.ErrUnauthenticated)
	}
	role, err := s.authority.ResolveRole(ctx, actor.ID)
	if err != nil {
		return "", err
	}
	if role != rbac.RoleAdmin && role != rbac.RoleExecutive {
		return "", fmt.Errorf("%w: only executives and administrators can post announcements", rbac.ErrPermissionDenied)
	}
	return role, nil
}
