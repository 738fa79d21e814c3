package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/identity"
	"memberhub.org/internal/obs"
)

// Service is the role-mutation protocol: the only code path that changes a
// user's role or account state. Each operation is one request/response unit;
// authorization and validation fail fast with no partial effects, while a
// backend failure mid-mutation fails the whole call even though an earlier
// sub-step may have landed (callers must re-check state, not assume no-op).
type Service struct {
	authority *Authority
	dir       directory.Store
	idp       identity.Provider
	trail     audit.Trail
	events    *audit.Recorder
	now       func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the mutation protocol over its collaborators.
func NewService(dir directory.Store, idp identity.Provider, trail audit.Trail, events *audit.Recorder, opts ...ServiceOption) *Service {
	s := &Service{
		authority: NewAuthority(dir),
		dir:       dir,
		idp:       idp,
		trail:     trail,
		events:    events,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authority exposes the decision logic for callers that only need checks.
func (s *Service) Authority() *Authority { return s.authority }

// SetRole changes the target's role in both places it lives: the identity
// provider's role claim and the directory record. The two must stay
// consistent, so a failure of either write fails the operation. A successful
// change appends exactly one audit entry whose old role is the directory
// value read just before the write.
func (s *Service) SetRole(ctx context.Context, actor Actor, targetID, rawRole string) (string, error) {
	if err := s.authority.RequireAdmin(ctx, actor, "only administrators can change user roles"); err != nil {
		return "", err
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return "", fmt.Errorf("%w: both uid and role are required", ErrInvalidArgument)
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		return "", err
	}

	// Capture the prior role before anything changes; tolerate "unknown".
	oldRole := audit.RoleUnknown
	if prior, err := s.dir.Get(ctx, targetID); err == nil && prior.Role != "" {
		oldRole = prior.Role
	}

	if err := s.idp.SetRoleClaim(ctx, targetID, role.String()); err != nil {
		return "", fmt.Errorf("update role claim: %w", err)
	}
	if err := s.dir.SetRole(ctx, targetID, role.String()); err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			return "", fmt.Errorf("update role record: %w", err)
		}
		// No directory record yet: create one carrying just the role,
		// mirroring a merge-set on an absent document.
		if err := s.dir.Put(ctx, directory.Profile{UID: targetID, Role: role.String(), IsActive: true}); err != nil {
			return "", fmt.Errorf("update role record: %w", err)
		}
	}

	entry := audit.Entry{
		TargetUserID:   targetID,
		ChangedBy:      actor.ID,
		ChangedByEmail: actor.Email,
		OldRole:        oldRole,
		NewRole:        role.String(),
		OccurredAt:     s.now().UTC(),
	}
	if err := s.trail.Append(ctx, &entry); err != nil {
		return "", fmt.Errorf("append role audit entry: %w", err)
	}

	obs.CountRoleChange(role.String())
	s.events.Record(ctx, audit.Event{
		Type:         audit.EventRoleChange,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		TargetUserID: targetID,
		Description:  fmt.Sprintf("role changed from %s to %s", oldRole, role),
	})

	return fmt.Sprintf("User role updated to %s", role), nil
}

// CreateUserRequest carries the admin-creation fields. Role defaults to
// member when empty.
type CreateUserRequest struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       string
	Department string
}

// CreateUser provisions an identity with the given role and its directory
// profile in one logical step. The profile write is a merge-upsert, so a
// retried call cannot duplicate the record.
func (s *Service) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (string, error) {
	if err := s.authority.RequireAdmin(ctx, actor, "only administrators can create users"); err != nil {
		return "", err
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return "", fmt.Errorf("%w: email and password are required", ErrInvalidArgument)
	}
	if req.Role == "" {
		req.Role = RoleMember.String()
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		return "", err
	}
	if !directory.ValidDepartment(req.Department) {
		return "", fmt.Errorf("%w: unknown department %q", ErrInvalidArgument, req.Department)
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	displayName := strings.TrimSpace(req.FirstName + " " + req.LastName)
	if displayName == "" {
		displayName = req.Email
	}
	acct, err := s.idp.Create(ctx, identity.NewAccount{
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  displayName,
		RoleClaim:    role.String(),
	})
	if err != nil {
		return "", fmt.Errorf("create identity: %w", err)
	}

	if err := s.dir.Put(ctx, directory.Profile{
		UID:        acct.ID,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       role.String(),
		Department: req.Department,
		IsActive:   true,
	}); err != nil {
		return "", fmt.Errorf("create profile record: %w", err)
	}

	s.events.Record(ctx, audit.Event{
		Type:         audit.EventUserCreated,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		TargetUserID: acct.ID,
		Description:  fmt.Sprintf("created with role %s", role),
	})

	return acct.ID, nil
}

// DeleteUser removes the target's directory record and identity. Admins may
// delete anyone; every authenticated user may delete themselves. Both
// deletions are attempted in order and either failure fails the call.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, targetID string) error {
	targetID = strings.TrimSpace(targetID)
	if err := s.authority.AuthorizeDelete(ctx, actor, targetID); err != nil {
		return err
	}
	if targetID == "" {
		return fmt.Errorf("%w: uid is required", ErrInvalidArgument)
	}

	if err := s.dir.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("delete profile record: %w", err)
	}
	if err := s.idp.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	s.events.Record(ctx, audit.Event{
		Type:         audit.EventUserDeleted,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		TargetUserID: targetID,
	})
	return nil
}

// DeleteSelf removes the caller's own account; authentication is the only
// requirement.
func (s *Service) DeleteSelf(ctx context.Context, actor Actor) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: you must be signed in", ErrUnauthenticated)
	}
	return s.DeleteUser(ctx, actor, actor.ID)
}

// ListUsers returns every directory record, identity key included. No
// field-level redaction happens here; presentation decides what to show.
func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]directory.Profile, error) {
	if err := s.authority.RequireAdmin(ctx, actor, "only administrators can view all users"); err != nil {
		return nil, err
	}
	return s.dir.List(ctx)
}
