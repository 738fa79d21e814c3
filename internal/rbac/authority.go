package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memberhub.org/internal/directory"
)

// Actor identifies the caller of a privileged operation, as established by
// the session layer. An empty ID means the caller is unauthenticated.
type Actor struct {
	ID    string
	Email string
}

// Authenticated reports whether the actor carries a verified identity.
func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.ID) != ""
}

// Authority decides whether an actor may perform a privileged action. The
// actor's role is resolved from the role store on every call; a
// client-supplied or session-cached role is never trusted, because the
// client UI is not a trust boundary.
type Authority struct {
	dir directory.Store
}

// NewAuthority builds an authority over the given role store.
func NewAuthority(dir directory.Store) *Authority {
	return &Authority{dir: dir}
}

// ResolveRole looks up the actor's current role. A missing profile resolves
// to member, the least-privileged role.
func (a *Authority) ResolveRole(ctx context.Context, userID string) (Role, error) {
	p, err := a.dir.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return RoleMember, nil
		}
		return "", fmt.Errorf("resolve role: %w", err)
	}
	role := Role(p.Role)
	if !role.Valid() {
		return RoleMember, nil
	}
	return role, nil
}

// RequireAdmin permits the action only for authenticated admins. The denial
// message is caller-visible, so it names the action being refused.
func (a *Authority) RequireAdmin(ctx context.Context, actor Actor, denial string) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: you must be signed in", ErrUnauthenticated)
	}
	role, err := a.ResolveRole(ctx, actor.ID)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, denial)
	}
	return nil
}

// AuthorizeDelete permits deleting targetID when the actor targets their own
// account (always allowed once authenticated) or holds the admin role.
func (a *Authority) AuthorizeDelete(ctx context.Context, actor Actor, targetID string) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: you must be signed in", ErrUnauthenticated)
	}
	if targetID != "" && targetID == actor.ID {
		return nil
	}
	role, err := a.ResolveRole(ctx, actor.ID)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return fmt.Errorf("%w: only administrators can delete other users", ErrPermissionDenied)
	}
	return nil
}
