// Package rbac is the portal's authorization core: the role model, the
// authority that decides who may act on whom, and the privileged mutation
// protocol that changes roles and accounts while keeping the audit trail.
package rbac

import (
	"fmt"
	"strings"
)

// Role is the single authorization dimension in the portal. Every user has
// exactly one role at any time.
type Role string

const (
	RoleMember    Role = "member"
	RoleExecutive Role = "executive"
	RoleAdmin     Role = "admin"
)

// AllowedRoles lists every valid role, in escalation order.
var AllowedRoles = []Role{RoleMember, RoleExecutive, RoleAdmin}

// Valid reports whether r is in the allowed set.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleExecutive, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(strings.ToLower(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: role must be one of: %s", ErrInvalidArgument, roleList())
	}
	return r, nil
}

func roleList() string {
	parts := make([]string, len(AllowedRoles))
	for i, r := range AllowedRoles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
