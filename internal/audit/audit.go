// Package audit records security-relevant actions: an append-only role audit
// trail written strictly as part of the role-mutation protocol, and a
// general-purpose system event log written best-effort after the fact.
package audit

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an audit record is absent.
var ErrNotFound = errors.New("audit: not found")

// RoleUnknown is recorded when the prior role cannot be resolved.
const RoleUnknown = "unknown"

// Entry is an immutable record of one role change. Entries are only ever
// appended; nothing in this codebase updates or deletes one.
type Entry struct {
	ID             string    `json:"id"`
	TargetUserID   string    `json:"targetUserId"`
	ChangedBy      string    `json:"changedBy"`
	ChangedByEmail string    `json:"changedByEmail"`
	OldRole        string    `json:"oldRole"`
	NewRole        string    `json:"newRole"`
	Note           string    `json:"note,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Trail is the append-only store of role changes.
type Trail interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// System event types.
const (
	EventSignup                 = "signup"
	EventLogin                  = "login"
	EventLogout                 = "logout"
	EventRoleChange             = "role_change"
	EventUserCreated            = "user_created"
	EventUserDeleted            = "user_deleted"
	EventProfileUpdate          = "profile_update"
	EventProfileDeactivated     = "profile_deactivated"
	EventProfileDeleted         = "profile_deleted"
	EventAnnouncementCreate     = "announcement_create"
	EventProjectCreate          = "project_create"
	EventProjectUpdate          = "project_update"
	EventProjectDelete          = "project_delete"
	EventPasswordResetRequested = "password_reset_requested"
)

// Event is one system log entry, used for activity observability.
type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	ActorID      string    `json:"actorId,omitempty"`
	ActorEmail   string    `json:"actorEmail,omitempty"`
	TargetUserID string    `json:"targetUserId,omitempty"`
	Description  string    `json:"description,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// EventSink persists system events.
type EventSink interface {
	Append(ctx context.Context, e *Event) error
	List(ctx context.Context, limit int) ([]Event, error)
}

// Publisher pushes events to an external consumer (broker queue).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
