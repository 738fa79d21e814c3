// Package announce holds organization-wide announcements and the per-member
// notifications they generate.
package announce

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an announcement or notification does not exist.
	ErrNotFound = errors.New("announce: not found")
)

// Announcement is a message posted to the whole organization.
type Announcement struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByName string    `json:"createdByName,omitempty"`
	AuthorRole    string    `json:"authorRole,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Notification is a per-member copy of an announcement (or other portal event).
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists announcements.
type Store interface {
	Create(ctx context.Context, a *Announcement) error
	List(ctx context.Context, limit int) ([]*Announcement, error)
	Delete(ctx context.Context, id string) error
}

// NotificationStore persists per-member notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}
