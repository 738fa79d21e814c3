// Package project tracks organization projects and their progress.
package project

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("project: not found")

// Known project statuses. Stored as free-form strings but validated on write.
const (
	StatusPlanning  = "planning"
	StatusActive    = "active"
	StatusOnHold    = "on-hold"
	StatusCompleted = "completed"
)

// Project is one tracked initiative.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Department  string    `json:"department,omitempty"`
	Progress    int       `json:"progress"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Update carries a partial project edit. Nil fields are left unchanged.
type Update struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Department  *string `json:"department,omitempty"`
	Progress    *int    `json:"progress,omitempty"`
}

// Store persists projects.
type Store interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	Update(ctx context.Context, id string, u Update, at time.Time) (*Project, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Project, error)
}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPlanning, StatusActive, StatusOnHold, StatusCompleted:
		return true
	}
	return false
}
