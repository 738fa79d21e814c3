// Package directory holds the per-user profile records that back every
// application-level authorization decision. A profile's role field is the
// authoritative copy; the identity provider's role claim mirrors it.
package directory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("directory: profile not found")
	ErrConflict = errors.New("directory: profile already exists")
)

// Profile is one record in the role store, keyed by the identity id.
type Profile struct {
	UID        string    `json:"uid"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	PhotoURL   string    `json:"photoUrl,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the self-service editable fields. Role and email are
// deliberately absent: role moves only through the mutation protocol and
// email is immutable after creation.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Department *string
	PhotoURL   *string
	IsActive   *bool
}

// Store persists profiles.
type Store interface {
	// Get returns the profile for uid or ErrNotFound.
	Get(ctx context.Context, uid string) (Profile, error)
	// Put merge-upserts a profile keyed by UID. Calling it twice with the
	// same data must not duplicate the record or clobber unrelated fields.
	Put(ctx context.Context, p Profile) error
	// SetRole updates only the role field, returning ErrNotFound for
	// unknown uids.
	SetRole(ctx context.Context, uid, role string) error
	// Update applies the non-nil fields of upd and returns the result.
	Update(ctx context.Context, uid string, upd ProfileUpdate) (Profile, error)
	// Delete removes the profile. Deleting an absent profile is not an error:
	// the caller's goal state is "no record".
	Delete(ctx context.Context, uid string) error
	// List returns every profile.
	List(ctx context.Context) ([]Profile, error)
}

// Departments is the fixed set a profile's department may take.
var Departments = []string{
	"Media Relations & Creatives",
	"Events & Logistics",
	"Student Services & Academics",
	"Social Engagement & External Affairs",
	"Recreation & Sports",
}

// ValidDepartment reports whether dept is empty or one of the fixed set.
func ValidDepartment(dept string) bool {
	if dept == "" {
		return true
	}
	for _, d := range Departments {
		if d == dept {
			return true
		}
	}
	return false
}
