// Package identity manages credential-level accounts: email/password records,
// the role claim attached to them, and token issuance. The role claim is the
// credential's copy of the role; the directory profile stays authoritative
// and the two are kept in lockstep by the rbac mutation protocol.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("identity: account not found")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// Account is a provider-level identity record.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	RoleClaim    string    `json:"role"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewAccount carries the fields needed to create an account. The password
// arrives pre-hashed; plaintext never crosses this boundary.
type NewAccount struct {
	Email        string
	PasswordHash string
	DisplayName  string
	RoleClaim    string
}

// Provider persists identity accounts.
type Provider interface {
	// Create stores a new account, returning ErrEmailTaken on duplicates.
	Create(ctx context.Context, acct NewAccount) (Account, error)
	// Get returns an account by id or ErrNotFound.
	Get(ctx context.Context, id string) (Account, error)
	// FindByEmail returns an account by normalized email or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (Account, error)
	// SetRoleClaim updates the role claim on the credential.
	SetRoleClaim(ctx context.Context, id, role string) error
	// Delete removes the account and its credentials.
	Delete(ctx context.Context, id string) error
}

// RefreshToken is a persisted, hashed refresh credential.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// RefreshTokenStore manages refresh token lifecycle.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)
	MarkRevoked(ctx context.Context, id string) error
	MarkRevokedByUser(ctx context.Context, userID string) error
}
