package identity

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// GateMessage is shown verbatim to anyone who fails the invite check.
const GateMessage = "Invalid access token. Please contact your administrator."

// ErrBadInvite rejects sign-in/sign-up attempts without the shared token.
var ErrBadInvite = errors.New(GateMessage)

// Gate is the shared-secret check run before any sign-in or sign-up proceeds.
// The token is an organizational invite, not a per-user credential: passing
// it proves the caller was handed the invite, nothing about who they are.
type Gate struct {
	token string
}

// NewGate builds a gate around the configured invite token.
func NewGate(token string) *Gate {
	return &Gate{token: strings.TrimSpace(token)}
}

// Check compares the trimmed input against the expected value. It has no
// side effects; on failure the surrounding identity operation must not run.
func (g *Gate) Check(supplied string) error {
	supplied = strings.TrimSpace(supplied)
	if g.token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(g.token)) != 1 {
		return ErrBadInvite
	}
	return nil
}
