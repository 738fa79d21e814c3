package httpapi

import (
	"net/http"
	"strings"

	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/identity"
	"memberhub.org/internal/rbac"
)

type signupRequest struct {
	AccessToken string `json:"accessToken"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Department  string `json:"department"`
}

type loginRequest struct {
	AccessToken string `json:"accessToken"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type authResponse struct {
	User   identity.Account   `json:"user"`
	Tokens identity.TokenPair `json:"tokens"`
}

// handleSignup registers a new member. Self-registration always lands on the
// member role; elevated roles are granted afterwards by an admin.
func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	if err := a.gate.Check(req.AccessToken); err != nil {
		handleServiceError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", "email and password are required")
		return
	}
	if req.Department != "" && !directory.ValidDepartment(req.Department) {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", "unknown department")
		return
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	displayName := strings.TrimSpace(req.FirstName + " " + req.LastName)
	if displayName == "" {
		displayName = email
	}
	acct, err := a.accounts.Create(r.Context(), identity.NewAccount{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		RoleClaim:    rbac.RoleMember.String(),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := a.dir.Put(r.Context(), directory.Profile{
		UID:        acct.ID,
		Email:      email,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Role:       rbac.RoleMember.String(),
		Department: req.Department,
		IsActive:   true,
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	pair, err := a.tokens.IssueTokens(r.Context(), acct)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	a.events.Record(r.Context(), audit.Event{
		Type:       audit.EventSignup,
		ActorID:    acct.ID,
		ActorEmail: email,
	})
	writeJSON(w, http.StatusCreated, authResponse{User: acct, Tokens: pair})
}

// handleLogin verifies credentials and ensures a directory record exists for
// the account, creating a default member record when absent.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	if err := a.gate.Check(req.AccessToken); err != nil {
		handleServiceError(w, r, err)
		return
	}

	pair, acct, err := a.tokens.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if _, err := a.dir.Get(r.Context(), acct.ID); err != nil {
		_ = a.dir.Put(r.Context(), directory.Profile{
			UID:      acct.ID,
			Email:    acct.Email,
			Role:     rbac.RoleMember.String(),
			IsActive: true,
		})
	}

	a.events.Record(r.Context(), audit.Event{
		Type:       audit.EventLogin,
		ActorID:    acct.ID,
		ActorEmail: acct.Email,
	})
	writeJSON(w, http.StatusOK, authResponse{User: acct, Tokens: pair})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", "refreshToken is required")
		return
	}
	pair, acct, err := a.tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: acct, Tokens: pair})
}

// handleLogout revokes the supplied refresh token, or every refresh token of
// the session's user when none is supplied.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor := actorFromRequest(r)
	if !actor.Authenticated() {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated", "you must be signed in")
		return
	}
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err == nil && req.RefreshToken != "" {
		if err := a.tokens.Revoke(r.Context(), req.RefreshToken); err != nil {
			handleServiceError(w, r, err)
			return
		}
	} else {
		if err := a.tokens.RevokeAll(r.Context(), actor.ID); err != nil {
			handleServiceError(w, r, err)
			return
		}
	}
	a.events.Record(r.Context(), audit.Event{
		Type:       audit.EventLogout,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handlePasswordReset acknowledges the request without revealing whether the
// email maps to an account.
func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", "email is required")
		return
	}
	a.events.Record(r.Context(), audit.Event{
		Type:        audit.EventPasswordResetRequested,
		ActorEmail:  email,
		Description: "password reset requested",
	})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "If the email is registered, reset instructions have been sent.",
	})
}
