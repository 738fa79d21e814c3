package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/rbac"
)

type setRoleRequest struct {
	Role string `json:"role"`
}

type createUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type profilePatchRequest struct {
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Department *string `json:"department"`
	PhotoURL   *string `json:"photoUrl"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleUserResource dispatches /v1/users/{id} and /v1/users/{id}/role.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "not-found", "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.deleteUser(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "role":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.setRole(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "not-found", "resource not found")
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.ListUsers(r.Context(), actorFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	uid, err := a.users.CreateUser(r.Context(), actorFromRequest(r), rbac.CreateUserRequest{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", uid))
	writeJSON(w, http.StatusCreated, map[string]any{"uid": uid})
}

func (a *API) setRole(w http.ResponseWriter, r *http.Request, targetID string) {
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	msg, err := a.users.SetRole(r.Context(), actorFromRequest(r), targetID, req.Role)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, targetID string) {
	if err := a.users.DeleteUser(r.Context(), actorFromRequest(r), targetID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe serves DELETE /v1/me, the self-service account deletion.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if err := a.users.DeleteSelf(r.Context(), actorFromRequest(r)); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMyProfile(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if !actor.Authenticated() {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated", "you must be signed in")
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := a.dir.Get(r.Context(), actor.ID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPatch:
		var req profilePatchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
			return
		}
		if req.Department != nil && *req.Department != "" && !directory.ValidDepartment(*req.Department) {
			writeError(w, r, http.StatusBadRequest, "invalid-argument", "unknown department")
			return
		}
		p, err := a.dir.Update(r.Context(), actor.ID, directory.ProfileUpdate{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Department: req.Department,
			PhotoURL:   req.PhotoURL,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.events.Record(r.Context(), audit.Event{
			Type:       audit.EventProfileUpdate,
			ActorID:    actor.ID,
			ActorEmail: actor.Email,
		})
		writeJSON(w, http.StatusOK, p)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

// handleDeactivate flips the caller's profile to inactive. The identity stays
// so an admin can reactivate or clean up later.
func (a *API) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor := actorFromRequest(r)
	if !actor.Authenticated() {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated", "you must be signed in")
		return
	}
	inactive := false
	p, err := a.dir.Update(r.Context(), actor.ID, directory.ProfileUpdate{IsActive: &inactive})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.events.Record(r.Context(), audit.Event{
		Type:       audit.EventProfileDeactivated,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
	})
	writeJSON(w, http.StatusOK, p)
}

// handleRoleAudit lists the role change trail, newest first. Admin only.
func (a *API) handleRoleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor := actorFromRequest(r)
	if err := a.users.Authority().RequireAdmin(r.Context(), actor, "only administrators can view the audit trail"); err != nil {
		handleServiceError(w, r, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	entries, err := a.trail.List(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// handleSystemEvents lists the best-effort system log. Admin only.
func (a *API) handleSystemEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor := actorFromRequest(r)
	if err := a.users.Authority().RequireAdmin(r.Context(), actor, "only administrators can view system events"); err != nil {
		handleServiceError(w, r, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	events, err := a.sink.List(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func parseLimit(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 100, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 1 || val > 1000 {
		return 0, fmt.Errorf("limit must be between 1 and 1000")
	}
	return val, nil
}
