package httpapi

import (
	"net/http"
	"strings"

	"memberhub.org/internal/announce"
	"memberhub.org/internal/project"
)

func (a *API) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
			return
		}
		items, err := a.board.List(r.Context(), actorFromRequest(r), limit)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req announce.CreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
			return
		}
		item, err := a.board.Create(r.Context(), actorFromRequest(r), req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/announcements/"+item.ID)
		writeJSON(w, http.StatusCreated, item)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAnnouncementResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/announcements/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not-found", "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if err := a.board.Delete(r.Context(), actorFromRequest(r), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}
	items, err := a.board.Notifications(r.Context(), actorFromRequest(r), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleNotificationResource serves POST /v1/notifications/{id}/read.
func (a *API) handleNotificationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/notifications/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "read" || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "not-found", "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := a.board.MarkNotificationRead(r.Context(), actorFromRequest(r), parts[0]); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.projects.List(r.Context(), actorFromRequest(r))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req project.CreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
			return
		}
		item, err := a.projects.Create(r.Context(), actorFromRequest(r), req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/projects/"+item.ID)
		writeJSON(w, http.StatusCreated, item)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/projects/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not-found", "resource not found")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req project.Update
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
			return
		}
		item, err := a.projects.Update(r.Context(), actorFromRequest(r), id, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := a.projects.Delete(r.Context(), actorFromRequest(r), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
	}
}
