// Package httpapi is the HTTP layer: routing, middleware, error mapping and
// the server-sent event stream.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"memberhub.org/internal/announce"
	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/identity"
	"memberhub.org/internal/obs"
	"memberhub.org/internal/project"
	"memberhub.org/internal/rbac"
	"memberhub.org/internal/stream"
)

// ReadyProbe checks downstream readiness (DB ping when one is configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the portal services.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	gate     *identity.Gate
	tokens   *identity.Service
	accounts identity.Provider
	dir      directory.Store
	users    *rbac.Service
	board    *announce.Service
	projects *project.Service
	trail    audit.Trail
	sink     audit.EventSink
	events   *audit.Recorder
	live     *stream.Stream
}

// Deps carries everything the API serves.
type Deps struct {
	Ready    ReadyProbe
	Version  string
	Gate     *identity.Gate
	Tokens   *identity.Service
	Accounts identity.Provider
	Dir      directory.Store
	Users    *rbac.Service
	Board    *announce.Service
	Projects *project.Service
	Trail    audit.Trail
	Sink     audit.EventSink
	Events   *audit.Recorder
	Live     *stream.Stream
}

// New builds the API and registers all routes.
func New(d Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: d.Ready,
		version:    d.Version,
		gate:       d.Gate,
		tokens:     d.Tokens,
		accounts:   d.Accounts,
		dir:        d.Dir,
		users:      d.Users,
		board:      d.Board,
		projects:   d.Projects,
		trail:      d.Trail,
		sink:       d.Sink,
		events:     d.Events,
		live:       d.Live,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/reset-password", a.handlePasswordReset)

	// users and roles
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/me/profile", a.handleMyProfile)
	a.mux.HandleFunc("/v1/me/deactivate", a.handleDeactivate)

	// portal content
	a.mux.HandleFunc("/v1/announcements", a.handleAnnouncements)
	a.mux.HandleFunc("/v1/announcements/", a.handleAnnouncementResource)
	a.mux.HandleFunc("/v1/notifications", a.handleNotifications)
	a.mux.HandleFunc("/v1/notifications/", a.handleNotificationResource)
	a.mux.HandleFunc("/v1/projects", a.handleProjectsCollection)
	a.mux.HandleFunc("/v1/projects/", a.handleProjectResource)

	// audit (admin)
	a.mux.HandleFunc("/v1/audit", a.handleRoleAudit)
	a.mux.HandleFunc("/v1/audit/events", a.handleSystemEvents)

	// live events
	a.mux.HandleFunc("/v1/events", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "memberhub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "memberhub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, kind, msg string) {
	payload := map[string]any{
		"error": msg,
		"code":  kind,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "invalid-argument", "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleServiceError maps domain errors onto HTTP statuses and error kinds.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rbac.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, rbac.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, "permission-denied", err.Error())
	case errors.Is(err, rbac.ErrInvalidArgument):
		writeError(w, r, http.StatusBadRequest, "invalid-argument", err.Error())
	case errors.Is(err, identity.ErrBadInvite):
		writeError(w, r, http.StatusForbidden, "permission-denied", identity.GateMessage)
	case errors.Is(err, identity.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, "already-exists", err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, directory.ErrNotFound),
		errors.Is(err, identity.ErrNotFound),
		errors.Is(err, announce.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, audit.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not-found", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error: "+err.Error())
	}
}

// actorFromRequest extracts the authenticated actor. An empty Actor means the
// request carried no valid session; the services translate that to an
// unauthenticated error so authorization precedence stays in one place.
func actorFromRequest(r *http.Request) rbac.Actor {
	sess, ok := identity.SessionFromContext(r.Context())
	if !ok {
		return rbac.Actor{}
	}
	return rbac.Actor{ID: sess.UserID, Email: sess.Email}
}
