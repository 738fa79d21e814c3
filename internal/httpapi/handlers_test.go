package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"memberhub.org/internal/announce"
	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/identity"
	"memberhub.org/internal/project"
	"memberhub.org/internal/rbac"
	"memberhub.org/internal/stream"
)

const testInviteToken = "SOPS_Member2526"

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T

	dir      *directory.InMemory
	accounts *identity.InMemoryProvider
	trail    *audit.InMemoryTrail
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	dir := directory.NewInMemory()
	accounts := identity.NewInMemoryProvider()
	refresh := identity.NewInMemoryRefreshStore()
	trail := audit.NewInMemoryTrail()
	sink := audit.NewInMemoryEventSink()
	events := audit.NewRecorder(sink, nil)
	live := stream.New()

	tokens, err := identity.NewService(accounts, refresh, "test-secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	users := rbac.NewService(dir, accounts, trail, events)

	api := New(Deps{
		Version:  "test",
		Gate:     identity.NewGate(testInviteToken),
		Tokens:   tokens,
		Accounts: accounts,
		Dir:      dir,
		Users:    users,
		Board:    announce.NewService(users.Authority(), dir, announce.NewInMemory(), announce.NewInMemoryNotifications(), events, live),
		Projects: project.NewService(users.Authority(), project.NewInMemory(), events, live),
		Trail:    trail,
		Sink:     sink,
		Events:   events,
		Live:     live,
	})

	srv := httptest.NewServer(RequestID(api.Handler()))
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL:  srv.URL,
		client:   srv.Client(),
		t:        t,
		dir:      dir,
		accounts: accounts,
		trail:    trail,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, token string) *http.Response {
	return c.do(http.MethodPost, path, body, token)
}

func (c *apiClient) get(path string, params url.Values, token string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

type signupResult struct {
	uid   string
	token string
}

// signup registers a user through the gate and returns their uid and access
// token.
func (c *apiClient) signup(email string) signupResult {
	c.t.Helper()
	resp := c.post("/v1/auth/signup", map[string]any{
		"accessToken": testInviteToken,
		"email":       email,
		"password":    "hunter22",
		"firstName":   "Test",
		"lastName":    "User",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("signup %s: status %d", email, resp.StatusCode)
	}
	var payload struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Tokens struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode signup response: %v", err)
	}
	return signupResult{uid: payload.User.ID, token: payload.Tokens.AccessToken}
}

// signupAdmin registers a user then promotes them directly in both stores,
// the way the grant-admin tool does.
func (c *apiClient) signupAdmin(email string) signupResult {
	c.t.Helper()
	res := c.signup(email)
	ctx := c.t.Context()
	if err := c.accounts.SetRoleClaim(ctx, res.uid, "admin"); err != nil {
		c.t.Fatalf("set role claim: %v", err)
	}
	if err := c.dir.SetRole(ctx, res.uid, "admin"); err != nil {
		c.t.Fatalf("set directory role: %v", err)
	}
	return res
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestSignupGate(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/signup", map[string]any{
		"accessToken": "wrong-token",
		"email":       "x@org.test",
		"password":    "hunter22",
	}, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Error != "Invalid access token. Please contact your administrator." {
		t.Fatalf("gate message = %q", body.Error)
	}
	if body.Code != "permission-denied" {
		t.Fatalf("gate code = %q", body.Code)
	}

	// Correct token goes through.
	res := c.signup("x@org.test")
	if res.uid == "" || res.token == "" {
		t.Fatal("signup returned empty uid or token")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	c := newTestAPI(t)
	c.signup("dup@org.test")

	resp := c.post("/v1/auth/signup", map[string]any{
		"accessToken": testInviteToken,
		"email":       "dup@org.test",
		"password":    "hunter22",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestLoginFlow(t *testing.T) {
	c := newTestAPI(t)
	c.signup("user@org.test")

	resp := c.post("/v1/auth/login", map[string]any{
		"accessToken": testInviteToken,
		"email":       "user@org.test",
		"password":    "hunter22",
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	payload := decode[map[string]json.RawMessage](t, resp)
	if _, ok := payload["tokens"]; !ok {
		t.Fatal("login response missing tokens")
	}

	// Wrong password is unauthenticated, not a 500.
	resp = c.post("/v1/auth/login", map[string]any{
		"accessToken": testInviteToken,
		"email":       "user@org.test",
		"password":    "nope",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", resp.StatusCode)
	}
}

func TestSetRoleEndToEnd(t *testing.T) {
	c := newTestAPI(t)
	admin := c.signupAdmin("admin@org.test")
	member := c.signup("member@org.test")

	resp := c.post("/v1/users/"+member.uid+"/role", map[string]any{"role": "executive"}, admin.token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload := decode[map[string]string](t, resp)
	if payload["message"] != "User role updated to executive" {
		t.Fatalf("message = %q", payload["message"])
	}

	p, err := c.dir.Get(t.Context(), member.uid)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.Role != "executive" {
		t.Fatalf("role = %s, want executive", p.Role)
	}

	entries, _ := c.trail.List(t.Context(), 10)
	if len(entries) != 1 || entries[0].OldRole != "member" || entries[0].NewRole != "executive" {
		t.Fatalf("unexpected trail: %+v", entries)
	}
}

func TestSetRoleForbiddenForMember(t *testing.T) {
	c := newTestAPI(t)
	caller := c.signup("caller@org.test")
	target := c.signup("target@org.test")

	resp := c.post("/v1/users/"+target.uid+"/role", map[string]any{"role": "admin"}, caller.token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	p, _ := c.dir.Get(t.Context(), target.uid)
	if p.Role != "member" {
		t.Fatalf("denied call changed role to %s", p.Role)
	}
}

func TestSetRoleUnauthenticatedAndInvalid(t *testing.T) {
	c := newTestAPI(t)
	admin := c.signupAdmin("admin@org.test")
	target := c.signup("target@org.test")

	// No token at all.
	resp := c.post("/v1/users/"+target.uid+"/role", map[string]any{"role": "admin"}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	// Invalid role from an admin.
	resp = c.post("/v1/users/"+target.uid+"/role", map[string]any{"role": "owner"}, admin.token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid role status = %d, want 400", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Code != "invalid-argument" {
		t.Fatalf("code = %q, want invalid-argument", body.Code)
	}
}

func TestCreateUserEndToEnd(t *testing.T) {
	c := newTestAPI(t)
	admin := c.signupAdmin("admin@org.test")

	resp := c.post("/v1/users", map[string]any{
		"email":    "a@b.com",
		"password": "secret123",
		"role":     "executive",
	}, admin.token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	payload := decode[map[string]string](t, resp)
	uid := payload["uid"]
	if uid == "" {
		t.Fatal("no uid returned")
	}
	p, err := c.dir.Get(t.Context(), uid)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.Role != "executive" || !p.IsActive || p.Email != "a@b.com" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestDeleteUserAndSelf(t *testing.T) {
	c := newTestAPI(t)
	admin := c.signupAdmin("admin@org.test")
	victim := c.signup("victim@org.test")
	other := c.signup("other@org.test")

	// A member cannot delete someone else.
	resp := c.do(http.MethodDelete, "/v1/users/"+victim.uid, nil, other.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member delete status = %d, want 403", resp.StatusCode)
	}

	// Self-delete works for a plain member.
	resp = c.do(http.MethodDelete, "/v1/me", nil, other.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("self-delete status = %d, want 204", resp.StatusCode)
	}

	// Admin deletes the victim.
	resp = c.do(http.MethodDelete, "/v1/users/"+victim.uid, nil, admin.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("admin delete status = %d, want 204", resp.StatusCode)
	}
	if _, err := c.dir.Get(t.Context(), victim.uid); err == nil {
		t.Fatal("victim profile survived")
	}
}

func TestListUsersEndToEnd(t *testing.T) {
	c := newTestAPI(t)
	admin := c.signupAdmin("admin@org.test")
	member := c.signup("member@org.test")

	resp := c.get("/v1/users", nil, member.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member listing status = %d, want 403", resp.StatusCode)
	}

	resp = c.get("/v1/users", nil, admin.token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin listing status = %d, want 200", resp.StatusCode)
	}
	payload := decode[struct {
		Items []directory.Profile `json:"items"`
	}](t, resp)
	if len(payload.Items) != 2 {
		t.Fatalf("listed %d users, want 2", len(payload.Items))
	}
	for _, p := range payload.Items {
		if p.UID == "" {
			t.Fatal("listing omitted a uid")
		}
	}
}

func TestProfilePatchAndDeactivate(t *testing.T) {
	c := newTestAPI(t)
	user := c.signup("user@org.test")

	resp := c.do(http.MethodPatch, "/v1/me/profile", map[string]any{
		"department": "Recreation & Sports",
	}, user.token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, want 200", resp.StatusCode)
	}
	p := decode[directory.Profile](t, resp)
	if p.Department != "Recreation & Sports" {
		t.Fatalf("department = %q", p.Department)
	}

	resp = c.do(http.MethodPatch, "/v1/me/profile", map[string]any{
		"department": "Bogus",
	}, user.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus department status = %d, want 400", resp.StatusCode)
	}

	resp = c.post("/v1/me/deactivate", nil, user.token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate status = %d, want 200", resp.StatusCode)
	}
	p = decode[directory.Profile](t, resp)
	if p.IsActive {
		t.Fatal("profile still active after deactivation")
	}
}

func TestAuditEndpointAdminOnly(t *testing.T) {
	c := newTestAPI(t)
	admin := c.signupAdmin("admin@org.test")
	member := c.signup("member@org.test")

	resp := c.post("/v1/users/"+member.uid+"/role", map[string]any{"role": "executive"}, admin.token)
	resp.Body.Close()

	resp = c.get("/v1/audit", nil, member.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member audit status = %d, want 403", resp.StatusCode)
	}

	resp = c.get("/v1/audit", nil, admin.token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin audit status = %d, want 200", resp.StatusCode)
	}
	payload := decode[struct {
		Items []audit.Entry `json:"items"`
	}](t, resp)
	if len(payload.Items) != 1 {
		t.Fatalf("audit items = %d, want 1", len(payload.Items))
	}
}

func TestAnnouncementsEndToEnd(t *testing.T) {
	c := newTestAPI(t)
	admin := c.signupAdmin("admin@org.test")
	member := c.signup("member@org.test")

	resp := c.post("/v1/announcements", map[string]any{
		"title":   "Town Hall",
		"content": "Friday 6pm",
	}, member.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member post status = %d, want 403", resp.StatusCode)
	}

	resp = c.post("/v1/announcements", map[string]any{
		"title":   "Town Hall",
		"content": "Friday 6pm",
	}, admin.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin post status = %d, want 201", resp.StatusCode)
	}

	// The member got a notification from the fan-out.
	resp = c.get("/v1/notifications", nil, member.token)
	payload := decode[struct {
		Items []announce.Notification `json:"items"`
	}](t, resp)
	if len(payload.Items) != 1 {
		t.Fatalf("notifications = %d, want 1", len(payload.Items))
	}
}

func TestHealthAndInfoArePublic(t *testing.T) {
	c := newTestAPI(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := c.get(path, nil, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
