package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"notevault.org/internal/auth"
	"notevault.org/internal/notes"
)

type testEnv struct {
	server      *httptest.Server
	revocations *auth.MemoryRevocationStore
	authSvc     *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	identities := auth.NewMemoryIdentityStore()
	outstanding := auth.NewMemoryOutstandingStore()
	revocations := auth.NewMemoryRevocationStore()

	authSvc, err := auth.NewService([]byte("0123456789abcdef0123456789abcdef"),
		identities, outstanding, revocations, auth.WithIssuerName("notevault"))
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	notesSvc, err := notes.NewService(notes.NewMemoryStore())
	if err != nil {
		t.Fatalf("notes service: %v", err)
	}

	api := New(Options{
		Auth:    authSvc,
		Notes:   notesSvc,
		Version: "test",
	})
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	return &testEnv{
		server:      server,
		revocations: revocations,
		authSvc:     authSvc,
	}
}

// call sends a JSON request and decodes the JSON response body.
func (e *testEnv) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode, decoded
}

func (e *testEnv) registerUser(t *testing.T, name, email string) (access, refresh, id string) {
	t.Helper()
	status, body := e.call(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "correct horse",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body = %v", status, body)
	}
	tokens := body["tokens"].(map[string]any)
	user := body["user"].(map[string]any)
	return tokens["access_token"].(string), tokens["refresh_token"].(string), user["id"].(string)
}

func (e *testEnv) seedAdmin(t *testing.T) (access string, id string) {
	t.Helper()
	access, _, id = e.registerUser(t, "Admin", "admin@example.com")
	if _, err := e.authSvc.SetRole(context.Background(), id, auth.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	// Re-login so the access token carries the admin role.
	status, body := e.call(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email": "admin@example.com", "password": "correct horse",
	})
	if status != http.StatusOK {
		t.Fatalf("admin login status = %d", status)
	}
	return body["tokens"].(map[string]any)["access_token"].(string), id
}

func errorCode(body map[string]any) string {
	code, _ := body["error"].(string)
	return code
}

func TestHealthEndpointsArePublic(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		status, _ := e.call(t, http.MethodGet, path, "", nil)
		if status != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, status)
		}
	}
}

func TestProtectedRoutesRequireAuthentication(t *testing.T) {
	e := newTestEnv(t)
	status, body := e.call(t, http.MethodGet, "/v1/notes", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if errorCode(body) != codeAuthenticationRequired {
		t.Fatalf("code = %q, want %q", errorCode(body), codeAuthenticationRequired)
	}
}

func TestRegisterLoginAndNotesFlow(t *testing.T) {
	e := newTestEnv(t)
	access, _, _ := e.registerUser(t, "Alice", "alice@example.com")

	status, body := e.call(t, http.MethodPost, "/v1/notes", access, map[string]any{
		"name": "groceries", "description": "milk, eggs",
	})
	if status != http.StatusCreated {
		t.Fatalf("create note status = %d, body = %v", status, body)
	}
	noteID := body["note"].(map[string]any)["id"].(string)

	status, body = e.call(t, http.MethodGet, "/v1/notes", access, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if got := len(body["notes"].([]any)); got != 1 {
		t.Fatalf("listed %d notes, want 1", got)
	}

	// Another user cannot see or even confirm the note exists.
	otherAccess, _, _ := e.registerUser(t, "Bob", "bob@example.com")
	status, body = e.call(t, http.MethodGet, "/v1/notes/"+noteID, otherAccess, nil)
	if status != http.StatusNotFound {
		t.Fatalf("foreign note status = %d, want 404", status)
	}
	if errorCode(body) != codeNotFound {
		t.Fatalf("code = %q, want %q", errorCode(body), codeNotFound)
	}

	status, _ = e.call(t, http.MethodDelete, "/v1/notes/"+noteID, access, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", status)
	}
}

func TestAdminEndpointsDenyRegularUsers(t *testing.T) {
	e := newTestEnv(t)
	access, _, id := e.registerUser(t, "Alice", "alice@example.com")

	paths := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/v1/users", nil},
		{http.MethodGet, "/v1/admin/notes", nil},
		{http.MethodPost, "/v1/admin/tokens/purge", nil},
		{http.MethodPut, "/v1/users/" + id + "/role", map[string]any{"role": "admin"}},
	}
	for _, p := range paths {
		status, body := e.call(t, p.method, p.path, access, p.body)
		if status != http.StatusForbidden {
			t.Fatalf("%s %s status = %d, want 403", p.method, p.path, status)
		}
		if errorCode(body) != codePermissionDenied {
			t.Fatalf("%s %s code = %q, want %q", p.method, p.path, errorCode(body), codePermissionDenied)
		}
	}
}

func TestAdminEndpointsAllowAdmins(t *testing.T) {
	e := newTestEnv(t)
	userAccess, _, _ := e.registerUser(t, "Alice", "alice@example.com")
	adminAccess, _ := e.seedAdmin(t)

	if status, _ := e.call(t, http.MethodPost, "/v1/notes", userAccess, map[string]any{"name": "groceries"}); status != http.StatusCreated {
		t.Fatalf("create note status = %d", status)
	}

	status, body := e.call(t, http.MethodGet, "/v1/users", adminAccess, nil)
	if status != http.StatusOK {
		t.Fatalf("list users status = %d, body = %v", status, body)
	}
	if got := len(body["users"].([]any)); got != 2 {
		t.Fatalf("listed %d users, want 2", got)
	}

	status, body = e.call(t, http.MethodGet, "/v1/admin/notes", adminAccess, nil)
	if status != http.StatusOK {
		t.Fatalf("admin notes status = %d", status)
	}
	if got := len(body["notes"].([]any)); got != 1 {
		t.Fatalf("admin listing sees %d notes, want 1", got)
	}
}

func TestUserAccessIsSelfOrAdmin(t *testing.T) {
	e := newTestEnv(t)
	aliceAccess, _, aliceID := e.registerUser(t, "Alice", "alice@example.com")
	bobAccess, _, _ := e.registerUser(t, "Bob", "bob@example.com")
	adminAccess, _ := e.seedAdmin(t)

	if status, _ := e.call(t, http.MethodGet, "/v1/users/"+aliceID, aliceAccess, nil); status != http.StatusOK {
		t.Fatalf("self read status = %d, want 200", status)
	}
	if status, _ := e.call(t, http.MethodGet, "/v1/users/"+aliceID, adminAccess, nil); status != http.StatusOK {
		t.Fatalf("admin read status = %d, want 200", status)
	}
	status, body := e.call(t, http.MethodGet, "/v1/users/"+aliceID, bobAccess, nil)
	if status != http.StatusForbidden {
		t.Fatalf("foreign read status = %d, want 403", status)
	}
	if errorCode(body) != codePermissionDenied {
		t.Fatalf("code = %q", errorCode(body))
	}
}

func TestRoleChangeTakesEffectOnRefresh(t *testing.T) {
	e := newTestEnv(t)
	access, refresh, id := e.registerUser(t, "Alice", "alice@example.com")
	adminAccess, _ := e.seedAdmin(t)

	status, _ := e.call(t, http.MethodPut, "/v1/users/"+id+"/role", adminAccess, map[string]any{"role": "admin"})
	if status != http.StatusOK {
		t.Fatalf("role change status = %d", status)
	}

	// The old access token still carries the old role.
	if status, _ := e.call(t, http.MethodGet, "/v1/users", access, nil); status != http.StatusForbidden {
		t.Fatalf("stale token status = %d, want 403", status)
	}

	status, body := e.call(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	if status != http.StatusOK {
		t.Fatalf("refresh status = %d", status)
	}
	fresh := body["tokens"].(map[string]any)["access_token"].(string)
	if status, _ := e.call(t, http.MethodGet, "/v1/users", fresh, nil); status != http.StatusOK {
		t.Fatalf("refreshed token status = %d, want 200", status)
	}
}

func TestRefreshRotation(t *testing.T) {
	e := newTestEnv(t)
	_, refresh, _ := e.registerUser(t, "Alice", "alice@example.com")

	status, _ := e.call(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	if status != http.StatusOK {
		t.Fatalf("refresh status = %d", status)
	}

	status, body := e.call(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	if status != http.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", status)
	}
	if errorCode(body) != codeInvalidRefreshToken {
		t.Fatalf("code = %q, want %q", errorCode(body), codeInvalidRefreshToken)
	}
}

func TestLogoutInvalidatesTokens(t *testing.T) {
	e := newTestEnv(t)
	access, refresh, _ := e.registerUser(t, "Alice", "alice@example.com")

	status, _ := e.call(t, http.MethodPost, "/v1/auth/logout", access, map[string]any{"refresh_token": refresh})
	if status != http.StatusOK {
		t.Fatalf("logout status = %d", status)
	}

	status, body := e.call(t, http.MethodGet, "/v1/notes", access, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("post-logout status = %d, want 401", status)
	}
	if errorCode(body) != codeInvalidToken {
		t.Fatalf("code = %q, want %q", errorCode(body), codeInvalidToken)
	}
}

func TestDeactivationInvalidatesLiveTokens(t *testing.T) {
	e := newTestEnv(t)
	access, _, id := e.registerUser(t, "Alice", "alice@example.com")

	status, _ := e.call(t, http.MethodDelete, "/v1/users/"+id, access, nil)
	if status != http.StatusNoContent {
		t.Fatalf("deactivate status = %d, want 204", status)
	}

	status, body := e.call(t, http.MethodGet, "/v1/notes", access, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("post-deactivation status = %d, want 401", status)
	}
	if errorCode(body) != codeInvalidToken {
		t.Fatalf("code = %q, want %q", errorCode(body), codeInvalidToken)
	}
}

func TestRevocationOutageFailsClosed(t *testing.T) {
	e := newTestEnv(t)
	access, _, _ := e.registerUser(t, "Alice", "alice@example.com")

	e.revocations.Err = errors.New("connection refused")
	status, body := e.call(t, http.MethodGet, "/v1/notes", access, nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", status)
	}
	if errorCode(body) != codeRevocationUnavailable {
		t.Fatalf("code = %q, want %q", errorCode(body), codeRevocationUnavailable)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	e := newTestEnv(t)
	e.registerUser(t, "Alice", "alice@example.com")

	status, body := e.call(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "wrong password",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if errorCode(body) != codeInvalidCredentials {
		t.Fatalf("code = %q, want %q", errorCode(body), codeInvalidCredentials)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.call(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Alice", "email": "alice@example.com", "password": "short",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if errorCode(body) != codeInvalidInput {
		t.Fatalf("code = %q, want %q", errorCode(body), codeInvalidInput)
	}

	status, body = e.call(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Alice", "email": "alice@example.com", "password": "correct horse", "extra": true,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want 400", status)
	}
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	e := newTestEnv(t)
	e.registerUser(t, "Alice", "alice@example.com")

	status, body := e.call(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Alice Again", "email": "alice@example.com", "password": "correct horse",
	})
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", status)
	}
	if errorCode(body) != codeAlreadyExists {
		t.Fatalf("code = %q, want %q", errorCode(body), codeAlreadyExists)
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	e := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodGet, e.server.URL+"/v1/notes", nil)
	req.Header.Set("X-Request-Id", "req-42")
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id header = %q, want req-42", got)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["request_id"] != "req-42" {
		t.Fatalf("request_id in body = %v, want req-42", body["request_id"])
	}
}
