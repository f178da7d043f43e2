package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"notevault.org/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRolesWithoutPrincipal(t *testing.T) {
	h := RequireRoles(auth.RoleAdmin)(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRolesDeniesWrongRole(t *testing.T) {
	h := RequireRoles(auth.RoleAdmin)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	principal := auth.Principal{
		Identity: auth.Identity{ID: "id-1", Active: true, Role: auth.RoleUser},
		Claims:   auth.Claims{SubjectID: "id-1", Role: auth.RoleUser},
	}
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireRolesDeniesDeactivated(t *testing.T) {
	h := RequireRoles()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/notes", nil)
	principal := auth.Principal{
		Identity: auth.Identity{ID: "id-1", Active: false, Role: auth.RoleAdmin},
		Claims:   auth.Claims{SubjectID: "id-1", Role: auth.RoleAdmin},
	}
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireRolesAllows(t *testing.T) {
	h := RequireRoles(auth.RoleAdmin, auth.RoleUser)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/notes", nil)
	principal := auth.Principal{
		Identity: auth.Identity{ID: "id-1", Active: true, Role: auth.RoleUser},
		Claims:   auth.Claims{SubjectID: "id-1", Role: auth.RoleUser},
	}
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"plain", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"lowercase scheme", "bearer abc.def.ghi", "abc.def.ghi", false},
		{"surrounding space", "  Bearer abc.def.ghi  ", "abc.def.ghi", false},
		{"empty", "", "", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", true},
		{"scheme only", "Bearer ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractBearerToken(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublicPaths(t *testing.T) {
	for _, p := range []string{"/healthz", "/readyz", "/metrics", "/v1/auth/login", "/v1/info"} {
		if !isPublicPath(p) {
			t.Fatalf("%s should be public", p)
		}
	}
	for _, p := range []string{"/v1/notes", "/v1/users", "/v1/auth/logout", "/v1/admin/notes"} {
		if isPublicPath(p) {
			t.Fatalf("%s should require authentication", p)
		}
	}
}
