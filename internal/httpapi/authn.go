package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"notevault.org/internal/audit"
	"notevault.org/internal/auth"
	"notevault.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth authenticates every non-public request exactly once: bearer
// extraction, token validation (including the revocation read) and principal
// resolution. Handlers downstream only ever see the typed principal.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.ObserveValidation("missing")
			writeAuthError(w, r, auth.ErrAuthenticationRequired)
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			obs.ObserveValidation(validationOutcome(err))
			_ = audit.LogEvent(r.Context(), "auth.token.rejected", map[string]any{
				"path":   r.URL.Path,
				"reason": validationOutcome(err),
			})
			writeAuthError(w, r, err)
			return
		}
		obs.ObserveValidation("ok")

		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), *principal)))
	})
}

// RequireRoles declares the required-role-set for a handler or a whole
// sub-router. The declaration is static; the decision is always made by
// auth.Authorize, in its fixed order, regardless of where the middleware is
// mounted.
func RequireRoles(required ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := auth.PrincipalFromContext(r.Context())
			if err := auth.Authorize(principal, required...); err != nil {
				reason := denialReason(err)
				obs.ObserveDenial(reason)
				fields := map[string]any{
					"path":   r.URL.Path,
					"reason": reason,
				}
				if principal != nil {
					fields["role"] = string(principal.Claims.Role)
				}
				_ = audit.LogEvent(r.Context(), "auth.access.denied", fields)
				writeAuthError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

func validationOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "bad_signature"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, auth.ErrSubjectInactive):
		return "subject_inactive"
	case errors.Is(err, auth.ErrRevocationUnavailable):
		return "revocation_unavailable"
	default:
		return "error"
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrAuthenticationRequired):
		return "authentication_required"
	case errors.Is(err, auth.ErrAccountDeactivated):
		return "account_deactivated"
	case errors.Is(err, auth.ErrPermissionDenied):
		return "permission_denied"
	default:
		return "error"
	}
}
