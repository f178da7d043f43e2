package httpapi

import (
	"net/http"

	"notevault.org/internal/audit"
	"notevault.org/internal/auth"
	"notevault.org/internal/obs"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	User   *auth.Identity `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}

	pair, identity, err := a.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	_ = a.events.Publish(r.Context(), "user.registered", identity.ID, map[string]any{
		"subject_id": identity.ID,
		"email":      identity.Email,
	})
	_ = audit.LogEvent(r.Context(), "auth.user.registered", map[string]any{
		"subject_id": identity.ID,
	})

	writeJSON(w, http.StatusCreated, sessionResponse{User: identity, Tokens: pair})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}

	pair, identity, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.ObserveLogin("failure")
		_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
			"email": auth.NormalizeEmail(req.Email),
		})
		writeAuthError(w, r, err)
		return
	}
	obs.ObserveLogin("success")

	_ = a.events.Publish(r.Context(), "user.logged_in", identity.ID, map[string]any{
		"subject_id": identity.ID,
	})
	_ = audit.LogEvent(r.Context(), "auth.login.succeeded", map[string]any{
		"subject_id": identity.ID,
	})

	writeJSON(w, http.StatusOK, sessionResponse{User: identity, Tokens: pair})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "refresh_token is required")
		return
	}

	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": pair})
}

// handleLogout takes the access token from the Authorization header (the
// authentication middleware already accepted it) and the refresh token from
// the body, and revokes both.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeAuthError(w, r, auth.ErrAuthenticationRequired)
		return
	}

	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "refresh_token is required")
		return
	}

	rawAccess, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeAuthError(w, r, auth.ErrAuthenticationRequired)
		return
	}

	if err := a.auth.Logout(r.Context(), rawAccess, req.RefreshToken); err != nil {
		writeAuthError(w, r, err)
		return
	}

	_ = a.events.Publish(r.Context(), "user.logged_out", principal.Identity.ID, map[string]any{
		"subject_id": principal.Identity.ID,
	})
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"subject_id": principal.Identity.ID,
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}
