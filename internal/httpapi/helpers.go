package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"notevault.org/internal/audit"
	"notevault.org/internal/auth"
	"notevault.org/internal/notes"
	"notevault.org/internal/obs"
)

// Error codes surfaced to clients. Status mapping lives in writeAuthError.
const (
	codeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	codeAccountDeactivated     = "ACCOUNT_DEACTIVATED"
	codePermissionDenied       = "PERMISSION_DENIED"
	codeInvalidCredentials     = "INVALID_CREDENTIALS"
	codeInvalidToken           = "INVALID_TOKEN"
	codeInvalidRefreshToken    = "INVALID_OR_EXPIRED_REFRESH_TOKEN"
	codeRevocationUnavailable  = "REVOCATION_CHECK_UNAVAILABLE"
	codeInvalidInput           = "INVALID_INPUT"
	codeAlreadyExists          = "ALREADY_EXISTS"
	codeNotFound               = "NOT_FOUND"
	codeInternal               = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	payload := map[string]any{
		"error":   code,
		"message": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}

// writeAuthError maps the auth taxonomy onto HTTP statuses:
// authentication failures 401, authorization failures 403, credential
// failures 401, revocation-store outage 503, everything unexpected 500.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var permErr *auth.PermissionError
	switch {
	case errors.Is(err, auth.ErrAuthenticationRequired):
		writeError(w, r, http.StatusUnauthorized, codeAuthenticationRequired, "Authentication required")
	case errors.Is(err, auth.ErrAccountDeactivated):
		writeError(w, r, http.StatusForbidden, codeAccountDeactivated, "Account is deactivated")
	case errors.As(err, &permErr):
		writeError(w, r, http.StatusForbidden, codePermissionDenied, permErr.Error())
	case errors.Is(err, auth.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, codePermissionDenied, "Insufficient permissions")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, codeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		writeError(w, r, http.StatusUnauthorized, codeInvalidRefreshToken, "Invalid or expired refresh token")
	case errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrSubjectInactive):
		writeError(w, r, http.StatusUnauthorized, codeInvalidToken, "Token is not valid")
	case errors.Is(err, auth.ErrRevocationUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, codeRevocationUnavailable, "Revocation check unavailable")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, codeAlreadyExists, "Resource already exists")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, "Not found")
	default:
		obs.LogRequest(map[string]any{"level": "error", "msg": "unexpected auth error", "err": err.Error()})
		writeError(w, r, http.StatusInternalServerError, codeInternal, "Internal error")
	}
}

func writeNotesError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, notes.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, notes.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, "Note not found")
	default:
		obs.LogRequest(map[string]any{"level": "error", "msg": "unexpected notes error", "err": err.Error()})
		writeError(w, r, http.StatusInternalServerError, codeInternal, "Internal error")
	}
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
