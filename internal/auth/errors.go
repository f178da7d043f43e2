package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")

	// ErrInvalidCredentials covers every login failure: unknown email, wrong
	// password, inactive account. One error so callers cannot probe which
	// accounts exist.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// Validation failures, in the order the validator checks them.
	ErrMalformedToken   = errors.New("auth: malformed token")
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrTokenRevoked     = errors.New("auth: token revoked")
	ErrSubjectInactive  = errors.New("auth: token subject inactive")

	// ErrRevocationUnavailable is returned when the revocation store cannot
	// answer. Validation fails closed on it, never open.
	ErrRevocationUnavailable = errors.New("auth: revocation check unavailable")

	// ErrInvalidRefreshToken is the deliberately coarse refresh failure; the
	// caller is not told whether the token was malformed, expired or revoked.
	ErrInvalidRefreshToken = errors.New("auth: invalid or expired refresh token")

	ErrAuthenticationRequired = errors.New("auth: authentication required")
	ErrAccountDeactivated     = errors.New("auth: account deactivated")
	ErrPermissionDenied       = errors.New("auth: permission denied")
)

// PermissionError is the deny result of a role check. It wraps
// ErrPermissionDenied and enumerates the roles the operation accepts.
type PermissionError struct {
	Required []Role
}

func (e *PermissionError) Error() string {
	names := make([]string, 0, len(e.Required))
	for _, r := range e.Required {
		names = append(names, strings.ToUpper(string(r)))
	}
	return fmt.Sprintf("insufficient permissions, required roles: [%s]", strings.Join(names, ", "))
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }
