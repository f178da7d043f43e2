package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of roles an identity may hold. Membership checks are
// by identity: admin does not imply user unless an operation lists both.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole normalizes raw input into a known role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

func (r Role) String() string { return string(r) }

// TokenKind distinguishes the two halves of an issued pair.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

const (
	identityStatusActive   = "active"
	identityStatusDisabled = "disabled"
)

// Identity is an account record. Deactivation is a soft delete: the row is
// never removed while tokens or owned records still reference it.
type Identity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Claims is the decoded, verified payload of a token. It is produced once by
// the validator; nothing downstream re-derives role from the identity record.
type Claims struct {
	SubjectID string
	Role      Role
	TokenID   string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal pairs verified claims with the identity they resolved to.
type Principal struct {
	Identity Identity
	Claims   Claims
}

// TokenPair carries the two tokens minted by a single issuance event.
// The tokens share a subject but never a token id.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// OutstandingToken records an issued token so that its id can be revoked
// before natural expiry. Refresh tokens are recorded at issuance; access
// tokens only when logout needs a revocation key for them.
type OutstandingToken struct {
	TokenID   string
	SubjectID string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IdentityUpdate describes a partial identity mutation. Nil fields are left
// untouched.
type IdentityUpdate struct {
	Name     *string
	Email    *string
	Password *string
}
