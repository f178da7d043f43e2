package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validator verifies presented tokens. Checks run in a fixed order and
// short-circuit on the first failure: structure, signature, expiry,
// revocation, subject liveness.
type Validator struct {
	secret      []byte
	issuer      string
	identities  IdentityStore
	revocations RevocationStore
	now         func() time.Time
}

// NewValidator constructs a Validator sharing the issuer's secret.
func NewValidator(secret []byte, identities IdentityStore, revocations RevocationStore) (*Validator, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is required", ErrInvalidInput)
	}
	if identities == nil || revocations == nil {
		return nil, fmt.Errorf("%w: identity and revocation stores are required", ErrInvalidInput)
	}
	return &Validator{
		secret:      secret,
		identities:  identities,
		revocations: revocations,
		now:         time.Now,
	}, nil
}

// Validate verifies the raw token and resolves its subject. The revocation
// read happens on every call; if the revocation store cannot answer, the
// token is rejected with ErrRevocationUnavailable rather than trusted.
func (v *Validator) Validate(ctx context.Context, raw string) (*Principal, error) {
	claims, err := v.parseSigned(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := v.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	identity, err := v.identities.Find(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSubjectInactive
		}
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	if !identity.Active {
		return nil, ErrSubjectInactive
	}

	return &Principal{Identity: *identity, Claims: *claims}, nil
}

// ValidateKind is Validate restricted to a single token kind.
func (v *Validator) ValidateKind(ctx context.Context, raw string, kind TokenKind) (*Principal, error) {
	principal, err := v.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}
	if principal.Claims.Kind != kind {
		return nil, fmt.Errorf("%w: not a %s token", ErrMalformedToken, kind)
	}
	return principal, nil
}

// parseSigned covers the stateless part of validation: structure, signature
// and expiry. It never consults a store, so logout can use it to recover a
// token id from an already-revoked token.
func (v *Validator) parseSigned(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformedToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrMalformedToken
		}
	}

	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if strings.TrimSpace(tc.Subject) == "" || strings.TrimSpace(tc.ID) == "" {
		return nil, ErrMalformedToken
	}
	role, err := ParseRole(tc.Role)
	if err != nil {
		return nil, ErrMalformedToken
	}
	kind := TokenKind(tc.Kind)
	if kind != KindAccess && kind != KindRefresh {
		return nil, ErrMalformedToken
	}
	if tc.ExpiresAt == nil || tc.IssuedAt == nil {
		return nil, ErrMalformedToken
	}

	return &Claims{
		SubjectID: tc.Subject,
		Role:      role,
		TokenID:   tc.ID,
		Kind:      kind,
		IssuedAt:  tc.IssuedAt.Time,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}
