package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 14 * 24 * time.Hour
)

// tokenClaims is the wire shape of both token kinds.
type tokenClaims struct {
	Role string `json:"role"`
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Issuer mints signed access/refresh pairs. The signing secret is read-only
// after construction and safe to share across goroutines.
type Issuer struct {
	secret      []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
	outstanding OutstandingStore
}

// NewIssuer constructs an Issuer. The outstanding store receives a record for
// every refresh token at issuance so logout and rotation have a revocation key.
func NewIssuer(secret []byte, outstanding OutstandingStore) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is required", ErrInvalidInput)
	}
	if outstanding == nil {
		return nil, fmt.Errorf("%w: outstanding store is required", ErrInvalidInput)
	}
	return &Issuer{
		secret:      secret,
		accessTTL:   defaultAccessTTL,
		refreshTTL:  defaultRefreshTTL,
		now:         time.Now,
		outstanding: outstanding,
	}, nil
}

// Issue mints a fresh access/refresh pair for the identity. The two tokens
// never share a token id; jti collisions across calls are cryptographically
// negligible (random UUIDs, not a counter). Issuance does not touch the
// revocation set.
func (i *Issuer) Issue(ctx context.Context, identity Identity) (TokenPair, error) {
	now := i.now().UTC()

	access, accessExp, err := i.sign(identity, KindAccess, uuid.NewString(), now, i.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshID := uuid.NewString()
	refresh, refreshExp, err := i.sign(identity, KindRefresh, refreshID, now, i.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	rec := OutstandingToken{
		TokenID:   refreshID,
		SubjectID: identity.ID,
		Kind:      KindRefresh,
		IssuedAt:  now,
		ExpiresAt: refreshExp,
	}
	if err := i.outstanding.Insert(ctx, rec); err != nil {
		return TokenPair{}, fmt.Errorf("record refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *Issuer) sign(identity Identity, kind TokenKind, jti string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := tokenClaims{
		Role: string(identity.Role),
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
