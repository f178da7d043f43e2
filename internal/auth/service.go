package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notevault.org/internal/ids"
)

// Service orchestrates login, refresh and logout over the identity,
// outstanding-token and revocation stores.
type Service struct {
	identities  IdentityStore
	outstanding OutstandingStore
	revocations RevocationStore
	issuer      *Issuer
	validator   *Validator
	now         func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuerName sets the iss claim embedded into and required from tokens.
func WithIssuerName(name string) ServiceOption {
	return func(s *Service) error {
		name = strings.TrimSpace(name)
		s.issuer.issuer = name
		s.validator.issuer = name
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.issuer.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.issuer.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
			s.issuer.now = fn
			s.validator.now = fn
		}
		return nil
	}
}

// NewService wires the issuer and validator over the given stores. The secret
// is loaded once at startup and never changes afterwards.
func NewService(secret []byte, identities IdentityStore, outstanding OutstandingStore, revocations RevocationStore, opts ...ServiceOption) (*Service, error) {
	if identities == nil {
		return nil, fmt.Errorf("%w: identity store is required", ErrInvalidInput)
	}
	issuer, err := NewIssuer(secret, outstanding)
	if err != nil {
		return nil, err
	}
	validator, err := NewValidator(secret, identities, revocations)
	if err != nil {
		return nil, err
	}
	svc := &Service{
		identities:  identities,
		outstanding: outstanding,
		revocations: revocations,
		issuer:      issuer,
		validator:   validator,
		now:         time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Validator exposes the token validator for callers that only authenticate.
func (s *Service) Validator() *Validator { return s.validator }

// VerifyCredentials checks an email/password pair against the identity store.
// Unknown email, wrong password and deactivated account are indistinguishable
// to the caller.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if !identity.Active {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(identity.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}

// Login verifies credentials and issues a fresh token pair. Verifier failures
// are returned verbatim.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, *Identity, error) {
	identity, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := s.issuer.Issue(ctx, *identity)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, identity, nil
}

// Register creates a new active identity with the user role and issues its
// first token pair.
func (s *Service) Register(ctx context.Context, name, email, password string) (TokenPair, *Identity, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" {
		return TokenPair{}, nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return TokenPair{}, nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return TokenPair{}, nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return TokenPair{}, nil, err
	}
	identity := &Identity{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		Active:       true,
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := s.issuer.Issue(ctx, *identity)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, identity, nil
}

// Authenticate validates a presented access token and resolves its principal.
func (s *Service) Authenticate(ctx context.Context, rawAccess string) (*Principal, error) {
	return s.validator.ValidateKind(ctx, rawAccess, KindAccess)
}

// Refresh exchanges a valid refresh token for a fresh pair. The identity is
// re-resolved so a role change since issuance lands in the new tokens. The
// old refresh token id is revoked before the new pair is minted
// (rotation-on-use), so a replayed refresh token fails with ErrTokenRevoked
// inside the coarse refresh error.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (TokenPair, error) {
	principal, err := s.validator.ValidateKind(ctx, rawRefresh, KindRefresh)
	if err != nil {
		if errors.Is(err, ErrRevocationUnavailable) {
			return TokenPair{}, err
		}
		return TokenPair{}, ErrInvalidRefreshToken
	}

	remaining := principal.Claims.ExpiresAt.Sub(s.now().UTC())
	if err := s.revocations.Revoke(ctx, principal.Claims.TokenID, principal.Claims.SubjectID, remaining); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}

	return s.issuer.Issue(ctx, principal.Identity)
}

// Logout revokes the refresh token id and makes the presented access token
// unusable immediately. Access tokens are not tracked at issuance, so an
// outstanding record is inserted first to give the revocation a key. Calling
// Logout twice with the same tokens reaches the same end state without error.
func (s *Service) Logout(ctx context.Context, rawAccess, rawRefresh string) error {
	refreshClaims, err := s.validator.parseSigned(rawRefresh)
	if err != nil || refreshClaims.Kind != KindRefresh {
		return ErrInvalidRefreshToken
	}

	now := s.now().UTC()
	if err := s.revocations.Revoke(ctx, refreshClaims.TokenID, refreshClaims.SubjectID, refreshClaims.ExpiresAt.Sub(now)); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}

	accessClaims, err := s.validator.parseSigned(rawAccess)
	if err != nil || accessClaims.Kind != KindAccess {
		// An unparseable or already-expired access token cannot validate
		// anyway; the refresh revocation above is what matters.
		return nil
	}
	rec := OutstandingToken{
		TokenID:   accessClaims.TokenID,
		SubjectID: accessClaims.SubjectID,
		Kind:      KindAccess,
		IssuedAt:  accessClaims.IssuedAt,
		ExpiresAt: accessClaims.ExpiresAt,
	}
	if err := s.outstanding.Insert(ctx, rec); err != nil {
		return fmt.Errorf("record access token: %w", err)
	}
	if err := s.revocations.Revoke(ctx, accessClaims.TokenID, accessClaims.SubjectID, accessClaims.ExpiresAt.Sub(now)); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	return nil
}

// PurgeExpired removes outstanding records whose tokens can no longer
// validate. Retention past expiry is an optimization concern, not a
// correctness one; this runs from maintenance paths only.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.outstanding.DeleteExpired(ctx, s.now().UTC())
}

// NormalizeEmail lower-cases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
