package auth

import (
	"context"
	"fmt"
	"strings"
)

// Identity management used by the user endpoints. These operate on the same
// store the validator resolves principals from, so a deactivation here takes
// effect on the next token validation.

func (s *Service) ListIdentities(ctx context.Context) ([]*Identity, error) {
	return s.identities.List(ctx)
}

func (s *Service) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	return s.identities.Find(ctx, id)
}

// UpdateIdentity applies a partial profile update. A password change is
// re-hashed here; email goes through the same normalization as registration.
func (s *Service) UpdateIdentity(ctx context.Context, id string, upd IdentityUpdate) (*Identity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Email != nil {
		email := NormalizeEmail(*upd.Email)
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Password != nil {
		if len(*upd.Password) < 8 {
			return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
		}
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		upd.Password = &hash
	}
	return s.identities.Update(ctx, id, upd)
}

// SetRole assigns one of the known roles. Already-issued tokens keep their
// embedded role until they expire or are refreshed.
func (s *Service) SetRole(ctx context.Context, id string, role Role) (*Identity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	return s.identities.UpdateRole(ctx, id, role)
}

// DeactivateIdentity soft-deletes the account. Existing tokens start failing
// subject resolution immediately; no per-token revocation is needed.
func (s *Service) DeactivateIdentity(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	return s.identities.Deactivate(ctx, id)
}
