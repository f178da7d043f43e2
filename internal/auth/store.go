package auth

import (
	"context"
	"time"
)

// IdentityStore is the persistence contract for accounts.
type IdentityStore interface {
	Create(ctx context.Context, id *Identity) error
	Find(ctx context.Context, id string) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	List(ctx context.Context) ([]*Identity, error)
	Update(ctx context.Context, id string, upd IdentityUpdate) (*Identity, error)
	UpdateRole(ctx context.Context, id string, role Role) (*Identity, error)
	Deactivate(ctx context.Context, id string) error
}

// OutstandingStore tracks issued token ids so they can be revoked before
// natural expiry. Insert is idempotent on token id.
type OutstandingStore interface {
	Insert(ctx context.Context, tok OutstandingToken) error
	Find(ctx context.Context, tokenID string) (*OutstandingToken, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RevocationStore is the durable set of revoked token ids. Revoke is
// idempotent; IsRevoked is read on every token validation, so implementations
// must answer with read-your-writes consistency or return an error (the
// validator treats errors as fail-closed).
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID, subjectID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
