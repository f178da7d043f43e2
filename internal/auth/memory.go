package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"notevault.org/internal/ids"
)

var (
	_ IdentityStore    = (*MemoryIdentityStore)(nil)
	_ OutstandingStore = (*MemoryOutstandingStore)(nil)
	_ RevocationStore  = (*MemoryRevocationStore)(nil)
)

// MemoryIdentityStore is an in-memory IdentityStore for tests and local runs.
type MemoryIdentityStore struct {
	mu    sync.RWMutex
	items map[string]Identity
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{items: make(map[string]Identity)}
}

func (s *MemoryIdentityStore) Create(_ context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity.ID == "" {
		identity.ID = ids.New()
	}
	for _, existing := range s.items {
		if existing.Email == identity.Email {
			return ErrAlreadyExists
		}
	}
	if _, ok := s.items[identity.ID]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	s.items[identity.ID] = *identity
	return nil
}

func (s *MemoryIdentityStore) Find(_ context.Context, id string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &identity, nil
}

func (s *MemoryIdentityStore) FindByEmail(_ context.Context, email string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.items {
		if identity.Email == email {
			identity := identity
			return &identity, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryIdentityStore) List(_ context.Context) ([]*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Identity, 0, len(s.items))
	for _, identity := range s.items {
		identity := identity
		res = append(res, &identity)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *MemoryIdentityStore) Update(_ context.Context, id string, upd IdentityUpdate) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Email != nil {
		for otherID, other := range s.items {
			if otherID != id && other.Email == *upd.Email {
				return nil, ErrAlreadyExists
			}
		}
		identity.Email = *upd.Email
	}
	if upd.Name != nil {
		identity.Name = *upd.Name
	}
	if upd.Password != nil {
		identity.PasswordHash = *upd.Password
	}
	identity.UpdatedAt = time.Now().UTC()
	s.items[id] = identity
	return &identity, nil
}

func (s *MemoryIdentityStore) UpdateRole(_ context.Context, id string, role Role) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	identity.Role = role
	identity.UpdatedAt = time.Now().UTC()
	s.items[id] = identity
	return &identity, nil
}

func (s *MemoryIdentityStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	identity.Active = false
	identity.UpdatedAt = time.Now().UTC()
	s.items[id] = identity
	return nil
}

// MemoryOutstandingStore is an in-memory OutstandingStore.
type MemoryOutstandingStore struct {
	mu    sync.RWMutex
	items map[string]OutstandingToken
}

func NewMemoryOutstandingStore() *MemoryOutstandingStore {
	return &MemoryOutstandingStore{items: make(map[string]OutstandingToken)}
}

func (s *MemoryOutstandingStore) Insert(_ context.Context, tok OutstandingToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[tok.TokenID]; ok {
		return nil
	}
	s.items[tok.TokenID] = tok
	return nil
}

func (s *MemoryOutstandingStore) Find(_ context.Context, tokenID string) (*OutstandingToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.items[tokenID]
	if !ok {
		return nil, ErrNotFound
	}
	return &tok, nil
}

func (s *MemoryOutstandingStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, tok := range s.items {
		if tok.ExpiresAt.Before(before) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

// MemoryRevocationStore is an in-memory RevocationStore. Expiry is evaluated
// lazily on read; Err, when set, makes every call fail so callers can test
// fail-closed behavior.
type MemoryRevocationStore struct {
	mu    sync.RWMutex
	items map[string]time.Time
	now   func() time.Time

	Err error
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{items: make(map[string]time.Time), now: time.Now}
}

// SetClock overrides the time source used for TTL expiry.
func (s *MemoryRevocationStore) SetClock(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = fn
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID, _ string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	s.items[tokenID] = s.now().UTC().Add(ttl)
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return false, s.Err
	}
	until, ok := s.items[tokenID]
	if !ok {
		return false, nil
	}
	return s.now().UTC().Before(until), nil
}
