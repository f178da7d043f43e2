package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ RevocationStore = (*RedisRevocationStore)(nil)

const (
	blacklistPrefix = "blacklist:"

	// minRevocationTTL keeps a key around briefly even when the token is at
	// the edge of natural expiry, covering clock skew between processes.
	minRevocationTTL = time.Minute

	defaultRevocationTimeout = 2 * time.Second
)

// RedisRevocationStore keeps revoked token ids in Redis. A single
// authoritative instance gives every process read-your-writes visibility:
// once Revoke returns, IsRevoked answers true everywhere. Keys carry a TTL
// clamped to the token's remaining lifetime, so records purge themselves once
// the token could no longer validate anyway.
type RedisRevocationStore struct {
	client  redis.UniversalClient
	timeout time.Duration
}

func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, timeout: defaultRevocationTimeout}
}

// Revoke marks the token id unusable. Revoking an already-revoked id is a
// no-op, not an error.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID, subjectID string, ttl time.Duration) error {
	if tokenID == "" {
		return fmt.Errorf("%w: token id is required", ErrInvalidInput)
	}
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	revokedAt := time.Now().UTC().Format(time.RFC3339)
	if err := s.client.Set(ctx, blacklistPrefix+tokenID, subjectID+"|"+revokedAt, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id has been revoked. Errors propagate
// to the caller; the validator fails closed on them.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.client.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return n > 0, nil
}
