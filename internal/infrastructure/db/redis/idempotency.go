package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers which project an Idempotency-Key produced.
// Key format: idem:project:<owner_id>:<key>
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore wraps client. Entries expire after ttl, or 24h when ttl <= 0.
func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Lookup returns the project id stored for key, or "" when none is stored.
func (s *IdempotencyStore) Lookup(ctx context.Context, ownerID, key string) (string, error) {
	id, err := s.client.Get(ctx, idempotencyKey(ownerID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("idempotency lookup: %w", err)
	}
	return id, nil
}

// Remember stores projectID for key unless a value is already present. It reports
// whether this call stored the value.
func (s *IdempotencyStore) Remember(ctx context.Context, ownerID, key, projectID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKey(ownerID, key), projectID, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency remember: %w", err)
	}
	return ok, nil
}

func idempotencyKey(ownerID, key string) string {
	return fmt.Sprintf("idem:project:%s:%s", ownerID, key)
}
