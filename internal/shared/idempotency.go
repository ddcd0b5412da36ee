package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

const idempotencyPrefix = "opticien:idem"

// IdempotencyGuard holds request keys in Redis so a replayed write is
// rejected while the first one is in flight or after it succeeded.
type IdempotencyGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewIdempotencyGuard constructs the guard. Keys expire after ttl.
func NewIdempotencyGuard(client redis.UniversalClient, ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyGuard{client: client, ttl: ttl}
}

// Acquire claims key for module. The key must be a UUID.
func (g *IdempotencyGuard) Acquire(ctx context.Context, key, module string) error {
	if g == nil || g.client == nil {
		return errors.New("idempotency guard not initialised")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	if _, err := uuid.Parse(key); err != nil {
		return NewValidationError("idempotency_key", "must be a UUID")
	}
	ok, err := g.client.SetNX(ctx, g.redisKey(key, module), time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return fmt.Errorf("shared: idempotency acquire: %w", err)
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release drops a key, used when processing failed so the client may retry.
func (g *IdempotencyGuard) Release(ctx context.Context, key, module string) error {
	if g == nil || g.client == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	return g.client.Del(ctx, g.redisKey(key, module)).Err()
}

func (g *IdempotencyGuard) redisKey(key, module string) string {
	return fmt.Sprintf("%s:%s:%s", idempotencyPrefix, module, key)
}
