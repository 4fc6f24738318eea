// Package idempotency rejects duplicate submissions that share a client key.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "storefront:idem:"
	DefaultTTL = 24 * time.Hour
)

var ErrDuplicate = errors.New("duplicate request")

type Guard struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewGuard(client redis.Cmdable, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{client: client, ttl: ttl}
}

func redisKey(scope, key string) string {
	return keyPrefix + scope + ":" + key
}

// Acquire claims key within scope. ErrDuplicate means the key is already in
// flight or has completed within the TTL.
func (g *Guard) Acquire(ctx context.Context, scope, key string) error {
	ok, err := g.client.SetNX(ctx, redisKey(scope, key), "1", g.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// Release frees a key so a failed request can be resubmitted.
func (g *Guard) Release(ctx context.Context, scope, key string) error {
	return g.client.Del(ctx, redisKey(scope, key)).Err()
}
