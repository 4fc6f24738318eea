package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultProductTTL = 5 * time.Minute

// CachedRepository serves GetProduct from Redis and falls through to the
// wrapped repository on a miss or any cache error.
type CachedRepository struct {
	Repository

	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRepository(next Repository, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultProductTTL
	}
	return &CachedRepository{Repository: next, client: client, ttl: ttl, logger: logger}
}

func productKey(id int64) string {
	return "storefront:product:" + strconv.FormatInt(id, 10)
}

func (r *CachedRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	key := productKey(id)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Product
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		r.logger.Warn("product cache entry unreadable", "key", key)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("product cache get failed", "key", key, "err", err)
	}

	p, err := r.Repository.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if b, err := json.Marshal(p); err == nil {
		if err := r.client.Set(ctx, key, b, r.ttl).Err(); err != nil {
			r.logger.Warn("product cache set failed", "key", key, "err", err)
		}
	}
	return p, nil
}

// Invalidate drops cached products, e.g. after their inventory changed.
func (r *CachedRepository) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return r.client.Del(ctx, keys...).Err()
}
