package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is the durable key/value backing for carts.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Write stores every entry of set and removes del as one unit.
	Write(ctx context.Context, set map[string][]byte, del ...string) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	DefaultKeyPrefix = "storefront:"
	DefaultTTL       = 30 * 24 * time.Hour
)

type RedisStorage struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisStorage(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStorage {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStorage) Write(ctx context.Context, set map[string][]byte, del ...string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range set {
			pipe.Set(ctx, s.prefix+k, v, s.ttl)
		}
		if len(del) > 0 {
			pipe.Del(ctx, s.keys(del)...)
		}
		return nil
	})
	return err
}

func (s *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, s.keys(keys)...).Err()
}

func (s *RedisStorage) keys(keys []string) []string {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return full
}

// MemoryStorage keeps carts in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (s *MemoryStorage) Set(ctx context.Context, key string, value []byte) error {
	return s.Write(ctx, map[string][]byte{key: value})
}

func (s *MemoryStorage) Write(_ context.Context, set map[string][]byte, del ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range set {
		cp := make([]byte, len(v))
		copy(cp, v)
		s.data[k] = cp
	}
	for _, k := range del {
		delete(s.data, k)
	}
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}
