package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartRedis returns a client for a throwaway Redis server.
func StartRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	})

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

// FakeRedis implements the handful of string commands the storefront uses.
// Calling any other redis.Cmdable method panics.
type FakeRedis struct {
	redis.Cmdable

	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration

	// Err, when set, is returned by every command.
	Err error
}

func NewFakeRedis() *FakeRedis {
	return &FakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *FakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewStringResult("", f.Err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *FakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewStatusResult("", f.Err)
	}
	f.data[key] = toString(value)
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *FakeRedis) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewBoolResult(false, f.Err)
	}
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = toString(value)
	f.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *FakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewIntResult(0, f.Err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
			delete(f.data, k)
			delete(f.ttl, k)
		}
	}
	return redis.NewIntResult(n, nil)
}

// TxPipelined queues the Set and Del calls made by fn and applies them
// together. With Err set nothing is applied.
func (f *FakeRedis) TxPipelined(_ context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	pipe := &fakePipe{}
	if err := fn(pipe); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, op := range pipe.ops {
		for _, k := range op.del {
			delete(f.data, k)
			delete(f.ttl, k)
		}
		if op.key != "" {
			f.data[op.key] = op.value
			f.ttl[op.key] = op.ttl
		}
	}
	return pipe.cmds, nil
}

type pipeOp struct {
	key   string
	value string
	ttl   time.Duration
	del   []string
}

type fakePipe struct {
	redis.Pipeliner

	ops  []pipeOp
	cmds []redis.Cmder
}

func (p *fakePipe) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	p.ops = append(p.ops, pipeOp{key: key, value: toString(value), ttl: expiration})
	cmd := redis.NewStatusCmd(ctx, "set", key)
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipe) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	p.ops = append(p.ops, pipeOp{del: keys})
	cmd := redis.NewIntCmd(ctx, "del")
	p.cmds = append(p.cmds, cmd)
	return cmd
}

// Has reports whether key is present.
func (f *FakeRedis) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *FakeRedis) ExpiryOf(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttl[key]
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		panic("FakeRedis: unsupported value type")
	}
}
