package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestStartRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()
	client := StartRedis(t)

	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, "a", "1", time.Minute)
		pipe.Del(ctx, "b")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "1", client.Get(ctx, "a").Val())
}

func TestStartRabbitMQ(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ch, err := StartRabbitMQ(t).Channel()
	require.NoError(t, err)
	require.NoError(t, ch.Close())
}

func TestFakeRedis_TxPipelined(t *testing.T) {
	ctx := context.Background()
	f := NewFakeRedis()
	require.NoError(t, f.Set(ctx, "old", "x", 0).Err())

	cmds, err := f.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, "new", []byte("y"), time.Hour)
		pipe.Del(ctx, "old")
		return nil
	})
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	require.True(t, f.Has("new"))
	require.Equal(t, time.Hour, f.ExpiryOf("new"))
	require.False(t, f.Has("old"))

	f.Err = errors.New("down")
	_, err = f.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, "new")
		return nil
	})
	require.Error(t, err)
	f.Err = nil
	require.True(t, f.Has("new"))
}
