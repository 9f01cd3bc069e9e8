package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, nil, zerolog.Nop())
}

func TestRedisGetSetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestRedis(t)

	_, err := store.Get(ctx, "portal:notifications")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "portal:notifications", []byte(`[{"id":"1"}]`)))

	value, err := store.Get(ctx, "portal:notifications")
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"1"}]`, string(value))

	require.NoError(t, store.Delete(ctx, "portal:notifications"))
	_, err = store.Get(ctx, "portal:notifications")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSubscribeObservesWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestRedis(t)

	var fired atomic.Int64
	unsubscribe, err := store.Subscribe(ctx, "portal:announcements", func() {
		fired.Add(1)
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, store.Set(ctx, "portal:announcements", []byte(`[]`)))

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Changes to other keys never reach this subscription.
	require.NoError(t, store.Set(ctx, "portal:timetable:10", []byte(`{}`)))
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, fired.Load())
}

func TestRedisUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	store := newTestRedis(t)

	var fired atomic.Int64
	unsubscribe, err := store.Subscribe(ctx, "k", func() { fired.Add(1) })
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "k", []byte("1")))
	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	unsubscribe()
	unsubscribe() // idempotent

	require.NoError(t, store.Set(ctx, "k", []byte("2")))
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, fired.Load())
}
