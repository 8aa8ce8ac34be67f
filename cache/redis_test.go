package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/gamecraft/cache"
)

func newRedisStore(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := cache.NewRedisStoreFromClient(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte(`"v"`), time.Minute))

	raw, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"v"`, string(raw))

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte(`1`), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", []byte(`1`), 0))
	require.NoError(t, store.Put(ctx, "b", []byte(`2`), 0))
	require.NoError(t, store.Delete(ctx, "a", "b", "missing"))

	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatewayOverRedis(t *testing.T) {
	store, mr := newRedisStore(t)
	g := cache.New(store, cache.WithTTL(cache.CategoryVolatile, time.Minute))
	ctx := context.Background()

	require.NoError(t, g.Put(ctx, cache.CategoryVolatile, "scores", []int{9, 8}))

	var scores []int
	ok, err := g.Get(ctx, cache.CategoryVolatile, "scores", &scores)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{9, 8}, scores)

	mr.FastForward(2 * time.Minute)
	ok, err = g.Get(ctx, cache.CategoryVolatile, "scores", &scores)
	require.NoError(t, err)
	assert.False(t, ok)
}
