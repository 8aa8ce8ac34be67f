package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/gamecraft"
)

func TestGatewayGetMiss(t *testing.T) {
	g := New(NewMemoryStore())

	var dest gamecraft.GameInfo
	ok, err := g.Get(context.Background(), CategoryStable, "elden-ring", &dest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatewayPutGetRoundTrip(t *testing.T) {
	g := New(NewMemoryStore())
	ctx := context.Background()

	info := gamecraft.GameInfo{Name: "Elden Ring", Developer: "FromSoftware", Genre: "RPG"}
	require.NoError(t, g.Put(ctx, CategoryStable, "elden-ring", info))

	var dest gamecraft.GameInfo
	ok, err := g.Get(ctx, CategoryStable, "elden-ring", &dest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, info, dest)
}

func TestGatewayCategoriesAreIsolated(t *testing.T) {
	g := New(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, g.Put(ctx, CategoryStable, "key", "stable-value"))

	var dest string
	ok, err := g.Get(ctx, CategoryVolatile, "key", &dest)
	require.NoError(t, err)
	assert.False(t, ok, "volatile lookup must not see stable entry")
}

func TestGatewayExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	g := New(store, WithTTL(CategoryVolatile, time.Minute))
	ctx := context.Background()

	require.NoError(t, g.Put(ctx, CategoryVolatile, "scores", []string{"9/10"}))

	var dest []string
	ok, err := g.Get(ctx, CategoryVolatile, "scores", &dest)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = g.Get(ctx, CategoryVolatile, "scores", &dest)
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire after its category TTL")
}

func TestGatewayCascadeInvalidation(t *testing.T) {
	g := New(NewMemoryStore())
	ctx := context.Background()

	// Seed a derived summary, then rewrite the stable entry it derives from.
	require.NoError(t, g.Put(ctx, CategoryDerived, "elden-ring", "media summary"))

	var summary string
	ok, err := g.Get(ctx, CategoryDerived, "elden-ring", &summary)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, g.Put(ctx, CategoryStable, "elden-ring", gamecraft.GameInfo{Name: "Elden Ring"}))

	ok, err = g.Get(ctx, CategoryDerived, "elden-ring", &summary)
	require.NoError(t, err)
	assert.False(t, ok, "stable write must invalidate the dependent derived entry")

	// The cascade is keyed: other derived entries survive.
	require.NoError(t, g.Put(ctx, CategoryDerived, "hades-ii", "other summary"))
	require.NoError(t, g.Put(ctx, CategoryStable, "elden-ring", gamecraft.GameInfo{Name: "Elden Ring"}))
	ok, err = g.Get(ctx, CategoryDerived, "hades-ii", &summary)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGatewayExplicitInvalidateCascades(t *testing.T) {
	g := New(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, g.Put(ctx, CategoryStable, "k", "v"))
	require.NoError(t, g.Put(ctx, CategoryDerived, "k", "d"))

	require.NoError(t, g.Invalidate(ctx, CategoryStable, "k"))

	var dest string
	ok, err := g.Get(ctx, CategoryStable, "k", &dest)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = g.Get(ctx, CategoryDerived, "k", &dest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatewayCustomDependentsNoCycles(t *testing.T) {
	// A declared cycle must not loop forever.
	g := New(NewMemoryStore(),
		WithDependents(CategoryStable, CategoryDerived),
		WithDependents(CategoryDerived, CategoryStable),
	)
	ctx := context.Background()

	require.NoError(t, g.Put(ctx, CategoryDerived, "k", "d"))
	require.NoError(t, g.Put(ctx, CategoryStable, "k", "v"))

	var dest string
	ok, err := g.Get(ctx, CategoryStable, "k", &dest)
	require.NoError(t, err)
	assert.True(t, ok, "the written entry itself survives the cascade")
	ok, err = g.Get(ctx, CategoryDerived, "k", &dest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", []byte(`1`), 0))
	require.NoError(t, store.Put(ctx, "b", []byte(`2`), 0))
	require.NoError(t, store.Delete(ctx, "a", "missing"))

	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}
