// Package cache provides the keyed, TTL-scoped gateway that fronts the
// pipeline's external lookups. Entries belong to a category; each
// category has its own TTL, and writing a category may invalidate the
// entries of its declared dependent categories for the same key.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Category groups cache entries by volatility so each class of data gets
// its own time-to-live.
type Category string

const (
	// CategoryStable holds slow-moving data such as release metadata.
	CategoryStable Category = "stable"

	// CategoryVolatile holds fast-moving data such as prices and scores.
	CategoryVolatile Category = "volatile"

	// CategoryDerived holds summaries computed from stable data. Entries
	// here are invalidated whenever the stable entry they derive from is
	// rewritten.
	CategoryDerived Category = "derived"
)

// Store is the minimal keyed byte store the gateway runs on. Both the
// in-memory store and the Redis store implement it; the store owns
// key-level atomicity and TTL bookkeeping.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Put(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Gateway is the read/write-through cache layer in front of external
// lookups. The cascade from a category to its dependents is a static
// declared mapping, never discovered at runtime.
type Gateway struct {
	store      Store
	prefix     string
	ttls       map[Category]time.Duration
	dependents map[Category][]Category
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTTL overrides the time-to-live of a category.
func WithTTL(cat Category, ttl time.Duration) Option {
	return func(g *Gateway) { g.ttls[cat] = ttl }
}

// WithPrefix sets the key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(g *Gateway) { g.prefix = prefix }
}

// WithDependents declares the categories invalidated when cat is written.
func WithDependents(cat Category, deps ...Category) Option {
	return func(g *Gateway) { g.dependents[cat] = deps }
}

// New creates a gateway over the given store. Defaults: stable entries
// live 24h, volatile entries 1h, derived entries 24h, and stable writes
// invalidate derived entries.
func New(store Store, opts ...Option) *Gateway {
	g := &Gateway{
		store:  store,
		prefix: "gamecraft",
		ttls: map[Category]time.Duration{
			CategoryStable:   24 * time.Hour,
			CategoryVolatile: time.Hour,
			CategoryDerived:  24 * time.Hour,
		},
		dependents: map[Category][]Category{
			CategoryStable: {CategoryDerived},
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) storeKey(cat Category, key string) string {
	return g.prefix + ":" + string(cat) + ":" + key
}

// Get looks up key in the category and unmarshals the stored payload
// into dest. It returns false on a miss or an expired entry.
func (g *Gateway) Get(ctx context.Context, cat Category, key string, dest any) (bool, error) {
	raw, ok, err := g.store.Get(ctx, g.storeKey(cat, key))
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Put stores value under key with the category's TTL, then cascades: the
// same key in every declared dependent category is invalidated, so stale
// derivations can never outlive a refreshed source.
func (g *Gateway) Put(ctx context.Context, cat Category, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := g.store.Put(ctx, g.storeKey(cat, key), raw, g.ttls[cat]); err != nil {
		return err
	}
	return g.invalidateDependents(ctx, cat, key, map[Category]bool{cat: true})
}

// Invalidate removes key from the category and cascades to dependents.
func (g *Gateway) Invalidate(ctx context.Context, cat Category, key string) error {
	if err := g.store.Delete(ctx, g.storeKey(cat, key)); err != nil {
		return err
	}
	return g.invalidateDependents(ctx, cat, key, map[Category]bool{cat: true})
}

func (g *Gateway) invalidateDependents(ctx context.Context, cat Category, key string, seen map[Category]bool) error {
	for _, dep := range g.dependents[cat] {
		if seen[dep] {
			continue
		}
		seen[dep] = true
		if err := g.store.Delete(ctx, g.storeKey(dep, key)); err != nil {
			return err
		}
		if err := g.invalidateDependents(ctx, dep, key, seen); err != nil {
			return err
		}
	}
	return nil
}

// TTL reports the configured time-to-live of a category.
func (g *Gateway) TTL(cat Category) time.Duration {
	return g.ttls[cat]
}
