package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
)

// Query is a typed view of one key of a QueryCache.
type Query[T any] struct {
	cache *QueryCache
	key   string
	fetch func(ctx context.Context) (T, error)
}

// NewQuery binds key to fetch. When the cache has a tier, a tier copy is read
// back before the backing store is hit; the cache writes applied results to
// the tier as JSON.
func NewQuery[T any](c *QueryCache, key string, fetch func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{cache: c, key: key, fetch: fetch}
}

// Key returns the cache key.
func (q *Query[T]) Key() string {
	return q.key
}

// Get returns the current value, fetching when absent or stale.
func (q *Query[T]) Get(ctx context.Context) (Entry[T], error) {
	raw, err := q.cache.Get(ctx, q.key, q.fetcher())
	typed, convErr := typedEntry[T](raw)
	if err != nil {
		return typed, err
	}
	return typed, convErr
}

// Peek returns the current snapshot without fetching.
func (q *Query[T]) Peek() Entry[T] {
	typed, _ := typedEntry[T](q.cache.Peek(q.key))
	return typed
}

// Invalidate marks the key stale.
func (q *Query[T]) Invalidate() {
	q.cache.Invalidate(q.key)
}

// Set replaces the cached value.
func (q *Query[T]) Set(value T) {
	q.cache.Set(q.key, value)
}

// Subscribe observes transitions of the key.
func (q *Query[T]) Subscribe(fn Listener) func() {
	return q.cache.Subscribe(q.key, fn)
}

func (q *Query[T]) fetcher() Fetcher {
	return func(ctx context.Context) (any, error) {
		if v, ok := q.fromTier(ctx); ok {
			return tierHit{value: v}, nil
		}
		v, err := q.fetch(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func (q *Query[T]) fromTier(ctx context.Context) (T, bool) {
	var zero T
	tier := q.cache.tier
	if tier == nil {
		return zero, false
	}
	tctx, cancel := context.WithTimeout(ctx, tierTimeout)
	defer cancel()
	data, ok := tier.Get(tctx, q.key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		q.cache.logger.Warn("dropping undecodable tier value",
			slog.String("key", q.key),
			slog.String("error", err.Error()))
		tier.Delete(tctx, q.key)
		return zero, false
	}
	return v, true
}

func typedEntry[T any](e Entry[any]) (Entry[T], error) {
	out := Entry[T]{
		Key:        e.Key,
		Present:    e.Present,
		Staleness:  e.Staleness,
		Generation: e.Generation,
		Err:        e.Err,
		UpdatedAt:  e.UpdatedAt,
	}
	if !e.Present || e.Value == nil {
		return out, nil
	}
	v, ok := e.Value.(T)
	if !ok {
		return out, errors.Errorf("cache key %s holds %T, not the requested type", e.Key, e.Value)
	}
	out.Value = v
	return out, nil
}
