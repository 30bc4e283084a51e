package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) transitions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, string(ev.From)+">"+string(ev.To))
	}
	return out
}

func counting(value any, calls *atomic.Int32) Fetcher {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestQueryCache_GetFetchesOnceThenHits(t *testing.T) {
	metrics := NewMetrics(nil)
	c := NewQueryCache(WithMetrics(metrics))
	defer c.Close()

	var calls atomic.Int32
	ctx := context.Background()

	e, err := c.Get(ctx, "personal-cart-items:u1", counting([]string{"a"}, &calls))
	require.NoError(t, err)
	assert.True(t, e.IsFresh())
	assert.Equal(t, []string{"a"}, e.Value)
	assert.Equal(t, uint64(1), e.Generation)

	e, err = c.Get(ctx, "personal-cart-items:u1", counting([]string{"b"}, &calls))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, e.Value)
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Hits.WithLabelValues("personal-cart-items")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Misses.WithLabelValues("personal-cart-items")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Fetches.WithLabelValues("personal-cart-items")))
}

func TestQueryCache_ConcurrentGetsShareOneFetch(t *testing.T) {
	c := NewQueryCache()
	defer c.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const readers = 16
	var wg sync.WaitGroup
	results := make([]Entry[any], readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := c.Get(context.Background(), "recipe-carts:u1", fetch)
			assert.NoError(t, err)
			results[i] = e
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, e := range results {
		assert.Equal(t, 42, e.Value)
		assert.Equal(t, Fresh, e.Staleness)
	}
}

func TestQueryCache_Transitions(t *testing.T) {
	c := NewQueryCache(WithRefetchOnInvalidate(false))
	defer c.Close()

	rec := &recorder{}
	unsubscribe := c.Subscribe("k", rec.listen)
	var calls atomic.Int32
	ctx := context.Background()

	_, err := c.Get(ctx, "k", counting("v", &calls))
	require.NoError(t, err)

	t.Run("InvalidateMarksStale", func(t *testing.T) {
		c.Invalidate("k")
		e := c.Peek("k")
		assert.Equal(t, Stale, e.Staleness)
		assert.True(t, e.Present)
		assert.Equal(t, "v", e.Value)
	})

	t.Run("InvalidateIsIdempotent", func(t *testing.T) {
		before := len(rec.transitions())
		c.Invalidate("k")
		c.Invalidate("k")
		assert.Len(t, rec.transitions(), before)
	})

	t.Run("InvalidateUnknownKeyIsNoop", func(t *testing.T) {
		c.Invalidate("missing")
		assert.NotContains(t, c.Keys(), "missing")
	})

	t.Run("StaleGetRefetches", func(t *testing.T) {
		e, err := c.Get(ctx, "k", nil)
		require.NoError(t, err)
		assert.True(t, e.IsFresh())
		assert.Equal(t, int32(2), calls.Load())
	})

	unsubscribe()
	c.Invalidate("k")

	assert.Equal(t, []string{
		">loading", "loading>fresh",
		"fresh>stale",
		"stale>loading", "loading>fresh",
	}, rec.transitions())
}

func TestQueryCache_SupersededFetchIsDiscarded(t *testing.T) {
	metrics := NewMetrics(nil)
	c := NewQueryCache(WithMetrics(metrics), WithRefetchOnInvalidate(false))
	defer c.Close()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return "old", nil
		}
		return "new", nil
	}

	type result struct {
		e   Entry[any]
		err error
	}
	first := make(chan result, 1)
	go func() {
		e, err := c.Get(context.Background(), "k", fetch)
		first <- result{e, err}
	}()
	<-started

	// A write lands while the first fetch is still in flight.
	c.Invalidate("k")
	e, err := c.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "new", e.Value)

	close(release)
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, "new", r.e.Value)

	assert.Equal(t, "new", c.Peek("k").Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Discarded.WithLabelValues("k")))
}

func TestQueryCache_SetSupersedesInflightFetch(t *testing.T) {
	c := NewQueryCache()
	defer c.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Get(context.Background(), "k", func(context.Context) (any, error) {
			close(started)
			<-release
			return "fetched", nil
		})
	}()
	<-started

	c.Set("k", "written")
	close(release)
	<-done

	e := c.Peek("k")
	assert.Equal(t, "written", e.Value)
	assert.Equal(t, Fresh, e.Staleness)
}

func TestQueryCache_FetchError(t *testing.T) {
	c := NewQueryCache(WithRefetchOnInvalidate(false))
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "k", func(context.Context) (any, error) { return "v1", nil })
	require.NoError(t, err)
	c.Invalidate("k")

	boom := errors.New("connection refused")
	e, err := c.Get(ctx, "k", func(context.Context) (any, error) { return nil, boom })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, boom)

	// The last good value survives, marked stale with the error attached.
	assert.Equal(t, "v1", e.Value)
	assert.Equal(t, Stale, e.Staleness)
	assert.Equal(t, boom, e.Err)

	e, err = c.Get(ctx, "k", func(context.Context) (any, error) { return "v2", nil })
	require.NoError(t, err)
	assert.Equal(t, "v2", e.Value)
	assert.NoError(t, e.Err)
}

func TestQueryCache_CallerCancelDoesNotAbortFetch(t *testing.T) {
	c := NewQueryCache()
	defer c.Close()

	release := make(chan struct{})
	var fetchCtxErr atomic.Value
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "k", func(fctx context.Context) (any, error) {
		<-release
		if fctx.Err() != nil {
			fetchCtxErr.Store(fctx.Err())
		}
		return "v", nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return c.Peek("k").IsFresh() }, time.Second, time.Millisecond)
	assert.Nil(t, fetchCtxErr.Load())
}

func TestQueryCache_InvalidateRefetchesForSubscribers(t *testing.T) {
	c := NewQueryCache()
	defer c.Close()

	var calls atomic.Int32
	fetch := func(context.Context) (any, error) {
		return calls.Add(1), nil
	}
	_, err := c.Get(context.Background(), "k", fetch)
	require.NoError(t, err)

	t.Run("WithoutSubscribersStaysStale", func(t *testing.T) {
		c.Invalidate("k")
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, Stale, c.Peek("k").Staleness)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("WithSubscriberRefetches", func(t *testing.T) {
		_, err := c.Get(context.Background(), "k", nil)
		require.NoError(t, err)

		rec := &recorder{}
		defer c.Subscribe("k", rec.listen)()
		c.Invalidate("k")

		require.Eventually(t, func() bool { return len(rec.transitions()) == 3 }, time.Second, time.Millisecond)
		assert.Equal(t, int32(3), c.Peek("k").Value)
		assert.Equal(t, []string{"fresh>stale", "stale>loading", "loading>fresh"}, rec.transitions())
	})
}

func TestQueryCache_Evict(t *testing.T) {
	c := NewQueryCache()
	defer c.Close()

	rec := &recorder{}
	c.Subscribe("k", rec.listen)
	c.Set("k", 1)
	c.Evict("k")

	assert.False(t, c.Peek("k").Present)
	require.Len(t, rec.events, 2)
	assert.True(t, rec.events[1].Evicted())
	assert.Empty(t, c.Keys())
}

func TestQueryCache_NoFetcher(t *testing.T) {
	c := NewQueryCache()
	defer c.Close()

	_, err := c.Get(context.Background(), "k", nil)
	assert.ErrorIs(t, err, ErrNoFetcher)
	assert.Empty(t, c.Keys())
	assert.False(t, c.Peek("k").Present)
}

func TestQueryCache_Closed(t *testing.T) {
	tier := NewMemoryTier(10, time.Minute)
	c := NewQueryCache(WithTier(tier, time.Minute))
	c.Set("k", 1)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Get(context.Background(), "k", func(context.Context) (any, error) { return 2, nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, c.Keys())
}
