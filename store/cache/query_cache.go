package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetcher loads the collection behind a key from the backing store.
type Fetcher func(ctx context.Context) (any, error)

// maxFollow bounds how many superseded flights a single Get will follow
// before handing back whatever snapshot is current.
const maxFollow = 3

// QueryCache is a keyed cache of fetched collections.
//
// An entry moves fresh -> stale on Invalidate, stale -> loading when a Get
// issues a fetch, and loading -> fresh when that fetch completes. Concurrent
// Gets for a key share one in-flight fetch. Each fetch is stamped with a
// per-key generation when issued and its result is applied only if no newer
// generation was issued since, so a slow fetch can never overwrite the
// result of a later one.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	subs    map[string]map[uint64]Listener
	nextSub uint64
	closed  bool

	flight singleflight.Group

	tier    Tier
	tierTTL time.Duration

	refetchOnInvalidate bool

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type entry struct {
	value     any
	present   bool
	staleness Staleness
	err       error
	issued    uint64
	updatedAt time.Time
	fetch     Fetcher
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *QueryCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metric collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *QueryCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTier enables a shared second-level store consulted before the
// backing store.
func WithTier(tier Tier, ttl time.Duration) Option {
	return func(c *QueryCache) {
		c.tier = tier
		c.tierTTL = ttl
	}
}

// WithRefetchOnInvalidate controls whether invalidating a key that has
// subscribers schedules a background refetch. Enabled by default.
func WithRefetchOnInvalidate(enabled bool) Option {
	return func(c *QueryCache) {
		c.refetchOnInvalidate = enabled
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) {
		c.now = now
	}
}

// NewQueryCache creates a cache. Call Close at shutdown.
func NewQueryCache(opts ...Option) *QueryCache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &QueryCache{
		entries:             make(map[string]*entry),
		subs:                make(map[string]map[uint64]Listener),
		refetchOnInvalidate: true,
		logger:              slog.Default(),
		now:                 time.Now,
		ctx:                 ctx,
		cancel:              cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// Get returns the entry for key, fetching it first when it is absent or
// stale. fetch is remembered for later refetches; pass nil to reuse the last
// registered fetcher.
//
// If ctx is done before the fetch completes, Get returns early with the
// current snapshot and ctx.Err(). The fetch itself keeps running and its
// result is still applied.
func (c *QueryCache) Get(ctx context.Context, key string, fetch Fetcher) (Entry[any], error) {
	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return Entry[any]{Key: key}, ErrClosed
		}
		e := c.entries[key]
		if e == nil {
			if fetch == nil {
				c.mu.Unlock()
				return Entry[any]{Key: key}, ErrNoFetcher
			}
			e = &entry{}
			c.entries[key] = e
		}
		if fetch != nil {
			e.fetch = fetch
		}
		if e.present && e.staleness == Fresh {
			snap := e.snapshot(key)
			c.mu.Unlock()
			if attempt == 0 {
				c.metrics.Hits.WithLabelValues(queryName(key)).Inc()
			}
			return snap, nil
		}
		if attempt == 0 {
			c.metrics.Misses.WithLabelValues(queryName(key)).Inc()
		}
		if attempt >= maxFollow {
			snap := e.snapshot(key)
			c.mu.Unlock()
			return snap, nil
		}
		if e.fetch == nil {
			c.mu.Unlock()
			return Entry[any]{Key: key}, ErrNoFetcher
		}

		var events []Event
		if e.staleness != Loading {
			prev := e.stateOrEmpty()
			e.issued++
			e.staleness = Loading
			events = append(events, c.event(key, prev, Loading, e.issued, nil))
		}
		gen := e.issued
		run := e.fetch
		// Registering the flight under the lock guarantees that anyone who
		// observes Loading for this generation joins this exact flight.
		ch := c.flight.DoChan(flightKey(key, gen), func() (any, error) {
			return nil, c.runFetch(ctx, key, gen, run)
		})
		listeners := c.listenersLocked(key)
		c.mu.Unlock()
		c.notify(listeners, events)

		select {
		case res := <-ch:
			if res.Err != nil {
				return c.Peek(key), wrapFailure(ErrFetch, res.Err, "query "+key)
			}
		case <-ctx.Done():
			return c.Peek(key), ctx.Err()
		}
	}
}

// runFetch executes one generation's fetch and applies its result if that
// generation is still the latest issued for key. Only an applied result is
// shared through the tier.
func (c *QueryCache) runFetch(ctx context.Context, key string, gen uint64, fetch Fetcher) error {
	name := queryName(key)
	c.metrics.Fetches.WithLabelValues(name).Inc()

	// In-flight fetches run to completion even if the caller goes away.
	value, err := fetch(context.WithoutCancel(ctx))
	fromTier := false
	if hit, ok := value.(tierHit); ok {
		value, fromTier = hit.value, true
	}

	c.mu.Lock()
	e := c.entries[key]
	if e == nil || e.issued != gen || e.staleness != Loading {
		c.mu.Unlock()
		c.metrics.Discarded.WithLabelValues(name).Inc()
		c.logger.Debug("discarded superseded fetch",
			slog.String("key", key),
			slog.Uint64("generation", gen))
		// Waiters loop and follow the newer generation instead.
		return nil
	}

	var ev Event
	if err != nil {
		e.err = err
		e.staleness = Stale
		ev = c.event(key, Loading, Stale, gen, err)
		c.metrics.FetchErrors.WithLabelValues(name).Inc()
	} else {
		e.value = value
		e.present = true
		e.err = nil
		e.staleness = Fresh
		e.updatedAt = c.now()
		ev = c.event(key, Loading, Fresh, gen, nil)
	}
	listeners := c.listenersLocked(key)
	c.mu.Unlock()

	if err == nil && !fromTier {
		c.writeTier(key, gen, value)
	}
	if err != nil {
		c.logger.Warn("query fetch failed",
			slog.String("key", key),
			slog.Uint64("generation", gen),
			slog.String("error", err.Error()))
	}
	c.notify(listeners, []Event{ev})
	return err
}

// Peek returns the current snapshot without fetching.
func (c *QueryCache) Peek(key string) Entry[any] {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[key]
	if e == nil {
		return Entry[any]{Key: key}
	}
	return e.snapshot(key)
}

// Invalidate marks the entry for key stale. It never blocks on a fetch and is
// a no-op when the entry is absent or already stale. Invalidating a loading
// entry supersedes the in-flight fetch, whose result will be discarded.
func (c *QueryCache) Invalidate(key string) {
	c.mu.Lock()
	e := c.entries[key]
	if c.closed || e == nil || e.staleness == Stale || (e.staleness == "" && !e.present) {
		c.mu.Unlock()
		return
	}
	prev := e.staleness
	if prev == Loading {
		e.issued++
	}
	e.staleness = Stale
	ev := c.event(key, prev, Stale, e.issued, nil)
	listeners := c.listenersLocked(key)
	refetch := c.refetchOnInvalidate && len(listeners) > 0 && e.fetch != nil
	if refetch {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	c.metrics.Invalidations.WithLabelValues(queryName(key)).Inc()
	c.dropTier(key)
	c.notify(listeners, []Event{ev})

	if refetch {
		go func() {
			defer c.wg.Done()
			if _, err := c.Get(c.ctx, key, nil); err != nil && c.ctx.Err() == nil {
				c.logger.Warn("background refetch failed",
					slog.String("key", key),
					slog.String("error", err.Error()))
			}
		}()
	}
}

// Set stores value as the fresh value of key, superseding any fetch in flight.
func (c *QueryCache) Set(key string, value any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}
	prev := e.stateOrEmpty()
	e.issued++
	e.value = value
	e.present = true
	e.err = nil
	e.staleness = Fresh
	e.updatedAt = c.now()
	ev := c.event(key, prev, Fresh, e.issued, nil)
	listeners := c.listenersLocked(key)
	c.mu.Unlock()

	c.dropTier(key)
	c.notify(listeners, []Event{ev})
}

// Evict destroys the entry for key.
func (c *QueryCache) Evict(key string) {
	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		c.mu.Unlock()
		return
	}
	delete(c.entries, key)
	ev := c.event(key, e.stateOrEmpty(), "", e.issued, nil)
	listeners := c.listenersLocked(key)
	c.mu.Unlock()

	c.dropTier(key)
	c.notify(listeners, []Event{ev})
}

// Subscribe registers fn for every transition of key and returns a func
// that removes it.
func (c *QueryCache) Subscribe(key string, fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	if c.subs[key] == nil {
		c.subs[key] = make(map[uint64]Listener)
	}
	c.subs[key][id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs[key], id)
			if len(c.subs[key]) == 0 {
				delete(c.subs, key)
			}
		})
	}
}

// Keys returns the keys currently held.
func (c *QueryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Close stops background refetches and drops every subscriber and entry.
func (c *QueryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.subs = make(map[string]map[uint64]Listener)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	if c.tier != nil {
		return c.tier.Close()
	}
	return nil
}

// tierHit marks a fetched value that was read from the tier rather than the
// backing store, so runFetch does not write it back.
type tierHit struct {
	value any
}

// writeTier publishes the value applied for generation gen. If the entry
// moved on while the write was in flight the copy is dropped again, so a
// tier never holds a value older than the last Invalidate or Set.
func (c *QueryCache) writeTier(key string, gen uint64, value any) {
	if c.tier == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("skipping tier write",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, tierTimeout)
	defer cancel()
	c.tier.Set(ctx, key, data, c.tierTTL)

	c.mu.Lock()
	e := c.entries[key]
	current := e != nil && e.issued == gen && e.staleness == Fresh
	c.mu.Unlock()
	if !current {
		c.tier.Delete(ctx, key)
	}
}

func (c *QueryCache) dropTier(key string) {
	if c.tier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, tierTimeout)
	defer cancel()
	c.tier.Delete(ctx, key)
}

func (c *QueryCache) listenersLocked(key string) []Listener {
	subs := c.subs[key]
	if len(subs) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

func (c *QueryCache) notify(listeners []Listener, events []Event) {
	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

func (c *QueryCache) event(key string, from, to Staleness, gen uint64, err error) Event {
	return Event{Key: key, From: from, To: to, Generation: gen, Err: err, At: c.now()}
}

func (e *entry) snapshot(key string) Entry[any] {
	return Entry[any]{
		Key:        key,
		Value:      e.value,
		Present:    e.present,
		Staleness:  e.staleness,
		Generation: e.issued,
		Err:        e.err,
		UpdatedAt:  e.updatedAt,
	}
}

// stateOrEmpty is the staleness to report as the origin of a transition; a
// never-fetched entry reports "".
func (e *entry) stateOrEmpty() Staleness {
	if !e.present && e.staleness != Loading && e.err == nil {
		return ""
	}
	return e.staleness
}

func flightKey(key string, gen uint64) string {
	return key + "#" + strconv.FormatUint(gen, 10)
}
