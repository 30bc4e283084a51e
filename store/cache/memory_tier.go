package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryTier is a bounded in-process Tier with LRU eviction. It is useful in
// tests and for single-instance deployments that want values to outlive an
// invalidation-free restart of the query cache.
type MemoryTier struct {
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time

	mu    sync.Mutex
	items map[string]*tierItem
	order *list.List
}

type tierItem struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *list.Element
}

// NewMemoryTier creates a tier holding at most capacity values.
func NewMemoryTier(capacity int, defaultTTL time.Duration) *MemoryTier {
	if capacity <= 0 {
		capacity = 1000
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &MemoryTier{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		now:        time.Now,
		items:      make(map[string]*tierItem),
		order:      list.New(),
	}
}

func (m *MemoryTier) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if m.now().After(it.expiresAt) {
		m.removeLocked(it)
		return nil, false
	}
	m.order.MoveToFront(it.element)
	return it.value, true
}

func (m *MemoryTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if it, ok := m.items[key]; ok {
		it.value = value
		it.expiresAt = m.now().Add(ttl)
		m.order.MoveToFront(it.element)
		return
	}
	for len(m.items) >= m.capacity {
		back := m.order.Back()
		if back == nil {
			break
		}
		m.removeLocked(back.Value.(*tierItem))
	}
	it := &tierItem{key: key, value: value, expiresAt: m.now().Add(ttl)}
	it.element = m.order.PushFront(it)
	m.items[key] = it
}

func (m *MemoryTier) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if it, ok := m.items[key]; ok {
		m.removeLocked(it)
	}
}

// Len returns the number of values held, expired ones included.
func (m *MemoryTier) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryTier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*tierItem)
	m.order.Init()
	return nil
}

// Must be called with lock held.
func (m *MemoryTier) removeLocked(it *tierItem) {
	m.order.Remove(it.element)
	delete(m.items, it.key)
}

var _ Tier = (*MemoryTier)(nil)
