package cache

import (
	"time"
)

// Staleness is the lifecycle state of a cache entry.
type Staleness string

const (
	// Fresh entries are served without fetching.
	Fresh Staleness = "fresh"
	// Stale entries are refetched on the next Get.
	Stale Staleness = "stale"
	// Loading entries have a fetch in flight.
	Loading Staleness = "loading"
)

// Entry is a read-only snapshot of a cached collection. Value is shared with
// the cache and must not be mutated by the receiver.
type Entry[T any] struct {
	Key        string
	Value      T
	Present    bool
	Staleness  Staleness
	Generation uint64
	Err        error
	UpdatedAt  time.Time
}

// IsFresh reports whether the snapshot holds a fresh value.
func (e Entry[T]) IsFresh() bool {
	return e.Present && e.Staleness == Fresh
}

// Event describes one state transition of a key.
type Event struct {
	Key        string
	From       Staleness // empty when the entry did not exist
	To         Staleness // empty when the entry was evicted
	Generation uint64
	Err        error
	At         time.Time
}

// Evicted reports whether the event destroyed the entry.
func (e Event) Evicted() bool {
	return e.To == ""
}

// Listener observes transitions of a key. It is called synchronously outside
// the cache lock and must not block.
type Listener func(Event)
