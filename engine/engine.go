package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/krisalay/storekit/eviction"
	"github.com/krisalay/storekit/expiration"
	"github.com/krisalay/storekit/types"
)

// DefaultCapacity is the entry count used when no capacity is configured.
const DefaultCapacity = 1024

/*
Engine is the generic bounded, expiring key-value store.

It owns two pieces of state:
  - items: the bounded mapping K → Entry, which may drop entries on its own
    when it runs out of space
  - tracker: the set of keys currently held by items

After every operation the two agree exactly: a key is tracked if and only if
items holds it. The mapping reports every key it drops through onEvict,
which is where the tracker is kept honest.

Expiration is lazy. Nothing sweeps in the background; an expired entry is
reclaimed when Read touches it, and skipped (not reclaimed) by LiveEntries.

Engine is safe for concurrent use. A single mutex guards items and tracker,
and the mapping's callback runs under it.
*/
type Engine[K comparable, V any] struct {
	mu sync.Mutex

	items   eviction.Map[K, types.Entry[K, V]]
	tracker map[K]struct{}

	// explicit is true while the engine itself is removing keys, so onEvict
	// can tell capacity evictions from removals it asked for.
	explicit bool

	name      string
	policy    eviction.PolicyType
	capacity  int
	clock     expiration.Clock
	metrics   types.Metrics
	observers []eviction.Observer[K]
}

// Option configures an Engine.
type Option[K comparable, V any] func(*Engine[K, V])

// WithName labels the engine in logs.
func WithName[K comparable, V any](name string) Option[K, V] {
	return func(e *Engine[K, V]) { e.name = name }
}

// WithCapacity sets the maximum entry count.
func WithCapacity[K comparable, V any](n int) Option[K, V] {
	return func(e *Engine[K, V]) { e.capacity = n }
}

// WithPolicy selects the victim selection policy used on overflow.
func WithPolicy[K comparable, V any](p eviction.PolicyType) Option[K, V] {
	return func(e *Engine[K, V]) { e.policy = p }
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock[K comparable, V any](c expiration.Clock) Option[K, V] {
	return func(e *Engine[K, V]) { e.clock = c }
}

// WithMetrics reports hits, misses, evictions and expirations to m.
func WithMetrics[K comparable, V any](m types.Metrics) Option[K, V] {
	return func(e *Engine[K, V]) { e.metrics = m }
}

// WithObserver registers an observer for capacity evictions.
func WithObserver[K comparable, V any](o eviction.Observer[K]) Option[K, V] {
	return func(e *Engine[K, V]) { e.observers = append(e.observers, o) }
}

/*
New creates an Engine.

Defaults: capacity DefaultCapacity, LRU eviction, wall clock, no metrics.
*/
func New[K comparable, V any](opts ...Option[K, V]) (*Engine[K, V], error) {
	e := &Engine[K, V]{
		tracker:  make(map[K]struct{}),
		name:     "standard",
		policy:   eviction.LRU,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Ensure clock and metrics are always non-nil
	e.clock = expiration.OrSystem(e.clock)
	if e.metrics == nil {
		e.metrics = types.NoopMetrics{}
	}

	items, err := eviction.New[K, types.Entry[K, V]](e.policy, e.capacity, e.onEvict)
	if err != nil {
		return nil, fmt.Errorf("engine %s: %w", e.name, err)
	}
	e.items = items

	return e, nil
}

// Store writes value under key with a lifetime of ttl, replacing any
// previous entry. It never fails: a full engine evicts instead of refusing.
func (e *Engine[K, V]) Store(key K, value V, ttl time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.insert(types.Entry[K, V]{
		Key:       key,
		Value:     value,
		ExpiresAt: expiration.Deadline(e.clock.Now(), ttl),
	})
}

// Insert writes a prepared entry as is. The persistence layer uses it to
// restore entries with their original deadline.
func (e *Engine[K, V]) Insert(ent types.Entry[K, V]) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.insert(ent)
}

/*
Read returns the value stored under key.

  - absent: false
  - present but expired: the entry is removed from both the mapping and the
    tracker, and false is returned
  - otherwise: the value, and the access counts for the eviction policy
*/
func (e *Engine[K, V]) Read(key K) (V, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero V

	ent, ok := e.items.Get(key)
	if !ok {
		e.metrics.Miss()
		return zero, false
	}

	if ent.Expired(e.clock.Now()) {
		e.metrics.Expire()
		e.metrics.Miss()
		e.remove(key)
		return zero, false
	}

	e.metrics.Hit()
	return ent.Value, true
}

// Remove drops key from the mapping and the tracker. Removing an absent key
// is a no-op.
func (e *Engine[K, V]) Remove(key K) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.remove(key)
}

// RemoveFunc drops every tracked key for which match returns true and
// reports how many were removed.
func (e *Engine[K, V]) RemoveFunc(match func(K) bool) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for k := range e.tracker {
		if match(k) {
			e.remove(k)
			n++
		}
	}
	return n
}

// Purge drops every entry.
func (e *Engine[K, V]) Purge() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.explicit = true
	e.items.Purge()
	e.explicit = false
	clear(e.tracker)
}

/*
LiveEntries returns the entries of tracked keys that are still alive.

Expired entries are left out of the result but stay in the engine; this
call does not reclaim anything. Policy state is not touched either, so
encoding a snapshot does not count as use.
*/
func (e *Engine[K, V]) LiveEntries() []types.Entry[K, V] {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	out := make([]types.Entry[K, V], 0, len(e.tracker))
	for k := range e.tracker {
		ent, ok := e.items.Peek(k)
		if !ok || ent.Expired(now) {
			continue
		}
		out = append(out, ent)
	}
	return out
}

// Keys returns the tracked keys, live or not, in no particular order.
func (e *Engine[K, V]) Keys() []K {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]K, 0, len(e.tracker))
	for k := range e.tracker {
		keys = append(keys, k)
	}
	return keys
}

// Contains reports whether key is tracked, without checking expiry or
// touching policy state.
func (e *Engine[K, V]) Contains(key K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.tracker[key]
	return ok
}

// Len returns the number of entries held, including expired ones not yet
// reclaimed.
func (e *Engine[K, V]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.items.Len()
}

func (e *Engine[K, V]) Capacity() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.capacity
}

// SetCapacity changes the maximum entry count. Shrinking evicts through the
// normal eviction path.
func (e *Engine[K, V]) SetCapacity(n int) error {
	if n <= 0 {
		return fmt.Errorf("engine %s: capacity must be positive, got %d", e.name, n)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.capacity = n
	if evicted := e.items.Resize(n); evicted > 0 {
		log.WithFields(log.Fields{
			"engine":  e.name,
			"evicted": evicted,
		}).Debug("capacity reduced")
	}
	return nil
}

func (e *Engine[K, V]) Name() string { return e.name }

// Now returns the engine's current time.
func (e *Engine[K, V]) Now() time.Time { return e.clock.Now() }

// insert and remove expect e.mu to be held.

func (e *Engine[K, V]) insert(ent types.Entry[K, V]) {
	e.items.Add(ent.Key, ent)
	e.tracker[ent.Key] = struct{}{}
}

func (e *Engine[K, V]) remove(key K) {
	e.explicit = true
	e.items.Remove(key)
	e.explicit = false
	delete(e.tracker, key)
}

/*
onEvict is the mapping's callback. It fires for every key that leaves the
mapping, including the ones removed on our own request, and always runs
with e.mu held.
*/
func (e *Engine[K, V]) onEvict(key K, _ types.Entry[K, V]) {
	delete(e.tracker, key)

	if e.explicit {
		return
	}

	e.metrics.Eviction()
	log.WithFields(log.Fields{
		"engine": e.name,
		"key":    key,
	}).Debug("evicted on capacity")

	for _, o := range e.observers {
		o.OnEvict(key)
	}
}
