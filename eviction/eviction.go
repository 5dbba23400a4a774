package eviction

import (
	"fmt"
	"strings"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

/*
This file defines how the cache decides what to remove when it runs out of space.
*/

/*
Map is the bounded mapping that backs an engine.

It holds at most Capacity entries. When Add would exceed that, the map drops
one or more entries on its own and reports each of them through the callback
given to New. The callback also fires for entries removed with Remove, Purge
or Resize, so whoever listens sees every key that leaves the map.

Map is NOT safe for concurrent use; the engine serializes access.
*/
type Map[K comparable, V any] interface {
	// Add inserts or replaces a value. It reports whether an entry was
	// evicted to make room.
	Add(key K, value V) (evicted bool)

	// Get returns a value and records the access for the policy.
	Get(key K) (V, bool)

	// Peek returns a value without touching policy state.
	Peek(key K) (V, bool)

	// Remove deletes a key and reports whether it was present.
	Remove(key K) bool

	// Keys returns the keys currently held.
	Keys() []K

	// Len returns how many entries are held.
	Len() int

	// Purge drops everything.
	Purge()

	// Resize changes the capacity and returns how many entries were evicted.
	Resize(size int) int
}

// Observer is notified when the bounded mapping drops a key to respect its
// capacity. It is called synchronously, while the engine lock is held, so it
// must not call back into the engine.
type Observer[K comparable] interface {
	OnEvict(key K)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc[K comparable] func(key K)

func (f ObserverFunc[K]) OnEvict(key K) { f(key) }

// PolicyType is a simple identifier for supported eviction strategies.
type PolicyType string

const (
	// LRU (Least Recently Used): Evicts the key that has NOT been read or
	// written for the longest time. This is the default.
	LRU PolicyType = "LRU"

	// LFU (Least Frequently Used): Evicts the key that has been accessed the fewest times.
	// This works well when:
	// - Some keys are consistently hot
	// - Some keys are rarely used
	LFU PolicyType = "LFU"

	// FIFO (First In First Out): Evicts the oldest inserted key, regardless of access.
	FIFO PolicyType = "FIFO"
)

// ParsePolicyType maps a configuration string onto a PolicyType.
// Case is ignored and the empty string selects LRU.
func ParsePolicyType(s string) (PolicyType, error) {
	switch PolicyType(strings.ToUpper(s)) {
	case "", LRU:
		return LRU, nil
	case LFU:
		return LFU, nil
	case FIFO:
		return FIFO, nil
	default:
		return "", fmt.Errorf("unknown eviction policy %q", s)
	}
}

// New builds a bounded mapping of the given capacity.
// LRU is backed by simplelru; LFU and FIFO use the policies in this package.
func New[K comparable, V any](t PolicyType, capacity int, onEvict func(K, V)) (Map[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	switch t {
	case "", LRU:
		m, err := simplelru.NewLRU[K, V](capacity, onEvict)
		if err != nil {
			return nil, fmt.Errorf("create LRU map: %w", err)
		}
		return m, nil
	case LFU:
		return newPolicyMap[K, V](newLFU[K](), capacity, onEvict), nil
	case FIFO:
		return newPolicyMap[K, V](newFIFO[K](), capacity, onEvict), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", t)
	}
}
