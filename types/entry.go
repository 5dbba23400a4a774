package types

import (
	"time"

	"github.com/krisalay/storekit/expiration"
)

// Entry is one stored record. Entries are values: a rewrite of the same key
// replaces the whole Entry, nothing is mutated in place.
type Entry[K comparable, V any] struct {
	Key       K
	Value     V
	ExpiresAt time.Time
}

// Expired reports whether the entry is dead at the given instant.
func (e Entry[K, V]) Expired(now time.Time) bool {
	return expiration.IsExpired(e.ExpiresAt, now)
}
