// This file defines how cache entries expire over time.

package expiration

import (
	"sync"
	"time"
)

/*
Clock is where the cache gets "now" from. Instead of calling time.Now
everywhere, the engine asks its Clock, so tests can move time forward
without sleeping.
*/
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

/*
Manual is a Clock that only moves when told to.

It is safe for concurrent use: the engine reads it while a test
advances it.
*/
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock stopped at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Deadline is the expiration instant of an entry written at now with ttl.
// The instant is fixed at write time; reads never push it forward.
func Deadline(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl)
}

// IsExpired reports whether an entry with the given deadline is dead at now.
// A deadline equal to now counts as expired.
func IsExpired(deadline, now time.Time) bool {
	return !now.Before(deadline)
}

// OrSystem returns c, or the wall clock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System{}
	}
	return c
}
