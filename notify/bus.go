package notify

import (
	"sync"

	"github.com/apex/log"
)

/*
ID names one logical value on the bus: the tier that backs it and the
descriptor name. A zero Name is the wildcard published by bulk resets.
*/
type ID struct {
	Tier string
	Name string
}

// All is the wildcard identity. Every filter built by ForID accepts it.
var All = ID{}

// IsWildcard reports whether id stands for "everything changed".
func (id ID) IsWildcard() bool { return id.Name == "" }

func (id ID) String() string {
	if id.IsWildcard() {
		if id.Tier == "" {
			return "*"
		}
		return id.Tier + ".*"
	}
	return id.Tier + "." + id.Name
}

// Filter selects the identities a subscription wants to hear about.
type Filter func(ID) bool

// ForID accepts id itself, a wildcard for id's tier, and the global wildcard.
func ForID(id ID) Filter {
	return func(got ID) bool {
		if got == id {
			return true
		}
		return got.IsWildcard() && (got.Tier == "" || got.Tier == id.Tier)
	}
}

// ForTier accepts every change in tier.
func ForTier(tier string) Filter {
	return func(got ID) bool { return got.Tier == "" || got.Tier == tier }
}

// Everything accepts every change.
func Everything(ID) bool { return true }

/*
Bus broadcasts "this value changed" signals.

Signals carry no payload; a subscriber that wants the new value reads it
through the store. Publish runs on the caller's goroutine and never blocks:
each subscription has a one-slot buffer, and a signal arriving while the
slot is full is folded into the pending one.
*/
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscription is one listener on the bus.
type Subscription struct {
	// C receives one empty struct per batch of matching changes.
	C <-chan struct{}

	c      chan struct{}
	filter Filter
	bus    *Bus
	once   sync.Once
}

/*
Subscribe registers a listener for changes accepted by filter. A nil filter
accepts everything. Only changes published after Subscribe returns are
delivered.
*/
func (b *Bus) Subscribe(filter Filter) *Subscription {
	if filter == nil {
		filter = Everything
	}

	c := make(chan struct{}, 1)
	s := &Subscription{C: c, c: c, filter: filter, bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(c)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish signals every subscription whose filter accepts id.
func (b *Bus) Publish(id ID) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered, coalesced := 0, 0
	for s := range b.subs {
		if !s.filter(id) {
			continue
		}
		select {
		case s.c <- struct{}{}:
			delivered++
		default:
			coalesced++
		}
	}

	log.WithFields(log.Fields{
		"id":        id.String(),
		"delivered": delivered,
		"coalesced": coalesced,
	}).Debug("change published")
}

// Len returns the number of open subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Close ends every subscription. Publishing afterwards is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.once.Do(func() { close(s.c) })
		delete(b.subs, s)
	}
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.subs, s)
	s.once.Do(func() { close(s.c) })
}
