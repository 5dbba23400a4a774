package values

import (
	"time"

	"github.com/krisalay/storekit/notify"
)

// Names of the tiers a Kit builds. Descriptors refer to tiers by name.
const (
	TierMemory      = "memory"
	TierPersisted   = "persisted"
	TierPreferences = "preferences"
	TierCredentials = "credentials"
)

/*
Descriptor declares one logical value: where it lives, what it is called,
what a read returns when nothing is stored, and how long a write lives.

Descriptors are meant to be package-level variables:

	var Counter = values.Descriptor[int]{
		Name: "counter",
		TTL:  time.Minute,
		Tier: values.TierPersisted,
	}

A Scoped descriptor is stored once per identity. An empty Tier means
TierMemory. A zero TTL makes a write expire immediately, so persisted and
memory descriptors want one; preferences and credentials ignore it.
*/
type Descriptor[V any] struct {
	Name    string
	Default V
	TTL     time.Duration
	Scoped  bool
	Tier    string
}

// TierName returns the tier backing d.
func (d Descriptor[V]) TierName() string {
	if d.Tier == "" {
		return TierMemory
	}
	return d.Tier
}

// ID is the identity d is published under on the bus.
func (d Descriptor[V]) ID() notify.ID {
	return notify.ID{Tier: d.TierName(), Name: d.Name}
}
