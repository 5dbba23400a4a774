package values

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/apex/log"

	"github.com/krisalay/storekit/api"
	"github.com/krisalay/storekit/notify"
)

var (
	// ErrMissingIdentity is returned when a scoped descriptor is used while
	// nobody is signed in.
	ErrMissingIdentity = errors.New("scoped value needs an identity")

	// ErrUnknownTier is returned when a descriptor names a tier the store
	// was not built with.
	ErrUnknownTier = errors.New("unknown tier")
)

// ScopePrefix is the leading segment of every scoped key.
const ScopePrefix = "user."

/*
Store multiplexes typed descriptors over a set of tiers and announces every
change on a bus.

It is constructed once and handed to whoever needs it. Reads and writes go
through the generic Get, Set and Unset functions, since Go methods cannot
carry their own type parameters.
*/
type Store struct {
	tiers    map[string]Tier
	bus      *notify.Bus
	identity api.IdentityProvider
}

// NewStore builds a store over tiers. A nil bus gets a private one; a nil
// identity provider means scoped descriptors always fail.
func NewStore(bus *notify.Bus, identity api.IdentityProvider, tiers ...Tier) (*Store, error) {
	if bus == nil {
		bus = notify.NewBus()
	}
	s := &Store{
		tiers:    make(map[string]Tier, len(tiers)),
		bus:      bus,
		identity: identity,
	}
	for _, t := range tiers {
		if _, dup := s.tiers[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tier %q", t.Name())
		}
		s.tiers[t.Name()] = t
	}
	return s, nil
}

func (s *Store) Bus() *notify.Bus { return s.bus }

// Tier returns the tier registered under name.
func (s *Store) Tier(name string) (Tier, bool) {
	t, ok := s.tiers[name]
	return t, ok
}

// TierNames returns the registered tier names, sorted.
func (s *Store) TierNames() []string {
	names := make([]string, 0, len(s.tiers))
	for n := range s.tiers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Key returns the effective key of a descriptor name: the name itself, or
// user.<id>.<name> when scoped.
func (s *Store) Key(name string, scoped bool) (string, error) {
	if !scoped {
		return name, nil
	}
	id, ok := s.currentIdentity()
	if !ok {
		return "", ErrMissingIdentity
	}
	return userPrefix(id) + name, nil
}

func (s *Store) resolve(tier, name string, scoped bool) (Tier, string, error) {
	t, ok := s.tiers[tier]
	if !ok {
		return nil, "", fmt.Errorf("%w %q", ErrUnknownTier, tier)
	}
	key, err := s.Key(name, scoped)
	if err != nil {
		return nil, "", err
	}
	return t, key, nil
}

func (s *Store) currentIdentity() (string, bool) {
	if s.identity == nil {
		return "", false
	}
	return s.identity.Identity()
}

/*
Get returns the value stored for d.

A miss, an expired entry, or a stored value that does not decode into V
all return d.Default with a nil error. Configuration problems (no identity
for a scoped descriptor, unknown tier) return d.Default and an error.
*/
func Get[V any](s *Store, d Descriptor[V]) (V, error) {
	t, key, err := s.resolve(d.TierName(), d.Name, d.Scoped)
	if err != nil {
		return d.Default, fmt.Errorf("get %s: %w", d.Name, err)
	}

	raw, ok := t.Load(key)
	if !ok {
		return d.Default, nil
	}

	v, ok := decode[V](raw)
	if !ok {
		log.WithFields(log.Fields{
			"tier": t.Name(),
			"key":  key,
		}).Debug("stored value does not decode, using default")
		return d.Default, nil
	}
	return v, nil
}

/*
Set stores v for d and publishes d's identity.

An empty v (nil pointer, map, slice, interface, chan or func) removes the
entry instead. A value that cannot be encoded is not written, and nothing
is published.
*/
func Set[V any](ctx context.Context, s *Store, d Descriptor[V], v V) error {
	t, key, err := s.resolve(d.TierName(), d.Name, d.Scoped)
	if err != nil {
		return fmt.Errorf("set %s: %w", d.Name, err)
	}

	if isEmpty(v) {
		err = t.Delete(ctx, key)
	} else {
		err = t.Save(ctx, key, v, d.TTL)
	}
	if err != nil {
		return fmt.Errorf("set %s: %w", d.Name, err)
	}

	s.bus.Publish(d.ID())
	return nil
}

// Unset removes the value stored for d and publishes d's identity.
func Unset[V any](ctx context.Context, s *Store, d Descriptor[V]) error {
	t, key, err := s.resolve(d.TierName(), d.Name, d.Scoped)
	if err != nil {
		return fmt.Errorf("unset %s: %w", d.Name, err)
	}
	if err := t.Delete(ctx, key); err != nil {
		return fmt.Errorf("unset %s: %w", d.Name, err)
	}

	s.bus.Publish(d.ID())
	return nil
}

// Watch subscribes to changes of d, including bulk resets.
func Watch[V any](s *Store, d Descriptor[V]) *notify.Subscription {
	return s.bus.Subscribe(notify.ForID(d.ID()))
}

/*
ResetIdentity removes every scoped value of the current identity from every
tier. With nobody signed in there is nothing to remove and it returns nil.
*/
func (s *Store) ResetIdentity(ctx context.Context) error {
	id, ok := s.currentIdentity()
	if !ok {
		return nil
	}

	prefix := userPrefix(id)
	var errs []error
	for _, name := range s.TierNames() {
		n, err := s.tiers[name].DeletePrefix(ctx, prefix)
		if err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", name, err))
		}
		log.WithFields(log.Fields{"tier": name, "removed": n}).Debug("identity data reset")
	}

	s.bus.Publish(notify.All)
	return errors.Join(errs...)
}

// ResetAll empties every tier.
func (s *Store) ResetAll(ctx context.Context) error {
	var errs []error
	for _, name := range s.TierNames() {
		if err := s.tiers[name].Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", name, err))
		}
	}

	s.bus.Publish(notify.All)
	return errors.Join(errs...)
}

// Close closes every tier, flushing pending saves.
func (s *Store) Close() error {
	var errs []error
	for _, name := range s.TierNames() {
		if err := s.tiers[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func userPrefix(id string) string {
	return ScopePrefix + id + "."
}

// decode turns what a tier loaded into a V. Encoded payloads are checked
// first: a json.RawMessage also satisfies V when V is an interface type.
func decode[V any](raw any) (V, bool) {
	switch r := raw.(type) {
	case json.RawMessage:
		var v V
		if err := json.Unmarshal(r, &v); err != nil {
			return v, false
		}
		return v, true
	case V:
		return r, true
	}
	var zero V
	return zero, false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
