// Package apitest provides in-memory implementations of the api contracts.
package apitest

import (
	"errors"
	"sort"
	"sync"

	"github.com/krisalay/storekit/api"
)

// Preferences is a map-backed api.PreferencesStore.
type Preferences struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewPreferences() *Preferences {
	return &Preferences{values: make(map[string]any)}
}

func (p *Preferences) Get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	v, ok := p.values[key]
	return v, ok
}

func (p *Preferences) Set(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.values[key] = value
}

func (p *Preferences) Remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.values, key)
}

func (p *Preferences) RemoveAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.values)
}

// Keys returns the set keys in sorted order.
func (p *Preferences) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrLocked is returned by a locked Credentials store.
var ErrLocked = errors.New("credential store locked")

type item struct{ service, account string }

// Credentials is a map-backed api.CredentialStore. Lock makes every call
// fail with ErrLocked, which is how tests simulate an unavailable keychain.
type Credentials struct {
	mu     sync.RWMutex
	items  map[item][]byte
	locked bool
}

func NewCredentials() *Credentials {
	return &Credentials{items: make(map[item][]byte)}
}

func (c *Credentials) Lock(locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.locked = locked
}

func (c *Credentials) Read(service, account string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.locked {
		return nil, false, ErrLocked
	}
	data, ok := c.items[item{service, account}]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (c *Credentials) Write(service, account string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked {
		return ErrLocked
	}
	c.items[item{service, account}] = append([]byte(nil), data...)
	return nil
}

func (c *Credentials) Delete(service, account string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked {
		return ErrLocked
	}
	delete(c.items, item{service, account})
	return nil
}

func (c *Credentials) Accounts(service string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.locked {
		return nil, ErrLocked
	}
	var out []string
	for it := range c.items {
		if it.service == service {
			out = append(out, it.account)
		}
	}
	sort.Strings(out)
	return out, nil
}

var (
	_ api.PreferencesStore = (*Preferences)(nil)
	_ api.CredentialStore  = (*Credentials)(nil)
)
