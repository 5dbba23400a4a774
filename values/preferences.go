package values

import (
	"context"
	"strings"
	"time"

	"github.com/krisalay/storekit/api"
)

// PreferencesTier keeps values in a preferences store, as handed in and
// without expiry.
type PreferencesTier struct {
	name  string
	store api.PreferencesStore
}

func NewPreferencesTier(name string, p api.PreferencesStore) *PreferencesTier {
	return &PreferencesTier{name: name, store: p}
}

func (t *PreferencesTier) Name() string { return t.name }

func (t *PreferencesTier) Load(key string) (any, bool) { return t.store.Get(key) }

func (t *PreferencesTier) Save(_ context.Context, key string, value any, _ time.Duration) error {
	t.store.Set(key, value)
	return nil
}

func (t *PreferencesTier) Delete(_ context.Context, key string) error {
	t.store.Remove(key)
	return nil
}

func (t *PreferencesTier) DeletePrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, k := range t.store.Keys() {
		if strings.HasPrefix(k, prefix) {
			t.store.Remove(k)
			n++
		}
	}
	return n, nil
}

func (t *PreferencesTier) Clear(context.Context) error {
	t.store.RemoveAll()
	return nil
}

func (t *PreferencesTier) Close() error { return nil }
