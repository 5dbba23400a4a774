package values

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/krisalay/storekit/persist"
	"github.com/krisalay/storekit/writepolicy"
)

/*
PersistedTier keeps JSON-encoded values in a persisted region.

Every mutation is handed to the write policy, which decides when the region
file is rewritten. Save errors never reach the caller; the in-memory region
stays authoritative.
*/
type PersistedTier struct {
	name   string
	region *persist.Region
	policy writepolicy.WritePolicy
}

func NewPersistedTier(name string, r *persist.Region, wp writepolicy.WritePolicy) *PersistedTier {
	return &PersistedTier{name: name, region: r, policy: wp}
}

func (t *PersistedTier) Name() string { return t.name }

func (t *PersistedTier) Load(key string) (any, bool) {
	s, ok := t.region.Read(key)
	if !ok {
		return nil, false
	}
	return json.RawMessage(s), true
}

func (t *PersistedTier) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	t.region.Store(key, string(b), ttl)
	t.policy.OnWrite(ctx)
	return nil
}

func (t *PersistedTier) Delete(ctx context.Context, key string) error {
	t.region.Remove(key)
	t.policy.OnWrite(ctx)
	return nil
}

func (t *PersistedTier) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	n := t.region.RemoveFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
	if n > 0 {
		t.policy.OnWrite(ctx)
	}
	return n, nil
}

func (t *PersistedTier) Clear(ctx context.Context) error {
	t.region.Purge()
	t.policy.OnWrite(ctx)
	return nil
}

// Close flushes pending saves.
func (t *PersistedTier) Close() error {
	t.policy.Close()
	return nil
}

// Region exposes the underlying region.
func (t *PersistedTier) Region() *persist.Region { return t.region }
