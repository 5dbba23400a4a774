package values

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/krisalay/storekit/engine"
)

/*
Tier is a backing store for descriptor values.

Load returns whatever representation the tier keeps: either a value of the
descriptor's own type, or a json.RawMessage the store decodes. Keys handed
to a tier are already effective keys (scoped keys carry the identity
prefix).
*/
type Tier interface {
	Name() string
	Load(key string) (any, bool)
	Save(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

/*
MemoryTier keeps values in an engine for the life of the process.

By default values are stored as handed in. A codable tier stores their JSON
encoding instead, so a read never shares memory with a previous write.
*/
type MemoryTier struct {
	name    string
	engine  *engine.Engine[string, any]
	codable bool
}

func NewMemoryTier(name string, e *engine.Engine[string, any]) *MemoryTier {
	return &MemoryTier{name: name, engine: e}
}

func NewCodableMemoryTier(name string, e *engine.Engine[string, any]) *MemoryTier {
	return &MemoryTier{name: name, engine: e, codable: true}
}

func (t *MemoryTier) Name() string { return t.name }

func (t *MemoryTier) Load(key string) (any, bool) { return t.engine.Read(key) }

func (t *MemoryTier) Save(_ context.Context, key string, value any, ttl time.Duration) error {
	if t.codable {
		b, err := json.Marshal(value)
		if err != nil {
			return err
		}
		value = json.RawMessage(b)
	}
	t.engine.Store(key, value, ttl)
	return nil
}

func (t *MemoryTier) Delete(_ context.Context, key string) error {
	t.engine.Remove(key)
	return nil
}

func (t *MemoryTier) DeletePrefix(_ context.Context, prefix string) (int, error) {
	return t.engine.RemoveFunc(func(k string) bool { return strings.HasPrefix(k, prefix) }), nil
}

func (t *MemoryTier) Clear(context.Context) error {
	t.engine.Purge()
	return nil
}

func (t *MemoryTier) Close() error { return nil }

// Engine exposes the underlying engine.
func (t *MemoryTier) Engine() *engine.Engine[string, any] { return t.engine }
