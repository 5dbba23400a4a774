package values

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/krisalay/storekit/api"
)

/*
CredentialTier keeps JSON-encoded values in a credential store. All items
share one service; the effective key is the account.

A store that cannot be read behaves like an empty one on Load: the failure
is logged and the descriptor default is returned. Writes report it.
*/
type CredentialTier struct {
	name    string
	service string
	store   api.CredentialStore
}

func NewCredentialTier(name, service string, c api.CredentialStore) *CredentialTier {
	return &CredentialTier{name: name, service: service, store: c}
}

func (t *CredentialTier) Name() string { return t.name }

func (t *CredentialTier) Load(key string) (any, bool) {
	data, ok, err := t.store.Read(t.service, key)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"service": t.service,
			"account": key,
		}).Warn("failed to read credential")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return json.RawMessage(data), true
}

func (t *CredentialTier) Save(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.store.Write(t.service, key, b)
}

func (t *CredentialTier) Delete(_ context.Context, key string) error {
	return t.store.Delete(t.service, key)
}

func (t *CredentialTier) DeletePrefix(_ context.Context, prefix string) (int, error) {
	accounts, err := t.store.Accounts(t.service)
	if err != nil {
		return 0, fmt.Errorf("list credentials: %w", err)
	}

	var (
		n    int
		errs []error
	)
	for _, a := range accounts {
		if !strings.HasPrefix(a, prefix) {
			continue
		}
		if err := t.store.Delete(t.service, a); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func (t *CredentialTier) Clear(ctx context.Context) error {
	_, err := t.DeletePrefix(ctx, "")
	return err
}

func (t *CredentialTier) Close() error { return nil }
