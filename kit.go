package cache

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/krisalay/storekit/api"
	"github.com/krisalay/storekit/engine"
	"github.com/krisalay/storekit/eviction"
	"github.com/krisalay/storekit/expiration"
	"github.com/krisalay/storekit/internal/config"
	"github.com/krisalay/storekit/metrics"
	"github.com/krisalay/storekit/notify"
	"github.com/krisalay/storekit/persist"
	"github.com/krisalay/storekit/types"
	"github.com/krisalay/storekit/values"
	"github.com/krisalay/storekit/writepolicy"
)

// DefaultRegion is the persisted region backing values.TierPersisted.
const DefaultRegion = "data"

// DefaultCredentialService is the credential service used when none is set.
const DefaultCredentialService = "storekit"

/*
Kit is the main entry point.
This struct is the orchestrator that connects:
- the in-memory tier
- the persisted tier and its write policy
- the optional preferences and credential tiers
- the change bus
- metrics

A Kit is built once at startup and passed to whoever reads or writes
values. Nothing in this module keeps a package-level instance.
*/
type Kit struct {
	// Store is where descriptors are read and written.
	Store *values.Store

	// Bus carries change signals for every tier.
	Bus *notify.Bus

	// Regions owns the persisted regions opened by this kit.
	Regions *persist.Registry

	// Metrics is nil unless WithRegisterer was given.
	Metrics *metrics.Metrics
}

type options struct {
	root        string
	region      string
	capacity    int
	policy      eviction.PolicyType
	writeMode   writepolicy.Mode
	writeBuffer int
	clock       expiration.Clock
	registerer  prometheus.Registerer
	identity    api.IdentityProvider
	preferences api.PreferencesStore
	credentials api.CredentialStore
	service     string

	// err is set by an option that could not be applied.
	err error
}

// Option configures New.
type Option func(*options)

// WithRoot sets the cache root for persisted regions.
func WithRoot(dir string) Option { return func(o *options) { o.root = dir } }

// WithRegion names the region backing the persisted tier.
func WithRegion(name string) Option { return func(o *options) { o.region = name } }

// WithCapacity bounds each tier's engine.
func WithCapacity(n int) Option { return func(o *options) { o.capacity = n } }

// WithPolicy selects the eviction policy of each engine.
func WithPolicy(p eviction.PolicyType) Option { return func(o *options) { o.policy = p } }

// WithWriteMode selects write-through or write-back for the persisted tier.
func WithWriteMode(m writepolicy.Mode, buffer int) Option {
	return func(o *options) {
		o.writeMode = m
		o.writeBuffer = buffer
	}
}

/*
WithConfig applies a loaded configuration: cache root and region, engine
capacity and eviction policy, write mode and write-back buffer. Options
after it override single fields.
*/
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		policy, err := cfg.Policy()
		if err != nil {
			o.err = err
			return
		}
		if cfg.Cache.Dir != "" {
			o.root = cfg.Cache.Dir
		}
		if cfg.Cache.Region != "" {
			o.region = cfg.Cache.Region
		}
		o.capacity = cfg.Cache.Capacity
		o.policy = policy
		o.writeMode = cfg.WriteMode()
		o.writeBuffer = cfg.Write.Buffer
	}
}

// WithClock replaces the wall clock in every engine.
func WithClock(c expiration.Clock) Option { return func(o *options) { o.clock = c } }

// WithRegisterer exports cache metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithIdentity sets who scoped descriptors belong to.
func WithIdentity(p api.IdentityProvider) Option { return func(o *options) { o.identity = p } }

// WithPreferences adds a values.TierPreferences tier backed by p.
func WithPreferences(p api.PreferencesStore) Option {
	return func(o *options) { o.preferences = p }
}

// WithCredentials adds a values.TierCredentials tier backed by c under service.
func WithCredentials(c api.CredentialStore, service string) Option {
	return func(o *options) {
		o.credentials = c
		o.service = service
	}
}

/*
New builds a Kit.

The memory and persisted tiers are always present. The persisted region is
loaded from disk here, so New does file I/O; a missing or corrupt file only
means starting empty.
*/
func New(opts ...Option) (*Kit, error) {
	o := options{
		region:    DefaultRegion,
		capacity:  engine.DefaultCapacity,
		policy:    eviction.LRU,
		writeMode: writepolicy.WriteThrough,
		service:   DefaultCredentialService,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, fmt.Errorf("config: %w", o.err)
	}

	k := &Kit{Bus: notify.NewBus()}
	if o.registerer != nil {
		k.Metrics = metrics.NewMetrics(o.registerer)
	}

	mem, err := engine.New(
		engine.WithName[string, any](values.TierMemory),
		engine.WithCapacity[string, any](o.capacity),
		engine.WithPolicy[string, any](o.policy),
		engine.WithClock[string, any](o.clock),
		engine.WithMetrics[string, any](k.metricsFor(values.TierMemory)),
	)
	if err != nil {
		return nil, fmt.Errorf("memory tier: %w", err)
	}

	regionOpts := []persist.Option{
		persist.WithCapacity(o.capacity),
		persist.WithPolicy(o.policy),
		persist.WithClock(o.clock),
		persist.WithMetricsFor(k.metricsFor),
	}
	if o.root != "" {
		regionOpts = append(regionOpts, persist.WithRoot(o.root))
	}
	k.Regions = persist.NewRegistry(regionOpts...)

	region, err := k.Regions.Open(o.region)
	if err != nil {
		return nil, fmt.Errorf("persisted tier: %w", err)
	}
	wp, err := writepolicy.New(o.writeMode, region, k.metricsFor(o.region), o.writeBuffer)
	if err != nil {
		return nil, fmt.Errorf("persisted tier: %w", err)
	}

	tiers := []values.Tier{
		values.NewMemoryTier(values.TierMemory, mem),
		values.NewPersistedTier(values.TierPersisted, region, wp),
	}
	if o.preferences != nil {
		tiers = append(tiers, values.NewPreferencesTier(values.TierPreferences, o.preferences))
	}
	if o.credentials != nil {
		tiers = append(tiers, values.NewCredentialTier(values.TierCredentials, o.service, o.credentials))
	}

	k.Store, err = values.NewStore(k.Bus, o.identity, tiers...)
	if err != nil {
		wp.Close()
		return nil, err
	}
	return k, nil
}

/*
Close gracefully shuts down the kit.
This is important for write-back policies, so pending writes are flushed.
The bus is closed last; subscribers see their channels close.
*/
func (k *Kit) Close() error {
	err := k.Store.Close()
	if saveErr := k.Regions.SaveAll(); saveErr != nil {
		err = errors.Join(err, saveErr)
	}
	k.Bus.Close()
	return err
}

func (k *Kit) metricsFor(name string) types.Metrics {
	if k.Metrics == nil {
		return types.NoopMetrics{}
	}
	return k.Metrics.For(name)
}
