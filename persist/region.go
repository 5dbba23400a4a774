package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/krisalay/storekit/engine"
	"github.com/krisalay/storekit/eviction"
	"github.com/krisalay/storekit/expiration"
	"github.com/krisalay/storekit/types"
)

/*
Region is a cache engine whose live entries survive restarts.

Keys are strings and so are values: the typed layer above hands in JSON
payloads, and the region never looks inside them. The whole live state is
written to one file per region; there is no incremental update.
*/
type Region struct {
	name   string
	path   string
	engine *engine.Engine[string, string]

	// saveMu orders saves: a snapshot is taken and renamed into place
	// before the next one is taken.
	saveMu sync.Mutex
}

type options struct {
	root     string
	capacity int
	policy   eviction.PolicyType
	clock    expiration.Clock
	metrics  types.Metrics

	metricsFor func(region string) types.Metrics
}

// Option configures Open.
type Option func(*options)

// WithRoot sets the cache root instead of resolving it from the environment.
func WithRoot(dir string) Option {
	return func(o *options) { o.root = dir }
}

// WithCapacity sets the maximum entry count of the region.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithPolicy selects the eviction policy of the region.
func WithPolicy(p eviction.PolicyType) Option {
	return func(o *options) { o.policy = p }
}

// WithClock replaces the wall clock.
func WithClock(c expiration.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics reports engine activity to m.
func WithMetrics(m types.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMetricsFor builds the metrics of each region from its name. It wins
// over WithMetrics, which suits a Registry opening many regions.
func WithMetricsFor(f func(region string) types.Metrics) Option {
	return func(o *options) { o.metricsFor = f }
}

/*
Open builds the region called name and restores its snapshot.

  - file present and readable: every entry still alive is reinserted with its
    original deadline; entries already expired are dropped for good
  - file missing or undecodable: the region starts empty and an empty
    snapshot is written, best effort

Only configuration problems (bad name, bad capacity, no cache root) are
returned as errors; a bad or missing file never is.
*/
func Open(name string, opts ...Option) (*Region, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid region name %q", name)
	}

	o := options{capacity: engine.DefaultCapacity, policy: eviction.LRU}
	for _, opt := range opts {
		opt(&o)
	}

	if o.metricsFor != nil {
		o.metrics = o.metricsFor(name)
	}

	if o.root == "" {
		root, err := Root()
		if err != nil {
			return nil, err
		}
		o.root = root
	}

	e, err := engine.New(
		engine.WithName[string, string](name),
		engine.WithCapacity[string, string](o.capacity),
		engine.WithPolicy[string, string](o.policy),
		engine.WithClock[string, string](o.clock),
		engine.WithMetrics[string, string](o.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("open region %s: %w", name, err)
	}

	r := &Region{
		name:   name,
		path:   FilePath(o.root, name),
		engine: e,
	}

	if !r.load() {
		if err := r.Save(); err != nil {
			log.WithError(err).WithField("region", name).Warn("failed to create cache file")
		}
	}
	return r, nil
}

// load restores the snapshot and reports whether a usable file was found.
func (r *Region) load() bool {
	ctx := log.WithFields(log.Fields{"region": r.name, "path": r.path})

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			ctx.Debug("no cache file, starting empty")
		} else {
			ctx.WithError(err).Warn("failed to read cache file, starting empty")
		}
		return false
	}

	entries, err := DecodeSnapshot(data)
	if err != nil {
		ctx.WithError(err).Warn("failed to decode cache file, starting empty")
		return false
	}

	now := r.engine.Now()
	restored, dropped := 0, 0
	for _, ent := range entries {
		if ent.Expired(now) {
			dropped++
			continue
		}
		r.engine.Insert(ent)
		restored++
	}

	ctx.WithFields(log.Fields{"restored": restored, "dropped": dropped}).Debug("cache loaded")
	return true
}

/*
Save writes the live entries to the region file.

The directory is created when missing. The file is replaced as a whole:
the snapshot goes to a temporary file next to it, which is then renamed
over the old one. Saves of one region run one at a time, so an older
snapshot never lands over a newer one.
*/
func (r *Region) Save() error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	data, err := EncodeSnapshot(r.engine.LiveEntries())
	if err != nil {
		return fmt.Errorf("save region %s: %w", r.name, err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+r.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Read returns the encoded value stored under key.
func (r *Region) Read(key string) (string, bool) { return r.engine.Read(key) }

// Store writes an encoded value. It does not save; callers go through a
// write policy for that.
func (r *Region) Store(key, value string, ttl time.Duration) { r.engine.Store(key, value, ttl) }

// Remove drops key. It does not save.
func (r *Region) Remove(key string) { r.engine.Remove(key) }

// RemoveFunc drops every key matching match. It does not save.
func (r *Region) RemoveFunc(match func(string) bool) int { return r.engine.RemoveFunc(match) }

// Purge drops every entry. It does not save.
func (r *Region) Purge() { r.engine.Purge() }

// LiveEntries returns the entries a save would write.
func (r *Region) LiveEntries() []types.Entry[string, string] { return r.engine.LiveEntries() }

func (r *Region) Name() string { return r.name }

// Path is the snapshot file location.
func (r *Region) Path() string { return r.path }

// Engine exposes the underlying engine.
func (r *Region) Engine() *engine.Engine[string, string] { return r.engine }

var _ types.Persister = (*Region)(nil)
