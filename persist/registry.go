package persist

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

/*
Registry hands out one Region per name.

The first Open of a name reads its file; later calls get the same *Region.
Concurrent first opens of one name are collapsed with singleflight so the
file is read once and no two regions ever own the same path.
*/
type Registry struct {
	opts []Option

	mu      sync.RWMutex
	regions map[string]*Region

	sf singleflight.Group
}

// NewRegistry creates a Registry that opens every region with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts:    opts,
		regions: make(map[string]*Region),
	}
}

// Open returns the region called name, loading it on first use.
func (g *Registry) Open(name string) (*Region, error) {
	g.mu.RLock()
	r, ok := g.regions[name]
	g.mu.RUnlock()
	if ok {
		return r, nil
	}

	v, err, _ := g.sf.Do(name, func() (any, error) {
		g.mu.RLock()
		r, ok := g.regions[name]
		g.mu.RUnlock()
		if ok {
			return r, nil
		}

		r, err := Open(name, g.opts...)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		g.regions[name] = r
		g.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return v.(*Region), nil
}

// Names lists the regions opened so far, sorted.
func (g *Registry) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.regions))
	for n := range g.regions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SaveAll saves every opened region and returns the first error.
func (g *Registry) SaveAll() error {
	g.mu.RLock()
	regions := make([]*Region, 0, len(g.regions))
	for _, r := range g.regions {
		regions = append(regions, r)
	}
	g.mu.RUnlock()

	var first error
	for _, r := range regions {
		if err := r.Save(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
