package engine_test

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/storekit/engine"
	"github.com/krisalay/storekit/eviction"
	"github.com/krisalay/storekit/expiration"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type counters struct {
	mu                               sync.Mutex
	hits, misses, evictions, expired int
}

func (c *counters) Hit()       { c.mu.Lock(); c.hits++; c.mu.Unlock() }
func (c *counters) Miss()      { c.mu.Lock(); c.misses++; c.mu.Unlock() }
func (c *counters) Eviction()  { c.mu.Lock(); c.evictions++; c.mu.Unlock() }
func (c *counters) Expire()    { c.mu.Lock(); c.expired++; c.mu.Unlock() }
func (c *counters) Save(error) {}

func newTestEngine(t *testing.T, capacity int, opts ...engine.Option[string, string]) (*engine.Engine[string, string], *expiration.Manual) {
	t.Helper()

	clock := expiration.NewManual(epoch)
	opts = append([]engine.Option[string, string]{
		engine.WithCapacity[string, string](capacity),
		engine.WithClock[string, string](clock),
	}, opts...)

	e, err := engine.New(opts...)
	require.NoError(t, err)
	return e, clock
}

// assertTrackerConsistent checks that every tracked key is retrievable and
// that the tracker and the mapping hold the same number of keys.
func assertTrackerConsistent(t *testing.T, e *engine.Engine[string, string]) {
	t.Helper()

	keys := e.Keys()
	assert.Equal(t, len(keys), e.Len(), "tracker and mapping disagree on size")
	for _, k := range keys {
		assert.True(t, e.Contains(k))
	}
}

func TestStoreAndRead(t *testing.T) {
	e, _ := newTestEngine(t, 10)

	e.Store("key1", "value1", time.Minute)

	v, ok := e.Read("key1")
	require.True(t, ok)
	assert.Equal(t, "value1", v)
}

func TestReadMissingKey(t *testing.T) {
	e, _ := newTestEngine(t, 10)

	v, ok := e.Read("missing")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStoreReplacesEntry(t *testing.T) {
	e, clock := newTestEngine(t, 10)

	e.Store("key1", "value1", time.Second)
	e.Store("key1", "value2", time.Minute)

	// The replacement carries its own deadline.
	clock.Advance(2 * time.Second)

	v, ok := e.Read("key1")
	require.True(t, ok)
	assert.Equal(t, "value2", v)
	assert.Equal(t, 1, e.Len())
}

func TestLazyExpirationOnRead(t *testing.T) {
	m := &counters{}
	e, clock := newTestEngine(t, 10, engine.WithMetrics[string, string](m))

	e.Store("ttlKey", "temp", time.Second)
	clock.Advance(1500 * time.Millisecond)

	// Still held until touched.
	assert.True(t, e.Contains("ttlKey"))

	_, ok := e.Read("ttlKey")
	assert.False(t, ok)
	assert.False(t, e.Contains("ttlKey"))
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 1, m.expired)
	assert.Equal(t, 1, m.misses)
}

func TestExpiresExactlyAtDeadline(t *testing.T) {
	e, clock := newTestEngine(t, 10)

	e.Store("k", "v", time.Second)
	clock.Advance(time.Second)

	_, ok := e.Read("k")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	e, _ := newTestEngine(t, 10)

	e.Store("key1", "value1", time.Minute)
	e.Remove("key1")
	e.Remove("never-there")

	_, ok := e.Read("key1")
	assert.False(t, ok)
	assert.Empty(t, e.Keys())
}

func TestCapacityKeepsTrackerInSync(t *testing.T) {
	for _, p := range []eviction.PolicyType{eviction.LRU, eviction.LFU, eviction.FIFO} {
		t.Run(string(p), func(t *testing.T) {
			const n = 5
			m := &counters{}
			e, _ := newTestEngine(t, n,
				engine.WithPolicy[string, string](p),
				engine.WithMetrics[string, string](m),
			)

			for i := 0; i <= n; i++ {
				e.Store(fmt.Sprintf("key-%d", i), "v", time.Minute)
			}

			assert.Equal(t, n, e.Len())
			assert.Len(t, e.Keys(), n)
			assertTrackerConsistent(t, e)
			assert.Equal(t, 1, m.evictions)

			retrievable := 0
			for i := 0; i <= n; i++ {
				if _, ok := e.Read(fmt.Sprintf("key-%d", i)); ok {
					retrievable++
				}
			}
			assert.Equal(t, n, retrievable)
		})
	}
}

func TestLRUEvictsLeastRecentlyRead(t *testing.T) {
	e, _ := newTestEngine(t, 2)

	e.Store("key1", "value1", time.Minute)
	e.Store("key2", "value2", time.Minute)

	// key1 becomes the most recently used.
	_, _ = e.Read("key1")

	e.Store("key3", "value3", time.Minute)

	_, ok := e.Read("key2")
	assert.False(t, ok, "key2 should have been evicted")
	_, ok = e.Read("key1")
	assert.True(t, ok)
	assertTrackerConsistent(t, e)
}

func TestObserverSeesCapacityEvictionsOnly(t *testing.T) {
	var evicted []string
	obs := eviction.ObserverFunc[string](func(k string) { evicted = append(evicted, k) })

	e, clock := newTestEngine(t, 1, engine.WithObserver[string, string](obs))

	e.Store("a", "1", time.Second)
	e.Store("b", "2", time.Minute) // evicts a
	e.Remove("b")                  // explicit, not reported
	e.Store("c", "3", time.Second)
	clock.Advance(time.Minute)
	_, _ = e.Read("c") // expired, not reported

	assert.Equal(t, []string{"a"}, evicted)
}

func TestLiveEntriesSkipsExpiredWithoutEvicting(t *testing.T) {
	e, clock := newTestEngine(t, 10)

	e.Store("long1", "a", time.Hour)
	e.Store("long2", "b", time.Hour)
	e.Store("short", "c", time.Second)
	clock.Advance(time.Minute)

	live := e.LiveEntries()
	keys := make([]string, 0, len(live))
	for _, ent := range live {
		keys = append(keys, ent.Key)
	}
	sort.Strings(keys)

	assert.Equal(t, []string{"long1", "long2"}, keys)
	assert.True(t, e.Contains("short"), "enumeration must not reclaim")
	assert.Equal(t, 3, e.Len())
}

func TestRemoveFunc(t *testing.T) {
	e, _ := newTestEngine(t, 10)

	e.Store("user.alice.a", "1", time.Minute)
	e.Store("user.alice.b", "2", time.Minute)
	e.Store("user.bob.a", "3", time.Minute)

	n := e.RemoveFunc(func(k string) bool { return strings.HasPrefix(k, "user.alice.") })

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"user.bob.a"}, e.Keys())
	assertTrackerConsistent(t, e)
}

func TestPurge(t *testing.T) {
	e, _ := newTestEngine(t, 10)

	e.Store("a", "1", time.Minute)
	e.Store("b", "2", time.Minute)
	e.Purge()

	assert.Equal(t, 0, e.Len())
	assert.Empty(t, e.Keys())
}

func TestSetCapacityShrinks(t *testing.T) {
	e, _ := newTestEngine(t, 10)

	for i := 0; i < 10; i++ {
		e.Store(fmt.Sprintf("key-%d", i), "v", time.Minute)
	}

	require.NoError(t, e.SetCapacity(4))
	assert.Equal(t, 4, e.Capacity())
	assert.Equal(t, 4, e.Len())
	assertTrackerConsistent(t, e)

	assert.Error(t, e.SetCapacity(0))
}

func TestNewRejectsBadCapacity(t *testing.T) {
	_, err := engine.New(engine.WithCapacity[string, int](0))
	assert.Error(t, err)
}

func TestConcurrentAccessKeepsInvariant(t *testing.T) {
	e, _ := newTestEngine(t, 16)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := fmt.Sprintf("key-%d", (id*31+i)%40)
				switch i % 3 {
				case 0:
					e.Store(k, "v", time.Minute)
				case 1:
					_, _ = e.Read(k)
				default:
					e.Remove(k)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, e.Len(), 16)
	assertTrackerConsistent(t, e)
}
