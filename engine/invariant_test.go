package engine

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/storekit/eviction"
	"github.com/krisalay/storekit/expiration"
)

// checkInvariant compares the tracker with what the mapping really holds.
func checkInvariant[K comparable, V any](t *testing.T, e *Engine[K, V]) {
	t.Helper()

	e.mu.Lock()
	defer e.mu.Unlock()

	held := e.items.Keys()
	require.Len(t, e.tracker, len(held))
	for _, k := range held {
		_, ok := e.tracker[k]
		assert.True(t, ok, "key %v held but not tracked", k)
	}
}

func TestTrackerMatchesMappingAfterOverflow(t *testing.T) {
	for _, p := range []eviction.PolicyType{eviction.LRU, eviction.LFU, eviction.FIFO} {
		t.Run(string(p), func(t *testing.T) {
			e, err := New(
				WithCapacity[int, string](3),
				WithPolicy[int, string](p),
				WithClock[int, string](expiration.NewManual(time.Unix(0, 0))),
			)
			require.NoError(t, err)

			for i := 0; i < 4; i++ {
				e.Store(i, fmt.Sprint(i), time.Minute)
				checkInvariant(t, e)
			}

			keys := e.Keys()
			sort.Ints(keys)
			assert.Len(t, keys, 3)
		})
	}
}

func TestTrackerMatchesMappingAfterExpiryAndResize(t *testing.T) {
	clock := expiration.NewManual(time.Unix(0, 0))
	e, err := New(WithCapacity[int, string](8), WithClock[int, string](clock))
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		e.Store(i, "v", time.Duration(i+1)*time.Second)
	}
	clock.Advance(3 * time.Second)

	for i := 0; i < 8; i++ {
		_, _ = e.Read(i)
	}
	checkInvariant(t, e)
	assert.Equal(t, 5, e.Len())

	require.NoError(t, e.SetCapacity(2))
	checkInvariant(t, e)
	assert.Equal(t, 2, e.Len())
}
