// This file implements FIFO eviction.

package eviction

type fifo[K comparable] struct {
	// queue keeps keys in the order they were inserted.
	// The front of the queue (index 0) is the oldest key.
	queue []K

	// set keeps track of which keys are currently in the queue.
	set map[K]struct{}
}

func newFIFO[K comparable]() *fifo[K] {
	return &fifo[K]{
		queue: make([]K, 0),
		set:   make(map[K]struct{}),
	}
}

// OnGet is called when a key is read from the cache. FIFO ignores reads completely.
func (f *fifo[K]) OnGet(K) {}

// OnPut is called when a key is added to the cache.
// If the key is already being tracked: Do nothing. FIFO only cares about the first insertion
// If the key is new: Add it to the end of the queue, and record it in the set
func (f *fifo[K]) OnPut(k K) {
	if _, ok := f.set[k]; ok {
		return
	}
	f.queue = append(f.queue, k)
	f.set[k] = struct{}{}
}

// Evict returns the oldest inserted key and forgets it.
func (f *fifo[K]) Evict() (K, bool) {
	if len(f.queue) == 0 {
		var zero K
		return zero, false
	}
	k := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.set, k)
	return k, true
}

// Remove is called when a key leaves the cache without being chosen by Evict.
func (f *fifo[K]) Remove(k K) {
	if _, ok := f.set[k]; !ok {
		return
	}
	delete(f.set, k)

	// Remove from queue while preserving order
	for i, v := range f.queue {
		if v == k {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			break
		}
	}
}

func (f *fifo[K]) Reset() {
	f.queue = f.queue[:0]
	f.set = make(map[K]struct{})
}
