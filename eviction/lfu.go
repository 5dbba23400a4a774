// This file implements LFU eviction.

package eviction

// lfuNode represents one key tracked by LFU.
type lfuNode[K comparable] struct {
	key  K   // cache key
	freq int // how many times this key was accessed
}

type lfu[K comparable] struct {
	// nodes lets us quickly find the node for a key
	nodes map[K]*lfuNode[K]

	// freqMap groups keys by how many times they were accessed
	freqMap map[int]map[K]*lfuNode[K]

	// minFreq keeps track of the smallest frequency currently present in the cache.
	// This avoids scanning the entire map on eviction.
	minFreq int
}

func newLFU[K comparable]() *lfu[K] {
	return &lfu[K]{
		nodes:   make(map[K]*lfuNode[K]),
		freqMap: make(map[int]map[K]*lfuNode[K]),
	}
}

// OnGet bumps the access count of a tracked key.
func (l *lfu[K]) OnGet(k K) {
	n, ok := l.nodes[k]
	if !ok {
		return
	}
	l.bump(n)
}

// OnPut starts tracking a new key at frequency 1. A rewrite of a tracked key
// counts as an access.
func (l *lfu[K]) OnPut(k K) {
	if n, ok := l.nodes[k]; ok {
		l.bump(n)
		return
	}

	n := &lfuNode[K]{key: k, freq: 1}
	l.nodes[k] = n

	if l.freqMap[1] == nil {
		l.freqMap[1] = make(map[K]*lfuNode[K])
	}
	l.freqMap[1][k] = n

	// Since a new key with freq=1 exists, minFreq must be 1
	l.minFreq = 1
}

// Evict removes a key with the lowest frequency. Ties are broken arbitrarily.
func (l *lfu[K]) Evict() (K, bool) {
	if len(l.nodes) == 0 {
		var zero K
		return zero, false
	}
	if len(l.freqMap[l.minFreq]) == 0 {
		l.recomputeMin()
	}

	for k := range l.freqMap[l.minFreq] {
		l.unlink(k)
		return k, true
	}

	var zero K
	return zero, false
}

// Remove forgets a key that left the cache without being evicted.
func (l *lfu[K]) Remove(k K) {
	if _, ok := l.nodes[k]; ok {
		l.unlink(k)
	}
}

func (l *lfu[K]) Reset() {
	l.nodes = make(map[K]*lfuNode[K])
	l.freqMap = make(map[int]map[K]*lfuNode[K])
	l.minFreq = 0
}

func (l *lfu[K]) bump(n *lfuNode[K]) {
	old := n.freq
	n.freq++

	delete(l.freqMap[old], n.key)
	if len(l.freqMap[old]) == 0 {
		delete(l.freqMap, old)
		if l.minFreq == old {
			l.minFreq++
		}
	}

	if l.freqMap[n.freq] == nil {
		l.freqMap[n.freq] = make(map[K]*lfuNode[K])
	}
	l.freqMap[n.freq][n.key] = n
}

func (l *lfu[K]) unlink(k K) {
	n := l.nodes[k]
	delete(l.freqMap[n.freq], k)
	if len(l.freqMap[n.freq]) == 0 {
		delete(l.freqMap, n.freq)
	}
	delete(l.nodes, k)
}

// recomputeMin scans the buckets after removals emptied the minimum one.
func (l *lfu[K]) recomputeMin() {
	l.minFreq = 0
	for f := range l.freqMap {
		if l.minFreq == 0 || f < l.minFreq {
			l.minFreq = f
		}
	}
}
