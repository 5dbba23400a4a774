package eviction

/*
policy is the bookkeeping contract for the hand-written strategies (LFU, FIFO).
policyMap owns the data; a policy only decides who goes next.
*/
type policy[K comparable] interface {

	// OnGet is called whenever a key is read. FIFO ignores it, LFU counts it.
	OnGet(K)

	// OnPut is called whenever a key is added or replaced.
	OnPut(K)

	// Remove is called when a key leaves the map for any reason other than
	// Evict, so the policy can forget it.
	Remove(K)

	// Evict picks the victim, forgets it, and returns it.
	// ok is false when nothing is tracked.
	Evict() (key K, ok bool)

	// Reset forgets everything.
	Reset()
}

// policyMap is a Map built from a plain map plus a policy.
type policyMap[K comparable, V any] struct {
	items    map[K]V
	policy   policy[K]
	capacity int
	onEvict  func(K, V)
}

func newPolicyMap[K comparable, V any](p policy[K], capacity int, onEvict func(K, V)) *policyMap[K, V] {
	return &policyMap[K, V]{
		items:    make(map[K]V, capacity),
		policy:   p,
		capacity: capacity,
		onEvict:  onEvict,
	}
}

func (m *policyMap[K, V]) Add(key K, value V) bool {
	if _, ok := m.items[key]; ok {
		m.items[key] = value
		m.policy.OnPut(key)
		return false
	}

	// Make room first so the newcomer is never its own victim.
	evicted := false
	for len(m.items) >= m.capacity {
		if !m.evictOne() {
			break
		}
		evicted = true
	}

	m.items[key] = value
	m.policy.OnPut(key)
	return evicted
}

func (m *policyMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.items[key]
	if ok {
		m.policy.OnGet(key)
	}
	return v, ok
}

func (m *policyMap[K, V]) Peek(key K) (V, bool) {
	v, ok := m.items[key]
	return v, ok
}

func (m *policyMap[K, V]) Remove(key K) bool {
	v, ok := m.items[key]
	if !ok {
		return false
	}
	delete(m.items, key)
	m.policy.Remove(key)
	m.notify(key, v)
	return true
}

func (m *policyMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}

func (m *policyMap[K, V]) Len() int { return len(m.items) }

func (m *policyMap[K, V]) Purge() {
	old := m.items
	m.items = make(map[K]V, m.capacity)
	m.policy.Reset()
	for k, v := range old {
		m.notify(k, v)
	}
}

func (m *policyMap[K, V]) Resize(size int) int {
	m.capacity = size
	n := 0
	for len(m.items) > m.capacity {
		if !m.evictOne() {
			break
		}
		n++
	}
	return n
}

func (m *policyMap[K, V]) evictOne() bool {
	k, ok := m.policy.Evict()
	if !ok {
		return false
	}
	v := m.items[k]
	delete(m.items, k)
	m.notify(k, v)
	return true
}

func (m *policyMap[K, V]) notify(k K, v V) {
	if m.onEvict != nil {
		m.onEvict(k, v)
	}
}
