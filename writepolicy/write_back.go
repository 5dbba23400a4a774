package writepolicy

import (
	"context"
	"sync"

	"github.com/apex/log"

	"github.com/krisalay/storekit/types"
)

// This file implements the "write-back" policy.

/*
WriteBackPolicy moves saves off the caller's goroutine.

A save always writes the whole live state, so pending requests carry no
payload: one queued request covers every mutation made before the worker
picks it up.
*/
type WriteBackPolicy struct {

	// persister is the region to save.
	persister types.Persister

	metrics types.Metrics

	// ch is a buffered channel that holds pending save requests.
	ch chan struct{}

	// mu guards closed so OnWrite never sends on a closed channel.
	mu     sync.RWMutex
	closed bool

	// wg is used to wait for the worker to finish during shutdown.
	wg sync.WaitGroup
}

// NewWriteBackPolicy creates a new write-back policy and starts its worker.
func NewWriteBackPolicy(p types.Persister, metrics types.Metrics, buffer int) *WriteBackPolicy {
	w := &WriteBackPolicy{
		persister: p,
		metrics:   orNoop(metrics),
		ch:        make(chan struct{}, buffer),
	}

	// Start one background worker
	w.wg.Add(1)
	go w.worker()

	return w
}

// OnWrite queues a save and returns. If the queue is full the request is
// dropped: the saves already queued will pick up this mutation too.
func (w *WriteBackPolicy) OnWrite(context.Context) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return
	}

	select {
	case w.ch <- struct{}{}:
	default:
		log.WithField("region", w.persister.Name()).Debug("save already pending")
	}
}

// worker drains the queue, one save per request.
func (w *WriteBackPolicy) worker() {
	defer w.wg.Done()

	for range w.ch {
		save(w.persister, w.metrics)
	}
}

/*
Close shuts down the write-back policy gracefully.
------------------
1. Close the channel (no more saves accepted)
2. Wait for the worker to finish the queued saves

Without this, the last mutations could be lost when the application shuts down.
*/
func (w *WriteBackPolicy) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.wg.Wait()
}
