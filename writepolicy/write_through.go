package writepolicy

import (
	"context"

	"github.com/krisalay/storekit/types"
)

/*
This file implements the "write-through" policy.

Whenever a persisted region changes, its snapshot is written immediately.

So the flow is: Cache write → file write (synchronous)
*/

/*
WriteThroughPolicy saves on every mutation, on the caller's goroutine.
*/
type WriteThroughPolicy struct {

	// persister is the region whose snapshot must be written immediately.
	persister types.Persister

	metrics types.Metrics
}

/*
NewWriteThroughPolicy creates a new write-through policy.
*/
func NewWriteThroughPolicy(p types.Persister, metrics types.Metrics) *WriteThroughPolicy {
	return &WriteThroughPolicy{persister: p, metrics: orNoop(metrics)}
}

/*
OnWrite saves the region right away.
  - This call is synchronous
  - If the disk is slow, cache writes become slow
  - A failed save is logged; the caller never sees it
  - The mutation already happened, so a cancelled ctx still saves
*/
func (w *WriteThroughPolicy) OnWrite(context.Context) {
	save(w.persister, w.metrics)
}

// Close has nothing to flush: every write already reached the disk.
func (w *WriteThroughPolicy) Close() {}
