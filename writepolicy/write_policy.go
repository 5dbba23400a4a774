package writepolicy

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"github.com/krisalay/storekit/types"
)

/*
This file defines what a "write policy" is.

Every mutation of a persisted region has to reach the disk eventually.
Different callers have different needs:
- Some want the file updated before the call returns (write-through)
- Some cannot afford blocking file I/O on the calling goroutine (write-back)

Both are best effort: a failed save is logged and swallowed, and the
in-memory state stays authoritative until the next successful save.
*/

/*
WritePolicy is the contract that all write policies must follow.
The typed value store does not care which policy is used. It simply calls these methods.
*/
type WritePolicy interface {

	/*
		OnWrite is called after every mutation of the persisted region.
		The mutation is already in memory by then, so ctx never cancels
		the save.
	*/
	OnWrite(ctx context.Context)

	/*
		Close is called when the store is shutting down.
	*/
	Close()
}

// Mode names a write policy in configuration.
type Mode string

const (
	WriteThrough Mode = "through"
	WriteBack    Mode = "back"
)

// DefaultBuffer is the write-back queue length used when none is configured.
const DefaultBuffer = 16

// New builds the policy named by mode for p.
func New(mode Mode, p types.Persister, metrics types.Metrics, buffer int) (WritePolicy, error) {
	switch mode {
	case "", WriteThrough:
		return NewWriteThroughPolicy(p, metrics), nil
	case WriteBack:
		if buffer <= 0 {
			buffer = DefaultBuffer
		}
		return NewWriteBackPolicy(p, metrics, buffer), nil
	default:
		return nil, fmt.Errorf("unknown write mode %q", mode)
	}
}

// save runs one save and reports it. Errors stop here.
func save(p types.Persister, metrics types.Metrics) {
	err := p.Save()
	metrics.Save(err)
	if err != nil {
		log.WithError(err).WithField("region", p.Name()).Warn("failed to save cache")
		return
	}
	log.WithField("region", p.Name()).Debug("cache saved")
}

func orNoop(m types.Metrics) types.Metrics {
	if m == nil {
		return types.NoopMetrics{}
	}
	return m
}
