package types

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the cache lifecycle. The engine and the
persistence layer call these methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when a read returns a live value.
	Hit()

	// Miss is called when a read finds nothing, or finds an expired entry.
	Miss()

	// Eviction is called when a key is dropped because the cache is full.
	Eviction()

	// Expire is called when a key is removed because it has passed its TTL.
	Expire()

	// Save is called after every attempt to write a snapshot to disk.
	Save(err error)
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Users who do not care about metrics still get a working cache without
nil checks scattered through the engine.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()       {}
func (NoopMetrics) Miss()      {}
func (NoopMetrics) Eviction()  {}
func (NoopMetrics) Expire()    {}
func (NoopMetrics) Save(error) {}
