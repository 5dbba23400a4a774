package types

// Persister is the contract between a write policy and whatever holds the
// durable copy of a cache.
type Persister interface {

	/*
		Save writes the current live state to durable storage.

		This is used by write policies:
		-------------------------------
		- Write-through: called synchronously after every mutation
		- Write-back: called later from a background worker

		Save always writes the whole state; there is no incremental patching.
	*/
	Save() error

	// Name identifies the persisted region in logs.
	Name() string
}
