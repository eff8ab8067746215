package scan

import "errors"

// Sentinel errors for scan operations.
var (
	// ErrCycleInProgress indicates that a cycle or single check is already running.
	ErrCycleInProgress = errors.New("scan cycle already in progress")

	// ErrCyclePanic indicates that a cycle aborted on a recovered panic outside
	// per-group checking.
	ErrCyclePanic = errors.New("scan cycle panicked")

	// ErrInvalidSeedFile indicates that the seed watchlist could not be parsed.
	ErrInvalidSeedFile = errors.New("invalid seed file")
)
