package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrAlreadyRunning is returned when Start or Run is called on a running loop.
	ErrAlreadyRunning = errors.New("loop is already running")

	// ErrNotRunning is returned when Stop is called on a loop that is not running.
	ErrNotRunning = errors.New("loop is not running")

	// ErrStopped is returned when Start or Run is called on a loop that was stopped.
	ErrStopped = errors.New("loop has been stopped")
)
