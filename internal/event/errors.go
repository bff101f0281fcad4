package event

import "errors"

// Sentinel errors for event sources.
var (
	// ErrDuplicateObserver is returned when an observer is registered twice
	// on the same source. It indicates a programming error.
	ErrDuplicateObserver = errors.New("attempted to add the same observer twice")

	// ErrNilObserver is returned when a nil observer is provided.
	ErrNilObserver = errors.New("observer cannot be nil")

	// ErrNilOwner is returned when a nil lifecycle owner is provided.
	ErrNilOwner = errors.New("lifecycle owner cannot be nil")
)

// DuplicateObserverError reports a repeated registration of one observer.
type DuplicateObserverError struct {
	// Source is the name of the event source.
	Source string
}

// Error implements the error interface.
func (e *DuplicateObserverError) Error() string {
	if e.Source == "" {
		return ErrDuplicateObserver.Error()
	}
	return "event source " + e.Source + ": " + ErrDuplicateObserver.Error()
}

// Is allows errors.Is to match DuplicateObserverError with ErrDuplicateObserver.
func (e *DuplicateObserverError) Is(target error) bool {
	return target == ErrDuplicateObserver
}
