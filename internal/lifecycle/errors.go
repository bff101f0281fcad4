package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifecycle owners.
var (
	// ErrDestroyed is returned when a transition is attempted on a destroyed owner.
	ErrDestroyed = errors.New("lifecycle owner is destroyed")

	// ErrInvalidTransition is returned when a state change is not allowed.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// TransitionError describes a rejected state change.
type TransitionError struct {
	// Owner is the name of the owner.
	Owner string

	// From is the state the owner was in.
	From State

	// To is the requested state.
	To State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("lifecycle %q: cannot move from %s to %s", e.Owner, e.From, e.To)
}

// Is allows errors.Is to match ErrInvalidTransition, and ErrDestroyed when
// the owner was already destroyed.
func (e *TransitionError) Is(target error) bool {
	if target == ErrInvalidTransition {
		return true
	}
	return target == ErrDestroyed && e.From == StateDestroyed
}
