package lifecycle

// State represents the lifecycle state of an owner.
type State int32

const (
	// StateInitialized means the owner exists but has not been created yet.
	StateInitialized State = iota

	// StateCreated means the owner has been created but is not visible.
	StateCreated

	// StateStarted means the owner is visible.
	StateStarted

	// StateResumed means the owner is visible and has input focus.
	StateResumed

	// StateDestroyed is terminal. Termination hooks have run.
	StateDestroyed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateResumed:
		return "resumed"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// canMoveTo reports whether a transition from s to next is allowed.
// Owners may step up and down between Created and Resumed, but nothing
// leaves Destroyed and nothing returns to Initialized.
func (s State) canMoveTo(next State) bool {
	if s == StateDestroyed {
		return false
	}
	switch next {
	case StateInitialized:
		return false
	case StateDestroyed:
		return true
	default:
		return next >= StateCreated && next <= StateResumed
	}
}
