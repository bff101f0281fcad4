// Package lifecycle provides lifecycle owners for UI components.
//
// An Owner models the lifespan of a window, dialog or panel. Code that
// attaches resources to a component registers a termination hook with
// OnTerminate; the hook runs exactly once when the owner is destroyed.
//
// Event sources depend only on the Lifecycle interface, so any type that
// can report its own destruction can own a subscription.
package lifecycle

import (
	"sync"

	"github.com/google/uuid"
)

// Lifecycle is implemented by anything that can notify when it terminates.
type Lifecycle interface {
	// OnTerminate registers hook to run once when the lifecycle ends.
	// If the lifecycle has already ended, hook runs before OnTerminate returns.
	OnTerminate(hook func())
}

// Owner is the default Lifecycle implementation.
// It is safe for concurrent use.
type Owner struct {
	id   string
	name string

	mu       sync.Mutex
	state    State
	hooks    []func()
	children map[*Owner]struct{}
	parent   *Owner
}

// NewOwner creates an owner in the Initialized state.
func NewOwner(name string) *Owner {
	return &Owner{
		id:       uuid.NewString(),
		name:     name,
		state:    StateInitialized,
		children: make(map[*Owner]struct{}),
	}
}

// ID returns the unique owner identifier.
func (o *Owner) ID() string {
	return o.id
}

// Name returns the owner name.
func (o *Owner) Name() string {
	return o.name
}

// State returns the current state.
func (o *Owner) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsDestroyed returns true once Destroy has been called.
func (o *Owner) IsDestroyed() bool {
	return o.State() == StateDestroyed
}

// MoveTo changes the owner state. Moving to StateDestroyed is the same as
// calling Destroy.
func (o *Owner) MoveTo(next State) error {
	if next == StateDestroyed {
		if !o.Destroy() {
			return &TransitionError{Owner: o.name, From: StateDestroyed, To: next}
		}
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.canMoveTo(next) {
		return &TransitionError{Owner: o.name, From: o.state, To: next}
	}
	o.state = next
	return nil
}

// OnTerminate registers a hook that runs when the owner is destroyed.
// Hooks run in reverse registration order. A hook registered after
// destruction runs immediately on the caller's goroutine.
func (o *Owner) OnTerminate(hook func()) {
	if hook == nil {
		return
	}

	o.mu.Lock()
	if o.state == StateDestroyed {
		o.mu.Unlock()
		hook()
		return
	}
	o.hooks = append(o.hooks, hook)
	o.mu.Unlock()
}

// Destroy moves the owner to StateDestroyed, destroys its children and runs
// the termination hooks. It returns false if the owner was already destroyed.
func (o *Owner) Destroy() bool {
	o.mu.Lock()
	if o.state == StateDestroyed {
		o.mu.Unlock()
		return false
	}
	o.state = StateDestroyed
	hooks := o.hooks
	o.hooks = nil
	children := make([]*Owner, 0, len(o.children))
	for c := range o.children {
		children = append(children, c)
	}
	o.children = nil
	parent := o.parent
	o.parent = nil
	o.mu.Unlock()

	for _, c := range children {
		c.Destroy()
	}

	// Hooks run outside the lock so they may touch the owner again.
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	if parent != nil {
		parent.detach(o)
	}
	return true
}

// NewChild creates an owner that is destroyed together with o.
// A child of a destroyed owner is destroyed immediately.
func (o *Owner) NewChild(name string) *Owner {
	child := NewOwner(name)

	o.mu.Lock()
	if o.state == StateDestroyed {
		o.mu.Unlock()
		child.Destroy()
		return child
	}
	child.parent = o
	o.children[child] = struct{}{}
	o.mu.Unlock()

	return child
}

// detach forgets a child that was destroyed on its own.
func (o *Owner) detach(child *Owner) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.children, child)
}
