package event

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/liveevent/internal/event/dispatch"
	"github.com/dshills/liveevent/internal/lifecycle"
)

// Source is an observe-only view of a single-shot event stream.
//
// Observers are tied to a lifecycle owner and stop receiving values once
// the owner terminates. Values are never retained: an observer registered
// after a trigger does not see it.
//
// A Source is created through NewMutableSource. Only the MutableSource can
// trigger; hand out ReadOnly() to code that should only observe.
type Source[T any] struct {
	exec   dispatch.Executor
	config sourceConfig

	mu         sync.Mutex // protects entries and byObserver
	entries    []*registration[T]
	byObserver map[*Observer[T]]*registration[T]

	triggered atomic.Uint64
	delivered atomic.Uint64
}

// registration is one Observe call. The owner's termination hook removes
// this registration only, so a stale hook never removes a newer
// registration of the same observer.
type registration[T any] struct {
	observer *Observer[T]
	removed  atomic.Bool
}

// Stats contains event source statistics.
type Stats struct {
	// Observers is the current number of registered observers.
	Observers int

	// Triggered is the number of triggers scheduled.
	Triggered uint64

	// Delivered is the number of observer calls made.
	Delivered uint64
}

func newSource[T any](exec dispatch.Executor, opts ...SourceOption) *Source[T] {
	if exec == nil {
		panic("event: nil executor")
	}

	config := defaultSourceConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Source[T]{
		exec:       exec,
		config:     config,
		byObserver: make(map[*Observer[T]]*registration[T]),
	}
}

// Name returns the source name.
func (s *Source[T]) Name() string {
	return s.config.name
}

// Observe registers obs until owner terminates.
//
// Registering an observer that is already registered on this source fails
// with a *DuplicateObserverError. The same observer may be registered on
// other sources independently. If owner has already terminated, the
// registration is removed before Observe returns.
func (s *Source[T]) Observe(owner lifecycle.Lifecycle, obs *Observer[T]) error {
	if owner == nil {
		return ErrNilOwner
	}
	if obs == nil {
		return ErrNilObserver
	}

	s.mu.Lock()
	if _, exists := s.byObserver[obs]; exists {
		s.mu.Unlock()
		return &DuplicateObserverError{Source: s.config.name}
	}
	reg := &registration[T]{observer: obs}
	s.byObserver[obs] = reg
	s.entries = append(s.entries, reg)
	n := len(s.entries)
	s.mu.Unlock()

	s.config.recorder.ObserversChanged(s.config.name, n)
	s.config.logger.Debug().
		Str("source", s.config.name).
		Int("observers", n).
		Msg("observer added")

	// Outside the lock: an already terminated owner runs the hook inline.
	owner.OnTerminate(func() {
		s.remove(reg)
	})
	return nil
}

// RemoveObserver removes obs explicitly. It returns false if obs was not
// registered. A later termination of the owner it was registered with has
// no further effect.
func (s *Source[T]) RemoveObserver(obs *Observer[T]) bool {
	s.mu.Lock()
	reg, exists := s.byObserver[obs]
	s.mu.Unlock()

	if !exists {
		return false
	}
	return s.remove(reg)
}

// HasObservers returns true if at least one observer is registered.
func (s *Source[T]) HasObservers() bool {
	return s.Len() > 0
}

// Len returns the number of registered observers.
func (s *Source[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns source statistics.
func (s *Source[T]) Stats() Stats {
	return Stats{
		Observers: s.Len(),
		Triggered: s.triggered.Load(),
		Delivered: s.delivered.Load(),
	}
}

// remove deletes reg if it is still the live registration of its observer.
func (s *Source[T]) remove(reg *registration[T]) bool {
	s.mu.Lock()
	if s.byObserver[reg.observer] != reg {
		s.mu.Unlock()
		return false
	}
	delete(s.byObserver, reg.observer)
	for i, e := range s.entries {
		if e == reg {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	reg.removed.Store(true)
	n := len(s.entries)
	s.mu.Unlock()

	s.config.recorder.ObserversChanged(s.config.name, n)
	s.config.logger.Debug().
		Str("source", s.config.name).
		Int("observers", n).
		Msg("observer removed")
	return true
}

// trigger schedules delivery of v to the observers registered when the
// task runs. It returns without waiting, even on the executor goroutine.
func (s *Source[T]) trigger(v T) {
	s.triggered.Add(1)
	s.config.recorder.Triggered(s.config.name)

	s.exec.Post(func() {
		s.deliver(v)
	})
}

// deliver runs on the executor goroutine. Observers are called outside the
// lock so they may observe or remove re-entrantly. Panics are not recovered
// here; they belong to the executor.
func (s *Source[T]) deliver(v T) {
	s.mu.Lock()
	snapshot := make([]*registration[T], len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	called := 0
	defer func() {
		s.delivered.Add(uint64(called))
		s.config.recorder.Delivered(s.config.name, called)
	}()

	for _, reg := range snapshot {
		// Removed after the snapshot was taken.
		if reg.removed.Load() {
			continue
		}
		called++
		reg.observer.OnChanged(v)
	}
}
