package event

import "github.com/dshills/liveevent/internal/event/dispatch"

// MutableSource is a Source whose owner can trigger events.
type MutableSource[T any] struct {
	*Source[T]
}

// NewMutableSource creates a source that delivers on exec.
// It panics if exec is nil.
func NewMutableSource[T any](exec dispatch.Executor, opts ...SourceOption) *MutableSource[T] {
	return &MutableSource[T]{Source: newSource[T](exec, opts...)}
}

// Trigger schedules delivery of v to the current observers on the
// executor and returns immediately. Nothing is retained after delivery.
// It is safe to call from any goroutine.
func (m *MutableSource[T]) Trigger(v T) {
	m.trigger(v)
}

// ReadOnly returns the observe-only view of this source.
func (m *MutableSource[T]) ReadOnly() *Source[T] {
	return m.Source
}
