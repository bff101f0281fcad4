package event

// Observer receives values from an event source.
//
// Observers are compared by identity: the handle returned by NewObserver is
// what a source registers and removes, so keep it if you need to remove the
// observer explicitly or register it again later.
type Observer[T any] struct {
	fn func(T)
}

// NewObserver creates an observer that calls fn with each value.
func NewObserver[T any](fn func(T)) *Observer[T] {
	return &Observer[T]{fn: fn}
}

// OnChanged delivers a value to the observer.
func (o *Observer[T]) OnChanged(v T) {
	if o.fn != nil {
		o.fn(v)
	}
}
