// Package event provides lifecycle-aware, single-shot event sources.
//
// A source broadcasts transient values ("show this dialog", "config was
// reloaded") to the observers registered at the moment of delivery. Unlike
// a state holder, a source keeps nothing: late observers never see earlier
// values.
//
// # Components
//
//   - Source[T]: the observe-only view. Observe ties an Observer to a
//     lifecycle.Lifecycle and removes it when that lifecycle terminates.
//   - MutableSource[T]: adds Trigger, the producer entry point.
//   - Observer[T]: a callback handle. Identity matters: registering the same
//     handle twice on one source is an error.
//
// # Delivery
//
// Trigger never calls observers itself. It posts one task to the source's
// dispatch.Executor, normally the UI thread, and returns. When the task
// runs it snapshots the observers under the source lock and calls each with
// the value, in registration order:
//
//	loop := dispatch.NewLoop()
//	loop.Start()
//	defer loop.Stop(context.Background())
//
//	dialogs := event.NewMutableSource[string](loop, event.WithName("dialogs"))
//
//	owner := lifecycle.NewOwner("main-window")
//	obs := event.NewObserver(func(msg string) {
//	    // runs on the loop goroutine
//	})
//	if err := dialogs.Observe(owner, obs); err != nil {
//	    return err // ErrDuplicateObserver is a programming error
//	}
//
//	dialogs.Trigger("Disc verification finished")
//
//	owner.Destroy() // obs receives nothing from now on
//
// # Thread Safety
//
// Observe, RemoveObserver and Trigger are safe from any goroutine. Whether
// an observer added between Trigger and delivery is included is not
// specified. Observer panics are not recovered by the source; they reach
// the executor, which decides how the host handles them.
package event
