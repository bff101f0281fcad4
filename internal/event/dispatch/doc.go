// Package dispatch provides executors that run tasks on a single designated
// goroutine, the UI thread of the host application.
//
// Event sources never call observers on the producer's goroutine. They hand
// a task to an Executor and return; the executor runs the task later on its
// own goroutine. Three executors are provided:
//
//   - Loop: a goroutine-backed UI thread with an unbounded queue. Panics in
//     tasks are recovered and reported through a PanicHandler unless
//     WithPanicPropagation is set.
//
//   - Manual: queues tasks until RunPending or Drain is called. Used by
//     tests to observe the gap between posting and execution.
//
//   - Immediate: runs tasks inside Post. Only for tests and for callers that
//     explicitly want inline delivery.
//
// # Usage
//
//	loop := dispatch.NewLoop(dispatch.WithLogger(logger))
//	if err := loop.Start(); err != nil {
//	    return err
//	}
//	defer loop.Stop(context.Background())
//
//	loop.Post(func() {
//	    // runs on the loop goroutine
//	})
//
// Hosts that own a real UI event loop (see the tcell backend) implement
// Executor themselves and run tasks between input events.
package dispatch
