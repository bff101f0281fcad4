package dispatch

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// runner executes tasks one at a time and keeps the shared counters.
// It is embedded by the executors in this package.
type runner struct {
	recorder     Recorder
	panicHandler PanicHandler
	recoverPanic bool

	posted      atomic.Uint64
	executed    atomic.Uint64
	panicked    atomic.Uint64
	dropped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// run executes task. When recoverPanic is set, a panic is reported to the
// panic handler and swallowed; otherwise it propagates to the caller after
// the counters are updated.
func (r *runner) run(task func()) {
	start := time.Now()
	completed := false

	defer func() {
		d := time.Since(start)
		r.executed.Add(1)
		r.totalTimeNs.Add(d.Nanoseconds())
		r.recorder.TaskExecuted(d)

		if completed {
			return
		}

		r.panicked.Add(1)
		r.recorder.TaskPanicked()

		if !r.recoverPanic {
			return
		}

		if v := recover(); v != nil {
			stack := debug.Stack()
			if r.panicHandler != nil {
				func() {
					// A panicking panic handler must not take down the UI thread.
					defer func() { _ = recover() }()
					r.panicHandler(v, stack)
				}()
			}
		}
	}()

	task()
	completed = true
}

// stats builds a Stats snapshot. pending is supplied by the caller.
func (r *runner) stats(pending int) Stats {
	executed := r.executed.Load()
	totalNs := r.totalTimeNs.Load()

	var avgNs int64
	if executed > 0 {
		avgNs = totalNs / int64(executed)
	}

	return Stats{
		Posted:        r.posted.Load(),
		Executed:      executed,
		Panicked:      r.panicked.Load(),
		Dropped:       r.dropped.Load(),
		Pending:       pending,
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// Immediate runs each task synchronously inside Post.
//
// It breaks the usual asynchronous contract and exists for tests and for
// hosts that are already on the UI thread and want inline delivery.
// Panics propagate to the caller of Post.
type Immediate struct {
	runner
}

// NewImmediate creates a synchronous executor.
func NewImmediate() *Immediate {
	return &Immediate{runner: runner{recorder: nopRecorder{}}}
}

// Post runs task before returning.
func (e *Immediate) Post(task func()) {
	if task == nil {
		return
	}
	e.posted.Add(1)
	e.run(task)
}

// Stats returns executor statistics.
func (e *Immediate) Stats() Stats {
	return e.stats(0)
}
