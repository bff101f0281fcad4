package dispatch

import (
	"time"
)

// Executor runs tasks on a single designated goroutine, typically the UI
// thread. Post must not block and must not run the task before returning,
// unless the implementation documents otherwise.
type Executor interface {
	// Post schedules task for execution.
	Post(task func())
}

// PanicHandler is called when a posted task panics.
// It receives the panic value and the stack trace.
type PanicHandler func(panicValue any, stack []byte)

// Recorder receives execution measurements from an executor.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// TaskExecuted is called after each task finishes, including panicked ones.
	TaskExecuted(d time.Duration)

	// TaskPanicked is called when a task panics.
	TaskPanicked()

	// TaskDropped is called when a task is posted to a stopped executor.
	TaskDropped()
}

// nopRecorder discards all measurements.
type nopRecorder struct{}

func (nopRecorder) TaskExecuted(time.Duration) {}
func (nopRecorder) TaskPanicked()              {}
func (nopRecorder) TaskDropped()               {}

// Stats contains executor statistics.
type Stats struct {
	// Posted is the total number of tasks accepted by Post.
	Posted uint64

	// Executed is the number of tasks that have run.
	Executed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Dropped is the number of tasks posted after shutdown.
	Dropped uint64

	// Pending is the number of tasks waiting to run.
	Pending int

	// TotalDuration is the cumulative time spent running tasks.
	TotalDuration time.Duration

	// AvgDuration is the average task run time.
	AvgDuration time.Duration
}
