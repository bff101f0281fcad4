package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Loop is a single-goroutine executor that plays the role of the UI thread.
//
// Tasks posted to a Loop run one at a time, in posting order, on the loop
// goroutine. Post never blocks: the queue is unbounded. Tasks posted before
// the loop starts are kept and run once it starts. Tasks posted after Stop
// are dropped and counted.
type Loop struct {
	runner

	logger zerolog.Logger

	mu      sync.Mutex // protects queue and closed
	queue   []func()
	closed  bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithPanicHandler sets the handler for tasks that panic.
// The default handler logs the panic at error level.
func WithPanicHandler(h PanicHandler) LoopOption {
	return func(l *Loop) {
		if h != nil {
			l.panicHandler = h
		}
	}
}

// WithPanicPropagation disables panic recovery. A panicking task then
// crashes the loop goroutine, like an uncaught exception on a UI thread.
func WithPanicPropagation() LoopOption {
	return func(l *Loop) {
		l.recoverPanic = false
	}
}

// WithLogger sets the loop logger.
func WithLogger(logger zerolog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithRecorder sets the measurement recorder.
func WithRecorder(r Recorder) LoopOption {
	return func(l *Loop) {
		if r != nil {
			l.recorder = r
		}
	}
}

// NewLoop creates a loop. It does not run until Start or Run is called.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		runner: runner{
			recorder:     nopRecorder{},
			recoverPanic: true,
		},
		logger: zerolog.Nop(),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.panicHandler == nil {
		l.panicHandler = func(v any, stack []byte) {
			l.logger.Error().
				Interface("panic", v).
				Bytes("stack", stack).
				Msg("ui task panicked")
		}
	}
	return l
}

// Post schedules task on the loop goroutine and returns immediately.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.dropped.Add(1)
		l.recorder.TaskDropped()
		l.logger.Debug().Msg("task posted to stopped loop, dropping")
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	l.posted.Add(1)

	select {
	case l.wake <- struct{}{}:
	default:
		// A wakeup is already pending.
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start() error {
	if err := l.begin(); err != nil {
		return err
	}
	go l.loop(nil)
	return nil
}

// Run runs the loop on the calling goroutine until ctx is done or Stop is
// called. Queued tasks are drained before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.begin(); err != nil {
		return err
	}
	l.loop(ctx.Done())
	return nil
}

// Stop stops the loop. Tasks already queued still run; tasks posted after
// Stop are dropped. It waits for the loop to exit or until ctx is cancelled.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running.Load() {
		l.mu.Unlock()
		return ErrNotRunning
	}
	if !l.closed {
		l.closed = true
		close(l.stop)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed once the loop has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// IsRunning returns true while the loop goroutine is active.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stats returns loop statistics.
func (l *Loop) Stats() Stats {
	return l.stats(l.Pending())
}

// begin marks the loop as running.
func (l *Loop) begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrStopped
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

// loop processes tasks until stop is closed or ctxDone fires.
func (l *Loop) loop(ctxDone <-chan struct{}) {
	l.logger.Debug().Msg("ui loop started")
	defer func() {
		l.running.Store(false)
		close(l.done)
		l.logger.Debug().Msg("ui loop stopped")
	}()

	for {
		l.drain()

		select {
		case <-l.wake:
		case <-l.stop:
			l.drain()
			return
		case <-ctxDone:
			l.mu.Lock()
			if !l.closed {
				l.closed = true
				close(l.stop)
			}
			l.mu.Unlock()
			l.drain()
			return
		}
	}
}

// drain runs queued tasks until the queue is empty. Tasks posted by a
// running task are picked up in the same call.
func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, task := range batch {
			l.run(task)
		}
	}
}
