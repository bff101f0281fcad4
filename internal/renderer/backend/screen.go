// Package backend runs the terminal UI thread on top of tcell.
//
// A Screen owns a tcell.Screen and its event loop. The loop goroutine is the
// UI thread: posted tasks and terminal events are handled there one at a
// time, so a Screen can serve as the executor of event sources whose
// observers draw.
package backend

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/liveevent/internal/event/dispatch"
)

// EventHandler receives terminal events on the UI thread. Returning false
// ends the loop.
type EventHandler func(ev tcell.Event) bool

// stopToken marks the interrupt posted when the Run context ends.
type stopToken struct{}

// Screen is a tcell screen whose event loop executes posted tasks.
type Screen struct {
	screen tcell.Screen
	logger zerolog.Logger

	recorder     dispatch.Recorder
	panicHandler dispatch.PanicHandler

	mu     sync.Mutex
	queue  []func()
	closed bool

	// wakePending is set while a wake interrupt is queued in tcell.
	wakePending atomic.Bool
	running     atomic.Bool
	finiOnce    sync.Once
}

var _ dispatch.Executor = (*Screen)(nil)

// Option configures a Screen.
type Option func(*Screen)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Screen) {
		s.logger = logger
	}
}

// WithRecorder sets the task measurement recorder.
func WithRecorder(r dispatch.Recorder) Option {
	return func(s *Screen) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithPanicHandler sets the handler for panicking tasks.
func WithPanicHandler(h dispatch.PanicHandler) Option {
	return func(s *Screen) {
		s.panicHandler = h
	}
}

// NewScreen opens the terminal.
func NewScreen(opts ...Option) (*Screen, error) {
	ts, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	return newScreen(ts, opts...)
}

// NewSimulationScreen creates a screen backed by tcell's simulation screen
// with the given size.
func NewSimulationScreen(width, height int, opts ...Option) (*Screen, tcell.SimulationScreen, error) {
	sim := tcell.NewSimulationScreen("UTF-8")
	s, err := newScreen(sim, opts...)
	if err != nil {
		return nil, nil, err
	}
	sim.SetSize(width, height)
	return s, sim, nil
}

func newScreen(ts tcell.Screen, opts ...Option) (*Screen, error) {
	if err := ts.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}
	ts.EnablePaste()

	s := &Screen{
		screen:   ts,
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.panicHandler == nil {
		s.panicHandler = func(v any, stack []byte) {
			s.logger.Error().
				Interface("panic", v).
				Bytes("stack", stack).
				Msg("ui task panicked")
		}
	}
	return s, nil
}

// Post queues task for the UI thread. Tasks posted after Run has returned
// are dropped.
func (s *Screen) Post(task func()) {
	if task == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.recorder.TaskDropped()
		s.logger.Debug().Msg("task posted to closed screen dropped")
		return
	}
	s.queue = append(s.queue, task)
	s.mu.Unlock()

	// A full tcell queue still holds events whose handling drains ours.
	if s.wakePending.CompareAndSwap(false, true) {
		_ = s.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}

// Run is the UI loop. It returns when handle returns false, when ctx is
// done, or when the screen is closed. Queued tasks are run before Run
// returns.
func (s *Screen) Run(ctx context.Context, handle EventHandler) error {
	if !s.running.CompareAndSwap(false, true) {
		return dispatch.ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return dispatch.ErrStopped
	}
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = s.screen.PostEvent(tcell.NewEventInterrupt(stopToken{}))
	})
	defer stop()

	defer s.shutdown()

	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			// Screen finalized.
			return nil
		}

		s.wakePending.Store(false)

		switch e := ev.(type) {
		case *tcell.EventInterrupt:
			if _, ok := e.Data().(stopToken); ok {
				return nil
			}
		case *tcell.EventResize:
			s.screen.Sync()
			if handle != nil && !handle(ev) {
				return nil
			}
		default:
			if handle != nil && !handle(ev) {
				return nil
			}
		}

		s.drain()
	}
}

// shutdown marks the screen closed and runs what is still queued.
func (s *Screen) shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.drain()
}

// drain runs queued tasks until the queue is empty, including tasks
// posted by the tasks themselves.
func (s *Screen) drain() {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, task := range batch {
			s.run(task)
		}
	}
}

func (s *Screen) run(task func()) {
	start := time.Now()
	defer func() {
		s.recorder.TaskExecuted(time.Since(start))
		if r := recover(); r != nil {
			s.recorder.TaskPanicked()
			s.panicHandler(r, debug.Stack())
		}
	}()
	task()
}

// Pending returns the number of queued tasks.
func (s *Screen) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Size returns the screen size.
func (s *Screen) Size() (int, int) {
	return s.screen.Size()
}

// Clear clears the screen buffer.
func (s *Screen) Clear() {
	s.screen.Clear()
}

// Show makes buffered drawing visible.
func (s *Screen) Show() {
	s.screen.Show()
}

// DrawText writes text starting at x, y, clipped to the screen width.
// It returns the column after the last cell written.
func (s *Screen) DrawText(x, y int, style tcell.Style, text string) int {
	width, height := s.screen.Size()
	if y < 0 || y >= height {
		return x
	}
	for _, r := range text {
		if x >= width {
			break
		}
		if x >= 0 {
			s.screen.SetContent(x, y, r, nil, style)
		}
		x++
	}
	return x
}

// FillLine fills row y with spaces in style.
func (s *Screen) FillLine(y int, style tcell.Style) {
	width, _ := s.screen.Size()
	for x := 0; x < width; x++ {
		s.screen.SetContent(x, y, ' ', nil, style)
	}
}

// Close restores the terminal. It is safe to call more than once.
func (s *Screen) Close() {
	s.finiOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.screen.Fini()
	})
}

type nopRecorder struct{}

func (nopRecorder) TaskExecuted(time.Duration) {}
func (nopRecorder) TaskPanicked()              {}
func (nopRecorder) TaskDropped()               {}
