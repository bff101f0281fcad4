package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/liveevent/internal/event"
	"github.com/dshills/liveevent/internal/event/dispatch"
	"github.com/dshills/liveevent/internal/lifecycle"
)

func newTestScreen(t *testing.T, opts ...Option) (*Screen, tcell.SimulationScreen) {
	t.Helper()
	s, sim, err := NewSimulationScreen(20, 5, opts...)
	if err != nil {
		t.Fatalf("NewSimulationScreen() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s, sim
}

// runScreen starts Run in a goroutine and returns a channel with its result.
func runScreen(t *testing.T, s *Screen, ctx context.Context, handle EventHandler) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, handle)
	}()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
		return nil
	}
}

func TestScreen_PostRunsTask(t *testing.T) {
	s, _ := newTestScreen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := runScreen(t, s, ctx, nil)

	ran := make(chan struct{})
	s.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task")
	}

	cancel()
	if err := waitRun(t, done); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestScreen_Order(t *testing.T) {
	s, _ := newTestScreen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := runScreen(t, s, ctx, nil)

	var mu sync.Mutex
	var order []int
	finished := make(chan struct{})
	for i := 0; i < 50; i++ {
		i := i
		s.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 49 {
				close(finished)
			}
		})
	}

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}
	cancel()
	_ = waitRun(t, done)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestScreen_TaskPostsTask(t *testing.T) {
	s, _ := newTestScreen(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runScreen(t, s, ctx, nil)

	nested := make(chan struct{})
	s.Post(func() {
		s.Post(func() { close(nested) })
	})

	select {
	case <-nested:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for nested task")
	}
}

func TestScreen_HandlerEndsRun(t *testing.T) {
	s, sim := newTestScreen(t)

	var keys []tcell.Key
	done := runScreen(t, s, context.Background(), func(ev tcell.Event) bool {
		if k, ok := ev.(*tcell.EventKey); ok {
			keys = append(keys, k.Key())
			return k.Key() != tcell.KeyEscape
		}
		return true
	})

	sim.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	sim.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	if err := waitRun(t, done); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != tcell.KeyEnter || keys[1] != tcell.KeyEscape {
		t.Errorf("handled keys = %v", keys)
	}
}

func TestScreen_CancelRunsQueuedAndDropsLater(t *testing.T) {
	s, _ := newTestScreen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := runScreen(t, s, ctx, nil)

	ran := make(chan struct{}, 1)
	s.Post(func() { ran <- struct{}{} })
	cancel()
	if err := waitRun(t, done); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	select {
	case <-ran:
	default:
		t.Fatal("task queued before cancel must run before Run returns")
	}

	s.Post(func() { t.Error("task posted after Run returned must not run") })
	if s.Pending() != 0 {
		t.Errorf("expected dropped task, got %d pending", s.Pending())
	}

	if err := s.Run(context.Background(), nil); !errors.Is(err, dispatch.ErrStopped) {
		t.Errorf("second Run() error = %v, expected ErrStopped", err)
	}
}

func TestScreen_PanicRecovered(t *testing.T) {
	panics := make(chan any, 1)
	s, _ := newTestScreen(t, WithPanicHandler(func(v any, _ []byte) {
		panics <- v
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runScreen(t, s, ctx, nil)

	after := make(chan struct{})
	s.Post(func() { panic("boom") })
	s.Post(func() { close(after) })

	select {
	case v := <-panics:
		if v != "boom" {
			t.Errorf("panic value = %v", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for panic handler")
	}
	select {
	case <-after:
	case <-time.After(5 * time.Second):
		t.Fatal("loop must keep running after a panic")
	}
}

func TestScreen_DrawText(t *testing.T) {
	s, sim := newTestScreen(t)

	end := s.DrawText(2, 1, tcell.StyleDefault, "hello")
	if end != 7 {
		t.Errorf("DrawText() = %d, expected 7", end)
	}
	s.Show()

	for i, want := range "hello" {
		got, _, _, _ := sim.GetContent(2+i, 1)
		if got != want {
			t.Errorf("cell (%d,1) = %q, expected %q", 2+i, got, want)
		}
	}

	// Clipped at the right edge.
	if end := s.DrawText(18, 0, tcell.StyleDefault, "abcdef"); end != 20 {
		t.Errorf("clipped DrawText() = %d, expected 20", end)
	}
	// Off screen rows are ignored.
	if end := s.DrawText(0, 10, tcell.StyleDefault, "x"); end != 0 {
		t.Errorf("off screen DrawText() = %d, expected 0", end)
	}
}

func TestScreen_SourceExecutor(t *testing.T) {
	s, sim := newTestScreen(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runScreen(t, s, ctx, nil)

	dialogs := event.NewMutableSource[string](s, event.WithName("dialogs"))
	window := lifecycle.NewOwner("window")
	defer window.Destroy()

	drawn := make(chan struct{})
	err := dialogs.Observe(window, event.NewObserver(func(msg string) {
		s.DrawText(0, 0, tcell.StyleDefault, msg)
		s.Show()
		close(drawn)
	}))
	if err != nil {
		t.Fatal(err)
	}

	dialogs.Trigger("done")

	select {
	case <-drawn:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for observer")
	}

	got, _, _, _ := sim.GetContent(0, 0)
	if got != 'd' {
		t.Errorf("cell (0,0) = %q, expected 'd'", got)
	}
}
