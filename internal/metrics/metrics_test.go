package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/liveevent/internal/event"
	"github.com/dshills/liveevent/internal/event/dispatch"
	"github.com/dshills/liveevent/internal/lifecycle"
)

func TestRecorder_SourceMetrics(t *testing.T) {
	r := New()

	r.Triggered("dialogs")
	r.Triggered("dialogs")
	r.Delivered("dialogs", 3)
	r.ObserversChanged("dialogs", 2)
	r.ObserversChanged("dialogs", 1)
	r.Triggered("")

	if got := testutil.ToFloat64(r.triggers.WithLabelValues("dialogs")); got != 2 {
		t.Errorf("triggers{dialogs} = %v, expected 2", got)
	}
	if got := testutil.ToFloat64(r.triggers.WithLabelValues("unnamed")); got != 1 {
		t.Errorf("triggers{unnamed} = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(r.deliveries.WithLabelValues("dialogs")); got != 3 {
		t.Errorf("deliveries{dialogs} = %v, expected 3", got)
	}
	if got := testutil.ToFloat64(r.observers.WithLabelValues("dialogs")); got != 1 {
		t.Errorf("observers{dialogs} = %v, expected 1", got)
	}
}

func TestRecorder_TaskMetrics(t *testing.T) {
	r := New()

	r.TaskExecuted(time.Millisecond)
	r.TaskExecuted(2 * time.Millisecond)
	r.TaskPanicked()
	r.TaskDropped()

	if got := testutil.ToFloat64(r.tasks); got != 2 {
		t.Errorf("tasks = %v, expected 2", got)
	}
	if got := testutil.ToFloat64(r.taskPanics); got != 1 {
		t.Errorf("task panics = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(r.taskDrops); got != 1 {
		t.Errorf("task drops = %v, expected 1", got)
	}
	if n := testutil.CollectAndCount(r.taskDuration); n != 1 {
		t.Errorf("expected 1 histogram series, got %d", n)
	}
}

func TestRecorder_WiredIntoSource(t *testing.T) {
	r := New()
	ui := dispatch.NewManual()

	src := event.NewMutableSource[string](ui, event.WithName("dialogs"), event.WithRecorder(r))
	owner := lifecycle.NewOwner("window")
	if err := src.Observe(owner, event.NewObserver(func(string) {})); err != nil {
		t.Fatal(err)
	}

	src.Trigger("hello")
	ui.Drain()
	owner.Destroy()

	if got := testutil.ToFloat64(r.triggers.WithLabelValues("dialogs")); got != 1 {
		t.Errorf("triggers = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(r.deliveries.WithLabelValues("dialogs")); got != 1 {
		t.Errorf("deliveries = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(r.observers.WithLabelValues("dialogs")); got != 0 {
		t.Errorf("observers = %v, expected 0 after destroy", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.Triggered("config")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `liveevent_triggers_total{source="config"} 1`) {
		t.Errorf("expected trigger metric in output:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected Go runtime metrics in output")
	}
}
