package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dshills/liveevent/internal/event"
	"github.com/dshills/liveevent/internal/event/dispatch"
	"github.com/dshills/liveevent/internal/lifecycle"
)

func newReloadFixture(t *testing.T, contents string) (string, *event.MutableSource[Config], chan Config) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "liveevent.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	reloads := event.NewMutableSource[Config](dispatch.NewImmediate(), event.WithName("config"))
	owner := lifecycle.NewOwner("test")
	t.Cleanup(func() { owner.Destroy() })

	got := make(chan Config, 8)
	if err := reloads.Observe(owner, event.NewObserver(func(c Config) { got <- c })); err != nil {
		t.Fatal(err)
	}
	return path, reloads, got
}

func TestReloader_TriggersOnChange(t *testing.T) {
	path, reloads, got := newReloadFixture(t, "[log]\nlevel = \"info\"\n")

	r, err := NewReloader(path, reloads,
		WithReloadLoader(NewLoader().WithLookup(noEnv)),
		WithReloadDebounce(20),
		WithInitial(Default()),
	)
	if err != nil {
		t.Fatalf("NewReloader() error = %v", err)
	}
	defer r.Close()

	if err := os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-got:
		if cfg.Log.Level != "debug" {
			t.Errorf("reloaded Log.Level = %q, expected %q", cfg.Log.Level, "debug")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if r.Current().Log.Level != "debug" {
		t.Errorf("Current().Log.Level = %q", r.Current().Log.Level)
	}
}

func TestReloader_InvalidEditKeepsPrevious(t *testing.T) {
	path, reloads, got := newReloadFixture(t, "")

	r, err := NewReloader(path, reloads,
		WithReloadLoader(NewLoader().WithLookup(noEnv)),
		WithInitial(Default()),
	)
	if err != nil {
		t.Fatalf("NewReloader() error = %v", err)
	}
	defer r.Close()

	if err := os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err == nil {
		t.Fatal("expected Reload() to fail on an invalid level")
	}

	select {
	case cfg := <-got:
		t.Fatalf("invalid config must not be triggered, got %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}

	if r.Current() != Default() {
		t.Errorf("expected previous config to be kept, got %+v", r.Current())
	}
}

func TestReloader_UnchangedDoesNotTrigger(t *testing.T) {
	path, reloads, got := newReloadFixture(t, "")

	r, err := NewReloader(path, reloads,
		WithReloadLoader(NewLoader().WithLookup(noEnv)),
		WithInitial(Default()),
	)
	if err != nil {
		t.Fatalf("NewReloader() error = %v", err)
	}
	defer r.Close()

	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	select {
	case cfg := <-got:
		t.Fatalf("unchanged config must not be triggered, got %+v", cfg)
	default:
	}
}

func TestReloader_ConcurrentReloadsPublishInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liveevent.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	reloads := event.NewMutableSource[Config](dispatch.NewImmediate())
	owner := lifecycle.NewOwner("test")
	defer owner.Destroy()

	var (
		mu    sync.Mutex
		last  Config
		count int
	)
	if err := reloads.Observe(owner, event.NewObserver(func(c Config) {
		mu.Lock()
		last = c
		count++
		mu.Unlock()
	})); err != nil {
		t.Fatal(err)
	}

	// A long debounce keeps the watcher out of the way.
	r, err := NewReloader(path, reloads,
		WithReloadLoader(NewLoader().WithLookup(noEnv)),
		WithReloadDebounce(60000),
		WithInitial(Default()),
	)
	if err != nil {
		t.Fatalf("NewReloader() error = %v", err)
	}
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				title := fmt.Sprintf("title-%d-%d", i, j)
				_ = os.WriteFile(path, []byte(fmt.Sprintf("[ui]\ntitle = %q\n", title)), 0o644)
				// Partial reads may fail to parse; only ordering matters here.
				_ = r.Reload()
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count == 0 {
		t.Fatal("expected at least one reload to trigger")
	}
	if last != r.Current() {
		t.Errorf("last triggered config %+v differs from Current() %+v", last, r.Current())
	}
}

func TestReloader_MissingDir(t *testing.T) {
	reloads := event.NewMutableSource[Config](dispatch.NewImmediate())

	_, err := NewReloader(filepath.Join(t.TempDir(), "nope", "liveevent.toml"), reloads)
	if err == nil {
		t.Fatal("expected error for a config file in a missing directory")
	}
}
