package config

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/liveevent/internal/config/watcher"
	"github.com/dshills/liveevent/internal/event"
)

// Reloader watches a config file and triggers a source with every valid
// reloaded Config. Triggers come from the watcher goroutine.
type Reloader struct {
	path    string
	loader  *Loader
	target  *event.MutableSource[Config]
	logger  zerolog.Logger
	watcher *watcher.Watcher

	// Held across load and trigger so reloads publish in order.
	reloadMu sync.Mutex

	mu      sync.Mutex
	current Config
	closed  bool
}

// ReloadOption configures a Reloader.
type ReloadOption func(*reloadConfig)

type reloadConfig struct {
	loader   *Loader
	logger   zerolog.Logger
	debounce int
	initial  *Config
}

// WithReloadLoader sets the loader used on each change.
func WithReloadLoader(l *Loader) ReloadOption {
	return func(c *reloadConfig) {
		c.loader = l
	}
}

// WithReloadLogger sets the logger for reload failures.
func WithReloadLogger(logger zerolog.Logger) ReloadOption {
	return func(c *reloadConfig) {
		c.logger = logger
	}
}

// WithReloadDebounce sets the watcher debounce in milliseconds.
func WithReloadDebounce(ms int) ReloadOption {
	return func(c *reloadConfig) {
		c.debounce = ms
	}
}

// WithInitial sets the configuration currently in effect. Reloads that
// produce an equal Config do not trigger.
func WithInitial(cfg Config) ReloadOption {
	return func(c *reloadConfig) {
		c.initial = &cfg
	}
}

// NewReloader starts watching path.
func NewReloader(path string, target *event.MutableSource[Config], opts ...ReloadOption) (*Reloader, error) {
	rc := reloadConfig{
		logger:   zerolog.Nop(),
		debounce: Default().Watch.DebounceMs,
	}
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.loader == nil {
		rc.loader = NewLoader()
	}

	w, err := watcher.New(
		watcher.WithDebounce(WatchConfig{DebounceMs: rc.debounce}.Debounce()),
		watcher.WithErrorHandler(func(err error) {
			rc.logger.Warn().Err(err).Str("path", path).Msg("config watcher error")
		}),
	)
	if err != nil {
		return nil, err
	}

	r := &Reloader{
		path:    path,
		loader:  rc.loader,
		target:  target,
		logger:  rc.logger,
		watcher: w,
	}
	if rc.initial != nil {
		r.current = *rc.initial
	}

	w.OnChange(r.handleChange)
	if err := w.Watch(path); err != nil {
		_ = w.Close()
		return nil, err
	}
	return r, nil
}

// Current returns the last configuration triggered or the initial one.
func (r *Reloader) Current() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Reload loads the file now and triggers on success. It returns the load
// error, if any, without triggering. Concurrent calls are serialized.
func (r *Reloader) Reload() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	cfg, err := r.loader.Load(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed || cfg == r.current {
		r.mu.Unlock()
		return nil
	}
	r.current = cfg
	r.mu.Unlock()

	r.logger.Info().Str("path", r.path).Msg("config reloaded")
	r.target.Trigger(cfg)
	return nil
}

// Close stops watching.
func (r *Reloader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.watcher.Close()
}

func (r *Reloader) handleChange(e watcher.Event) {
	// Editors that save by rename remove the file before recreating it.
	if e.Op == watcher.OpRemove || e.Op == watcher.OpRename {
		return
	}
	if err := r.Reload(); err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("config reload failed, keeping previous")
	}
}
