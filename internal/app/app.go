// Package app wires the event sources, the UI thread and the supporting
// services into a runnable application.
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/liveevent/internal/config"
	"github.com/dshills/liveevent/internal/event"
	"github.com/dshills/liveevent/internal/event/dispatch"
	"github.com/dshills/liveevent/internal/lifecycle"
	"github.com/dshills/liveevent/internal/logging"
	"github.com/dshills/liveevent/internal/metrics"
	"github.com/dshills/liveevent/internal/plugin/lua"
	"github.com/dshills/liveevent/internal/renderer/backend"
)

// RequestStarted is triggered on Requests once the UI thread is running.
const RequestStarted = "started"

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// LogLevel overrides the configured log level when set.
	LogLevel string

	// LogOutput is where logs are written. Defaults to stderr.
	LogOutput io.Writer

	// Headless forces the plain dispatch loop instead of the terminal.
	Headless bool

	// Scripts are Lua files loaded at startup.
	Scripts []string

	// Screen replaces the terminal, mainly for tests.
	Screen *backend.Screen

	// ConfigLoader replaces the default config loader.
	ConfigLoader *config.Loader
}

// Application is the central coordinator. The UI executor is either a
// tcell Screen or, headless, a dispatch Loop.
type Application struct {
	opts   Options
	logger zerolog.Logger

	// cfg is written on the UI thread only.
	cfgMu sync.RWMutex
	cfg   config.Config

	owner   *lifecycle.Owner
	events  *Events
	metrics *metrics.Recorder

	ui     dispatch.Executor
	screen *backend.Screen
	loop   *dispatch.Loop

	reloader *config.Reloader
	scripts  []*lua.Script

	// UI thread state.
	lastDialog string

	running      atomic.Bool
	shutdownOnce sync.Once
}

// New creates an application and loads its configuration and scripts.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := app.bootstrap(); err != nil {
		_ = app.Shutdown()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Config
	loader := app.opts.ConfigLoader
	if loader == nil {
		loader = config.NewLoader()
	}
	cfg, err := loader.Load(app.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	// The reloader compares against the file as loaded, before overrides.
	fileCfg := cfg
	if app.opts.LogLevel != "" {
		cfg.Log.Level = app.opts.LogLevel
	}
	if app.opts.Headless {
		cfg.UI.Headless = true
	}
	app.cfg = cfg

	// 2. Logging
	app.logger = logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
		Output: app.opts.LogOutput,
	})

	// 3. Metrics
	var recorder event.Recorder
	if cfg.Metrics.Enabled {
		app.metrics = metrics.New()
		recorder = app.metrics
	}

	// 4. UI executor
	if err := app.initUI(); err != nil {
		return err
	}

	// 5. Event sources and the application owner
	app.owner = lifecycle.NewOwner("application")
	if err := app.owner.MoveTo(lifecycle.StateCreated); err != nil {
		return &InitError{Component: "lifecycle", Err: err}
	}
	app.events = newEvents(app.ui, logging.WithComponent(app.logger, "event"), recorder)
	if err := app.subscribe(); err != nil {
		return &InitError{Component: "subscriptions", Err: err}
	}

	// 6. Config reload
	if cfg.Watch.Enabled && app.opts.ConfigPath != "" {
		app.reloader, err = config.NewReloader(app.opts.ConfigPath, app.events.ConfigReloaded,
			config.WithReloadLoader(loader),
			config.WithReloadLogger(logging.WithComponent(app.logger, "config")),
			config.WithReloadDebounce(cfg.Watch.DebounceMs),
			config.WithInitial(fileCfg),
		)
		if err != nil {
			return &InitError{Component: "config watcher", Err: err}
		}
	}

	// 7. Scripts
	for _, path := range app.opts.Scripts {
		if err := app.LoadScript(path); err != nil {
			return &InitError{Component: "script " + path, Err: err}
		}
	}

	return nil
}

func (app *Application) initUI() error {
	uiLogger := logging.WithComponent(app.logger, "ui")

	if app.cfg.UI.Headless {
		opts := []dispatch.LoopOption{dispatch.WithLogger(uiLogger)}
		if app.metrics != nil {
			opts = append(opts, dispatch.WithRecorder(app.metrics))
		}
		app.loop = dispatch.NewLoop(opts...)
		app.ui = app.loop
		return nil
	}

	screen := app.opts.Screen
	if screen == nil {
		opts := []backend.Option{backend.WithLogger(uiLogger)}
		if app.metrics != nil {
			opts = append(opts, backend.WithRecorder(app.metrics))
		}
		var err error
		screen, err = backend.NewScreen(opts...)
		if err != nil {
			return &InitError{Component: "terminal", Err: err}
		}
	}
	app.screen = screen
	app.ui = screen
	return nil
}

// LoadScript loads a Lua script observing Requests and emitting Dialog.
func (app *Application) LoadScript(path string) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	script := lua.NewScript(name, app.events.Requests.ReadOnly(), app.events.Dialog,
		lua.WithParent(app.owner),
		lua.WithScriptLogger(logging.WithComponent(app.logger, "script")),
	)
	if err := script.RunFile(path); err != nil {
		_ = script.Close()
		return err
	}
	app.scripts = append(app.scripts, script)
	return nil
}

// Run runs the UI thread and the supporting services until ctx is done or
// the user quits.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := app.owner.MoveTo(lifecycle.StateResumed); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.runUI(gctx)
	})

	if app.metrics != nil {
		srv := &http.Server{
			Addr:              app.cfg.Metrics.Addr,
			Handler:           app.metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			app.logger.Info().Str("addr", srv.Addr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	app.events.Requests.Trigger(RequestStarted)

	err := g.Wait()
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

func (app *Application) runUI(ctx context.Context) error {
	if app.loop != nil {
		return app.loop.Run(ctx)
	}

	app.ui.Post(app.drawStatus)
	if err := app.screen.Run(ctx, app.handleEvent); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	return ErrQuit
}

func (app *Application) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	return mux
}

// Shutdown destroys the application owner, removing every observer, and
// releases the terminal and the config watcher. Later calls return nil.
func (app *Application) Shutdown() error {
	var err error
	app.shutdownOnce.Do(func() {
		if app.owner != nil {
			app.owner.Destroy()
		}
		for _, s := range app.scripts {
			err = multierr.Append(err, s.Close())
		}
		if app.reloader != nil {
			err = multierr.Append(err, app.reloader.Close())
		}
		if app.screen != nil {
			app.screen.Close()
		}
		if app.loop != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if stopErr := app.loop.Stop(ctx); !errors.Is(stopErr, dispatch.ErrNotRunning) {
				err = multierr.Append(err, stopErr)
			}
		}
	})
	return err
}

// IsRunning returns true while Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Events returns the event sources.
func (app *Application) Events() *Events {
	return app.events
}

// Owner returns the application lifecycle owner.
func (app *Application) Owner() *lifecycle.Owner {
	return app.owner
}

// Config returns the configuration in effect.
func (app *Application) Config() config.Config {
	app.cfgMu.RLock()
	defer app.cfgMu.RUnlock()
	return app.cfg
}

// Logger returns the application logger.
func (app *Application) Logger() zerolog.Logger {
	return app.logger
}

// Metrics returns the metrics recorder, or nil when metrics are disabled.
func (app *Application) Metrics() *metrics.Recorder {
	return app.metrics
}

// Scripts returns the loaded scripts.
func (app *Application) Scripts() []*lua.Script {
	return app.scripts
}

// handleEvent runs on the UI thread for terminal events.
func (app *Application) handleEvent(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventKey:
		switch e.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyEnter:
			app.events.Requests.Trigger("enter")
		case tcell.KeyRune:
			if e.Rune() == 'q' {
				return false
			}
			app.events.Requests.Trigger(string(e.Rune()))
		}
	case *tcell.EventResize:
		app.drawStatus()
	}
	return true
}
