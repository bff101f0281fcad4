package app

import (
	"github.com/rs/zerolog"

	"github.com/dshills/liveevent/internal/config"
	"github.com/dshills/liveevent/internal/event"
	"github.com/dshills/liveevent/internal/event/dispatch"
)

// Source names used for logging and metric labels.
const (
	SourceDialog         = "dialog"
	SourceRequests       = "requests"
	SourceConfigReloaded = "config_reloaded"
)

// Events holds the application's event sources. Every source delivers on
// the UI executor.
type Events struct {
	// Dialog carries messages the UI shows to the user.
	Dialog *event.MutableSource[string]

	// Requests carries user input and lifecycle notices to scripts.
	Requests *event.MutableSource[string]

	// ConfigReloaded carries each valid configuration read after a change
	// of the config file.
	ConfigReloaded *event.MutableSource[config.Config]
}

func newEvents(exec dispatch.Executor, logger zerolog.Logger, recorder event.Recorder) *Events {
	opts := func(name string) []event.SourceOption {
		opts := []event.SourceOption{
			event.WithName(name),
			event.WithLogger(logger),
		}
		if recorder != nil {
			opts = append(opts, event.WithRecorder(recorder))
		}
		return opts
	}

	return &Events{
		Dialog:         event.NewMutableSource[string](exec, opts(SourceDialog)...),
		Requests:       event.NewMutableSource[string](exec, opts(SourceRequests)...),
		ConfigReloaded: event.NewMutableSource[config.Config](exec, opts(SourceConfigReloaded)...),
	}
}
