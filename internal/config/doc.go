// Package config provides the configuration system for liveevent.
//
// Configuration is resolved in layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← LIVEEVENT_* (highest priority)
//	├─────────────────────────────┤
//	│  2. Config File             │  ← TOML
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Command line flags are applied by the caller on top of the loaded Config.
//
// # Sub-packages
//
//   - loader: TOML and environment loading, strict decoding
//   - watcher: fsnotify file watching for live reload
//
// # Basic Usage
//
//	cfg, err := config.Load("liveevent.toml")
//	if err != nil {
//	    return err
//	}
//
// # Live Reload
//
// A Reloader watches the config file and triggers a config event source
// with each successfully reloaded Config. Invalid edits are logged and
// skipped; observers only ever see valid configurations.
//
//	reloads := event.NewMutableSource[config.Config](loop)
//	r, err := config.NewReloader(path, reloads, config.WithReloadLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
package config
