package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dshills/liveevent/internal/config/loader"
)

// EnvPrefix is the prefix of all environment overrides.
const EnvPrefix = "LIVEEVENT_"

// Config is the complete application configuration.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
	UI      UIConfig      `toml:"ui"`
	Watch   WatchConfig   `toml:"watch"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level"`

	// Format is "console" or "json".
	Format string `toml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	// Headless runs the UI thread as a plain dispatch loop without a terminal.
	Headless bool   `toml:"headless"`
	Title    string `toml:"title"`
}

// WatchConfig configures live reload of the config file.
type WatchConfig struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounceMs"`
}

// Debounce returns the debounce interval as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		UI: UIConfig{
			Headless: false,
			Title:    "liveevent",
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: 100,
		},
	}
}

// envMapping maps environment variables to config paths.
var envMapping = map[string]string{
	EnvPrefix + "LOG_LEVEL":         "log.level",
	EnvPrefix + "LOG_FORMAT":        "log.format",
	EnvPrefix + "METRICS_ENABLED":   "metrics.enabled",
	EnvPrefix + "METRICS_ADDR":      "metrics.addr",
	EnvPrefix + "UI_HEADLESS":       "ui.headless",
	EnvPrefix + "UI_TITLE":          "ui.title",
	EnvPrefix + "WATCH_ENABLED":     "watch.enabled",
	EnvPrefix + "WATCH_DEBOUNCE_MS": "watch.debounceMs",
}

// envKinds gives every config path the kind of its Config field.
var envKinds = loader.KindsOf(Config{})

// EnvMapping returns a copy of the environment variable mapping.
func EnvMapping() map[string]string {
	m := make(map[string]string, len(envMapping))
	for k, v := range envMapping {
		m[k] = v
	}
	return m
}

// Loader resolves a Config from defaults, a TOML file and the environment.
type Loader struct {
	fs     loader.FileSystem
	lookup func(string) (string, bool)
}

// NewLoader creates a loader reading from the OS file system and environment.
func NewLoader() *Loader {
	return &Loader{fs: loader.DefaultFS()}
}

// WithFS sets the file system used to read the config file.
func (l *Loader) WithFS(fsys loader.FileSystem) *Loader {
	l.fs = fsys
	return l
}

// WithLookup sets the environment lookup function.
func (l *Loader) WithLookup(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// Load resolves the configuration. An empty or missing path yields the
// defaults with environment overrides applied.
func (l *Loader) Load(path string) (Config, error) {
	cfg := Default()

	fileData, err := loader.NewTOMLLoaderWithFS(l.fs, path).Load()
	if err != nil {
		return Config{}, err
	}

	env := loader.NewEnvLoader(envMapping).WithKinds(envKinds)
	if l.lookup != nil {
		env.WithLookup(l.lookup)
	}
	envData, err := env.Load()
	if err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	merged := loader.DeepMerge(fileData, envData)
	if err := loader.Decode(merged, &cfg); err != nil {
		if path != "" {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load resolves the configuration using the OS file system and environment.
func Load(path string) (Config, error) {
	return NewLoader().Load(path)
}

var validLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	var errs ValidationErrors

	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs.Add("log.level", "must be one of trace, debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs.Add("log.format", `must be "console" or "json"`, c.Log.Format)
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs.Add("metrics.addr", "must be host:port", c.Metrics.Addr)
		}
	}

	if c.Watch.DebounceMs < 0 {
		errs.Add("watch.debounceMs", "must not be negative", c.Watch.DebounceMs)
	}

	return errs.Err()
}
