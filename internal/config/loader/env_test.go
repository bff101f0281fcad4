package loader

import (
	"errors"
	"strings"
	"testing"
)

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader(map[string]string{
		"APP_LOG_LEVEL":        "log.level",
		"APP_METRICS_ENABLED":  "metrics.enabled",
		"APP_WATCH_DEBOUNCEMS": "watch.debounceMs",
		"APP_UNSET":            "ui.title",
	}).WithLookup(fakeEnv(map[string]string{
		"APP_LOG_LEVEL":        "debug",
		"APP_METRICS_ENABLED":  "yes",
		"APP_WATCH_DEBOUNCEMS": "250",
	}))

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := config["log"].(map[string]any)["level"]; got != "debug" {
		t.Errorf("log.level = %v, want 'debug'", got)
	}
	if got := config["metrics"].(map[string]any)["enabled"]; got != true {
		t.Errorf("metrics.enabled = %v, want true", got)
	}
	if got := config["watch"].(map[string]any)["debounceMs"]; got != int64(250) {
		t.Errorf("watch.debounceMs = %v (%T), want 250", got, got)
	}
	if _, ok := config["ui"]; ok {
		t.Error("unset variables must not create keys")
	}
}

func TestEnvLoader_NothingSet(t *testing.T) {
	l := NewEnvLoader(map[string]string{"APP_X": "x"}).WithLookup(fakeEnv(nil))

	config, err := l.Load()
	if err != nil || config != nil {
		t.Errorf("expected nil, nil, got %v, %v", config, err)
	}
}

func TestEnvLoader_AddMapping(t *testing.T) {
	l := NewEnvLoader(nil).WithLookup(fakeEnv(map[string]string{"APP_TITLE": "demo"}))
	l.AddMapping("APP_TITLE", "ui.title")

	config, _ := l.Load()
	if got := config["ui"].(map[string]any)["title"]; got != "demo" {
		t.Errorf("ui.title = %v, want 'demo'", got)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{"", ""},
		{"true", true},
		{"ON", true},
		{"no", false},
		{"0", int64(0)},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"127.0.0.1:9090", "127.0.0.1:9090"},
		{"json", "json"},
	}

	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.expected {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.expected, tt.expected)
		}
	}
}

type kindsTarget struct {
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
	Metrics struct {
		Enabled bool    `toml:"enabled"`
		Ratio   float64 `toml:"ratio"`
	} `toml:"metrics"`
	Watch struct {
		DebounceMs int `toml:"debounceMs"`
	} `toml:"watch"`
	Skipped string `toml:"-"`
	hidden  string
}

func TestKindsOf(t *testing.T) {
	kinds := KindsOf(&kindsTarget{})

	expected := map[string]Kind{
		"log.level":        KindString,
		"metrics.enabled":  KindBool,
		"metrics.ratio":    KindFloat,
		"watch.debounceMs": KindInt,
	}
	if len(kinds) != len(expected) {
		t.Fatalf("KindsOf() = %v, expected %v", kinds, expected)
	}
	for path, kind := range expected {
		if kinds[path] != kind {
			t.Errorf("kind of %s = %v, expected %v", path, kinds[path], kind)
		}
	}

	if len(KindsOf(42)) != 0 {
		t.Error("expected no kinds for a non-struct")
	}
}

func TestEnvLoader_WithKinds(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		path     string
		expected any
	}{
		{"numeric string stays string", "2024", "log.level", "2024"},
		{"boolean string stays string", "true", "log.level", "true"},
		{"decimal string stays string", "1.5", "log.level", "1.5"},
		{"bool from 1", "1", "metrics.enabled", true},
		{"bool from off", "off", "metrics.enabled", false},
		{"int", "250", "watch.debounceMs", int64(250)},
		{"float", "0.5", "metrics.ratio", 0.5},
	}

	kinds := KindsOf(kindsTarget{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewEnvLoader(map[string]string{"APP_VALUE": tt.path}).
				WithKinds(kinds).
				WithLookup(fakeEnv(map[string]string{"APP_VALUE": tt.value}))

			config, err := l.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			section, field, _ := strings.Cut(tt.path, ".")
			if got := config[section].(map[string]any)[field]; got != tt.expected {
				t.Errorf("%s = %v (%T), want %v (%T)", tt.path, got, got, tt.expected, tt.expected)
			}
		})
	}
}

func TestEnvLoader_WithKindsInvalid(t *testing.T) {
	tests := []struct {
		value string
		path  string
	}{
		{"maybe", "metrics.enabled"},
		{"soon", "watch.debounceMs"},
		{"half", "metrics.ratio"},
	}

	kinds := KindsOf(kindsTarget{})
	for _, tt := range tests {
		l := NewEnvLoader(map[string]string{"APP_VALUE": tt.path}).
			WithKinds(kinds).
			WithLookup(fakeEnv(map[string]string{"APP_VALUE": tt.value}))

		_, err := l.Load()
		var envErr *EnvError
		if !errors.As(err, &envErr) {
			t.Fatalf("Load(%s=%q) error = %v, expected *EnvError", tt.path, tt.value, err)
		}
		if envErr.Var != "APP_VALUE" || envErr.Path != tt.path {
			t.Errorf("unexpected error fields %+v", envErr)
		}
	}
}
