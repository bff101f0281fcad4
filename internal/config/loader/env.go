package loader

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// Kind is the value type expected at a config path.
type Kind int

const (
	// KindString keeps the raw environment value.
	KindString Kind = iota + 1
	// KindBool accepts true/false, yes/no, on/off and 1/0.
	KindBool
	// KindInt accepts base 10 integers.
	KindInt
	// KindFloat accepts decimal numbers.
	KindFloat
)

// EnvError is returned when an environment value does not fit the kind of
// its config path.
type EnvError struct {
	Var  string
	Path string
	Err  error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("environment variable %s (%s): %v", e.Var, e.Path, e.Err)
}

func (e *EnvError) Unwrap() error {
	return e.Err
}

// EnvLoader loads configuration from environment variables.
// Only variables listed in the mapping are read.
type EnvLoader struct {
	mapping map[string]string // Env var -> config path
	kinds   map[string]Kind   // Config path -> expected kind
	lookup  func(string) (string, bool)
}

// NewEnvLoader creates an environment loader with the given
// variable -> dot-separated config path mapping.
func NewEnvLoader(mapping map[string]string) *EnvLoader {
	return &EnvLoader{
		mapping: mapping,
		lookup:  os.LookupEnv,
	}
}

// WithLookup replaces the environment lookup, for tests.
func (l *EnvLoader) WithLookup(lookup func(string) (string, bool)) *EnvLoader {
	l.lookup = lookup
	return l
}

// WithKinds sets the expected kind per config path. Values for paths with
// a kind are converted to it; other paths fall back to guessing.
func (l *EnvLoader) WithKinds(kinds map[string]Kind) *EnvLoader {
	l.kinds = kinds
	return l
}

// Load reads environment variables and returns a configuration map.
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, path := range l.mapping {
		val, ok := l.lookup(env)
		if !ok {
			continue
		}
		kind, known := l.kinds[path]
		if !known {
			setByPath(config, path, parseValue(val))
			continue
		}
		v, err := convertValue(val, kind)
		if err != nil {
			return nil, &EnvError{Var: env, Path: path, Err: err}
		}
		setByPath(config, path, v)
	}

	if len(config) == 0 {
		return nil, nil
	}
	return config, nil
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = configPath
}

// convertValue converts s to kind.
func convertValue(s string, kind Kind) (any, error) {
	switch kind {
	case KindBool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", s)
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return i, nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", s)
		}
		return f, nil
	default:
		return s, nil
	}
}

// KindsOf builds a path -> kind table from the toml tags of struct v.
// Nested structs contribute dot-separated paths; fields without a tag use
// the field name.
func KindsOf(v any) map[string]Kind {
	kinds := make(map[string]Kind)
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return kinds
	}
	collectKinds(t, "", kinds)
	return kinds
}

func collectKinds(t reflect.Type, prefix string, kinds map[string]Kind) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		switch f.Type.Kind() {
		case reflect.Struct:
			collectKinds(f.Type, path, kinds)
		case reflect.String:
			kinds[path] = KindString
		case reflect.Bool:
			kinds[path] = KindBool
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			kinds[path] = KindInt
		case reflect.Float32, reflect.Float64:
			kinds[path] = KindFloat
		}
	}
}

// parseValue attempts to parse the string value into an appropriate type.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	// Only if it contains a decimal point to avoid misinterpreting ints.
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	// Navigate/create intermediate maps
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			next := make(map[string]any)
			current[part] = next
			current = next
		}
	}

	current[parts[len(parts)-1]] = value
}
