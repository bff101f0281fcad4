package lua

import (
	"sync"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/liveevent/internal/event"
	"github.com/dshills/liveevent/internal/lifecycle"
)

// ModuleName is the global table scripts use to reach the event sources.
const ModuleName = "events"

// Script is a Lua script bound to a lifecycle owner. Observers it registers
// with events.on live until the script is closed.
//
// Lua callbacks run on the executor goroutine of the observed source. The
// executor must not run tasks inline inside Trigger: a script that emits
// while observing through such an executor would re-enter its own State.
type Script struct {
	name   string
	state  *State
	owner  *lifecycle.Owner
	logger zerolog.Logger

	listen *event.Source[string]
	emit   *event.MutableSource[string]

	mu        sync.Mutex
	observers map[int]*event.Observer[string]
	nextID    int
}

// ScriptOption configures a Script.
type ScriptOption func(*scriptConfig)

type scriptConfig struct {
	logger zerolog.Logger
	parent *lifecycle.Owner
}

// WithScriptLogger sets the logger for script errors and print output.
func WithScriptLogger(logger zerolog.Logger) ScriptOption {
	return func(c *scriptConfig) {
		c.logger = logger
	}
}

// WithParent makes the script owner a child of parent, so destroying
// parent closes the script's observers.
func WithParent(parent *lifecycle.Owner) ScriptOption {
	return func(c *scriptConfig) {
		c.parent = parent
	}
}

// NewScript creates a script that observes listen and triggers emit. Either
// may be nil to leave that half of the API out.
func NewScript(name string, listen *event.Source[string], emit *event.MutableSource[string], opts ...ScriptOption) *Script {
	cfg := scriptConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger.With().Str("script", name).Logger()

	var owner *lifecycle.Owner
	if cfg.parent != nil {
		owner = cfg.parent.NewChild("script:" + name)
	} else {
		owner = lifecycle.NewOwner("script:" + name)
	}

	s := &Script{
		name:      name,
		state:     NewState(WithStateLogger(logger)),
		owner:     owner,
		logger:    logger,
		listen:    listen,
		emit:      emit,
		observers: make(map[int]*event.Observer[string]),
	}

	// Observers vanish with the owner; drop the handles too.
	owner.OnTerminate(func() {
		s.mu.Lock()
		clear(s.observers)
		s.mu.Unlock()
	})

	s.state.RegisterModule(ModuleName, map[string]lua.LGFunction{
		"on":   s.luaOn,
		"off":  s.luaOff,
		"emit": s.luaEmit,
	})
	return s
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.name
}

// Owner returns the lifecycle owner of the script's observers.
func (s *Script) Owner() *lifecycle.Owner {
	return s.owner
}

// Run executes Lua source code.
func (s *Script) Run(code string) error {
	return s.state.DoString(code)
}

// RunFile executes a Lua file.
func (s *Script) RunFile(path string) error {
	return s.state.DoFile(path)
}

// Observers returns the number of live events.on registrations.
func (s *Script) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Close destroys the owner, removing every observer, then closes the state.
func (s *Script) Close() error {
	s.owner.Destroy()
	return s.state.Close()
}

// luaOn implements events.on(fn) -> id.
func (s *Script) luaOn(L *lua.LState) int {
	fn := L.CheckFunction(1)
	if s.listen == nil {
		L.RaiseError("events.on: script has no event source")
		return 0
	}

	obs := event.NewObserver(func(msg string) {
		if err := s.state.CallFunction(fn, lua.LString(msg)); err != nil {
			s.logger.Error().Err(err).Msg("lua observer failed")
		}
	})
	if err := s.listen.Observe(s.owner, obs); err != nil {
		L.RaiseError("events.on: %s", err.Error())
		return 0
	}
	if s.owner.IsDestroyed() {
		L.Push(lua.LNumber(0))
		return 1
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers[id] = obs
	s.mu.Unlock()

	L.Push(lua.LNumber(id))
	return 1
}

// luaOff implements events.off(id) -> bool.
func (s *Script) luaOff(L *lua.LState) int {
	id := L.CheckInt(1)

	s.mu.Lock()
	obs, ok := s.observers[id]
	delete(s.observers, id)
	s.mu.Unlock()

	L.Push(lua.LBool(ok && s.listen.RemoveObserver(obs)))
	return 1
}

// luaEmit implements events.emit(msg).
func (s *Script) luaEmit(L *lua.LState) int {
	msg := L.CheckString(1)
	if s.emit == nil {
		L.RaiseError("events.emit: script has no output source")
		return 0
	}
	s.emit.Trigger(msg)
	return 0
}
