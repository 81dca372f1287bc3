package scripting

import (
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/diceroll/internal/dice"
)

// ErrClosed is returned by calls on a closed Engine.
var ErrClosed = errors.New("scripting: engine closed")

// Expander rewrites roll text before parsing, e.g. macro expansion.
type Expander interface {
	Expand(text string) (string, error)
}

// Engine owns one sandboxed LState with the "dice" module registered.
//
// Engine is safe for concurrent use; calls into the VM are serialized.
type Engine struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	roller *dice.Roller
	expand Expander
	logger *zap.Logger
}

// NewEngine creates an Engine whose dice module rolls with roller. Every load
// and call gets its own budget of instLimit opcodes (0 uses
// DefaultInstructionLimit). expand may be nil.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Engine; the caller must call Close.
func NewEngine(roller *dice.Roller, expand Expander, instLimit int, logger *zap.Logger) *Engine {
	e := &Engine{
		L:      NewSandboxedState(instLimit),
		limit:  instLimit,
		roller: roller,
		expand: expand,
		logger: logger,
	}
	e.RegisterModules(e.L)
	return e
}

// LoadFile executes a Lua file, typically to define functions.
func (e *Engine) LoadFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.L == nil {
		return ErrClosed
	}
	if err := withBudget(e.L, e.limit, func() error { return e.L.DoFile(path) }); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", path, err)
	}
	e.logger.Debug("script loaded", zap.String("path", path))
	return nil
}

// LoadString executes Lua source.
func (e *Engine) LoadString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.L == nil {
		return ErrClosed
	}
	if err := withBudget(e.L, e.limit, func() error { return e.L.DoString(src) }); err != nil {
		return fmt.Errorf("scripting: running chunk: %w", err)
	}
	return nil
}

// Has reports whether the global name is a Lua function.
func (e *Engine) Has(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.L == nil {
		return false
	}
	return e.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call calls the named Lua global function and returns its first result.
// Returns (LNil, nil) if the function is not defined. Lua runtime errors,
// including an exhausted instruction budget, are logged at Warn level and
// returned.
//
// Precondition: args must be valid lua.LValue instances.
func (e *Engine) Call(name string, args ...lua.LValue) (lua.LValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.L == nil {
		return lua.LNil, ErrClosed
	}

	fn := e.L.GetGlobal(name)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	err := withBudget(e.L, e.limit, func() error {
		return e.L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, args...)
	})
	if err != nil {
		e.logger.Warn("scripting: Lua runtime error",
			zap.String("function", name),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: calling %s: %w", name, err)
	}

	ret := e.L.Get(-1)
	e.L.Pop(1)
	return ret, nil
}

// Close releases the VM. Further calls return ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}
