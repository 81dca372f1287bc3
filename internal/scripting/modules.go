package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/diceroll/internal/dice"
)

// RegisterModules registers the dice global table into L:
//
//	dice.roll(expr)   -> integer
//	dice.detail(expr) -> {value = integer, debug = string, leaves = {integer...}}
//	dice.valid(expr)  -> boolean
//
// roll and detail raise a Lua error when expr cannot be parsed or evaluated.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: dice global is defined in L.
func (e *Engine) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"roll":   e.luaRoll,
		"detail": e.luaDetail,
		"valid":  e.luaValid,
	})
	L.SetGlobal("dice", mod)
}

func (e *Engine) rollText(L *lua.LState) (dice.Record, error) {
	text := L.CheckString(1)
	if e.expand != nil {
		expanded, err := e.expand.Expand(text)
		if err != nil {
			return dice.Record{}, err
		}
		text = expanded
	}
	return e.roller.Roll(text)
}

func (e *Engine) luaRoll(L *lua.LState) int {
	rec, err := e.rollText(L)
	if err != nil {
		L.RaiseError("dice.roll: %s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(rec.Value))
	return 1
}

func (e *Engine) luaDetail(L *lua.LState) int {
	rec, err := e.rollText(L)
	if err != nil {
		L.RaiseError("dice.detail: %s", err.Error())
		return 0
	}
	leaves := L.NewTable()
	for _, v := range rec.Leaves() {
		leaves.Append(lua.LNumber(v))
	}
	t := L.NewTable()
	t.RawSetString("value", lua.LNumber(rec.Value))
	t.RawSetString("debug", lua.LString(dice.Debug(rec.Tree)))
	t.RawSetString("leaves", leaves)
	L.Push(t)
	return 1
}

func (e *Engine) luaValid(L *lua.LState) int {
	text := L.CheckString(1)
	if e.expand != nil {
		expanded, err := e.expand.Expand(text)
		if err != nil {
			L.Push(lua.LFalse)
			return 1
		}
		text = expanded
	}
	L.Push(lua.LBool(e.roller.Valid(text)))
	return 1
}

// RollFunc adapts the Lua global function fnName into a dice.RollFunc. The
// function is called as fnName(faces) and must return an integer in
// [1, faces].
//
// The returned RollFunc must not back the Engine's own roller: the dice
// module would re-enter the VM while it is locked.
//
// Precondition: fnName should name a function defined by a loaded script.
// Postcondition: Returns a non-nil RollFunc; calls fail if fnName is not
// defined when rolled.
func (e *Engine) RollFunc(fnName string) dice.RollFunc {
	return func(faces int) (int, error) {
		if !e.Has(fnName) {
			return 0, fmt.Errorf("scripting: roll function %q is not defined", fnName)
		}
		ret, err := e.Call(fnName, lua.LNumber(faces))
		if err != nil {
			return 0, err
		}
		n, ok := ret.(lua.LNumber)
		if !ok {
			return 0, fmt.Errorf("scripting: %s(%d) returned %s, want number", fnName, faces, ret.Type())
		}
		v := int(n)
		if float64(v) != float64(n) {
			return 0, fmt.Errorf("scripting: %s(%d) returned non-integer %v", fnName, faces, float64(n))
		}
		if v < 1 || v > faces {
			return 0, fmt.Errorf("%w: %s(%d) returned %d", dice.ErrRollOutOfRange, fnName, faces, v)
		}
		return v, nil
	}
}
