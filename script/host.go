// Package script provides Lua runtime integration for history control.
//
// A Host embeds a gopher-lua state and publishes history managers and
// property stores as Lua globals, so editor automation can drive capture
// and undo/redo. Scripts are assumed to be trusted; the host offers an
// execution timeout but no library sandbox.
//
//	host := script.NewHost()
//	host.RegisterManager("history", mgr)
//	host.RegisterStore("doc", store)
//	host.DoString(`doc.set("title", "v2"); history.set_waypoint("retitle")`)
package script

import (
	"context"
	"errors"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/waypoint"
	"github.com/dshills/waypoint/propstore"
)

// ErrHostClosed is returned by operations on a closed host.
var ErrHostClosed = errors.New("script host closed")

// DefaultTimeout bounds a single DoString/DoFile execution.
const DefaultTimeout = 5 * time.Second

// Host wraps a Lua state for history scripting.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes all
// host operations.
type Host struct {
	mu sync.Mutex

	L       *lua.LState
	timeout time.Duration
	closed  bool
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithTimeout sets the execution timeout for script calls. Zero
// disables the timeout.
func WithTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		if d >= 0 {
			h.timeout = d
		}
	}
}

// NewHost creates a Lua host.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		L:       lua.NewState(),
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// RegisterManager publishes a manager as a Lua global table with
// history functions: set_waypoint, undo, redo, reset, can_undo,
// can_redo, undo_count, redo_count, set_enabled, toggle, enabled.
func (h *Host) RegisterManager(global string, mgr *waypoint.Manager) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}

	L := h.L
	tbl := L.NewTable()

	L.SetField(tbl, "set_waypoint", L.NewFunction(func(L *lua.LState) int {
		mgr.SetWaypoint(L.OptString(1, ""))
		return 0
	}))

	L.SetField(tbl, "undo", L.NewFunction(func(L *lua.LState) int {
		if err := mgr.Undo(); err != nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	L.SetField(tbl, "redo", L.NewFunction(func(L *lua.LState) int {
		if err := mgr.Redo(); err != nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	L.SetField(tbl, "reset", L.NewFunction(func(L *lua.LState) int {
		mgr.Reset()
		return 0
	}))

	L.SetField(tbl, "can_undo", L.NewFunction(func(L *lua.LState) int {
		wp, ok := mgr.CanUndo()
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(waypointToLua(L, wp))
		return 1
	}))

	L.SetField(tbl, "can_redo", L.NewFunction(func(L *lua.LState) int {
		wp, ok := mgr.CanRedo()
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(waypointToLua(L, wp))
		return 1
	}))

	L.SetField(tbl, "undo_count", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(mgr.UndoCount()))
		return 1
	}))

	L.SetField(tbl, "redo_count", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(mgr.RedoCount()))
		return 1
	}))

	L.SetField(tbl, "set_enabled", L.NewFunction(func(L *lua.LState) int {
		mgr.SetEnabled(L.CheckBool(1))
		return 0
	}))

	L.SetField(tbl, "toggle", L.NewFunction(func(L *lua.LState) int {
		mgr.Toggle()
		return 0
	}))

	L.SetField(tbl, "enabled", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(mgr.Enabled()))
		return 1
	}))

	L.SetGlobal(global, tbl)
	return nil
}

// RegisterStore publishes a property store as a Lua global table with
// get(key) and set(key, value) functions.
func (h *Host) RegisterStore(global string, store propstore.Store) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}

	L := h.L
	tbl := L.NewTable()

	L.SetField(tbl, "get", L.NewFunction(func(L *lua.LState) int {
		val, err := store.Get(L.CheckString(1))
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(toLua(L, val))
		return 1
	}))

	L.SetField(tbl, "set", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		val := toGo(L.CheckAny(2))
		if err := store.Set(key, val); err != nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	L.SetGlobal(global, tbl)
	return nil
}

// DoString executes a Lua chunk, bounded by the host timeout.
func (h *Host) DoString(src string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	return h.run(func() error { return h.L.DoString(src) })
}

// DoFile executes a Lua file, bounded by the host timeout.
func (h *Host) DoFile(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	return h.run(func() error { return h.L.DoFile(path) })
}

// run applies the execution timeout around a Lua call.
func (h *Host) run(fn func() error) error {
	if h.timeout <= 0 {
		return fn()
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.L.SetContext(ctx)
	defer h.L.RemoveContext()

	return fn()
}

// Close shuts the Lua state down. It is safe to call Close multiple
// times.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	h.L.Close()
}

// waypointToLua converts a waypoint to a Lua table with name,
// created_at, and props fields.
func waypointToLua(L *lua.LState, wp *waypoint.Waypoint) lua.LValue {
	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LString(wp.ID))
	tbl.RawSetString("name", lua.LString(wp.Name))
	tbl.RawSetString("created_at", lua.LString(wp.CreatedAt.Format(time.RFC3339Nano)))

	props := L.NewTable()
	for key, val := range wp.Props {
		props.RawSetString(key, toLua(L, val))
	}
	tbl.RawSetString("props", props)

	return tbl
}
