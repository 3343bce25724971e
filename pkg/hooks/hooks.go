// Package hooks implements the exec_on_init/exec_on_match/exec_on_wrapup
// scripting collaborator, backed by embedded Lua scripts run through
// gopher-lua so hook bodies can call imperative API functions
// (set_field/add_field/get_event(s)).
package hooks

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/regulogio/regulog/pkg/event"
)

// StoreAPI is the narrow read interface a hook's "store" global needs.
// pkg/store.Store satisfies it via the adapter in pkg/regulog.
type StoreAPI interface {
	// Lookup resolves a get_event(s)-style query. name may be empty to
	// search the full global sequence. beforeEvent/beforeTime are
	// mutually exclusive; both nil means no "before" filter.
	Lookup(name string, fields map[string]string, beforeEvent *event.Event, beforeTime *time.Time, limit int) ([]*event.Event, error)
}

// Context binds the globals exposed to every hook invocation: the store
// handle, output directory, and chronological flag.
type Context struct {
	Store           StoreAPI
	OutputDirectory string
	Chronological   bool
}

const eventTypeName = "REGULOG_EVENT"

// RunMatch runs an exec_on_match hook body bound to ev. Errors are the
// caller's responsibility to log-and-continue: the offending invocation is
// abandoned, subsequent events continue to be processed.
func (c *Context) RunMatch(code string, ev *event.Event) error {
	if code == "" {
		return nil
	}
	return c.run(code, ev)
}

// RunInit runs an exec_on_init hook with no bound event.
func (c *Context) RunInit(code string) error {
	if code == "" {
		return nil
	}
	return c.run(code, nil)
}

// RunWrapup runs an exec_on_wrapup hook with no bound event.
func (c *Context) RunWrapup(code string) error {
	if code == "" {
		return nil
	}
	return c.run(code, nil)
}

func (c *Context) run(code string, ev *event.Event) (err error) {
	L := lua.NewState()
	defer L.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hooks: panic running hook: %v", r)
		}
	}()

	registerEventType(L)

	if ev != nil {
		L.SetGlobal("event", wrapEvent(L, ev))
	} else {
		L.SetGlobal("event", lua.LNil)
	}
	L.SetGlobal("store", wrapStore(L, c.Store, ev))
	L.SetGlobal("output_directory", lua.LString(c.OutputDirectory))
	L.SetGlobal("chronological", lua.LBool(c.Chronological))

	if err := L.DoString(code); err != nil {
		return fmt.Errorf("hooks: %w", err)
	}
	return nil
}

func registerEventType(L *lua.LState) {
	mt := L.NewTypeMetatable(eventTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), eventMethods))
}

func wrapEvent(L *lua.LState, ev *event.Event) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = ev
	L.SetMetatable(ud, L.GetTypeMetatable(eventTypeName))
	return ud
}

func checkEvent(L *lua.LState, n int) *event.Event {
	ud, ok := L.CheckUserData(n).Value.(*event.Event)
	if !ok {
		L.RaiseError("hooks: not an event")
		return nil
	}
	return ud
}

var eventMethods = map[string]lua.LGFunction{
	"get_field": func(L *lua.LState) int {
		ev := checkEvent(L, 1)
		name := L.CheckString(2)
		v, err := ev.GetField(name)
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(v))
		return 1
	},
	"has_field": func(L *lua.LState) int {
		ev := checkEvent(L, 1)
		name := L.CheckString(2)
		L.Push(lua.LBool(ev.HasField(name)))
		return 1
	},
	"set_field": func(L *lua.LState) int {
		ev := checkEvent(L, 1)
		name := L.CheckString(2)
		value := L.CheckString(3)
		if err := ev.SetField(name, value); err != nil {
			L.RaiseError(err.Error())
		}
		return 0
	},
	"add_field": func(L *lua.LState) int {
		ev := checkEvent(L, 1)
		name := L.CheckString(2)
		value := L.CheckString(3)
		if err := ev.AddField(name, value); err != nil {
			L.RaiseError(err.Error())
		}
		return 0
	},
	"set_fields": func(L *lua.LState) int {
		ev := checkEvent(L, 1)
		tbl := L.CheckTable(2)
		ev.SetFields(tableToStringMap(tbl))
		return 0
	},
	"add_fields": func(L *lua.LState) int {
		ev := checkEvent(L, 1)
		tbl := L.CheckTable(2)
		ev.AddFields(tableToStringMap(tbl))
		return 0
	},
}

func tableToStringMap(tbl *lua.LTable) map[string]string {
	out := make(map[string]string)
	tbl.ForEach(func(k, v lua.LValue) {
		out[k.String()] = v.String()
	})
	return out
}
