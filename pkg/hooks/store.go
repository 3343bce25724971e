package hooks

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/regulogio/regulog/pkg/event"
)

const storeTypeName = "REGULOG_STORE"

type storeHandle struct {
	api   StoreAPI
	bound *event.Event
}

func wrapStore(L *lua.LState, api StoreAPI, bound *event.Event) *lua.LUserData {
	mt := L.NewTypeMetatable(storeTypeName)
	if mt.RawGetString("__index") == lua.LNil {
		L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), storeMethods))
	}
	ud := L.NewUserData()
	ud.Value = &storeHandle{api: api, bound: bound}
	L.SetMetatable(ud, mt)
	return ud
}

func checkStore(L *lua.LState, n int) *storeHandle {
	h, ok := L.CheckUserData(n).Value.(*storeHandle)
	if !ok {
		L.RaiseError("hooks: not a store")
		return nil
	}
	return h
}

// parseOpts reads the opts table accepted by get_event/get_events:
//
//	{ name = "EventTypeName", fields = {k=v,...}, before = event|"<RFC3339 timestamp>", limit = n }
//
// "before" as an event userdata filters by (timestamp, sequence); as a
// string it is parsed as an RFC3339 timestamp and filters by timestamp
// alone. Omitting "before" applies no before-filter, matching the
// original get_events(before=None) default.
func parseOpts(L *lua.LState, tbl *lua.LTable) (name string, fields map[string]string, beforeEvent *event.Event, beforeTime *time.Time, limit int) {
	if v := tbl.RawGetString("name"); v != lua.LNil {
		name = v.String()
	}
	if v, ok := tbl.RawGetString("fields").(*lua.LTable); ok {
		fields = tableToStringMap(v)
	}
	switch v := tbl.RawGetString("before").(type) {
	case *lua.LUserData:
		if ev, ok := v.Value.(*event.Event); ok {
			beforeEvent = ev
		}
	case lua.LString:
		if t, err := time.Parse(time.RFC3339, string(v)); err == nil {
			beforeTime = &t
		}
	}
	limit = 1
	if v, ok := tbl.RawGetString("limit").(lua.LNumber); ok {
		limit = int(v)
	}
	return
}

func optTable(L *lua.LState, n int) *lua.LTable {
	v := L.Get(n)
	if tbl, ok := v.(*lua.LTable); ok {
		return tbl
	}
	return L.NewTable()
}

var storeMethods = map[string]lua.LGFunction{
	"get_event": func(L *lua.LState) int {
		h := checkStore(L, 1)
		name, fields, beforeEv, beforeTs, _ := parseOpts(L, optTable(L, 2))
		evs, err := h.api.Lookup(name, fields, beforeEv, beforeTs, 1)
		if err != nil || len(evs) == 0 {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(wrapEvent(L, evs[0]))
		return 1
	},
	"get_events": func(L *lua.LState) int {
		h := checkStore(L, 1)
		name, fields, beforeEv, beforeTs, limit := parseOpts(L, optTable(L, 2))
		evs, err := h.api.Lookup(name, fields, beforeEv, beforeTs, limit)
		if err != nil {
			L.RaiseError(err.Error())
			return 0
		}
		out := L.NewTable()
		for _, ev := range evs {
			out.Append(wrapEvent(L, ev))
		}
		L.Push(out)
		return 1
	},
}
