package hooks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulogio/regulog/pkg/event"
)

type fakeStore struct {
	events []*event.Event
}

func (f *fakeStore) Lookup(name string, fields map[string]string, beforeEvent *event.Event, beforeTime *time.Time, limit int) ([]*event.Event, error) {
	var out []*event.Event
	for i := len(f.events) - 1; i >= 0; i-- {
		ev := f.events[i]
		if name != "" && ev.TypeName != name {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestRunMatch_SetField(t *testing.T) {
	ev := event.New("A", "", "/var/log/a.log")
	c := &Context{Store: &fakeStore{}, OutputDirectory: "/tmp/out", Chronological: true}

	err := c.RunMatch(`event:set_field("greeting", "hi")`, ev)
	require.NoError(t, err)

	v, err := ev.GetField("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestRunMatch_AddField(t *testing.T) {
	ev := event.New("A", "", "/var/log/a.log")
	c := &Context{Store: &fakeStore{}}

	require.NoError(t, c.RunMatch(`event:add_field("host", "web-1")`, ev))

	v, err := ev.GetField("host")
	require.NoError(t, err)
	assert.Equal(t, "web-1", v)
}

func TestRunMatch_AddFieldDuplicateRaisesLuaError(t *testing.T) {
	ev := event.New("A", "", "/var/log/a.log")
	require.NoError(t, ev.AddField("host", "web-1"))
	c := &Context{Store: &fakeStore{}}

	err := c.RunMatch(`event:add_field("host", "web-2")`, ev)
	require.Error(t, err)
}

func TestRunMatch_StoreGetEventByName(t *testing.T) {
	prev := event.New("A", "", "/var/log/a.log")
	require.NoError(t, prev.AddField("w", "old"))

	ev := event.New("A", "", "/var/log/a.log")
	c := &Context{Store: &fakeStore{events: []*event.Event{prev}}}

	err := c.RunMatch(`
		local p = store:get_event({name = "A"})
		event:set_field("previous_w", p:get_field("w"))
	`, ev)
	require.NoError(t, err)

	v, err := ev.GetField("previous_w")
	require.NoError(t, err)
	assert.Equal(t, "old", v)
}

func TestRunInit_NoBoundEvent(t *testing.T) {
	c := &Context{Store: &fakeStore{}, OutputDirectory: "/tmp/out"}
	err := c.RunInit(`
		if output_directory ~= "/tmp/out" then error("unexpected output_directory") end
	`)
	require.NoError(t, err)
}

func TestRunMatch_EmptyCodeIsNoop(t *testing.T) {
	ev := event.New("A", "", "/var/log/a.log")
	c := &Context{Store: &fakeStore{}}
	require.NoError(t, c.RunMatch("", ev))
}
