package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulogio/regulog/pkg/eventtype"
	"github.com/regulogio/regulog/pkg/hooks"
	"github.com/regulogio/regulog/pkg/store"
)

func newRegistry(t *testing.T, params eventtype.Params) *eventtype.Registry {
	t.Helper()
	et, err := eventtype.New(params)
	require.NoError(t, err)
	reg := eventtype.NewRegistry()
	reg.Add(et)
	return reg
}

func TestCheckLine_SingleLineEventClosesImmediatelyWhenNoTimestampEver(t *testing.T) {
	reg := newRegistry(t, eventtype.Params{
		Name:         "NOTS",
		RexFilename:  `\.log$`,
		RexText:      `ERROR (?P<msg>.+)`,
		RexTimestamp: `NEVER MATCHES`,
	})
	st := store.New(reg.Names())
	c := New(reg, st, &hooks.Context{Store: nil}, false)

	require.True(t, c.OpenSource("app.log", time.Now()))

	completed := c.CheckLine("ERROR disk full")
	require.Len(t, completed, 1)
	assert.Equal(t, "NOTS", completed[0].TypeName)
}

func TestCheckLine_WaitsForClosingTimestampThenFinishes(t *testing.T) {
	reg := newRegistry(t, eventtype.Params{
		Name:         "START",
		RexFilename:  `\.log$`,
		RexText:      `Starting task (?P<task>\w+)`,
		RexTimestamp: `(?P<_Y>\d{4})-(?P<_M>\d{2})-(?P<_D>\d{2}) (?P<_h>\d{2}):(?P<_m>\d{2}):(?P<_s>\d{2})`,
	})
	st := store.New(reg.Names())
	c := New(reg, st, &hooks.Context{Store: nil}, false)

	require.True(t, c.OpenSource("app.log", time.Now()))

	completed := c.CheckLine("2024-01-02 09:59:59 Starting task build")
	assert.Len(t, completed, 0)

	completed = c.CheckLine("2024-01-02 10:00:00 next line")
	require.Len(t, completed, 1)
	assert.Equal(t, "START", completed[0].TypeName)

	raw, err := completed[0].GetField("_raw")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02 09:59:59 Starting task build", raw)
}

func TestFinish_FlushesPendingEvent(t *testing.T) {
	reg := newRegistry(t, eventtype.Params{
		Name:         "START",
		RexFilename:  `\.log$`,
		RexText:      `Starting task (?P<task>\w+)`,
		RexTimestamp: `(?P<_Y>\d{4})-(?P<_M>\d{2})-(?P<_D>\d{2}) (?P<_h>\d{2}):(?P<_m>\d{2}):(?P<_s>\d{2})`,
	})
	st := store.New(reg.Names())
	c := New(reg, st, &hooks.Context{Store: nil}, false)
	require.True(t, c.OpenSource("app.log", time.Now()))

	c.CheckLine("2024-01-02 09:59:59 Starting task build")
	completed := c.Finish()
	require.Len(t, completed, 1)
}

func TestOpenSource_NoMatchingEventType(t *testing.T) {
	reg := newRegistry(t, eventtype.Params{
		Name:         "X",
		RexFilename:  `\.weird$`,
		RexText:      `.+`,
		RexTimestamp: `(?P<_Y>\d{4})-(?P<_M>\d{2})-(?P<_D>\d{2}) (?P<_h>\d{2}):(?P<_m>\d{2}):(?P<_s>\d{2})`,
	})
	st := store.New(reg.Names())
	c := New(reg, st, &hooks.Context{Store: nil}, false)
	assert.False(t, c.OpenSource("app.log", time.Now()))
}
