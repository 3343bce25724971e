package eventtype

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidatesMultilineCount(t *testing.T) {
	_, err := New(Params{
		Name:           "bad",
		RexFilename:    ".*",
		RexText:        "hello",
		RexTimestamp:   "(?P<_Y>\\d+)",
		MultilineCount: 0,
	})
	require.NoError(t, err, "zero multiline count defaults to 1")

	_, err = New(Params{
		Name:           "bad",
		RexFilename:    ".*",
		RexText:        "hello",
		RexTimestamp:   "(?P<_Y>\\d+)",
		MultilineCount: -1,
	})
	require.Error(t, err)
}

func TestNew_RequiresName(t *testing.T) {
	_, err := New(Params{RexFilename: ".*", RexText: "x", RexTimestamp: "x"})
	require.Error(t, err)
}

func TestSearchText_CaseSensitivity(t *testing.T) {
	caseInsensitive, err := New(Params{
		Name:         "ci",
		RexFilename:  ".*",
		RexText:      "hello (?P<w>\\w+)",
		RexTimestamp: "(?P<_Y>\\d+)",
	})
	require.NoError(t, err)
	assert.NotNil(t, caseInsensitive.SearchText("HELLO world"))

	caseSensitive, err := New(Params{
		Name:          "cs",
		RexFilename:   ".*",
		RexText:       "hello (?P<w>\\w+)",
		RexTimestamp:  "(?P<_Y>\\d+)",
		CaseSensitive: true,
	})
	require.NoError(t, err)
	assert.Nil(t, caseSensitive.SearchText("HELLO world"))
}

func TestSearchText_MultilineDotAll(t *testing.T) {
	et, err := New(Params{
		Name:         "multi",
		RexFilename:  ".*",
		RexText:      "START(?P<body>.*)END",
		RexTimestamp: "(?P<_Y>\\d+)",
	})
	require.NoError(t, err)
	m := et.SearchText("START\nfoo\nbarEND")
	require.NotNil(t, m)
	assert.Equal(t, "\nfoo\nbar", m.GroupDict()["body"])
}

func TestParseTimestamp_ISO(t *testing.T) {
	et, err := New(Params{
		Name:         "iso",
		RexFilename:  ".*",
		RexText:      "hello (?P<w>\\w+)",
		RexTimestamp: `(?P<_Y>\d{4})-(?P<_M>\d{2})-(?P<_D>\d{2}) (?P<_h>\d{2}):(?P<_m>\d{2}):(?P<_s>\d{2})`,
	})
	require.NoError(t, err)

	match := et.SearchTimestamp("2024-01-02 03:04:05 world")
	require.NotNil(t, match)

	ts, err := et.ParseTimestamp(match, 2000)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05", ts.Time.Format("2006-01-02T15:04:05"))
}

func TestParseTimestamp_MonthNameAndTwoDigitYear(t *testing.T) {
	et, err := New(Params{
		Name:         "alt",
		RexFilename:  ".*",
		RexText:      "x",
		RexTimestamp: `(?P<_D>\d{2})/(?P<_M>[A-Za-z]{3})/(?P<_Y>\d{2}):(?P<_h>\d{2}):(?P<_m>\d{2}):(?P<_s>\d{2})`,
	})
	require.NoError(t, err)

	match := et.SearchTimestamp("31/Dec/16:23:59:59")
	require.NotNil(t, match)

	ts, err := et.ParseTimestamp(match, 1999)
	require.NoError(t, err)
	assert.Equal(t, 2016, ts.Time.Year())
	assert.Equal(t, 12, int(ts.Time.Month()))
	assert.Equal(t, 31, ts.Time.Day())
}

func TestParseTimestamp_RequiresFourFields(t *testing.T) {
	et, err := New(Params{
		Name:         "sparse",
		RexFilename:  ".*",
		RexText:      "x",
		RexTimestamp: `(?P<_h>\d{2}):(?P<_m>\d{2})`,
	})
	require.NoError(t, err)

	match := et.SearchTimestamp("03:04")
	require.NotNil(t, match)

	_, err = et.ParseTimestamp(match, 2024)
	require.Error(t, err)
}

func TestParseTimestamp_ExtraGroupsBecomeUserFields(t *testing.T) {
	et, err := New(Params{
		Name:         "withhost",
		RexFilename:  ".*",
		RexText:      "x",
		RexTimestamp: `(?P<_Y>\d{4})-(?P<_M>\d{2})-(?P<_D>\d{2}) (?P<_h>\d{2}):(?P<_m>\d{2}):(?P<_s>\d{2}) (?P<host>\S+)`,
	})
	require.NoError(t, err)

	match := et.SearchTimestamp("2024-01-02 03:04:05 web-01")
	require.NotNil(t, match)

	ts, err := et.ParseTimestamp(match, 2024)
	require.NoError(t, err)
	assert.Equal(t, "web-01", ts.UserFields["host"])
}

func TestXMLRoundTrip(t *testing.T) {
	reg := NewRegistry()
	et, err := New(Params{
		Name:             "disk_full",
		Description:      "disk usage alert",
		RexFilename:      `.*\.log$`,
		RexText:          `DISK FULL on (?P<disk>\w+)`,
		RexTimestamp:     `(?P<_Y>\d{4})-(?P<_M>\d{2})-(?P<_D>\d{2})T(?P<_h>\d{2}):(?P<_m>\d{2}):(?P<_s>\d{2})`,
		MultilineCount:   2,
		CaseSensitive:    true,
		DisplayOnMatch:   "{disk} is full",
		DisplayIfChanged: true,
		ExecOnMatch:      "event:set_field('severity', 'critical')",
	})
	require.NoError(t, err)
	reg.Add(et)

	dir := t.TempDir()
	path := dir + "/event_types.xml"
	require.NoError(t, WriteRegistryXML(reg, path))

	read, err := LoadRegistryXMLFiles([]string{path})
	require.NoError(t, err)
	require.Equal(t, 1, read.Len())

	got := read.Get("disk_full")
	require.NotNil(t, got)
	assert.Equal(t, et.RexText, got.RexText)
	assert.Equal(t, et.RexTimestamp, got.RexTimestamp)
	assert.Equal(t, et.MultilineCount, got.MultilineCount)
	assert.True(t, got.CaseSensitive)
	assert.True(t, got.DisplayIfChanged)
	assert.Equal(t, et.ExecOnMatch, got.ExecOnMatch)
	assert.True(t, strings.Contains(got.Description, "disk usage"))
}
