package regulog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulogio/regulog/pkg/event"
	"github.com/regulogio/regulog/pkg/eventtype"
	"github.com/regulogio/regulog/pkg/extractor"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func buildRegistry(t *testing.T) *eventtype.Registry {
	t.Helper()
	et, err := eventtype.New(eventtype.Params{
		Name:         "FLUSH",
		RexFilename:  `\.log$`,
		RexText:      `^ERR (?P<v>\w+)$`,
		RexTimestamp: `(?P<_Y>\d{4})-(?P<_M>\d{2})-(?P<_D>\d{2}) (?P<_h>\d{2}):(?P<_m>\d{2}):(?P<_s>\d{2})`,
	})
	require.NoError(t, err)
	reg := eventtype.NewRegistry()
	reg.Add(et)
	return reg
}

func TestSearch_StreamingEmitsEventsViaCallback(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "app.log"), "ERR x\nERR y\n2024-01-02 00:00:00 flush\n")

	reg := buildRegistry(t)
	var seen []*event.Event
	res, err := Search([]string{dir}, reg, Options{
		PathFilter:        `\.log$`,
		ArchiveExtensions: `.tar;.zip`,
		OnEvent:           func(ev *event.Event) { seen = append(seen, ev) },
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, 2, res.Stats.FoundEvents)
}

func TestSearch_ChronologicalDefersCallbackToWrapup(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "app.log"), "ERR x\n2024-01-02 00:00:00 flush\n")

	reg := buildRegistry(t)
	var seen []*event.Event
	_, err := Search([]string{dir}, reg, Options{
		PathFilter:        `\.log$`,
		ArchiveExtensions: `.tar;.zip`,
		Chronological:     true,
		OnEvent:           func(ev *event.Event) { seen = append(seen, ev) },
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
}

func TestOverview_ReportsMemberCountPerSource(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "host-1", "app.log"), "one")

	summaries, err := Overview([]string{dir}, `.*/(?P<host>[^/]+)/app\.log$`, `.tar;.zip`, SourceConfig{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].MemberCount)
}

func TestExtract_CopiesMatchedFilesToOutputDir(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "app.log"), "payload")
	outDir := filepath.Join(dir, "out")

	entries, err := Extract([]string{dir}, `\.log$`, `.tar;.zip`, SourceConfig{}, extractor.Options{OutputDir: outDir})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(entries[0].DestPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestSearch_UnreadableRootIsSkippedAndReported(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "app.log"), "ERR x\n2024-01-02 00:00:00 flush\n")
	missing := filepath.Join(dir, "does-not-exist")

	reg := buildRegistry(t)
	var sourceErrs []string
	res, err := Search([]string{missing, dir}, reg, Options{
		PathFilter:        `\.log$`,
		ArchiveExtensions: `.tar;.zip`,
		OnSourceError:     func(path string, err error) { sourceErrs = append(sourceErrs, path) },
	})
	require.NoError(t, err)
	assert.Contains(t, sourceErrs, missing)
	assert.Equal(t, 1, res.Stats.FoundEvents)
}

func TestSearch_UnknownSourceKindErrors(t *testing.T) {
	reg := buildRegistry(t)
	_, err := Search(nil, reg, Options{
		PathFilter:        `\.log$`,
		ArchiveExtensions: `.tar;.zip`,
		Source:            SourceConfig{Kind: "carrier-pigeon"},
	})
	assert.Error(t, err)
}

func TestStoreAdapter_LookupByNameAndFields(t *testing.T) {
	reg := buildRegistry(t)
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "app.log"), "ERR x\n2024-01-02 00:00:00 flush\n")

	res, err := Search([]string{dir}, reg, Options{
		PathFilter:        `\.log$`,
		ArchiveExtensions: `.tar;.zip`,
	})
	require.NoError(t, err)

	adapter := StoreAdapter{Store: res.Store}
	evs, err := adapter.Lookup("FLUSH", nil, nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, evs, 1)
}
