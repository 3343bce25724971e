package applog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_WritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")

	require.NoError(t, Configure(Options{Path: path, Level: "DEBUG"}))
	Debug("hello %s", "world")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello world")
}

func TestParseLevel_UnknownDefaultsToInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, parseLevel("bogus"))
	assert.Equal(t, LevelError, parseLevel("error"))
}

func TestConfigure_LevelGateSuppressesLowerSeverity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	require.NoError(t, Configure(Options{Path: path, Level: "WARN"}))

	Debug("should not appear")
	Warn("should appear")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should not appear")
	assert.Contains(t, string(data), "should appear")
}
