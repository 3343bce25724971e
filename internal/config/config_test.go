package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoConfigFound(t *testing.T) {
	t.Setenv("REGULOG_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, `.*\.log$`, cfg.PathFilter)
	assert.Equal(t, ".zip;.tar;.tar.gz;.tgz", cfg.ArchiveExtensions)
}

func TestLoad_ExplicitPathOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("path_filter: \"\\\\.txt$\"\noutput_directory: /tmp/out\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, `\.txt$`, cfg.PathFilter)
	assert.Equal(t, "/tmp/out", cfg.OutputDirectory)
}

func TestLoad_ExplicitPathMissingIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_InvalidYAMLWrapsErrConfigParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("path_filter: [unterminated"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigParse)
}
