package source

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]ArchiveFormat{
		"a.tar":    FormatTar,
		"a.tar.gz": FormatTarGz,
		"a.tgz":    FormatTarGz,
		"a.ZIP":    FormatZip,
	}
	for name, want := range cases {
		got, ok := DetectFormat(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := DetectFormat("a.log")
	assert.False(t, ok)
}

func TestLocalFile_Members(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	src := NewLocalFile(path)
	members, err := src.Members()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, int64(5), members[0].Size)

	rc, err := src.Open(members[0])
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalDir_AddCandidateAndOpen(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "host-1")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	path := filepath.Join(sub, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	src := NewLocalDir(dir)
	require.NoError(t, src.AddCandidate(path, map[string]string{"host": "host-1"}))

	members, err := src.Members()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, filepath.Join("host-1", "app.log"), members[0].Path)
	assert.Equal(t, "host-1", members[0].Fields["host"])

	rc, err := src.Open(members[0])
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func writeTestTar(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	tw := tar.NewWriter(f)
	defer tw.Close()
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(body)), Mode: 0o644}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
}

func TestArchive_Tar_MembersAndOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.tar")
	writeTestTar(t, path, map[string]string{"a.log": "one", "b.log": "two"})

	a, err := OpenArchive(path, FormatTar)
	require.NoError(t, err)
	members, err := a.Members()
	require.NoError(t, err)
	require.Len(t, members, 2)

	var aMember *Member
	for i := range members {
		if members[i].Path == "a.log" {
			aMember = &members[i]
		}
	}
	require.NotNil(t, aMember)

	rc, err := a.Open(*aMember)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}
