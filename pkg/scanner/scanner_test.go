package scanner

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "host-1", "app.log"), "one")
	writeFile(t, filepath.Join(dir, "host-1", "ignore.txt"), "skip")

	sc, err := New(`.*/(?P<host>[^/]+)/app\.log$`, `.tar;.tar.gz;.zip`)
	require.NoError(t, err)

	res, err := sc.Scan([]string{dir}, nil)
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)

	members, err := res.Sources[0].Members()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "host-1", members[0].Fields["host"])
}

func TestScan_BareFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "single.log")
	writeFile(t, path, "content")

	sc, err := New(`\.log$`, `.tar;.zip`)
	require.NoError(t, err)

	res, err := sc.Scan([]string{path}, nil)
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "LOG", string(res.Sources[0].Kind()))
}

func TestScan_UnreadableRootIsSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.log"), "content")
	missing := filepath.Join(dir, "does-not-exist")

	sc, err := New(`\.log$`, `.tar;.zip`)
	require.NoError(t, err)

	var reported []string
	res, err := sc.Scan([]string{missing, filepath.Join(dir, "app.log")}, func(path string, err error) {
		reported = append(reported, path)
	})
	require.NoError(t, err)
	require.Len(t, reported, 1)
	assert.Equal(t, missing, reported[0])
	require.Len(t, res.Sources, 1)
}

func writeTarArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(body)), Mode: 0o644}))
		_, err = tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())
}

func TestScan_ArchiveRecursion(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.tar")
	writeTarArchive(t, archivePath, map[string]string{"app.log": "inside"})

	sc, err := New(`app\.log$`, `.tar;.tar.gz;.zip`)
	require.NoError(t, err)

	res, err := sc.Scan([]string{dir}, nil)
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "ARCHIVE", string(res.Sources[0].Kind()))

	members, err := res.Sources[0].Members()
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestScan_NestedArchiveRecursion(t *testing.T) {
	dir := t.TempDir()

	var innerZipBuf bytes.Buffer
	zw := zip.NewWriter(&innerZipBuf)
	fw, err := zw.Create("app.log")
	require.NoError(t, err)
	_, err = fw.Write([]byte("inner"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	outerPath := filepath.Join(dir, "outer.tar")
	writeTarArchive(t, outerPath, map[string]string{
		"inner.zip": innerZipBuf.String(),
		"other.txt": "ignored",
	})

	sc, err := New(`app\.log$`, `.tar;.tar.gz;.zip`)
	require.NoError(t, err)

	res, err := sc.Scan([]string{dir}, nil)
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)

	members, err := res.Sources[0].Members()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "app.log", members[0].Path)
	assert.Contains(t, members[0].PseudoPath, "inner.zip")

	rc, err := res.Sources[0].Open(members[0])
	require.NoError(t, err)
	defer rc.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, "inner", buf.String())
}
