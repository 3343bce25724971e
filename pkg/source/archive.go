package source

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ArchiveFormat identifies which container format backs an Archive source.
type ArchiveFormat string

const (
	FormatTar   ArchiveFormat = "tar"
	FormatTarGz ArchiveFormat = "tar.gz"
	FormatZip   ArchiveFormat = "zip"
)

// DetectFormat maps a filename extension to an ArchiveFormat.
func DetectFormat(name string) (ArchiveFormat, bool) {
	switch {
	case hasSuffixFold(name, ".tar.gz"), hasSuffixFold(name, ".tgz"):
		return FormatTarGz, true
	case hasSuffixFold(name, ".tar"):
		return FormatTar, true
	case hasSuffixFold(name, ".zip"):
		return FormatZip, true
	default:
		return "", false
	}
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	return equalFold(tail, suffix)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// backing abstracts where an archive's bytes come from: a real file on disk
// for a top-level archive, or an in-memory buffer for an archive found
// nested inside another archive's member. reader opens a fresh stream from
// the start (tar/tar.gz scan sequentially); readerAt additionally exposes
// random access plus a size, which zip's central directory lookup needs.
type backing interface {
	reader() (io.ReadCloser, error)
	readerAt() (io.ReaderAt, int64, error)
}

type diskBacking struct{ path string }

func (d diskBacking) reader() (io.ReadCloser, error) { return os.Open(d.path) }

func (d diskBacking) readerAt() (io.ReaderAt, int64, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

type memBacking struct{ data []byte }

func (m memBacking) reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m memBacking) readerAt() (io.ReaderAt, int64, error) {
	return bytes.NewReader(m.data), int64(len(m.data)), nil
}

// Archive opens a tar, tar.gz, or zip file and lists its entries as
// members. An archive indexes its whole member list when it is opened,
// since tar streams are not seekable: Open on a tar-backed Archive
// re-reads the underlying bytes from the start to locate the requested
// member.
type Archive struct {
	format  ArchiveFormat
	backing backing

	zipCloser io.Closer
	members   []Member
	zipIdx    map[string]*zip.File

	displayPath string
}

// OpenArchive opens path on disk as format and indexes its members. For zip
// archives the central directory is read once; for tar/tar.gz the file is
// scanned sequentially here to build the member list, then re-scanned on
// each Open call.
func OpenArchive(path string, format ArchiveFormat) (*Archive, error) {
	return openArchive(diskBacking{path: path}, format, path)
}

// OpenArchiveBytes indexes an archive held entirely in memory: a member of
// an outer archive whose name also matches an archive extension, read in
// full so it can be recursed into without needing a standalone file on
// disk. pseudoPath is the already-built pseudo-path of the member this
// archive came from, used as the prefix for its own members' pseudo-paths.
func OpenArchiveBytes(data []byte, format ArchiveFormat, pseudoPath string) (*Archive, error) {
	return openArchive(memBacking{data: data}, format, pseudoPath)
}

func openArchive(b backing, format ArchiveFormat, displayPath string) (*Archive, error) {
	a := &Archive{format: format, backing: b, displayPath: displayPath}
	switch format {
	case FormatZip:
		ra, size, err := b.readerAt()
		if err != nil {
			return nil, fmt.Errorf("source: open zip %s: %w", displayPath, err)
		}
		if c, ok := ra.(io.Closer); ok {
			a.zipCloser = c
		}
		zr, err := zip.NewReader(ra, size)
		if err != nil {
			if a.zipCloser != nil {
				a.zipCloser.Close()
			}
			return nil, fmt.Errorf("source: open zip %s: %w", displayPath, err)
		}
		a.zipIdx = make(map[string]*zip.File, len(zr.File))
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			a.zipIdx[f.Name] = f
			a.members = append(a.members, Member{
				Path:       f.Name,
				PseudoPath: normalizeSlashes(filepath.Join(displayPath, f.Name)),
				ModTime:    f.Modified.Truncate(time.Second),
				Size:       int64(f.UncompressedSize64),
			})
		}
	case FormatTar, FormatTarGz:
		members, err := scanTar(b, format, displayPath)
		if err != nil {
			return nil, err
		}
		a.members = members
	default:
		return nil, fmt.Errorf("source: unsupported archive format %q", format)
	}
	return a, nil
}

func (a *Archive) Kind() Kind   { return KindArchive }
func (a *Archive) Path() string { return a.displayPath }

func (a *Archive) Members() ([]Member, error) { return a.members, nil }

func (a *Archive) Open(m Member) (io.ReadCloser, error) {
	switch a.format {
	case FormatZip:
		f, ok := a.zipIdx[m.Path]
		if !ok {
			return nil, fmt.Errorf("source: zip member %q not found", m.Path)
		}
		return f.Open()
	case FormatTar, FormatTarGz:
		return openTarMember(a.backing, a.format, a.displayPath, m.Path)
	default:
		return nil, fmt.Errorf("source: unsupported archive format %q", a.format)
	}
}

func (a *Archive) Close() error {
	if a.zipCloser != nil {
		return a.zipCloser.Close()
	}
	return nil
}

func tarReader(b backing, format ArchiveFormat) (io.ReadCloser, *tar.Reader, error) {
	rc, err := b.reader()
	if err != nil {
		return nil, nil, err
	}
	if format == FormatTarGz {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, nil, err
		}
		return &tarGzCloser{rc: rc, gz: gz}, tar.NewReader(gz), nil
	}
	return rc, tar.NewReader(rc), nil
}

type tarGzCloser struct {
	rc io.ReadCloser
	gz *gzip.Reader
}

func (c *tarGzCloser) Read(p []byte) (int, error) { return c.gz.Read(p) }
func (c *tarGzCloser) Close() error {
	c.gz.Close()
	return c.rc.Close()
}

func scanTar(b backing, format ArchiveFormat, displayPath string) ([]Member, error) {
	rc, tr, err := tarReader(b, format)
	if err != nil {
		return nil, fmt.Errorf("source: open tar %s: %w", displayPath, err)
	}
	defer rc.Close()

	var members []Member
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source: read tar %s: %w", displayPath, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		members = append(members, Member{
			Path:       hdr.Name,
			PseudoPath: normalizeSlashes(filepath.Join(displayPath, hdr.Name)),
			ModTime:    hdr.ModTime.Truncate(time.Second),
			Size:       hdr.Size,
		})
	}
	return members, nil
}

func openTarMember(b backing, format ArchiveFormat, displayPath, name string) (io.ReadCloser, error) {
	rc, tr, err := tarReader(b, format)
	if err != nil {
		return nil, err
	}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			rc.Close()
			return nil, fmt.Errorf("source: tar member %q not found in %s", name, displayPath)
		}
		if err != nil {
			rc.Close()
			return nil, err
		}
		if hdr.Name == name {
			return &tarMemberReader{rc: rc, tr: tr}, nil
		}
	}
}

// tarMemberReader lets the caller stream one member's bytes while keeping
// the underlying archive stream open until Close.
type tarMemberReader struct {
	rc io.Closer
	tr *tar.Reader
}

func (r *tarMemberReader) Read(p []byte) (int, error) { return r.tr.Read(p) }
func (r *tarMemberReader) Close() error                { return r.rc.Close() }
