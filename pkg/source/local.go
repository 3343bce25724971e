package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalFile wraps a single bare log file given directly on the command
// line.
type LocalFile struct {
	path string
}

func NewLocalFile(path string) *LocalFile { return &LocalFile{path: path} }

func (s *LocalFile) Kind() Kind   { return KindLog }
func (s *LocalFile) Path() string { return "" }

func (s *LocalFile) Members() ([]Member, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("source: stat %s: %w", s.path, err)
	}
	return []Member{{
		Path:       s.path,
		PseudoPath: filepath.ToSlash(s.path),
		ModTime:    fi.ModTime(),
		Size:       fi.Size(),
	}}, nil
}

func (s *LocalFile) Open(m Member) (io.ReadCloser, error) {
	return os.Open(m.Path)
}

// LocalFiles gathers bare log files given directly as scan paths into a
// single source (kind LOG, path "").
type LocalFiles struct {
	members []Member
}

func NewLocalFiles() *LocalFiles { return &LocalFiles{} }

func (s *LocalFiles) Kind() Kind   { return KindLog }
func (s *LocalFiles) Path() string { return "" }

// Add registers absPath as a member with its path-filter fields.
func (s *LocalFiles) Add(absPath string, fields map[string]string) error {
	fi, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("source: stat %s: %w", absPath, err)
	}
	s.members = append(s.members, Member{
		Path:       absPath,
		PseudoPath: filepath.ToSlash(absPath),
		ModTime:    fi.ModTime(),
		Size:       fi.Size(),
		Fields:     fields,
	})
	return nil
}

func (s *LocalFiles) Members() ([]Member, error) { return s.members, nil }
func (s *LocalFiles) Count() int                 { return len(s.members) }

func (s *LocalFiles) Open(m Member) (io.ReadCloser, error) {
	return os.Open(m.Path)
}

// LocalDir is a directory-tree source. It does not walk the tree itself:
// the caller walks it and supplies already-filtered member paths via
// AddCandidate, since path filtering is pkg/scanner's job.
type LocalDir struct {
	root    string
	members []Member
}

func NewLocalDir(root string) *LocalDir {
	return &LocalDir{root: root}
}

func (s *LocalDir) Path() string { return s.root }
func (s *LocalDir) Kind() Kind   { return KindDir }

// AddCandidate registers a file under root as a member, with its
// path-filter fields already extracted by the scanner.
func (s *LocalDir) AddCandidate(absPath string, fields map[string]string) error {
	fi, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("source: stat %s: %w", absPath, err)
	}
	rel, err := filepath.Rel(s.root, absPath)
	if err != nil {
		return fmt.Errorf("source: relpath %s under %s: %w", absPath, s.root, err)
	}
	s.members = append(s.members, Member{
		Path:       rel,
		PseudoPath: pseudoPath(s.root, rel),
		ModTime:    fi.ModTime(),
		Size:       fi.Size(),
		Fields:     fields,
	})
	return nil
}

func (s *LocalDir) Members() ([]Member, error) { return s.members, nil }

func (s *LocalDir) Open(m Member) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, m.Path))
}

func pseudoPath(base, rel string) string {
	return filepath.ToSlash(filepath.Join(base, rel))
}

// normalizeSlashes replaces backslashes with forward slashes so display
// paths are stable across platforms.
func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
