package scanner

import (
	"io"
	"path/filepath"

	"github.com/regulogio/regulog/pkg/source"
)

// filtered wraps any source.LogSource, keeping only the members whose path
// (joined under the source's own path) matches the scanner's path filter,
// and attaching the resulting named-group fields. Members that fail the
// path filter but whose name ends in a recognized archive extension are
// not dropped: filterMembers recurses into them as nested archives (a
// tar/zip inside a tar/zip) via scanNestedArchive, appending whatever they
// yield directly onto res.
type filtered struct {
	inner   source.LogSource
	members []source.Member
}

func (s *Scanner) filterMembers(inner source.LogSource, res *Result) (*filtered, error) {
	all, err := inner.Members()
	if err != nil {
		return nil, err
	}
	f := &filtered{inner: inner}
	seen := make(map[string]bool)
	for _, m := range all {
		if seen[m.Path] {
			continue
		}
		full := filepath.Join(inner.Path(), m.Path)
		fields := s.checkPathFilter(full)
		if fields != nil {
			seen[m.Path] = true
			m.Fields = fields
			f.members = append(f.members, m)
			continue
		}
		if s.archiveRegex.MatchString(m.Path) {
			seen[m.Path] = true
			if err := s.scanNestedArchive(inner, m, res); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// scanNestedArchive reads member m of parent fully into memory and indexes
// it as its own Archive, then runs the same filter-or-recurse logic
// against it, attaching the nested source under its pseudo-path so files
// inside nested archives stay addressable.
func (s *Scanner) scanNestedArchive(parent source.LogSource, m source.Member, res *Result) error {
	format, ok := source.DetectFormat(m.Path)
	if !ok {
		return nil
	}
	rc, err := parent.Open(m)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return err
	}
	nested, err := source.OpenArchiveBytes(data, format, m.PseudoPath)
	if err != nil {
		return err
	}
	return s.scanArchiveSource(nested, res)
}

func (f *filtered) Kind() source.Kind                           { return f.inner.Kind() }
func (f *filtered) Path() string                                { return f.inner.Path() }
func (f *filtered) Members() ([]source.Member, error)           { return f.members, nil }
func (f *filtered) Open(m source.Member) (io.ReadCloser, error) { return f.inner.Open(m) }

func (f *filtered) Count() int { return len(f.members) }
