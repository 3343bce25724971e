// Package scanner implements the recursive path scan that turns a
// semicolon-separated list of files/directories into the LogSource
// objects pkg/matcher consumes.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/regulogio/regulog/pkg/source"
)

// Scanner walks the configured paths, applying a path-filter regex to
// decide which files become log members and an archive-extension regex
// to decide which files are recursed into as tar/tar.gz/zip archives.
type Scanner struct {
	pathFilter   *regexp.Regexp
	archiveRegex *regexp.Regexp
}

// New compiles the path filter (matched case-insensitively against the
// slash-normalized path, as in checkPathFilter) and the archive extension
// list (semicolon-separated, e.g. ".tar;.tar.gz;.zip").
func New(pathFilter string, archiveExtensions string) (*Scanner, error) {
	pf, err := regexp.Compile("(?i)" + pathFilter)
	if err != nil {
		return nil, fmt.Errorf("scanner: bad path filter %q: %w", pathFilter, err)
	}
	exts := strings.Split(archiveExtensions, ";")
	for i, e := range exts {
		exts[i] = regexp.QuoteMeta(e)
	}
	ar, err := regexp.Compile("(?i)(" + strings.Join(exts, "|") + ")$")
	if err != nil {
		return nil, fmt.Errorf("scanner: bad archive extensions %q: %w", archiveExtensions, err)
	}
	return &Scanner{pathFilter: pf, archiveRegex: ar}, nil
}

// checkPathFilter returns nil for no match, or a (possibly empty) map of
// named-group captures when path matches.
func (s *Scanner) checkPathFilter(path string) map[string]string {
	norm := strings.ReplaceAll(path, "\\", "/")
	m := s.pathFilter.FindStringSubmatch(norm)
	if m == nil {
		return nil
	}
	fields := make(map[string]string)
	for i, name := range s.pathFilter.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		fields[name] = m[i]
	}
	return fields
}

// Result is the outcome of a scan: the LogSource objects found, each
// holding one or more members.
type Result struct {
	Sources []source.LogSource
}

// Scan walks every entry in paths (already split by the caller), adding a
// LocalDir source per scanned directory with matches, one LocalFiles
// source gathering every bare log file given directly, and a filtered
// Archive source per recognized archive file (including archives found
// while walking a directory, and archives nested inside those). A root
// that cannot be opened is reported through onError, if given, and
// skipped rather than aborting the rest of the scan.
func (s *Scanner) Scan(paths []string, onError func(path string, err error)) (*Result, error) {
	res := &Result{}
	bare := source.NewLocalFiles()

	for _, p := range paths {
		if err := s.scanPath(p, res, bare); err != nil {
			if onError != nil {
				onError(p, err)
			}
			continue
		}
	}

	if bare.Count() > 0 {
		res.Sources = append(res.Sources, bare)
	}
	return res, nil
}

func (s *Scanner) scanPath(path string, res *Result, bare *source.LocalFiles) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("scanner: stat %s: %w", path, err)
	}

	if info.IsDir() {
		dir := source.NewLocalDir(path)
		var found bool
		err := filepath.Walk(path, func(fullpath string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			fields := s.checkPathFilter(fullpath)
			if fields != nil {
				if err := dir.AddCandidate(fullpath, fields); err != nil {
					return err
				}
				found = true
				return nil
			}
			if s.archiveRegex.MatchString(fi.Name()) {
				return s.scanArchiveFile(fullpath, res)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if found {
			res.Sources = append(res.Sources, dir)
		}
		return nil
	}

	fields := s.checkPathFilter(path)
	if fields != nil {
		if err := bare.Add(path, fields); err != nil {
			return err
		}
		return nil
	}

	if s.archiveRegex.MatchString(path) {
		return s.scanArchiveFile(path, res)
	}
	return nil
}

func (s *Scanner) scanArchiveFile(path string, res *Result) error {
	format, ok := source.DetectFormat(path)
	if !ok {
		return nil
	}
	ar, err := source.OpenArchive(path, format)
	if err != nil {
		return err
	}
	return s.scanArchiveSource(ar, res)
}

// scanArchiveSource filters ar's members (recursing into any that are
// themselves archives, via filterMembers) and, if anything survived,
// appends the filtered view to res.
func (s *Scanner) scanArchiveSource(ar source.LogSource, res *Result) error {
	f, err := s.filterMembers(ar, res)
	if err != nil {
		return err
	}
	if f.Count() > 0 {
		res.Sources = append(res.Sources, f)
	}
	return nil
}
