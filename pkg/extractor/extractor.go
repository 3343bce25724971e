// Package extractor implements the extract/reorder subsystem: computing a
// destination path per source member, optionally joining log4j-style
// numbered rotation files back into one stream and reducing common
// leading directories, then copying bytes at the right offset while
// preserving modification times.
package extractor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/regulogio/regulog/pkg/source"
)

// Options mirrors the keyword arguments of LogSource.extract.
type Options struct {
	OutputDir      string
	KeepSourceDirs bool
	JoinLog4j      bool
	ReduceDirs     bool
}

// Entry is one planned copy operation: read Member from Source, write at
// Offset into DestPath.
type Entry struct {
	Source   source.LogSource
	Member   source.Member
	DestPath string
	Offset   int64
}

var sanitizeChars = regexp.MustCompile(`["\\/:*?<>|]`)

type planned struct {
	member  source.Member
	relPath string
}

// Plan computes destination paths and offsets for every member of src,
// matching setDestinationPaths followed by reduceDestinationPaths.
func Plan(src source.LogSource, opts Options) ([]Entry, error) {
	members, err := src.Members()
	if err != nil {
		return nil, err
	}

	base, err := destinationBase(src, opts)
	if err != nil {
		return nil, err
	}

	// Groups members by (destBase, destRel) pair: destBase is the
	// field-prefix subdirectory, destRel the relative path inside it.
	// Both joinLog4j and reduceDirs operate within one destBase group.
	byBase := make(map[string][]planned)
	var baseOrder []string
	for _, m := range members {
		destBase := filepath.Clean(filepath.Join(base, fieldPrefix(m.Fields)))
		var rel string
		if src.Kind() == source.KindLog {
			rel = filepath.Base(m.Path)
		} else {
			rel = filepath.Clean(m.Path)
		}
		if _, ok := byBase[destBase]; !ok {
			baseOrder = append(baseOrder, destBase)
		}
		byBase[destBase] = append(byBase[destBase], planned{member: m, relPath: rel})
	}

	var entries []Entry
	for _, destBase := range baseOrder {
		group := byBase[destBase]
		relGroups, relOrder := groupByRelPath(group)

		if opts.JoinLog4j {
			relGroups, relOrder = joinLog4j(relGroups, relOrder)
		}
		if opts.ReduceDirs {
			relOrder = reduceDirs(relGroups, relOrder)
		}

		for _, rel := range relOrder {
			var offset int64
			for _, p := range relGroups[rel] {
				entries = append(entries, Entry{
					Source:   src,
					Member:   p.member,
					DestPath: filepath.Join(destBase, rel),
					Offset:   offset,
				})
				offset += p.member.Size
			}
		}
	}
	return entries, nil
}

func groupByRelPath(group []planned) (map[string][]planned, []string) {
	m := make(map[string][]planned)
	var order []string
	for _, p := range group {
		if _, ok := m[p.relPath]; !ok {
			order = append(order, p.relPath)
		}
		m[p.relPath] = append(m[p.relPath], p)
	}
	return m, order
}

// joinLog4j merges "dest", "dest.1", "dest.2", ... entries into a single
// "dest" key, oldest (highest-numbered) file first, matching
// reduceDestinationPaths' joinlog4j branch.
func joinLog4j(groups map[string][]planned, order []string) (map[string][]planned, []string) {
	merged := make(map[string][]planned, len(groups))
	var mergedOrder []string
	consumed := make(map[string]bool)

	for _, dest := range order {
		if consumed[dest] {
			continue
		}
		if _, ok := groups[dest]; !ok {
			continue
		}
		combined := append([]planned(nil), groups[dest]...)
		for i := 1; ; i++ {
			key := dest + "." + strconv.Itoa(i)
			v, ok := groups[key]
			if !ok {
				break
			}
			combined = append(combined, v...)
			consumed[key] = true
		}
		// Reverse: highest-numbered (oldest rotation) first, unsuffixed
		// (newest) file last, so sequential offsets read oldest-to-newest.
		for l, r := 0, len(combined)-1; l < r; l, r = l+1, r-1 {
			combined[l], combined[r] = combined[r], combined[l]
		}
		merged[dest] = combined
		mergedOrder = append(mergedOrder, dest)
		consumed[dest] = true
	}
	return merged, mergedOrder
}

// reduceDirs strips the longest common set of leading directory
// components from every relative path in the group, stopping just
// before a strip would make two destinations collide, matching
// reduceDestinationPaths' reducedirs branch.
func reduceDirs(groups map[string][]planned, order []string) []string {
	current := append([]string(nil), order...)
	for {
		next := make([]string, len(current))
		changed := false
		seen := make(map[string]int, len(current))
		for i, p := range current {
			cropped := cropFirstComponent(p)
			next[i] = cropped
			seen[cropped]++
			if cropped != p {
				changed = true
			}
		}
		if !changed {
			break
		}
		collides := false
		for _, n := range seen {
			if n > 1 {
				collides = true
				break
			}
		}
		if collides {
			break
		}
		current = next
	}

	if len(current) != len(order) {
		return order
	}
	newGroups := make(map[string][]planned, len(groups))
	for i, oldKey := range order {
		newGroups[current[i]] = groups[oldKey]
	}
	for k := range groups {
		delete(groups, k)
	}
	for k, v := range newGroups {
		groups[k] = v
	}
	return current
}

func cropFirstComponent(p string) string {
	parts := strings.SplitN(filepath.ToSlash(p), "/", 2)
	if len(parts) < 2 {
		return p
	}
	return parts[1]
}

// destinationBase computes the per-source output subdirectory, handling
// the keepsourcedirs "-000", "-001", ... suffix search.
func destinationBase(src source.LogSource, opts Options) (string, error) {
	if !opts.KeepSourceDirs {
		return opts.OutputDir, nil
	}

	var mdir string
	if src.Kind() != source.KindLog {
		mdir = filepath.Base(src.Path()) + "-"
	}

	for i := 0; ; i++ {
		dir := filepath.Join(opts.OutputDir, fmt.Sprintf("%s%03d", mdir, i))
		if _, err := os.Lstat(dir); os.IsNotExist(err) {
			return dir, nil
		}
	}
}

func fieldPrefix(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		v := fields[k]
		if v == "" {
			continue
		}
		parts = append(parts, sanitizeChars.ReplaceAllString(v, "_"))
	}
	return filepath.Join(parts...)
}

// Execute performs every planned copy, creating destination directories
// as needed and preserving the later of the existing destination mtime
// (for joined append operations) or the source member's mtime.
func Execute(entries []Entry) error {
	for _, e := range entries {
		if err := os.MkdirAll(filepath.Dir(e.DestPath), 0o755); err != nil {
			return fmt.Errorf("extractor: mkdir %s: %w", filepath.Dir(e.DestPath), err)
		}

		existing, statErr := os.Stat(e.DestPath)
		flags := os.O_WRONLY | os.O_CREATE
		if statErr != nil {
			flags |= os.O_TRUNC
		}
		dst, err := os.OpenFile(e.DestPath, flags, 0o644)
		if err != nil {
			return fmt.Errorf("extractor: open destination %s: %w", e.DestPath, err)
		}

		if _, err := dst.Seek(e.Offset, io.SeekStart); err != nil {
			dst.Close()
			return fmt.Errorf("extractor: seek %s: %w", e.DestPath, err)
		}

		src, err := e.Source.Open(e.Member)
		if err != nil {
			dst.Close()
			return fmt.Errorf("extractor: open source member %s: %w", e.Member.Path, err)
		}
		_, copyErr := io.Copy(dst, src)
		src.Close()
		closeErr := dst.Close()
		if copyErr != nil {
			return fmt.Errorf("extractor: copy %s: %w", e.Member.Path, copyErr)
		}
		if closeErr != nil {
			return fmt.Errorf("extractor: close %s: %w", e.DestPath, closeErr)
		}

		mtime := e.Member.ModTime
		if statErr == nil && existing.ModTime().After(mtime) {
			mtime = existing.ModTime()
		}
		if !mtime.IsZero() {
			if err := os.Chtimes(e.DestPath, mtime, mtime); err != nil {
				return fmt.Errorf("extractor: set mtime %s: %w", e.DestPath, err)
			}
		}
	}
	return nil
}
