// Package source abstracts the places a log can come from: local files,
// directories, and archives, plus the CloudWatch, Kubernetes, Docker, and
// SSH backends, all behind one interface so the scanner and matcher stay
// backend-agnostic.
package source

import (
	"io"
	"time"
)

// Kind identifies which backend produced a LogSource.
type Kind string

const (
	KindLog        Kind = "LOG"
	KindDir        Kind = "DIR"
	KindArchive    Kind = "ARCHIVE"
	KindCloudWatch Kind = "CLOUDWATCH"
	KindK8s        Kind = "K8S"
	KindDocker     Kind = "DOCKER"
	KindSSH        Kind = "SSH"
)

// Member is one readable log unit inside a LogSource: a bare file, a
// directory entry, an archive member, or a synthetic unit the enrichment
// backends fabricate (a log stream, a pod/container, a remote file).
type Member struct {
	// Path identifies the member within its source: relative for
	// DIR/ARCHIVE members, a backend-specific identifier for the
	// enrichment backends.
	Path string
	// PseudoPath is the full display path, including the source's own
	// path prefix.
	PseudoPath string
	ModTime    time.Time
	Size       int64
	// Fields holds the named captures the path-filter regex produced
	// against the member's full path (the source's own path joined with
	// Path), used for destination-path prefixing.
	Fields map[string]string
}

// LogSource is satisfied by every backend. Members lists the readable
// units once; Open streams one of them.
type LogSource interface {
	Kind() Kind
	// Path is the pseudo-path base for this source: the archive file
	// path, the scanned directory, or empty for a bare LOG source.
	Path() string
	Members() ([]Member, error)
	Open(m Member) (io.ReadCloser, error)
}

// TimeRange returns the earliest/latest modification time across members.
func TimeRange(members []Member) (earliest, latest time.Time) {
	for i, m := range members {
		t := m.ModTime.Truncate(time.Second)
		if i == 0 {
			earliest, latest = t, t
			continue
		}
		if t.Before(earliest) {
			earliest = t
		}
		if t.After(latest) {
			latest = t
		}
	}
	return earliest, latest
}
