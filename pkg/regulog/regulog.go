// Package regulog wires the leaf packages — scanner, matcher, store,
// export, extractor, hooks — behind the operations the CLI exposes:
// overview, search, extract.
package regulog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/regulogio/regulog/pkg/event"
	"github.com/regulogio/regulog/pkg/eventtype"
	"github.com/regulogio/regulog/pkg/export"
	"github.com/regulogio/regulog/pkg/extractor"
	"github.com/regulogio/regulog/pkg/hooks"
	"github.com/regulogio/regulog/pkg/matcher"
	"github.com/regulogio/regulog/pkg/scanner"
	"github.com/regulogio/regulog/pkg/source"
	"github.com/regulogio/regulog/pkg/store"
)

// StoreAdapter exposes a *store.Store as hooks.StoreAPI, translating the
// Lua-facing Lookup call into the store's native GetOptions.
type StoreAdapter struct {
	Store *store.Store
}

func (a StoreAdapter) Lookup(name string, fields map[string]string, beforeEvent *event.Event, beforeTime *time.Time, limit int) ([]*event.Event, error) {
	opts := store.GetOptions{Name: name, Fields: fields, Limit: limit}
	switch {
	case beforeEvent != nil:
		b := store.BeforeEvent(beforeEvent)
		opts.Before = &b
	case beforeTime != nil:
		b := store.BeforeTimestamp(*beforeTime)
		opts.Before = &b
	}
	return a.Store.GetEvents(opts)
}

// SourceConfig selects which pkg/source backend a run reads from. The zero
// value (Kind "" or "local") scans PathFilter/ArchiveExtensions-matched
// files and archives under the given paths; any other Kind ignores paths
// (except SSHPaths) and builds the named backend instead, so that
// --source-kind cloudwatch|k8s|docker|ssh reaches a real, non-local
// LogSource rather than only ever exercising the local scanner.
type SourceConfig struct {
	Kind string

	CloudWatchLogGroup string
	CloudWatchRegion   string
	CloudWatchProfile  string

	K8sKubeconfig    string
	K8sNamespace     string
	K8sLabelSelector string
	K8sContainer     string

	DockerContainers []string

	SSHAddr           string
	SSHUser           string
	SSHPrivateKeyPath string
	SSHPaths          []string
}

// buildSources resolves sc into a scanner.Result: either the output of a
// local path scan, or a single-source result wrapping the selected remote
// backend. onError is only consulted by the local scanner, matching its
// skip-and-continue handling of an unreadable root.
func buildSources(paths []string, pathFilter, archiveExtensions string, sc SourceConfig, onError func(path string, err error)) (*scanner.Result, error) {
	switch sc.Kind {
	case "", "local":
		s, err := scanner.New(pathFilter, archiveExtensions)
		if err != nil {
			return nil, err
		}
		return s.Scan(paths, onError)
	case "cloudwatch":
		src, err := source.NewCloudWatch(context.Background(), sc.CloudWatchLogGroup, sc.CloudWatchRegion, sc.CloudWatchProfile)
		if err != nil {
			return nil, err
		}
		return &scanner.Result{Sources: []source.LogSource{src}}, nil
	case "k8s":
		src, err := source.NewK8s(sc.K8sKubeconfig, sc.K8sNamespace, sc.K8sLabelSelector, sc.K8sContainer)
		if err != nil {
			return nil, err
		}
		return &scanner.Result{Sources: []source.LogSource{src}}, nil
	case "docker":
		src, err := source.NewDocker(sc.DockerContainers)
		if err != nil {
			return nil, err
		}
		return &scanner.Result{Sources: []source.LogSource{src}}, nil
	case "ssh":
		src, err := source.NewSSH(sc.SSHAddr, sc.SSHUser, sc.SSHPrivateKeyPath, sc.SSHPaths)
		if err != nil {
			return nil, err
		}
		return &scanner.Result{Sources: []source.LogSource{src}}, nil
	default:
		return nil, fmt.Errorf("regulog: unknown source kind %q", sc.Kind)
	}
}

// Options configures a Search/Overview/Extract run, matching the keyword
// arguments the CLI forwards from its persistent and per-command flags.
type Options struct {
	PathFilter        string
	ArchiveExtensions string
	Chronological     bool
	OutputDirectory   string
	Source            SourceConfig

	// OnEvent is called as each event is finalized in streaming mode
	// (never called for events deferred to chronological finalization
	// until Wrapup runs).
	OnEvent func(ev *event.Event)
	// OnHookError surfaces a hook failure without aborting the scan.
	OnHookError func(eventTypeName string, err error)
	// OnSourceError surfaces an input-access error for one source/member
	// without aborting the scan.
	OnSourceError func(path string, err error)
	// OnAdvancement reports periodic scan statistics on a 10000-line/30s gate.
	OnAdvancement func(stats matcher.Stats, currentPath string)
}

// RunID returns a fresh random UUID string for use as a per-invocation
// correlation id. Nothing in this package attaches it to statistics or to
// output paths.
func RunID() string { return uuid.NewString() }

// SearchResult bundles the populated store and final statistics.
type SearchResult struct {
	Store *store.Store
	Stats matcher.Stats
}

// Search scans paths, feeds every matched file through the matcher, and
// returns the resulting store.
func Search(paths []string, registry *eventtype.Registry, opts Options) (*SearchResult, error) {
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("regulog: invalid event type registry: %w", err)
	}

	res, err := buildSources(paths, opts.PathFilter, opts.ArchiveExtensions, opts.Source, func(p string, err error) {
		reportSourceError(opts, p, err)
	})
	if err != nil {
		return nil, err
	}

	st := store.New(registry.Names())
	hk := &hooks.Context{
		Store:           StoreAdapter{Store: st},
		OutputDirectory: opts.OutputDirectory,
		Chronological:   opts.Chronological,
	}
	mc := matcher.New(registry, st, hk, opts.Chronological)
	mc.OnHookError = opts.OnHookError
	mc.Advancement = opts.OnAdvancement

	for _, src := range res.Sources {
		members, err := src.Members()
		if err != nil {
			reportSourceError(opts, src.Path(), err)
			continue
		}
		for _, m := range members {
			if err := searchMember(mc, src, m, opts); err != nil {
				reportSourceError(opts, m.Path, err)
			}
		}
	}

	mc.Wrapup()
	if opts.OnEvent != nil && opts.Chronological {
		for _, ev := range st.Sequence() {
			opts.OnEvent(ev)
		}
	}

	return &SearchResult{Store: st, Stats: mc.Stats()}, nil
}

func reportSourceError(opts Options, path string, err error) {
	if opts.OnSourceError != nil {
		opts.OnSourceError(path, err)
	}
}

func searchMember(mc *matcher.Context, src source.LogSource, m source.Member, opts Options) error {
	if !mc.OpenSource(m.PseudoPath, m.ModTime) {
		return nil
	}

	r, err := src.Open(m)
	if err != nil {
		return fmt.Errorf("regulog: open %s: %w", m.PseudoPath, err)
	}
	defer r.Close()

	scanLines := bufio.NewScanner(r)
	scanLines.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanLines.Scan() {
		completed := mc.CheckLine(scanLines.Text())
		emitStreaming(completed, opts)
	}
	if err := scanLines.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("regulog: read %s: %w", m.PseudoPath, err)
	}

	completed := mc.Finish()
	emitStreaming(completed, opts)
	return nil
}

func emitStreaming(completed []*event.Event, opts Options) {
	if opts.Chronological || opts.OnEvent == nil {
		return
	}
	for _, ev := range completed {
		opts.OnEvent(ev)
	}
}

// Export writes the populated store's per-event-type XML/CSV files, a
// thin pass-through to pkg/export kept here so the CLI has one call site
// per operation.
func Export(res *SearchResult, outputDir string) error {
	return export.Save(res.Store, outputDir)
}

// Overview scans paths without matching and summarizes what was found per
// source: member count and earliest/latest modification time.
type SourceSummary struct {
	Kind        string
	Path        string
	MemberCount int
	Earliest    time.Time
	Latest      time.Time
}

func Overview(paths []string, pathFilter, archiveExtensions string, sc SourceConfig) ([]SourceSummary, error) {
	res, err := buildSources(paths, pathFilter, archiveExtensions, sc, nil)
	if err != nil {
		return nil, err
	}

	summaries := make([]SourceSummary, 0, len(res.Sources))
	for _, src := range res.Sources {
		members, err := src.Members()
		if err != nil {
			return nil, err
		}
		earliest, latest := source.TimeRange(members)
		summaries = append(summaries, SourceSummary{
			Kind:        string(src.Kind()),
			Path:        src.Path(),
			MemberCount: len(members),
			Earliest:    earliest,
			Latest:      latest,
		})
	}
	return summaries, nil
}

// Extract scans paths and copies matched members into outdir.
func Extract(paths []string, pathFilter, archiveExtensions string, sc SourceConfig, opts extractor.Options) ([]extractor.Entry, error) {
	res, err := buildSources(paths, pathFilter, archiveExtensions, sc, nil)
	if err != nil {
		return nil, err
	}

	var all []extractor.Entry
	for _, src := range res.Sources {
		entries, err := extractor.Plan(src, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	if err := extractor.Execute(all); err != nil {
		return nil, err
	}
	return all, nil
}

// SaveEventType writes a single event type's definition into an event-type
// XML file at path, creating or merging with an existing registry file,
// matching the CLI's save-event-type command.
func SaveEventType(path string, et *eventtype.EventType) error {
	reg := eventtype.NewRegistry()
	if existing, err := eventtype.LoadRegistryXMLFiles([]string{path}); err == nil {
		reg = existing
	}
	reg.Add(et)
	return eventtype.WriteRegistryXML(reg, path)
}
