// Package matcher implements the streaming, multi-pattern, multi-line log
// matcher: a sliding line window plus an "unfinished" pending-event map
// keyed by event-type name, deferring finalization until a closing
// timestamp is found or the source is exhausted.
package matcher

import (
	"time"

	"github.com/regulogio/regulog/pkg/event"
	"github.com/regulogio/regulog/pkg/eventtype"
	"github.com/regulogio/regulog/pkg/hooks"
	"github.com/regulogio/regulog/pkg/store"
)

const (
	lineWindowSize      = 100
	statsLineInterval   = 10000
	statsMinInterval    = 30 * time.Second
)

// Stats tracks periodic advancement counters for progress reporting.
type Stats struct {
	ProcessedLines int
	FoundEvents    int
}

// Context runs the matcher across one or more source files sharing a
// single EventStore and hook Context.
type Context struct {
	registry      *eventtype.Registry
	store         *store.Store
	hooks         *hooks.Context
	chronological bool

	// OnHookError is called instead of aborting the scan when an
	// exec_on_match/init/wrapup hook fails: reported and skipped, never
	// fatal.
	OnHookError func(eventTypeName string, err error)
	// Advancement is called at most every statsLineInterval processed
	// lines, no more than once per statsMinInterval.
	Advancement func(stats Stats, currentPath string)

	stats          Stats
	lastStatsAt    time.Time
	lastStatsLines int

	searchFilePath   string
	searchFileTime   time.Time
	searchEventTypes []*eventtype.EventType

	lines           []string
	unfinished      map[string]*event.Event
	eventLinesCount int
	linenum         int
}

// New builds a matcher context and runs every event type's exec_on_init
// hook once.
func New(registry *eventtype.Registry, st *store.Store, hk *hooks.Context, chronological bool) *Context {
	c := &Context{
		registry:      registry,
		store:         st,
		hooks:         hk,
		chronological: chronological,
		lastStatsAt:   time.Now(),
	}
	for _, et := range registry.List() {
		if et.ExecOnInit == "" {
			continue
		}
		if err := hk.RunInit(et.ExecOnInit); err != nil && c.OnHookError != nil {
			c.OnHookError(et.Name, err)
		}
	}
	return c
}

// OpenSource resets per-file state for filePath/fileTime and reports
// whether any registered event type's filename regex matches.
func (c *Context) OpenSource(filePath string, fileTime time.Time) bool {
	c.searchFilePath = filePath
	c.searchFileTime = fileTime
	c.searchEventTypes = nil
	for _, et := range c.registry.List() {
		if et.MatchFilename(filePath) {
			c.searchEventTypes = append(c.searchEventTypes, et)
		}
	}
	c.lines = nil
	c.unfinished = make(map[string]*event.Event)
	c.linenum = 0
	return len(c.searchEventTypes) > 0
}

func (c *Context) pushLine(line string) {
	c.lines = append([]string{line}, c.lines...)
	if len(c.lines) > lineWindowSize {
		c.lines = c.lines[:lineWindowSize]
	}
}

// getMultiline rebuilds the most recent num lines, oldest first, joined
// by newlines.
func (c *Context) getMultiline(num int) string {
	if num > len(c.lines) {
		num = len(c.lines)
	}
	var res string
	for i := 0; i < num; i++ {
		if i > 0 {
			res = c.lines[i] + "\n" + res
		} else {
			res = c.lines[i]
		}
	}
	return res
}

// CheckLine processes one line (without trailing newline) and returns any
// events completed as a result.
func (c *Context) CheckLine(line string) []*event.Event {
	return c.checkLine(&line)
}

// Finish signals end of source, flushing any still-pending unfinished
// events.
func (c *Context) Finish() []*event.Event {
	return c.checkLine(nil)
}

func (c *Context) checkLine(line *string) []*event.Event {
	var completed []*event.Event

	if len(c.unfinished) > 0 {
		for _, et := range c.registry.List() {
			ev, pending := c.unfinished[et.Name]
			if !pending {
				continue
			}
			closes := line == nil
			if !closes {
				closes = et.SearchTimestamp(*line) != nil
			}
			if !closes {
				continue
			}
			c.storeNewEvent(ev, c.eventLinesCount)
			delete(c.unfinished, et.Name)
			completed = append(completed, ev)
		}
		c.eventLinesCount++
	}

	if line != nil {
		c.pushLine(*line)
		c.linenum++

		for _, et := range c.searchEventTypes {
			if _, pending := c.unfinished[et.Name]; pending {
				continue
			}

			multiline := *line
			if et.MultilineCount != 1 {
				multiline = c.getMultiline(et.MultilineCount)
			}

			m := et.SearchText(multiline)
			if m == nil || len(multiline)-m.End() >= len(*line) {
				continue
			}

			ev := event.New(et.Name, et.Description, c.searchFilePath)
			ev.ParseText(m.GroupDict())

			eventLinesCount := 1
			timestampFound := false
			for i, l := range c.lines {
				tm := et.SearchTimestamp(l)
				if tm == nil {
					continue
				}
				pt, err := et.ParseTimestamp(tm, c.searchFileTime.Year())
				if err != nil {
					continue
				}
				ev.SetTimestamp(pt.Time)
				ev.SetTimestampSpan(pt.Span[0], pt.Span[1])
				ev.AddFields(pt.UserFields)
				timestampFound = true
				eventLinesCount = i + 1
				break
			}
			if !timestampFound {
				eventLinesCount = 1
			}
			c.eventLinesCount = eventLinesCount

			if !timestampFound {
				c.storeNewEvent(ev, eventLinesCount)
				completed = append(completed, ev)
			} else {
				c.unfinished[et.Name] = ev
			}
		}

		c.stats.ProcessedLines++
		c.maybeReportAdvancement()
	}

	return completed
}

func (c *Context) storeNewEvent(ev *event.Event, eventLinesCount int) {
	ev.SetRaw(c.getMultiline(eventLinesCount))
	ev.SetLineNumber(c.linenum - (eventLinesCount + 1))
	c.store.Add(ev)
	c.stats.FoundEvents++

	if c.chronological {
		return
	}

	et := c.registry.Get(ev.TypeName)
	if et.ExecOnMatch != "" {
		if err := c.hooks.RunMatch(et.ExecOnMatch, ev); err != nil && c.OnHookError != nil {
			c.OnHookError(et.Name, err)
		}
	}
	ev.ParseDisplay(c.previousSameType(ev), et.DisplayOnMatch, c.store)
}

func (c *Context) previousSameType(ev *event.Event) *event.Event {
	list, _ := c.store.ByType(ev.TypeName)
	if len(list) < 2 {
		return nil
	}
	return list[len(list)-2]
}

func (c *Context) maybeReportAdvancement() {
	if c.Advancement == nil || c.stats.ProcessedLines%statsLineInterval != 0 {
		return
	}
	if time.Since(c.lastStatsAt) <= statsMinInterval {
		return
	}
	c.lastStatsAt = time.Now()
	c.lastStatsLines = c.stats.ProcessedLines
	c.Advancement(c.stats, c.searchFilePath)
}

// Wrapup sorts the store chronologically (if enabled) and runs every
// event type's exec_on_wrapup hook (the export step itself lives in
// pkg/export, driven by pkg/regulog).
func (c *Context) Wrapup() {
	if c.chronological {
		c.store.SortChronological()
		c.finalizeChronological()
	}
	for _, et := range c.registry.List() {
		if et.ExecOnWrapup == "" {
			continue
		}
		if err := c.hooks.RunWrapup(et.ExecOnWrapup); err != nil && c.OnHookError != nil {
			c.OnHookError(et.Name, err)
		}
	}
}

// finalizeChronological runs exec_on_match, then parseDisplay, for every
// event in final chronological order, matching EventSet.finalizeEvents
// (skipped when not chronological, since storeNewEvent already did this
// immediately as events were matched). The two are separate passes over
// the whole sequence, not interleaved per event, so a hook mutating a
// field in the first pass is visible to every event's display lookup in
// the second regardless of processing order.
func (c *Context) finalizeChronological() {
	sequence := c.store.Sequence()

	for _, ev := range sequence {
		et := c.registry.Get(ev.TypeName)
		if et.ExecOnMatch == "" {
			continue
		}
		if err := c.hooks.RunMatch(et.ExecOnMatch, ev); err != nil && c.OnHookError != nil {
			c.OnHookError(et.Name, err)
		}
	}

	previous := make(map[string]*event.Event)
	for _, ev := range sequence {
		et := c.registry.Get(ev.TypeName)
		ev.ParseDisplay(previous[ev.TypeName], et.DisplayOnMatch, c.store)
		previous[ev.TypeName] = ev
	}
}

// Stats returns the current processed-line/found-event counters.
func (c *Context) Stats() Stats { return c.stats }
