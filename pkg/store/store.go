// Package store implements the EventStore: per-type ordered event lists
// plus a global sequence, with cross-type lookup semantics used by display
// interpolation and deferred hook execution.
package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/regulogio/regulog/pkg/event"
)

// Store holds events produced during a scan, grouped by event-type name
// plus a flat global sequence.
type Store struct {
	names []string
	lists map[string][]*event.Event
	seq   []*event.Event
}

// New returns an empty Store pre-seeded with an (empty) list for every name
// in typeNames, matching EventSet's constructor.
func New(typeNames []string) *Store {
	s := &Store{
		names: append([]string(nil), typeNames...),
		lists: make(map[string][]*event.Event, len(typeNames)),
	}
	for _, n := range typeNames {
		s.lists[n] = nil
	}
	return s
}

// Add appends ev to the global sequence and its type's list, assigning the
// event's sequence number as the current global count.
func (s *Store) Add(ev *event.Event) {
	ev.SetSequence(len(s.seq))
	s.lists[ev.TypeName] = append(s.lists[ev.TypeName], ev)
	s.seq = append(s.seq, ev)
}

// ByType implements event.Lookup.
func (s *Store) ByType(name string) ([]*event.Event, bool) {
	l, ok := s.lists[name]
	return l, ok
}

// Sequence returns the global event sequence in current order.
func (s *Store) Sequence() []*event.Event {
	return s.seq
}

// TypeNames returns the registered event-type names.
func (s *Store) TypeNames() []string {
	return append([]string(nil), s.names...)
}

// Before is a tagged union for a lookup's "before" constraint: either a
// reference event (compares by timestamp AND sequence number) or a bare
// timestamp.
type Before struct {
	event     *event.Event
	timestamp *time.Time
}

// BeforeEvent builds a Before filter relative to another event.
func BeforeEvent(e *event.Event) Before { return Before{event: e} }

// BeforeTimestamp builds a Before filter relative to a bare timestamp.
func BeforeTimestamp(t time.Time) Before { return Before{timestamp: &t} }

// GetOptions mirrors the keyword arguments of get_events/get_event.
type GetOptions struct {
	Name   string // empty searches the full global sequence
	Fields map[string]string
	Before *Before
	Limit  int
}

// GetEvents returns up to opts.Limit events (most-recent-first) matching
// opts, searching the global sequence or a single type's list.
func (s *Store) GetEvents(opts GetOptions) ([]*event.Event, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}

	var source []*event.Event
	if opts.Name == "" {
		source = s.seq
	} else {
		l, ok := s.lists[opts.Name]
		if !ok {
			return nil, fmt.Errorf("store: unknown event type %q", opts.Name)
		}
		source = l
	}

	var out []*event.Event
	for i := len(source) - 1; i >= 0; i-- {
		ev := source[i]
		if !matches(ev, opts) {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetEvent returns the single most recent matching event, or nil.
func (s *Store) GetEvent(opts GetOptions) (*event.Event, error) {
	opts.Limit = 1
	evs, err := s.GetEvents(opts)
	if err != nil || len(evs) == 0 {
		return nil, err
	}
	return evs[0], nil
}

func matches(ev *event.Event, opts GetOptions) bool {
	for k, want := range opts.Fields {
		got, err := ev.GetField(k)
		if err != nil || got != want {
			return false
		}
	}
	if opts.Before != nil {
		b := opts.Before
		if b.event != nil {
			if b.event.Timestamp().Before(ev.Timestamp()) || b.event.Sequence() <= ev.Sequence() {
				return false
			}
		} else if b.timestamp != nil {
			if b.timestamp.Before(ev.Timestamp()) {
				return false
			}
		}
	}
	return true
}

// SortChronological sorts every per-type list and the global sequence by
// (timestamp, sequence number), then renumbers sequence numbers densely in
// the new order.
func (s *Store) SortChronological() {
	for _, n := range s.names {
		sortByTimeThenSeq(s.lists[n])
	}
	s.seq = s.seq[:0]
	for _, n := range s.names {
		s.seq = append(s.seq, s.lists[n]...)
	}
	sortByTimeThenSeq(s.seq)
	for i, ev := range s.seq {
		ev.SetSequence(i)
	}
}

func sortByTimeThenSeq(evs []*event.Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		ti, tj := evs[i].Timestamp(), evs[j].Timestamp()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return evs[i].Sequence() < evs[j].Sequence()
	})
}
