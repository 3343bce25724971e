package event

import (
	"regexp"
	"sort"
	"strings"
)

// Lookup is the read-only view of an event store needed to resolve
// cross-event interpolation tokens ("{field@ev}", "{field@ev:r=c}").
// pkg/store.Store satisfies this interface.
type Lookup interface {
	// ByType returns events of the given type name in ascending order
	// (insertion order while streaming, chronological order after sort).
	// ok is false if name is not a known event type.
	ByType(name string) (events []*Event, ok bool)
}

var tokenRex = regexp.MustCompile(`{[^{}]+}`)

// ReplaceFields substitutes "{...}" tokens in text using this event's own
// fields and, for cross-type tokens, the given Lookup. Unresolvable tokens
// are replaced by a literal, human-readable error string; they never abort
// the substitution.
func (e *Event) ReplaceFields(text string, events Lookup) string {
	res := strings.ReplaceAll(text, `\t`, "\t")
	res = strings.ReplaceAll(res, `\n`, "\n")

	return tokenRex.ReplaceAllStringFunc(res, func(tok string) string {
		inner := strings.TrimSpace(tok[1 : len(tok)-1])
		return e.resolveToken(inner, events)
	})
}

func (e *Event) resolveToken(src string, events Lookup) string {
	fieldName, at, rest := partition(src, "@")
	if !at {
		if e.HasField(fieldName) {
			v, err := e.GetField(fieldName)
			if err != nil {
				return "FIELD '" + fieldName + "' NOT FOUND"
			}
			return v
		}
		return "FIELD '" + fieldName + "' NOT FOUND"
	}

	evname, hasColon, lookupExpr := partition(rest, ":")
	evlist, ok := events.ByType(evname)
	if !ok {
		return "EVENT '" + evname + "' NOT FOUND"
	}
	if len(evlist) == 0 {
		return "EMPTY"
	}

	var found *Event
	if !hasColon {
		found = e.nearestPast(evlist)
	} else {
		rfield, hasEq, cfield := partition(lookupExpr, "=")
		if !hasEq {
			return "LOOKUP CONDITION '" + lookupExpr + "' NOT VALID"
		}
		cval, err := e.GetField(cfield)
		if err != nil {
			return "COMPARISON FIELD '" + cfield + "' NOT FOUND"
		}
		found = firstMatching(evlist, rfield, cval)
	}

	if found == nil {
		return "NO MATCHING EVENT"
	}
	v, err := found.GetField(fieldName)
	if err != nil {
		return "FIELD '" + fieldName + "' NOT IN FOUND EVENT"
	}
	return v
}

// nearestPast finds the latest event in evlist whose timestamp is <= this
// event's timestamp, preferring same-source ties.
func (e *Event) nearestPast(evlist []*Event) *Event {
	var found *Event
	t := e.timestamp
	for i := len(evlist) - 1; i >= 0; i-- {
		sev := evlist[i]
		if found == nil && !sev.timestamp.After(t) {
			found = sev
			t = found.timestamp
			continue
		}
		if found != nil && sev.timestamp.Equal(t) && e.sys[FieldSourcePath] == sev.sys[FieldSourcePath] {
			found = sev
			t = found.timestamp
			continue
		}
		if sev.timestamp.Before(t) {
			break
		}
	}
	return found
}

func firstMatching(evlist []*Event, rfield, cval string) *Event {
	for _, sev := range evlist {
		if v, err := sev.GetField(rfield); err == nil && v == cval {
			return sev
		}
	}
	return nil
}

// partition splits s on the first occurrence of sep, matching Python's
// str.partition: returns (before, found, after).
func partition(s, sep string) (string, bool, string) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return s, false, ""
	}
	return s[:idx], true, s[idx+len(sep):]
}

// ParseDisplay computes _changed_fields against previous (the prior event
// of the same type, or nil) and, if the event type defines a display
// template, _display_on_match via interpolation.
func (e *Event) ParseDisplay(previous *Event, displayTemplate string, events Lookup) {
	var changed []string
	if previous != nil {
		for k, v := range e.user {
			pv, existed := previous.user[k]
			if !existed || pv != v {
				changed = append(changed, k)
			}
		}
	} else {
		for k := range e.user {
			changed = append(changed, k)
		}
	}
	if len(changed) > 0 {
		// Deterministic order for tests and CSV/XML export.
		sort.Strings(changed)
		e.sys[FieldChangedFields] = strings.Join(changed, ",")
	} else {
		e.sys[FieldChangedFields] = ""
	}

	if displayTemplate != "" {
		e.sys[FieldDisplayOnMatch] = e.ReplaceFields(displayTemplate, events)
	}
}
