// Package event implements the Event data model: system and user fields,
// timestamp handling, and display-string interpolation.
package event

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// System field names.
const (
	FieldRaw              = "_raw"
	FieldFlat             = "_flat"
	FieldCore             = "_core"
	FieldFlatCore         = "_flat_core"
	FieldTimestamp        = "_timestamp"
	FieldDate             = "_date"
	FieldTime             = "_time"
	FieldLineNumber       = "_line_number"
	FieldSequenceNumber   = "_sequence_number"
	FieldSourcePath       = "_source_path"
	FieldSourceFilename   = "_source_filename"
	FieldName             = "_name"
	FieldDescription      = "_description"
	FieldDisplayOnMatch   = "_display_on_match"
	FieldChangedFields    = "_changed_fields"
)

// virtualUserFields and virtualSystemFields render as formatted maps; they
// are not stored, only computed on GetField.
const (
	virtualUserFields   = "_user_fields"
	virtualSystemFields = "_system_fields"
)

// Event is a single extracted log occurrence. Its identity is the pair
// (TypeName, Sequence).
type Event struct {
	TypeName string

	sys  map[string]string
	user map[string]string

	sequence int

	timestamp     time.Time
	timestampZero bool
	timestampSpan [2]int
}

// New creates an event with its standard fields initialized.
func New(typeName, description, sourcePath string) *Event {
	e := &Event{
		TypeName: typeName,
		sys:      make(map[string]string),
		user:     make(map[string]string),
	}
	e.sys[FieldName] = typeName
	e.sys[FieldDescription] = description
	e.sys[FieldSourcePath] = sourcePath
	e.sys[FieldSourceFilename] = filepath.Base(sourcePath)
	e.sys[FieldDisplayOnMatch] = ""
	e.sys[FieldChangedFields] = ""
	e.SetSequence(-1)
	e.SetTimestamp(time.Time{})
	return e
}

// ErrSystemField is returned when user code attempts to overwrite or shadow
// a reserved system field.
type ErrSystemField struct{ Name string }

func (e *ErrSystemField) Error() string {
	return fmt.Sprintf("event: %q is a system field and cannot be set from user code", e.Name)
}

// ErrFieldExists is returned by AddField when the name is already bound.
type ErrFieldExists struct{ Name string }

func (e *ErrFieldExists) Error() string {
	return fmt.Sprintf("event: field %q already exists", e.Name)
}

// SetField binds a user field, refusing to shadow a system field.
func (e *Event) SetField(name, value string) error {
	if _, isSystem := e.sys[name]; isSystem {
		return &ErrSystemField{Name: name}
	}
	e.user[name] = value
	return nil
}

// SetFields calls SetField for every entry, silently skipping collisions.
func (e *Event) SetFields(fields map[string]string) {
	for k, v := range fields {
		_ = e.SetField(k, v)
	}
}

// AddField binds a user field that must not already exist anywhere on the
// event.
func (e *Event) AddField(name, value string) error {
	if _, isSystem := e.sys[name]; isSystem {
		return &ErrFieldExists{Name: name}
	}
	if _, isUser := e.user[name]; isUser {
		return &ErrFieldExists{Name: name}
	}
	e.user[name] = value
	return nil
}

// AddFields calls AddField for every entry, silently skipping collisions.
func (e *Event) AddFields(fields map[string]string) {
	for k, v := range fields {
		_ = e.AddField(k, v)
	}
}

// HasField reports whether name is a bound or virtual field.
func (e *Event) HasField(name string) bool {
	switch name {
	case virtualUserFields, virtualSystemFields, FieldCore, FieldFlatCore:
		return true
	}
	_, inUser := e.user[name]
	_, inSys := e.sys[name]
	return inUser || inSys
}

// GetField resolves a field or virtual field name to its string value.
func (e *Event) GetField(name string) (string, error) {
	if v, ok := e.user[name]; ok {
		return v, nil
	}
	if v, ok := e.sys[name]; ok {
		return v, nil
	}
	switch name {
	case virtualUserFields:
		return formatFields(e.user), nil
	case virtualSystemFields:
		return formatFields(e.sys), nil
	}
	return "", fmt.Errorf("event: field %q not found", name)
}

func formatFields(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// UserFields returns a copy of the bound user fields.
func (e *Event) UserFields() map[string]string {
	out := make(map[string]string, len(e.user))
	for k, v := range e.user {
		out[k] = v
	}
	return out
}

// SystemFields returns a copy of the bound system fields.
func (e *Event) SystemFields() map[string]string {
	out := make(map[string]string, len(e.sys))
	for k, v := range e.sys {
		out[k] = v
	}
	return out
}

// SetRaw sets _raw, _flat, _core and _flat_core from the reconstructed raw
// text and the current timestamp span.
func (e *Event) SetRaw(raw string) {
	e.sys[FieldRaw] = raw
	e.sys[FieldFlat] = strings.ReplaceAll(raw, "\n", " ")
	e.recomputeCore()
}

func (e *Event) recomputeCore() {
	raw, ok := e.sys[FieldRaw]
	if !ok {
		return
	}
	start, end := e.timestampSpan[0], e.timestampSpan[1]
	if start < 0 || end > len(raw) || start > end {
		start, end = 0, 0
	}
	core := raw[:start] + raw[end:]
	e.sys[FieldCore] = core
	e.sys[FieldFlatCore] = strings.ReplaceAll(core, "\n", " ")
}

// SetLineNumber sets _line_number.
func (e *Event) SetLineNumber(n int) {
	e.sys[FieldLineNumber] = fmt.Sprintf("%d", n)
}

// SetSequence sets the event's sequence number and _sequence_number.
func (e *Event) SetSequence(n int) {
	e.sequence = n
	e.sys[FieldSequenceNumber] = fmt.Sprintf("%d", n)
}

// Sequence returns the event's sequence number.
func (e *Event) Sequence() int { return e.sequence }

// SetTimestamp sets the event's timestamp and the derived _timestamp,
// _date, _time fields. A zero time.Time represents "no timestamp parsed",
// i.e. the minimum representable instant.
func (e *Event) SetTimestamp(t time.Time) {
	e.timestamp = t
	e.timestampZero = t.IsZero()
	e.sys[FieldTimestamp] = isoTimestamp(t)
	e.sys[FieldDate] = t.Format("2006-01-02")
	e.sys[FieldTime] = t.Format("15:04:05")
	e.recomputeCore()
}

func isoTimestamp(t time.Time) string {
	if t.IsZero() {
		return "0001-01-01T00:00:00"
	}
	return t.Format("2006-01-02T15:04:05")
}

// Timestamp returns the event's parsed timestamp (zero value if none was
// found).
func (e *Event) Timestamp() time.Time { return e.timestamp }

// HasTimestamp reports whether a timestamp was actually parsed for this
// event.
func (e *Event) HasTimestamp() bool { return !e.timestampZero }

// SetTimestampSpan records the byte offsets of the matched timestamp
// substring within _raw, used by _core/_flat_core.
func (e *Event) SetTimestampSpan(start, end int) {
	e.timestampSpan = [2]int{start, end}
	e.recomputeCore()
}

// ParseText binds user fields from the named groups of a text-regex match.
func (e *Event) ParseText(groups map[string]string) {
	for k, v := range groups {
		e.user[k] = v
	}
}
