// Package eventtype holds the compiled regex triples and per-type
// configuration that define how events are extracted from log text.
package eventtype

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// magicLetters are the timestamp component letters recognized in named
// groups of the form "_X" or "_Xn" (n a digit), e.g. "_Y", "_Y2", "_h".
const magicLetters = "YMDhms"

// magicGroup describes one timestamp-component capture found in a compiled
// RexTimestamp pattern, resolved once at registration time instead of
// re-inspecting group names on every match.
type magicGroup struct {
	index  int
	letter byte
}

// userGroup is a non-magic named capture in RexTimestamp; these become user
// fields on the event, same as every named capture in RexText.
type userGroup struct {
	index int
	name  string
}

// EventType is the regex-and-hook bundle that defines how to extract events
// from a class of log lines.
type EventType struct {
	Name        string
	Description string

	RexFilename string
	RexText     string
	RexTimestamp string

	MultilineCount int
	CaseSensitive  bool

	DisplayOnMatch   string
	DisplayIfChanged bool

	ExecOnInit    string
	ExecOnMatch   string
	ExecOnWrapup  string

	filenameRex  *regexp.Regexp
	textRex      *regexp.Regexp
	timestampRex *regexp.Regexp

	magicGroups []magicGroup
	userGroups  []userGroup
}

// Params bundles the constructor arguments for New.
type Params struct {
	Name        string
	Description string

	RexFilename  string
	RexText      string
	RexTimestamp string

	MultilineCount int
	CaseSensitive  bool

	DisplayOnMatch   string
	DisplayIfChanged bool

	ExecOnInit   string
	ExecOnMatch  string
	ExecOnWrapup string
}

// New compiles and validates the three regexes and returns a ready-to-use
// EventType. MultilineCount defaults to 1 when zero.
func New(p Params) (*EventType, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("eventtype: name is required")
	}
	if p.MultilineCount == 0 {
		p.MultilineCount = 1
	}
	if p.MultilineCount < 1 {
		return nil, fmt.Errorf("eventtype %q: multiline_count must be >= 1", p.Name)
	}

	filenameRex, err := regexp.Compile(p.RexFilename)
	if err != nil {
		return nil, fmt.Errorf("eventtype %q: filename regex: %w", p.Name, err)
	}

	textFlags := "(?ms"
	if !p.CaseSensitive {
		textFlags += "i"
	}
	textFlags += ")"
	textRex, err := regexp.Compile(textFlags + p.RexText)
	if err != nil {
		return nil, fmt.Errorf("eventtype %q: text regex: %w", p.Name, err)
	}

	timestampRex, err := regexp.Compile(p.RexTimestamp)
	if err != nil {
		return nil, fmt.Errorf("eventtype %q: timestamp regex: %w", p.Name, err)
	}

	et := &EventType{
		Name:             p.Name,
		Description:      p.Description,
		RexFilename:      p.RexFilename,
		RexText:          p.RexText,
		RexTimestamp:     p.RexTimestamp,
		MultilineCount:   p.MultilineCount,
		CaseSensitive:    p.CaseSensitive,
		DisplayOnMatch:   p.DisplayOnMatch,
		DisplayIfChanged: p.DisplayIfChanged,
		ExecOnInit:       p.ExecOnInit,
		ExecOnMatch:      p.ExecOnMatch,
		ExecOnWrapup:     p.ExecOnWrapup,
		filenameRex:      filenameRex,
		textRex:          textRex,
		timestampRex:     timestampRex,
	}
	et.magicGroups, et.userGroups = classifyGroups(timestampRex)

	return et, nil
}

// classifyGroups walks the timestamp regex's subexpression names once and
// splits them into magic timestamp-component groups and plain user-field
// groups, per the "_X[digit]?" convention (design notes: translate magic
// groups into a structured descriptor at registration time).
func classifyGroups(rex *regexp.Regexp) ([]magicGroup, []userGroup) {
	var magics []magicGroup
	var users []userGroup

	for i, name := range rex.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if letter, ok := magicLetter(name); ok {
			magics = append(magics, magicGroup{index: i, letter: letter})
		} else {
			users = append(users, userGroup{index: i, name: name})
		}
	}
	return magics, users
}

// magicLetter reports whether name follows the "_X" or "_Xn" convention and
// returns the timestamp-component letter it designates.
func magicLetter(name string) (byte, bool) {
	if len(name) < 2 || name[0] != '_' {
		return 0, false
	}
	letter := name[1]
	if !isMagicLetter(letter) {
		return 0, false
	}
	switch len(name) {
	case 2:
		return letter, true
	case 3:
		if name[2] >= '0' && name[2] <= '9' {
			return letter, true
		}
	}
	return 0, false
}

func isMagicLetter(b byte) bool {
	for i := 0; i < len(magicLetters); i++ {
		if magicLetters[i] == b {
			return true
		}
	}
	return false
}

// MatchFilename reports whether the event type's filename regex matches the
// basename of path.
func (et *EventType) MatchFilename(path string) bool {
	return et.filenameRex.MatchString(filepath.Base(path))
}

// MatchResult wraps a regexp match together with the compiled pattern it was
// produced from, so callers can still resolve group names/indices.
type MatchResult struct {
	Rex      *regexp.Regexp
	Text     string
	Groups   []string
	Indices  []int
}

// Start returns the byte offset of the full match within Text.
func (m *MatchResult) Start() int { return m.Indices[0] }

// End returns the byte offset just past the full match within Text.
func (m *MatchResult) End() int { return m.Indices[1] }

// GroupDict returns the named captures of the match (magic and user groups
// alike), skipping empty names and empty captures.
func (m *MatchResult) GroupDict() map[string]string {
	res := make(map[string]string)
	for i, name := range m.Rex.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if v := m.group(i); v != "" {
			res[name] = v
		}
	}
	return res
}

func (m *MatchResult) group(i int) string {
	lo, hi := m.Indices[2*i], m.Indices[2*i+1]
	if lo < 0 || hi < 0 {
		return ""
	}
	return m.Text[lo:hi]
}

func newMatchResult(rex *regexp.Regexp, text string, idx []int) *MatchResult {
	groups := make([]string, len(idx)/2)
	for i := range groups {
		lo, hi := idx[2*i], idx[2*i+1]
		if lo >= 0 && hi >= 0 {
			groups[i] = text[lo:hi]
		}
	}
	return &MatchResult{Rex: rex, Text: text, Groups: groups, Indices: idx}
}

// SearchText applies the text regex to buffer, returning nil if no match.
func (et *EventType) SearchText(buffer string) *MatchResult {
	idx := et.textRex.FindStringSubmatchIndex(buffer)
	if idx == nil {
		return nil
	}
	return newMatchResult(et.textRex, buffer, idx)
}

// SearchTimestamp applies the timestamp regex to buffer, returning nil if no
// match.
func (et *EventType) SearchTimestamp(buffer string) *MatchResult {
	idx := et.timestampRex.FindStringSubmatchIndex(buffer)
	if idx == nil {
		return nil
	}
	return newMatchResult(et.timestampRex, buffer, idx)
}
