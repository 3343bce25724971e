package eventtype

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthNames = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

// ParsedTimestamp is the result of resolving a timestamp match against the
// event type's magic-group descriptor.
type ParsedTimestamp struct {
	Time       time.Time
	Span       [2]int
	UserFields map[string]string
}

// ParseTimestamp resolves the components of a timestamp match using the
// magic-group descriptor computed at registration time. sourceYear is used
// when no year group bound (defaults to the source file's mtime year).
func (et *EventType) ParseTimestamp(match *MatchResult, sourceYear int) (*ParsedTimestamp, error) {
	bound := make(map[byte]string)
	for _, mg := range et.magicGroups {
		v := match.group(mg.index)
		if v != "" {
			// First alternative to bind for a given letter wins; later
			// alternations (e.g. "_Y2") are only consulted if "_Y" did not
			// bind, which FindStringSubmatchIndex already enforces since
			// only one alternative in the pattern can match at a time.
			if _, already := bound[mg.letter]; !already {
				bound[mg.letter] = v
			}
		}
	}
	if len(bound) < 4 {
		return nil, fmt.Errorf("eventtype %q: not enough timestamp fields bound (%d, need >= 4)", et.Name, len(bound))
	}

	year := sourceYear
	if v, ok := bound['Y']; ok {
		y, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("eventtype %q: invalid year %q: %w", et.Name, v, err)
		}
		if y < 100 {
			y += 2000
		}
		year = y
	}

	mstr, ok := bound['M']
	if !ok {
		return nil, fmt.Errorf("eventtype %q: month field did not bind", et.Name)
	}
	month, err := parseMonth(mstr)
	if err != nil {
		return nil, fmt.Errorf("eventtype %q: %w", et.Name, err)
	}

	day, err := atoiField(et.Name, "day", bound, 'D')
	if err != nil {
		return nil, err
	}
	hour, err := atoiField(et.Name, "hour", bound, 'h')
	if err != nil {
		return nil, err
	}
	minute, err := atoiField(et.Name, "minute", bound, 'm')
	if err != nil {
		return nil, err
	}

	second := 0
	if v, ok := bound['s']; ok {
		second, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("eventtype %q: invalid second %q: %w", et.Name, v, err)
		}
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)

	userFields := make(map[string]string)
	for _, ug := range et.userGroups {
		if v := match.group(ug.index); v != "" {
			userFields[ug.name] = v
		}
	}

	return &ParsedTimestamp{
		Time:       t,
		Span:       [2]int{match.Start(), match.End()},
		UserFields: userFields,
	}, nil
}

func atoiField(typeName, field string, bound map[byte]string, letter byte) (int, error) {
	v, ok := bound[letter]
	if !ok {
		return 0, fmt.Errorf("eventtype %q: %s field did not bind", typeName, field)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("eventtype %q: invalid %s %q: %w", typeName, field, v, err)
	}
	return n, nil
}

func parseMonth(m string) (int, error) {
	if len(m) <= 2 {
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric month %q: %w", m, err)
		}
		return n, nil
	}
	key := strings.ToUpper(m[:3])
	if n, ok := monthNames[key]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("invalid month name %q", m)
}
