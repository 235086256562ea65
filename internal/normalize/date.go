package normalize

import (
	"strings"
	"time"
)

// DefaultDateLayouts are tried in order until one yields a valid date.
var DefaultDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// DateParser reads date cells. Layouts without a zone are interpreted in Location.
type DateParser struct {
	Layouts  []string
	Location *time.Location
}

func (p DateParser) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p DateParser) layouts() []string {
	if len(p.Layouts) == 0 {
		return DefaultDateLayouts
	}
	return p.Layouts
}

// Timestamp parses v keeping its instant. A nil result means absent; ok is
// false when v was non-empty but no layout produced a valid date.
func (p DateParser) Timestamp(v any) (*time.Time, bool) {
	switch typed := v.(type) {
	case nil:
		return nil, true
	case time.Time:
		if typed.IsZero() {
			return nil, true
		}
		t := typed.In(p.location())
		return &t, true
	case *time.Time:
		if typed == nil || typed.IsZero() {
			return nil, true
		}
		t := typed.In(p.location())
		return &t, true
	case string:
		value := strings.TrimSpace(typed)
		if value == "" {
			return nil, true
		}
		for _, layout := range p.layouts() {
			parsed, err := time.ParseInLocation(layout, value, p.location())
			if err != nil {
				continue
			}
			t := parsed.In(p.location())
			return &t, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// Day parses v as a calendar date: midnight of the local day in Location.
func (p DateParser) Day(v any) (*time.Time, bool) {
	t, ok := p.Timestamp(v)
	if t == nil {
		return nil, ok
	}
	day := StartOfDay(*t, p.location())
	return &day, ok
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayKey formats a calendar date for keys and JSON output.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
