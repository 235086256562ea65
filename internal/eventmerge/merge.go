// Package eventmerge builds the upcoming-events timeline from the Events
// collection and committed Leads.
package eventmerge

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/studioledger/internal/classify"
	"github.com/smallbiznis/studioledger/internal/normalize"
	"github.com/smallbiznis/studioledger/internal/records/domain"
)

type Source string

const (
	SourceEvents Source = "events"
	SourceLeads  Source = "leads"
)

const DefaultWindowMonths = 1

// UpcomingEvent is the common shape for event-like records of both sources.
type UpcomingEvent struct {
	Source       Source          `json:"source"`
	SourceID     string          `json:"source_id"`
	ClientName   string          `json:"client_name"`
	EventType    string          `json:"event_type"`
	EventDate    string          `json:"event_date"`
	Date         time.Time       `json:"-"`
	Venue        string          `json:"venue"`
	Photographer string          `json:"photographer"`
	Price        decimal.Decimal `json:"price"`
	Advance      decimal.Decimal `json:"advance"`
	Status       string          `json:"status"`
}

type Options struct {
	WindowMonths int
	Key          KeyFunc
	Location     *time.Location
}

func (o Options) withDefaults() Options {
	if o.WindowMonths <= 0 {
		o.WindowMonths = DefaultWindowMonths
	}
	if o.Key == nil {
		o.Key = NameDateKey
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// FromEvent maps an Events record. ok is false when the event has no date.
func FromEvent(e domain.Event) (UpcomingEvent, bool) {
	if e.EventDate == nil {
		return UpcomingEvent{}, false
	}
	return UpcomingEvent{
		Source:       SourceEvents,
		SourceID:     e.ID,
		ClientName:   e.ClientName,
		EventType:    e.EventType,
		EventDate:    normalize.DayKey(*e.EventDate),
		Date:         *e.EventDate,
		Venue:        e.Venue,
		Photographer: e.Photographer,
		Price:        e.Price,
		Advance:      e.Advance,
		Status:       string(e.Status),
	}, true
}

// FromLead maps a committed lead carrying an event date. ok is false for
// leads that are not Converted or Event Completed, or have no date.
func FromLead(l domain.Lead) (UpcomingEvent, bool) {
	if l.EventDate == nil || !classify.Eligible(l.Status) {
		return UpcomingEvent{}, false
	}
	return UpcomingEvent{
		Source:       SourceLeads,
		SourceID:     l.ID,
		ClientName:   l.ClientName,
		EventType:    l.EventType,
		EventDate:    normalize.DayKey(*l.EventDate),
		Date:         *l.EventDate,
		Venue:        l.Venue,
		Photographer: l.Photographer,
		Price:        l.Budget,
		Advance:      decimal.Zero,
		Status:       string(l.Status),
	}, true
}

// Merge returns the deduplicated events dated within [today, today+WindowMonths],
// sorted by date. Events are considered before leads and the first entry for a
// key wins.
func Merge(events []domain.Event, leads []domain.Lead, now time.Time, opts Options) []UpcomingEvent {
	opts = opts.withDefaults()
	today := normalize.StartOfDay(now, opts.Location)
	until := today.AddDate(0, opts.WindowMonths, 0)

	candidates := make([]UpcomingEvent, 0, len(events)+len(leads))
	for _, e := range events {
		if ue, ok := FromEvent(e); ok {
			candidates = append(candidates, ue)
		}
	}
	for _, l := range leads {
		if ue, ok := FromLead(l); ok {
			candidates = append(candidates, ue)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]UpcomingEvent, 0, len(candidates))
	for _, ue := range candidates {
		if ue.Date.Before(today) || ue.Date.After(until) {
			continue
		}
		key := opts.Key(ue)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ue)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// AllEvents maps every dated Events record without windowing or deduplication,
// in source order.
func AllEvents(events []domain.Event) []UpcomingEvent {
	out := make([]UpcomingEvent, 0, len(events))
	for _, e := range events {
		if ue, ok := FromEvent(e); ok {
			out = append(out, ue)
		}
	}
	return out
}
