package domain

import (
	"errors"
	"time"
)

// CollectionName identifies one of the record sources behind the dashboard.
type CollectionName string

const (
	CollectionLeads         CollectionName = "leads"
	CollectionEvents        CollectionName = "events"
	CollectionPayments      CollectionName = "payments"
	CollectionPhotographers CollectionName = "photographers"
)

// Collections lists every source fetched for a snapshot.
var Collections = []CollectionName{
	CollectionLeads,
	CollectionEvents,
	CollectionPayments,
	CollectionPhotographers,
}

var (
	ErrUnknownCollection = errors.New("unknown_collection")
	ErrSourceUnavailable = errors.New("source_unavailable")
)

// RawRecord is a record as delivered by the backend: loosely keyed, loosely typed.
type RawRecord map[string]any

// Collection is one fetched source. Available=false means the fetch failed and
// Records must not be read as "the source is empty".
type Collection struct {
	Records   []RawRecord `json:"-"`
	Available bool        `json:"available"`
	Stale     bool        `json:"stale,omitempty"`
	Error     string      `json:"error,omitempty"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Loaded builds an available collection.
func Loaded(records []RawRecord, fetchedAt time.Time) Collection {
	if records == nil {
		records = []RawRecord{}
	}
	return Collection{Records: records, Available: true, FetchedAt: fetchedAt}
}

// Unavailable builds the explicit failure marker for a collection.
func Unavailable(err error, fetchedAt time.Time) Collection {
	msg := ErrSourceUnavailable.Error()
	if err != nil {
		msg = err.Error()
	}
	return Collection{Available: false, Error: msg, FetchedAt: fetchedAt}
}

// Snapshot is an immutable set of collections fetched together.
type Snapshot struct {
	Leads         Collection
	Events        Collection
	Payments      Collection
	Photographers Collection
}

// NewSnapshot marks every collection available. Intended for callers that
// already hold the data in memory.
func NewSnapshot(leads, events, payments, photographers []RawRecord) Snapshot {
	var zero time.Time
	return Snapshot{
		Leads:         Loaded(leads, zero),
		Events:        Loaded(events, zero),
		Payments:      Loaded(payments, zero),
		Photographers: Loaded(photographers, zero),
	}
}

// Get returns the collection for name.
func (s Snapshot) Get(name CollectionName) (Collection, error) {
	switch name {
	case CollectionLeads:
		return s.Leads, nil
	case CollectionEvents:
		return s.Events, nil
	case CollectionPayments:
		return s.Payments, nil
	case CollectionPhotographers:
		return s.Photographers, nil
	default:
		return Collection{}, ErrUnknownCollection
	}
}

// With returns a copy of the snapshot with name replaced.
func (s Snapshot) With(name CollectionName, c Collection) Snapshot {
	switch name {
	case CollectionLeads:
		s.Leads = c
	case CollectionEvents:
		s.Events = c
	case CollectionPayments:
		s.Payments = c
	case CollectionPhotographers:
		s.Photographers = c
	}
	return s
}
