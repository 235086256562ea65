package eventmerge

import "strings"

// KeyFunc returns the identity used to detect two representations of the same event.
type KeyFunc func(UpcomingEvent) string

// NameDateKey treats entries with the same client name and calendar date as one
// event. Distinct clients sharing both collide.
func NameDateKey(e UpcomingEvent) string {
	return e.ClientName + "|" + e.EventDate
}

// SourceIDKey only collapses entries coming from the same source record.
// Records without an identifier fall back to NameDateKey.
func SourceIDKey(e UpcomingEvent) string {
	if strings.TrimSpace(e.SourceID) == "" {
		return string(e.Source) + "|" + NameDateKey(e)
	}
	return string(e.Source) + "#" + e.SourceID
}

const (
	KeyNameDate = "name_date"
	KeyRecordID = "record_id"
)

// KeyFuncFor resolves a configured key name. Unknown names use NameDateKey.
func KeyFuncFor(name string) KeyFunc {
	switch strings.TrimSpace(name) {
	case KeyRecordID:
		return SourceIDKey
	default:
		return NameDateKey
	}
}
