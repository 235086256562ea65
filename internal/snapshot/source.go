// Package snapshot fetches the four record collections behind the dashboard
// and assembles them into a records.Snapshot. A failed collection becomes an
// explicit Unavailable marker; it never aborts the other fetches.
package snapshot

import (
	"context"
	"time"

	records "github.com/smallbiznis/studioledger/internal/records/domain"
)

// Source is a backend able to list the raw rows of a collection.
type Source interface {
	Name() string
	Fetch(ctx context.Context, collection records.CollectionName) ([]records.RawRecord, error)
}

// Mirror is a Source that also keeps the last copy written to it.
type Mirror interface {
	Source
	Load(ctx context.Context, collection records.CollectionName) ([]records.RawRecord, time.Time, error)
	Replace(ctx context.Context, collection records.CollectionName, rows []records.RawRecord, syncedAt time.Time) error
}
