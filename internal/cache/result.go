// Package cache holds the latest published dashboard result and small
// in-process caches derived from it.
package cache

import (
	"context"
	"errors"
	"time"

	dashboard "github.com/smallbiznis/studioledger/internal/dashboard/domain"
)

var ErrCacheMiss = errors.New("cache_miss")

// Entry is a published dashboard result with the run that produced it.
// Generation is local to the process that ran it; StartedAt orders entries
// across replicas.
type Entry struct {
	RunID      string           `json:"run_id"`
	Generation uint64           `json:"generation"`
	Result     dashboard.Result `json:"result"`
	StartedAt  time.Time        `json:"started_at"`
	StoredAt   time.Time        `json:"stored_at"`
}

// NewerThan reports whether e comes from a later run than other. Generation
// only breaks ties between runs started at the same instant.
func (e Entry) NewerThan(other Entry) bool {
	if !e.StartedAt.Equal(other.StartedAt) {
		return e.StartedAt.After(other.StartedAt)
	}
	return e.Generation > other.Generation
}

// ResultStore keeps the latest published entry.
type ResultStore interface {
	Load(ctx context.Context) (Entry, error)
	Save(ctx context.Context, entry Entry) error
}
