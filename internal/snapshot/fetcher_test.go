package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/studioledger/internal/clock"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	mu    sync.Mutex
	rows  map[records.CollectionName][]records.RawRecord
	fails map[records.CollectionName]error
	calls int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(ctx context.Context, c records.CollectionName) ([]records.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.fails[c]; err != nil {
		return nil, err
	}
	return s.rows[c], nil
}

type fakeMirror struct {
	fakeSource
	syncedAt time.Time
	written  map[records.CollectionName][]records.RawRecord
}

func (m *fakeMirror) Load(ctx context.Context, c records.CollectionName) ([]records.RawRecord, time.Time, error) {
	rows, err := m.Fetch(ctx, c)
	return rows, m.syncedAt, err
}

func (m *fakeMirror) Replace(_ context.Context, c records.CollectionName, rows []records.RawRecord, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.written == nil {
		m.written = map[records.CollectionName][]records.RawRecord{}
	}
	m.written[c] = rows
	return nil
}

var fetchedAt = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

func allRows() map[records.CollectionName][]records.RawRecord {
	return map[records.CollectionName][]records.RawRecord{
		records.CollectionLeads:         {{"id": "L-1"}},
		records.CollectionEvents:        {{"id": "E-1"}, {"id": "E-2"}},
		records.CollectionPayments:      {{"id": "P-1"}},
		records.CollectionPhotographers: {},
	}
}

func TestFetchAllCollections(t *testing.T) {
	src := &fakeSource{name: "fake", rows: allRows()}
	f, err := NewFetcher(FetcherConfig{Primary: src, Clock: clock.NewFakeClock(fetchedAt)})
	require.NoError(t, err)

	snap, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, src.calls)
	assert.True(t, snap.Leads.Available)
	assert.Len(t, snap.Events.Records, 2)
	assert.True(t, snap.Photographers.Available)
	assert.NotNil(t, snap.Photographers.Records)
	assert.True(t, fetchedAt.Equal(snap.Payments.FetchedAt))
}

func TestFetchMarksFailedCollectionUnavailable(t *testing.T) {
	boom := errors.New("quota exceeded")
	src := &fakeSource{
		name:  "fake",
		rows:  allRows(),
		fails: map[records.CollectionName]error{records.CollectionPayments: boom},
	}
	f, err := NewFetcher(FetcherConfig{Primary: src, Clock: clock.NewFakeClock(fetchedAt)})
	require.NoError(t, err)

	snap, err := f.Fetch(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, snap.Payments.Available)
	assert.Contains(t, snap.Payments.Error, "quota exceeded")
	assert.Empty(t, snap.Payments.Records)
	assert.True(t, snap.Leads.Available, "other collections still load")
	assert.True(t, snap.Events.Available)
}

func TestFetchFallsBackToMirror(t *testing.T) {
	boom := errors.New("sheet unreachable")
	src := &fakeSource{
		name:  "sheets",
		rows:  allRows(),
		fails: map[records.CollectionName]error{records.CollectionLeads: boom},
	}
	mirrorSyncedAt := fetchedAt.Add(-time.Hour)
	mirror := &fakeMirror{
		fakeSource: fakeSource{name: "database", rows: map[records.CollectionName][]records.RawRecord{
			records.CollectionLeads: {{"id": "L-old"}},
		}},
		syncedAt: mirrorSyncedAt,
	}

	f, err := NewFetcher(FetcherConfig{Primary: src, Mirror: mirror, Clock: clock.NewFakeClock(fetchedAt)})
	require.NoError(t, err)

	snap, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Leads.Available)
	assert.True(t, snap.Leads.Stale)
	assert.Contains(t, snap.Leads.Error, "sheet unreachable")
	assert.True(t, mirrorSyncedAt.Equal(snap.Leads.FetchedAt))
	assert.Equal(t, "L-old", snap.Leads.Records[0]["id"])

	assert.Len(t, mirror.written, 3, "successful collections are written through")
	assert.NotContains(t, mirror.written, records.CollectionLeads)
}

func TestFetchMirrorMissTooIsUnavailable(t *testing.T) {
	src := &fakeSource{
		name:  "sheets",
		rows:  allRows(),
		fails: map[records.CollectionName]error{records.CollectionEvents: errors.New("403")},
	}
	mirror := &fakeMirror{fakeSource: fakeSource{
		name:  "database",
		fails: map[records.CollectionName]error{records.CollectionEvents: errors.New("collection_not_synced")},
	}}

	f, err := NewFetcher(FetcherConfig{Primary: src, Mirror: mirror})
	require.NoError(t, err)

	snap, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, snap.Events.Available)
	assert.Contains(t, snap.Events.Error, "collection_not_synced")
}

func TestFetchHonoursTimeout(t *testing.T) {
	f, err := NewFetcher(FetcherConfig{
		Primary: slowSource{},
		Timeout: func() time.Duration { return 10 * time.Millisecond },
	})
	require.NoError(t, err)

	snap, err := f.Fetch(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	for _, name := range records.Collections {
		c, _ := snap.Get(name)
		assert.False(t, c.Available, name)
	}
}

func TestNewFetcherRequiresPrimary(t *testing.T) {
	_, err := NewFetcher(FetcherConfig{})
	assert.ErrorIs(t, err, ErrNoSource)
}

type slowSource struct{}

func (slowSource) Name() string { return "slow" }

func (slowSource) Fetch(ctx context.Context, _ records.CollectionName) ([]records.RawRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
