package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/studioledger/internal/cache"
	"github.com/smallbiznis/studioledger/internal/clock"
	dashboard "github.com/smallbiznis/studioledger/internal/dashboard/domain"
	"github.com/smallbiznis/studioledger/internal/normalize"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

// gatedFetcher blocks the calls listed in gates until the matching channel closes.
type gatedFetcher struct {
	mu    sync.Mutex
	calls int
	gates map[int]chan struct{}
	snap  records.Snapshot
	err   error
}

func (f *gatedFetcher) Fetch(ctx context.Context) (records.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[f.calls]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return records.Snapshot{}, ctx.Err()
		}
	}
	return f.snap, f.err
}

func (f *gatedFetcher) started() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingDashboard reports the number of leads it saw as TotalLeads.
type countingDashboard struct {
	computed atomic.Int32
	issues   []normalize.Issue
}

func (d *countingDashboard) Compute(s records.Snapshot) dashboard.Result {
	d.computed.Add(1)
	sources := map[records.CollectionName]dashboard.SourceState{}
	for _, name := range records.Collections {
		c, _ := s.Get(name)
		sources[name] = dashboard.SourceState{Available: c.Available, Stale: c.Stale}
	}
	return dashboard.Result{
		Stats:   dashboard.Stats{TotalLeads: len(s.Leads.Records)},
		Sources: sources,
		Issues:  d.issues,
	}
}

func newTestRefresher(t *testing.T, fetcher SnapshotFetcher, dash dashboard.Service, locker *Locker) (*Refresher, *cache.MemoryStore) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	store := cache.NewMemoryStore()
	r, err := NewRefresher(Options{
		Fetcher:   fetcher,
		Dashboard: dash,
		Store:     store,
		Locker:    locker,
		GenID:     node,
		Clock:     clock.NewFakeClock(now),
		Log:       zap.NewNop(),
		Config:    Config{Source: "fake"},
	})
	require.NoError(t, err)
	return r, store
}

func leadsSnapshot(n int) records.Snapshot {
	leads := make([]records.RawRecord, n)
	for i := range leads {
		leads[i] = records.RawRecord{"id": i}
	}
	return records.NewSnapshot(leads, nil, nil, nil)
}

func TestRefreshPublishesResult(t *testing.T) {
	r, store := newTestRefresher(t, &gatedFetcher{snap: leadsSnapshot(3)}, &countingDashboard{}, nil)

	entry, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), entry.Generation)
	assert.NotEmpty(t, entry.RunID)
	assert.True(t, now.Equal(entry.StoredAt))
	assert.True(t, now.Equal(entry.StartedAt))
	assert.Equal(t, 3, entry.Result.Stats.TotalLeads)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entry.RunID, stored.RunID)
}

func TestRefreshPublishesDegradedSnapshot(t *testing.T) {
	snap := leadsSnapshot(2)
	snap.Payments = records.Unavailable(errors.New("quota"), now)
	fetcher := &gatedFetcher{snap: snap, err: errors.New("payments: quota")}
	r, _ := newTestRefresher(t, fetcher, &countingDashboard{}, nil)

	entry, err := r.Refresh(context.Background())
	require.NoError(t, err, "an incomplete snapshot still publishes")
	assert.False(t, entry.Result.Sources[records.CollectionPayments].Available)
	assert.Equal(t, 2, entry.Result.Stats.TotalLeads)
}

func TestSupersededRunIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &gatedFetcher{snap: leadsSnapshot(1), gates: map[int]chan struct{}{1: gate}}
	dash := &countingDashboard{}
	r, store := newTestRefresher(t, fetcher, dash, nil)

	type outcome struct {
		entry cache.Entry
		err   error
	}
	first := make(chan outcome, 1)
	go func() {
		entry, err := r.Refresh(context.Background())
		first <- outcome{entry, err}
	}()

	require.Eventually(t, func() bool { return fetcher.started() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), r.Generation())

	second, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Generation)

	close(gate)
	got := <-first
	assert.ErrorIs(t, got.err, ErrSuperseded)
	assert.Equal(t, int32(1), dash.computed.Load(), "the stale run never computes")

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Generation)
}

func TestLatestComputesOnFirstUse(t *testing.T) {
	dash := &countingDashboard{}
	r, _ := newTestRefresher(t, &gatedFetcher{snap: leadsSnapshot(4)}, dash, nil)

	entry, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, entry.Result.Stats.TotalLeads)

	again, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entry.RunID, again.RunID)
	assert.Equal(t, int32(1), dash.computed.Load())
}

func TestRefreshSkipsWhileLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)

	token, ok, err := locker.TryLock(context.Background(), lockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	dash := &countingDashboard{}
	r, _ := newTestRefresher(t, &gatedFetcher{snap: leadsSnapshot(1)}, dash, locker)

	_, err = r.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Equal(t, int32(0), dash.computed.Load())

	require.NoError(t, locker.Release(context.Background(), lockKey, token))
	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, mr.Exists(lockKey), "lock released after the run")
}

func TestLockerReleaseIgnoresForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)

	_, ok, err := locker.TryLock(context.Background(), lockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(context.Background(), lockKey, "someone-else"))
	assert.True(t, mr.Exists(lockKey))

	assert.Nil(t, NewLocker(nil))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	dash := &countingDashboard{}
	r, _ := newTestRefresher(t, &gatedFetcher{snap: leadsSnapshot(1)}, dash, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.RunForever(ctx)
	}()

	require.Eventually(t, func() bool { return dash.computed.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunForever did not return after cancel")
	}
}

func TestNewRefresherValidates(t *testing.T) {
	_, err := NewRefresher(Options{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultInterval, cfg.Interval())
	assert.Equal(t, DefaultFetchTimeout+lockMargin, cfg.LockTTL())

	cfg = Config{RefreshInterval: func() time.Duration { return -time.Second }}.withDefaults()
	assert.Equal(t, DefaultInterval, cfg.Interval())
}

type countingPusher struct {
	pushes atomic.Int32
	err    error
}

func (p *countingPusher) Push(context.Context) error {
	p.pushes.Add(1)
	return p.err
}

func TestRefreshPushesMetricsAfterRun(t *testing.T) {
	r, _ := newTestRefresher(t, &gatedFetcher{snap: leadsSnapshot(1)}, &countingDashboard{}, nil)
	pusher := &countingPusher{err: errors.New("gateway down")}
	r.pusher = pusher

	_, err := r.Refresh(context.Background())
	require.NoError(t, err, "a failed push does not fail the run")
	assert.EqualValues(t, 1, pusher.pushes.Load())
}
