package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	dashboard "github.com/smallbiznis/studioledger/internal/dashboard/domain"
	ledgerdomain "github.com/smallbiznis/studioledger/internal/ledger/domain"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(gen uint64) Entry {
	return Entry{
		RunID:      "run-1",
		Generation: gen,
		StoredAt:   time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
		Result: dashboard.Result{
			Stats: dashboard.Stats{TotalLeads: 4, TotalRevenue: decimal.NewFromInt(25000)},
			ClientLedgers: map[string]ledgerdomain.ClientLedger{
				"L-1": {LeadID: "L-1", Budget: decimal.NewFromInt(50000), Status: records.ClientPaymentPartialPaid},
			},
		},
	}
}

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expiry is inclusive")
	_, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Delete("b")
	assert.Equal(t, 0, c.Len())
}

func TestMemoryStoreKeepsNewestGeneration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Save(ctx, sampleEntry(3)))
	require.NoError(t, s.Save(ctx, sampleEntry(2)))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Generation)
}

func TestMemoryStoreOrdersByRunStart(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	earlier := sampleEntry(50)
	later := sampleEntry(1)
	later.StartedAt = earlier.StartedAt.Add(time.Minute)

	require.NoError(t, s.Save(ctx, later))
	require.NoError(t, s.Save(ctx, earlier))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Generation)
	assert.True(t, later.NewerThan(earlier))
	assert.False(t, earlier.NewerThan(later))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTripWithTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	s := NewRedisStore(client, "", func() time.Duration { return 15 * time.Minute })

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Save(ctx, sampleEntry(7)))
	assert.Equal(t, 15*time.Minute, mr.TTL(DefaultResultKey))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Generation)
	assert.Equal(t, 4, got.Result.Stats.TotalLeads)
	assert.True(t, decimal.NewFromInt(25000).Equal(got.Result.Stats.TotalRevenue))
	assert.Equal(t, records.ClientPaymentPartialPaid, got.Result.ClientLedgers["L-1"].Status)

	mr.FastForward(16 * time.Minute)
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStoreRejectsCorruptPayload(t *testing.T) {
	mr, client := newRedis(t)
	require.NoError(t, mr.Set(DefaultResultKey, "{not json"))

	_, err := NewRedisStore(client, "", nil).Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

func TestLayeredReadsThroughAndBackfills(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	shared := NewRedisStore(client, "", nil)
	require.NoError(t, shared.Save(ctx, sampleEntry(5)))

	local := NewMemoryStore()
	l := NewLayered(local, shared, nil)

	got, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Generation)

	backfilled, err := local.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), backfilled.Generation)
}

func TestLayeredSurvivesSharedOutage(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	l := NewLayered(NewMemoryStore(), NewRedisStore(client, "", nil), nil)

	mr.Close()
	err := l.Save(ctx, sampleEntry(1))
	require.Error(t, err)

	got, err := l.Load(ctx)
	require.NoError(t, err, "local copy is served")
	assert.Equal(t, uint64(1), got.Generation)
}

func TestLayeredWithoutShared(t *testing.T) {
	l := NewLayered(NewMemoryStore(), nil, nil)
	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLayeredReplicasShareNewestResult(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	start := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	replicaA := NewLayered(NewMemoryStore(), NewRedisStore(client, "", nil), nil)
	replicaB := NewLayered(NewMemoryStore(), NewRedisStore(client, "", nil), nil)

	fromA := sampleEntry(50)
	fromA.RunID = "a-50"
	fromA.StartedAt = start
	require.NoError(t, replicaA.Save(ctx, fromA))

	backfilled, err := replicaB.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a-50", backfilled.RunID)

	fromB := sampleEntry(1)
	fromB.RunID = "b-1"
	fromB.StartedAt = start.Add(5 * time.Minute)
	require.NoError(t, replicaB.Save(ctx, fromB))

	served, err := replicaB.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b-1", served.RunID)

	shared, err := NewRedisStore(client, "", nil).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b-1", shared.RunID)
}
