package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/studioledger/internal/clock"
	"github.com/smallbiznis/studioledger/internal/observability/metrics"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultFetchTimeout = 30 * time.Second

var ErrNoSource = errors.New("snapshot_source_not_configured")

type FetcherConfig struct {
	Primary Source
	// Mirror is optional. Successful primary fetches are written to it and
	// it serves a stale copy when the primary fails.
	Mirror  Mirror
	Timeout func() time.Duration
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.RefreshMetrics
}

type Fetcher struct {
	primary Source
	mirror  Mirror
	timeout func() time.Duration
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.RefreshMetrics
}

func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Primary == nil {
		return nil, ErrNoSource
	}
	if cfg.Timeout == nil {
		cfg.Timeout = func() time.Duration { return DefaultFetchTimeout }
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Fetcher{
		primary: cfg.Primary,
		mirror:  cfg.Mirror,
		timeout: cfg.Timeout,
		clock:   cfg.Clock,
		log:     cfg.Log.Named("snapshot.fetcher"),
		metrics: cfg.Metrics,
	}, nil
}

// Fetch loads every collection concurrently and waits for all of them. The
// snapshot is always usable; the returned error joins the failures of the
// collections that ended up unavailable.
func (f *Fetcher) Fetch(ctx context.Context) (records.Snapshot, error) {
	ctx, span := otel.Tracer("studioledger/snapshot").Start(ctx, "snapshot.fetch")
	defer span.End()

	timeout := f.timeout()
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]records.Collection, len(records.Collections))
	failures := make([]error, len(records.Collections))

	var g errgroup.Group
	for i, name := range records.Collections {
		g.Go(func() error {
			results[i], failures[i] = f.fetchOne(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	var snap records.Snapshot
	for i, name := range records.Collections {
		snap = snap.With(name, results[i])
		span.SetAttributes(attribute.Bool("snapshot."+string(name)+".available", results[i].Available))
	}

	err := errors.Join(failures...)
	if err != nil {
		span.SetStatus(codes.Error, "collections unavailable")
	}
	return snap, err
}

func (f *Fetcher) fetchOne(ctx context.Context, name records.CollectionName) (records.Collection, error) {
	start := f.clock.Now()
	began := time.Now()
	rows, err := f.primary.Fetch(ctx, name)
	if err == nil {
		f.metrics.ObserveFetch(name, metrics.FetchOutcomeOK, time.Since(began))
		f.metrics.SetSourceRecords(name, len(rows))
		f.writeThrough(ctx, name, rows, start)
		return records.Loaded(rows, start), nil
	}

	err = fmt.Errorf("%s from %s: %w", name, f.primary.Name(), err)
	f.metrics.IncFetchError(name, err)
	log := f.log.With(zap.String("collection", string(name)), zap.String("source", f.primary.Name()))

	if f.mirror != nil {
		mirrored, syncedAt, mirrorErr := f.mirror.Load(ctx, name)
		if mirrorErr == nil {
			log.Warn("serving mirrored copy", zap.Error(err), zap.Time("synced_at", syncedAt))
			f.metrics.ObserveFetch(name, metrics.FetchOutcomeFallback, time.Since(began))
			c := records.Loaded(mirrored, syncedAt)
			c.Stale = true
			c.Error = err.Error()
			return c, nil
		}
		err = errors.Join(err, fmt.Errorf("%s from %s: %w", name, f.mirror.Name(), mirrorErr))
	}

	log.Error("collection unavailable", zap.Error(err))
	f.metrics.ObserveFetch(name, metrics.FetchOutcomeFailed, time.Since(began))
	return records.Unavailable(err, start), err
}

func (f *Fetcher) writeThrough(ctx context.Context, name records.CollectionName, rows []records.RawRecord, at time.Time) {
	if f.mirror == nil || Source(f.mirror) == f.primary {
		return
	}
	if err := f.mirror.Replace(ctx, name, rows, at); err != nil {
		f.log.Warn("mirror write failed",
			zap.String("collection", string(name)),
			zap.String("reason", metrics.ClassifyRefreshReason(err)),
			zap.Error(err),
		)
	}
}
