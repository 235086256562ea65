// Package refresh periodically fetches a snapshot, computes the dashboard and
// publishes the result. Every run takes a generation; a run that finishes
// after a newer one has started is discarded.
package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/studioledger/internal/cache"
	"github.com/smallbiznis/studioledger/internal/clock"
	dashboard "github.com/smallbiznis/studioledger/internal/dashboard/domain"
	"github.com/smallbiznis/studioledger/internal/normalize"
	obscontext "github.com/smallbiznis/studioledger/internal/observability/context"
	obslogger "github.com/smallbiznis/studioledger/internal/observability/logger"
	"github.com/smallbiznis/studioledger/internal/observability/metrics"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const pushTimeout = 5 * time.Second

var (
	ErrSuperseded    = errors.New("refresh_superseded")
	ErrLockHeld      = errors.New("refresh_in_progress")
	ErrInvalidConfig = errors.New("invalid_refresh_config")
)

// SnapshotFetcher loads a snapshot. The snapshot is usable even when an error
// reports unavailable collections.
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (records.Snapshot, error)
}

type Refresher struct {
	fetcher   SnapshotFetcher
	dashboard dashboard.Service
	store     cache.ResultStore
	locker    *Locker
	genID     *snowflake.Node
	clock     clock.Clock
	log       *zap.Logger
	cfg       Config
	metrics   *metrics.RefreshMetrics
	otel      *metrics.Metrics
	pusher    metrics.Pusher

	generation atomic.Uint64
}

type Options struct {
	Fetcher   SnapshotFetcher
	Dashboard dashboard.Service
	Store     cache.ResultStore
	Locker    *Locker
	GenID     *snowflake.Node
	Clock     clock.Clock
	Log       *zap.Logger
	Config    Config
	Metrics   *metrics.RefreshMetrics
	OTel      *metrics.Metrics
	Pusher    metrics.Pusher
}

func NewRefresher(o Options) (*Refresher, error) {
	if o.Fetcher == nil || o.Dashboard == nil || o.Store == nil || o.GenID == nil || o.Clock == nil || o.Log == nil {
		return nil, ErrInvalidConfig
	}
	return &Refresher{
		fetcher:   o.Fetcher,
		dashboard: o.Dashboard,
		store:     o.Store,
		locker:    o.Locker,
		genID:     o.GenID,
		clock:     o.Clock,
		log:       o.Log.Named("refresh").With(zap.String("component", "refresher")),
		cfg:       o.Config.withDefaults(),
		metrics:   o.Metrics,
		otel:      o.OTel,
		pusher:    o.Pusher,
	}, nil
}

// Generation returns the generation of the most recently started run.
func (r *Refresher) Generation() uint64 {
	return r.generation.Load()
}

// Refresh runs one fetch-compute-publish cycle.
func (r *Refresher) Refresh(ctx context.Context) (cache.Entry, error) {
	gen := r.generation.Add(1)
	runID := r.genID.Generate().String()
	began := time.Now()
	startedAt := r.clock.Now()

	ctx = obscontext.WithRunID(ctx, runID)
	ctx = obscontext.WithActor(ctx, "system", "refresher")
	ctx, span := otel.Tracer("studioledger/refresh").Start(ctx, "refresh.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int64("generation", int64(gen)),
	)
	log := obslogger.WithRun(r.log, runID, gen)

	if r.locker != nil {
		token, ok, err := r.locker.TryLock(ctx, lockKey, r.cfg.LockTTL())
		switch {
		case err != nil:
			log.Warn("refresh lock unavailable, running unlocked", zap.Error(err))
		case !ok:
			r.finish(ctx, metrics.RefreshOutcomeSkipped, began)
			log.Debug("refresh already running elsewhere")
			return cache.Entry{}, ErrLockHeld
		default:
			defer func() {
				if err := r.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
					log.Warn("refresh lock release failed", zap.Error(err))
				}
			}()
		}
	}

	snap, fetchErr := r.fetcher.Fetch(ctx)
	if fetchErr != nil {
		log.Warn("snapshot incomplete",
			zap.String("reason", metrics.ClassifyRefreshReason(fetchErr)),
			zap.Error(fetchErr),
		)
		for _, name := range records.Collections {
			if c, _ := snap.Get(name); !c.Available {
				r.otel.RecordSourceFailure(ctx, string(name), metrics.ClassifyRefreshReason(fetchErr))
			}
		}
	}
	if r.superseded(gen) {
		return r.discard(ctx, log, began)
	}

	result := r.dashboard.Compute(snap)
	r.reportIssues(ctx, log, result.Issues)
	if r.superseded(gen) {
		return r.discard(ctx, log, began)
	}

	entry := cache.Entry{
		RunID:      runID,
		Generation: gen,
		Result:     result,
		StartedAt:  startedAt,
		StoredAt:   r.clock.Now(),
	}
	if err := r.store.Save(ctx, entry); err != nil {
		log.Warn("result store save failed", zap.Error(err))
	}

	outcome := metrics.RefreshOutcomeSuccess
	if degraded(result) {
		outcome = metrics.RefreshOutcomeDegraded
		span.SetStatus(codes.Error, "degraded snapshot")
	}
	r.finish(ctx, outcome, began)
	r.metrics.MarkPublished(entry.StoredAt)
	r.otel.RecordOverdueClients(ctx, result.Stats.OverdueClients)

	log.Info("dashboard refreshed",
		zap.String("outcome", outcome),
		zap.Int("leads", result.Stats.TotalLeads),
		zap.Int("upcoming_events", result.Stats.UpcomingEvents),
		zap.Int("issues", len(result.Issues)),
		zap.Duration("duration", time.Since(began)),
	)
	return entry, nil
}

// Latest returns the published result, computing one if nothing has been
// published yet.
func (r *Refresher) Latest(ctx context.Context) (cache.Entry, error) {
	entry, err := r.store.Load(ctx)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return cache.Entry{}, err
	}
	entry, err = r.Refresh(ctx)
	if errors.Is(err, ErrSuperseded) || errors.Is(err, ErrLockHeld) {
		return r.store.Load(ctx)
	}
	return entry, err
}

// RunForever refreshes immediately and then on every interval tick until ctx ends.
func (r *Refresher) RunForever(ctx context.Context) {
	interval := r.cfg.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	nextRun := time.Now()

	for {
		if lag := time.Since(nextRun); lag > 0 {
			r.metrics.ObserveRunLoopLag(lag)
		}
		if _, err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrLockHeld) {
			r.log.Warn("refresh run failed", zap.Error(err))
		}

		if next := r.cfg.Interval(); next != interval {
			r.log.Info("refresh interval changed", zap.Duration("from", interval), zap.Duration("to", next))
			interval = next
			ticker.Reset(interval)
		}
		nextRun = time.Now().Add(interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Refresher) superseded(gen uint64) bool {
	return r.generation.Load() != gen
}

func (r *Refresher) discard(ctx context.Context, log *zap.Logger, began time.Time) (cache.Entry, error) {
	log.Info("refresh superseded by a newer run, discarding", zap.Uint64("latest_generation", r.generation.Load()))
	r.finish(ctx, metrics.RefreshOutcomeSuperseded, began)
	return cache.Entry{}, ErrSuperseded
}

func (r *Refresher) finish(ctx context.Context, outcome string, began time.Time) {
	r.metrics.ObserveRun(outcome, time.Since(began))
	r.otel.RecordRefresh(ctx, r.cfg.Source, outcome)

	if r.pusher == nil || outcome == metrics.RefreshOutcomeSkipped {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := r.pusher.Push(pushCtx); err != nil {
		r.log.Warn("failed to push refresh metrics", zap.Error(err))
	}
}

func (r *Refresher) reportIssues(ctx context.Context, log *zap.Logger, issues []normalize.Issue) {
	type key struct {
		collection records.CollectionName
		kind       normalize.IssueKind
	}
	counts := make(map[key]int)
	for _, issue := range issues {
		counts[key{issue.Collection, issue.Kind}]++
		log.Debug("data quality issue",
			zap.String("collection", string(issue.Collection)),
			zap.String("record_id", issue.RecordID),
			zap.Int("index", issue.Index),
			zap.String("field", issue.Field),
			zap.String("raw", issue.Raw),
			zap.String("kind", string(issue.Kind)),
		)
	}
	for k, n := range counts {
		r.metrics.AddIssues(k.collection, string(k.kind), n)
		r.otel.RecordDataIssues(ctx, string(k.collection), string(k.kind), n)
	}
	if len(issues) > 0 {
		log.Warn("data quality issues found", zap.Int("count", len(issues)))
	}
}

func degraded(result dashboard.Result) bool {
	for _, state := range result.Sources {
		if !state.Available || state.Stale {
			return true
		}
	}
	return false
}
