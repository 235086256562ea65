package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"gorm.io/gorm"
)

const (
	RefreshOutcomeSuccess    = "success"
	RefreshOutcomeDegraded   = "degraded"
	RefreshOutcomeSuperseded = "superseded"
	RefreshOutcomeFailed     = "failed"
	RefreshOutcomeSkipped    = "skipped"
)

const (
	FetchOutcomeOK       = "ok"
	FetchOutcomeFallback = "fallback"
	FetchOutcomeFailed   = "failed"
)

const (
	RefreshReasonDeadlineExceeded  = "deadline_exceeded"
	RefreshReasonCanceled          = "canceled"
	RefreshReasonSourceUnavailable = "source_unavailable"
	RefreshReasonDBLockTimeout     = "db_lock_timeout"
	RefreshReasonUniqueViolation   = "unique_violation"
	RefreshReasonDB                = "db"
	RefreshReasonUnknown           = "unknown"
)

// RefreshMetrics captures dashboard refresh health.
type RefreshMetrics struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Observer
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	issues        *prometheus.CounterVec
	runLoopLag    prometheus.Observer
	lastSuccess   prometheus.Gauge
	sourceRecords *prometheus.GaugeVec
}

var (
	refreshMetricsOnce sync.Once
	refreshMetrics     *RefreshMetrics
)

// Refresh returns the process-wide refresh metrics registered on the default registerer.
func Refresh() *RefreshMetrics {
	return RefreshWithConfig(Config{})
}

func RefreshWithConfig(cfg Config) *RefreshMetrics {
	refreshMetricsOnce.Do(func() {
		refreshMetrics = NewRefreshMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return refreshMetrics
}

// NewRefreshMetrics registers a fresh set of collectors on registerer.
func NewRefreshMetrics(registerer prometheus.Registerer, cfg Config) *RefreshMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "studioledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "studioledger_refresh_runs_total",
		Help:        "Dashboard refresh runs by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "studioledger_refresh_duration_seconds",
		Help:        "Wall time of a refresh run from fetch to publish.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		ConstLabels: constLabels,
	})
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "studioledger_source_fetch_duration_seconds",
		Help:        "Latency of a single collection fetch.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"collection", "outcome"})
	fetchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "studioledger_source_fetch_errors_total",
		Help:        "Collection fetch failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"collection", "reason"})
	issues := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "studioledger_data_quality_issues_total",
		Help:        "Normalization fallbacks by collection and kind.",
		ConstLabels: constLabels,
	}, []string{"collection", "kind"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "studioledger_refresh_runloop_lag_seconds",
		Help:        "Refresh loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "studioledger_refresh_last_success_timestamp_seconds",
		Help:        "Unix time of the last published refresh.",
		ConstLabels: constLabels,
	})
	sourceRecords := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "studioledger_source_records",
		Help:        "Records in the last fetched snapshot per collection.",
		ConstLabels: constLabels,
	}, []string{"collection"})

	registerer.MustRegister(
		runs,
		runDuration,
		fetchDuration,
		fetchErrors,
		issues,
		runLoopLag,
		lastSuccess,
		sourceRecords,
	)

	return &RefreshMetrics{
		runs:          runs,
		runDuration:   runDuration,
		fetchDuration: fetchDuration,
		fetchErrors:   fetchErrors,
		issues:        issues,
		runLoopLag:    runLoopLag,
		lastSuccess:   lastSuccess,
		sourceRecords: sourceRecords,
	}
}

// ObserveRun records the outcome and duration of a refresh run.
func (m *RefreshMetrics) ObserveRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if outcome == RefreshOutcomeSkipped {
		return
	}
	m.runDuration.Observe(duration.Seconds())
}

func (m *RefreshMetrics) MarkPublished(at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.Set(float64(at.Unix()))
}

func (m *RefreshMetrics) ObserveFetch(collection records.CollectionName, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(string(collection), outcome).Observe(duration.Seconds())
}

func (m *RefreshMetrics) IncFetchError(collection records.CollectionName, err error) {
	if m == nil || err == nil {
		return
	}
	m.fetchErrors.WithLabelValues(string(collection), ClassifyRefreshReason(err)).Inc()
}

func (m *RefreshMetrics) AddIssues(collection records.CollectionName, kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.issues.WithLabelValues(string(collection), kind).Add(float64(count))
}

func (m *RefreshMetrics) SetSourceRecords(collection records.CollectionName, count int) {
	if m == nil {
		return
	}
	m.sourceRecords.WithLabelValues(string(collection)).Set(float64(count))
}

// ObserveRunLoopLag records lag between the scheduled tick and the actual run start.
func (m *RefreshMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.runLoopLag.Observe(duration.Seconds())
}

// ClassifyRefreshReason maps an error to a low-cardinality label.
func ClassifyRefreshReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return RefreshReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return RefreshReasonCanceled
	case hasPGCode(err, "55P03"):
		return RefreshReasonDBLockTimeout
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return RefreshReasonUniqueViolation
	case isDBError(err):
		return RefreshReasonDB
	case errors.Is(err, records.ErrSourceUnavailable):
		return RefreshReasonSourceUnavailable
	default:
		return RefreshReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrNotImplemented) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
