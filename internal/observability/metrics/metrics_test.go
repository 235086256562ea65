package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("collection", "leads"),
		attribute.String("client_name", "Asha Rao"),
		attribute.String("kind", "malformed_amount"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("collection"), attrs[0].Key)
	assert.Equal(t, attribute.Key("kind"), attrs[1].Key)
}

func TestClassifyRefreshReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: fmt.Errorf("fetch leads: %w", context.DeadlineExceeded), want: RefreshReasonDeadlineExceeded},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: RefreshReasonDBLockTimeout},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: RefreshReasonUniqueViolation},
		{name: "other pg", err: &pgconn.PgError{Code: "42P01"}, want: RefreshReasonDB},
		{name: "gorm invalid db", err: gorm.ErrInvalidDB, want: RefreshReasonDB},
		{name: "source", err: fmt.Errorf("sheets: %w", records.ErrSourceUnavailable), want: RefreshReasonSourceUnavailable},
		{name: "unknown", err: errors.New("boom"), want: RefreshReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRefreshReason(tt.err))
		})
	}
}

func TestRefreshMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRefreshMetrics(reg, Config{ServiceName: "test", Environment: "ci"})

	m.ObserveRun(RefreshOutcomeSuccess, 2*time.Second)
	m.ObserveRun(RefreshOutcomeSuccess, time.Second)
	m.ObserveRun(RefreshOutcomeSuperseded, time.Second)
	m.ObserveRun(RefreshOutcomeSkipped, 0)
	m.IncFetchError(records.CollectionPayments, records.ErrSourceUnavailable)
	m.AddIssues(records.CollectionLeads, "malformed_amount", 3)
	m.AddIssues(records.CollectionLeads, "malformed_amount", 0)
	m.SetSourceRecords(records.CollectionEvents, 12)
	m.MarkPublished(time.Unix(1700000000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(RefreshOutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(RefreshOutcomeSuperseded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(RefreshOutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchErrors.WithLabelValues("payments", RefreshReasonSourceUnavailable)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.issues.WithLabelValues("leads", "malformed_amount")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.sourceRecords.WithLabelValues("events")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastSuccess))
}

func TestNilRefreshMetricsIsSafe(t *testing.T) {
	var m *RefreshMetrics
	m.ObserveRun(RefreshOutcomeFailed, time.Second)
	m.ObserveFetch(records.CollectionLeads, FetchOutcomeFailed, time.Second)
	m.ObserveRunLoopLag(-time.Second)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWithRegisterer(reg, Config{})

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/clients/:id/ledger", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/api/clients/L-1/ledger", "/api/clients/L-2/ledger", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/clients/:id/ledger", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unknown", "404")))
}

func TestPushgatewayPusher(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := NewRefreshMetrics(reg, Config{ServiceName: "studioledger", Environment: "test"})
	m.ObserveRun(RefreshOutcomeSuccess, time.Second)

	pusher := NewPushgatewayPusher(srv.URL, "studioledger", map[string]string{"environment": "test", "": "skip"}, reg)
	require.NotNil(t, pusher)
	require.NoError(t, pusher.Push(context.Background()))
	assert.Equal(t, "/metrics/job/studioledger/environment/test", gotPath)

	assert.Nil(t, NewPushgatewayPusher("  ", "studioledger", nil, reg))
	var nilPusher *PushgatewayPusher
	assert.NoError(t, nilPusher.Push(context.Background()))
}
