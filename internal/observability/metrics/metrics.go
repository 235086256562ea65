package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments pushed over OTLP.
type Metrics struct {
	refreshRuns    metric.Int64Counter
	sourceFailures metric.Int64Counter
	dataIssues     metric.Int64Counter
	ledgerOverdue  metric.Int64Gauge
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "studioledger"
	}
	meter := provider.Meter(name)

	refreshRuns, err := meter.Int64Counter("studioledger_refresh_total")
	if err != nil {
		return nil, err
	}
	sourceFailures, err := meter.Int64Counter("studioledger_source_failures_total")
	if err != nil {
		return nil, err
	}
	dataIssues, err := meter.Int64Counter("studioledger_data_issues_total")
	if err != nil {
		return nil, err
	}
	ledgerOverdue, err := meter.Int64Gauge("studioledger_overdue_clients")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		refreshRuns:    refreshRuns,
		sourceFailures: sourceFailures,
		dataIssues:     dataIssues,
		ledgerOverdue:  ledgerOverdue,
	}, nil
}

// RecordRefresh counts a finished refresh run.
func (m *Metrics) RecordRefresh(ctx context.Context, source, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.refreshRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSourceFailure counts a collection that could not be fetched.
func (m *Metrics) RecordSourceFailure(ctx context.Context, collection, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("collection", strings.TrimSpace(collection)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.sourceFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDataIssues counts normalization fallbacks.
func (m *Metrics) RecordDataIssues(ctx context.Context, collection, kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("collection", strings.TrimSpace(collection)),
		attribute.String("kind", strings.TrimSpace(kind)),
	)
	m.dataIssues.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordOverdueClients(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.ledgerOverdue.Record(ctx, int64(count))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"collection":  {},
	"outcome":     {},
	"kind":        {},
	"source":      {},
	"reason":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
