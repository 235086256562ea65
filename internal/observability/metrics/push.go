package metrics

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Pusher sends gathered metrics to a collector that cannot scrape this process.
type Pusher interface {
	Push(ctx context.Context) error
}

// PushgatewayPusher pushes a gatherer to a Prometheus Pushgateway under one job.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
	gatherer prometheus.Gatherer
}

// NewPushgatewayPusher returns nil when endpoint is empty.
func NewPushgatewayPusher(endpoint, job string, grouping map[string]string, gatherer prometheus.Gatherer) *PushgatewayPusher {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &PushgatewayPusher{
		endpoint: endpoint,
		job:      strings.TrimSpace(job),
		grouping: grouping,
		gatherer: gatherer,
	}
}

func (p *PushgatewayPusher) Push(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if p.job == "" {
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(p.gatherer)
	for key, value := range p.grouping {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}
	return pusher.PushContext(ctx)
}
