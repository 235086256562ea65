package refresh

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/studioledger/internal/cache"
	"github.com/smallbiznis/studioledger/internal/clock"
	"github.com/smallbiznis/studioledger/internal/config"
	dashboard "github.com/smallbiznis/studioledger/internal/dashboard/domain"
	"github.com/smallbiznis/studioledger/internal/observability/metrics"
	"github.com/smallbiznis/studioledger/internal/snapshot"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("refresh",
	fx.Provide(New),
	fx.Invoke(Start),
)

type Params struct {
	fx.In

	Config    config.Config
	Settings  *config.DashboardConfigHolder
	Fetcher   *snapshot.Fetcher
	Dashboard dashboard.Service
	Store     cache.ResultStore
	Redis     *redis.Client `optional:"true"`
	GenID     *snowflake.Node
	Clock     clock.Clock
	Log       *zap.Logger
	Metrics   *metrics.RefreshMetrics
	OTel      *metrics.Metrics `optional:"true"`
}

func New(p Params) (*Refresher, error) {
	return NewRefresher(Options{
		Fetcher:   p.Fetcher,
		Dashboard: p.Dashboard,
		Store:     p.Store,
		Locker:    NewLocker(p.Redis),
		GenID:     p.GenID,
		Clock:     p.Clock,
		Log:       p.Log,
		Metrics:   p.Metrics,
		OTel:      p.OTel,
		Pusher: metrics.NewPushgatewayPusher(p.Config.PushgatewayURL, p.Config.AppName, map[string]string{
			"environment": p.Config.Environment,
		}, prometheus.DefaultGatherer),
		Config: Config{
			Source:          p.Config.Source.Type,
			RefreshInterval: func() time.Duration { return p.Settings.Get().RefreshInterval },
			FetchTimeout:    func() time.Duration { return p.Settings.Get().FetchTimeout },
		},
	})
}

// Start runs the refresh loop for the lifetime of the app.
func Start(lc fx.Lifecycle, r *Refresher) {
	var cancel context.CancelFunc
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				r.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
