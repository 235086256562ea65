package snapshot

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/studioledger/internal/clock"
	"github.com/smallbiznis/studioledger/internal/config"
	"github.com/smallbiznis/studioledger/internal/observability/metrics"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/smallbiznis/studioledger/internal/snapshot/sheets"
	"github.com/smallbiznis/studioledger/internal/snapshot/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("snapshot",
	fx.Provide(
		provideStore,
		provideFetcher,
	),
)

type StoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	DB        *gorm.DB `optional:"true"`
	GenID     *snowflake.Node
}

func provideStore(p StoreParams) *store.Store {
	if p.DB == nil {
		return nil
	}
	s := store.New(p.DB, p.GenID)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Migrate(ctx)
		},
	})
	return s
}

type Params struct {
	fx.In

	Config   config.Config
	Settings *config.DashboardConfigHolder
	Store    *store.Store `optional:"true"`
	Clock    clock.Clock
	Log      *zap.Logger
	Metrics  *metrics.RefreshMetrics
}

func provideFetcher(p Params) (*Fetcher, error) {
	cfg := FetcherConfig{
		Timeout: func() time.Duration { return p.Settings.Get().FetchTimeout },
		Clock:   p.Clock,
		Log:     p.Log,
		Metrics: p.Metrics,
	}

	switch p.Config.Source.Type {
	case config.SourceDatabase:
		if p.Store == nil {
			return nil, ErrNoSource
		}
		cfg.Primary = p.Store
	default:
		sc := p.Config.Source.Sheets
		client, err := sheets.NewClient(context.Background(), sc.SpreadsheetID, sc.CredentialsFile, sheets.Ranges{
			records.CollectionLeads:         sc.LeadsRange,
			records.CollectionEvents:        sc.EventsRange,
			records.CollectionPayments:      sc.PaymentsRange,
			records.CollectionPhotographers: sc.PhotographersRange,
		})
		if err != nil {
			return nil, err
		}
		cfg.Primary = client
		if p.Config.Source.Mirror && p.Store != nil {
			cfg.Mirror = p.Store
		}
	}

	p.Log.Info("snapshot source configured",
		zap.String("source", cfg.Primary.Name()),
		zap.Bool("mirror", cfg.Mirror != nil),
	)
	return NewFetcher(cfg)
}
