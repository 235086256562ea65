package service

import (
	"github.com/smallbiznis/studioledger/internal/clock"
	"github.com/smallbiznis/studioledger/internal/config"
	dashboard "github.com/smallbiznis/studioledger/internal/dashboard/domain"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Settings *config.DashboardConfigHolder
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	settings *config.DashboardConfigHolder
}

func NewService(p Params) dashboard.Service {
	return &Service{
		log:      p.Log.Named("dashboard.service"),
		clock:    p.Clock,
		settings: p.Settings,
	}
}

// Compute runs the engine with the settings current at call time.
func (s *Service) Compute(snapshot records.Snapshot) dashboard.Result {
	opts := OptionsFromConfig(s.settings.Get())
	result := Compute(snapshot, opts, s.clock.Now())
	s.log.Debug("dashboard computed",
		zap.Int("leads", result.Stats.TotalLeads),
		zap.Int("events", result.Stats.TotalEvents),
		zap.Int("payments", result.Stats.TotalPayments),
		zap.Int("upcoming", result.Stats.UpcomingEvents),
		zap.Int("issues", len(result.Issues)),
	)
	return result
}
