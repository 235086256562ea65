package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/studioledger/internal/cache"
	"github.com/smallbiznis/studioledger/internal/config"
	"github.com/smallbiznis/studioledger/internal/observability"
	obslogger "github.com/smallbiznis/studioledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/studioledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/studioledger/internal/observability/tracing"
	"github.com/smallbiznis/studioledger/internal/providers/pdf"
	"github.com/smallbiznis/studioledger/internal/refresh"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(
		NewEngine,
		provideResults,
		NewServer,
	),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

// Results serves published dashboard results and triggers new runs.
type Results interface {
	Latest(ctx context.Context) (cache.Entry, error)
	Refresh(ctx context.Context) (cache.Entry, error)
}

func provideResults(r *refresh.Refresher) Results {
	return r
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine   *gin.Engine
	Config   config.Config
	Settings *config.DashboardConfigHolder
	Results  Results
	PDF      pdf.Provider
	Log      *zap.Logger
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	settings   *config.DashboardConfigHolder
	results    Results
	pdf        pdf.Provider
	log        *zap.Logger
	statements cache.Cache[string, []byte]
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Config,
		settings:   p.Settings,
		results:    p.Results,
		pdf:        p.PDF,
		log:        p.Log.Named("http.server"),
		statements: cache.NewTTLCache[string, []byte](),
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/dashboard", s.GetDashboard)
		api.POST("/dashboard/refresh", s.RefreshDashboard)
		api.GET("/events/upcoming", s.ListUpcomingEvents)
		api.GET("/clients", s.ListClientLedgers)
		api.GET("/clients/:id/ledger", s.GetClientLedger)
		api.GET("/clients/:id/statement.pdf", s.GetClientStatement)
	}
}
