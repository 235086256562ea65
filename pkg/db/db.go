package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/studioledger/internal/config"
	obslogger "github.com/smallbiznis/studioledger/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

// Module provides a *gorm.DB when the configured source needs one. It
// provides a nil *gorm.DB otherwise.
var Module = fx.Module("db",
	fx.Provide(provide),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

func provide(p Params) (*gorm.DB, error) {
	if !p.Config.DatabaseEnabled() {
		return nil, nil
	}
	conn, err := Open(ConfigFrom(p.Config), p.Log)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return Close(conn)
		},
	})
	return conn, nil
}

// Open connects, applies pool settings and attaches instrumentation.
func Open(cfg Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(log, obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if cfg.Instrument {
		name := strings.TrimSpace(cfg.Name)
		if err := conn.Use(otelgorm.NewPlugin(
			otelgorm.WithDBName(name),
			otelgorm.WithoutQueryVariables(),
		)); err != nil {
			return nil, err
		}
		if err := conn.Use(gormprometheus.New(gormprometheus.Config{
			DBName:          name,
			RefreshInterval: 15,
		})); err != nil {
			return nil, err
		}
	}

	if log != nil {
		log.Info("database connected", zap.String("type", cfg.Type), zap.String("name", cfg.Name))
	}
	return conn, nil
}

func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
