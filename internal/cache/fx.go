package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/studioledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cache",
	fx.Provide(
		provideRedis,
		NewMemoryStore,
		provideResultStore,
	),
)

func provideRedis(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, results stay local until it recovers", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

type ResultParams struct {
	fx.In

	Local    *MemoryStore
	Redis    *redis.Client `optional:"true"`
	Settings *config.DashboardConfigHolder
	Log      *zap.Logger
}

func provideResultStore(p ResultParams) ResultStore {
	var shared ResultStore
	if p.Redis != nil {
		shared = NewRedisStore(p.Redis, DefaultResultKey, func() time.Duration {
			return p.Settings.Get().CacheTTL
		})
	}
	return NewLayered(p.Local, shared, p.Log)
}
