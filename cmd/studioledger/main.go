package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/studioledger/internal/cache"
	"github.com/smallbiznis/studioledger/internal/clock"
	"github.com/smallbiznis/studioledger/internal/config"
	"github.com/smallbiznis/studioledger/internal/dashboard"
	"github.com/smallbiznis/studioledger/internal/observability"
	"github.com/smallbiznis/studioledger/internal/providers"
	"github.com/smallbiznis/studioledger/internal/refresh"
	"github.com/smallbiznis/studioledger/internal/server"
	"github.com/smallbiznis/studioledger/internal/snapshot"
	"github.com/smallbiznis/studioledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,

		// Dashboard pipeline
		snapshot.Module,
		dashboard.Module,
		refresh.Module,
		providers.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
