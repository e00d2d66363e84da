package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/migration"
	"github.com/smallbiznis/innkeeper/internal/observability"
	"github.com/smallbiznis/innkeeper/internal/server"
	"github.com/smallbiznis/innkeeper/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema and seeds must exist before any route is served.
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
