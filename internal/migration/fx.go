package migration

import (
	"context"

	"github.com/smallbiznis/innkeeper/internal/config"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, refs refdomain.Repository, log *zap.Logger) error {
		switch {
		case db.IsPostgres(conn):
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		case cfg.DBAutoMigrate:
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		default:
			log.Warn("schema migrations skipped", zap.String("database_type", cfg.DBType))
		}
		return refs.Seed(context.Background())
	}),
)
