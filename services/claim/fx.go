package claim

import (
	"creator-missions/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("claim.store",
	fx.Provide(NewStore),
	fx.Invoke(migrate),
)

func migrate(cfg *config.Config, db *gorm.DB) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		zap.L().Error("[DB] claim store migration failed", zap.Error(err))
		return err
	}
	return nil
}
