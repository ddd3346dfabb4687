package deadletter

import (
	"creator-missions/pkg/config"
	"creator-missions/pkg/task"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("deadletter.service",
	fx.Provide(
		NewService,
		func(s *Service) task.DeadLetterSink { return s },
	),
	fx.Invoke(migrate),
)

func migrate(cfg *config.Config, db *gorm.DB) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	return db.AutoMigrate(&FailedJob{})
}
