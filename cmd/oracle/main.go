package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"creator-missions/pkg/config"
	"creator-missions/pkg/db"
	"creator-missions/pkg/gen"
	"creator-missions/pkg/hashistack/secretmanager"
	"creator-missions/pkg/health"
	"creator-missions/pkg/ledger"
	"creator-missions/pkg/logger"
	"creator-missions/pkg/metrics"
	"creator-missions/pkg/metricsource"
	"creator-missions/pkg/otelcol"
	"creator-missions/pkg/redis"
	"creator-missions/pkg/task"
	"creator-missions/services/claim"
	"creator-missions/services/deadletter"
	"creator-missions/services/pipeline"
	"creator-missions/services/scanner"
)

// oracle runs the three pipeline lanes and the oracle scanner that feeds
// them.
func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		db.Module,
		redis.Module,
		gen.Module,
		task.Client,
		task.Server,
		claim.Module,
		deadletter.Module,
		metricsource.Module,
		ledger.Module,
		pipeline.Module,
		scanner.OracleModule,
		health.Module,
		metrics.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "development" {
		return &fxevent.ZapLogger{Logger: logger}
	}
	return fxevent.NopLogger
})
