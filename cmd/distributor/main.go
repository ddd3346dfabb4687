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
	"creator-missions/pkg/otelcol"
	"creator-missions/services/claim"
	"creator-missions/services/scanner"
)

// distributor pays completion bonuses for campaigns the ledger marks complete.
func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		db.Module,
		gen.Module,
		claim.Module,
		ledger.Module,
		scanner.DistributionModule,
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
