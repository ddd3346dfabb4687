package scanner

import (
	"context"
	"time"

	"creator-missions/pkg/config"

	"go.uber.org/fx"
)

var OracleModule = fx.Module("scanner.oracle",
	fx.Provide(NewOracleScanner),
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *OracleScanner) {
		schedule(lc, s, cfg.VerificationInterval())
	}),
)

var DistributionModule = fx.Module("scanner.distribution",
	fx.Provide(NewDistributionScanner),
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *DistributionScanner) {
		schedule(lc, s, cfg.DistributionInterval())
	}),
)

func schedule(lc fx.Lifecycle, s Scanner, interval time.Duration) {
	sched := NewScheduler(s, interval)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// the start context expires once startup completes
			sched.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sched.Stop()
			return nil
		},
	})
}
