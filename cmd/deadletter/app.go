package main

import (
	"context"

	"go.uber.org/fx"

	"creator-missions/pkg/config"
	"creator-missions/pkg/db"
	"creator-missions/pkg/gen"
	"creator-missions/pkg/hashistack/secretmanager"
	"creator-missions/pkg/logger"
	"creator-missions/pkg/task"
	"creator-missions/services/deadletter"
)

// withApp starts the minimal graph an operator command needs, runs fn and
// stops it again.
func withApp(ctx context.Context, fn func(ctx context.Context, insp *task.Inspector, svc *deadletter.Service) error) error {
	var (
		insp *task.Inspector
		svc  *deadletter.Service
	)

	app := fx.New(
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		task.Inspection,
		deadletter.Module,
		fx.Populate(&insp, &svc),
		fx.NopLogger,
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.WithoutCancel(ctx)) }()

	return fn(ctx, insp, svc)
}
