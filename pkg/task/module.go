package task

import (
	"context"

	"creator-missions/pkg/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("asynq:client",
	fx.Provide(NewLanes, registerClient, NewEnqueuer),
)

func registerClient(lc fx.Lifecycle, rdb *redis.Client) *asynq.Client {
	client := asynq.NewClientFromRedisClient(rdb)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

var Server = fx.Module("asynq:server",
	fx.Provide(registerServerMux, registerFailureHandler),
	fx.Invoke(registerLaneServers),
)

func registerServerMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(Instrument)
	return mux
}

type failureParams struct {
	fx.In
	Sink DeadLetterSink `optional:"true"`
}

func registerFailureHandler(p failureParams) *FailureHandler {
	return NewFailureHandler(p.Sink)
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

type laneServersParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Lanes     Lanes
	Mux       *asynq.ServeMux
	Failures  *FailureHandler
}

// registerLaneServers starts one asynq server per lane so each lane gets its
// own fixed worker pool.
func registerLaneServers(p laneServersParams) {
	for _, lane := range p.Lanes {
		lane := lane
		server := asynq.NewServer(redisOpt(p.Config), asynq.Config{
			Concurrency:    lane.Concurrency,
			RetryDelayFunc: RetryDelay(p.Config.Queue.BackoffBase, p.Config.Queue.BackoffMax),
			Queues: map[string]int{
				lane.Queue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(p.Failures.HandleError),
			Logger:       newAsynqLogger(lane.Queue),
		})

		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := server.Start(p.Mux); err != nil {
					zap.L().Error("[Asynq] Failed to start lane server", zap.String("queue", lane.Queue), zap.Error(err))
					return err
				}
				zap.L().Info("[Asynq] lane server started",
					zap.String("queue", lane.Queue),
					zap.Int("concurrency", lane.Concurrency),
					zap.Int("max_attempts", lane.MaxAttempts),
					zap.Duration("timeout", lane.Timeout),
				)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				server.Shutdown()
				return nil
			},
		})
	}
}

var Inspection = fx.Module("asynq:inspector",
	fx.Provide(registerInspector),
)

func registerInspector(lc fx.Lifecycle, cfg *config.Config) *Inspector {
	inspector := asynq.NewInspector(redisOpt(cfg))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return inspector.Close()
		},
	})

	return NewInspector(inspector)
}

type asynqLogger struct {
	log *zap.SugaredLogger
}

func newAsynqLogger(queue string) *asynqLogger {
	return &asynqLogger{log: zap.L().With(zap.String("queue", queue)).Sugar()}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal(args...) }
