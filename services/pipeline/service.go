package pipeline

import (
	"context"
	"time"

	"creator-missions/pkg/errutil"
	"creator-missions/pkg/ledger"
	"creator-missions/pkg/metricsource"
	"creator-missions/pkg/task"
	"creator-missions/services/claim"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("creator-missions/services/pipeline")

// Service runs the three claim stages. Each stage owns one forward status
// transition and is safe to run again on the same claim.
type Service struct {
	store  *claim.Store
	source metricsource.Source
	ledger ledger.Client
	queue  task.Enqueuer
	now    func() time.Time
}

type Params struct {
	fx.In
	Store  *claim.Store
	Source metricsource.Source
	Ledger ledger.Client
	Queue  task.Enqueuer
}

func NewService(p Params) *Service {
	return &Service{
		store:  p.Store,
		source: p.Source,
		ledger: p.Ledger,
		queue:  p.Queue,
		now:    time.Now,
	}
}

// loadClaim turns a missing claim into a non-retryable failure; any other
// store error is retried.
func (s *Service) loadClaim(ctx context.Context, claimID string) (*claim.Claim, error) {
	c, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		if errutil.IsNotFound(err) {
			return nil, skipRetry(err)
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) enqueue(ctx context.Context, t *asynq.Task, log *zap.Logger) error {
	info, err := s.queue.Enqueue(ctx, t)
	if err != nil {
		return errutil.Transient("enqueue "+t.Type(), err)
	}
	log.Info("enqueued next stage",
		zap.String("next_task", t.Type()),
		zap.String("next_task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return nil
}

func taskLogger(taskType, claimID string) *zap.Logger {
	return zap.L().With(
		zap.String("task_type", taskType),
		zap.String("claim_id", claimID),
	)
}
