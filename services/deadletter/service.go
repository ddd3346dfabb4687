package deadletter

import (
	"context"
	"encoding/json"

	"creator-missions/pkg/db/option"
	"creator-missions/pkg/repository"
	"creator-missions/pkg/task"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	node *snowflake.Node
	jobs repository.Repository[FailedJob]
}

type Params struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p Params) *Service {
	return &Service{
		node: p.Node,
		jobs: repository.ProvideStore[FailedJob](p.DB),
	}
}

// RecordDeadLetter implements task.DeadLetterSink.
func (s *Service) RecordDeadLetter(ctx context.Context, dl task.DeadLetter) error {
	payload := datatypes.JSON(dl.Payload)
	if !json.Valid(dl.Payload) {
		raw, _ := json.Marshal(string(dl.Payload))
		payload = raw
	}

	job := &FailedJob{
		ID:       s.node.Generate().String(),
		Queue:    dl.Queue,
		TaskID:   dl.TaskID,
		TaskType: dl.TaskType,
		Payload:  payload,
		ErrorMsg: dl.Error,
		Retried:  dl.Retried,
		MaxRetry: dl.MaxRetry,
		FailedAt: dl.FailedAt,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return err
	}

	zap.L().Info("dead letter recorded",
		zap.String("queue", dl.Queue),
		zap.String("task_id", dl.TaskID),
		zap.String("job_id", job.ID),
	)
	return nil
}

// List returns the newest failed jobs, optionally for a single queue.
func (s *Service) List(ctx context.Context, queue string, limit int) ([]*FailedJob, error) {
	return s.jobs.Find(ctx, &FailedJob{Queue: queue},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "failed_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"failed_at": true},
		}),
		option.WithLimit(limit),
	)
}
