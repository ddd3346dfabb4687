package task

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Enqueuer hands a task to its lane. Lane options (queue, retry budget,
// timeout) are applied first so callers only pass overrides.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type enqueuerImpl struct {
	client *asynq.Client
	lanes  Lanes
}

func NewEnqueuer(client *asynq.Client, lanes Lanes) Enqueuer {
	return &enqueuerImpl{client: client, lanes: lanes}
}

func (e *enqueuerImpl) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	lane, ok := e.lanes[task.Type()]
	if !ok {
		return nil, fmt.Errorf("no lane configured for task type %q", task.Type())
	}

	info, err := e.client.EnqueueContext(ctx, task, append(lane.Options(), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}
	return info, nil
}
