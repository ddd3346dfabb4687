package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creator-missions/pkg/errutil"
	"creator-missions/pkg/metrics"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DeadLetter describes a job that will not run again on its own: it either
// used its whole retry budget or was rejected as non-retryable.
type DeadLetter struct {
	Queue    string
	TaskID   string
	TaskType string
	Payload  []byte
	Error    string
	Retried  int
	MaxRetry int
	FailedAt time.Time
}

// DeadLetterSink persists dead letters next to asynq's archived set.
type DeadLetterSink interface {
	RecordDeadLetter(ctx context.Context, dl DeadLetter) error
}

// IsFinalFailure reports whether asynq will archive the task after this
// failure instead of scheduling another attempt.
func IsFinalFailure(err error, retried, maxRetry int) bool {
	return errors.Is(err, asynq.SkipRetry) || retried >= maxRetry
}

// FailureHandler is the asynq ErrorHandler shared by every lane server.
type FailureHandler struct {
	sink DeadLetterSink
	now  func() time.Time
}

func NewFailureHandler(sink DeadLetterSink) *FailureHandler {
	return &FailureHandler{sink: sink, now: time.Now}
}

func (h *FailureHandler) HandleError(ctx context.Context, t *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	queue, _ := asynq.GetQueueName(ctx)
	taskID, _ := asynq.GetTaskID(ctx)

	h.Record(ctx, queue, taskID, t, err, retried, maxRetry)
}

// Record logs the failure and, when it is final, writes a dead letter. A job
// that ran out of attempts is recorded as exhausted.
func (h *FailureHandler) Record(ctx context.Context, queue, taskID string, t *asynq.Task, err error, retried, maxRetry int) {
	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("queue", queue),
		zap.String("task_id", taskID),
		zap.Int("retried", retried),
		zap.Int("max_retry", maxRetry),
	)

	if !IsFinalFailure(err, retried, maxRetry) {
		zapLog.Warn("asynq task failed, will retry", zap.Error(err))
		return
	}

	if !errors.Is(err, asynq.SkipRetry) {
		err = errutil.Exhausted(fmt.Sprintf("gave up after %d attempts", retried+1), err)
	}
	zapLog.Error("asynq task permanently failed", zap.Error(err))
	metrics.JobsDeadLettered.WithLabelValues(queue).Inc()

	if h.sink == nil {
		return
	}

	dl := DeadLetter{
		Queue:    queue,
		TaskID:   taskID,
		TaskType: t.Type(),
		Payload:  t.Payload(),
		Error:    err.Error(),
		Retried:  retried,
		MaxRetry: maxRetry,
		FailedAt: h.now(),
	}
	if err := h.sink.RecordDeadLetter(context.WithoutCancel(ctx), dl); err != nil {
		zapLog.Error("failed to record dead letter", zap.Error(err))
	}
}

// Inspector lists and replays archived jobs per lane.
type Inspector struct {
	inspector *asynq.Inspector
}

func NewInspector(inspector *asynq.Inspector) *Inspector {
	return &Inspector{inspector: inspector}
}

func (i *Inspector) ListDeadLetters(queue string, pageSize int) ([]*asynq.TaskInfo, error) {
	tasks, err := i.inspector.ListArchivedTasks(queue, asynq.PageSize(pageSize))
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tasks, nil
}

// Retry moves an archived task back to pending. An empty id replays the
// whole lane.
func (i *Inspector) Retry(queue, taskID string) (int, error) {
	if taskID == "" {
		return i.inspector.RunAllArchivedTasks(queue)
	}
	if err := i.inspector.RunTask(queue, taskID); err != nil {
		return 0, err
	}
	return 1, nil
}
