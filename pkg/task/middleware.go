package task

import (
	"context"
	"errors"
	"time"

	"creator-missions/pkg/errutil"
	"creator-missions/pkg/metrics"
	"creator-missions/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("creator-missions/pkg/task")

// Instrument wraps every handler in a span and records lane metrics.
func Instrument(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		lane := taskname.LaneOf(t.Type())
		taskID, _ := asynq.GetTaskID(ctx)
		retried, _ := asynq.GetRetryCount(ctx)

		ctx, span := tracer.Start(ctx, t.Type())
		span.SetAttributes(
			attribute.String("task.id", taskID),
			attribute.String("task.lane", lane),
			attribute.Int("task.retried", retried),
		)
		defer span.End()

		start := time.Now()
		err := next.ProcessTask(ctx, t)
		metrics.JobLatency.WithLabelValues(lane).Observe(time.Since(start).Seconds())

		result := resultOf(err)
		metrics.JobsProcessed.WithLabelValues(lane, result).Inc()
		if err != nil {
			span.SetAttributes(attribute.String("task.result", result))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}

// resultOf is the job outcome label.
func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errutil.IsMalformed(err):
		return "malformed"
	case errors.Is(err, asynq.SkipRetry):
		return "skipped"
	case errutil.IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}
