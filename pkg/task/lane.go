package task

import (
	"math"
	"time"

	"creator-missions/pkg/config"
	"creator-missions/pkg/taskname"

	"github.com/hibiken/asynq"
)

type Lane struct {
	Queue       string
	TaskType    string
	Concurrency int
	MaxAttempts int
	Timeout     time.Duration
}

// MaxRetry is the asynq retry budget. asynq does not count the first run, so
// a job gets MaxAttempts runs in total.
func (l Lane) MaxRetry() int {
	if l.MaxAttempts <= 1 {
		return 0
	}
	return l.MaxAttempts - 1
}

// Options are the per-task asynq options every job of the lane carries.
func (l Lane) Options() []asynq.Option {
	opts := []asynq.Option{asynq.Queue(l.Queue), asynq.MaxRetry(l.MaxRetry())}
	if l.Timeout > 0 {
		opts = append(opts, asynq.Timeout(l.Timeout))
	}
	return opts
}

// Lanes is keyed by task type.
type Lanes map[string]Lane

func NewLanes(cfg *config.Config) Lanes {
	q := cfg.Queue
	build := func(taskType string, l config.Lane) Lane {
		lane := Lane{
			Queue:       taskname.LaneOf(taskType),
			TaskType:    taskType,
			Concurrency: l.Concurrency,
			MaxAttempts: l.MaxAttempts,
			Timeout:     l.Timeout,
		}
		if lane.Concurrency <= 0 {
			lane.Concurrency = 1
		}
		if lane.MaxAttempts <= 0 {
			lane.MaxAttempts = q.MaxAttempts
		}
		if lane.Timeout <= 0 {
			lane.Timeout = q.Timeout
		}
		return lane
	}

	return Lanes{
		taskname.MetricsFetch:  build(taskname.MetricsFetch, q.MetricsFetch),
		taskname.ClaimValidate: build(taskname.ClaimValidate, q.ClaimValidate),
		taskname.ClaimFinalize: build(taskname.ClaimFinalize, q.ClaimFinalize),
	}
}

// RetryDelay backs off exponentially from base, capped at ceiling. With no base
// configured it falls back to asynq's default curve.
func RetryDelay(base, ceiling time.Duration) asynq.RetryDelayFunc {
	if base <= 0 {
		return asynq.DefaultRetryDelayFunc
	}
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		d := time.Duration(float64(base) * math.Pow(2, float64(n)))
		if ceiling > 0 && (d > ceiling || d <= 0) {
			return ceiling
		}
		return d
	}
}
