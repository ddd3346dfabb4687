package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"creator-missions/pkg/errutil"
	"creator-missions/pkg/taskname"

	"github.com/hibiken/asynq"
)

// MetricsFetchPayload is carried on the metrics-fetch lane. ContentIDs may be
// empty, in which case the ids recorded on the claim proof are used.
type MetricsFetchPayload struct {
	ClaimID    string   `json:"claimId"`
	ContentIDs []string `json:"contentIds"`
}

func (p MetricsFetchPayload) Validate() error {
	if p.ClaimID == "" {
		return errors.New("claimId is required")
	}
	for i, id := range p.ContentIDs {
		if id == "" {
			return fmt.Errorf("contentIds[%d] is empty", i)
		}
	}
	return nil
}

// ClaimPayload is carried on the claim-validate and claim-finalize lanes.
type ClaimPayload struct {
	ClaimID string `json:"claimId"`
}

func (p ClaimPayload) Validate() error {
	if p.ClaimID == "" {
		return errors.New("claimId is required")
	}
	return nil
}

func NewMetricsFetchTask(p MetricsFetchPayload) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.MetricsFetch, payload), nil
}

func NewClaimValidateTask(claimID string) (*asynq.Task, error) {
	return newClaimTask(taskname.ClaimValidate, claimID)
}

func NewClaimFinalizeTask(claimID string) (*asynq.Task, error) {
	return newClaimTask(taskname.ClaimFinalize, claimID)
}

func newClaimTask(taskType, claimID string) (*asynq.Task, error) {
	p := ClaimPayload{ClaimID: claimID}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload), nil
}

type validator interface {
	Validate() error
}

// decodePayload rejects unknown fields so that a job built for one lane and
// delivered to another fails fast instead of running with zero values.
func decodePayload[T validator](t *asynq.Task) (T, error) {
	var p T
	dec := json.NewDecoder(bytes.NewReader(t.Payload()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, skipRetry(errutil.Malformed("decode "+t.Type()+" payload", err))
	}
	if err := p.Validate(); err != nil {
		return p, skipRetry(errutil.Malformed("invalid "+t.Type()+" payload", err))
	}
	return p, nil
}

// skipRetry marks err as non-retryable for asynq while keeping its kind.
func skipRetry(err error) error {
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}
