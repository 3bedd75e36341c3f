package scheduler

import (
	"encoding/json"

	"fixline_backend/internal/callagent"

	"github.com/hibiken/asynq"
)

const TaskCallRetry = "calls.retry"

// CallRetryPayload carries everything the worker needs to re-dial without a
// lookup of the prior attempt: the full call context plus the attempt number
// being scheduled.
type CallRetryPayload struct {
	PriorCallID string                `json:"priorCallId"`
	Attempt     int                   `json:"attempt"`
	Context     callagent.CallContext `json:"context"`
}

func NewCallRetryTask(payload CallRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallRetry, data), nil
}

func ParseCallRetryPayload(task *asynq.Task) (CallRetryPayload, error) {
	var payload CallRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallRetryPayload{}, err
	}
	return payload, nil
}
