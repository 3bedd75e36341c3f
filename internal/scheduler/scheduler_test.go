package scheduler

import (
	"context"
	"testing"
	"time"

	"fixline_backend/internal/callagent"
	leaddomain "fixline_backend/internal/leads/domain"
	"fixline_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type stubSchedulerConfig struct {
	redisURL string
}

func (s stubSchedulerConfig) GetRedisURL() string       { return s.redisURL }
func (s stubSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (s stubSchedulerConfig) GetAsynqQueueName() string { return "calls" }
func (s stubSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestScheduleCallRetryEnqueues(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(stubSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	callID := uuid.New()
	callCtx := callagent.CallContext{
		CallID:       callID,
		LeadID:       uuid.New(),
		CallType:     callagent.CallTypeQualifyLead,
		TargetNumber: "+13175550100",
	}

	if err := client.ScheduleCallRetry(context.Background(), callID, callCtx, 2, 30*time.Minute); err != nil {
		t.Fatalf("ScheduleCallRetry: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("calls")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d scheduled tasks, want 1", len(tasks))
	}
	if tasks[0].Type != TaskCallRetry {
		t.Errorf("task type = %s, want %s", tasks[0].Type, TaskCallRetry)
	}

	payload, err := ParseCallRetryPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("ParseCallRetryPayload: %v", err)
	}
	if payload.PriorCallID != callID.String() {
		t.Errorf("prior call ID = %s, want %s", payload.PriorCallID, callID)
	}
	if payload.Attempt != 2 {
		t.Errorf("attempt = %d, want 2", payload.Attempt)
	}
	if payload.Context.LeadID != callCtx.LeadID {
		t.Errorf("lead ID not carried through payload")
	}

	until := time.Until(tasks[0].NextProcessAt)
	if until < 29*time.Minute || until > 31*time.Minute {
		t.Errorf("task scheduled %s out, want ~30m", until)
	}
}

type fakeStarter struct {
	started []callagent.CallContext
	attempt int
}

func (f *fakeStarter) StartCall(_ context.Context, callCtx callagent.CallContext, attempt int) (callagent.CallRecord, error) {
	f.started = append(f.started, callCtx)
	f.attempt = attempt
	return callagent.CallRecord{ID: callCtx.CallID, LeadID: callCtx.LeadID, Context: callCtx, Attempt: attempt}, nil
}

type fakeStatusReader struct {
	status leaddomain.Status
}

func (f fakeStatusReader) GetStatus(_ context.Context, _ uuid.UUID) (leaddomain.Status, error) {
	return f.status, nil
}

func retryTask(t *testing.T, payload CallRetryPayload) *asynq.Task {
	t.Helper()
	task, err := NewCallRetryTask(payload)
	if err != nil {
		t.Fatalf("NewCallRetryTask: %v", err)
	}
	return task
}

func TestHandleCallRetryStartsFreshCall(t *testing.T) {
	starter := &fakeStarter{}
	w := &Worker{
		agent: starter,
		leads: fakeStatusReader{status: leaddomain.StatusMatched},
		log:   logger.New("development"),
	}

	priorID := uuid.New()
	payload := CallRetryPayload{
		PriorCallID: priorID.String(),
		Attempt:     2,
		Context: callagent.CallContext{
			CallID:       priorID,
			LeadID:       uuid.New(),
			CallType:     callagent.CallTypeQualifyLead,
			TargetNumber: "+13175550100",
		},
	}

	if err := w.handleCallRetry(context.Background(), retryTask(t, payload)); err != nil {
		t.Fatalf("handleCallRetry: %v", err)
	}
	if len(starter.started) != 1 {
		t.Fatalf("started %d calls, want 1", len(starter.started))
	}
	if starter.started[0].CallID == priorID {
		t.Error("retry reused the prior call ID instead of minting a new one")
	}
	if starter.attempt != 2 {
		t.Errorf("attempt = %d, want 2", starter.attempt)
	}
	if starter.started[0].TargetNumber != "+13175550100" {
		t.Error("call context not carried through the retry")
	}
}

func TestHandleCallRetryDropsSettledLead(t *testing.T) {
	for _, status := range []leaddomain.Status{leaddomain.StatusConverted, leaddomain.StatusClosed, leaddomain.StatusLowQuality} {
		starter := &fakeStarter{}
		w := &Worker{
			agent: starter,
			leads: fakeStatusReader{status: status},
			log:   logger.New("development"),
		}

		payload := CallRetryPayload{
			PriorCallID: uuid.New().String(),
			Attempt:     2,
			Context:     callagent.CallContext{CallID: uuid.New(), LeadID: uuid.New()},
		}

		if err := w.handleCallRetry(context.Background(), retryTask(t, payload)); err != nil {
			t.Fatalf("handleCallRetry for %s lead: %v", status, err)
		}
		if len(starter.started) != 0 {
			t.Errorf("retry for %s lead started a call, want drop", status)
		}
	}
}
