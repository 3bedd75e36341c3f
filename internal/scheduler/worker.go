package scheduler

import (
	"context"
	"fmt"

	"fixline_backend/internal/callagent"
	leaddomain "fixline_backend/internal/leads/domain"
	"fixline_backend/platform/config"
	"fixline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CallStarter begins a fresh call attempt. *callagent.Agent satisfies it.
type CallStarter interface {
	StartCall(ctx context.Context, callCtx callagent.CallContext, attempt int) (callagent.CallRecord, error)
}

// LeadStatusReader reports where a lead is in its lifecycle so stale retries
// can be dropped.
type LeadStatusReader interface {
	GetStatus(ctx context.Context, leadID uuid.UUID) (leaddomain.Status, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	agent  CallStarter
	leads  LeadStatusReader
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, agent CallStarter, leads LeadStatusReader, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		agent:  agent,
		leads:  leads,
		log:    log,
	}

	mux.HandleFunc(TaskCallRetry, w.handleCallRetry)

	return w, nil
}

// handleCallRetry re-dials a previously failed call. The retry becomes a new
// call record with a fresh call ID; the payload carries the original context
// unchanged. A retry for a lead that has since reached a terminal status is
// dropped silently.
func (w *Worker) handleCallRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallRetryPayload(task)
	if err != nil {
		return err
	}

	status, err := w.leads.GetStatus(ctx, payload.Context.LeadID)
	if err != nil {
		return err
	}
	if leaddomain.IsTerminal(status) {
		w.log.Info("dropping call retry for settled lead",
			"lead_id", payload.Context.LeadID,
			"lead_status", string(status),
			"prior_call_id", payload.PriorCallID,
		)
		return nil
	}

	fresh := payload.Context
	fresh.CallID = uuid.New()

	rec, err := w.agent.StartCall(ctx, fresh, payload.Attempt)
	if err != nil {
		return err
	}

	w.log.Info("call retry started",
		"call_id", rec.ID,
		"prior_call_id", payload.PriorCallID,
		"attempt", payload.Attempt,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
