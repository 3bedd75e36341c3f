package callagent

import (
	"context"
	"time"

	"fixline_backend/internal/events"
	leaddomain "fixline_backend/internal/leads/domain"
	"fixline_backend/platform/ai/textgen"
	"fixline_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	// maxCallAttempts is the number of failed attempts that still get a
	// retry. The failure of the final retry exhausts the lead.
	maxCallAttempts = 3
	// baseRetryDelay is doubled for every further attempt: 30m, 60m, 120m.
	baseRetryDelay = 30 * time.Minute
)

// CallStore is the persistence the agent needs.
type CallStore interface {
	Save(ctx context.Context, rec CallRecord) error
	SaveOutcome(ctx context.Context, callID uuid.UUID, outcome CallOutcome, recordingKey *string) error
	GetByCallSID(ctx context.Context, callSID string) (CallRecord, error)
}

// LeadStatusWriter advances a lead through its lifecycle after a call.
type LeadStatusWriter interface {
	UpdateStatus(ctx context.Context, leadID uuid.UUID, status leaddomain.Status) error
}

// RetryScheduler enqueues a deferred re-dial of a failed call.
type RetryScheduler interface {
	ScheduleCallRetry(ctx context.Context, callID uuid.UUID, callCtx CallContext, attempt int, delay time.Duration) error
}

// Agent drives autonomous phone calls: it composes the voice-service
// instructions, produces mid-call steering, summarizes finished calls and
// owns the retry policy for failed ones.
type Agent struct {
	gen            textgen.Generator
	store          CallStore
	leads          LeadStatusWriter
	retry          RetryScheduler
	bus            events.Bus
	log            *logger.Logger
	maxDuration    time.Duration
	summaryTimeout time.Duration
}

// Config bundles the tunables of the agent.
type Config struct {
	MaxCallDuration time.Duration
	SummaryTimeout  time.Duration
}

// New creates a call agent.
func New(gen textgen.Generator, store CallStore, leads LeadStatusWriter, retry RetryScheduler, bus events.Bus, cfg Config, log *logger.Logger) *Agent {
	if cfg.MaxCallDuration <= 0 {
		cfg.MaxCallDuration = 10 * time.Minute
	}
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.New("development")
	}
	return &Agent{
		gen:            gen,
		store:          store,
		leads:          leads,
		retry:          retry,
		bus:            bus,
		log:            log,
		maxDuration:    cfg.MaxCallDuration,
		summaryTimeout: cfg.SummaryTimeout,
	}
}

// SystemPrompt returns the voice-service system instructions for a call.
func (a *Agent) SystemPrompt(callCtx CallContext) string {
	return GenerateSystemPrompt(callCtx, a.maxDuration)
}

// StartCall persists the initial record for a new call attempt and publishes
// the request. The record carries the immutable context the bridge reads back
// when the media stream starts.
func (a *Agent) StartCall(ctx context.Context, callCtx CallContext, attempt int) (CallRecord, error) {
	if attempt < 1 {
		attempt = 1
	}
	rec := CallRecord{
		ID:           callCtx.CallID,
		LeadID:       callCtx.LeadID,
		BusinessID:   callCtx.BusinessID,
		CallType:     callCtx.CallType,
		TargetNumber: callCtx.TargetNumber,
		Attempt:      attempt,
		Context:      callCtx,
	}
	if err := a.store.Save(ctx, rec); err != nil {
		return CallRecord{}, err
	}

	a.bus.Publish(ctx, events.CallRequested{
		BaseEvent: events.NewBaseEvent(),
		CallID:    callCtx.CallID,
		LeadID:    callCtx.LeadID,
		CallType:  string(callCtx.CallType),
		Attempt:   attempt,
	})
	a.log.CallEvent("", "call_requested",
		"call_id", callCtx.CallID.String(),
		"call_type", string(callCtx.CallType),
		"attempt", attempt,
	)
	return rec, nil
}

// ContextForStream resolves the call context for an incoming media stream.
func (a *Agent) ContextForStream(ctx context.Context, callSID string) (CallRecord, error) {
	return a.store.GetByCallSID(ctx, callSID)
}

// CompleteCall runs the post-call pipeline: summarize the transcript into a
// durable outcome, persist it, advance the lead and schedule a retry when the
// outcome warrants one. Persistence failures are logged, never retried; the
// outcome is still returned so callers can observe it.
func (a *Agent) CompleteCall(ctx context.Context, rec CallRecord, transcript Transcript, voicemailDetected bool, recordingKey *string) CallOutcome {
	outcome := a.GenerateCallSummary(ctx, rec.Context, transcript, voicemailDetected)

	if err := a.store.SaveOutcome(ctx, rec.ID, outcome, recordingKey); err != nil {
		a.log.CallError(callSIDOf(rec), "persist call outcome", err)
	}
	if status, ok := leadStatusFor(outcome.Status); ok {
		if err := a.leads.UpdateStatus(ctx, rec.LeadID, status); err != nil {
			a.log.CallError(callSIDOf(rec), "update lead status", err)
		}
	}

	a.bus.Publish(ctx, events.CallCompleted{
		BaseEvent:     events.NewBaseEvent(),
		CallID:        rec.ID,
		CallSID:       callSIDOf(rec),
		LeadID:        rec.LeadID,
		OutcomeStatus: string(outcome.Status),
	})
	a.log.CallEvent(callSIDOf(rec), "call_completed",
		"call_id", rec.ID.String(),
		"outcome", string(outcome.Status),
	)

	if shouldRetry(outcome.Status) {
		a.QueueRetry(ctx, rec.ID, rec.Context, rec.Attempt)
	}
	return outcome
}

// QueueRetry schedules the next attempt for a failed call with exponential
// backoff. Attempts beyond the cap are dropped and logged.
func (a *Agent) QueueRetry(ctx context.Context, callID uuid.UUID, callCtx CallContext, attempt int) {
	if attempt > maxCallAttempts {
		a.log.CallEvent("", "call_retry_exhausted",
			"call_id", callID.String(),
			"attempt", attempt,
		)
		return
	}

	next := attempt + 1
	delay := RetryDelay(attempt)
	if err := a.retry.ScheduleCallRetry(ctx, callID, callCtx, next, delay); err != nil {
		a.log.CallError("", "schedule call retry", err)
		return
	}

	a.bus.Publish(ctx, events.CallRetryScheduled{
		BaseEvent:    events.NewBaseEvent(),
		CallID:       callID,
		Attempt:      next,
		DelayMinutes: int(delay.Minutes()),
	})
	a.log.CallEvent("", "call_retry_scheduled",
		"call_id", callID.String(),
		"attempt", next,
		"delay", delay.String(),
	)
}

// RetryDelay returns the backoff before re-dialing after a failure of the
// given attempt: 30 minutes doubled per further attempt.
func RetryDelay(failedAttempt int) time.Duration {
	if failedAttempt < 1 {
		failedAttempt = 1
	}
	return baseRetryDelay << (failedAttempt - 1)
}

func shouldRetry(status OutcomeStatus) bool {
	switch status {
	case OutcomeNoAnswer, OutcomeVoicemail, OutcomeError:
		return true
	default:
		return false
	}
}

// leadStatusFor maps a call outcome onto the lead lifecycle. Outcomes that
// leave the lead where it was return ok=false.
func leadStatusFor(status OutcomeStatus) (leaddomain.Status, bool) {
	switch status {
	case OutcomeGoalAchieved:
		return leaddomain.StatusContacted, true
	case OutcomeDeclined:
		return leaddomain.StatusClosed, true
	default:
		return "", false
	}
}

func callSIDOf(rec CallRecord) string {
	if rec.CallSID != nil {
		return *rec.CallSID
	}
	return ""
}
