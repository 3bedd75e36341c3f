package callagent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	leaddomain "fixline_backend/internal/leads/domain"
	"fixline_backend/platform/events"
	"fixline_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeGenerator returns canned responses in order, or an error.
type fakeGenerator struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no canned response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

type fakeStore struct {
	saved    []CallRecord
	outcomes map[uuid.UUID]CallOutcome
}

func newFakeStore() *fakeStore {
	return &fakeStore{outcomes: make(map[uuid.UUID]CallOutcome)}
}

func (f *fakeStore) Save(_ context.Context, rec CallRecord) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeStore) SaveOutcome(_ context.Context, callID uuid.UUID, outcome CallOutcome, _ *string) error {
	if _, done := f.outcomes[callID]; !done {
		f.outcomes[callID] = outcome
	}
	return nil
}

func (f *fakeStore) GetByCallSID(_ context.Context, _ string) (CallRecord, error) {
	return CallRecord{}, errors.New("not found")
}

type fakeLeads struct {
	updates map[uuid.UUID]leaddomain.Status
}

func (f *fakeLeads) UpdateStatus(_ context.Context, leadID uuid.UUID, status leaddomain.Status) error {
	if f.updates == nil {
		f.updates = make(map[uuid.UUID]leaddomain.Status)
	}
	f.updates[leadID] = status
	return nil
}

type scheduledRetry struct {
	callID  uuid.UUID
	attempt int
	delay   time.Duration
}

type fakeRetry struct {
	scheduled []scheduledRetry
	err       error
}

func (f *fakeRetry) ScheduleCallRetry(_ context.Context, callID uuid.UUID, _ CallContext, attempt int, delay time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, scheduledRetry{callID: callID, attempt: attempt, delay: delay})
	return nil
}

func newTestAgent(t *testing.T, gen *fakeGenerator, store *fakeStore, leads *fakeLeads, retry *fakeRetry) *Agent {
	t.Helper()
	log := logger.New("development")
	return New(gen, store, leads, retry, events.NewInMemoryBus(log), Config{}, log)
}

func qualifyContext() CallContext {
	return CallContext{
		CallID:          uuid.New(),
		LeadID:          uuid.New(),
		CallType:        CallTypeQualifyLead,
		Objective:       "confirm scope and timing of the plumbing repair",
		TargetNumber:    "+13175550100",
		ConsumerName:    "Dana Whitfield",
		LeadDescription: "water heater leaking in the garage",
		Category:        "plumbing",
		Urgency:         "emergency",
		LocationZip:     "46032",
	}
}

func TestSystemPromptVariesByCallType(t *testing.T) {
	base := qualifyContext()
	prompts := make(map[CallType]string)
	for _, ct := range []CallType{CallTypeQualifyLead, CallTypeConfirmAppointment, CallTypeFollowUp, CallTypeConsumerCallback} {
		callCtx := base
		callCtx.CallType = ct
		prompts[ct] = GenerateSystemPrompt(callCtx, 10*time.Minute)
	}

	seen := make(map[string]CallType)
	for ct, prompt := range prompts {
		if prev, dup := seen[prompt]; dup {
			t.Fatalf("call types %s and %s produced identical prompts", prev, ct)
		}
		seen[prompt] = ct
		if !strings.Contains(prompt, "AI assistant") {
			t.Errorf("prompt for %s does not disclose the assistant is an AI", ct)
		}
		if !strings.Contains(prompt, "10 minutes") {
			t.Errorf("prompt for %s does not carry the duration limit", ct)
		}
	}
}

func TestSystemPromptIsDeterministic(t *testing.T) {
	callCtx := qualifyContext()
	a := GenerateSystemPrompt(callCtx, 10*time.Minute)
	b := GenerateSystemPrompt(callCtx, 10*time.Minute)
	if a != b {
		t.Fatal("same context produced different prompts")
	}
}

func TestDetectVoicemail(t *testing.T) {
	if !DetectVoicemail("Hi, you've reached Dana. Please leave a message after the beep.") {
		t.Error("voicemail greeting not detected")
	}
	if !DetectVoicemail("The person you are calling is not available. Record your message at the tone.") {
		t.Error("carrier voicemail greeting not detected")
	}
	if DetectVoicemail("Hello? Yes, this is Dana speaking.") {
		t.Error("live answer misclassified as voicemail")
	}
	if DetectVoicemail("Sure, send me the message with the details by text.") {
		t.Error("mention of a message in conversation misclassified as voicemail")
	}
}

func TestRequestReasoningFallsBackOnFailure(t *testing.T) {
	agent := newTestAgent(t, &fakeGenerator{err: errors.New("model down")}, newFakeStore(), &fakeLeads{}, &fakeRetry{})

	got := agent.RequestReasoning(context.Background(), Transcript{}, "caller asked about pricing for a competitor", "what should I say")
	if got != FallbackInstruction {
		t.Fatalf("expected fallback instruction, got %q", got)
	}
}

func TestRequestReasoningReturnsModelReply(t *testing.T) {
	agent := newTestAgent(t, &fakeGenerator{responses: []string{"Acknowledge the concern and offer to have a human call back."}}, newFakeStore(), &fakeLeads{}, &fakeRetry{})

	got := agent.RequestReasoning(context.Background(), Transcript{}, "caller is upset", "how to de-escalate")
	if got != "Acknowledge the concern and offer to have a human call back." {
		t.Fatalf("unexpected reasoning reply: %q", got)
	}
}

func TestSummaryVoicemailSkipsModel(t *testing.T) {
	gen := &fakeGenerator{}
	agent := newTestAgent(t, gen, newFakeStore(), &fakeLeads{}, &fakeRetry{})

	transcript := Transcript{}.AppendDelta(SpeakerUser, "please leave a message after the beep")
	outcome := agent.GenerateCallSummary(context.Background(), qualifyContext(), transcript, true)

	if outcome.Status != OutcomeVoicemail {
		t.Fatalf("status = %s, want voicemail", outcome.Status)
	}
	if gen.calls != 0 {
		t.Errorf("voicemail summary made %d model calls, want 0", gen.calls)
	}
}

func TestSummarySilentCallIsNoAnswer(t *testing.T) {
	gen := &fakeGenerator{}
	agent := newTestAgent(t, gen, newFakeStore(), &fakeLeads{}, &fakeRetry{})

	transcript := Transcript{}.AppendDelta(SpeakerAssistant, "Hello, this is the Fixline assistant calling about your plumbing request.")
	outcome := agent.GenerateCallSummary(context.Background(), qualifyContext(), transcript, false)

	if outcome.Status != OutcomeNoAnswer {
		t.Fatalf("status = %s, want no_answer", outcome.Status)
	}
	if gen.calls != 0 {
		t.Errorf("silent-call summary made %d model calls, want 0", gen.calls)
	}
}

func TestSummaryDeclinedCall(t *testing.T) {
	declined := `{
		"status": "declined",
		"summary": "The consumer said they are no longer interested and asked to be removed from the list.",
		"interest_level": "none",
		"appointment_time": null,
		"quote_amount": null,
		"next_action": "honor the removal request; do not call again"
	}`
	agent := newTestAgent(t, &fakeGenerator{responses: []string{declined}}, newFakeStore(), &fakeLeads{}, &fakeRetry{})

	transcript := Transcript{}.
		AppendDelta(SpeakerAssistant, "Hi, I'm calling about your plumbing request.").
		AppendDelta(SpeakerUser, "I'm not interested anymore, please remove me from your list.")
	outcome := agent.GenerateCallSummary(context.Background(), qualifyContext(), transcript, false)

	if outcome.Status != OutcomeDeclined {
		t.Fatalf("status = %s, want declined", outcome.Status)
	}
	if outcome.InterestLevel != "none" {
		t.Errorf("interest level = %s, want none", outcome.InterestLevel)
	}
}

func TestSummaryDegradesOnModelFailure(t *testing.T) {
	agent := newTestAgent(t, &fakeGenerator{err: errors.New("timeout")}, newFakeStore(), &fakeLeads{}, &fakeRetry{})

	transcript := Transcript{}.
		AppendDelta(SpeakerAssistant, "Hi there.").
		AppendDelta(SpeakerUser, "Yes, hello.")
	outcome := agent.GenerateCallSummary(context.Background(), qualifyContext(), transcript, false)

	if outcome.Status != OutcomeError {
		t.Fatalf("status = %s, want error", outcome.Status)
	}
	if len(outcome.Transcript) == 0 {
		t.Error("degraded outcome dropped the transcript")
	}
}

func TestSummaryDegradesOnUnknownStatus(t *testing.T) {
	agent := newTestAgent(t, &fakeGenerator{responses: []string{`{"status": "maybe_later", "summary": "?", "interest_level": "low", "next_action": "none"}`}}, newFakeStore(), &fakeLeads{}, &fakeRetry{})

	transcript := Transcript{}.AppendDelta(SpeakerUser, "hello")
	outcome := agent.GenerateCallSummary(context.Background(), qualifyContext(), transcript, false)

	if outcome.Status != OutcomeError {
		t.Fatalf("status = %s, want error for unknown model status", outcome.Status)
	}
}

func TestRetryDelaySchedule(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Minute},
		{2, 60 * time.Minute},
		{3, 120 * time.Minute},
	}
	for _, tc := range cases {
		if got := RetryDelay(tc.attempt); got != tc.want {
			t.Errorf("RetryDelay(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestQueueRetryStopsAfterMaxAttempts(t *testing.T) {
	retry := &fakeRetry{}
	agent := newTestAgent(t, &fakeGenerator{}, newFakeStore(), &fakeLeads{}, retry)
	callCtx := qualifyContext()

	agent.QueueRetry(context.Background(), callCtx.CallID, callCtx, 1)
	agent.QueueRetry(context.Background(), callCtx.CallID, callCtx, 2)
	agent.QueueRetry(context.Background(), callCtx.CallID, callCtx, 3)
	agent.QueueRetry(context.Background(), callCtx.CallID, callCtx, 4)

	if len(retry.scheduled) != 3 {
		t.Fatalf("scheduled %d retries, want 3 (only the failure of the final retry exhausts the lead)", len(retry.scheduled))
	}
	want := []struct {
		attempt int
		delay   time.Duration
	}{
		{2, 30 * time.Minute},
		{3, 60 * time.Minute},
		{4, 120 * time.Minute},
	}
	for i, w := range want {
		got := retry.scheduled[i]
		if got.attempt != w.attempt || got.delay != w.delay {
			t.Errorf("retry %d = attempt %d after %s, want attempt %d after %s", i, got.attempt, got.delay, w.attempt, w.delay)
		}
	}
}

func TestCompleteCallGoalAchieved(t *testing.T) {
	achieved := `{
		"status": "goal_achieved",
		"summary": "Confirmed the leak details and the consumer expects a call from the plumber today.",
		"interest_level": "high",
		"appointment_time": "2026-08-28T15:00:00Z",
		"quote_amount": 450,
		"next_action": "notify the matched business"
	}`
	store := newFakeStore()
	leads := &fakeLeads{}
	retry := &fakeRetry{}
	agent := newTestAgent(t, &fakeGenerator{responses: []string{achieved}}, store, leads, retry)

	callCtx := qualifyContext()
	rec := CallRecord{ID: callCtx.CallID, LeadID: callCtx.LeadID, Context: callCtx, Attempt: 1}
	transcript := Transcript{}.
		AppendDelta(SpeakerAssistant, "Can you confirm the water heater is still leaking?").
		AppendDelta(SpeakerUser, "Yes, it is. Please have someone call me today.")

	outcome := agent.CompleteCall(context.Background(), rec, transcript, false, nil)

	if outcome.Status != OutcomeGoalAchieved {
		t.Fatalf("status = %s, want goal_achieved", outcome.Status)
	}
	if saved, ok := store.outcomes[rec.ID]; !ok || saved.Status != OutcomeGoalAchieved {
		t.Error("outcome was not persisted")
	}
	if leads.updates[rec.LeadID] != leaddomain.StatusContacted {
		t.Errorf("lead status = %s, want contacted", leads.updates[rec.LeadID])
	}
	if len(retry.scheduled) != 0 {
		t.Error("successful call scheduled a retry")
	}
	if outcome.AppointmentTime == nil || !outcome.AppointmentTime.Equal(time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("appointment time not carried through: %v", outcome.AppointmentTime)
	}
}

func TestCompleteCallNoAnswerSchedulesRetry(t *testing.T) {
	store := newFakeStore()
	leads := &fakeLeads{}
	retry := &fakeRetry{}
	agent := newTestAgent(t, &fakeGenerator{}, store, leads, retry)

	callCtx := qualifyContext()
	rec := CallRecord{ID: callCtx.CallID, LeadID: callCtx.LeadID, Context: callCtx, Attempt: 1}

	outcome := agent.CompleteCall(context.Background(), rec, Transcript{}, false, nil)

	if outcome.Status != OutcomeNoAnswer {
		t.Fatalf("status = %s, want no_answer", outcome.Status)
	}
	if len(retry.scheduled) != 1 {
		t.Fatalf("scheduled %d retries, want 1", len(retry.scheduled))
	}
	if retry.scheduled[0].attempt != 2 || retry.scheduled[0].delay != 30*time.Minute {
		t.Errorf("retry = attempt %d after %s, want attempt 2 after 30m", retry.scheduled[0].attempt, retry.scheduled[0].delay)
	}
	if len(leads.updates) != 0 {
		t.Error("no-answer call changed the lead status")
	}
}

func TestCompleteCallDeclinedClosesLead(t *testing.T) {
	declined := `{"status": "declined", "summary": "Asked to be removed.", "interest_level": "none", "next_action": "do not call again"}`
	store := newFakeStore()
	leads := &fakeLeads{}
	retry := &fakeRetry{}
	agent := newTestAgent(t, &fakeGenerator{responses: []string{declined}}, store, leads, retry)

	callCtx := qualifyContext()
	rec := CallRecord{ID: callCtx.CallID, LeadID: callCtx.LeadID, Context: callCtx, Attempt: 1}
	transcript := Transcript{}.AppendDelta(SpeakerUser, "Remove me from your list.")

	outcome := agent.CompleteCall(context.Background(), rec, transcript, false, nil)

	if outcome.Status != OutcomeDeclined {
		t.Fatalf("status = %s, want declined", outcome.Status)
	}
	if leads.updates[rec.LeadID] != leaddomain.StatusClosed {
		t.Errorf("lead status = %s, want closed", leads.updates[rec.LeadID])
	}
	if len(retry.scheduled) != 0 {
		t.Error("declined call scheduled a retry")
	}
}

func TestTranscriptAppendDeltaCoalesces(t *testing.T) {
	transcript := Transcript{}.
		AppendDelta(SpeakerAssistant, "Hello, ").
		AppendDelta(SpeakerAssistant, "this is Fixline.").
		AppendDelta(SpeakerUser, "Hi.").
		AppendDelta(SpeakerUser, " Who is this?").
		AppendDelta(SpeakerAssistant, "")

	if len(transcript) != 2 {
		t.Fatalf("got %d turns, want 2", len(transcript))
	}
	if transcript[0].Text != "Hello, this is Fixline." {
		t.Errorf("assistant turn = %q", transcript[0].Text)
	}
	if transcript[1].Text != "Hi. Who is this?" {
		t.Errorf("user turn = %q", transcript[1].Text)
	}
}
