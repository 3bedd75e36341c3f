package callagent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"fixline_backend/platform/ai/textgen"
)

const summarySystemPrompt = `You turn a finished phone call transcript into a structured outcome record.
Respond with a single JSON object:
{
  "status": one of [goal_achieved, no_answer, voicemail, declined, error],
  "summary": two or three sentences describing what happened,
  "interest_level": one of [high, medium, low, none, unknown],
  "appointment_time": RFC 3339 timestamp or null,
  "quote_amount": number or null,
  "next_action": one short recommendation
}
Use "declined" when the person refused, asked to be removed, or said they are no longer interested.`

// summaryPayload is the structured response expected from the model.
type summaryPayload struct {
	Status          string   `json:"status"`
	Summary         string   `json:"summary"`
	InterestLevel   string   `json:"interest_level"`
	AppointmentTime *string  `json:"appointment_time"`
	QuoteAmount     *float64 `json:"quote_amount"`
	NextAction      string   `json:"next_action"`
}

var validOutcomeStatuses = map[OutcomeStatus]struct{}{
	OutcomeGoalAchieved: {},
	OutcomeNoAnswer:     {},
	OutcomeVoicemail:    {},
	OutcomeDeclined:     {},
	OutcomeError:        {},
}

// GenerateCallSummary produces the durable outcome for a completed call.
// This is the last chance to record something for a call that already
// happened, so every failure path returns a degraded outcome instead of an
// error. Voicemail and silent calls are resolved without a model round trip.
func (a *Agent) GenerateCallSummary(ctx context.Context, callCtx CallContext, transcript Transcript, voicemailDetected bool) CallOutcome {
	if voicemailDetected {
		return CallOutcome{
			Status:        OutcomeVoicemail,
			Summary:       "Reached voicemail; left a brief callback message.",
			Transcript:    transcript,
			InterestLevel: "unknown",
			NextAction:    "retry at a different time of day",
		}
	}

	if len(transcript) == 0 || !hasUserSpeech(transcript) {
		return CallOutcome{
			Status:        OutcomeNoAnswer,
			Summary:       "Call connected but no conversation took place.",
			Transcript:    transcript,
			InterestLevel: "unknown",
			NextAction:    "retry later",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.summaryTimeout)
	defer cancel()

	raw, err := a.gen.Generate(ctx, summarySystemPrompt, buildSummaryPrompt(callCtx, transcript))
	if err != nil {
		a.log.Error("call summary generation failed", "call_id", callCtx.CallID, "error", err)
		return degradedOutcome(transcript)
	}

	parsed, err := parseSummary(raw)
	if err != nil {
		a.log.Error("call summary unparsable", "call_id", callCtx.CallID, "error", err)
		return degradedOutcome(transcript)
	}

	outcome := CallOutcome{
		Status:        OutcomeStatus(parsed.Status),
		Summary:       parsed.Summary,
		Transcript:    transcript,
		InterestLevel: parsed.InterestLevel,
		QuoteAmount:   parsed.QuoteAmount,
		NextAction:    parsed.NextAction,
	}
	if _, ok := validOutcomeStatuses[outcome.Status]; !ok {
		a.log.Error("call summary returned unknown status", "call_id", callCtx.CallID, "status", parsed.Status)
		return degradedOutcome(transcript)
	}
	if outcome.InterestLevel == "" {
		outcome.InterestLevel = "unknown"
	}
	if parsed.AppointmentTime != nil {
		if ts, err := time.Parse(time.RFC3339, *parsed.AppointmentTime); err == nil {
			outcome.AppointmentTime = &ts
		}
	}

	return outcome
}

// degradedOutcome is the fallback when summarization itself fails: the call
// still ends with a durable record, just a generic one.
func degradedOutcome(transcript Transcript) CallOutcome {
	return CallOutcome{
		Status:        OutcomeError,
		Summary:       "Call completed but the outcome could not be summarized automatically. Review the transcript.",
		Transcript:    transcript,
		InterestLevel: "unknown",
		NextAction:    "review transcript manually",
	}
}

func parseSummary(raw string) (summaryPayload, error) {
	body, err := textgen.ExtractJSON(raw)
	if err != nil {
		return summaryPayload{}, err
	}
	var parsed summaryPayload
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return summaryPayload{}, err
	}
	parsed.Status = strings.ToLower(strings.TrimSpace(parsed.Status))
	parsed.InterestLevel = strings.ToLower(strings.TrimSpace(parsed.InterestLevel))
	return parsed, nil
}

func buildSummaryPrompt(callCtx CallContext, transcript Transcript) string {
	var sb strings.Builder
	sb.WriteString("Call type: ")
	sb.WriteString(string(callCtx.CallType))
	sb.WriteString("\nObjective: ")
	sb.WriteString(callCtx.Objective)
	sb.WriteString("\n\nTranscript:\n")
	sb.WriteString(transcript.String())
	return sb.String()
}

func hasUserSpeech(transcript Transcript) bool {
	for _, turn := range transcript {
		if turn.Speaker == SpeakerUser && strings.TrimSpace(turn.Text) != "" {
			return true
		}
	}
	return false
}
