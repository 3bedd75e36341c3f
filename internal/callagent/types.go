// Package callagent builds call briefs and prompts, supplies mid-call
// reasoning, and turns finished call transcripts into durable structured
// outcomes.
package callagent

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CallType identifies why an autonomous call is being placed.
type CallType string

const (
	CallTypeQualifyLead        CallType = "qualify_lead"
	CallTypeConfirmAppointment CallType = "confirm_appointment"
	CallTypeFollowUp           CallType = "follow_up"
	CallTypeConsumerCallback   CallType = "consumer_callback"
)

// CallContext is the call's immutable brief. It is created before the call
// starts and only read during the live session.
type CallContext struct {
	CallID       uuid.UUID  `json:"callId"`
	LeadID       uuid.UUID  `json:"leadId"`
	BusinessID   *uuid.UUID `json:"businessId,omitempty"`
	CallType     CallType   `json:"callType"`
	Objective    string     `json:"objective"`
	TargetNumber string     `json:"targetNumber"`

	ConsumerName    string     `json:"consumerName"`
	BusinessName    string     `json:"businessName,omitempty"`
	LeadDescription string     `json:"leadDescription"`
	Category        string     `json:"category"`
	Urgency         string     `json:"urgency"`
	BudgetMax       *float64   `json:"budgetMax,omitempty"`
	LocationZip     string     `json:"locationZip,omitempty"`
	AppointmentTime *time.Time `json:"appointmentTime,omitempty"`
}

// Speaker tags a transcript turn.
type Speaker string

const (
	SpeakerAssistant Speaker = "assistant"
	SpeakerUser      Speaker = "user"
)

// Turn is one coalesced transcript turn.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is the ordered list of turns accumulated during a call.
type Transcript []Turn

// AppendDelta appends a transcript fragment, coalescing consecutive deltas
// from the same speaker into one turn.
func (t Transcript) AppendDelta(speaker Speaker, text string) Transcript {
	if text == "" {
		return t
	}
	if n := len(t); n > 0 && t[n-1].Speaker == speaker {
		t[n-1].Text += text
		return t
	}
	return append(t, Turn{Speaker: speaker, Text: text})
}

// String renders the transcript as speaker-tagged lines for prompting.
func (t Transcript) String() string {
	var sb strings.Builder
	for _, turn := range t {
		sb.WriteString(string(turn.Speaker))
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(turn.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}

// OutcomeStatus is the closed set of terminal call results.
type OutcomeStatus string

const (
	OutcomeGoalAchieved OutcomeStatus = "goal_achieved"
	OutcomeNoAnswer     OutcomeStatus = "no_answer"
	OutcomeVoicemail    OutcomeStatus = "voicemail"
	OutcomeDeclined     OutcomeStatus = "declined"
	OutcomeError        OutcomeStatus = "error"
)

// CallOutcome is the durable result of a completed call. It is produced
// exactly once per call and never mutated afterward.
type CallOutcome struct {
	Status          OutcomeStatus `json:"status"`
	Summary         string        `json:"summary"`
	Transcript      Transcript    `json:"transcript"`
	InterestLevel   string        `json:"interestLevel"`
	AppointmentTime *time.Time    `json:"appointmentTime,omitempty"`
	QuoteAmount     *float64      `json:"quoteAmount,omitempty"`
	NextAction      string        `json:"nextAction"`
}
