// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"fixline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadClassified is published when the classifier produces a structured lead.
type LeadClassified struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	Category     string    `json:"category"`
	Urgency      string    `json:"urgency"`
	QualityScore float64   `json:"qualityScore"`
}

func (e LeadClassified) EventName() string { return "leads.classified" }

// LeadLowQuality is published when a lead scores below the quality threshold
// and is routed to the terminal low_quality status.
type LeadLowQuality struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	QualityScore float64   `json:"qualityScore"`
	Threshold    float64   `json:"threshold"`
}

func (e LeadLowQuality) EventName() string { return "leads.low_quality" }

// LeadMatched is published when the matcher returns candidate businesses.
type LeadMatched struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	MatchCount int       `json:"matchCount"`
}

func (e LeadMatched) EventName() string { return "leads.matched" }

// BusinessNotificationReady is published per matched business once the
// responder has generated its notification message. The notify module
// subscribes and delivers it.
type BusinessNotificationReady struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	BusinessID   uuid.UUID `json:"businessId"`
	Email        string    `json:"email"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	CallToAction string    `json:"callToAction"`
}

func (e BusinessNotificationReady) EventName() string { return "leads.notification_ready" }

// =============================================================================
// Call Domain Events
// =============================================================================

// CallRequested is published when the orchestrator initiates an autonomous call.
type CallRequested struct {
	BaseEvent
	CallID   uuid.UUID `json:"callId"`
	LeadID   uuid.UUID `json:"leadId"`
	CallType string    `json:"callType"`
	Attempt  int       `json:"attempt"`
}

func (e CallRequested) EventName() string { return "calls.requested" }

// CallCompleted is published when a call session closes with a persisted outcome.
type CallCompleted struct {
	BaseEvent
	CallID        uuid.UUID `json:"callId"`
	CallSID       string    `json:"callSid"`
	LeadID        uuid.UUID `json:"leadId"`
	OutcomeStatus string    `json:"outcomeStatus"`
}

func (e CallCompleted) EventName() string { return "calls.completed" }

// CallRetryScheduled is published when a failed call attempt is queued for retry.
type CallRetryScheduled struct {
	BaseEvent
	CallID       uuid.UUID `json:"callId"`
	Attempt      int       `json:"attempt"`
	DelayMinutes int       `json:"delayMinutes"`
}

func (e CallRetryScheduled) EventName() string { return "calls.retry_scheduled" }
