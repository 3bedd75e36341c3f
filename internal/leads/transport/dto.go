// Package transport defines the wire-level request/response shapes for the
// leads API.
package transport

import (
	"time"

	"fixline_backend/internal/callagent"
	"fixline_backend/internal/leads/domain"
	"fixline_backend/internal/matching"
)

// CreateLeadRequest is the public intake payload.
type CreateLeadRequest struct {
	Description string `json:"description" validate:"required,min=3,max=4000"`
	ContactName string `json:"contactName" validate:"required,min=1,max=200"`
	Phone       string `json:"phone" validate:"required,min=7,max=32"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
}

// RequestCallRequest asks for an autonomous call on a lead.
type RequestCallRequest struct {
	CallType string `json:"callType" validate:"required,oneof=qualify_lead confirm_appointment follow_up consumer_callback"`
}

// LeadResponse is the API view of a lead.
type LeadResponse struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	ContactName  string    `json:"contactName"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	Category     string    `json:"category,omitempty"`
	Urgency      string    `json:"urgency,omitempty"`
	BudgetMin    float64   `json:"budgetMin"`
	BudgetMax    *float64  `json:"budgetMax,omitempty"`
	LocationZip  *string   `json:"locationZip,omitempty"`
	Requirements []string  `json:"requirements,omitempty"`
	Sentiment    string    `json:"sentiment,omitempty"`
	QualityScore float64   `json:"qualityScore"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func ToLeadResponse(lead domain.Lead) LeadResponse {
	return LeadResponse{
		ID:           lead.ID.String(),
		Description:  lead.Description,
		ContactName:  lead.ContactName,
		Phone:        lead.Phone,
		Email:        lead.Email,
		Category:     string(lead.Category),
		Urgency:      string(lead.Urgency),
		BudgetMin:    lead.BudgetMin,
		BudgetMax:    lead.BudgetMax,
		LocationZip:  lead.LocationZip,
		Requirements: lead.Requirements,
		Sentiment:    string(lead.Sentiment),
		QualityScore: lead.QualityScore,
		Status:       string(lead.Status),
		CreatedAt:    lead.CreatedAt,
	}
}

// MatchResponse is the API view of one ranked match.
type MatchResponse struct {
	BusinessID   string   `json:"businessId"`
	BusinessName string   `json:"businessName"`
	Confidence   float64  `json:"confidence"`
	DistanceKm   *float64 `json:"distanceKm,omitempty"`
	Reasons      []string `json:"reasons"`
}

func ToMatchResponses(matches []matching.Match) []MatchResponse {
	out := make([]MatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, MatchResponse{
			BusinessID:   m.Business.ID.String(),
			BusinessName: m.Business.Name,
			Confidence:   m.Confidence,
			DistanceKm:   m.DistanceKm,
			Reasons:      m.Reasons,
		})
	}
	return out
}

// ProcessResultResponse is returned by the intake endpoint once the pipeline
// has run.
type ProcessResultResponse struct {
	Lead    LeadResponse    `json:"lead"`
	Matches []MatchResponse `json:"matches"`
}

// CallRecordResponse is the audit view of one call attempt.
type CallRecordResponse struct {
	ID          string     `json:"id"`
	CallSID     *string    `json:"callSid,omitempty"`
	CallType    string     `json:"callType"`
	Attempt     int        `json:"attempt"`
	Outcome     *string    `json:"outcome,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func ToCallRecordResponses(records []callagent.CallRecord) []CallRecordResponse {
	out := make([]CallRecordResponse, 0, len(records))
	for _, rec := range records {
		resp := CallRecordResponse{
			ID:          rec.ID.String(),
			CallSID:     rec.CallSID,
			CallType:    string(rec.CallType),
			Attempt:     rec.Attempt,
			CreatedAt:   rec.CreatedAt,
			CompletedAt: rec.CompletedAt,
		}
		if rec.Outcome != nil {
			status := string(rec.Outcome.Status)
			resp.Outcome = &status
			resp.Summary = rec.Outcome.Summary
		}
		out = append(out, resp)
	}
	return out
}
