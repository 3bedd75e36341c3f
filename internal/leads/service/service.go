// Package service is the lead orchestrator: it sequences classification,
// the quality gate, matching, notification fan-out and call initiation, and
// owns all lead status writes outside the call agent's post-call update.
package service

import (
	"context"
	"fmt"

	"fixline_backend/internal/businesses/repository"
	"fixline_backend/internal/callagent"
	"fixline_backend/internal/events"
	"fixline_backend/internal/leads/domain"
	"fixline_backend/internal/matching"
	"fixline_backend/internal/responder"
	"fixline_backend/platform/apperr"
	"fixline_backend/platform/logger"
	"fixline_backend/platform/phone"
	"fixline_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Classifier turns free text into structured lead attributes.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// Matcher ranks businesses for a classified lead.
type Matcher interface {
	FindMatches(ctx context.Context, lead domain.Lead) ([]matching.Match, error)
}

// Responder produces the per-business notification message.
type Responder interface {
	Generate(ctx context.Context, lead domain.Lead, business repository.Business) (responder.Response, error)
}

// LeadStore is the persistence surface the orchestrator needs.
type LeadStore interface {
	Create(ctx context.Context, lead domain.Lead) error
	SaveClassification(ctx context.Context, lead domain.Lead) error
	UpdateStatus(ctx context.Context, leadID uuid.UUID, status domain.Status) error
	GetByID(ctx context.Context, leadID uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, status *domain.Status, limit, offset int) ([]domain.Lead, error)
}

// CallStarter begins an autonomous call attempt.
type CallStarter interface {
	StartCall(ctx context.Context, callCtx callagent.CallContext, attempt int) (callagent.CallRecord, error)
}

// SetupDocBuilder renders the call-setup document for a new call.
type SetupDocBuilder interface {
	CallSetupDocument(callID uuid.UUID) (string, error)
}

// NewLead is the raw intake before any processing.
type NewLead struct {
	Description string
	ContactName string
	Phone       string
	Email       string
}

// ProcessResult is what intake hands back: the stored lead plus its ranked
// matches (empty below the quality threshold).
type ProcessResult struct {
	Lead    domain.Lead
	Matches []matching.Match
}

type Service struct {
	store      LeadStore
	classifier Classifier
	matcher    Matcher
	responder  Responder
	agent      CallStarter
	setupDocs  SetupDocBuilder
	bus        events.Bus
	threshold  float64
	log        *logger.Logger
}

func New(store LeadStore, classifier Classifier, matcher Matcher, resp Responder, agent CallStarter, setupDocs SetupDocBuilder, bus events.Bus, qualityThreshold float64, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		matcher:    matcher,
		responder:  resp,
		agent:      agent,
		setupDocs:  setupDocs,
		bus:        bus,
		threshold:  qualityThreshold,
		log:        log,
	}
}

// ProcessLead runs the full intake pipeline. Leads scoring below the quality
// threshold are routed to the terminal low_quality status without the
// matcher ever being invoked.
func (s *Service) ProcessLead(ctx context.Context, raw NewLead) (ProcessResult, error) {
	description := sanitize.Text(raw.Description)
	if description == "" {
		return ProcessResult{}, apperr.Validation("description must not be empty")
	}

	if !phone.IsDialable(raw.Phone) {
		return ProcessResult{}, apperr.Validation("invalid phone number")
	}

	lead := domain.Lead{
		ID:          uuid.New(),
		Description: description,
		ContactName: sanitize.Text(raw.ContactName),
		Phone:       phone.NormalizeE164(raw.Phone),
		Email:       sanitize.Text(raw.Email),
		Status:      domain.StatusPending,
	}
	if err := s.store.Create(ctx, lead); err != nil {
		return ProcessResult{}, fmt.Errorf("create lead: %w", err)
	}

	classification, err := s.classifier.Classify(ctx, description)
	if err != nil {
		s.log.ClassificationFailure(lead.ID.String(), err)
		return ProcessResult{}, err
	}
	lead.ApplyClassification(classification)

	if err := s.store.SaveClassification(ctx, lead); err != nil {
		return ProcessResult{}, fmt.Errorf("save classification: %w", err)
	}
	if err := s.transition(ctx, &lead, domain.StatusClassified); err != nil {
		return ProcessResult{}, err
	}

	s.bus.Publish(ctx, events.LeadClassified{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		Category:     string(lead.Category),
		Urgency:      string(lead.Urgency),
		QualityScore: lead.QualityScore,
	})

	if lead.QualityScore < s.threshold {
		if err := s.transition(ctx, &lead, domain.StatusLowQuality); err != nil {
			return ProcessResult{}, err
		}
		s.bus.Publish(ctx, events.LeadLowQuality{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			QualityScore: lead.QualityScore,
			Threshold:    s.threshold,
		})
		return ProcessResult{Lead: lead, Matches: []matching.Match{}}, nil
	}

	matches, err := s.matcher.FindMatches(ctx, lead)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("find matches: %w", err)
	}
	if len(matches) == 0 {
		// Classified but unmatched; the lead stays available for later runs.
		return ProcessResult{Lead: lead, Matches: matches}, nil
	}

	if err := s.transition(ctx, &lead, domain.StatusMatched); err != nil {
		return ProcessResult{}, err
	}
	s.bus.Publish(ctx, events.LeadMatched{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		MatchCount: len(matches),
	})

	s.fanOutNotifications(ctx, lead, matches)

	return ProcessResult{Lead: lead, Matches: matches}, nil
}

// fanOutNotifications generates one message per matched business and hands
// each to the notify module via the bus. A generation failure skips that
// business; a malformed message must not reach anyone.
func (s *Service) fanOutNotifications(ctx context.Context, lead domain.Lead, matches []matching.Match) {
	for _, match := range matches {
		resp, err := s.responder.Generate(ctx, lead, match.Business)
		if err != nil {
			s.log.Error("notification generation failed",
				"lead_id", lead.ID, "business_id", match.Business.ID, "error", err)
			continue
		}
		s.bus.Publish(ctx, events.BusinessNotificationReady{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			BusinessID:   match.Business.ID,
			Email:        match.Business.Email,
			Subject:      resp.Subject,
			Message:      resp.Message,
			CallToAction: resp.CallToAction,
		})
	}
}

// RequestCall builds the immutable call brief for a lead and starts the call
// attempt, returning the record plus the call-setup document the telephony
// provider needs.
func (s *Service) RequestCall(ctx context.Context, leadID uuid.UUID, callType callagent.CallType) (callagent.CallRecord, string, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return callagent.CallRecord{}, "", err
	}

	switch lead.Status {
	case domain.StatusMatched, domain.StatusContacted:
	default:
		return callagent.CallRecord{}, "", apperr.Conflict(
			fmt.Sprintf("cannot call a lead in status %q", lead.Status))
	}

	if !phone.IsDialable(lead.Phone) {
		return callagent.CallRecord{}, "", apperr.Validation("lead has no dialable phone number")
	}

	callCtx := BuildCallContext(lead, callType)
	rec, err := s.agent.StartCall(ctx, callCtx, 1)
	if err != nil {
		return callagent.CallRecord{}, "", err
	}

	doc, err := s.setupDocs.CallSetupDocument(rec.ID)
	if err != nil {
		return callagent.CallRecord{}, "", fmt.Errorf("build call-setup document: %w", err)
	}
	return rec, doc, nil
}

// BuildCallContext assembles the call's immutable brief from the lead.
func BuildCallContext(lead domain.Lead, callType callagent.CallType) callagent.CallContext {
	zip := ""
	if lead.LocationZip != nil {
		zip = *lead.LocationZip
	}
	return callagent.CallContext{
		CallID:          uuid.New(),
		LeadID:          lead.ID,
		CallType:        callType,
		Objective:       objectiveFor(callType, lead),
		TargetNumber:    lead.Phone,
		ConsumerName:    lead.ContactName,
		LeadDescription: lead.Description,
		Category:        string(lead.Category),
		Urgency:         string(lead.Urgency),
		BudgetMax:       lead.BudgetMax,
		LocationZip:     zip,
	}
}

func objectiveFor(callType callagent.CallType, lead domain.Lead) string {
	switch callType {
	case callagent.CallTypeConfirmAppointment:
		return fmt.Sprintf("confirm the upcoming %s appointment details", lead.Category)
	case callagent.CallTypeFollowUp:
		return fmt.Sprintf("follow up on the %s request and check satisfaction", lead.Category)
	case callagent.CallTypeConsumerCallback:
		return "return the consumer's callback request"
	default:
		return fmt.Sprintf("qualify the %s request: confirm scope, timing and budget", lead.Category)
	}
}

// GetLead returns one lead.
func (s *Service) GetLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	return s.store.GetByID(ctx, leadID)
}

// ListLeads returns leads newest first, optionally filtered by status.
func (s *Service) ListLeads(ctx context.Context, status *domain.Status, limit, offset int) ([]domain.Lead, error) {
	return s.store.List(ctx, status, limit, offset)
}

// transition enforces the lifecycle table before writing the new status.
func (s *Service) transition(ctx context.Context, lead *domain.Lead, to domain.Status) error {
	if !domain.CanTransition(lead.Status, to) {
		return apperr.Conflict(fmt.Sprintf("illegal lead transition %s -> %s", lead.Status, to))
	}
	if err := s.store.UpdateStatus(ctx, lead.ID, to); err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	lead.Status = to
	return nil
}
