package classifier

import (
	"strings"

	"fixline_backend/internal/leads/domain"
)

// Scoring weights. The score is deterministic given the extracted structure,
// so the quality gate behaves the same on retries of the same text.
const (
	scoreBase = 2.0

	scoreKnownCategory  = 1.5
	scoreLocation       = 1.5
	scoreBudget         = 1.5
	scorePerRequirement = 0.75
	scoreRequirementCap = 1.5
	scoreUrgencySignal  = 1.0
	scoreSpecificText   = 1.0

	// Descriptions shorter than this rarely contain enough detail to match on.
	specificTextMinLength = 40

	scoreMax = 10.0
)

// Score computes the lead quality score in [0,10] from the extracted
// classification. It rewards completeness and specificity: a usable location,
// explicit budget figures, and concrete requirement phrases.
func Score(c domain.Classification, text string) float64 {
	score := scoreBase

	if c.Category != domain.CategoryOther && domain.IsKnownCategory(c.Category) {
		score += scoreKnownCategory
	}

	if (c.LocationZip != nil && *c.LocationZip != "") || (c.Latitude != nil && c.Longitude != nil) {
		score += scoreLocation
	}

	if c.BudgetMax != nil || c.BudgetMin > 0 {
		score += scoreBudget
	}

	reqScore := float64(len(c.Requirements)) * scorePerRequirement
	if reqScore > scoreRequirementCap {
		reqScore = scoreRequirementCap
	}
	score += reqScore

	if c.Urgency == domain.UrgencyEmergency || c.Urgency == domain.UrgencyHigh {
		score += scoreUrgencySignal
	}

	if len(strings.TrimSpace(text)) >= specificTextMinLength {
		score += scoreSpecificText
	}

	if score > scoreMax {
		score = scoreMax
	}
	return score
}
