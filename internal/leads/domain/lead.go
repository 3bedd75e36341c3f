// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceCategory is the closed set of service categories a lead can classify to.
type ServiceCategory string

const (
	CategoryPlumbing        ServiceCategory = "plumbing"
	CategoryHVAC            ServiceCategory = "hvac"
	CategoryElectrical      ServiceCategory = "electrical"
	CategoryRoofing         ServiceCategory = "roofing"
	CategoryCarpentry       ServiceCategory = "carpentry"
	CategoryPainting        ServiceCategory = "painting"
	CategoryLandscaping     ServiceCategory = "landscaping"
	CategoryCleaning        ServiceCategory = "cleaning"
	CategoryApplianceRepair ServiceCategory = "appliance_repair"
	CategoryOther           ServiceCategory = "other"
)

var knownCategories = map[ServiceCategory]struct{}{
	CategoryPlumbing:        {},
	CategoryHVAC:            {},
	CategoryElectrical:      {},
	CategoryRoofing:         {},
	CategoryCarpentry:       {},
	CategoryPainting:        {},
	CategoryLandscaping:     {},
	CategoryCleaning:        {},
	CategoryApplianceRepair: {},
	CategoryOther:           {},
}

// IsKnownCategory reports whether the category is part of the closed set.
func IsKnownCategory(c ServiceCategory) bool {
	_, ok := knownCategories[c]
	return ok
}

// Urgency is the closed urgency scale. The emergency/high/medium/low set is
// authoritative; the alternate emergency/urgent/normal/flexible scale seen in
// older material is not used anywhere in this codebase.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyHigh      Urgency = "high"
	UrgencyMedium    Urgency = "medium"
	UrgencyLow       Urgency = "low"
)

var knownUrgencies = map[Urgency]struct{}{
	UrgencyEmergency: {},
	UrgencyHigh:      {},
	UrgencyMedium:    {},
	UrgencyLow:       {},
}

// IsKnownUrgency reports whether the urgency is part of the closed set.
func IsKnownUrgency(u Urgency) bool {
	_, ok := knownUrgencies[u]
	return ok
}

// Sentiment of the consumer's description.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Classification is the structured result derived from a lead's free text.
type Classification struct {
	Category     ServiceCategory
	Urgency      Urgency
	BudgetMin    float64
	BudgetMax    *float64
	LocationZip  *string
	Latitude     *float64
	Longitude    *float64
	Requirements []string
	Sentiment    Sentiment
	QualityScore float64 // 0-10
}

// Lead is a structured, scored representation of a consumer's stated problem.
type Lead struct {
	ID          uuid.UUID
	Description string
	ContactName string
	Phone       string
	Email       string

	Category     ServiceCategory
	Urgency      Urgency
	BudgetMin    float64
	BudgetMax    *float64
	LocationZip  *string
	Latitude     *float64
	Longitude    *float64
	Requirements []string
	Sentiment    Sentiment
	QualityScore float64

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCoordinates reports whether the lead carries a usable location point.
func (l Lead) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// ApplyClassification copies the classifier's derived attributes onto the lead.
func (l *Lead) ApplyClassification(c Classification) {
	l.Category = c.Category
	l.Urgency = c.Urgency
	l.BudgetMin = c.BudgetMin
	l.BudgetMax = c.BudgetMax
	l.LocationZip = c.LocationZip
	l.Latitude = c.Latitude
	l.Longitude = c.Longitude
	l.Requirements = c.Requirements
	l.Sentiment = c.Sentiment
	l.QualityScore = c.QualityScore
}
