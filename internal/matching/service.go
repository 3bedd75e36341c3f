// Package matching ranks registered businesses against a classified lead
// using geography, capability, and quality signals.
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"

	"fixline_backend/internal/businesses/repository"
	"fixline_backend/internal/leads/domain"
	"fixline_backend/platform/logger"
)

// Confidence contributions. Category eligibility is a hard gate enforced by
// the business query, worth a fixed base; the rest scale with signal quality.
const (
	categoryBaseScore = 20.0
	maxProximityScore = 40.0
	maxRatingScore    = 25.0
	emergencyBoost    = 15.0
	maxRating         = 5.0
)

// BusinessSource provides candidate businesses for a category.
type BusinessSource interface {
	FindActiveByCategory(ctx context.Context, category string) ([]repository.Business, error)
}

// Match is a scored pairing of a lead with a candidate business. Matches are
// ephemeral; they are recomputed on demand and not persisted by this core.
type Match struct {
	Business   repository.Business
	Confidence float64 // 0-100
	DistanceKm *float64
	Reasons    []string
}

// Service ranks businesses for leads.
type Service struct {
	source   BusinessSource
	radiusKm float64
	maxOut   int
	log      *logger.Logger
}

// New creates a matching service. radiusKm is the maximum effective radius
// for proximity scoring; maxOut caps the number of returned matches.
func New(source BusinessSource, radiusKm float64, maxOut int, log *logger.Logger) *Service {
	if radiusKm <= 0 {
		radiusKm = 40
	}
	return &Service{source: source, radiusKm: radiusKm, maxOut: maxOut, log: log}
}

// FindMatches returns active, category-capable businesses ordered by
// descending confidence, ties broken by ascending distance. An empty slice,
// not an error, is returned when no businesses qualify.
func (s *Service) FindMatches(ctx context.Context, lead domain.Lead) ([]Match, error) {
	candidates, err := s.source.FindActiveByCategory(ctx, string(lead.Category))
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	matches := make([]Match, 0, len(candidates))
	for _, business := range candidates {
		if match, ok := s.score(lead, business); ok {
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		di, dj := distanceOrInf(matches[i]), distanceOrInf(matches[j])
		if di != dj {
			return di < dj
		}
		// Stable order for equal inputs.
		return matches[i].Business.ID.String() < matches[j].Business.ID.String()
	})

	if s.maxOut > 0 && len(matches) > s.maxOut {
		matches = matches[:s.maxOut]
	}

	return matches, nil
}

func (s *Service) score(lead domain.Lead, business repository.Business) (Match, bool) {
	match := Match{
		Business:   business,
		Confidence: categoryBaseScore,
		Reasons:    []string{fmt.Sprintf("offers %s service", lead.Category)},
	}

	if lead.HasCoordinates() {
		dist := haversineKm(*lead.Latitude, *lead.Longitude, business.Latitude, business.Longitude)
		if dist > s.radiusKm {
			return Match{}, false
		}
		match.DistanceKm = &dist
		match.Confidence += maxProximityScore * (1 - dist/s.radiusKm)
		match.Reasons = append(match.Reasons, fmt.Sprintf("within %.0f km", math.Ceil(dist)))
	} else if lead.LocationZip != nil && *lead.LocationZip == business.PostalCode {
		// No coordinates: a shared postal code is the best proximity signal available.
		match.Confidence += maxProximityScore * 0.75
		match.Reasons = append(match.Reasons, "serves postal code "+business.PostalCode)
	}

	if business.Rating > 0 {
		rating := math.Min(business.Rating, maxRating)
		match.Confidence += maxRatingScore * (rating / maxRating)
		match.Reasons = append(match.Reasons, fmt.Sprintf("rated %.1f/5", rating))
	}

	if lead.Urgency == domain.UrgencyEmergency && business.EmergencyCapable {
		match.Confidence += emergencyBoost
		match.Reasons = append(match.Reasons, "offers emergency service")
	}

	if business.Licensed && business.Insured {
		match.Reasons = append(match.Reasons, "licensed and insured")
	}

	if match.Confidence > 100 {
		match.Confidence = 100
	}
	return match, true
}

func distanceOrInf(m Match) float64 {
	if m.DistanceKm == nil {
		return math.Inf(1)
	}
	return *m.DistanceKm
}

const earthRadiusKm = 6371.0

// haversineKm computes the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
