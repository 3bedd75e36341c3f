// Package classifier turns free-text problem descriptions into structured,
// quality-scored lead classifications.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fixline_backend/internal/leads/domain"
	"fixline_backend/platform/ai/textgen"
	"fixline_backend/platform/apperr"
	"fixline_backend/platform/logger"
)

// ErrEmptyInput is returned when the input text is empty or whitespace-only.
var ErrEmptyInput = apperr.Validation("lead text is empty")

// Classifier extracts structured lead attributes from free text.
type Classifier struct {
	gen textgen.Generator
	log *logger.Logger
}

// New creates a Classifier.
func New(gen textgen.Generator, log *logger.Logger) *Classifier {
	return &Classifier{gen: gen, log: log}
}

// payload is the structured response expected from the model.
type payload struct {
	Category     string   `json:"category"`
	Urgency      string   `json:"urgency"`
	BudgetMin    float64  `json:"budget_min"`
	BudgetMax    *float64 `json:"budget_max"`
	LocationZip  *string  `json:"location_zip"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Requirements []string `json:"requirements"`
	Sentiment    string   `json:"sentiment"`
}

// Classify extracts a classification from the given text. It fails with a
// validation error for empty input and an unavailable/internal error when the
// model call fails or its response cannot be parsed into the required shape.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Classification{}, ErrEmptyInput
	}

	raw, err := c.gen.Generate(ctx, classifySystemPrompt, buildClassifyPrompt(text))
	if err != nil {
		return domain.Classification{}, apperr.Wrap(apperr.KindUnavailable, "classification call failed", err).WithOp("classifier.Classify")
	}

	parsed, err := parsePayload(raw)
	if err != nil {
		return domain.Classification{}, apperr.Wrap(apperr.KindInternal, "unparsable classification response", err).WithOp("classifier.Classify")
	}

	result := domain.Classification{
		Category:     domain.ServiceCategory(parsed.Category),
		Urgency:      domain.Urgency(parsed.Urgency),
		BudgetMin:    parsed.BudgetMin,
		BudgetMax:    parsed.BudgetMax,
		LocationZip:  parsed.LocationZip,
		Latitude:     parsed.Latitude,
		Longitude:    parsed.Longitude,
		Requirements: parsed.Requirements,
		Sentiment:    domain.Sentiment(parsed.Sentiment),
	}
	result.QualityScore = Score(result, text)

	return result, nil
}

// ClassifyBatch processes a list sequentially and fails the whole batch on the
// first failure.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string) ([]domain.Classification, error) {
	results := make([]domain.Classification, 0, len(texts))
	for i, text := range texts {
		result, err := c.Classify(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("classify batch item %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ClassifySafe converts any classification failure into a nil result, for
// call sites that tolerate skips.
func (c *Classifier) ClassifySafe(ctx context.Context, text string) *domain.Classification {
	result, err := c.Classify(ctx, text)
	if err != nil {
		if c.log != nil {
			c.log.ClassificationFailure("", err)
		}
		return nil
	}
	return &result
}

// parsePayload extracts and validates the structured payload embedded in the
// model response. The payload may be wrapped in prose or code fences.
func parsePayload(raw string) (payload, error) {
	body, err := textgen.ExtractJSON(raw)
	if err != nil {
		return payload{}, err
	}

	var parsed payload
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return payload{}, fmt.Errorf("decode classification: %w", err)
	}

	parsed.Category = strings.ToLower(strings.TrimSpace(parsed.Category))
	parsed.Urgency = strings.ToLower(strings.TrimSpace(parsed.Urgency))
	parsed.Sentiment = strings.ToLower(strings.TrimSpace(parsed.Sentiment))

	if parsed.Category == "" || parsed.Urgency == "" {
		return payload{}, fmt.Errorf("classification missing required fields")
	}
	if !domain.IsKnownCategory(domain.ServiceCategory(parsed.Category)) {
		return payload{}, fmt.Errorf("unknown service category %q", parsed.Category)
	}
	if !domain.IsKnownUrgency(domain.Urgency(parsed.Urgency)) {
		return payload{}, fmt.Errorf("unknown urgency %q", parsed.Urgency)
	}
	if parsed.Sentiment == "" {
		parsed.Sentiment = string(domain.SentimentNeutral)
	}

	return parsed, nil
}
