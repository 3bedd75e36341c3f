package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fixline_backend/internal/leads/domain"
	"fixline_backend/platform/apperr"
)

// fakeGenerator returns canned responses in order, or an error.
type fakeGenerator struct {
	responses []string
	err       error
	calls     int
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
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

const waterHeaterResponse = `{
	"category": "plumbing",
	"urgency": "emergency",
	"budget_min": 0,
	"budget_max": 500,
	"location_zip": "46032",
	"requirements": ["water heater leaking", "needs someone ASAP"],
	"sentiment": "negative"
}`

const vagueResponse = `{
	"category": "other",
	"urgency": "low",
	"budget_min": 0,
	"budget_max": null,
	"location_zip": null,
	"requirements": [],
	"sentiment": "neutral"
}`

func TestClassify_WaterHeaterScenario(t *testing.T) {
	c := New(&fakeGenerator{responses: []string{waterHeaterResponse}}, nil)

	got, err := c.Classify(context.Background(), "My water heater is leaking badly, need someone ASAP in 46032, budget $500 max")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != domain.CategoryPlumbing {
		t.Fatalf("expected plumbing, got %s", got.Category)
	}
	if got.Urgency != domain.UrgencyEmergency {
		t.Fatalf("expected emergency, got %s", got.Urgency)
	}
	if got.BudgetMax == nil || *got.BudgetMax != 500 {
		t.Fatalf("expected budget_max 500, got %v", got.BudgetMax)
	}
	if got.LocationZip == nil || *got.LocationZip != "46032" {
		t.Fatalf("expected zip 46032, got %v", got.LocationZip)
	}
	if got.QualityScore <= 7 {
		t.Fatalf("expected quality score > 7, got %.2f", got.QualityScore)
	}
}

func TestClassify_VagueTextScoresLow(t *testing.T) {
	c := New(&fakeGenerator{responses: []string{vagueResponse}}, nil)

	got, err := c.Classify(context.Background(), "need help with stuff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.QualityScore >= 5 {
		t.Fatalf("expected a low quality score, got %.2f", got.QualityScore)
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	c := New(&fakeGenerator{}, nil)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := c.Classify(context.Background(), input)
		if !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput for %q, got %v", input, err)
		}
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation kind for %q", input)
		}
	}
}

func TestClassify_ToleratesCodeFence(t *testing.T) {
	wrapped := "Here is the classification you asked for:\n```json\n" + waterHeaterResponse + "\n```\nHope that helps!"
	c := New(&fakeGenerator{responses: []string{wrapped}}, nil)

	got, err := c.Classify(context.Background(), "My water heater is leaking badly, need someone ASAP in 46032, budget $500 max")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != domain.CategoryPlumbing {
		t.Fatalf("expected plumbing, got %s", got.Category)
	}
}

func TestClassify_GenerationFailure(t *testing.T) {
	c := New(&fakeGenerator{err: errors.New("rate limited")}, nil)

	_, err := c.Classify(context.Background(), "leaking faucet in 46032")
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable kind, got %v", err)
	}
}

func TestClassify_RejectsUnknownEnums(t *testing.T) {
	c := New(&fakeGenerator{responses: []string{`{"category": "plumbing", "urgency": "urgent"}`}}, nil)

	_, err := c.Classify(context.Background(), "leaking faucet")
	if err == nil {
		t.Fatal("expected error for urgency outside the closed set")
	}
}

func TestClassify_RejectsMissingFields(t *testing.T) {
	c := New(&fakeGenerator{responses: []string{`{"budget_min": 100}`}}, nil)

	_, err := c.Classify(context.Background(), "leaking faucet")
	if err == nil {
		t.Fatal("expected error for missing required fields")
	}
}

func TestClassifyBatch_FailFast(t *testing.T) {
	gen := &fakeGenerator{responses: []string{waterHeaterResponse, "not json at all", waterHeaterResponse}}
	c := New(gen, nil)

	_, err := c.ClassifyBatch(context.Background(), []string{"a leaking heater", "b", "c"})
	if err == nil {
		t.Fatal("expected batch to fail")
	}
	if !strings.Contains(err.Error(), "item 1") {
		t.Fatalf("expected failure on item 1, got %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected fail-fast after 2 calls, got %d", gen.calls)
	}
}

func TestClassifySafe_SwallowsFailure(t *testing.T) {
	c := New(&fakeGenerator{err: errors.New("boom")}, nil)

	if got := c.ClassifySafe(context.Background(), "leaking faucet"); got != nil {
		t.Fatalf("expected nil result, got %+v", got)
	}
}

func TestScore_Range(t *testing.T) {
	budget := 500.0
	zip := "46032"
	full := domain.Classification{
		Category:     domain.CategoryPlumbing,
		Urgency:      domain.UrgencyEmergency,
		BudgetMax:    &budget,
		LocationZip:  &zip,
		Requirements: []string{"a", "b", "c"},
	}
	if got := Score(full, strings.Repeat("x", 80)); got > 10 {
		t.Fatalf("score must not exceed 10, got %.2f", got)
	}
	if got := Score(domain.Classification{Category: domain.CategoryOther, Urgency: domain.UrgencyLow}, "hi"); got < 0 {
		t.Fatalf("score must not go below 0, got %.2f", got)
	}
}
