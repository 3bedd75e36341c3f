package responder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fixline_backend/internal/businesses/repository"
	"fixline_backend/internal/leads/domain"
)

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return f.response, f.err
}

func ptr[T any](v T) *T { return &v }

func sampleLead() domain.Lead {
	return domain.Lead{
		Category:    domain.CategoryPlumbing,
		Urgency:     domain.UrgencyEmergency,
		Description: "water heater leaking",
		LocationZip: ptr("46032"),
		BudgetMax:   ptr(500.0),
	}
}

func TestGenerate_UrgentSubject(t *testing.T) {
	gen := &fakeGenerator{response: `{"subject": "New plumbing lead", "message": "A customer in 46032 needs help, budget up to $500.", "call_to_action": "Reply within the hour"}`}
	g := New(gen)

	resp, err := g.Generate(context.Background(), sampleLead(), repository.Business{Name: "Ace Plumbing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(strings.ToUpper(resp.Subject), "URGENT") {
		t.Fatalf("emergency lead must produce a visibly urgent subject, got %q", resp.Subject)
	}
}

func TestGenerate_LocationAndBudgetVerbatim(t *testing.T) {
	// Model paraphrased away the figures; the generator restores them.
	gen := &fakeGenerator{response: `{"subject": "URGENT: plumbing lead", "message": "A nearby customer needs urgent help with a water heater.", "call_to_action": "Call now"}`}
	g := New(gen)

	resp, err := g.Generate(context.Background(), sampleLead(), repository.Business{Name: "Ace Plumbing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.Message, "46032") {
		t.Fatalf("message must carry the location verbatim, got %q", resp.Message)
	}
	if !strings.Contains(resp.Message, "$500") {
		t.Fatalf("message must carry the budget verbatim, got %q", resp.Message)
	}
}

func TestGenerate_FailureSurfaces(t *testing.T) {
	g := New(&fakeGenerator{err: errors.New("timeout")})

	_, err := g.Generate(context.Background(), sampleLead(), repository.Business{})
	if err == nil {
		t.Fatal("generation failure must surface as an error, not fallback text")
	}
}

func TestGenerate_MalformedPayloadSurfaces(t *testing.T) {
	g := New(&fakeGenerator{response: "sorry, I cannot help with that"})

	_, err := g.Generate(context.Background(), sampleLead(), repository.Business{})
	if err == nil {
		t.Fatal("unparsable payload must surface as an error")
	}
}
