// Package responder produces per-business notification messages for matched
// leads. It is stateless: output is a pure function of the lead, the business,
// and one text-generation call.
package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fixline_backend/internal/businesses/repository"
	"fixline_backend/internal/leads/domain"
	"fixline_backend/platform/ai/textgen"
	"fixline_backend/platform/apperr"
)

// Response is the notification message delivered to one matched business.
type Response struct {
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	CallToAction string `json:"call_to_action"`
}

// Generator produces notification messages.
type Generator struct {
	gen textgen.Generator
}

// New creates a response generator.
func New(gen textgen.Generator) *Generator {
	return &Generator{gen: gen}
}

const responderSystemPrompt = `You write short notification messages to service businesses about new customer leads.
Respond with a single JSON object: {"subject": string, "message": string, "call_to_action": string}.
The tone must match the stated urgency. Include the customer's location and budget figures exactly as given.
Never invent details that are not in the lead.`

// Generate produces the notification for one (lead, business) pair. A failed
// or unparsable generation surfaces as an error: a malformed message sent to
// a business is worse than a failed send, so there is no fallback text.
func (g *Generator) Generate(ctx context.Context, lead domain.Lead, business repository.Business) (Response, error) {
	raw, err := g.gen.Generate(ctx, responderSystemPrompt, buildPrompt(lead, business))
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindUnavailable, "response generation failed", err).WithOp("responder.Generate")
	}

	body, err := textgen.ExtractJSON(raw)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "unparsable response payload", err).WithOp("responder.Generate")
	}

	var resp Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "unparsable response payload", err).WithOp("responder.Generate")
	}
	if resp.Subject == "" || resp.Message == "" {
		return Response{}, apperr.Internal("response payload missing subject or message").WithOp("responder.Generate")
	}

	finalize(&resp, lead)
	return resp, nil
}

// finalize applies the deterministic parts of the contract: urgent subjects
// are visibly urgent, and location/budget figures appear verbatim even when
// the model paraphrased them away.
func finalize(resp *Response, lead domain.Lead) {
	if lead.Urgency == domain.UrgencyEmergency && !strings.Contains(strings.ToUpper(resp.Subject), "URGENT") {
		resp.Subject = "URGENT: " + resp.Subject
	}

	var details []string
	if lead.LocationZip != nil && *lead.LocationZip != "" && !strings.Contains(resp.Message, *lead.LocationZip) {
		details = append(details, "Location: "+*lead.LocationZip)
	}
	if lead.BudgetMax != nil {
		figure := formatMoney(*lead.BudgetMax)
		if !strings.Contains(resp.Message, figure) {
			details = append(details, "Budget: up to "+figure)
		}
	} else if lead.BudgetMin > 0 {
		figure := formatMoney(lead.BudgetMin)
		if !strings.Contains(resp.Message, figure) {
			details = append(details, "Budget: from "+figure)
		}
	}
	if len(details) > 0 {
		resp.Message = resp.Message + "\n\n" + strings.Join(details, "\n")
	}
}

func formatMoney(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("$%d", int64(v))
	}
	return fmt.Sprintf("$%.2f", v)
}

func buildPrompt(lead domain.Lead, business repository.Business) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Business: %s (%s tier, rating %.1f)\n", business.Name, business.PricingTier, business.Rating)
	fmt.Fprintf(&sb, "Lead category: %s\n", lead.Category)
	fmt.Fprintf(&sb, "Urgency: %s\n", lead.Urgency)
	fmt.Fprintf(&sb, "Description: %s\n", lead.Description)
	if lead.LocationZip != nil && *lead.LocationZip != "" {
		fmt.Fprintf(&sb, "Location: %s\n", *lead.LocationZip)
	}
	if lead.BudgetMax != nil {
		fmt.Fprintf(&sb, "Budget: %s to %s\n", formatMoney(lead.BudgetMin), formatMoney(*lead.BudgetMax))
	} else if lead.BudgetMin > 0 {
		fmt.Fprintf(&sb, "Budget: from %s\n", formatMoney(lead.BudgetMin))
	}
	if len(lead.Requirements) > 0 {
		fmt.Fprintf(&sb, "Key requirements: %s\n", strings.Join(lead.Requirements, "; "))
	}
	sb.WriteString("Write the notification.")
	return sb.String()
}
