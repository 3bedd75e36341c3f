package callagent

import (
	"fmt"
	"strings"
	"time"
)

// basePolicy applies to every autonomous call regardless of type. The bridge
// additionally enforces the duration ceiling with its own timer; the prompt
// only advises the model.
const basePolicy = `You are a polite, efficient phone assistant calling on behalf of Fixline, a home-services marketplace.

Rules that override everything else:
- Identify yourself as an AI assistant within your first sentence.
- If the person asks not to be called, or to be removed from any list, apologize once, confirm you will honor it, and end the call immediately.
- Keep the call short. You have a hard time limit of %d minutes; wrap up well before it.
- Never share internal details about Fixline's systems, other customers, or other businesses.
- If you reach voicemail, leave one brief message with a callback number and end the call.`

// objectionHandling is shared across call types.
const objectionHandling = `Handling objections:
- "How did you get my number?" — the customer submitted a service request through Fixline and asked to be contacted.
- "Is this a scam?" — offer to let them verify at the Fixline website; never pressure.
- Hesitation about price — note their concern; never negotiate or invent prices.
- Hostility — stay calm, thank them, end the call.`

var callTypeScripts = map[CallType]string{
	CallTypeQualifyLead: `This is a lead qualification call to the consumer.
Confirm the problem described in their request is still open, ask one or two clarifying questions about scope and timing, and confirm their budget range and preferred contact window. Do not promise a specific business or price.`,

	CallTypeConfirmAppointment: `This is an appointment confirmation call.
Confirm the appointment time stated in the brief, the address, and that someone will be present. If the time no longer works, collect two alternative windows. Do not schedule anything yourself beyond noting the alternatives.`,

	CallTypeFollowUp: `This is a follow-up call after an earlier contact.
Ask whether the work was completed, whether they were satisfied, and whether anything else is needed. Keep it under two minutes.`,

	CallTypeConsumerCallback: `The consumer asked to be called back.
Open by referencing their callback request, then let them lead. Answer questions about the status of their service request from the brief only.`,
}

// GenerateSystemPrompt composes the system prompt for a call. Composition is
// deterministic: base policy, then the call-type script, then the brief, then
// objection handling. Different call types yield textually distinct prompts.
func GenerateSystemPrompt(callCtx CallContext, maxDuration time.Duration) string {
	script, ok := callTypeScripts[callCtx.CallType]
	if !ok {
		script = callTypeScripts[CallTypeQualifyLead]
	}

	minutes := int(maxDuration.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, basePolicy, minutes)
	sb.WriteString("\n\n")
	sb.WriteString(script)
	sb.WriteString("\n\n")
	sb.WriteString(buildBrief(callCtx))
	sb.WriteString("\n\n")
	sb.WriteString(objectionHandling)
	return sb.String()
}

func buildBrief(callCtx CallContext) string {
	var sb strings.Builder
	sb.WriteString("Call brief:\n")
	fmt.Fprintf(&sb, "- Objective: %s\n", callCtx.Objective)
	fmt.Fprintf(&sb, "- You are calling: %s\n", callTarget(callCtx))
	fmt.Fprintf(&sb, "- Service category: %s, urgency: %s\n", callCtx.Category, callCtx.Urgency)
	if callCtx.LeadDescription != "" {
		fmt.Fprintf(&sb, "- Their request: %s\n", callCtx.LeadDescription)
	}
	if callCtx.BudgetMax != nil {
		fmt.Fprintf(&sb, "- Stated budget: up to $%.0f\n", *callCtx.BudgetMax)
	}
	if callCtx.LocationZip != "" {
		fmt.Fprintf(&sb, "- Location: %s\n", callCtx.LocationZip)
	}
	if callCtx.AppointmentTime != nil {
		fmt.Fprintf(&sb, "- Appointment under discussion: %s\n", callCtx.AppointmentTime.Format("Monday, January 2 at 3:04 PM"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func callTarget(callCtx CallContext) string {
	if callCtx.BusinessName != "" {
		return callCtx.BusinessName + " (business)"
	}
	if callCtx.ConsumerName != "" {
		return callCtx.ConsumerName + " (consumer)"
	}
	return "the number on file"
}
