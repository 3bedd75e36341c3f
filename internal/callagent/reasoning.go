package callagent

import (
	"context"
	"fmt"
	"strings"
)

// FallbackInstruction is returned when mid-call reasoning fails. The call is
// live and cannot wait on retries, so the session continues scripted.
const FallbackInstruction = "Continue with the standard script. Stay polite, keep answers short, and steer back to the call objective."

const reasoningSystemPrompt = `You advise a live AI phone assistant that has hit a situation outside its script.
Reply with one short, directly actionable instruction (one or two sentences). No preamble, no alternatives.`

// RequestReasoning asks the model how to handle an unscripted mid-call
// situation. On any failure it returns the safe fallback instruction; a
// reasoning failure must never surface into a live call.
func (a *Agent) RequestReasoning(ctx context.Context, history Transcript, situation, question string) string {
	prompt := buildReasoningPrompt(history, situation, question)

	reply, err := a.gen.Generate(ctx, reasoningSystemPrompt, prompt)
	if err != nil {
		a.log.Warn("mid-call reasoning failed, using fallback", "error", err)
		return FallbackInstruction
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return FallbackInstruction
	}
	return reply
}

// maxHistoryTurns bounds the prompt; older turns rarely matter for an
// in-the-moment decision.
const maxHistoryTurns = 12

func buildReasoningPrompt(history Transcript, situation, question string) string {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	sb.WriteString(history.String())
	fmt.Fprintf(&sb, "\nSituation: %s\n", situation)
	fmt.Fprintf(&sb, "Question: %s\n", question)
	return sb.String()
}
