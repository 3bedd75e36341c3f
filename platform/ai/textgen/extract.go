package textgen

import (
	"fmt"
	"strings"
)

// ExtractJSON locates the JSON object embedded in a model response. Models
// routinely wrap structured output in prose or markdown code fences, so the
// payload must be found rather than assumed to be the whole response.
func ExtractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("textgen: empty response body")
	}

	// Prefer a fenced block when present.
	if fenced, ok := extractFenced(trimmed); ok {
		trimmed = fenced
	}

	start := strings.IndexByte(trimmed, '{')
	if start < 0 {
		return "", fmt.Errorf("textgen: no JSON object in response")
	}

	// Walk to the matching close brace, respecting strings.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		ch := trimmed[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return trimmed[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("textgen: unterminated JSON object in response")
}

func extractFenced(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	// Skip a language tag such as "json" on the fence line.
	if newline := strings.IndexByte(rest, '\n'); newline >= 0 {
		rest = rest[newline+1:]
	}
	close := strings.Index(rest, "```")
	if close < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:close]), true
}
