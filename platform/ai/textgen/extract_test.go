package textgen

import "testing"

func TestExtractJSON_BareObject(t *testing.T) {
	got, err := ExtractJSON(`{"a": 1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a": 1}` {
		t.Fatalf("expected bare object, got %q", got)
	}
}

func TestExtractJSON_CodeFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"category\": \"plumbing\"}\n```\nLet me know if you need anything else."
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"category": "plumbing"}` {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := `Sure! Based on the description, {"urgency": "high", "note": "pipe {burst}"} covers it.`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"urgency": "high", "note": "pipe {burst}"}` {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	raw := `{"summary": "caller said \"}\" then hung up"}`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != raw {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestExtractJSON_NoObject(t *testing.T) {
	if _, err := ExtractJSON("no structured data here"); err == nil {
		t.Fatal("expected error for response without JSON")
	}
}

func TestExtractJSON_Unterminated(t *testing.T) {
	if _, err := ExtractJSON(`{"a": {"b": 1}`); err == nil {
		t.Fatal("expected error for unterminated object")
	}
}
