package bridge

import (
	"strings"
	"testing"
)

func TestBuildCallSetupDocument(t *testing.T) {
	doc, err := BuildCallSetupDocument("Please hold while we connect you.", "wss://bridge.example.com/api/v1/media-stream?token=abc")
	if err != nil {
		t.Fatalf("BuildCallSetupDocument: %v", err)
	}

	for _, want := range []string{"<Response>", "</Response>", "<Say>Please hold while we connect you.</Say>", "<Connect>", `url="wss://bridge.example.com/api/v1/media-stream?token=abc"`} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}

	if err := ValidateCallSetupDocument(doc); err != nil {
		t.Errorf("built document fails validation: %v", err)
	}
}

func TestBuildCallSetupDocumentEscapesGreeting(t *testing.T) {
	doc, err := BuildCallSetupDocument(`Connecting you to Fixline <fast & friendly>`, "wss://example.com/stream")
	if err != nil {
		t.Fatalf("BuildCallSetupDocument: %v", err)
	}
	if strings.Contains(doc, "<fast") {
		t.Error("greeting markup not escaped")
	}
	if err := ValidateCallSetupDocument(doc); err != nil {
		t.Errorf("escaped document fails validation: %v", err)
	}
}

func TestValidateCallSetupDocumentRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"truncated", "<Response><Say>hello</Say>"},
		{"wrong root", "<Reply><Say>hello</Say></Reply>"},
		{"mismatched tags", "<Response><Say>hello</Response></Say>"},
		{"no element", "just text"},
	}
	for _, tc := range cases {
		if err := ValidateCallSetupDocument(tc.doc); err == nil {
			t.Errorf("%s document passed validation", tc.name)
		}
	}
}
