package bridge

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStreamTokenRoundTrip(t *testing.T) {
	callID := uuid.New()

	token, err := MintStreamToken(callID, "test-secret", time.Minute)
	if err != nil {
		t.Fatalf("MintStreamToken: %v", err)
	}

	got, err := ParseStreamToken(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseStreamToken: %v", err)
	}
	if got != callID {
		t.Fatalf("call ID = %s, want %s", got, callID)
	}
}

func TestStreamTokenRejectsWrongSecret(t *testing.T) {
	token, err := MintStreamToken(uuid.New(), "test-secret", time.Minute)
	if err != nil {
		t.Fatalf("MintStreamToken: %v", err)
	}
	if _, err := ParseStreamToken(token, "other-secret"); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestStreamTokenRejectsExpired(t *testing.T) {
	token, err := MintStreamToken(uuid.New(), "test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("MintStreamToken: %v", err)
	}
	if _, err := ParseStreamToken(token, "test-secret"); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestStreamTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseStreamToken("not-a-token", "test-secret"); err == nil {
		t.Fatal("garbage token accepted")
	}
}
