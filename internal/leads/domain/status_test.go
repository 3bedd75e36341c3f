package domain

import "testing"

func TestCanTransition_HappyPath(t *testing.T) {
	path := []Status{StatusPending, StatusClassified, StatusMatched, StatusContacted, StatusConverted}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Fatalf("expected %s -> %s to be allowed", path[i], path[i+1])
		}
	}
}

func TestCanTransition_LowQualityIsTerminal(t *testing.T) {
	if !CanTransition(StatusPending, StatusLowQuality) {
		t.Fatal("expected pending -> low_quality to be allowed")
	}
	if !IsTerminal(StatusLowQuality) {
		t.Fatal("expected low_quality to be terminal")
	}
	if CanTransition(StatusLowQuality, StatusMatched) {
		t.Fatal("low_quality must not transition to matched")
	}
}

func TestCanTransition_NoSkippingToContacted(t *testing.T) {
	if CanTransition(StatusPending, StatusContacted) {
		t.Fatal("pending must not jump straight to contacted")
	}
	if CanTransition(StatusClassified, StatusContacted) {
		t.Fatal("classified must not jump straight to contacted")
	}
}

func TestIsKnownCategory(t *testing.T) {
	if !IsKnownCategory(CategoryPlumbing) {
		t.Fatal("plumbing should be a known category")
	}
	if IsKnownCategory(ServiceCategory("welding")) {
		t.Fatal("welding is not in the closed category set")
	}
}

func TestIsKnownUrgency(t *testing.T) {
	for _, u := range []Urgency{UrgencyEmergency, UrgencyHigh, UrgencyMedium, UrgencyLow} {
		if !IsKnownUrgency(u) {
			t.Fatalf("expected %s to be known", u)
		}
	}
	if IsKnownUrgency(Urgency("urgent")) {
		t.Fatal("the alternate urgency scale must not validate")
	}
}
