package domain

// Status is the lead lifecycle status. The orchestrator is the sole writer
// before a call; the call agent's post-call write is strictly later, never
// concurrent.
type Status string

const (
	StatusPending    Status = "pending"
	StatusClassified Status = "classified"
	StatusMatched    Status = "matched"
	StatusLowQuality Status = "low_quality"
	StatusContacted  Status = "contacted"
	StatusConverted  Status = "converted"
	StatusClosed     Status = "closed"
)

// allowedTransitions is the lead status transition table.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusClassified, StatusLowQuality},
	StatusClassified: {StatusMatched, StatusLowQuality},
	StatusMatched:    {StatusContacted, StatusClosed},
	StatusContacted:  {StatusConverted, StatusClosed},
	StatusLowQuality: {},
	StatusConverted:  {},
	StatusClosed:     {},
}

// CanTransition reports whether a lead may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(s Status) bool {
	return len(allowedTransitions[s]) == 0
}
