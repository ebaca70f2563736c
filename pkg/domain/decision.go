package domain

// DecisionKind discriminates the outcomes of intent classification.
type DecisionKind string

const (
	DecisionToolCall  DecisionKind = "tool_call"
	DecisionRetrieval DecisionKind = "retrieval"
	DecisionEscalate  DecisionKind = "escalate"
	DecisionDirect    DecisionKind = "direct"
)

// RetrievalInterimResponse is recorded as the interim reply when the classifier asks for documentation.
const RetrievalInterimResponse = "Let me search our documentation..."

// Decision is the structured verdict produced by the intent classifier.
// Only the fields relevant to Kind are populated.
type Decision struct {
	Kind   DecisionKind     `json:"kind"`
	Calls  []CapabilityCall `json:"calls,omitempty"`
	Reason string           `json:"reason,omitempty"`
	Text   string           `json:"text,omitempty"`
}

// Update converts the decision into the TurnState fields it sets.
func (d Decision) Update() Update {
	u := Update{Intent: Ptr(d.Kind)}
	switch d.Kind {
	case DecisionToolCall:
		u.PendingCalls = Ptr(cloneCalls(d.Calls))
	case DecisionEscalate:
		u.NeedsEscalation = Ptr(true)
		u.EscalationReason = Ptr(d.Reason)
	case DecisionRetrieval:
		u.Response = Ptr(RetrievalInterimResponse)
	default:
		u.Response = Ptr(d.Text)
	}
	return u
}
