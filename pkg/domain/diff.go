package domain

import (
	"reflect"
)

// TurnDiff represents the changes between two snapshots of a turn.
// It is designed to be serialized to JSON for debug logs and event streams.
type TurnDiff struct {
	// TurnID is always present to identify the target.
	TurnID string `json:"turn_id"`

	RetrievedContext []Snippet        `json:"retrieved_context,omitempty"`
	PendingCalls     []CapabilityCall `json:"pending_calls,omitempty"`
	CallsDispatched  *bool            `json:"calls_dispatched,omitempty"`

	// ResultsAppended contains only the results added since the old snapshot.
	ResultsAppended []string `json:"results_appended,omitempty"`

	Response         *string       `json:"response,omitempty"`
	NeedsEscalation  *bool         `json:"needs_escalation,omitempty"`
	EscalationReason *string       `json:"escalation_reason,omitempty"`
	Intent           *DecisionKind `json:"intent,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
// It returns nil when nothing changed.
func Diff(oldState, newState *TurnState) *TurnDiff {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		oldState = &TurnState{}
	}

	diff := &TurnDiff{TurnID: newState.TurnID}

	if !reflect.DeepEqual(oldState.RetrievedContext, newState.RetrievedContext) {
		diff.RetrievedContext = newState.RetrievedContext
	}
	if !reflect.DeepEqual(oldState.PendingCalls, newState.PendingCalls) {
		diff.PendingCalls = newState.PendingCalls
	}
	if oldState.CallsDispatched != newState.CallsDispatched {
		diff.CallsDispatched = &newState.CallsDispatched
	}
	diff.ResultsAppended = diffResults(oldState.CapabilityResults, newState.CapabilityResults)

	if oldState.Response != newState.Response {
		diff.Response = &newState.Response
	}
	if oldState.NeedsEscalation != newState.NeedsEscalation {
		diff.NeedsEscalation = &newState.NeedsEscalation
	}
	if oldState.EscalationReason != newState.EscalationReason {
		diff.EscalationReason = &newState.EscalationReason
	}
	if oldState.Intent != newState.Intent {
		diff.Intent = &newState.Intent
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// diffResults assumes the append-only behavior of CapabilityResults.
func diffResults(old, new []string) []string {
	if len(new) > len(old) {
		return new[len(old):]
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *TurnDiff) IsEmpty() bool {
	return len(d.RetrievedContext) == 0 &&
		len(d.PendingCalls) == 0 &&
		d.CallsDispatched == nil &&
		len(d.ResultsAppended) == 0 &&
		d.Response == nil &&
		d.NeedsEscalation == nil &&
		d.EscalationReason == nil &&
		d.Intent == nil
}
