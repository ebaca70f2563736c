package domain

import (
	"maps"
	"slices"
	"time"
)

// Snippet is a retrieved passage tagged with the label of the document it came from.
type Snippet struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// String renders the snippet the way it is embedded into prompts ("source: text").
func (s Snippet) String() string {
	return s.Source + ": " + s.Text
}

// CapabilityCall is a request to run a named capability with raw arguments.
type CapabilityCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// StepRecord is one entry of the diagnostic step log.
type StepRecord struct {
	Node    NodeID        `json:"node"`
	Edge    Edge          `json:"edge,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// TurnState is the record threaded through one workflow run.
// It is a value type: every step derives a new TurnState from the previous one via Merge.
type TurnState struct {
	TurnID string `json:"turn_id"`

	// Query is the raw user text. It never changes after NewTurnState.
	Query  string `json:"query"`
	UserID string `json:"user_id"`

	RetrievedContext []Snippet `json:"retrieved_context,omitempty"`

	// PendingCalls is populated by the classifier and sealed once CallsDispatched is set.
	PendingCalls    []CapabilityCall `json:"pending_calls,omitempty"`
	CallsDispatched bool             `json:"calls_dispatched,omitempty"`

	// CapabilityResults is append-only within a turn.
	CapabilityResults []string `json:"capability_results,omitempty"`

	Response         string `json:"response"`
	NeedsEscalation  bool   `json:"needs_escalation"`
	EscalationReason string `json:"escalation_reason,omitempty"`

	// Intent is the kind of the classifier decision, empty when none was produced.
	Intent DecisionKind `json:"intent,omitempty"`

	StepLog []StepRecord `json:"step_log,omitempty"`
}

// NewTurnState creates the record for a new turn with every other field at its default.
func NewTurnState(turnID, query, userID string) TurnState {
	return TurnState{
		TurnID: turnID,
		Query:  query,
		UserID: userID,
	}
}

// Update is a partial change to a TurnState.
// A nil field means "absent" and keeps the prior value; a pointer to the zero
// value resets the field to its default.
type Update struct {
	RetrievedContext  *[]Snippet
	PendingCalls      *[]CapabilityCall
	CallsDispatched   *bool
	CapabilityResults *[]string
	Response          *string
	NeedsEscalation   *bool
	EscalationReason  *string
	Intent            *DecisionKind
}

// Ptr returns a pointer to v. It keeps Update literals short.
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether the update carries no fields.
func (u Update) IsEmpty() bool {
	return u.RetrievedContext == nil &&
		u.PendingCalls == nil &&
		u.CallsDispatched == nil &&
		u.CapabilityResults == nil &&
		u.Response == nil &&
		u.NeedsEscalation == nil &&
		u.EscalationReason == nil &&
		u.Intent == nil
}

// Merge returns a new TurnState with the fields present in u applied.
// The receiver is left untouched and the result shares no slices with it.
func (s TurnState) Merge(u Update) TurnState {
	next := s.Clone()

	if u.RetrievedContext != nil {
		next.RetrievedContext = slices.Clone(*u.RetrievedContext)
	}
	if u.PendingCalls != nil && !s.CallsDispatched {
		next.PendingCalls = cloneCalls(*u.PendingCalls)
	}
	if u.CallsDispatched != nil {
		next.CallsDispatched = *u.CallsDispatched
	}
	if u.CapabilityResults != nil {
		next.CapabilityResults = slices.Clone(*u.CapabilityResults)
	}
	if u.Response != nil {
		next.Response = *u.Response
	}
	if u.NeedsEscalation != nil {
		next.NeedsEscalation = *u.NeedsEscalation
	}
	if u.EscalationReason != nil {
		next.EscalationReason = *u.EscalationReason
	}
	if u.Intent != nil {
		next.Intent = *u.Intent
	}

	// A reason only makes sense while escalation is requested.
	if !next.NeedsEscalation {
		next.EscalationReason = ""
	}
	return next
}

// WithStep returns a copy of the state with rec appended to the step log.
func (s TurnState) WithStep(rec StepRecord) TurnState {
	next := s.Clone()
	next.StepLog = append(next.StepLog, rec)
	return next
}

// Clone returns a deep copy of the state.
func (s TurnState) Clone() TurnState {
	c := s
	c.RetrievedContext = slices.Clone(s.RetrievedContext)
	c.PendingCalls = cloneCalls(s.PendingCalls)
	c.CapabilityResults = slices.Clone(s.CapabilityResults)
	c.StepLog = slices.Clone(s.StepLog)
	return c
}

// ContextLines renders the retrieved snippets as "source: text" lines.
func (s TurnState) ContextLines() []string {
	lines := make([]string, 0, len(s.RetrievedContext))
	for _, snip := range s.RetrievedContext {
		lines = append(lines, snip.String())
	}
	return lines
}

func cloneCalls(calls []CapabilityCall) []CapabilityCall {
	if calls == nil {
		return nil
	}
	out := make([]CapabilityCall, len(calls))
	for i, c := range calls {
		out[i] = CapabilityCall{Name: c.Name, Args: maps.Clone(c.Args)}
	}
	return out
}
