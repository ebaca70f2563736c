package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter        EventType = "node_enter"
	EventNodeLeave        EventType = "node_leave"
	EventCapabilityCall   EventType = "capability_call"
	EventCapabilityReturn EventType = "capability_return"
	EventTurnComplete     EventType = "turn_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	TurnID    string    `json:"turn_id"`
}

// NodeEvent represents entry or exit from a workflow node.
// Edge and Elapsed are only set on leave.
type NodeEvent struct {
	EventBase
	NodeID  NodeID        `json:"node_id"`
	Edge    Edge          `json:"edge,omitempty"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
	// Diff is what the node changed. Only set on leave; nil when nothing changed.
	Diff *TurnDiff `json:"diff,omitempty"`
}

// CapabilityEvent represents a capability invocation through the dispatcher.
type CapabilityEvent struct {
	EventBase
	Name    string         `json:"name"`
	Args    map[string]any `json:"args,omitempty"`
	Output  string         `json:"output,omitempty"`
	IsError bool           `json:"is_error,omitempty"`
	Elapsed time.Duration  `json:"elapsed,omitempty"`
}

// TurnEvent is emitted once per turn when the workflow reaches the terminal node.
type TurnEvent struct {
	EventBase
	Intent    DecisionKind  `json:"intent,omitempty"`
	Escalated bool          `json:"escalated"`
	Reason    string        `json:"reason,omitempty"`
	Steps     int           `json:"steps"`
	Elapsed   time.Duration `json:"elapsed"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter        func(context.Context, *NodeEvent)
	OnNodeLeave        func(context.Context, *NodeEvent)
	OnCapabilityCall   func(context.Context, *CapabilityEvent)
	OnCapabilityReturn func(context.Context, *CapabilityEvent)
	OnTurnComplete     func(context.Context, *TurnEvent)
}

// ComposeHooks fans every callback out to all non-nil hooks, in order.
func ComposeHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnCapabilityCall: func(ctx context.Context, e *CapabilityEvent) {
			for _, h := range all {
				if h.OnCapabilityCall != nil {
					h.OnCapabilityCall(ctx, e)
				}
			}
		},
		OnCapabilityReturn: func(ctx context.Context, e *CapabilityEvent) {
			for _, h := range all {
				if h.OnCapabilityReturn != nil {
					h.OnCapabilityReturn(ctx, e)
				}
			}
		},
		OnTurnComplete: func(ctx context.Context, e *TurnEvent) {
			for _, h := range all {
				if h.OnTurnComplete != nil {
					h.OnTurnComplete(ctx, e)
				}
			}
		},
	}
}
