package domain

import "time"

// Ticket is a handoff request for the human support channel.
type Ticket struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnRequest is the inbound message of the transport: one user query.
type TurnRequest struct {
	Query  string `json:"query" mapstructure:"query"`
	UserID string `json:"userId" mapstructure:"userId"`
}

// TurnReply is what the transport returns once the workflow reached the terminal node.
type TurnReply struct {
	Response  string `json:"response"`
	TurnID    string `json:"turnId,omitempty"`
	Escalated bool   `json:"escalated,omitempty"`
}
