package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Message roles understood by completion services.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one entry of a completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the text-completion service.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// Retriever returns up to k passages relevant to query, best match first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.Snippet, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, k int) ([]domain.Snippet, error)

// Search calls f.
func (f RetrieverFunc) Search(ctx context.Context, query string, k int) ([]domain.Snippet, error) {
	return f(ctx, query, k)
}

// HandoffSink delivers escalation tickets to the human support channel.
type HandoffSink interface {
	Submit(ctx context.Context, ticket domain.Ticket) error
}

// HandoffQueue is a sink whose pending tickets can be listed, newest last.
type HandoffQueue interface {
	HandoffSink
	Pending(ctx context.Context, limit int) ([]domain.Ticket, error)
}

// TurnHandler runs one complete turn. Implemented by the root switchboard.Engine.
type TurnHandler interface {
	Handle(ctx context.Context, req domain.TurnRequest) (domain.TurnReply, error)
}
