// Package synthesizer composes the user-facing reply from the query, the
// retrieved context and the capability results.
package synthesizer

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/switchboard/pkg/ports"
)

const (
	// FallbackResponse replaces the reply when the completion service fails.
	FallbackResponse = "I apologize, but I'm having trouble generating a response. 😅"

	NoContext     = "No context available"
	NoToolOutputs = "No tool outputs"
)

const systemPrompt = "You are a helpful AI assistant. Use any provided context and tool outputs to generate an accurate, concise, and friendly response. " +
	"If no additional context is given, simply engage in general conversation naturally. " +
	"Keep your reply brief, clear, and include appropriate emojis."

// Synthesizer turns the gathered material into one reply.
type Synthesizer struct {
	completer ports.Completer
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// New creates a synthesizer backed by completer.
func New(completer ports.Completer, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		completer: completer,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize makes one completion call and never fails: errors and blank
// output yield FallbackResponse.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, contextLines, results []string) string {
	messages := []ports.Message{
		{Role: ports.RoleSystem, Content: systemPrompt},
		{Role: ports.RoleUser, Content: UserPrompt(query, contextLines, results)},
	}

	out, err := s.completer.Complete(ctx, messages)
	if err != nil {
		s.logger.Error("response generation failed", "error", err)
		return FallbackResponse
	}
	if strings.TrimSpace(out) == "" {
		s.logger.Warn("response generation returned blank output")
		return FallbackResponse
	}
	return out
}

// UserPrompt renders the Query/Context/Tool Outputs block.
func UserPrompt(query string, contextLines, results []string) string {
	ctxText := NoContext
	if len(contextLines) > 0 {
		ctxText = strings.Join(contextLines, "\n")
	}
	resText := NoToolOutputs
	if len(results) > 0 {
		resText = strings.Join(results, "\n")
	}
	return "Query: " + query + "\nContext: " + ctxText + "\nTool Outputs: " + resText
}
