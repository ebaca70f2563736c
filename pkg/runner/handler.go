package runner

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next query. io.EOF ends the session.
	Input(ctx context.Context) (string, error)

	// Reply presents the outcome of a turn.
	Reply(ctx context.Context, reply domain.TurnReply) error

	// SystemOutput presents a meta-message to the user (errors, status updates).
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
