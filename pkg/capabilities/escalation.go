package capabilities

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/google/uuid"
)

const (
	EscalationName          = "escalate_to_human"
	DefaultEscalationReason = "Escalation requested"
)

type escalationInput struct {
	Query  string `mapstructure:"query"`
	UserID string `mapstructure:"user_id"`
	Reason string `mapstructure:"reason"`
}

// NewEscalation returns the escalate_to_human capability.
// Tickets go to sink; with a nil sink the handoff is only logged.
func NewEscalation(sink ports.HandoffSink, opts Options) capability.Capability {
	logger := opts.logger()

	s := schema.Schema{
		"query":   schema.Field(schema.String(), schema.WithDescription("User's original query")),
		"user_id": schema.Field(schema.String(), schema.WithDescription("User's ID")),
		"reason":  schema.Field(schema.String(), schema.WithDescription("Reason for escalation"), schema.WithDefault(DefaultEscalationReason)),
	}

	return capability.New(EscalationName, "Escalate the conversation to a human support agent.", s, func(ctx context.Context, args map[string]any) (string, error) {
		var in escalationInput
		if err := capability.Decode(args, &in); err != nil {
			return "", err
		}

		ticket := domain.Ticket{
			ID:        uuid.NewString(),
			Query:     in.Query,
			UserID:    in.UserID,
			Reason:    in.Reason,
			CreatedAt: time.Now().UTC(),
		}
		logger.Info("escalating to human", "capability", EscalationName, "ticket_id", ticket.ID, "user_id", in.UserID, "reason", in.Reason)

		if sink != nil {
			if err := sink.Submit(ctx, ticket); err != nil {
				return "", fmt.Errorf("failed to deliver ticket %s: %w", ticket.ID, err)
			}
		}

		return fmt.Sprintf("🚨 Escalated: %s\nUser: %s\nReason: %s", in.Query, in.UserID, in.Reason), nil
	})
}
