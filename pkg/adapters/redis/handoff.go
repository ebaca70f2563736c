package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// HandoffQueue implements ports.HandoffQueue with a Redis list.
type HandoffQueue struct {
	client *backend.Client
	key    string
	maxLen int64
}

var _ ports.HandoffQueue = (*HandoffQueue)(nil)

// NewHandoffQueue creates a queue on client.
func NewHandoffQueue(client *backend.Client, opts ...Option) *HandoffQueue {
	s := newSettings(opts)
	return &HandoffQueue{
		client: client,
		key:    s.prefix + "handoffs",
		maxLen: s.maxLen,
	}
}

// Submit appends the ticket to the list.
func (q *HandoffQueue) Submit(ctx context.Context, ticket domain.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.RPush(ctx, q.key, data)
	if q.maxLen > 0 {
		pipe.LTrim(ctx, q.key, -q.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrHandoffUnavailable, err)
	}
	return nil
}

// Pending returns up to limit of the newest tickets, oldest first.
// A non-positive limit returns every ticket.
func (q *HandoffQueue) Pending(ctx context.Context, limit int) ([]domain.Ticket, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	raw, err := q.client.LRange(ctx, q.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	tickets := make([]domain.Ticket, 0, len(raw))
	for _, item := range raw {
		var t domain.Ticket
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}
