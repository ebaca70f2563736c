// Package memory provides in-process adapters for tests and single-node runs.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// HandoffQueue implements ports.HandoffQueue in memory.
// Safe for concurrent use.
type HandoffQueue struct {
	mu      sync.RWMutex
	tickets []domain.Ticket
}

var _ ports.HandoffQueue = (*HandoffQueue)(nil)

// NewHandoffQueue creates an empty queue.
func NewHandoffQueue() *HandoffQueue {
	return &HandoffQueue{}
}

// Submit appends the ticket.
func (q *HandoffQueue) Submit(ctx context.Context, ticket domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tickets = append(q.tickets, ticket)
	return nil
}

// Pending returns up to limit of the newest tickets, oldest first.
// A non-positive limit returns every ticket.
func (q *HandoffQueue) Pending(_ context.Context, limit int) ([]domain.Ticket, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	start := 0
	if limit > 0 && len(q.tickets) > limit {
		start = len(q.tickets) - limit
	}
	out := make([]domain.Ticket, len(q.tickets)-start)
	copy(out, q.tickets[start:])
	return out, nil
}
