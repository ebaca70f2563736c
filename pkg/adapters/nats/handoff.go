// Package nats broadcasts escalation tickets on a NATS subject so that
// human support tooling can pick them up.
package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/nats-io/nats.go"
)

const DefaultSubject = "switchboard.handoffs"

// Publisher is the subset of *nats.Conn used by the sink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// HandoffSink publishes each ticket as JSON on a subject.
type HandoffSink struct {
	pub     Publisher
	subject string
}

var _ ports.HandoffSink = (*HandoffSink)(nil)

// Option configures the sink.
type Option func(*HandoffSink)

// WithSubject overrides DefaultSubject.
func WithSubject(subject string) Option {
	return func(s *HandoffSink) {
		if subject != "" {
			s.subject = subject
		}
	}
}

// NewHandoffSink creates a sink over pub.
func NewHandoffSink(pub Publisher, opts ...Option) *HandoffSink {
	s := &HandoffSink{pub: pub, subject: DefaultSubject}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials url and returns the connection with a sink bound to it.
// The caller owns the connection and should Drain it on shutdown.
func Connect(url string, opts ...Option) (*nats.Conn, *HandoffSink, error) {
	nc, err := nats.Connect(url, nats.Name("switchboard"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, NewHandoffSink(nc, opts...), nil
}

// Submit publishes ticket.
func (s *HandoffSink) Submit(ctx context.Context, ticket domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}
	if err := s.pub.Publish(s.subject, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrHandoffUnavailable, err)
	}
	return nil
}

// Fanout submits each ticket to every sink. All sinks are tried; the first error is returned.
type Fanout []ports.HandoffSink

// Submit delivers ticket to all sinks.
func (f Fanout) Submit(ctx context.Context, ticket domain.Ticket) error {
	var first error
	for _, sink := range f {
		if err := sink.Submit(ctx, ticket); err != nil && first == nil {
			first = err
		}
	}
	return first
}
