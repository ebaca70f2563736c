package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// Mask replaces every match of a PII pattern.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses, payment card numbers and phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\b\d(?:[ \-]?\d){12,18}\b`,
	`\+?\d{1,3}[ \-]?\(?\d{2,4}\)?[ \-]?\d{3,4}[ \-]?\d{4}\b`,
}

// Masker blanks PII out of ticket text.
type Masker struct {
	patterns []*regexp.Regexp
}

// NewMasker compiles patterns. An empty list uses DefaultPIIPatterns.
func NewMasker(patternStrings []string) (*Masker, error) {
	if len(patternStrings) == 0 {
		patternStrings = DefaultPIIPatterns
	}
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return &Masker{patterns: patterns}, nil
}

// Ticket returns a copy of t with the query and reason masked.
func (m *Masker) Ticket(t domain.Ticket) domain.Ticket {
	t.Query = m.text(t.Query)
	t.Reason = m.text(t.Reason)
	return t
}

func (m *Masker) text(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

// Sink masks tickets before handing them to next.
func (m *Masker) Sink(next ports.HandoffSink) ports.HandoffSink {
	return &piiSink{next: next, masker: m}
}

// Middleware masks tickets before they reach the queue.
func (m *Masker) Middleware() Middleware {
	return func(next ports.HandoffQueue) ports.HandoffQueue {
		return &piiQueue{piiSink: piiSink{next: next, masker: m}, queue: next}
	}
}

// NewPIIMiddleware creates a middleware that masks text matching the patterns.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	m, err := NewMasker(patternStrings)
	if err != nil {
		return nil, err
	}
	return m.Middleware(), nil
}

type piiSink struct {
	next   ports.HandoffSink
	masker *Masker
}

func (s *piiSink) Submit(ctx context.Context, ticket domain.Ticket) error {
	return s.next.Submit(ctx, s.masker.Ticket(ticket))
}

type piiQueue struct {
	piiSink
	queue ports.HandoffQueue
}

func (q *piiQueue) Pending(ctx context.Context, limit int) ([]domain.Ticket, error) {
	return q.queue.Pending(ctx, limit)
}
