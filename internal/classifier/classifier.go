// Package classifier turns a user query into a structured routing decision
// by asking the completion service for a JSON verdict.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// DefaultZone is the zone naive scheduling timestamps are interpreted in.
const DefaultZone = "Asia/Karachi"

// ParseFailureReason is the escalation reason recorded for malformed verdicts.
const ParseFailureReason = "Failed to parse response"

// ErrCompletion wraps failures of the completion service.
var ErrCompletion = errors.New("completion failed")

// Classifier asks the completion service which action a query needs.
type Classifier struct {
	completer ports.Completer
	registry  *capability.Registry
	location  *time.Location
	lenient   bool
	logger    *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLocation sets the zone naive timestamps are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(c *Classifier) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithLenientParsing enables one re-parse attempt on the outermost {...}
// of a malformed verdict before falling back to escalation.
func WithLenientParsing(enabled bool) Option {
	return func(c *Classifier) {
		c.lenient = enabled
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a classifier. The registry provides the tools advertised in the prompt.
func New(completer ports.Completer, registry *capability.Registry, opts ...Option) *Classifier {
	c := &Classifier{
		completer: completer,
		registry:  registry,
		location:  defaultLocation(),
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the zone used for naive timestamps.
func (c *Classifier) Location() *time.Location {
	return c.location
}

// Classify produces a decision for query.
//
// Malformed verdicts are not errors: they become an escalate decision with
// ParseFailureReason. An error means no decision was produced (completion
// unavailable, unusable scheduling time) and the caller should leave the
// turn untouched.
func (c *Classifier) Classify(ctx context.Context, query string, now time.Time) (domain.Decision, error) {
	var tools []capability.Capability
	if c.registry != nil {
		tools = c.registry.List()
	}

	messages := []ports.Message{
		{Role: ports.RoleSystem, Content: BuildPrompt(tools, now, c.location)},
		{Role: ports.RoleUser, Content: "Query: " + query},
	}

	content, err := c.completer.Complete(ctx, messages)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	verdict, err := Parse(content)
	if err != nil && c.lenient {
		if inner, ok := outermostObject(content); ok {
			c.logger.Debug("retrying verdict parse on embedded object", "error", err)
			verdict, err = Parse(inner)
		}
	}
	if err != nil {
		c.logger.Warn("malformed classifier verdict", "error", err, "raw", content)
		return domain.Decision{Kind: domain.DecisionEscalate, Reason: ParseFailureReason}, nil
	}

	return c.decide(verdict)
}

func (c *Classifier) decide(v Verdict) (domain.Decision, error) {
	switch v.Action {
	case ActionTool:
		args := v.ToolArgs
		if args == nil {
			args = map[string]any{}
		}
		if v.ToolName == ScheduleEventTool {
			normalized, err := normalizeScheduleArgs(args, c.location)
			if err != nil {
				return domain.Decision{}, err
			}
			args = normalized
		}
		c.logger.Info("tool call configured", "capability", v.ToolName)
		return domain.Decision{
			Kind:  domain.DecisionToolCall,
			Calls: []domain.CapabilityCall{{Name: v.ToolName, Args: args}},
		}, nil

	case ActionEscalate:
		c.logger.Info("escalation requested by classifier", "reason", v.Reason)
		return domain.Decision{Kind: domain.DecisionEscalate, Reason: v.Reason}, nil

	case ActionRetrieval:
		return domain.Decision{Kind: domain.DecisionRetrieval}, nil

	default:
		return domain.Decision{Kind: domain.DecisionDirect, Text: v.Response}, nil
	}
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
