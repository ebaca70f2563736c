// Package runtime runs the support workflow: a fixed graph of nodes that
// threads an immutable TurnState from init to terminal.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/escalation"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultRetrievalDepth = 3
	DefaultMaxSteps       = 16
)

// IntentClassifier produces the routing decision for a query.
type IntentClassifier interface {
	Classify(ctx context.Context, query string, now time.Time) (domain.Decision, error)
}

// ResponseSynthesizer composes the reply. It never fails.
type ResponseSynthesizer interface {
	Synthesize(ctx context.Context, query string, contextLines, results []string) string
}

// Timeouts bound the blocking collaborators of a step. Zero disables a bound.
// Capability calls are bounded by the dispatcher.
type Timeouts struct {
	Retrieval  time.Duration
	Completion time.Duration
}

// DefaultTimeouts are applied unless overridden.
var DefaultTimeouts = Timeouts{
	Retrieval:  10 * time.Second,
	Completion: 30 * time.Second,
}

// Engine is the workflow runner. It is safe for concurrent turns.
type Engine struct {
	classifier  IntentClassifier
	synthesizer ResponseSynthesizer
	dispatcher  *capability.Dispatcher
	retriever   ports.Retriever
	policy      escalation.Policy
	transitions Transitions

	retrievalDepth int
	maxSteps       int
	timeouts       Timeouts

	logger *slog.Logger
	hooks  domain.LifecycleHooks
	tracer trace.Tracer
	clock  func() time.Time
	newID  func() string

	handlers map[domain.NodeID]node
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks registers node and turn lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRetriever sets the document search used by retrieve_context.
func WithRetriever(r ports.Retriever) EngineOption {
	return func(e *Engine) {
		e.retriever = r
	}
}

// WithPolicy replaces the post-response escalation policy.
func WithPolicy(p escalation.Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithRetrievalDepth sets how many snippets are requested per turn.
func WithRetrievalDepth(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.retrievalDepth = k
		}
	}
}

// WithTimeouts sets the retrieval and completion bounds.
func WithTimeouts(t Timeouts) EngineOption {
	return func(e *Engine) {
		e.timeouts = t
	}
}

// WithTransitions replaces the transition table.
func WithTransitions(t Transitions) EngineOption {
	return func(e *Engine) {
		e.transitions = t
	}
}

// WithMaxSteps bounds the number of nodes a turn may visit.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithClock sets the time source handed to the classifier.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithTracer sets the tracer used for turn and node spans.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithIDGenerator sets the turn id source.
func WithIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) {
		e.newID = gen
	}
}

// NewEngine creates the workflow runner.
func NewEngine(classifier IntentClassifier, synthesizer ResponseSynthesizer, dispatcher *capability.Dispatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		classifier:     classifier,
		synthesizer:    synthesizer,
		dispatcher:     dispatcher,
		policy:         escalation.DefaultPolicy,
		transitions:    DefaultTransitions,
		retrievalDepth: DefaultRetrievalDepth,
		maxSteps:       DefaultMaxSteps,
		timeouts:       DefaultTimeouts,
		logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		tracer:         otel.Tracer("github.com/aretw0/switchboard/internal/runtime"),
		clock:          time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = e.nodes()
	return e
}

// Run executes one turn from init to terminal and returns the final state.
// Step failures are contained in the state; an error is only returned when
// ctx is done between steps or the transition table is broken.
func (e *Engine) Run(ctx context.Context, query, userID string) (domain.TurnState, error) {
	turnID := e.newID()
	ctx = capability.WithTurnID(ctx, turnID)

	ctx, span := e.tracer.Start(ctx, "turn", trace.WithAttributes(
		attribute.String("turn.id", turnID),
		attribute.String("turn.user_id", userID),
	))
	defer span.End()

	started := time.Now()
	state := domain.NewTurnState(turnID, query, userID)
	current := domain.NodeInit

	for steps := 0; current != domain.NodeTerminal; steps++ {
		if err := ctx.Err(); err != nil {
			return e.fail(span, state, fmt.Errorf("turn interrupted at %s: %w", current, err))
		}
		if steps >= e.maxSteps {
			return e.fail(span, state, fmt.Errorf("%w: %d", domain.ErrStepLimit, e.maxSteps))
		}

		next, updated, err := e.step(ctx, current, state)
		if err != nil {
			return e.fail(span, state, err)
		}
		state, current = updated, next
	}

	elapsed := time.Since(started)
	span.SetAttributes(
		attribute.String("turn.intent", string(state.Intent)),
		attribute.Bool("turn.escalated", state.NeedsEscalation),
	)
	e.logger.Info("turn complete", "turn_id", turnID, "intent", state.Intent, "escalated", state.NeedsEscalation, "steps", len(state.StepLog), "elapsed", elapsed)

	if e.hooks.OnTurnComplete != nil {
		e.hooks.OnTurnComplete(ctx, &domain.TurnEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTurnComplete, TurnID: turnID},
			Intent:    state.Intent,
			Escalated: state.NeedsEscalation,
			Reason:    state.EscalationReason,
			Steps:     len(state.StepLog),
			Elapsed:   elapsed,
		})
	}
	return state, nil
}

// step runs one node, merges its update exactly once and resolves the next node.
func (e *Engine) step(ctx context.Context, id domain.NodeID, state domain.TurnState) (domain.NodeID, domain.TurnState, error) {
	h, ok := e.handlers[id]
	if !ok {
		return "", state, fmt.Errorf("%w: no handler for node %s", domain.ErrNoTransition, id)
	}

	ctx, span := e.tracer.Start(ctx, "node."+string(id), trace.WithAttributes(attribute.String("node.id", string(id))))
	defer span.End()

	e.emitNodeEnter(ctx, state.TurnID, id)
	started := time.Now()

	merged := state.Merge(h.run(ctx, state))
	edge := h.route(merged)

	next, err := e.transitions.Next(id, edge)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", state, err
	}

	elapsed := time.Since(started)
	merged = merged.WithStep(domain.StepRecord{Node: id, Edge: edge, Elapsed: elapsed})
	span.SetAttributes(attribute.String("node.edge", string(edge)))

	e.logger.Debug("node complete", "turn_id", state.TurnID, "node", id, "edge", edge, "next", next)
	e.emitNodeLeave(ctx, id, edge, elapsed, state, merged)
	return next, merged, nil
}

func (e *Engine) fail(span trace.Span, state domain.TurnState, err error) (domain.TurnState, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error("turn aborted", "turn_id", state.TurnID, "error", err)
	return state, err
}

func (e *Engine) emitNodeEnter(ctx context.Context, turnID string, id domain.NodeID) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter, TurnID: turnID},
		NodeID:    id,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, id domain.NodeID, edge domain.Edge, elapsed time.Duration, before, after domain.TurnState) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave, TurnID: before.TurnID},
		NodeID:    id,
		Edge:      edge,
		Elapsed:   elapsed,
		Diff:      domain.Diff(&before, &after),
	})
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
