package switchboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/switchboard/internal/classifier"
	"github.com/aretw0/switchboard/internal/runtime"
	"github.com/aretw0/switchboard/internal/synthesizer"
	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/escalation"
	"github.com/aretw0/switchboard/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Replies used when the workflow could not produce one.
const (
	NoResponse    = "No response generated."
	ErrorResponse = "An error occurred while processing your request."
)

// ErrNoCompleter is returned by New when no completion service is given.
var ErrNoCompleter = errors.New("a completion service is required")

// Timeouts bound the blocking collaborators of a turn. Zero disables a bound.
type Timeouts struct {
	Retrieval  time.Duration
	Completion time.Duration
	Capability time.Duration
}

// DefaultTimeouts are used unless WithTimeouts is given.
var DefaultTimeouts = Timeouts{
	Retrieval:  runtime.DefaultTimeouts.Retrieval,
	Completion: runtime.DefaultTimeouts.Completion,
	Capability: capability.DefaultTimeout,
}

// Engine is the high-level entry point of the library.
// It wires the classifier, synthesizer, dispatcher and workflow runner.
type Engine struct {
	runtime    *runtime.Engine
	registry   *capability.Registry
	dispatcher *capability.Dispatcher
	logger     *slog.Logger

	retriever      ports.Retriever
	hooks          domain.LifecycleHooks
	timeouts       Timeouts
	location       *time.Location
	lenient        bool
	clock          func() time.Time
	tracerProvider trace.TracerProvider
	retrievalDepth int
	policy         *escalation.Policy
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRetriever sets the document search used to ground replies.
func WithRetriever(r ports.Retriever) Option {
	return func(e *Engine) {
		e.retriever = r
	}
}

// WithRegistry sets the capabilities available to the workflow.
func WithRegistry(r *capability.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithTimeouts overrides DefaultTimeouts.
func WithTimeouts(t Timeouts) Option {
	return func(e *Engine) {
		e.timeouts = t
	}
}

// WithLocation sets the zone naive scheduling times are read in (default Asia/Karachi).
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.location = loc
	}
}

// WithLenientParsing lets the classifier retry once on the JSON object
// embedded in a malformed verdict before escalating.
func WithLenientParsing(enabled bool) Option {
	return func(e *Engine) {
		e.lenient = enabled
	}
}

// WithClock sets the time source used in classifier prompts.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithTracerProvider sets the OpenTelemetry provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracerProvider = tp
	}
}

// WithRetrievalDepth sets how many snippets are retrieved per turn (default 3).
func WithRetrievalDepth(k int) Option {
	return func(e *Engine) {
		e.retrievalDepth = k
	}
}

// WithEscalationPolicy replaces the post-response escalation policy.
func WithEscalationPolicy(p escalation.Policy) Option {
	return func(e *Engine) {
		e.policy = &p
	}
}

// New initializes a new Engine backed by completer.
func New(completer ports.Completer, opts ...Option) (*Engine, error) {
	if completer == nil {
		return nil, ErrNoCompleter
	}

	eng := &Engine{
		timeouts:       DefaultTimeouts,
		clock:          time.Now,
		retrievalDepth: runtime.DefaultRetrievalDepth,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.registry == nil {
		eng.registry = capability.NewRegistry()
	}
	if eng.tracerProvider == nil {
		eng.tracerProvider = otel.GetTracerProvider()
	}

	eng.dispatcher = capability.NewDispatcher(eng.registry,
		capability.WithTimeout(eng.timeouts.Capability),
		capability.WithLogger(eng.logger),
		capability.WithHooks(eng.hooks),
		capability.WithTracer(eng.tracerProvider.Tracer("github.com/aretw0/switchboard/pkg/capability")),
	)

	classifierOpts := []classifier.Option{
		classifier.WithLogger(eng.logger),
		classifier.WithLenientParsing(eng.lenient),
	}
	if eng.location != nil {
		classifierOpts = append(classifierOpts, classifier.WithLocation(eng.location))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithHooks(eng.hooks),
		runtime.WithRetriever(eng.retriever),
		runtime.WithRetrievalDepth(eng.retrievalDepth),
		runtime.WithTimeouts(runtime.Timeouts{Retrieval: eng.timeouts.Retrieval, Completion: eng.timeouts.Completion}),
		runtime.WithClock(eng.clock),
		runtime.WithTracer(eng.tracerProvider.Tracer("github.com/aretw0/switchboard/internal/runtime")),
	}
	if eng.policy != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithPolicy(*eng.policy))
	}

	eng.runtime = runtime.NewEngine(
		classifier.New(completer, eng.registry, classifierOpts...),
		synthesizer.New(completer, synthesizer.WithLogger(eng.logger)),
		eng.dispatcher,
		runtimeOpts...,
	)
	return eng, nil
}

// Run executes one turn and returns the final state, including the step log.
func (e *Engine) Run(ctx context.Context, query, userID string) (domain.TurnState, error) {
	return e.runtime.Run(ctx, query, userID)
}

// Handle executes one turn and shapes the transport reply.
// On error the reply still carries ErrorResponse.
func (e *Engine) Handle(ctx context.Context, req domain.TurnRequest) (domain.TurnReply, error) {
	state, err := e.runtime.Run(ctx, req.Query, req.UserID)
	if err != nil {
		e.logger.Error("turn failed", "turn_id", state.TurnID, "error", err)
		return domain.TurnReply{Response: ErrorResponse, TurnID: state.TurnID}, err
	}

	response := state.Response
	if strings.TrimSpace(response) == "" {
		response = NoResponse
	}
	return domain.TurnReply{
		Response:  response,
		TurnID:    state.TurnID,
		Escalated: state.NeedsEscalation,
	}, nil
}

// Registry returns the capabilities available to the workflow.
func (e *Engine) Registry() *capability.Registry {
	return e.registry
}

// Dispatcher returns the dispatcher used by the workflow.
func (e *Engine) Dispatcher() *capability.Dispatcher {
	return e.dispatcher
}
