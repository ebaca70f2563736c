package capability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single capability invocation.
const DefaultTimeout = 15 * time.Second

// Result is the normalized outcome of one dispatched call.
type Result struct {
	Name    string
	Output  string
	IsError bool
}

// String renders the result the way it is recorded in the turn ("name: output").
func (r Result) String() string {
	return r.Name + ": " + r.Output
}

// Dispatcher resolves capabilities by name, validates their arguments and runs them.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	tracer   trace.Tracer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout bounds every invocation. Zero disables the bound.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		x.timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(x *Dispatcher) {
		x.logger = logger
	}
}

// WithHooks registers capability lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) DispatcherOption {
	return func(x *Dispatcher) {
		x.hooks = hooks
	}
}

// WithTracer sets the tracer used for capability spans.
func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(x *Dispatcher) {
		x.tracer = tracer
	}
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		tracer:   otel.Tracer("github.com/aretw0/switchboard/pkg/capability"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry exposes the underlying registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Invoke runs a capability and reports failures as errors: unknown name
// (ErrNotFound), invalid arguments (*schema.AggregateError), handler errors,
// panics and timeouts.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	ctx, span := d.tracer.Start(ctx, "capability."+name, trace.WithAttributes(attribute.String("capability.name", name)))
	defer span.End()

	started := time.Now()
	if d.hooks.OnCapabilityCall != nil {
		d.hooks.OnCapabilityCall(ctx, &domain.CapabilityEvent{
			EventBase: domain.EventBase{Timestamp: started, Type: domain.EventCapabilityCall, TurnID: TurnIDFrom(ctx)},
			Name:      name,
			Args:      args,
		})
	}

	output, err := d.invoke(ctx, name, args)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Warn("capability failed", "capability", name, "turn_id", TurnIDFrom(ctx), "error", err)
	} else {
		d.logger.Debug("capability succeeded", "capability", name, "turn_id", TurnIDFrom(ctx))
	}

	if d.hooks.OnCapabilityReturn != nil {
		d.hooks.OnCapabilityReturn(ctx, &domain.CapabilityEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCapabilityReturn, TurnID: TurnIDFrom(ctx)},
			Name:      name,
			Output:    output,
			IsError:   err != nil,
			Elapsed:   time.Since(started),
		})
	}
	return output, err
}

func (d *Dispatcher) invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	c, err := d.registry.Lookup(name)
	if err != nil {
		return "", err
	}

	clean, err := schema.Apply(c.Schema(), args)
	if err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		text, err := c.Invoke(ctx, clean)
		done <- outcome{text: text, err: err}
	}()

	select {
	case o := <-done:
		return o.text, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Execute runs a capability and never fails: every error becomes a text result
// prefixed with the capability name. Successful output is returned unmodified.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any) string {
	output, err := d.Invoke(ctx, name, args)
	if err != nil {
		return FormatError(name, err)
	}
	return output
}

// ExecuteAll dispatches calls sequentially in request order.
// A failing call does not prevent later calls from running.
func (d *Dispatcher) ExecuteAll(ctx context.Context, calls []domain.CapabilityCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		output, err := d.Invoke(ctx, call.Name, call.Args)
		if err != nil {
			results = append(results, Result{Name: call.Name, Output: FormatError(call.Name, err), IsError: true})
			continue
		}
		results = append(results, Result{Name: call.Name, Output: output})
	}
	return results
}

// FormatError renders a dispatch failure as a text result.
func FormatError(name string, err error) string {
	return fmt.Sprintf("Error executing %s: %v", name, err)
}

type turnIDKey struct{}

// WithTurnID attaches the turn id to ctx so capability events can be correlated.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnIDKey{}, turnID)
}

// TurnIDFrom returns the turn id attached with WithTurnID, or "".
func TurnIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(turnIDKey{}).(string)
	return id
}
