package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// DefaultUserID identifies the local user when none is configured.
const DefaultUserID = "cli"

var exitCommands = map[string]bool{"exit": true, "quit": true}

// Runner reads queries from an IOHandler and runs one turn per line.
type Runner struct {
	Handler     IOHandler
	Logger      *slog.Logger
	UserID      string
	TurnTimeout time.Duration
	Limits      Limits
	// Interrupt derives the context of each turn. It is cancelled when the
	// user interrupts that turn; the session keeps going. Nil disables it.
	Interrupt func(context.Context) (context.Context, context.CancelFunc)
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithHandler configures the IOHandler.
func WithHandler(h IOHandler) Option {
	return func(r *Runner) {
		r.Handler = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithUserID sets the user id sent with every turn.
func WithUserID(id string) Option {
	return func(r *Runner) {
		r.UserID = id
	}
}

// WithTurnTimeout bounds each turn.
func WithTurnTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.TurnTimeout = d
	}
}

// WithLimits bounds the queries read by the runner.
func WithLimits(l Limits) Option {
	return func(r *Runner) {
		r.Limits = l
	}
}

// WithInterrupts lets SIGINT and SIGTERM cancel the turn in flight.
// Outside a turn the signals keep their default behavior.
func WithInterrupts() Option {
	return WithInterruptSource(func(ctx context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	})
}

// WithInterruptSource sets how turn contexts are interrupted.
func WithInterruptSource(fn func(context.Context) (context.Context, context.CancelFunc)) Option {
	return func(r *Runner) {
		r.Interrupt = fn
	}
}

// NewRunner creates a runner on stdin/stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{UserID: DefaultUserID}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Run loops until the input ends, an exit command is read or ctx is done.
// Turn failures are reported to the user and do not stop the loop.
func (r *Runner) Run(ctx context.Context, turns ports.TurnHandler) error {
	for {
		query, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("input error: %w", err)
		}

		query, err = r.Limits.CleanQuery(query)
		if errors.Is(err, ErrEmptyQuery) {
			continue
		}
		if err != nil {
			if outErr := r.Handler.SystemOutput(ctx, fmt.Sprintf("Error: %v. Please try again.", err)); outErr != nil {
				return outErr
			}
			continue
		}
		if exitCommands[strings.ToLower(query)] {
			return nil
		}

		reply := r.turn(ctx, turns, query)
		if err := r.Handler.Reply(ctx, reply); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (r *Runner) turn(ctx context.Context, turns ports.TurnHandler, query string) domain.TurnReply {
	turnCtx := ctx
	if r.Interrupt != nil {
		var stop context.CancelFunc
		turnCtx, stop = r.Interrupt(turnCtx)
		defer stop()
	}
	if r.TurnTimeout > 0 {
		var cancelTimeout context.CancelFunc
		turnCtx, cancelTimeout = context.WithTimeout(turnCtx, r.TurnTimeout)
		defer cancelTimeout()
	}

	start := time.Now()
	reply, err := turns.Handle(turnCtx, domain.TurnRequest{Query: query, UserID: r.UserID})
	if err != nil {
		if ctx.Err() == nil && errors.Is(turnCtx.Err(), context.Canceled) {
			r.Logger.Info("turn interrupted", "turn_id", reply.TurnID)
		} else {
			r.Logger.Warn("turn failed", "error", err, "turn_id", reply.TurnID)
		}
		if strings.TrimSpace(reply.Response) == "" {
			reply.Response = switchboard.ErrorResponse
		}
	}
	if strings.TrimSpace(reply.Response) == "" {
		reply.Response = switchboard.NoResponse
	}
	r.Logger.Debug("turn handled", "turn_id", reply.TurnID, "escalated", reply.Escalated, "elapsed", time.Since(start))
	return reply
}
