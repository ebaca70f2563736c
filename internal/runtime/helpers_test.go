package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/switchboard/internal/classifier"
	"github.com/aretw0/switchboard/internal/synthesizer"
	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter answers classifier prompts with verdict and synthesis prompts with reply.
type scriptedCompleter struct {
	verdict  string
	reply    string
	replyErr error

	mu    sync.Mutex
	calls []string
}

func (s *scriptedCompleter) Complete(_ context.Context, msgs []ports.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.HasPrefix(msgs[0].Content, "You are an AI support agent") {
		s.calls = append(s.calls, "classify")
		return s.verdict, nil
	}
	s.calls = append(s.calls, "synthesize:"+msgs[1].Content)
	return s.reply, s.replyErr
}

type fixture struct {
	completer *scriptedCompleter
	registry  *capability.Registry
	tickets   []map[string]any
	escalErr  error
}

func newFixture(t *testing.T, verdict, reply string) *fixture {
	t.Helper()
	f := &fixture{
		completer: &scriptedCompleter{verdict: verdict, reply: reply},
		registry:  capability.NewRegistry(),
	}

	require.NoError(t, f.registry.Register(
		capability.New("get_weather", "Get current weather for a city.",
			schema.Schema{"city": schema.String()},
			func(_ context.Context, args map[string]any) (string, error) {
				return fmt.Sprintf("🌡️ Weather in %s:\nTemperature: 31°C", args["city"]), nil
			}),
		capability.New(EscalationCapability, "Escalate the query to a human agent.",
			schema.Schema{
				"query":   schema.String(),
				"user_id": schema.String(),
				"reason":  schema.Field(schema.String(), schema.WithDefault(DefaultEscalationReason)),
			},
			func(_ context.Context, args map[string]any) (string, error) {
				if f.escalErr != nil {
					return "", f.escalErr
				}
				f.tickets = append(f.tickets, args)
				return fmt.Sprintf("🚨 Escalated: %s\nUser: %s\nReason: %s", args["query"], args["user_id"], args["reason"]), nil
			}),
	))
	return f
}

func (f *fixture) engine(opts ...EngineOption) *Engine {
	base := []EngineOption{
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { return "turn-1" }),
	}
	return NewEngine(
		classifier.New(f.completer, f.registry),
		synthesizer.New(f.completer),
		capability.NewDispatcher(f.registry, capability.WithTimeout(time.Second)),
		append(base, opts...)...,
	)
}

func visited(s domain.TurnState) []domain.NodeID {
	out := make([]domain.NodeID, 0, len(s.StepLog))
	for _, rec := range s.StepLog {
		out = append(out, rec.Node)
	}
	return out
}
