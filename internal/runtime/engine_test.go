package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherReply = "It's 31°C and sunny in Lahore today ☀️ Stay hydrated!"

func TestRun_WeatherToolCall(t *testing.T) {
	f := newFixture(t,
		`{"action": "tool", "tool_name": "get_weather", "tool_args": {"city": "Lahore"}}`,
		weatherReply)

	state, err := f.engine().Run(context.Background(), "What's the weather in Lahore?", "U1")
	require.NoError(t, err)

	assert.Equal(t, weatherReply, state.Response)
	assert.False(t, state.NeedsEscalation)
	assert.Empty(t, state.EscalationReason)
	assert.Equal(t, domain.DecisionToolCall, state.Intent)
	assert.True(t, state.CallsDispatched)
	require.Len(t, state.CapabilityResults, 1)
	assert.Equal(t, "get_weather: 🌡️ Weather in Lahore:\nTemperature: 31°C", state.CapabilityResults[0])

	assert.Equal(t, []domain.NodeID{
		domain.NodeInit,
		domain.NodeRetrieveContext,
		domain.NodeAnalyzeIntent,
		domain.NodeExecuteCapabilities,
		domain.NodeGenerateResponse,
		domain.NodeEvaluateEscalation,
	}, visited(state))
	assert.Equal(t, domain.EdgeToolUse, state.StepLog[2].Edge)
	assert.Equal(t, domain.EdgeFinal, state.StepLog[5].Edge)

	require.Len(t, f.completer.calls, 2)
	assert.Contains(t, f.completer.calls[1], "Tool Outputs: get_weather: 🌡️ Weather in Lahore")
	assert.Contains(t, f.completer.calls[1], "Context: No context available")
}

func TestRun_ShortQueryNotEscalatedAfterResponse(t *testing.T) {
	f := newFixture(t, `{"action": "direct", "response": "👍"}`, "👍")

	state, err := f.engine().Run(context.Background(), "ok", "U1")
	require.NoError(t, err)

	assert.Equal(t, "👍", state.Response)
	assert.False(t, state.NeedsEscalation)
	assert.Empty(t, f.tickets)
	assert.Equal(t, domain.NodeEvaluateEscalation, visited(state)[len(state.StepLog)-1])
}

func TestRun_ClassifierEscalationStillApplies(t *testing.T) {
	f := newFixture(t, `{"action": "escalate", "reason": "wants a human"}`, "unused")

	state, err := f.engine().Run(context.Background(), "ok", "U1")
	require.NoError(t, err)

	assert.True(t, state.NeedsEscalation)
	assert.Equal(t, "🚨 Escalated: ok\nUser: U1\nReason: wants a human", state.Response)
	assert.NotContains(t, visited(state), domain.NodeGenerateResponse)
}

func TestRun_MalformedVerdictEscalatesDirectly(t *testing.T) {
	f := newFixture(t, "Sorry, I cannot answer in JSON today.", "unused")

	state, err := f.engine().Run(context.Background(), "I need help with my refund request", "U7")
	require.NoError(t, err)

	assert.Equal(t, []domain.NodeID{
		domain.NodeInit,
		domain.NodeRetrieveContext,
		domain.NodeAnalyzeIntent,
		domain.NodeEscalate,
	}, visited(state))
	assert.Equal(t, domain.EdgeEscalate, state.StepLog[2].Edge)
	assert.Equal(t, "🚨 Escalated: I need help with my refund request\nUser: U7\nReason: Failed to parse response", state.Response)
	require.Len(t, f.tickets, 1)
	assert.Equal(t, "Failed to parse response", f.tickets[0]["reason"])
	assert.Equal(t, []string{"classify"}, f.completer.calls)
}

func TestRun_ShortResponseEscalates(t *testing.T) {
	f := newFixture(t, `{"action": "direct", "response": "?"}`, "I don't know.")

	state, err := f.engine().Run(context.Background(), "Can I get a refund for my subscription?", "U2")
	require.NoError(t, err)

	assert.True(t, state.NeedsEscalation)
	assert.Equal(t, HighUrgencyReason, state.EscalationReason)
	assert.Equal(t, "🚨 Escalated: Can I get a refund for my subscription?\nUser: U2\nReason: High urgency", state.Response)
	assert.Equal(t, domain.NodeEscalate, visited(state)[len(state.StepLog)-1])
}

func TestRun_EscalationDeliveryFailure(t *testing.T) {
	f := newFixture(t, `{"action": "escalate"}`, "unused")
	f.escalErr = errors.New("queue down")

	state, err := f.engine().Run(context.Background(), "let me talk to someone", "U3")
	require.NoError(t, err)
	assert.Equal(t, EscalationFailedMessage, state.Response)
}

func TestRun_DefaultEscalationReason(t *testing.T) {
	f := newFixture(t, `{"action": "escalate"}`, "unused")

	state, err := f.engine().Run(context.Background(), "let me talk to someone", "U3")
	require.NoError(t, err)
	require.Len(t, f.tickets, 1)
	assert.Equal(t, DefaultEscalationReason, f.tickets[0]["reason"])
	assert.Contains(t, state.Response, "Reason: Escalation requested")
}

func TestRun_RetrievalIsBestEffort(t *testing.T) {
	f := newFixture(t, `{"action": "rag", "context_needed": true}`, "Our return window is 30 days. 📦 Keep your receipt handy.")

	failing := ports.RetrieverFunc(func(context.Context, string, int) ([]domain.Snippet, error) {
		return nil, errors.New("index unavailable")
	})
	state, err := f.engine(WithRetriever(failing)).Run(context.Background(), "what is your return policy", "U4")
	require.NoError(t, err)
	assert.Empty(t, state.RetrievedContext)
	assert.Equal(t, domain.DecisionRetrieval, state.Intent)
	assert.False(t, state.NeedsEscalation)
}

func TestRun_RetrievedContextReachesSynthesis(t *testing.T) {
	f := newFixture(t, `{"action": "rag", "context_needed": true}`, "Our return window is 30 days. 📦 Keep your receipt handy.")

	var gotK int
	r := ports.RetrieverFunc(func(_ context.Context, _ string, k int) ([]domain.Snippet, error) {
		gotK = k
		return []domain.Snippet{
			{Source: "returns.md", Text: "Returns accepted within 30 days."},
			{Source: "faq.md", Text: "Receipts are required."},
			{Source: "faq.md", Text: "Refunds take 5 days."},
			{Source: "extra.md", Text: "Over the limit."},
		}, nil
	})

	state, err := f.engine(WithRetriever(r)).Run(context.Background(), "what is your return policy", "U4")
	require.NoError(t, err)
	assert.Equal(t, DefaultRetrievalDepth, gotK)
	require.Len(t, state.RetrievedContext, 3)
	assert.Contains(t, f.completer.calls[1], "Context: returns.md: Returns accepted within 30 days.\nfaq.md: Receipts are required.")
}

func TestRun_ClassifierFailureFallsBackToDirectResponse(t *testing.T) {
	f := newFixture(t, "", "Hello there! How can I help you today? 😊")
	cls := classifierFunc(func(context.Context, string) (domain.Decision, error) {
		return domain.Decision{}, errors.New("completion unavailable")
	})
	e := NewEngine(cls, synthFunc(func(string) string { return f.completer.reply }), f.engine().dispatcher)

	state, err := e.Run(context.Background(), "hello there friend", "U5")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionKind(""), state.Intent)
	assert.Equal(t, domain.EdgeDirectResponse, state.StepLog[2].Edge)
	assert.Equal(t, "Hello there! How can I help you today? 😊", state.Response)
}

func TestRun_SynthesisFailureUsesApology(t *testing.T) {
	f := newFixture(t, `{"action": "direct", "response": "hi"}`, "")
	f.completer.replyErr = errors.New("rate limited")

	state, err := f.engine().Run(context.Background(), "tell me about your plans", "U6")
	require.NoError(t, err)
	assert.Equal(t, "I apologize, but I'm having trouble generating a response. 😅", state.Response)
	assert.False(t, state.NeedsEscalation)
}

func TestRun_CapabilityFailureBecomesText(t *testing.T) {
	f := newFixture(t, `{"action": "tool", "tool_name": "check_order_status", "tool_args": {"order_id": "42"}}`, weatherReply)

	state, err := f.engine().Run(context.Background(), "where is my order 42", "U8")
	require.NoError(t, err)
	require.Len(t, state.CapabilityResults, 1)
	assert.Equal(t, "check_order_status: Error executing check_order_status: capability not found: check_order_status", state.CapabilityResults[0])
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, `{"action": "direct", "response": "hi"}`, weatherReply)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine().Run(ctx, "hello", "U1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_BrokenTransitionTable(t *testing.T) {
	f := newFixture(t, `{"action": "direct", "response": "hi"}`, weatherReply)
	broken := Transitions{
		domain.NodeInit:            {domain.EdgeNext: domain.NodeRetrieveContext},
		domain.NodeRetrieveContext: {domain.EdgeNext: domain.NodeAnalyzeIntent},
		domain.NodeAnalyzeIntent:   {domain.EdgeToolUse: domain.NodeExecuteCapabilities},
	}

	state, err := f.engine(WithTransitions(broken)).Run(context.Background(), "hello there friend", "U1")
	require.ErrorIs(t, err, domain.ErrNoTransition)
	assert.Len(t, state.StepLog, 2)
}

func TestRun_StepLimit(t *testing.T) {
	f := newFixture(t, `{"action": "direct", "response": "hi"}`, weatherReply)

	_, err := f.engine(WithMaxSteps(3)).Run(context.Background(), "hello there friend", "U1")
	require.ErrorIs(t, err, domain.ErrStepLimit)
}

type classifierFunc func(context.Context, string) (domain.Decision, error)

func (f classifierFunc) Classify(ctx context.Context, q string, _ time.Time) (domain.Decision, error) {
	return f(ctx, q)
}

type synthFunc func(string) string

func (f synthFunc) Synthesize(_ context.Context, q string, _, _ []string) string {
	return f(q)
}
