package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	queries []string
	users   []string
	reply   func(ctx context.Context, query string) (domain.TurnReply, error)
}

func (h *recordingHandler) Handle(ctx context.Context, req domain.TurnRequest) (domain.TurnReply, error) {
	h.mu.Lock()
	h.queries = append(h.queries, req.Query)
	h.users = append(h.users, req.UserID)
	h.mu.Unlock()
	if h.reply != nil {
		return h.reply(ctx, req.Query)
	}
	return domain.TurnReply{Response: "echo: " + req.Query}, nil
}

func TestRunner_TextSession(t *testing.T) {
	in := strings.NewReader("hello there\n\n   \nwhat is the weather\nexit\nnever read\n")
	out := &bytes.Buffer{}
	turns := &recordingHandler{}

	r := NewRunner(WithHandler(NewTextHandler(in, out)), WithUserID("U42"))
	require.NoError(t, r.Run(context.Background(), turns))

	assert.Equal(t, []string{"hello there", "what is the weather"}, turns.queries)
	assert.Equal(t, []string{"U42", "U42"}, turns.users)
	assert.Contains(t, out.String(), "echo: hello there")
	assert.Contains(t, out.String(), "echo: what is the weather")
	assert.NotContains(t, out.String(), "never read")
}

func TestRunner_EOFEndsSession(t *testing.T) {
	turns := &recordingHandler{}
	r := NewRunner(WithHandler(NewTextHandler(strings.NewReader("last question without newline"), &bytes.Buffer{})))

	require.NoError(t, r.Run(context.Background(), turns))
	assert.Equal(t, []string{"last question without newline"}, turns.queries)
}

func TestRunner_Fallbacks(t *testing.T) {
	out := &bytes.Buffer{}
	calls := 0
	turns := &recordingHandler{reply: func(context.Context, string) (domain.TurnReply, error) {
		calls++
		if calls == 1 {
			return domain.TurnReply{}, errors.New("broken")
		}
		return domain.TurnReply{Response: " "}, nil
	}}

	r := NewRunner(WithHandler(NewTextHandler(strings.NewReader("first one\nsecond one\n"), out)))
	require.NoError(t, r.Run(context.Background(), turns))

	assert.Contains(t, out.String(), switchboard.ErrorResponse)
	assert.Contains(t, out.String(), switchboard.NoResponse)
}

func TestRunner_RejectsOversizedInput(t *testing.T) {
	out := &bytes.Buffer{}
	turns := &recordingHandler{}

	r := NewRunner(
		WithHandler(NewTextHandler(strings.NewReader("this line is too long\nshort\n"), out)),
		WithLimits(Limits{MaxQueryBytes: 10}),
	)
	require.NoError(t, r.Run(context.Background(), turns))

	assert.Equal(t, []string{"short"}, turns.queries)
	assert.Contains(t, out.String(), "[System] Error:")
}

func TestRunner_TurnTimeout(t *testing.T) {
	out := &bytes.Buffer{}
	turns := &recordingHandler{reply: func(ctx context.Context, _ string) (domain.TurnReply, error) {
		<-ctx.Done()
		return domain.TurnReply{}, ctx.Err()
	}}

	r := NewRunner(WithHandler(NewTextHandler(strings.NewReader("slow question here\n"), out)), WithTurnTimeout(20*time.Millisecond))
	require.NoError(t, r.Run(context.Background(), turns))
	assert.Contains(t, out.String(), switchboard.ErrorResponse)
}

func TestRunner_InterruptCancelsOnlyTheTurn(t *testing.T) {
	out := &bytes.Buffer{}
	interrupts := make(chan context.CancelFunc, 1)
	source := func(ctx context.Context) (context.Context, context.CancelFunc) {
		turnCtx, cancel := context.WithCancel(ctx)
		interrupts <- cancel
		return turnCtx, cancel
	}

	calls := 0
	turns := &recordingHandler{reply: func(ctx context.Context, q string) (domain.TurnReply, error) {
		calls++
		if calls == 1 {
			(<-interrupts)()
			<-ctx.Done()
			return domain.TurnReply{}, ctx.Err()
		}
		<-interrupts
		return domain.TurnReply{Response: "echo: " + q}, ctx.Err()
	}}

	r := NewRunner(
		WithHandler(NewTextHandler(strings.NewReader("slow question here\nnext question here\n"), out)),
		WithInterruptSource(source),
	)
	require.NoError(t, r.Run(context.Background(), turns))

	assert.Equal(t, []string{"slow question here", "next question here"}, turns.queries)
	assert.Contains(t, out.String(), switchboard.ErrorResponse)
	assert.Contains(t, out.String(), "echo: next question here")
}

func TestRunner_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(WithHandler(NewTextHandler(strings.NewReader("hello\n"), &bytes.Buffer{})))
	err := r.Run(ctx, &recordingHandler{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextHandler_EscalatedReply(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "**" + s + "**", nil
	}))

	require.NoError(t, h.Reply(context.Background(), domain.TurnReply{Response: "🚨 Escalated", Escalated: true}))
	assert.Equal(t, "**🚨 Escalated**\n[handed off to a human agent]\n", out.String())
}

func TestJSONHandler(t *testing.T) {
	in := strings.NewReader("{\"query\":\"from object\",\"userId\":\"U1\"}\n\"from string\"\nplain text\n")
	out := &bytes.Buffer{}
	turns := &recordingHandler{}

	r := NewRunner(WithHandler(NewJSONHandler(in, out)))
	require.NoError(t, r.Run(context.Background(), turns))

	assert.Equal(t, []string{"from object", "from string", "plain text"}, turns.queries)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"response":"echo: from object"}`, lines[0])
}
