package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func reply(text string) ports.Completer {
	return ports.CompleterFunc(func(context.Context, []ports.Message) (string, error) {
		return text, nil
	})
}

func testRegistry(t *testing.T) *capability.Registry {
	t.Helper()
	noop := func(context.Context, map[string]any) (string, error) { return "", nil }
	reg := capability.NewRegistry()
	require.NoError(t, reg.Register(
		capability.New("get_weather", "Get current weather for a city.", schema.Schema{"city": schema.String()}, noop),
		capability.New("escalate_to_human", "Escalate to support.", schema.Schema{"query": schema.String()}, noop),
	))
	return reg
}

func TestClassify_Actions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Decision
	}{
		{
			name: "tool call",
			raw:  `{"action": "tool", "tool_name": "get_weather", "tool_args": {"city": "Lahore"}}`,
			want: domain.Decision{
				Kind:  domain.DecisionToolCall,
				Calls: []domain.CapabilityCall{{Name: "get_weather", Args: map[string]any{"city": "Lahore"}}},
			},
		},
		{
			name: "tool call without args",
			raw:  `{"action": "tool", "tool_name": "get_weather"}`,
			want: domain.Decision{
				Kind:  domain.DecisionToolCall,
				Calls: []domain.CapabilityCall{{Name: "get_weather", Args: map[string]any{}}},
			},
		},
		{
			name: "fenced escalate",
			raw:  "```json\n{\"action\": \"escalate\", \"reason\": \"angry customer\"}\n```",
			want: domain.Decision{Kind: domain.DecisionEscalate, Reason: "angry customer"},
		},
		{
			name: "rag",
			raw:  `{"action": "rag", "context_needed": true}`,
			want: domain.Decision{Kind: domain.DecisionRetrieval},
		},
		{
			name: "direct",
			raw:  `{"action": "direct", "response": "Hello! 👋"}`,
			want: domain.Decision{Kind: domain.DecisionDirect, Text: "Hello! 👋"},
		},
		{
			name: "unknown action is direct",
			raw:  `{"action": "chitchat", "response": "hi"}`,
			want: domain.Decision{Kind: domain.DecisionDirect, Text: "hi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(reply(tt.raw), testRegistry(t))
			got, err := c.Classify(context.Background(), "question", fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_MalformedEscalates(t *testing.T) {
	inputs := []string{
		"I think you want the weather",
		`{"action": "tool", "tool_args": {"city": "Lahore"}}`,
		`{"response": "no action here"}`,
		"",
		`{"action": "direct", "response": "hi"} trailing words`,
	}

	for _, raw := range inputs {
		c := New(reply(raw), testRegistry(t))
		got, err := c.Classify(context.Background(), "question", fixedNow)
		require.NoError(t, err, "raw=%q", raw)
		assert.Equal(t, domain.Decision{Kind: domain.DecisionEscalate, Reason: ParseFailureReason}, got, "raw=%q", raw)
		assert.True(t, got.Update().NeedsEscalation != nil && *got.Update().NeedsEscalation)
	}
}

func TestClassify_LenientParsing(t *testing.T) {
	raw := `Sure! Here you go: {"action": "direct", "response": "hi"} Hope that helps.`

	strict := New(reply(raw), testRegistry(t))
	got, err := strict.Classify(context.Background(), "hello there friend", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionEscalate, got.Kind)

	lenient := New(reply(raw), testRegistry(t), WithLenientParsing(true))
	got, err = lenient.Classify(context.Background(), "hello there friend", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, domain.Decision{Kind: domain.DecisionDirect, Text: "hi"}, got)

	lenient = New(reply("no braces at all"), testRegistry(t), WithLenientParsing(true))
	got, err = lenient.Classify(context.Background(), "hello there friend", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, ParseFailureReason, got.Reason)
}

func TestClassify_CompletionFailureProducesNoDecision(t *testing.T) {
	failing := ports.CompleterFunc(func(context.Context, []ports.Message) (string, error) {
		return "", errors.New("connection refused")
	})

	_, err := New(failing, testRegistry(t)).Classify(context.Background(), "question", fixedNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletion)
}

func TestClassify_ScheduleEventNormalization(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		want    string
		wantErr bool
	}{
		{name: "naive local time", start: "2025-03-02T15:00:00", want: "2025-03-02T10:00:00Z"},
		{name: "utc marker unchanged", start: "2025-03-02T15:00:00Z", want: "2025-03-02T15:00:00Z"},
		{name: "fractional utc unchanged", start: "2025-03-02T15:00:00.000Z", want: "2025-03-02T15:00:00.000Z"},
		{name: "explicit offset", start: "2025-03-02T15:00:00+02:00", want: "2025-03-02T13:00:00Z"},
		{name: "unparseable", start: "tomorrow at 3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"action": "tool", "tool_name": "schedule_event", "tool_args": {"title": "Demo", "start_time": "` + tt.start + `", "duration": 30}}`
			got, err := New(reply(raw), testRegistry(t)).Classify(context.Background(), "book a demo", fixedNow)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			require.Len(t, got.Calls, 1)
			assert.Equal(t, tt.want, got.Calls[0].Args["start_time"])
			assert.Equal(t, "Demo", got.Calls[0].Args["title"])
			assert.EqualValues(t, 30, got.Calls[0].Args["duration"])
		})
	}
}

func TestNormalizeStartTime_Idempotent(t *testing.T) {
	loc, err := time.LoadLocation(DefaultZone)
	require.NoError(t, err)

	for _, in := range []string{"2025-01-10T08:30:00", "2025-01-10 08:30", "2025-01-10T08:30:00+05:00"} {
		once, err := NormalizeStartTime(in, loc)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(once, "Z"))

		twice, err := NormalizeStartTime(once, loc)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestClassify_PromptListsToolsButNotEscalation(t *testing.T) {
	var seen []ports.Message
	spy := ports.CompleterFunc(func(_ context.Context, msgs []ports.Message) (string, error) {
		seen = msgs
		return `{"action": "direct", "response": "ok"}`, nil
	})

	_, err := New(spy, testRegistry(t)).Classify(context.Background(), "Weather in Lahore?", fixedNow)
	require.NoError(t, err)
	require.Len(t, seen, 2)

	assert.Equal(t, ports.RoleSystem, seen[0].Role)
	assert.Contains(t, seen[0].Content, `"tool_name": "get_weather"`)
	assert.Contains(t, seen[0].Content, `{"city": "<CITY>"}`)
	assert.NotContains(t, seen[0].Content, "escalate_to_human")
	assert.Contains(t, seen[0].Content, "Current time (Asia/Karachi): 2025-03-01T14:00:00+05:00")
	assert.Contains(t, seen[0].Content, "Tomorrow (Asia/Karachi): 2025-03-02T14:00:00+05:00")

	assert.Equal(t, ports.Message{Role: ports.RoleUser, Content: "Query: Weather in Lahore?"}, seen[1])
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`  {"a":1}  `))
	assert.Equal(t, `{"a":1}`, StripFences("{\"a\":1}```"))
}
