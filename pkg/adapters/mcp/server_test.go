package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/runner"
	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turnFunc func(ctx context.Context, req domain.TurnRequest) (domain.TurnReply, error)

func (f turnFunc) Handle(ctx context.Context, req domain.TurnRequest) (domain.TurnReply, error) {
	return f(ctx, req)
}

func newDispatcher(t *testing.T) *capability.Dispatcher {
	t.Helper()
	reg := capability.NewRegistry()
	require.NoError(t, reg.Register(
		capability.New("get_weather", "Current weather for a city",
			schema.Schema{"city": schema.Field(schema.String(), schema.WithDescription("City name"))},
			func(_ context.Context, args map[string]any) (string, error) {
				return "sunny in " + args["city"].(string), nil
			}),
		capability.New("web_search", "Search the web",
			schema.Schema{
				"query":       schema.String(),
				"max_results": schema.Field(schema.Int(), schema.WithDefault(3)),
			},
			func(context.Context, map[string]any) (string, error) {
				return "", errors.New("provider down")
			}),
	))
	return capability.NewDispatcher(reg)
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServer_PublishesTools(t *testing.T) {
	s := NewServer(turnFunc(nil), newDispatcher(t))
	assert.Equal(t, []string{AskTool, "get_weather", "web_search"}, s.Tools())
}

func TestCapabilityTool_Parameters(t *testing.T) {
	d := newDispatcher(t)
	c, err := d.Registry().Lookup("web_search")
	require.NoError(t, err)

	tool := capabilityTool(c)
	assert.Equal(t, []string{"query"}, tool.InputSchema.Required)
	assert.Contains(t, tool.InputSchema.Properties, "max_results")
	assert.Equal(t, "number", tool.InputSchema.Properties["max_results"].(map[string]any)["type"])
}

func TestHandleAsk(t *testing.T) {
	var got domain.TurnRequest
	s := NewServer(turnFunc(func(_ context.Context, req domain.TurnRequest) (domain.TurnReply, error) {
		got = req
		return domain.TurnReply{Response: "Hello!", TurnID: "t-1"}, nil
	}), nil)

	reply, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Query: "hi\x07 there"})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply.Response)
	assert.Equal(t, "hi there", got.Query)
	assert.Equal(t, DefaultMCPUserID, got.UserID)
}

func TestHandleAsk_Limits(t *testing.T) {
	calls := 0
	s := NewServer(turnFunc(func(context.Context, domain.TurnRequest) (domain.TurnReply, error) {
		calls++
		return domain.TurnReply{Response: "ok"}, nil
	}), nil, WithLimits(runner.Limits{MaxQueryBytes: 16, MaxUserIDBytes: 4}))

	_, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Query: "where is my parcel today"})
	assert.ErrorIs(t, err, runner.ErrQueryTooLarge)

	_, err = s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Query: "where is it", UserID: "a b"})
	assert.ErrorIs(t, err, runner.ErrInvalidUserID)

	reply, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Query: "where is it", UserID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Response)
	assert.Equal(t, 1, calls)
}

func TestHandleAsk_Fallbacks(t *testing.T) {
	failing := NewServer(turnFunc(func(context.Context, domain.TurnRequest) (domain.TurnReply, error) {
		return domain.TurnReply{}, errors.New("boom")
	}), nil)
	reply, err := failing.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Query: "help me please", UserID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, switchboard.ErrorResponse, reply.Response)

	blank := NewServer(turnFunc(func(context.Context, domain.TurnRequest) (domain.TurnReply, error) {
		return domain.TurnReply{}, nil
	}), nil)
	reply, err = blank.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Query: "help me please"})
	require.NoError(t, err)
	assert.Equal(t, switchboard.NoResponse, reply.Response)

	_, err = blank.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Query: "  "})
	assert.Error(t, err)
}

func TestCapabilityHandler(t *testing.T) {
	s := NewServer(turnFunc(nil), newDispatcher(t))

	req := mcp.CallToolRequest{}
	req.Params.Name = "get_weather"
	req.Params.Arguments = map[string]any{"city": "Lahore"}
	res, err := s.capabilityHandler("get_weather")(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "sunny in Lahore", textOf(t, res))

	req.Params.Arguments = map[string]any{"query": "golang"}
	res, err = s.capabilityHandler("web_search")(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error executing web_search: provider down", textOf(t, res))

	req.Params.Arguments = map[string]any{}
	res, err = s.capabilityHandler("get_weather")(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError, "missing required argument")
}

func TestDescribeCapabilities(t *testing.T) {
	s := NewServer(turnFunc(nil), newDispatcher(t))
	data, err := s.describeCapabilities()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"get_weather"`)
	assert.Contains(t, string(data), `"max_results":"int?"`)
}
