package capability_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCapability records invocations.
type MockCapability struct {
	mock.Mock
	name   string
	schema schema.Schema
}

func (m *MockCapability) Name() string          { return m.name }
func (m *MockCapability) Description() string   { return "mock" }
func (m *MockCapability) Schema() schema.Schema { return m.schema }

func (m *MockCapability) Invoke(ctx context.Context, args map[string]any) (string, error) {
	ret := m.Called(ctx, args)
	return ret.String(0), ret.Error(1)
}

func newDispatcher(t *testing.T, caps ...capability.Capability) *capability.Dispatcher {
	t.Helper()
	reg := capability.NewRegistry()
	require.NoError(t, reg.Register(caps...))
	return capability.NewDispatcher(reg, capability.WithTimeout(200*time.Millisecond))
}

func TestDispatcher_SuccessReturnsOutputUnmodified(t *testing.T) {
	weather := &MockCapability{name: "get_weather", schema: schema.Schema{"city": schema.String()}}
	weather.On("Invoke", mock.Anything, map[string]any{"city": "Lahore"}).Return("🌡️ Weather in Lahore", nil)

	d := newDispatcher(t, weather)
	out := d.Execute(context.Background(), "get_weather", map[string]any{"city": "Lahore"})

	assert.Equal(t, "🌡️ Weather in Lahore", out)
	weather.AssertExpectations(t)
}

func TestDispatcher_AppliesDefaultsAndCoercion(t *testing.T) {
	search := &MockCapability{name: "web_search", schema: schema.Schema{
		"query":       schema.String(),
		"max_results": schema.Field(schema.Int(), schema.WithDefault(3)),
	}}
	search.On("Invoke", mock.Anything, map[string]any{"query": "go", "max_results": 3}).Return("ok", nil).Once()
	search.On("Invoke", mock.Anything, map[string]any{"query": "go", "max_results": 5}).Return("ok5", nil).Once()

	d := newDispatcher(t, search)
	assert.Equal(t, "ok", d.Execute(context.Background(), "web_search", map[string]any{"query": "go"}))
	assert.Equal(t, "ok5", d.Execute(context.Background(), "web_search", map[string]any{"query": "go", "max_results": 5.0}))
	search.AssertExpectations(t)
}

func TestDispatcher_FailuresBecomeText(t *testing.T) {
	failing := &MockCapability{name: "web_search", schema: schema.Schema{"query": schema.String()}}
	failing.On("Invoke", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	panicky := capability.New("explode", "", nil, func(ctx context.Context, args map[string]any) (string, error) {
		panic("kaboom")
	})
	slow := capability.New("slow", "", nil, func(ctx context.Context, args map[string]any) (string, error) {
		time.Sleep(2 * time.Second)
		return "late", nil
	})

	d := newDispatcher(t, failing, panicky, slow)

	tests := []struct {
		name     string
		call     string
		args     map[string]any
		contains string
	}{
		{"not found", "check_order_status", map[string]any{"order_id": "42"}, "capability not found"},
		{"validation", "web_search", map[string]any{}, `invalid arguments: field "query": required`},
		{"handler error", "web_search", map[string]any{"query": "x"}, "boom"},
		{"panic", "explode", nil, "panic: kaboom"},
		{"timeout", "slow", nil, context.DeadlineExceeded.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := d.Execute(context.Background(), tt.call, tt.args)
			assert.True(t, strings.HasPrefix(out, "Error executing "+tt.call+": "), out)
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestDispatcher_InvokeReportsErrors(t *testing.T) {
	d := newDispatcher(t)

	_, err := d.Invoke(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, capability.ErrNotFound)
}

func TestDispatcher_ExecuteAllKeepsOrderWithoutFailFast(t *testing.T) {
	var order []string
	mk := func(name string, err error) capability.Capability {
		return capability.New(name, "", nil, func(ctx context.Context, args map[string]any) (string, error) {
			order = append(order, name)
			if err != nil {
				return "", err
			}
			return "done " + name, nil
		})
	}

	d := newDispatcher(t, mk("first", nil), mk("second", errors.New("down")), mk("third", nil))

	results := d.ExecuteAll(context.Background(), []domain.CapabilityCall{
		{Name: "first"}, {Name: "second"}, {Name: "unknown"}, {Name: "third"},
	})

	require.Len(t, results, 4)
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, "first: done first", results[0].String())
	assert.True(t, results[1].IsError)
	assert.Equal(t, "second: Error executing second: down", results[1].String())
	assert.True(t, results[2].IsError)
	assert.Equal(t, "third: done third", results[3].String())
}

func TestDispatcher_EmitsHooks(t *testing.T) {
	var events []domain.EventType
	hooks := domain.LifecycleHooks{
		OnCapabilityCall: func(ctx context.Context, e *domain.CapabilityEvent) {
			events = append(events, e.Type)
			assert.Equal(t, "turn-7", e.TurnID)
		},
		OnCapabilityReturn: func(ctx context.Context, e *domain.CapabilityEvent) {
			events = append(events, e.Type)
			assert.True(t, e.IsError)
		},
	}

	reg := capability.NewRegistry()
	d := capability.NewDispatcher(reg, capability.WithHooks(hooks))

	ctx := capability.WithTurnID(context.Background(), "turn-7")
	_ = d.Execute(ctx, "missing", nil)

	assert.Equal(t, []domain.EventType{domain.EventCapabilityCall, domain.EventCapabilityReturn}, events)
}
