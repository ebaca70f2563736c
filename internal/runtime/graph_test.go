package runtime

import (
	"testing"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransitions_Valid(t *testing.T) {
	require.NoError(t, DefaultTransitions.Validate())
}

func TestTransitions_Validate_DeadEnd(t *testing.T) {
	tr := Transitions{
		domain.NodeInit: {domain.EdgeNext: domain.NodeRetrieveContext},
	}
	assert.ErrorIs(t, tr.Validate(), domain.ErrNoTransition)
	assert.ErrorIs(t, Transitions{}.Validate(), domain.ErrNoTransition)
}

func TestTransitions_Next(t *testing.T) {
	to, err := DefaultTransitions.Next(domain.NodeAnalyzeIntent, domain.EdgeToolUse)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeExecuteCapabilities, to)

	_, err = DefaultTransitions.Next(domain.NodeInit, domain.EdgeEscalate)
	assert.ErrorIs(t, err, domain.ErrNoTransition)
}

func TestRouteAfterIntent(t *testing.T) {
	calls := []domain.CapabilityCall{{Name: "get_weather"}}

	tests := []struct {
		name  string
		state domain.TurnState
		want  domain.Edge
	}{
		{name: "escalation beats tool use", state: domain.TurnState{NeedsEscalation: true, PendingCalls: calls}, want: domain.EdgeEscalate},
		{name: "pending calls", state: domain.TurnState{PendingCalls: calls}, want: domain.EdgeToolUse},
		{name: "dispatched calls do not loop", state: domain.TurnState{PendingCalls: calls, CallsDispatched: true}, want: domain.EdgeDirectResponse},
		{name: "nothing decided", state: domain.TurnState{}, want: domain.EdgeDirectResponse},
		{name: "interim retrieval response", state: domain.TurnState{Response: domain.RetrievalInterimResponse}, want: domain.EdgeDirectResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteAfterIntent(tt.state))
		})
	}
}

func TestRouteAfterEvaluation(t *testing.T) {
	assert.Equal(t, domain.EdgeEscalate, RouteAfterEvaluation(domain.TurnState{NeedsEscalation: true}))
	assert.Equal(t, domain.EdgeFinal, RouteAfterEvaluation(domain.TurnState{}))
}
