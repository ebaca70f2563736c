package runtime

import (
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Transitions maps a node and an outgoing edge to the next node.
type Transitions map[domain.NodeID]map[domain.Edge]domain.NodeID

// DefaultTransitions is the support workflow:
//
//	init -> retrieve_context -> analyze_intent
//	analyze_intent -tool_use-> execute_capabilities -> generate_response
//	analyze_intent -direct_response-> generate_response
//	analyze_intent -escalate-> escalate
//	generate_response -> evaluate_escalation -escalate-> escalate | -final-> terminal
//	escalate -final-> terminal
var DefaultTransitions = Transitions{
	domain.NodeInit:            {domain.EdgeNext: domain.NodeRetrieveContext},
	domain.NodeRetrieveContext: {domain.EdgeNext: domain.NodeAnalyzeIntent},
	domain.NodeAnalyzeIntent: {
		domain.EdgeToolUse:        domain.NodeExecuteCapabilities,
		domain.EdgeEscalate:       domain.NodeEscalate,
		domain.EdgeDirectResponse: domain.NodeGenerateResponse,
	},
	domain.NodeExecuteCapabilities: {domain.EdgeNext: domain.NodeGenerateResponse},
	domain.NodeGenerateResponse:    {domain.EdgeNext: domain.NodeEvaluateEscalation},
	domain.NodeEvaluateEscalation: {
		domain.EdgeEscalate: domain.NodeEscalate,
		domain.EdgeFinal:    domain.NodeTerminal,
	},
	domain.NodeEscalate: {domain.EdgeFinal: domain.NodeTerminal},
}

// Next resolves the target of edge leaving from.
func (t Transitions) Next(from domain.NodeID, edge domain.Edge) (domain.NodeID, error) {
	to, ok := t[from][edge]
	if !ok {
		return "", fmt.Errorf("%w: %s --%s-->", domain.ErrNoTransition, from, edge)
	}
	return to, nil
}

// Validate checks that every target is either terminal or has outgoing edges itself.
func (t Transitions) Validate() error {
	if _, ok := t[domain.NodeInit]; !ok {
		return fmt.Errorf("%w: %s has no outgoing edges", domain.ErrNoTransition, domain.NodeInit)
	}
	for from, edges := range t {
		for edge, to := range edges {
			if to == domain.NodeTerminal {
				continue
			}
			if _, ok := t[to]; !ok {
				return fmt.Errorf("%w: %s --%s--> %s is a dead end", domain.ErrNoTransition, from, edge, to)
			}
		}
	}
	return nil
}

// RouteAfterIntent picks the edge out of analyze_intent.
// Escalation wins over tool use, which wins over a direct response.
func RouteAfterIntent(s domain.TurnState) domain.Edge {
	switch {
	case s.NeedsEscalation:
		return domain.EdgeEscalate
	case len(s.PendingCalls) > 0 && !s.CallsDispatched:
		return domain.EdgeToolUse
	default:
		return domain.EdgeDirectResponse
	}
}

// RouteAfterEvaluation picks the edge out of evaluate_escalation.
func RouteAfterEvaluation(s domain.TurnState) domain.Edge {
	if s.NeedsEscalation {
		return domain.EdgeEscalate
	}
	return domain.EdgeFinal
}

func always(edge domain.Edge) func(domain.TurnState) domain.Edge {
	return func(domain.TurnState) domain.Edge { return edge }
}
