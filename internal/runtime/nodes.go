package runtime

import (
	"context"
	"slices"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Texts used by the escalate node.
const (
	EscalationCapability    = "escalate_to_human"
	DefaultEscalationReason = "Escalation requested"
	HighUrgencyReason       = "High urgency"
	EscalationFailedMessage = "⚠️ I couldn't escalate your query. Please try again later."
)

type node struct {
	run   func(context.Context, domain.TurnState) domain.Update
	route func(domain.TurnState) domain.Edge
}

func (e *Engine) nodes() map[domain.NodeID]node {
	return map[domain.NodeID]node{
		domain.NodeInit:                {run: e.initialize, route: always(domain.EdgeNext)},
		domain.NodeRetrieveContext:     {run: e.retrieveContext, route: always(domain.EdgeNext)},
		domain.NodeAnalyzeIntent:       {run: e.analyzeIntent, route: RouteAfterIntent},
		domain.NodeExecuteCapabilities: {run: e.executeCapabilities, route: always(domain.EdgeNext)},
		domain.NodeGenerateResponse:    {run: e.generateResponse, route: always(domain.EdgeNext)},
		domain.NodeEvaluateEscalation:  {run: e.evaluateEscalation, route: RouteAfterEvaluation},
		domain.NodeEscalate:            {run: e.escalate, route: always(domain.EdgeFinal)},
	}
}

func (e *Engine) initialize(_ context.Context, _ domain.TurnState) domain.Update {
	return domain.Update{
		RetrievedContext:  domain.Ptr([]domain.Snippet{}),
		PendingCalls:      domain.Ptr([]domain.CapabilityCall{}),
		CallsDispatched:   domain.Ptr(false),
		CapabilityResults: domain.Ptr([]string{}),
		Response:          domain.Ptr(""),
		NeedsEscalation:   domain.Ptr(false),
		EscalationReason:  domain.Ptr(""),
		Intent:            domain.Ptr(domain.DecisionKind("")),
	}
}

// retrieveContext is best-effort: failures leave the context empty.
func (e *Engine) retrieveContext(ctx context.Context, s domain.TurnState) domain.Update {
	if e.retriever == nil {
		return domain.Update{RetrievedContext: domain.Ptr([]domain.Snippet{})}
	}

	ctx, cancel := withOptionalTimeout(ctx, e.timeouts.Retrieval)
	defer cancel()

	snippets, err := e.retriever.Search(ctx, s.Query, e.retrievalDepth)
	if err != nil {
		e.logger.Error("vector search failed", "turn_id", s.TurnID, "node", domain.NodeRetrieveContext, "error", err)
		return domain.Update{RetrievedContext: domain.Ptr([]domain.Snippet{})}
	}
	if len(snippets) > e.retrievalDepth {
		snippets = snippets[:e.retrievalDepth]
	}
	e.logger.Info("retrieved context", "turn_id", s.TurnID, "items", len(snippets))
	return domain.Update{RetrievedContext: domain.Ptr(snippets)}
}

// analyzeIntent records the classifier decision. When no decision is produced
// the state is left as is, which routes to a direct response.
func (e *Engine) analyzeIntent(ctx context.Context, s domain.TurnState) domain.Update {
	ctx, cancel := withOptionalTimeout(ctx, e.timeouts.Completion)
	defer cancel()

	decision, err := e.classifier.Classify(ctx, s.Query, e.clock())
	if err != nil {
		e.logger.Error("intent analysis failed", "turn_id", s.TurnID, "node", domain.NodeAnalyzeIntent, "error", err)
		return domain.Update{}
	}
	e.logger.Info("intent analyzed", "turn_id", s.TurnID, "intent", decision.Kind)
	return decision.Update()
}

func (e *Engine) executeCapabilities(ctx context.Context, s domain.TurnState) domain.Update {
	results := slices.Clone(s.CapabilityResults)
	for _, r := range e.dispatcher.ExecuteAll(ctx, s.PendingCalls) {
		results = append(results, r.String())
	}
	return domain.Update{
		CapabilityResults: domain.Ptr(results),
		CallsDispatched:   domain.Ptr(true),
	}
}

func (e *Engine) generateResponse(ctx context.Context, s domain.TurnState) domain.Update {
	ctx, cancel := withOptionalTimeout(ctx, e.timeouts.Completion)
	defer cancel()

	reply := e.synthesizer.Synthesize(ctx, s.Query, s.ContextLines(), s.CapabilityResults)
	return domain.Update{Response: domain.Ptr(reply)}
}

// evaluateEscalation applies the post-response policy. A flag raised earlier
// in the turn is never lowered here.
func (e *Engine) evaluateEscalation(_ context.Context, s domain.TurnState) domain.Update {
	ev := e.policy.Evaluate(s.Query, s.Response)
	e.logger.Info("evaluation complete", "turn_id", s.TurnID, "score", ev.Score, "rule", ev.Rule, "needs_escalation", ev.NeedsEscalation)

	if ev.NeedsEscalation {
		return domain.Update{
			NeedsEscalation:  domain.Ptr(true),
			EscalationReason: domain.Ptr(HighUrgencyReason),
		}
	}
	return domain.Update{NeedsEscalation: domain.Ptr(s.NeedsEscalation)}
}

func (e *Engine) escalate(ctx context.Context, s domain.TurnState) domain.Update {
	reason := s.EscalationReason
	if reason == "" {
		reason = DefaultEscalationReason
	}

	out, err := e.dispatcher.Invoke(ctx, EscalationCapability, map[string]any{
		"query":   s.Query,
		"user_id": s.UserID,
		"reason":  reason,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		e.logger.Error("escalation failed", "turn_id", s.TurnID, "node", domain.NodeEscalate, "error", err)
		return domain.Update{Response: domain.Ptr(EscalationFailedMessage)}
	}
	e.logger.Info("escalation successful", "turn_id", s.TurnID)
	return domain.Update{Response: domain.Ptr(out)}
}
