package domain

// NodeID names a state of the workflow graph.
type NodeID string

const (
	NodeInit                NodeID = "init"
	NodeRetrieveContext     NodeID = "retrieve_context"
	NodeAnalyzeIntent       NodeID = "analyze_intent"
	NodeExecuteCapabilities NodeID = "execute_capabilities"
	NodeGenerateResponse    NodeID = "generate_response"
	NodeEvaluateEscalation  NodeID = "evaluate_escalation"
	NodeEscalate            NodeID = "escalate"
	NodeTerminal            NodeID = "terminal"
)

// Edge labels an outgoing transition of a node.
type Edge string

const (
	EdgeNext           Edge = "next"
	EdgeToolUse        Edge = "tool_use"
	EdgeEscalate       Edge = "escalate"
	EdgeDirectResponse Edge = "direct_response"
	EdgeFinal          Edge = "final"
)
