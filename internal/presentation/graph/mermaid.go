package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/switchboard/internal/runtime"
	"github.com/aretw0/switchboard/pkg/domain"
)

// GraphOverlay contains the path of one turn to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []domain.NodeID
	CurrentNode  domain.NodeID
}

// OverlayFromSteps builds an overlay from a turn's step log.
// The last step is marked as current.
func OverlayFromSteps(steps []domain.StepRecord) *GraphOverlay {
	o := &GraphOverlay{}
	for _, s := range steps {
		o.VisitedNodes = append(o.VisitedNodes, s.Node)
	}
	if len(steps) > 0 {
		o.CurrentNode = steps[len(steps)-1].Node
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the transition table.
// Shapes:
// - init: ((Circle))
// - execute_capabilities: [[Subroutine]]
// - analyze_intent, evaluate_escalation: {Decision}
// - terminal: (((Double circle)))
// - Default: [Rectangle]
// Edges other than "next" are labelled. Output is sorted so it is stable.
func GenerateMermaid(t runtime.Transitions, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	nodes := map[domain.NodeID]bool{}
	for from, edges := range t {
		nodes[from] = true
		for _, to := range edges {
			nodes[to] = true
		}
	}
	ids := make([]domain.NodeID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		opener, closer := "[", "]"
		switch id {
		case domain.NodeInit:
			opener, closer = "((", "))"
		case domain.NodeTerminal:
			opener, closer = "(((", ")))"
		case domain.NodeExecuteCapabilities:
			opener, closer = "[[", "]]"
		case domain.NodeAnalyzeIntent, domain.NodeEvaluateEscalation:
			opener, closer = "{", "}"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(string(id)), opener, id, closer))
	}

	for _, from := range ids {
		edges := t[from]
		labels := make([]domain.Edge, 0, len(edges))
		for e := range edges {
			labels = append(labels, e)
		}
		slices.Sort(labels)
		for _, e := range labels {
			arrow := "-->"
			if e != domain.EdgeNext {
				arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(string(e), "\"", "'"))
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(string(from)), arrow, sanitizeMermaidID(string(edges[e]))))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(string(id))
			if !visited[safeID] && safeID != "" {
				visited[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentNode))))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
