// Package escalation decides, after a reply was generated, whether the turn
// should be handed off to a human.
package escalation

import (
	"strings"
	"unicode/utf8"
)

// Rule identifies which check produced an evaluation.
type Rule string

const (
	RuleTrackingKeyword Rule = "tracking_keyword"
	RuleShortQuery      Rule = "short_query"
	RuleShortResponse   Rule = "short_response"
	RuleDefault         Rule = "default"
)

// Evaluation is the outcome of scoring a query/response pair.
type Evaluation struct {
	Score           float64 `json:"score"`
	NeedsEscalation bool    `json:"needs_escalation"`
	Rule            Rule    `json:"rule"`
}

// Policy holds the thresholds of the escalation checks.
// The checks run in a fixed order and the first match wins.
type Policy struct {
	// Keywords mark order/status/tracking queries, which are never escalated.
	Keywords []string
	// MinQueryTokens: queries with fewer whitespace-separated tokens are never escalated.
	MinQueryTokens int
	// MinResponseLength: trimmed responses with fewer runes are escalated.
	MinResponseLength int

	HighConfidence     float64
	LowConfidence      float64
	ModerateConfidence float64
}

// DefaultPolicy is the policy used by the workflow.
var DefaultPolicy = Policy{
	Keywords:           []string{"order", "status", "track"},
	MinQueryTokens:     3,
	MinResponseLength:  20,
	HighConfidence:     0.9,
	LowConfidence:      0.4,
	ModerateConfidence: 0.8,
}

// Evaluate scores a query/response pair with DefaultPolicy.
func Evaluate(query, response string) Evaluation {
	return DefaultPolicy.Evaluate(query, response)
}

// Evaluate scores a query/response pair.
func (p Policy) Evaluate(query, response string) Evaluation {
	lower := strings.ToLower(query)
	for _, kw := range p.Keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return Evaluation{Score: p.HighConfidence, Rule: RuleTrackingKeyword}
		}
	}

	if len(strings.Fields(query)) < p.MinQueryTokens {
		return Evaluation{Score: p.HighConfidence, Rule: RuleShortQuery}
	}

	if utf8.RuneCountInString(strings.TrimSpace(response)) < p.MinResponseLength {
		return Evaluation{Score: p.LowConfidence, NeedsEscalation: true, Rule: RuleShortResponse}
	}

	return Evaluation{Score: p.ModerateConfidence, Rule: RuleDefault}
}
