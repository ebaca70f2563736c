package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/schema"
)

// EscalateTool is the capability reserved for the workflow's escalate node.
// It is never offered to the classifier.
const EscalateTool = "escalate_to_human"

// BuildPrompt renders the system prompt: one JSON template per advertised tool,
// the rag/escalate/direct actions and the current time in loc.
func BuildPrompt(tools []capability.Capability, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	var b strings.Builder
	b.WriteString("You are an AI support agent. Analyze the query and return a JSON response.\n")
	b.WriteString("For each query, respond with ONLY a JSON object following these formats:\n\n")

	for _, t := range tools {
		if t.Name() == EscalateTool {
			continue
		}
		fmt.Fprintf(&b, "%s (%s):\n", t.Name(), t.Description())
		fmt.Fprintf(&b, `{"action": "tool", "tool_name": %q, "tool_args": %s}`+"\n", t.Name(), argsTemplate(t.Schema()))
		if len(t.Schema()) > 0 {
			raw, err := json.Marshal(t.Schema())
			if err == nil {
				fmt.Fprintf(&b, "Argument types: %s\n", raw)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("For product questions:\n")
	b.WriteString(`{"action": "rag", "context_needed": true}` + "\n\n")
	b.WriteString("For escalation:\n")
	b.WriteString(`{"action": "escalate", "reason": "<REASON>"}` + "\n\n")
	b.WriteString("For general conversation:\n")
	b.WriteString(`{"action": "direct", "response": "<YOUR_RESPONSE>"}` + "\n\n")

	fmt.Fprintf(&b, "Current time (%s): %s\n", loc.String(), local.Format(time.RFC3339))
	fmt.Fprintf(&b, "Tomorrow (%s): %s\n\n", loc.String(), local.AddDate(0, 0, 1).Format(time.RFC3339))
	b.WriteString("RESPOND WITH VALID JSON ONLY. NO OTHER TEXT.")
	return b.String()
}

// argsTemplate renders {"field": "<FIELD>", ...} with declared defaults inlined.
func argsTemplate(s schema.Schema) string {
	parts := make([]string, 0, len(s))
	for _, key := range s.Keys() {
		if def, ok := schema.DefaultOf(s[key]); ok {
			raw, err := json.Marshal(def)
			if err == nil {
				parts = append(parts, fmt.Sprintf("%q: %s", key, raw))
				continue
			}
		}
		parts = append(parts, fmt.Sprintf("%q: \"<%s>\"", key, strings.ToUpper(key)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
