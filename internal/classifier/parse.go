package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Verdict actions.
const (
	ActionTool      = "tool"
	ActionEscalate  = "escalate"
	ActionRetrieval = "rag"
	ActionDirect    = "direct"
)

var (
	ErrMalformed       = errors.New("malformed verdict")
	ErrMissingAction   = errors.New("verdict has no action")
	ErrMissingToolName = errors.New("tool verdict has no tool_name")
)

// Verdict is the JSON object the completion service is asked to return.
type Verdict struct {
	Action        string         `json:"action"`
	ToolName      string         `json:"tool_name,omitempty"`
	ToolArgs      map[string]any `json:"tool_args,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Response      string         `json:"response,omitempty"`
	ContextNeeded bool           `json:"context_needed,omitempty"`
}

// Parse decodes a verdict after trimming whitespace and code-fence markers.
func Parse(content string) (Verdict, error) {
	var v Verdict
	if err := json.Unmarshal([]byte(StripFences(content)), &v); err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if v.Action == "" {
		return Verdict{}, ErrMissingAction
	}
	if v.Action == ActionTool && v.ToolName == "" {
		return Verdict{}, ErrMissingToolName
	}
	return v, nil
}

// StripFences removes a leading "```json" and a trailing "```".
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func outermostObject(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}
