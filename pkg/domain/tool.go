package domain

// ToolUse is a request from the model to perform a side-effect.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// ToolResult is the outcome of applying a ToolUse against the sandbox.
type ToolResult struct {
	ID      string `json:"id"` // Must match the ToolUse.ID
	Content string `json:"content,omitempty"`
	IsError bool   `json:"is_error,omitempty"`

	// Completed marks the terminal signal: the model called the
	// completion tool and considers the task done. Evaluation still
	// gates this on validation before accepting it.
	Completed bool `json:"completed,omitempty"`
}

// ResultBlock wraps a ToolResult into a message content block.
func ResultBlock(res ToolResult) ContentBlock {
	r := res
	return ContentBlock{Type: BlockToolResult, ToolResult: &r}
}

// Tool describes a callable tool advertised to the gateway.
// The schema follows the JSON Schema subset the Messages API accepts.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}
