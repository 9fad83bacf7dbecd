package domain

// Message roles. Only two are exchanged with the gateway: the model's
// turns come back as RoleAssistant, everything fed to it is RoleUser.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Block kinds inside a message.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock is a single unit of message content: prose, a tool
// invocation requested by the model, or the result fed back to it.
// Exactly one of the optional fields is populated, selected by Type.
type ContentBlock struct {
	Type string `json:"type"`

	// Text is set when Type == BlockText.
	Text string `json:"text,omitempty"`

	// ToolUse is set when Type == BlockToolUse.
	ToolUse *ToolUse `json:"tool_use,omitempty"`

	// ToolResult is set when Type == BlockToolResult.
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// TextBlock builds a plain text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// Message is one turn of the conversation driven by the search engine.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserText builds a single-block user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// ToolUses collects the tool invocations requested in this message,
// preserving their order of appearance.
func (m Message) ToolUses() []*ToolUse {
	var uses []*ToolUse
	for _, block := range m.Content {
		if block.Type == BlockToolUse && block.ToolUse != nil {
			uses = append(uses, block.ToolUse)
		}
	}
	return uses
}

// JoinedText concatenates the text blocks of the message.
func (m Message) JoinedText() string {
	out := ""
	for _, block := range m.Content {
		if block.Type == BlockText {
			if out != "" {
				out += "\n"
			}
			out += block.Text
		}
	}
	return out
}
