// Package message defines the conversation data model shared by the agent
// loop, the model provider, and the session store: ordered messages made of
// typed content blocks (text, tool use, tool result).
package message

import "encoding/json"

// Role identifies the sender of a message.
type Role string

// Role constants. Tool results travel inside user messages, mirroring the
// Messages API wire shape, so the role set is closed over these two values.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates the variant stored in a ContentBlock.
type BlockType string

// Supported block types.
const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is a flat union representing one piece of content inside a
// message. The Type field discriminates which fields are meaningful.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text, for BlockText.
	Text string `json:"text,omitempty"`

	// ID, Name, and Input, for BlockToolUse. ID is the invocation id the
	// model assigned; results must be matched back to it.
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// ToolUseID, Content, and IsError, for BlockToolResult.
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// NewTextBlock creates a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// NewToolUseBlock creates a tool-use content block.
func NewToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	cp := make(json.RawMessage, len(input))
	copy(cp, input)
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: cp}
}

// NewToolResultBlock creates a tool-result content block matched to a
// tool-use invocation id.
func NewToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// Message is one entry in a conversation: a role plus ordered content blocks.
// Block order is the order the sender emitted them and must be preserved.
type Message struct {
	Role   Role           `json:"role"`
	Blocks []ContentBlock `json:"content"`
}

// User creates a user message from the given blocks.
func User(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Blocks: blocks}
}

// Assistant creates an assistant message from the given blocks.
func Assistant(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Blocks: blocks}
}

// UserText creates a user message holding a single text block.
func UserText(text string) Message {
	return User(NewTextBlock(text))
}

// Text concatenates the text of all text blocks, separated by newlines.
func (m Message) Text() string {
	var result string
	for _, b := range m.Blocks {
		if b.Type == BlockText && b.Text != "" {
			if result != "" {
				result += "\n"
			}
			result += b.Text
		}
	}
	return result
}

// ToolUse is a tool invocation request extracted from a message.
type ToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolUses returns all tool-use blocks in emission order.
func (m Message) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse {
			uses = append(uses, ToolUse{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return uses
}

// HasToolUse reports whether the message contains any tool-use block.
func (m Message) HasToolUse() bool {
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse {
			return true
		}
	}
	return false
}
