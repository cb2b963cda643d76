package provider

import (
	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// StopReason describes why the model stopped generating.
type StopReason string

// StopReason constants for model completion termination.
const (
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
	StopToolUse   StopReason = "tool_use"
	StopRefusal   StopReason = "refusal"
)

// Request is the input to a Provider.Send call. The system prompt travels
// out of band from the message history; history roles are only user and
// assistant, with tool results embedded as user-message blocks.
type Request struct {
	System      string            `json:"system,omitempty"`
	Messages    []message.Message `json:"messages"`
	Tools       []tool.Definition `json:"tools,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
}

// Response is the output of a Provider.Send call.
type Response struct {
	// Message is the assistant message exactly as the model produced it,
	// text and tool_use blocks interleaved in model order.
	Message message.Message `json:"message"`

	// StopReason is why generation ended.
	StopReason StopReason `json:"stop_reason"`

	// Usage tracks token consumption for this request.
	Usage TokenUsage `json:"usage"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage from another completion, e.g. across the rounds of
// a single turn.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns combined input and output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
