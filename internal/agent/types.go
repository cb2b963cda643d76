// Package agent implements the conversation turn loop: user input goes in,
// the model reasons and invokes tools over bounded rounds, and a final
// assistant text comes out.
package agent

import (
	"encoding/json"
	"time"

	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/provider"
)

// StopReason describes why a turn terminated.
type StopReason string

// StopReason constants for turn termination.
const (
	StopComplete     StopReason = "complete"
	StopRoundLimit   StopReason = "round_limit"
	StopLoopDetected StopReason = "loop_detected"
	StopTokenBudget  StopReason = "token_budget"
	StopCancelled    StopReason = "cancelled"
	StopError        StopReason = "error"
)

// ToolCallRecord tracks one tool invocation made during a turn.
type ToolCallRecord struct {
	ID       string
	Name     string
	Input    json.RawMessage
	Content  string
	IsError  bool
	Duration time.Duration
}

// Request is the input to one conversation turn.
type Request struct {
	// History is the prior conversation, oldest first. The turn does not
	// mutate it.
	History []message.Message

	// UserText is the new user input for this turn.
	UserText string

	// System is the system prompt, carried out of band from history.
	System string
}

// Result is the output of one conversation turn.
type Result struct {
	// Text is the model's final reply. On a round-limit stop it holds the
	// text accumulated so far, marked partial by StopReason.
	Text string

	// Appended is every message this turn added, in order: the user
	// message, then alternating assistant / tool-result messages. The
	// caller appends these to its conversation state whatever the stop
	// reason, so persisted history never loses a round that ran.
	Appended []message.Message

	// ToolCalls records every tool invocation in execution order.
	ToolCalls []ToolCallRecord

	// Rounds is the number of model requests made.
	Rounds int

	// Usage is cumulative token consumption across all rounds.
	Usage provider.TokenUsage

	// StopReason is why the turn ended.
	StopReason StopReason
}
