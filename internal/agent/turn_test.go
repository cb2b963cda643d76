package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/provider"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// scriptedProvider returns canned responses in order and records every
// request it receives.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []provider.Response
	err       error
	requests  []provider.Request
}

func (p *scriptedProvider) Send(_ context.Context, req provider.Request) (provider.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.err != nil {
		return provider.Response{}, p.err
	}
	if len(p.responses) == 0 {
		return provider.Response{}, errors.New("script exhausted")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) ModelName() string      { return "scripted" }
func (p *scriptedProvider) ContextWindowSize() int { return 200_000 }

type trackingTool struct {
	name    string
	execute func(ctx context.Context, input json.RawMessage) (string, error)
}

func (t *trackingTool) Name() string        { return t.name }
func (t *trackingTool) Description() string { return t.name }
func (t *trackingTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object"}`)
}
func (t *trackingTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	return t.execute(ctx, input)
}

func textResponse(text string) provider.Response {
	return provider.Response{
		Message:    message.Assistant(message.NewTextBlock(text)),
		StopReason: provider.StopEndTurn,
		Usage:      provider.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
}

func toolUseResponse(blocks ...message.ContentBlock) provider.Response {
	return provider.Response{
		Message:    message.Assistant(blocks...),
		StopReason: provider.StopToolUse,
		Usage:      provider.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
}

func newTurn(t *testing.T, p provider.Provider, registry *tool.Registry, cfg Config) *Turn {
	t.Helper()
	if registry == nil {
		registry = tool.NewRegistry(tool.RegistryConfig{})
	}
	return New(p, registry, cfg, Options{})
}

func TestRunPlainTextTurn(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []provider.Response{textResponse("Hello there!")}}
	turn := newTurn(t, p, nil, Config{})

	res, err := turn.Run(context.Background(), Request{UserText: "Hi"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Text != "Hello there!" {
		t.Errorf("text = %q", res.Text)
	}
	if res.StopReason != StopComplete {
		t.Errorf("stop = %q", res.StopReason)
	}
	if res.Rounds != 1 {
		t.Errorf("rounds = %d, want 1", res.Rounds)
	}
	// user message + assistant message.
	if len(res.Appended) != 2 {
		t.Fatalf("appended = %d messages, want 2", len(res.Appended))
	}
	if res.Appended[0].Role != message.RoleUser || res.Appended[1].Role != message.RoleAssistant {
		t.Errorf("unexpected roles %s, %s", res.Appended[0].Role, res.Appended[1].Role)
	}
}

func TestRunEmptyAssistantMessageCompletes(t *testing.T) {
	t.Parallel()

	// A model response with no content blocks ends the turn as a final
	// empty answer rather than looping for another round.
	p := &scriptedProvider{responses: []provider.Response{{
		Message:    message.Assistant(),
		StopReason: provider.StopEndTurn,
		Usage:      provider.TokenUsage{InputTokens: 8, OutputTokens: 1},
	}}}
	turn := newTurn(t, p, nil, Config{})

	res, err := turn.Run(context.Background(), Request{UserText: "Hi"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Text != "" {
		t.Errorf("text = %q, want empty", res.Text)
	}
	if res.StopReason != StopComplete {
		t.Errorf("stop = %q, want complete", res.StopReason)
	}
	if res.Rounds != 1 {
		t.Errorf("rounds = %d, want 1", res.Rounds)
	}
	if len(res.Appended) != 2 {
		t.Fatalf("appended = %d messages, want 2", len(res.Appended))
	}
}

func TestRunToolRoundThenAnswer(t *testing.T) {
	t.Parallel()

	registry := tool.NewRegistry(tool.RegistryConfig{})
	calc := &trackingTool{
		name: "calculator",
		execute: func(_ context.Context, _ json.RawMessage) (string, error) {
			return "4", nil
		},
	}
	if err := registry.Register(calc); err != nil {
		t.Fatalf("register: %v", err)
	}

	p := &scriptedProvider{responses: []provider.Response{
		toolUseResponse(
			message.NewTextBlock("Let me work that out."),
			message.NewToolUseBlock("toolu_1", "calculator", json.RawMessage(`{"expression":"2+2"}`)),
		),
		textResponse("The answer is 4."),
	}}
	turn := newTurn(t, p, registry, Config{})

	res, err := turn.Run(context.Background(), Request{UserText: "What is 2+2?"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Text != "The answer is 4." {
		t.Errorf("text = %q", res.Text)
	}
	if res.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", res.Rounds)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Content != "4" {
		t.Fatalf("tool calls = %+v", res.ToolCalls)
	}

	// user, assistant(tool_use), user(tool_result), assistant(text).
	if len(res.Appended) != 4 {
		t.Fatalf("appended = %d messages, want 4", len(res.Appended))
	}
	results := res.Appended[2]
	if results.Role != message.RoleUser || results.Blocks[0].Type != message.BlockToolResult {
		t.Errorf("third appended message is not a tool-result user message: %+v", results)
	}
	if results.Blocks[0].ToolUseID != "toolu_1" {
		t.Errorf("tool result id = %q", results.Blocks[0].ToolUseID)
	}

	// The second model request must replay the assistant message verbatim.
	second := p.requests[1]
	if len(second.Messages) != 3 {
		t.Fatalf("second request carries %d messages, want 3", len(second.Messages))
	}
	if !second.Messages[1].HasToolUse() {
		t.Error("assistant tool_use blocks were not replayed")
	}
}

func TestRunSequentialExecutionOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var store string

	registry := tool.NewRegistry(tool.RegistryConfig{})
	write := &trackingTool{
		name: "write_value",
		execute: func(_ context.Context, input json.RawMessage) (string, error) {
			var args struct {
				Value string `json:"value"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", err
			}
			mu.Lock()
			store = args.Value
			mu.Unlock()
			return "written", nil
		},
	}
	read := &trackingTool{
		name: "read_value",
		execute: func(_ context.Context, _ json.RawMessage) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			return store, nil
		},
	}
	if err := registry.Register(write); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(read); err != nil {
		t.Fatalf("register: %v", err)
	}

	p := &scriptedProvider{responses: []provider.Response{
		toolUseResponse(
			message.NewToolUseBlock("toolu_1", "write_value", json.RawMessage(`{"value":"sequential"}`)),
			message.NewToolUseBlock("toolu_2", "read_value", json.RawMessage(`{}`)),
		),
		textResponse("done"),
	}}
	turn := newTurn(t, p, registry, Config{})

	res, err := turn.Run(context.Background(), Request{UserText: "write then read"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(res.ToolCalls))
	}
	// The read executes after the write and must observe its effect.
	if res.ToolCalls[1].Content != "sequential" {
		t.Errorf("read observed %q, want value written earlier in the round", res.ToolCalls[1].Content)
	}
}

func TestRunToolFailureBecomesErrorResult(t *testing.T) {
	t.Parallel()

	registry := tool.NewRegistry(tool.RegistryConfig{})
	broken := &trackingTool{
		name: "http_fetch",
		execute: func(_ context.Context, _ json.RawMessage) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	if err := registry.Register(broken); err != nil {
		t.Fatalf("register: %v", err)
	}

	p := &scriptedProvider{responses: []provider.Response{
		toolUseResponse(message.NewToolUseBlock("toolu_1", "http_fetch", json.RawMessage(`{}`))),
		textResponse("I could not fetch that."),
	}}
	turn := newTurn(t, p, registry, Config{})

	res, err := turn.Run(context.Background(), Request{UserText: "fetch"})
	if err != nil {
		t.Fatalf("a tool failure must not abort the turn: %v", err)
	}
	if len(res.ToolCalls) != 1 || !res.ToolCalls[0].IsError {
		t.Fatalf("tool calls = %+v", res.ToolCalls)
	}
	if !strings.Contains(res.ToolCalls[0].Content, "connection refused") {
		t.Errorf("error result %q lacks failure reason", res.ToolCalls[0].Content)
	}

	// The error result must have been replayed to the model.
	second := p.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Blocks[0].Type != message.BlockToolResult || !last.Blocks[0].IsError {
		t.Errorf("error result not re-injected: %+v", last)
	}
}

func TestRunUnknownToolBecomesErrorResult(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []provider.Response{
		toolUseResponse(message.NewToolUseBlock("toolu_1", "no_such_tool", json.RawMessage(`{}`))),
		textResponse("That tool does not exist."),
	}}
	turn := newTurn(t, p, nil, Config{})

	res, err := turn.Run(context.Background(), Request{UserText: "go"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.ToolCalls) != 1 || !res.ToolCalls[0].IsError {
		t.Fatalf("tool calls = %+v", res.ToolCalls)
	}
}

func TestRunRoundLimitReturnsPartialText(t *testing.T) {
	t.Parallel()

	registry := tool.NewRegistry(tool.RegistryConfig{})
	counter := 0
	tick := &trackingTool{
		name: "tick",
		execute: func(_ context.Context, _ json.RawMessage) (string, error) {
			counter++
			return fmt.Sprintf("tick %d", counter), nil
		},
	}
	if err := registry.Register(tick); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Each round proposes a fresh input so the loop detector stays quiet.
	var responses []provider.Response
	for i := 0; i < 3; i++ {
		responses = append(responses, toolUseResponse(
			message.NewTextBlock(fmt.Sprintf("thinking %d", i+1)),
			message.NewToolUseBlock(fmt.Sprintf("toolu_%d", i+1), "tick", json.RawMessage(fmt.Sprintf(`{"n":%d}`, i+1))),
		))
	}
	p := &scriptedProvider{responses: responses}
	turn := newTurn(t, p, registry, Config{MaxRounds: 3})

	res, err := turn.Run(context.Background(), Request{UserText: "loop"})
	if !errors.Is(err, ErrRoundLimit) {
		t.Fatalf("expected ErrRoundLimit, got %v", err)
	}
	if res.StopReason != StopRoundLimit {
		t.Errorf("stop = %q", res.StopReason)
	}
	if res.Rounds != 3 {
		t.Errorf("rounds = %d, want 3", res.Rounds)
	}
	if !strings.Contains(res.Text, "thinking 1") || !strings.Contains(res.Text, "thinking 3") {
		t.Errorf("partial text %q missing accumulated rounds", res.Text)
	}
	// 1 user + 3 × (assistant + tool results); no orphan tool_use at the end.
	if len(res.Appended) != 7 {
		t.Fatalf("appended = %d messages, want 7", len(res.Appended))
	}
	last := res.Appended[len(res.Appended)-1]
	if last.Role != message.RoleUser || last.Blocks[0].Type != message.BlockToolResult {
		t.Errorf("history ends with %+v, want tool results", last)
	}
}

func TestRunLoopDetection(t *testing.T) {
	t.Parallel()

	registry := tool.NewRegistry(tool.RegistryConfig{})
	tick := &trackingTool{
		name: "tick",
		execute: func(_ context.Context, _ json.RawMessage) (string, error) {
			return "tick", nil
		},
	}
	if err := registry.Register(tick); err != nil {
		t.Fatalf("register: %v", err)
	}

	same := func(id string) provider.Response {
		return toolUseResponse(message.NewToolUseBlock(id, "tick", json.RawMessage(`{"n":1}`)))
	}
	p := &scriptedProvider{responses: []provider.Response{same("a"), same("b"), same("c"), same("d")}}
	turn := newTurn(t, p, registry, Config{LoopThreshold: 3})

	res, err := turn.Run(context.Background(), Request{UserText: "loop"})
	if !errors.Is(err, ErrLoopDetected) {
		t.Fatalf("expected ErrLoopDetected, got %v", err)
	}
	if res.StopReason != StopLoopDetected {
		t.Errorf("stop = %q", res.StopReason)
	}
	// The detected round's assistant message is not committed, so history
	// carries no tool_use without results.
	last := res.Appended[len(res.Appended)-1]
	if last.HasToolUse() {
		t.Error("orphan tool_use message left in history")
	}
}

func TestRunTokenBudget(t *testing.T) {
	t.Parallel()

	registry := tool.NewRegistry(tool.RegistryConfig{})
	tick := &trackingTool{
		name: "tick",
		execute: func(_ context.Context, _ json.RawMessage) (string, error) {
			return "tick", nil
		},
	}
	if err := registry.Register(tick); err != nil {
		t.Fatalf("register: %v", err)
	}

	var responses []provider.Response
	for i := 0; i < 5; i++ {
		responses = append(responses, toolUseResponse(
			message.NewToolUseBlock(fmt.Sprintf("toolu_%d", i), "tick", json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))),
		))
	}
	p := &scriptedProvider{responses: responses}
	// Each round consumes 15 tokens; a 30-token budget stops after 2 rounds.
	turn := newTurn(t, p, registry, Config{TokenBudget: 30})

	res, err := turn.Run(context.Background(), Request{UserText: "go"})
	if !errors.Is(err, ErrTokenBudgetExceeded) {
		t.Fatalf("expected ErrTokenBudgetExceeded, got %v", err)
	}
	if res.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", res.Rounds)
	}
	if res.Usage.Total() != 30 {
		t.Errorf("usage = %d, want 30", res.Usage.Total())
	}
}

func TestRunCancelledBetweenRounds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	registry := tool.NewRegistry(tool.RegistryConfig{})
	stop := &trackingTool{
		name: "stop",
		execute: func(_ context.Context, _ json.RawMessage) (string, error) {
			cancel()
			return "stopped", nil
		},
	}
	if err := registry.Register(stop); err != nil {
		t.Fatalf("register: %v", err)
	}

	p := &scriptedProvider{responses: []provider.Response{
		toolUseResponse(message.NewToolUseBlock("toolu_1", "stop", json.RawMessage(`{}`))),
		textResponse("should never be requested"),
	}}
	turn := newTurn(t, p, registry, Config{})

	res, err := turn.Run(ctx, Request{UserText: "go"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.StopReason != StopCancelled {
		t.Errorf("stop = %q", res.StopReason)
	}
	// The in-flight round was recorded before the turn stopped.
	if len(res.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", res.ToolCalls)
	}
	if len(p.requests) != 1 {
		t.Errorf("model requested %d times after cancel, want 1", len(p.requests))
	}
}

func TestRunProviderError(t *testing.T) {
	t.Parallel()

	provErr := errors.New("api down")
	p := &scriptedProvider{err: provErr}
	turn := newTurn(t, p, nil, Config{})

	res, err := turn.Run(context.Background(), Request{UserText: "hi"})
	if !errors.Is(err, provErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if res.StopReason != StopError {
		t.Errorf("stop = %q", res.StopReason)
	}
	// The user message is still returned so the caller can decide whether
	// to persist or retry.
	if len(res.Appended) != 1 {
		t.Errorf("appended = %d, want just the user message", len(res.Appended))
	}
}

func TestRunHistoryNotMutated(t *testing.T) {
	t.Parallel()

	history := []message.Message{
		message.UserText("earlier"),
		message.Assistant(message.NewTextBlock("earlier reply")),
	}
	p := &scriptedProvider{responses: []provider.Response{textResponse("hi")}}
	turn := newTurn(t, p, nil, Config{})

	if _, err := turn.Run(context.Background(), Request{History: history, UserText: "now"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("caller history mutated: %d messages", len(history))
	}

	// The provider saw history + new user message.
	if len(p.requests[0].Messages) != 3 {
		t.Errorf("request carried %d messages, want 3", len(p.requests[0].Messages))
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedProvider{responses: []provider.Response{textResponse("hi")}}
	turn := newTurn(t, p, nil, Config{})

	res, err := turn.Run(ctx, Request{UserText: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.StopReason != StopCancelled {
		t.Errorf("stop = %q", res.StopReason)
	}
	if len(p.requests) != 0 {
		t.Errorf("model requested %d times on a dead context", len(p.requests))
	}
}
