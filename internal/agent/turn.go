package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/metrics"
	"github.com/SamuelSchlesinger/generalist/internal/provider"
	"github.com/SamuelSchlesinger/generalist/internal/security"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// Sentinel errors for turn termination.
var (
	ErrRoundLimit          = errors.New("agent: round limit exceeded")
	ErrLoopDetected        = errors.New("agent: loop detected")
	ErrTokenBudgetExceeded = errors.New("agent: token budget exceeded")
)

// Turn drives one conversation turn: a bounded loop of model requests and
// sequential tool executions until the model answers in plain text.
type Turn struct {
	provider provider.Provider
	registry *tool.Registry
	executor *executor
	config   Config
	logger   *slog.Logger
	audit    *security.AuditLogger
	metrics  *metrics.Metrics
}

// Options carries the turn's optional observability collaborators.
type Options struct {
	Logger  *slog.Logger
	Audit   *security.AuditLogger
	Metrics *metrics.Metrics
}

// New creates a Turn runner.
func New(p provider.Provider, registry *tool.Registry, cfg Config, opts Options) *Turn {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Turn{
		provider: p,
		registry: registry,
		executor: &executor{registry: registry},
		config:   cfg.withDefaults(),
		logger:   logger,
		audit:    opts.Audit,
		metrics:  opts.Metrics,
	}
}

// Run executes one turn. The caller's history is not mutated; everything
// the turn adds comes back in Result.Appended, valid to persist whatever
// the stop reason. A context.WithTimeout bounds the whole turn; if the
// caller's context carries a shorter deadline, the shorter one wins.
func (t *Turn) Run(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	t.audit.Log(security.AuditEvent{
		Type:   security.EventTurnStart,
		Detail: req.UserText,
	})

	detector := newLoopDetector(t.config.LoopThreshold)
	tracker := newTokenTracker(t.config.TokenBudget)

	userMsg := message.UserText(req.UserText)
	messages := append(slices.Clone(req.History), userMsg)

	result := Result{Appended: []message.Message{userMsg}}
	var textParts []string

	for round := 0; round < t.config.MaxRounds; round++ {
		// Cancellation is honored between rounds; an in-flight tool
		// execution is never interrupted retroactively.
		if err := ctx.Err(); err != nil {
			result.StopReason = StopCancelled
			return t.done(result, tracker, err)
		}

		if tracker.exceeded() {
			result.StopReason = StopTokenBudget
			return t.done(result, tracker, ErrTokenBudgetExceeded)
		}

		resp, err := t.provider.Send(ctx, provider.Request{
			System:   req.System,
			Messages: messages,
			Tools:    t.registry.Definitions(),
		})
		if err != nil {
			t.metrics.ObserveModelRequest("error")
			result.StopReason = StopError
			return t.done(result, tracker, fmt.Errorf("model request: %w", err))
		}
		t.metrics.ObserveModelRequest("ok")
		result.Rounds = round + 1
		tracker.add(resp.Usage)

		if text := resp.Message.Text(); text != "" {
			textParts = append(textParts, text)
		}

		uses := resp.Message.ToolUses()
		if len(uses) == 0 {
			messages = append(messages, resp.Message)
			result.Appended = append(result.Appended, resp.Message)
			result.Text = resp.Message.Text()
			result.StopReason = StopComplete
			return t.done(result, tracker, nil)
		}

		// Detect stuck loops before committing the assistant message so
		// history never carries a tool_use without its results.
		for _, use := range uses {
			if detector.record(use.Name, use.Input) {
				result.Text = strings.Join(textParts, "\n")
				result.StopReason = StopLoopDetected
				return t.done(result, tracker, ErrLoopDetected)
			}
		}

		messages = append(messages, resp.Message)
		result.Appended = append(result.Appended, resp.Message)

		records := t.executor.run(ctx, uses)
		result.ToolCalls = append(result.ToolCalls, records...)

		resultsMsg := resultsMessage(records)
		messages = append(messages, resultsMsg)
		result.Appended = append(result.Appended, resultsMsg)

		t.logger.Debug("round complete",
			"round", round+1,
			"tool_calls", len(records),
			"total_tokens", tracker.total().Total(),
		)
	}

	result.Text = strings.Join(textParts, "\n")
	result.StopReason = StopRoundLimit
	return t.done(result, tracker, fmt.Errorf("%w after %d rounds", ErrRoundLimit, t.config.MaxRounds))
}

func (t *Turn) done(result Result, tracker *tokenTracker, err error) (Result, error) {
	result.Usage = tracker.total()
	t.metrics.ObserveTurnRounds(result.Rounds)

	detail := string(result.StopReason)
	if err != nil {
		detail = fmt.Sprintf("%s: %v", result.StopReason, err)
	}
	t.audit.Log(security.AuditEvent{
		Type:   security.EventTurnComplete,
		Detail: detail,
		Metadata: map[string]string{
			"rounds":     fmt.Sprintf("%d", result.Rounds),
			"tool_calls": fmt.Sprintf("%d", len(result.ToolCalls)),
		},
	})
	return result, err
}
