package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SamuelSchlesinger/generalist/internal/metrics"
	"github.com/SamuelSchlesinger/generalist/internal/security"
)

// defaultExecutionTimeout bounds a single tool body. A hung body is marked
// Failed("timeout") and a result is synthesized so the model is not blocked.
const defaultExecutionTimeout = 60 * time.Second

// Result is the outcome of one registry execution, shaped for re-injection
// into the conversation as a tool-result block.
type Result struct {
	// Content is the textual output shown to the model.
	Content string

	// IsError marks the content as describing a failure or denial.
	IsError bool
}

// RegistryConfig holds the registry's collaborators.
type RegistryConfig struct {
	// Handler is the permission authority consulted before every execution.
	// Defaults to AllowAll when nil, matching non-interactive trusted runs.
	Handler Handler

	// Grants is the sticky per-session decision store, consulted before the
	// handler. Nil disables stickiness.
	Grants *Grants

	// Timeout bounds each tool body. Zero selects the default.
	Timeout time.Duration

	// Audit receives tool_call / permission / tool_result events. Optional.
	Audit *security.AuditLogger

	// Metrics receives execution observations. Optional.
	Metrics *metrics.Metrics

	// Now overrides time.Now for execution timestamps in tests.
	Now func() time.Time
}

// Registry owns the set of registered tools, routes every invocation through
// the permission system, and keeps the append-only execution history.
// It is instance-based (not global) for better testability.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	history []*Execution
	handler Handler
	grants  *Grants
	timeout time.Duration
	audit   *security.AuditLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRegistry creates an empty registry from cfg.
func NewRegistry(cfg RegistryConfig) *Registry {
	handler := cfg.Handler
	if handler == nil {
		handler = AllowAll{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		tools:   make(map[string]Tool),
		handler: handler,
		grants:  cfg.Grants,
		timeout: timeout,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
		now:     now,
	}
}

// SetHandler replaces the permission authority. Intended for session setup
// (e.g. switching between interactive and policy modes), not mid-turn use.
func (r *Registry) SetHandler(h Handler) {
	if h == nil {
		h = AllowAll{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// Register adds a tool. It returns ErrEmptyToolName for blank names and
// ErrDuplicateTool when the name is taken; the first registration is kept.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Definitions returns the model-facing projections of all registered tools
// in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{
			Name:        name,
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// History returns a snapshot of the execution history in invocation order.
func (r *Registry) History() []Execution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Execution, len(r.history))
	for i, e := range r.history {
		out[i] = *e
	}
	return out
}

// ExecutionStats summarises history counts by outcome.
func (r *Registry) ExecutionStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.history)}
	for _, e := range r.history {
		switch e.State {
		case StateCompleted:
			stats.Completed++
		case StateFailed:
			stats.Failed++
		case StateDenied:
			stats.Denied++
		case StateRunning:
			stats.Running++
		}
	}
	return stats
}

// Execute runs one model-proposed invocation: lookup → schema validation →
// permission resolution (sticky grant first, then handler) → timeout-bounded
// execution with panic recovery. Exactly one Execution record is appended to
// history per call, whatever the outcome. The returned error wraps the
// package sentinel for the failure mode; callers that feed the model convert
// it to result text rather than aborting the turn.
func (r *Registry) Execute(ctx context.Context, req Request) (Result, error) {
	ctx, span := otel.Tracer("generalist/tool").Start(ctx, "tool.execute")
	span.SetAttributes(
		attribute.String("tool.name", req.Name),
		attribute.String("tool.invocation_id", req.ID),
	)
	defer span.End()

	exec := newExecution(req, r.now)

	r.audit.Log(security.AuditEvent{
		Type:     security.EventToolCall,
		ToolName: req.Name,
		Detail:   truncateForAudit(string(req.Input)),
		Metadata: map[string]string{"invocation_id": req.ID},
	})

	t, err := r.Get(req.Name)
	if err != nil {
		r.finish(exec, span, func() { exec.start(); exec.fail(err.Error()) }, "unknown_tool", err.Error())
		return Result{}, err
	}

	if err := validateInput(t.InputSchema(), req.Input); err != nil {
		r.finish(exec, span, func() { exec.start(); exec.fail(err.Error()) }, "schema_violation", err.Error())
		return Result{}, err
	}

	decision := r.resolvePermission(ctx, req, t)
	if !decision.Allowed {
		err := fmt.Errorf("%w: %s (%s)", ErrDenied, req.Name, decision.Reason)
		r.finish(exec, span, func() { exec.deny(decision.Reason) }, "denied", decision.Reason)
		return Result{}, err
	}

	exec.start()
	output, execErr := r.runBody(ctx, t, req.Input)

	switch {
	case execErr == nil:
		r.finish(exec, span, func() { exec.complete(output) }, "completed", output)
		return Result{Content: output}, nil
	case ctx.Err() == nil && isTimeout(execErr):
		err := fmt.Errorf("%w: %s", ErrExecutionTimeout, req.Name)
		r.finish(exec, span, func() { exec.fail("timeout") }, "timeout", "timeout")
		return Result{}, err
	default:
		r.finish(exec, span, func() { exec.fail(execErr.Error()) }, "failed", execErr.Error())
		return Result{}, fmt.Errorf("tool %s: %w", req.Name, execErr)
	}
}

// resolvePermission applies the sticky-grant-first resolution order. A
// handler error or panic is never an allowance.
func (r *Registry) resolvePermission(ctx context.Context, req Request, t Tool) (decision Decision) {
	if r.grants != nil {
		if grant, ok := r.grants.Get(req.Name); ok {
			switch grant {
			case GrantAlwaysAllow:
				r.auditDecision(req, Allow(), "sticky grant")
				return Allow()
			case GrantAlwaysDeny:
				d := Deny("tool was previously set to never allow")
				r.auditDecision(req, d, "sticky grant")
				return d
			}
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			decision = Deny(fmt.Sprintf("permission handler panic: %v", rec))
			r.auditDecision(req, decision, "handler")
		}
	}()

	r.mu.RLock()
	handler := r.handler
	r.mu.RUnlock()

	def := Definition{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()}
	d, err := handler.Decide(ctx, req, def)
	if err != nil {
		d = Deny("permission handler error: " + err.Error())
	}
	r.auditDecision(req, d, "handler")
	return d
}

func (r *Registry) auditDecision(req Request, d Decision, source string) {
	detail := "allowed"
	if !d.Allowed {
		detail = "denied: " + d.Reason
	}
	r.audit.Log(security.AuditEvent{
		Type:     security.EventPermission,
		ToolName: req.Name,
		Detail:   detail,
		Metadata: map[string]string{"source": source, "invocation_id": req.ID},
	})
}

// runBody executes the tool body under the per-invocation timeout, catching
// panics so a misbehaving tool cannot take down the turn.
func (r *Registry) runBody(ctx context.Context, t Tool, input json.RawMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type bodyResult struct {
		output string
		err    error
	}
	done := make(chan bodyResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- bodyResult{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		output, err := t.Execute(ctx, input)
		done <- bodyResult{output: output, err: err}
	}()

	select {
	case res := <-done:
		return res.output, res.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return "", context.DeadlineExceeded
		}
		return "", ctx.Err()
	}
}

func isTimeout(err error) bool {
	return err == context.DeadlineExceeded
}

// finish applies the terminal transition, appends the record to history,
// and emits audit, metric, and trace observations.
func (r *Registry) finish(exec *Execution, span trace.Span, transition func(), outcome, detail string) {
	transition()

	r.mu.Lock()
	r.history = append(r.history, exec)
	r.mu.Unlock()

	r.audit.Log(security.AuditEvent{
		Type:     security.EventToolResult,
		ToolName: exec.ToolName,
		Detail:   truncateForAudit(detail),
		Metadata: map[string]string{
			"invocation_id": exec.ID,
			"outcome":       outcome,
		},
	})

	r.metrics.ObserveToolExecution(exec.ToolName, outcome, exec.Duration().Seconds())

	span.SetAttributes(attribute.String("tool.outcome", outcome))
	if outcome == "completed" {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, outcome)
	}
}

// maxAuditDetailLen caps audit detail strings so large tool outputs do not
// bloat the log.
const maxAuditDetailLen = 4096

// truncateForAudit shortens s to maxAuditDetailLen, walking back to a valid
// UTF-8 rune boundary so multi-byte characters are never split.
func truncateForAudit(s string) string {
	if len(s) <= maxAuditDetailLen {
		return s
	}
	i := maxAuditDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
