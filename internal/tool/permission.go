package tool

import (
	"context"
	"errors"
	"time"
)

// Decision is the outcome of a permission check for one invocation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the affirmative permission decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny blocks the invocation with an explanatory reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Handler decides whether a tool invocation may proceed. Implementations
// must be safe for sequential reuse across a session; the registry consults
// them on its single-threaded resolution path.
type Handler interface {
	// Decide evaluates one request against this handler's policy. The
	// definition carries the tool's description for human-facing prompts.
	// A returned error is treated as a denial, never as an allowance.
	Decide(ctx context.Context, req Request, def Definition) (Decision, error)
}

// AllowAll permits every invocation. Used for trusted, non-interactive runs.
type AllowAll struct{}

// Decide implements Handler.
func (AllowAll) Decide(context.Context, Request, Definition) (Decision, error) {
	return Allow(), nil
}

// DenyAll blocks every invocation.
type DenyAll struct{}

// Decide implements Handler.
func (DenyAll) Decide(context.Context, Request, Definition) (Decision, error) {
	return Deny("policy"), nil
}

// Policy allows invocations of tools in an explicit allow set and applies a
// default decision to everything else. Deterministic and side-effect free.
type Policy struct {
	allowed      map[string]struct{}
	defaultAllow bool
}

// NewPolicy builds a Policy from an allow list and a default decision for
// tools outside the list.
func NewPolicy(allowed []string, defaultAllow bool) Policy {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return Policy{allowed: set, defaultAllow: defaultAllow}
}

// Decide implements Handler.
func (p Policy) Decide(_ context.Context, req Request, _ Definition) (Decision, error) {
	if _, ok := p.allowed[req.Name]; ok {
		return Allow(), nil
	}
	if p.defaultAllow {
		return Allow(), nil
	}
	return Deny("tool " + req.Name + " is not in the allowed tools list"), nil
}

// Answer is a human response to an interactive permission prompt.
type Answer string

// Prompt answers. The Always variants additionally record a sticky grant so
// later invocations of the same tool skip the prompt.
const (
	AnswerAllowAlways Answer = "allow_always"
	AnswerAllowOnce   Answer = "allow_once"
	AnswerDenyAlways  Answer = "deny_always"
	AnswerDenyOnce    Answer = "deny_once"
)

// Prompter presents a permission request to a human and blocks until they
// answer. Implementations provide the UX (terminal select, chat buttons).
type Prompter interface {
	Ask(ctx context.Context, req Request, def Definition) (Answer, error)
}

// Interactive consults a Prompter for every request that reaches it and
// translates the four-way answer into a decision plus an optional sticky
// grant, recorded through the grants store.
type Interactive struct {
	prompter Prompter
	grants   *Grants
	timeout  time.Duration
}

// defaultApprovalTimeout caps how long an unanswered prompt blocks a turn.
const defaultApprovalTimeout = 2 * time.Minute

// NewInteractive creates an interactive handler. grants may be nil, in which
// case Always answers degrade to their Once equivalents.
func NewInteractive(prompter Prompter, grants *Grants) *Interactive {
	return &Interactive{prompter: prompter, grants: grants, timeout: defaultApprovalTimeout}
}

// Decide implements Handler. A prompt left unanswered past the approval
// timeout denies the invocation rather than hanging the turn.
func (h *Interactive) Decide(ctx context.Context, req Request, def Definition) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	answer, err := h.prompter.Ask(ctx, req, def)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Deny("permission prompt timed out"), nil
		}
		return Decision{}, err
	}

	switch answer {
	case AnswerAllowAlways:
		if h.grants != nil {
			h.grants.Set(req.Name, GrantAlwaysAllow)
		}
		return Allow(), nil
	case AnswerAllowOnce:
		return Allow(), nil
	case AnswerDenyAlways:
		if h.grants != nil {
			h.grants.Set(req.Name, GrantAlwaysDeny)
		}
		return Deny("user chose to never allow this tool"), nil
	case AnswerDenyOnce:
		return Deny("user denied this invocation"), nil
	default:
		return Deny("unrecognized prompt answer: " + string(answer)), nil
	}
}

// AuditSink receives one entry per permission decision made by a Logging
// handler.
type AuditSink interface {
	RecordDecision(toolName string, input []byte, decision Decision)
}

// Logging wraps another handler, recording every request/decision pair to an
// audit sink before forwarding the delegate's decision unchanged.
type Logging struct {
	delegate Handler
	sink     AuditSink
}

// NewLogging creates a logging handler around delegate.
func NewLogging(delegate Handler, sink AuditSink) *Logging {
	return &Logging{delegate: delegate, sink: sink}
}

// Decide implements Handler.
func (h *Logging) Decide(ctx context.Context, req Request, def Definition) (Decision, error) {
	decision, err := h.delegate.Decide(ctx, req, def)
	if err != nil {
		// Record the denial the registry will synthesize from this error.
		if h.sink != nil {
			h.sink.RecordDecision(req.Name, req.Input, Deny("permission handler error: "+err.Error()))
		}
		return decision, err
	}
	if h.sink != nil {
		h.sink.RecordDecision(req.Name, req.Input, decision)
	}
	return decision, err
}
