package tool

import (
	"encoding/json"
	"time"
)

// ExecutionState is the lifecycle state of one tool invocation.
type ExecutionState string

// Execution lifecycle states. Transitions only move forward:
// Pending → Denied, or Pending → Running → Completed | Failed.
const (
	StatePending   ExecutionState = "pending"
	StateDenied    ExecutionState = "denied"
	StateRunning   ExecutionState = "running"
	StateCompleted ExecutionState = "completed"
	StateFailed    ExecutionState = "failed"
)

// Execution tracks one tool invocation from proposal to terminal state.
// Records are owned by the registry's history and are never rewound: a
// terminal record (Denied, Completed, Failed) stays terminal. The tool is
// referenced by name only, so unregistering a tool does not invalidate
// earlier history entries.
type Execution struct {
	// ID is the invocation id from the originating Request.
	ID string `json:"id"`

	// ToolName references the tool by name.
	ToolName string `json:"tool_name"`

	// Input is the raw argument payload the invocation carried.
	Input json.RawMessage `json:"input"`

	// State is the current lifecycle state.
	State ExecutionState `json:"state"`

	// Output holds the result text for Completed executions.
	Output string `json:"output,omitempty"`

	// Error holds the failure or denial reason for Failed/Denied executions.
	Error string `json:"error,omitempty"`

	// StartedAt is when the invocation was accepted by the registry.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the invocation reached a terminal state.
	CompletedAt time.Time `json:"completed_at,omitzero"`

	now func() time.Time
}

// newExecution creates a Pending execution record for a request.
func newExecution(req Request, now func() time.Time) *Execution {
	if now == nil {
		now = time.Now
	}
	return &Execution{
		ID:        req.ID,
		ToolName:  req.Name,
		Input:     req.Input,
		State:     StatePending,
		StartedAt: now(),
		now:       now,
	}
}

// start transitions Pending → Running. No-op from any other state.
func (e *Execution) start() {
	if e.State != StatePending {
		return
	}
	e.State = StateRunning
	e.StartedAt = e.now()
}

// complete transitions Running → Completed with the tool's output.
func (e *Execution) complete(output string) {
	if e.State != StateRunning {
		return
	}
	e.State = StateCompleted
	e.Output = output
	e.CompletedAt = e.now()
}

// fail transitions Running → Failed with the failure reason.
func (e *Execution) fail(reason string) {
	if e.State != StateRunning {
		return
	}
	e.State = StateFailed
	e.Error = reason
	e.CompletedAt = e.now()
}

// deny transitions Pending → Denied with the denial reason.
func (e *Execution) deny(reason string) {
	if e.State != StatePending {
		return
	}
	e.State = StateDenied
	e.Error = reason
	e.CompletedAt = e.now()
}

// Finished reports whether the execution reached a terminal state.
func (e *Execution) Finished() bool {
	switch e.State {
	case StateCompleted, StateFailed, StateDenied:
		return true
	default:
		return false
	}
}

// Duration returns the wall-clock time from start to terminal state,
// or zero if the execution is still in flight.
func (e *Execution) Duration() time.Duration {
	if e.CompletedAt.IsZero() {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// Stats summarises execution history counts by terminal outcome.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Denied    int `json:"denied"`
	Running   int `json:"running"`
}
