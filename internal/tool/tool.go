// Package tool defines the tool interface, the permission-decision system,
// and the execution registry. Tools are the security boundary of the agent:
// every capability the model reaches for goes through a registered tool, a
// permission decision, and an append-only execution record.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is the interface all capabilities must implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description, shown in permission
	// prompts and advertised to the model.
	Description() string

	// InputSchema returns a JSON Schema describing the tool's parameters.
	InputSchema() json.RawMessage

	// Execute runs the tool with schema-validated input and returns its
	// textual output. Errors are converted to Failed execution records at
	// the registry boundary; they never escape to the agent loop.
	Execute(ctx context.Context, input json.RawMessage) (string, error)
}

// Definition is the model-facing projection of a Tool: everything the model
// needs to propose an invocation, and nothing it could use to execute one.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Request identifies one model-proposed tool invocation. It is constructed
// once per proposal and never mutated.
type Request struct {
	// ID is the invocation id assigned by the model; the matching result
	// block must carry the same id.
	ID string

	// Name is the tool the model wants to invoke.
	Name string

	// Input is the raw JSON argument payload.
	Input json.RawMessage
}
