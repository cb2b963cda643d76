// Package provider defines the model-provider abstraction the agent loop
// talks to. Concrete implementations live in subpackages (e.g.
// provider/anthropic).
package provider

import "context"

// Provider is the interface for communicating with a language model.
type Provider interface {
	// Send submits a conversation and returns the model's next message.
	// The response carries the assistant message verbatim, including any
	// tool_use blocks, so the caller can replay it into history unchanged.
	Send(ctx context.Context, req Request) (Response, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string

	// ContextWindowSize returns the maximum context window in tokens.
	ContextWindowSize() int
}

// HealthChecker is an optional interface providers may implement to support
// active probing, e.g. from the admin surface.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
