package tool

import "errors"

var (
	// ErrEmptyToolName is returned when registering a tool with an empty name.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool whose name is
	// already taken. The first registration wins.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrToolNotFound is returned when a requested tool is not in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrSchemaViolation is returned when an invocation's input does not
	// satisfy the tool's input schema.
	ErrSchemaViolation = errors.New("input does not match tool schema")

	// ErrDenied is returned when a permission decision blocks an invocation.
	ErrDenied = errors.New("tool execution denied")

	// ErrExecutionTimeout marks an invocation whose body exceeded the
	// per-invocation timeout bound.
	ErrExecutionTimeout = errors.New("tool execution timed out")
)
