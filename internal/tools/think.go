package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// Think gives the model scratch space for reasoning between tool calls. It
// has no side effects; the thought is echoed back so it lands in the
// conversation record.
type Think struct{}

var _ tool.Tool = (*Think)(nil)

func (t *Think) Name() string { return "think" }

func (t *Think) Description() string {
	return "Records a thought for step-by-step reasoning. Use this to plan " +
		"before acting or to reflect on intermediate results. Produces no " +
		"side effects."
}

func (t *Think) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"thought": {
				"type": "string",
				"description": "The thought to record"
			}
		},
		"required": ["thought"]
	}`)
}

func (t *Think) Execute(_ context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Thought string `json:"thought"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", errors.New(`invalid input: expected {"thought": "..."}`)
	}
	if strings.TrimSpace(args.Thought) == "" {
		return "", errors.New("missing 'thought' field")
	}
	return "Thought recorded: " + args.Thought, nil
}
