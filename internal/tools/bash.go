package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// maxCommandOutput caps what a shell command can return to the model.
const maxCommandOutput = 64 << 10

// Bash runs a shell command. It is the most powerful builtin and should be
// guarded by an interactive or deny-by-default permission handler.
type Bash struct{}

var _ tool.Tool = (*Bash)(nil)

func (b *Bash) Name() string { return "bash" }

func (b *Bash) Description() string {
	return "Executes a bash command and returns its output. On failure the " +
		"exit code, stdout, and stderr are all reported."
}

func (b *Bash) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {
				"type": "string",
				"description": "The command to execute with bash -c"
			}
		},
		"required": ["command"]
	}`)
}

func (b *Bash) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(args.Command) == "" {
		return "", errors.New("missing 'command' field")
	}

	cmd := exec.CommandContext(ctx, "bash", "-c", args.Command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return "", fmt.Errorf("Exit code: %d\nStdout:\n%s\nStderr:\n%s",
				exitErr.ExitCode(), truncateOutput(stdout.String()), truncateOutput(stderr.String()))
		}
		return "", fmt.Errorf("cannot run command: %w", runErr)
	}

	out := truncateOutput(stdout.String())
	if out == "" {
		return "(no output)", nil
	}
	return out, nil
}

func truncateOutput(s string) string {
	if len(s) <= maxCommandOutput {
		return s
	}
	return s[:maxCommandOutput] + "\n... (output truncated)"
}
