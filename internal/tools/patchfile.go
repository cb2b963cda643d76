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

// PatchFile applies a unified diff to a single file via the system patch
// utility. The diff must target exactly the named file.
type PatchFile struct {
	root string
}

var _ tool.Tool = (*PatchFile)(nil)

func (p *PatchFile) Name() string { return "patch_file" }

func (p *PatchFile) Description() string {
	return "Applies a unified diff to a file. Provide the target path and " +
		"the diff text; the diff is applied with the system patch utility."
}

func (p *PatchFile) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "Path of the file to patch"
			},
			"diff": {
				"type": "string",
				"description": "Unified diff to apply"
			}
		},
		"required": ["path", "diff"]
	}`)
}

func (p *PatchFile) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Path string `json:"path"`
		Diff string `json:"diff"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(args.Diff) == "" {
		return "", errors.New("missing 'diff' field")
	}

	path, err := resolvePath(p.root, args.Path)
	if err != nil {
		return "", err
	}

	if _, err := exec.LookPath("patch"); err != nil {
		return "", errors.New("the patch utility is not installed")
	}

	diff := args.Diff
	if !strings.HasSuffix(diff, "\n") {
		diff += "\n"
	}

	cmd := exec.CommandContext(ctx, "patch", "-u", "--no-backup-if-mismatch", path)
	cmd.Stdin = strings.NewReader(diff)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("patch failed for %s: %s", args.Path, msg)
	}
	return fmt.Sprintf("Patched %s", args.Path), nil
}
