package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// maxReadBytes caps how much of a file the model can pull into context.
const maxReadBytes = 1 << 20

// ReadFile returns the contents of a text file inside the workspace.
type ReadFile struct {
	root string
}

var _ tool.Tool = (*ReadFile)(nil)

func (r *ReadFile) Name() string { return "read_file" }

func (r *ReadFile) Description() string {
	return "Reads the contents of a text file. Paths are relative to the " +
		"workspace root."
}

func (r *ReadFile) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "Path of the file to read"
			}
		},
		"required": ["path"]
	}`)
}

func (r *ReadFile) Execute(_ context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	path, err := resolvePath(r.root, args.Path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", args.Path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, use list_directory instead", args.Path)
	}
	if info.Size() > maxReadBytes {
		return "", fmt.Errorf("%s is %d bytes, larger than the %d byte limit", args.Path, info.Size(), maxReadBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", args.Path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", args.Path)
	}
	return string(data), nil
}
