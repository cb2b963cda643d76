package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// ListDirectory lists the entries of a directory inside the workspace,
// directories first, each group sorted by name.
type ListDirectory struct {
	root string
}

var _ tool.Tool = (*ListDirectory)(nil)

func (l *ListDirectory) Name() string { return "list_directory" }

func (l *ListDirectory) Description() string {
	return "Lists the entries of a directory. Paths are relative to the " +
		"workspace root; '.' lists the root itself."
}

func (l *ListDirectory) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "Path of the directory to list"
			}
		},
		"required": ["path"]
	}`)
}

func (l *ListDirectory) Execute(_ context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	path, err := resolvePath(l.root, args.Path)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("cannot list %s: %w", args.Path, err)
	}
	if len(entries) == 0 {
		return fmt.Sprintf("%s is empty", args.Path), nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			b.WriteString("[DIR]  ")
		} else {
			b.WriteString("[FILE] ")
		}
		b.WriteString(e.Name())
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
