package tools

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var errOutsideWorkspace = errors.New("path escapes the workspace root")

// resolvePath cleans p and, when a workspace root is configured, confines it
// to that root: relative paths resolve under the root, and any path that
// lexically escapes the root is rejected. With no root, relative paths
// resolve against the process working directory.
func resolvePath(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("empty path")
	}
	if root == "" {
		return filepath.Clean(p), nil
	}

	resolved := p
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(root, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errOutsideWorkspace, p)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideWorkspace, p)
	}
	return resolved, nil
}
