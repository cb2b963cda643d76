// Package tools provides the builtin tool set: calculation, time, shell,
// filesystem, HTTP, and a persistent todo list. Every tool re-validates
// its own input even though the registry schema-checks first; the tool
// body is the final authority on its arguments.
package tools

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// Config carries the shared dependencies of the builtin tools.
type Config struct {
	// WorkspaceRoot confines the file tools and anchors the todo file.
	// Empty means no confinement.
	WorkspaceRoot string

	// HTTPClient is shared by the network tools. Defaults to a client
	// with a 30s timeout.
	HTTPClient *http.Client

	// Now overrides time.Now in tests.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// RegisterBuiltins registers the full builtin tool set.
func RegisterBuiltins(registry *tool.Registry, cfg Config) error {
	cfg.defaults()

	builtins := []tool.Tool{
		&Calculator{},
		&SystemInfo{now: cfg.Now},
		&Think{},
		&ReadFile{root: cfg.WorkspaceRoot},
		&ListDirectory{root: cfg.WorkspaceRoot},
		&PatchFile{root: cfg.WorkspaceRoot},
		&Bash{},
		&HTTPFetch{client: cfg.HTTPClient},
		NewWeather(cfg.HTTPClient),
		NewWikipedia(cfg.HTTPClient),
		NewTodo(cfg.WorkspaceRoot),
		NewMemory(cfg.WorkspaceRoot),
	}

	for _, t := range builtins {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("tools: register %s: %w", t.Name(), err)
		}
	}
	return nil
}
