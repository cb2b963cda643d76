// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/SamuelSchlesinger/generalist/internal/agent"
	"github.com/SamuelSchlesinger/generalist/internal/provider/anthropic"
)

// Config is the top-level configuration structure.
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Provider  anthropic.Config `yaml:"provider"`
	Agent     agent.Config     `yaml:"agent"`
	Tools     ToolsConfig      `yaml:"tools"`
	Sessions  SessionsConfig   `yaml:"sessions"`
	Admin     AdminConfig      `yaml:"admin"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Audit     AuditConfig      `yaml:"audit"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// PermissionMode selects the permission handler for tool execution.
type PermissionMode string

// Permission modes.
const (
	PermissionInteractive PermissionMode = "interactive"
	PermissionAllowAll    PermissionMode = "allow_all"
	PermissionDenyAll     PermissionMode = "deny_all"
	PermissionPolicy      PermissionMode = "policy"
)

// ToolsConfig controls tool registration and permissions.
type ToolsConfig struct {
	// PermissionMode selects how invocations are authorized.
	// Defaults to interactive.
	PermissionMode PermissionMode `yaml:"permission_mode"`

	// Allowed is the allow list consulted in policy mode.
	Allowed []string `yaml:"allowed"`

	// DefaultAllow is the policy-mode decision for tools outside the list.
	DefaultAllow bool `yaml:"default_allow"`

	// Timeout bounds each tool body.
	Timeout time.Duration `yaml:"timeout"`

	// WorkspaceRoot confines the file tools. Defaults to the working
	// directory.
	WorkspaceRoot string `yaml:"workspace_root"`

	// MCPServers lists MCP servers whose tools are registered alongside
	// the builtins.
	MCPServers []MCPServerConfig `yaml:"mcp_servers"`
}

// MCPServerConfig describes one stdio MCP server.
type MCPServerConfig struct {
	// Name namespaces the server's tools as name__tool.
	Name string `yaml:"name"`

	// Command is the executable to spawn.
	Command string `yaml:"command"`

	// Args are passed to the command.
	Args []string `yaml:"args"`

	// Env entries (KEY=VALUE) are added to the server's environment.
	Env []string `yaml:"env"`
}

// SessionsConfig controls session persistence.
type SessionsConfig struct {
	// Path is the SQLite database file. Defaults to
	// ~/.generalist/sessions.db.
	Path string `yaml:"path"`

	// RetentionDays prunes sessions untouched for this many days.
	// Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for the retention job.
	PruneSchedule string `yaml:"prune_schedule"`
}

// AdminConfig controls the local observability HTTP surface.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// TelemetryConfig controls OpenTelemetry trace export.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector address. Empty disables
	// export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	ServiceName string `yaml:"service_name"`
}

// AuditConfig controls the JSONL audit log.
type AuditConfig struct {
	// Path is the audit log file. Empty disables auditing.
	Path string `yaml:"path"`
}

// Defaults fills zero-value fields with working defaults.
func (c *Config) Defaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Tools.PermissionMode == "" {
		c.Tools.PermissionMode = PermissionInteractive
	}
	if c.Tools.Timeout <= 0 {
		c.Tools.Timeout = 60 * time.Second
	}
	if c.Tools.WorkspaceRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			c.Tools.WorkspaceRoot = wd
		}
	}
	if c.Sessions.Path == "" {
		c.Sessions.Path = filepath.Join(dataDir(), "sessions.db")
	}
	if c.Sessions.PruneSchedule == "" {
		c.Sessions.PruneSchedule = "0 3 * * *"
	}
	if c.Admin.Listen == "" {
		c.Admin.Listen = "127.0.0.1:8321"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "generalist"
	}
}

// dataDir is where state lives by default.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".generalist"
	}
	return filepath.Join(home, ".generalist")
}
