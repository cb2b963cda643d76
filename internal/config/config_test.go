package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("provider:\n  model: claude-sonnet-4-5-20250929\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
	if cfg.Tools.PermissionMode != PermissionInteractive {
		t.Errorf("permission mode = %q", cfg.Tools.PermissionMode)
	}
	if cfg.Tools.Timeout != 60*time.Second {
		t.Errorf("tool timeout = %v", cfg.Tools.Timeout)
	}
	if cfg.Sessions.Path == "" {
		t.Error("sessions path not defaulted")
	}
}

func TestParseEnvExpansion(t *testing.T) {
	t.Setenv("GENERALIST_TEST_MODEL", "claude-opus-4-1")

	cfg, err := Parse([]byte(
		"provider:\n" +
			"  model: ${GENERALIST_TEST_MODEL}\n" +
			"  api_key: ${GENERALIST_TEST_MISSING:-fallback-key}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Provider.Model != "claude-opus-4-1" {
		t.Errorf("model = %q", cfg.Provider.Model)
	}
	if cfg.Provider.APIKey != "fallback-key" {
		t.Errorf("api_key = %q", cfg.Provider.APIKey)
	}
}

func TestParseUnresolvedVariable(t *testing.T) {
	_, err := Parse([]byte("provider:\n  api_key: ${GENERALIST_TEST_DEFINITELY_UNSET}\n"))
	if err == nil || !strings.Contains(err.Error(), "GENERALIST_TEST_DEFINITELY_UNSET") {
		t.Fatalf("expected unresolved-variable error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad log level", "log:\n  level: verbose\n", "log.level"},
		{"bad permission mode", "tools:\n  permission_mode: yolo\n", "permission_mode"},
		{"lockout policy", "tools:\n  permission_mode: policy\n", "denies every tool"},
		{"mcp missing command", "tools:\n  mcp_servers:\n    - name: files\n", "command is required"},
		{"bad cron", "sessions:\n  prune_schedule: not-cron\n", "prune_schedule"},
		{"negative retention", "sessions:\n  retention_days: -1\n", "retention_days"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateDuplicateMCPNames(t *testing.T) {
	_, err := Parse([]byte(
		"tools:\n" +
			"  mcp_servers:\n" +
			"    - name: files\n" +
			"      command: mcp-files\n" +
			"    - name: files\n" +
			"      command: mcp-files-2\n"))
	if err == nil || !strings.Contains(err.Error(), "duplicate name") {
		t.Fatalf("expected duplicate-name error, got %v", err)
	}
}
