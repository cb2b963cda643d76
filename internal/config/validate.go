package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validModes = map[PermissionMode]bool{
	PermissionInteractive: true,
	PermissionAllowAll:    true,
	PermissionDenyAll:     true,
	PermissionPolicy:      true,
}

// Validate checks the structural validity of a Config. All problems are
// reported at once via errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("config: log.level %q (want debug, info, warn, or error)", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format %q (want text or json)", c.Log.Format))
	}

	if !validModes[c.Tools.PermissionMode] {
		errs = append(errs, fmt.Errorf("config: tools.permission_mode %q is not a known mode", c.Tools.PermissionMode))
	}
	if c.Tools.PermissionMode == PermissionPolicy && len(c.Tools.Allowed) == 0 && !c.Tools.DefaultAllow {
		errs = append(errs, errors.New("config: policy mode with an empty allow list and default_allow false denies every tool"))
	}

	seen := make(map[string]bool, len(c.Tools.MCPServers))
	for i, srv := range c.Tools.MCPServers {
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("config: tools.mcp_servers[%d]: name is required", i))
		}
		if srv.Command == "" {
			errs = append(errs, fmt.Errorf("config: tools.mcp_servers[%d]: command is required", i))
		}
		if seen[srv.Name] {
			errs = append(errs, fmt.Errorf("config: tools.mcp_servers[%d]: duplicate name %q", i, srv.Name))
		}
		seen[srv.Name] = true
	}

	if c.Sessions.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("config: sessions.retention_days must be non-negative, got %d", c.Sessions.RetentionDays))
	}
	if c.Sessions.PruneSchedule != "" {
		if _, err := cron.ParseStandard(c.Sessions.PruneSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: sessions.prune_schedule: %w", err))
		}
	}

	return errors.Join(errs...)
}
