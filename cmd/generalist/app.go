package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SamuelSchlesinger/generalist/internal/admin"
	"github.com/SamuelSchlesinger/generalist/internal/agent"
	"github.com/SamuelSchlesinger/generalist/internal/config"
	"github.com/SamuelSchlesinger/generalist/internal/maintenance"
	"github.com/SamuelSchlesinger/generalist/internal/metrics"
	"github.com/SamuelSchlesinger/generalist/internal/provider/anthropic"
	"github.com/SamuelSchlesinger/generalist/internal/security"
	"github.com/SamuelSchlesinger/generalist/internal/session"
	"github.com/SamuelSchlesinger/generalist/internal/telemetry"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
	"github.com/SamuelSchlesinger/generalist/internal/tools"
	"github.com/SamuelSchlesinger/generalist/internal/tools/mcp"
)

// app holds the wired components of a running instance.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	audit    *security.AuditLogger
	grants   *tool.Grants
	registry *tool.Registry
	provider *anthropic.Client
	turn     *agent.Turn
	store    session.Store

	adminSrv     *admin.Server
	scheduler    *maintenance.Scheduler
	mcpClose     func()
	auditFile    *os.File
	otelShutdown func(context.Context) error
}

// buildApp wires every component from config. prompter may be nil when the
// permission mode does not need one.
func buildApp(ctx context.Context, cfg *config.Config, prompter tool.Prompter) (*app, error) {
	redactor := security.NewRedactor()
	if cfg.Provider.APIKey != "" {
		redactor.AddLiteral(cfg.Provider.APIKey)
	}
	logger := buildLogger(cfg.Log, redactor)

	a := &app{cfg: cfg, logger: logger, grants: tool.NewGrants()}

	if cfg.Audit.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Audit.Path), 0o700); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Audit.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.auditFile = f
		a.audit = security.NewAuditLogger(security.AuditLoggerConfig{
			Writer:   f,
			Redactor: redactor,
		})
	}

	otelShutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.otelShutdown = otelShutdown

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	handler, err := buildHandler(cfg.Tools, prompter, a.grants)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.registry = tool.NewRegistry(tool.RegistryConfig{
		Handler: handler,
		Grants:  a.grants,
		Timeout: cfg.Tools.Timeout,
		Audit:   a.audit,
		Metrics: m,
	})
	if err := tools.RegisterBuiltins(a.registry, tools.Config{
		WorkspaceRoot: cfg.Tools.WorkspaceRoot,
	}); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if len(cfg.Tools.MCPServers) > 0 {
		closer, err := mcp.RegisterServers(ctx, a.registry, cfg.Tools.MCPServers, logger)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.mcpClose = closer
	}

	a.provider, err = anthropic.New(cfg.Provider, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.turn = agent.New(a.provider, a.registry, cfg.Agent, agent.Options{
		Logger:  logger,
		Audit:   a.audit,
		Metrics: m,
	})

	a.store, err = session.OpenSQLite(cfg.Sessions.Path)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	if cfg.Admin.Enabled {
		a.adminSrv = admin.New(admin.Config{
			Addr:     cfg.Admin.Listen,
			Registry: a.registry,
			Sessions: a.store,
			Gatherer: promReg,
			Logger:   logger,
		})
		if err := a.adminSrv.Start(); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	if cfg.Sessions.RetentionDays > 0 {
		a.scheduler = maintenance.NewScheduler(logger)
		job := &maintenance.RetentionJob{
			Store:        a.store,
			Retention:    time.Duration(cfg.Sessions.RetentionDays) * 24 * time.Hour,
			Logger:       logger,
			ScheduleExpr: cfg.Sessions.PruneSchedule,
		}
		if err := a.scheduler.RegisterJob(job); err != nil {
			a.Close(ctx)
			return nil, err
		}
		if err := a.scheduler.Start(); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	return a, nil
}

// Close releases every component that was wired, tolerating a partially
// built app.
func (a *app) Close(ctx context.Context) {
	if a.scheduler != nil {
		_ = a.scheduler.Stop(ctx)
	}
	if a.adminSrv != nil {
		_ = a.adminSrv.Stop(ctx)
	}
	if a.mcpClose != nil {
		a.mcpClose()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.auditFile != nil {
		_ = a.auditFile.Close()
	}
}

// buildHandler maps the configured permission mode onto a handler.
func buildHandler(cfg config.ToolsConfig, prompter tool.Prompter, grants *tool.Grants) (tool.Handler, error) {
	switch cfg.PermissionMode {
	case config.PermissionAllowAll:
		return tool.AllowAll{}, nil
	case config.PermissionDenyAll:
		return tool.DenyAll{}, nil
	case config.PermissionPolicy:
		return tool.NewPolicy(cfg.Allowed, cfg.DefaultAllow), nil
	case config.PermissionInteractive, "":
		if prompter == nil {
			// Non-interactive commands never execute tools; deny keeps
			// them safe if one ever does.
			return tool.DenyAll{}, nil
		}
		return tool.NewInteractive(prompter, grants), nil
	default:
		return nil, fmt.Errorf("unknown permission mode %q", cfg.PermissionMode)
	}
}

func buildLogger(cfg config.LogConfig, redactor *security.Redactor) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		inner = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}
