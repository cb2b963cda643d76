// Package mcp bridges Model Context Protocol servers into the tool
// registry. Each remote tool is registered as "<server>__<tool>" so names
// from different servers cannot collide, and every invocation still goes
// through the registry's permission and audit path.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/SamuelSchlesinger/generalist/internal/config"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

const (
	clientName     = "generalist"
	clientVersion  = "1.0.0"
	connectTimeout = 15 * time.Second
)

// Server is a connected MCP server whose tools can be registered.
type Server struct {
	name   string
	client *client.Client
	tools  []tool.Tool
}

// Dial starts the configured stdio server, initializes the session, and
// lists its tools.
func Dial(ctx context.Context, cfg config.MCPServerConfig) (*Server, error) {
	env := make([]string, 0, len(cfg.Env))
	env = append(env, cfg.Env...)
	c, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: start %s: %w", cfg.Name, err)
	}

	srv, err := connect(ctx, cfg.Name, c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return srv, nil
}

// connect initializes an already-started client and enumerates its tools.
// Split from Dial so tests can use an in-process transport.
func connect(ctx context.Context, name string, c *client.Client) (*Server, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpproto.Implementation{Name: clientName, Version: clientVersion}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("mcp: initialize %s: %w", name, err)
	}

	listed, err := c.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools on %s: %w", name, err)
	}

	srv := &Server{name: name, client: c}
	for _, remote := range listed.Tools {
		schema, err := json.Marshal(remote.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcp: schema for %s on %s: %w", remote.Name, name, err)
		}
		srv.tools = append(srv.tools, &remoteTool{
			server:      srv,
			remoteName:  remote.Name,
			description: remote.Description,
			schema:      schema,
		})
	}
	return srv, nil
}

// Name returns the configured server name.
func (s *Server) Name() string { return s.name }

// Tools returns the server's tools, ready for registration.
func (s *Server) Tools() []tool.Tool { return s.tools }

// Close terminates the server session.
func (s *Server) Close() error { return s.client.Close() }

type remoteTool struct {
	server      *Server
	remoteName  string
	description string
	schema      json.RawMessage
}

var _ tool.Tool = (*remoteTool)(nil)

func (t *remoteTool) Name() string {
	return t.server.name + "__" + t.remoteName
}

func (t *remoteTool) Description() string {
	if t.description == "" {
		return fmt.Sprintf("Tool %s provided by the %s MCP server", t.remoteName, t.server.name)
	}
	return t.description
}

func (t *remoteTool) InputSchema() json.RawMessage { return t.schema }

func (t *remoteTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args map[string]any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = t.remoteName
	req.Params.Arguments = args

	res, err := t.server.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp call failed: %w", err)
	}

	text := flattenContent(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

func flattenContent(blocks []mcpproto.Content) string {
	var parts []string
	for _, block := range blocks {
		if tc, ok := block.(mcpproto.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// RegisterServers dials every configured server and registers its tools.
// A server that fails to start is logged and skipped so one broken entry
// does not take down the whole tool surface. The returned closer shuts
// down every session that did connect.
func RegisterServers(ctx context.Context, registry *tool.Registry, cfgs []config.MCPServerConfig, logger *slog.Logger) (func(), error) {
	var servers []*Server
	closer := func() {
		for _, s := range servers {
			if err := s.Close(); err != nil {
				logger.Warn("mcp server close failed", "server", s.Name(), "error", err)
			}
		}
	}

	for _, cfg := range cfgs {
		srv, err := Dial(ctx, cfg)
		if err != nil {
			logger.Warn("mcp server unavailable", "server", cfg.Name, "error", err)
			continue
		}
		if err := registerAll(registry, srv); err != nil {
			_ = srv.Close()
			closer()
			return nil, err
		}
		servers = append(servers, srv)
		logger.Info("mcp server connected", "server", srv.Name(), "tools", len(srv.Tools()))
	}
	return closer, nil
}

func registerAll(registry *tool.Registry, srv *Server) error {
	for _, t := range srv.Tools() {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("mcp: register %s: %w", t.Name(), err)
		}
	}
	return nil
}
