// Package mcp connects agents to Model Context Protocol servers.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sortedstartup/ztr/internal/config"
)

// Service resolves the configured MCP servers and opens sessions on them.
type Service struct {
	cfg *config.Config
}

// New returns a Service for the servers in cfg.
func New(cfg *config.Config) *Service {
	return &Service{cfg: cfg}
}

// IsEnabled reports whether name is left out of the disable list.
// A "*" entry disables every server.
func (s *Service) IsEnabled(name string) bool {
	for _, d := range s.cfg.MCPDisable {
		if d == "*" || d == name {
			return false
		}
	}
	return true
}

// EnabledServers yields the enabled servers sorted by name.
func (s *Service) EnabledServers() iter.Seq2[string, config.MCPServerConfig] {
	return func(yield func(string, config.MCPServerConfig) bool) {
		for _, name := range slices.Sorted(maps.Keys(s.cfg.MCPServers)) {
			if s.IsEnabled(name) && !yield(name, s.cfg.MCPServers[name]) {
				return
			}
		}
	}
}

// Tools connects to every enabled server and returns its tools, keyed by
// server name. The connections are closed before returning.
func (s *Service) Tools(ctx context.Context) (map[string][]mcp.Tool, error) {
	var names []string
	for name := range s.EnabledServers() {
		names = append(names, name)
	}
	sess, err := s.Connect(ctx, names)
	if err != nil {
		return nil, err
	}
	defer sess.Close() //nolint:errcheck
	return sess.Tools(), nil
}

func (s *Service) server(name string) (config.MCPServerConfig, error) {
	server, ok := s.cfg.MCPServers[name]
	switch {
	case !ok:
		return server, fmt.Errorf("mcp: invalid server name: %q", name)
	case !s.IsEnabled(name):
		return server, fmt.Errorf("mcp: server is disabled: %q", name)
	}
	return server, nil
}

func newClient(cfg *config.Config, server config.MCPServerConfig) (*client.Client, error) {
	switch server.Type {
	case "", "stdio":
		env := server.Env
		if cfg != nil && !cfg.MCPNoInheritEnv {
			env = append(os.Environ(), server.Env...)
		}
		return client.NewStdioMCPClient(server.Command, env, server.Args...) //nolint:wrapcheck
	case "sse":
		return client.NewSSEMCPClient(server.URL) //nolint:wrapcheck
	case "http":
		return client.NewStreamableHttpClient(server.URL) //nolint:wrapcheck
	}
	return nil, fmt.Errorf("unsupported MCP server type: %q, supported types are: stdio, sse, http", server.Type)
}

// initClient starts a client and runs the protocol handshake. The handshake
// is bounded by the MCP timeout; the client itself lives on ctx so that
// streaming transports stay open for the rest of the run.
func initClient(ctx context.Context, cfg *config.Config, server config.MCPServerConfig) (*client.Client, error) {
	cli, err := newClient(cfg, server)
	if err != nil {
		return nil, fmt.Errorf("create MCP client: %w", err)
	}
	if err := cli.Start(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("start MCP client: %w", err)
	}

	hsCtx, cancel := withTimeout(ctx, cfg)
	defer cancel()
	if _, err := cli.Initialize(hsCtx, mcp.InitializeRequest{}); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("initialize MCP client: %w", err)
	}
	return cli, nil
}

func listTools(ctx context.Context, cfg *config.Config, name string, cli *client.Client) ([]mcp.Tool, error) {
	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()
	res, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools of %s: %w", name, err)
	}
	return res.Tools, nil
}

func callTool(ctx context.Context, cli *client.Client, tool string, data []byte) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	if len(data) > 0 {
		var args map[string]any
		if err := json.Unmarshal(data, &args); err != nil {
			return "", fmt.Errorf("mcp: bad arguments for %s: %w", tool, err)
		}
		req.Params.Arguments = args
	}

	res, err := cli.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp: call %s: %w", tool, err)
	}
	text := resultText(res.Content)
	if res.IsError {
		return "", errors.New(text)
	}
	return text, nil
}

// resultText flattens a tool result. Non-text parts become placeholders.
func resultText(contents []mcp.Content) string {
	parts := make([]string, 0, len(contents))
	for _, c := range contents {
		switch c := c.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		case mcp.ImageContent:
			parts = append(parts, "[Image content: "+c.MIMEType+"]")
		default:
			parts = append(parts, "[Non-text content]")
		}
	}
	return strings.Join(parts, "")
}

func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg == nil || cfg.MCPTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.MCPTimeout)
}
