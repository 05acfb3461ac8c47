package mcp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
)

// Session keeps one connected client per server for the length of an agent
// run, so stateful servers (a browser, a shell) see every call of the run.
type Session struct {
	mu      sync.Mutex
	clients map[string]*client.Client
	tools   map[string][]mcp.Tool
}

// Connect starts a client for each named server and lists its tools.
// Servers that are unknown or disabled are an error: an agent asking for
// them cannot do its job without them.
func (s *Service) Connect(ctx context.Context, names []string) (*Session, error) {
	sess := &Session{
		clients: map[string]*client.Client{},
		tools:   map[string][]mcp.Tool{},
	}
	names = slices.Compact(slices.Sorted(slices.Values(names)))
	servers := make([]config.MCPServerConfig, len(names))
	for i, name := range names {
		server, err := s.server(name)
		if err != nil {
			return nil, errs.Wrapf(err, "MCP server %q is not available.", name)
		}
		servers[i] = server
	}

	var wg errgroup.Group
	for i, name := range names {
		server := servers[i]
		wg.Go(func() error {
			cli, err := initClient(ctx, s.cfg, server)
			if err != nil {
				return s.wrapSetupErr(name, err)
			}
			tools, err := listTools(ctx, s.cfg, name, cli)
			if err != nil {
				_ = cli.Close()
				return s.wrapSetupErr(name, err)
			}
			sess.mu.Lock()
			sess.clients[name] = cli
			sess.tools[name] = tools
			sess.mu.Unlock()
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("mcp connect: %w", err)
	}
	return sess, nil
}

func (s *Service) wrapSetupErr(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(
			fmt.Errorf("timeout while connecting to %q - make sure the server is running and reachable", name),
			"Could not connect to MCP server",
		)
	}
	return errs.Wrap(err, "Could not connect to MCP server")
}

// Tools returns the tools of every connected server.
func (ss *Session) Tools() map[string][]mcp.Tool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	out := make(map[string][]mcp.Tool, len(ss.tools))
	for name, tools := range ss.tools {
		out[name] = slices.Clone(tools)
	}
	return out
}

// Call runs a tool on a connected server. data is the JSON argument object.
func (ss *Session) Call(ctx context.Context, server, tool string, data []byte) (string, error) {
	ss.mu.Lock()
	cli, ok := ss.clients[server]
	ss.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("mcp: server not connected: %q", server)
	}
	return callTool(ctx, cli, tool, data)
}

// Close disconnects every client.
func (ss *Session) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	var all []error
	for name, cli := range ss.clients {
		if err := cli.Close(); err != nil {
			all = append(all, fmt.Errorf("close %s: %w", name, err))
		}
		delete(ss.clients, name)
	}
	return errors.Join(all...)
}
