package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	mmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/config"
	imcp "github.com/sortedstartup/ztr/internal/mcp"
	"github.com/sortedstartup/ztr/internal/present"
	"github.com/sortedstartup/ztr/internal/recipe"
)

func newMCPCmd(rt *runtime) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server integration",
	}

	mcpCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers and the agents using them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			mcpList(cmd.OutOrStdout(), &rt.cfg)
			return nil
		},
	})

	mcpCmd.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "List tools from enabled MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), rt.cfg.MCPTimeout)
			defer cancel()
			return mcpListTools(ctx, cmd.OutOrStdout(), &rt.cfg)
		},
	})

	return mcpCmd
}

func mcpList(w io.Writer, cfg *config.Config) {
	svc := imcp.New(cfg)
	users := map[string][]string{}
	for _, d := range recipe.All(cfg) {
		for _, s := range d.MCPServers {
			users[s] = append(users[s], d.Name)
		}
	}
	styles := present.StdoutStyles()
	for _, name := range slices.Sorted(maps.Keys(cfg.MCPServers)) {
		s := name
		if svc.IsEnabled(name) {
			s += styles.Timeago.Render(" (enabled)")
		}
		if agents := users[name]; len(agents) > 0 {
			s += styles.Comment.Render(" used by " + strings.Join(agents, ", "))
		}
		_, _ = fmt.Fprintln(w, s)
	}
}

func mcpListTools(ctx context.Context, w io.Writer, cfg *config.Config) error {
	svc := imcp.New(cfg)
	servers, err := svc.Tools(ctx)
	if err != nil {
		return fmt.Errorf("mcp list tools: %w", err)
	}

	styles := present.StdoutStyles()
	for _, sname := range slices.Sorted(maps.Keys(servers)) {
		tools := servers[sname]
		slices.SortFunc(tools, func(a, b mmcp.Tool) int { return strings.Compare(a.Name, b.Name) })
		for _, tool := range tools {
			_, _ = fmt.Fprint(w, styles.Timeago.Render(sname+" > "))
			_, _ = fmt.Fprintln(w, tool.Name)
		}
	}
	return nil
}
