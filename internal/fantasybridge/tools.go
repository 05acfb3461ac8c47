package fantasybridge

import (
	"context"
	"fmt"

	"charm.land/fantasy"
	"github.com/mark3labs/mcp-go/mcp"
)

// Caller calls a tool on a connected MCP server.
type Caller interface {
	Call(ctx context.Context, server, tool string, data []byte) (string, error)
}

type mcpTool struct {
	fantasy.AgentTool

	info   fantasy.ToolInfo
	server string
	tool   string
	caller Caller
}

func (t *mcpTool) Info() fantasy.ToolInfo { return t.info }

func (t *mcpTool) Run(ctx context.Context, call fantasy.ToolCall) (fantasy.ToolResponse, error) {
	out, err := t.caller.Call(ctx, t.server, t.tool, []byte(call.Input))
	if err != nil {
		return fantasy.NewTextErrorResponse(err.Error()), nil
	}
	return fantasy.NewTextResponse(out), nil
}

// MCPTools exposes the tools of each MCP server as agent tools named
// "<server>_<tool>". Calls are routed through caller.
func MCPTools(caller Caller, servers map[string][]mcp.Tool) []fantasy.AgentTool {
	var tools []fantasy.AgentTool
	for server, list := range servers {
		for _, tool := range list {
			name := fmt.Sprintf("%s_%s", server, tool.Name)
			base := fantasy.NewAgentTool(name, tool.Description,
				func(context.Context, struct{}, fantasy.ToolCall) (fantasy.ToolResponse, error) {
					return fantasy.NewTextErrorResponse("not callable"), nil
				})
			params := tool.InputSchema.Properties
			if params == nil {
				params = map[string]any{}
			}
			tools = append(tools, &mcpTool{
				AgentTool: base,
				info: fantasy.ToolInfo{
					Name:        name,
					Description: tool.Description,
					Parameters:  params,
					Required:    tool.InputSchema.Required,
				},
				server: server,
				tool:   tool.Name,
				caller: caller,
			})
		}
	}
	return tools
}
