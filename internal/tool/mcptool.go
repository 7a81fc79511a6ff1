package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/internal/mcp"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const mcpToolDescription = `Invokes a tool exposed by a connected MCP server.

Usage:
- server is required: the name the MCP server was registered under
- tool is required: the tool name as reported by that server
- arguments is the tool's JSON input, passed through unmodified`

// McpToolInput is the input for the mcp_tool tool.
type McpToolInput struct {
	Server    string          `json:"server"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// McpTool dispatches to a sub-tool exposed by a connected MCP server,
// letting the driver reach capabilities outside the fixed 14-tool
// table without the orchestrator knowing about them ahead of time.
type McpTool struct {
	client *mcp.Client
}

// NewMcpTool creates a new mcp_tool tool.
func NewMcpTool(client *mcp.Client) *McpTool {
	return &McpTool{client: client}
}

func (t *McpTool) ID() string          { return string(types.ToolMcpTool) }
func (t *McpTool) Description() string { return mcpToolDescription }

func (t *McpTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"server": {
				"type": "string",
				"description": "Name of the connected MCP server"
			},
			"tool": {
				"type": "string",
				"description": "Tool name exposed by that server"
			},
			"arguments": {
				"type": "object",
				"description": "Arguments to pass to the MCP tool"
			}
		},
		"required": ["server", "tool"]
	}`)
}

func (t *McpTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params McpToolInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if t.client == nil {
		return nil, fmt.Errorf("mcp_tool: no MCP client configured")
	}

	// ExecuteTool dispatches by a sanitized "server_tool" name; the
	// client itself resolves which connected server owns it.
	qualified := params.Server + "_" + params.Tool
	output, err := t.client.ExecuteTool(ctx, qualified, params.Arguments)
	if err != nil {
		return nil, fmt.Errorf("mcp_tool: %w", err)
	}

	return &Result{
		Title:  fmt.Sprintf("%s.%s", params.Server, params.Tool),
		Output: output,
	}, nil
}

func (t *McpTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
