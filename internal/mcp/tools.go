package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/pgmcp/internal/expose"
)

// registerTools registers one MCP tool per bound function. All tools share
// handleCallTool, which dispatches on the tool name.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	infos := s.tools.Tools()
	for _, info := range infos {
		tool, err := newTool(info)
		if err != nil {
			s.logger.Error("skipping tool with unencodable schema", "tool", info.Name, "error", err)
			continue
		}
		srv.AddTool(tool, s.handleCallTool)
	}
	s.logger.Debug("MCP tools registered", "tools", len(infos))
}

func newTool(info expose.ToolInfo) (mcp.Tool, error) {
	schema, err := marshal(info.InputSchema)
	if err != nil {
		return mcp.Tool{}, err
	}
	tool := mcp.NewToolWithRawSchema(info.Name, info.Description, schema)
	tool.Annotations = destructiveAnnotation(info.Dangerous)
	return tool, nil
}

// handleCallTool invokes the function bound to the requested tool. Unknown
// tools and missing arguments are returned as tool errors; execution
// failures arrive inside the invocation envelope.
func (s *MCPServer) handleCallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.Params.Name

	args := request.GetArguments()
	if args == nil {
		args = map[string]any{}
	}

	result, err := s.tools.Invoke(ctx, name, args)
	switch {
	case errors.Is(err, expose.ErrNotFound):
		return toolError("unknown tool %q", name)
	case errors.Is(err, expose.ErrMissingParameter):
		return toolError("%s: %v", name, err)
	case err != nil:
		return nil, fmt.Errorf("invoke %s: %w", name, err)
	}

	out, err := successJSON(result)
	if err != nil {
		return nil, err
	}
	out.IsError = !result.Success
	return out, nil
}
