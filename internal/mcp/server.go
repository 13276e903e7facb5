// Package mcp publishes the exposed tables and functions over the Model
// Context Protocol using mark3labs/mcp-go.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/pgmcp/internal/config"
	"github.com/faucetdb/pgmcp/internal/expose"
)

// ResourceReader serves the resource side of the bridge.
type ResourceReader interface {
	Read(ctx context.Context, req expose.ReadRequest) (*expose.ReadResult, error)
	Resources() []expose.ResourceInfo
}

// ToolInvoker serves the tool side of the bridge.
type ToolInvoker interface {
	Invoke(ctx context.Context, toolName string, args map[string]any) (*expose.InvokeResult, error)
	Tools() []expose.ToolInfo
}

// MCPServer wraps the mcp-go server with the bridge's resources and tools.
type MCPServer struct {
	resources ResourceReader
	tools     ToolInvoker
	logger    *slog.Logger
	server    *server.MCPServer
}

// NewMCPServer creates an MCP server publishing everything the exposers
// have registered. The exposers must be fully registered before the call.
func NewMCPServer(resources ResourceReader, tools ToolInvoker, cfg config.ServerConfig, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		resources: resources,
		tools:     tools,
		logger:    logger,
	}

	opts := []server.ServerOption{
		server.WithResourceCapabilities(false, true),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if cfg.Description != "" {
		opts = append(opts, server.WithInstructions(cfg.Description))
	}
	srv := server.NewMCPServer(cfg.Name, cfg.Version, opts...)

	s.registerResources(srv)
	s.registerTools(srv)

	s.server = srv
	return s
}

// Server returns the underlying mcp-go server.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio runs the server on stdin/stdout until the input is closed.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("serving MCP over stdio")
	return server.ServeStdio(s.server)
}

// HTTPHandler returns a streamable HTTP handler for mounting on a router.
func (s *MCPServer) HTTPHandler(endpoint string) http.Handler {
	return server.NewStreamableHTTPServer(s.server, server.WithEndpointPath(endpoint))
}

func destructiveAnnotation(dangerous bool) mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(dangerous),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
