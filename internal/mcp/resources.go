package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/pgmcp/internal/expose"
)

// CatalogURI is the static resource listing everything the bridge exposes.
const CatalogURI = "pgmcp://catalog"

const tableTemplate = expose.URIScheme + "://{schema}/{table}{?limit,offset,where,order_by}"

// catalogListing is the payload of the catalog resource.
type catalogListing struct {
	Resources []expose.ResourceInfo `json:"resources"`
	Tools     []expose.ToolInfo     `json:"tools"`
}

// registerResources registers the table template, one concrete resource per
// indexed table or view, and the catalog resource.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			tableTemplate,
			"PostgreSQL table",
			mcp.WithTemplateDescription(
				"Rows of an exposed table or view. Optional query parameters: "+
					"limit, offset, where (SQL condition), order_by (SQL ordering).",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleReadTable,
	)

	infos := s.resources.Resources()
	for _, info := range infos {
		srv.AddResource(
			mcp.NewResource(
				info.URI,
				info.Name,
				mcp.WithResourceDescription(info.Description),
				mcp.WithMIMEType(info.MIMEType),
			),
			s.handleReadTable,
		)
	}

	srv.AddResource(
		mcp.NewResource(
			CatalogURI,
			"Exposed catalog",
			mcp.WithResourceDescription("Every exposed resource and tool with its schemas."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleCatalog,
	)

	s.logger.Debug("MCP resources registered", "tables", len(infos))
}

// handleReadTable serves every table URI. The request URI is parsed here
// rather than through template arguments so that concrete and templated
// reads behave the same.
func (s *MCPServer) handleReadTable(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI

	req, err := expose.ParseURI(uri)
	if err != nil {
		return nil, err
	}

	result, err := s.resources.Read(ctx, req)
	if err != nil {
		s.logger.Warn("resource read failed", "uri", uri, "error", err)
		return nil, err
	}

	return jsonContents(uri, result)
}

func (s *MCPServer) handleCatalog(
	_ context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, catalogListing{
		Resources: s.resources.Resources(),
		Tools:     s.tools.Tools(),
	})
}

func jsonContents(uri string, data any) ([]mcp.ResourceContents, error) {
	b, err := marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
