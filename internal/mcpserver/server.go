// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes export passes and generated files for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/siteservice"
)

const (
	contractURI = "notionsite://frontmatter-format"
	maxListed   = 1000
)

// Server wraps the MCP server with the site tools.
type Server struct {
	mcp *server.MCPServer
	svc *siteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *siteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"notionsite",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the configured collections (post types)."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("run_pass",
		mcp.WithDescription("Export every ready record of a collection to markdown and wait for the result. "+
			"Only one pass runs at a time."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection post type, e.g. blog")),
	), s.runPass)

	s.mcp.AddTool(mcp.NewTool("list_passes",
		mcp.WithDescription("List recent passes, newest first."),
		mcp.WithString("collection", mcp.Description("Optional collection filter")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of passes (default 20)")),
	), s.listPasses)

	s.mcp.AddTool(mcp.NewTool("get_pass",
		mcp.WithDescription("Get a pass with the outcome of every record."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Pass ID")),
	), s.getPass)

	s.mcp.AddTool(mcp.NewTool("list_outputs",
		mcp.WithDescription("List generated markdown files."),
		mcp.WithString("collection", mcp.Description("Optional collection filter")),
	), s.listOutputs)

	s.mcp.AddTool(mcp.NewTool("read_output",
		mcp.WithDescription("Read the full content of a generated markdown file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the site root (e.g. src/blog/hello-world.md)")),
	), s.readOutput)

	s.mcp.AddTool(mcp.NewTool("search_outputs",
		mcp.WithDescription("Full-text search through generated files."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchOutputs)

	s.mcp.AddTool(mcp.NewTool("list_remote_assets",
		mcp.WithDescription("List generated files whose body still links remote assets, usually after failed downloads."),
	), s.listRemoteAssets)

	s.mcp.AddTool(mcp.NewTool("get_frontmatter_contract",
		mcp.WithDescription("Returns the layout of generated files: header keys, ordering and asset links."),
	), s.getFrontmatterContract)

	// Resource: generated file format.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Generated File Format",
			mcp.WithResourceDescription("Header and link layout of the markdown files written by export passes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listCollections(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.svc.Collections(), "\n")), nil
}

func (s *Server) runPass(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pass, err := s.svc.RunPass(ctx, collection)
	if err != nil {
		if pass != nil {
			return mcp.NewToolResultError(fmt.Sprintf("pass %s aborted: %v", pass.ID, err)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(pass), nil
}

func (s *Server) listPasses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := req.GetString("collection", "")
	limit := req.GetInt("limit", 20)
	passes, total, err := s.svc.ListPasses(ctx, collection, limit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"passes": passes, "total": total}), nil
}

func (s *Server) getPass(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pass, err := s.svc.GetPass(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("pass not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(pass), nil
}

func (s *Server) listOutputs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, _, err := s.svc.ListOutputs(ctx, req.GetString("collection", ""), maxListed, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, len(rows))
	for i, r := range rows {
		paths[i] = r.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readOutput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.GetOutput(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(out.Content), nil
}

func (s *Server) searchOutputs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listRemoteAssets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	remote, err := s.svc.RemoteAssets(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(remote) == 0 {
		return mcp.NewToolResultText("no remote assets found"), nil
	}
	return jsonResult(remote), nil
}

func (s *Server) getFrontmatterContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FrontmatterContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     FrontmatterContract,
		},
	}, nil
}
