// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes snapcode tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/snapcode/internal/apperr"
	"github.com/starford/snapcode/internal/snapshotservice"
)

const (
	snapshotURI = "snapcode://snapshot"
	formatURI   = "snapcode://format"
)

// Server wraps the MCP server with snapcode tools.
type Server struct {
	mcp *server.MCPServer
	svc *snapshotservice.Service
}

// New creates a new MCP server with all snapcode tools registered.
func New(svc *snapshotservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"snapcode",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_snapshot",
		mcp.WithDescription("Return the current project snapshot: every included text file "+
			"concatenated into one document. Read the format via get_snapshot_format or the "+
			formatURI+" resource to split it back into files."),
	), s.getSnapshot)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the relative paths the snapshot includes, in snapshot order."),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("build_history",
		mcp.WithDescription("List recent snapshot builds, newest first, as JSON."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of builds to return (default 20)")),
	), s.buildHistory)

	s.mcp.AddTool(mcp.NewTool("rebuild",
		mcp.WithDescription("Queue a full snapshot rebuild. The rebuild runs asynchronously; "+
			"poll build_history to see when it completes."),
	), s.rebuild)

	s.mcp.AddTool(mcp.NewTool("get_snapshot_format",
		mcp.WithDescription("Describe the snapshot document layout and inclusion rules."),
	), s.getSnapshotFormat)

	s.mcp.AddResource(
		mcp.NewResource(snapshotURI, "Project Snapshot",
			mcp.WithResourceDescription("The current concatenated project snapshot."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readSnapshotResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Snapshot Format",
			mcp.WithResourceDescription("Layout of the snapshot document and the file inclusion rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	err := server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getSnapshot(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.svc.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError("snapshot not built yet"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listFiles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.svc.Files(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(files) == 0 {
		return mcp.NewToolResultText("no files included"), nil
	}
	return mcp.NewToolResultText(strings.Join(files, "\n")), nil
}

func (s *Server) buildHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	builds, err := s.svc.Builds(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(builds, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) rebuild(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.Rebuild(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rebuild not queued: %v", err)), nil
	}
	return mcp.NewToolResultText("rebuild queued"), nil
}

func (s *Server) getSnapshotFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SnapshotFormat), nil
}

func (s *Server) readSnapshotResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.svc.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      snapshotURI,
			MIMEType: "text/plain",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     SnapshotFormat,
		},
	}, nil
}
