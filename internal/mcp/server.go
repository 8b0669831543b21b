package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/revu/internal/git"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/service"
)

// Reviewer runs reviews on behalf of the MCP tools.
type Reviewer interface {
	ReviewPR(ctx context.Context, owner, repo string, number int) (*review.Result, error)
	ReviewPaths(ctx context.Context, paths ...string) (*review.Result, error)
	ReviewContents(ctx context.Context, title string, files []models.FileData) (*review.Result, error)
}

// Server exposes reviews as MCP tools.
type Server struct {
	reviewer Reviewer
	version  string
}

// NewServer creates the MCP server wrapper.
func NewServer(r Reviewer, version string) *Server {
	return &Server{reviewer: r, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("revu", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.reviewPRTool())
	srv.AddTool(s.reviewFilesTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// revu_review_pr
func (s *Server) reviewPRTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_review_pr",
		mcp.WithDescription("Review a GitHub pull request. Runs security, quality, coverage, AI and documentation analysis and returns the routing decision, metrics and report as JSON."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository as owner/repo or a GitHub URL")),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Pull request number")),
	)
	return tool, s.handleReviewPR
}

func (s *Server) handleReviewPR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	number, err := request.RequireInt("number")
	if err != nil || number <= 0 {
		return mcp.NewToolResultError("number must be a positive integer"), nil
	}
	owner, repo, err := git.ParseRepoRef(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.reviewer.ReviewPR(ctx, owner, repo, number)
	return outcomeResult(res, err)
}

// revu_review_files
func (s *Server) reviewFilesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_review_files",
		mcp.WithDescription("Review local files or directories, or inline file contents. Returns the routing decision, metrics and report as JSON."),
		mcp.WithArray("paths",
			mcp.Description("Files or directories on disk to review"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("files",
			mcp.Description("Inline files to review"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"filename": map[string]any{"type": "string"},
					"content":  map[string]any{"type": "string"},
				},
				"required": []string{"filename", "content"},
			}),
		),
	)
	return tool, s.handleReviewFiles
}

func (s *Server) handleReviewFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths := request.GetStringSlice("paths", nil)
	files, err := inlineFiles(request.GetArguments()["files"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch {
	case len(paths) > 0 && len(files) > 0:
		return mcp.NewToolResultError("pass either paths or files, not both"), nil
	case len(paths) > 0:
		res, err := s.reviewer.ReviewPaths(ctx, paths...)
		return outcomeResult(res, err)
	case len(files) > 0:
		res, err := s.reviewer.ReviewContents(ctx, "", files)
		return outcomeResult(res, err)
	}
	return mcp.NewToolResultError("one of paths or files is required"), nil
}

func inlineFiles(raw any) ([]models.FileData, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("files must be an array")
	}
	out := make([]models.FileData, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("files[%d] must be an object", i)
		}
		name, _ := m["filename"].(string)
		content, _ := m["content"].(string)
		if name == "" {
			return nil, fmt.Errorf("files[%d] is missing filename", i)
		}
		out = append(out, models.FileData{Filename: name, Content: content})
	}
	return out, nil
}

func outcomeResult(res *review.Result, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
	}
	data, err := json.Marshal(service.NewOutcome(res))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal outcome: %v", err)), nil
	}
	if res.Err() != nil {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
