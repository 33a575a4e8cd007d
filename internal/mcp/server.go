package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/cadence/internal/auth"
	"github.com/joescharf/cadence/internal/board"
	"github.com/joescharf/cadence/internal/content"
	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/workflow"
)

// Server exposes the content service as MCP tools on behalf of one user.
type Server struct {
	svc    *content.Service
	userID string
}

// NewServer creates the MCP server wrapper. Every tool call acts as userID.
func NewServer(svc *content.Service, userID string) *Server {
	return &Server{svc: svc, userID: userID}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("cadence", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listContentTool())
	srv.AddTool(s.createContentTool())
	srv.AddTool(s.moveContentTool())
	srv.AddTool(s.contentStatsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) userCtx(ctx context.Context) context.Context {
	return auth.WithUser(ctx, s.userID)
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// cadence_list_content
func (s *Server) listContentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cadence_list_content",
		mcp.WithDescription("List content items, newest first. Returns a JSON array of items with id, title, description, status (idea/draft/scheduled/published), platform, priority, tags, dates, and overdue/at_risk flags."),
		mcp.WithString("status", mcp.Description("Status filter: idea, draft, scheduled, published")),
		mcp.WithString("platform", mcp.Description("Platform filter: blog, twitter, linkedin, youtube, instagram, newsletter")),
		mcp.WithString("tag", mcp.Description("Only items carrying this tag (case-insensitive)")),
	)
	return tool, s.handleListContent
}

type itemOut struct {
	*models.ContentItem
	Overdue bool `json:"overdue"`
	AtRisk  bool `json:"at_risk"`
}

func (s *Server) handleListContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(s.userCtx(ctx))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list content: %v", err)), nil
	}

	status := models.ContentStatus(request.GetString("status", ""))
	platform := models.Platform(request.GetString("platform", ""))
	now := s.svc.Now()

	out := []itemOut{}
	for _, it := range workflow.FilterByTag(items, workflow.NormalizeTag(request.GetString("tag", ""))) {
		if status != "" && it.Status != status {
			continue
		}
		if platform != "" && it.Platform != platform {
			continue
		}
		out = append(out, itemOut{
			ContentItem: it,
			Overdue:     workflow.IsOverdue(it, now),
			AtRisk:      workflow.IsAtRisk(it, now),
		})
	}
	return jsonResult(out, "content")
}

// cadence_create_content
func (s *Server) createContentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cadence_create_content",
		mcp.WithDescription("Create a new content item. Returns the created item as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Working title")),
		mcp.WithString("description", mcp.Description("Short summary of the piece")),
		mcp.WithString("content", mcp.Description("Draft body text")),
		mcp.WithString("status", mcp.Description("Initial status: idea, draft, scheduled, published (default: idea)")),
		mcp.WithString("platform", mcp.Description("Target platform (default: blog)")),
		mcp.WithString("priority", mcp.Description("Priority: low, medium, high (default: medium)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("deadline", mcp.Description("Deadline date, YYYY-MM-DD")),
		mcp.WithString("scheduled", mcp.Description("Scheduled publish date, YYYY-MM-DD")),
	)
	return tool, s.handleCreateContent
}

func (s *Server) handleCreateContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}

	draft := models.ContentItem{
		Title:       title,
		Description: request.GetString("description", ""),
		Body:        request.GetString("content", ""),
		Status:      models.ContentStatus(request.GetString("status", "")),
		Platform:    models.Platform(request.GetString("platform", "")),
		Priority:    models.Priority(request.GetString("priority", "")),
	}
	if tags := request.GetString("tags", ""); tags != "" {
		draft.Tags = workflow.NormalizeTags(strings.Split(tags, ","))
	}
	if draft.DeadlineDate, err = parseDate(request.GetString("deadline", "")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid deadline: %v", err)), nil
	}
	if draft.ScheduledDate, err = parseDate(request.GetString("scheduled", "")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid scheduled date: %v", err)), nil
	}

	item, err := s.svc.Add(s.userCtx(ctx), draft)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create content: %v", err)), nil
	}
	return jsonResult(item, "content")
}

// cadence_move_content
func (s *Server) moveContentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cadence_move_content",
		mcp.WithDescription("Move a content item to another status column. Moving into published stamps the publish date the first time. Respects the column's WIP limit unless force is true."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Content item ID")),
		mcp.WithString("status", mcp.Required(), mcp.Description("Target status: idea, draft, scheduled, published")),
		mcp.WithBoolean("force", mcp.Description("Ignore the target column's WIP limit")),
	)
	return tool, s.handleMoveContent
}

func (s *Server) handleMoveContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	ctx = s.userCtx(ctx)
	ctrl, err := board.Open(ctx, s.svc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load board: %v", err)), nil
	}

	if err := ctrl.Move(ctx, id, models.ContentStatus(status), request.GetBool("force", false)); err != nil {
		if errors.Is(err, board.ErrWIPLimit) {
			return mcp.NewToolResultError(fmt.Sprintf("cannot move: %v (pass force=true to override)", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to move content: %v", err)), nil
	}

	item, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reload content: %v", err)), nil
	}
	return jsonResult(item, "content")
}

// cadence_content_stats
func (s *Server) contentStatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cadence_content_stats",
		mcp.WithDescription("Summarize the content pipeline: counts per status, overdue and at-risk counts, completion time in days (avg/min/max), per-platform counts, and all tags in use."),
	)
	return tool, s.handleContentStats
}

func (s *Server) handleContentStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.userCtx(ctx)
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}
	completion, err := s.svc.CompletionStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute completion stats: %v", err)), nil
	}
	platforms, err := s.svc.PlatformCounts(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to count platforms: %v", err)), nil
	}
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tags: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"status":     stats,
		"completion": completion,
		"platforms":  platforms,
		"tags":       tags,
	}, "stats")
}

// parseDate accepts YYYY-MM-DD (midnight UTC) or RFC 3339. Empty means unset.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	t = t.UTC()
	return &t, nil
}
