package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/revdash/internal/analytics"
	"github.com/joescharf/revdash/internal/models"
	"github.com/joescharf/revdash/internal/store"
)

// Server wraps the revdash data layer and exposes it as MCP tools.
type Server struct {
	store   store.Store
	version string
	now     func() time.Time
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, version string) *Server {
	return &Server{store: s, version: version, now: time.Now}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("revdash", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getReviewTool())
	srv.AddTool(s.statsTool())
	srv.AddTool(s.listReposTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func sentimentArg(request mcp.CallToolRequest) (models.Sentiment, error) {
	s := models.Sentiment(request.GetString("sentiment", ""))
	if s != "" && !s.Valid() {
		return "", fmt.Errorf("invalid sentiment: %s (use: positive, negative, neutral)", s)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// revdash_list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revdash_list_reviews",
		mcp.WithDescription("List AI review comments with their recorded human sentiment, newest first. Returns a JSON array of reviews."),
		mcp.WithString("sentiment", mcp.Description("Filter by sentiment: positive, negative, neutral")),
		mcp.WithString("repo_name", mcp.Description("Filter by repository (owner/repo)")),
		mcp.WithString("search", mcp.Description("Case-insensitive match on PR title, repository or PR number")),
		mcp.WithString("sort", mcp.Description("Order: newest (default), oldest, repo-asc, repo-desc")),
		mcp.WithNumber("limit", mcp.Description("Maximum reviews to fetch (default 100)")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sentiment, err := sentimentArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	order, err := analytics.ParseSortOrder(request.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reviews, err := s.store.ListReviews(ctx, store.ReviewListFilter{
		Sentiment: sentiment,
		RepoName:  request.GetString("repo_name", ""),
		Limit:     request.GetInt("limit", store.DefaultLimit),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	reviews = analytics.SortReviews(analytics.Search(reviews, request.GetString("search", "")), order)
	return jsonResult(reviews, "reviews")
}

// revdash_get_review
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revdash_get_review",
		mcp.WithDescription("Get a single AI review by its id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Review id (ai_review_id)")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("review not found: %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to get review: %v", err)), nil
	}
	return jsonResult(review, "review")
}

// revdash_stats
func (s *Server) statsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revdash_stats",
		mcp.WithDescription("Summarize review sentiment over a trailing window: totals, change versus the previous window, daily trend, per-repository and per-workflow-version stats."),
		mcp.WithNumber("days", mcp.Description("Window length in days (default 7)")),
		mcp.WithString("sentiment", mcp.Description("Only count reviews with this sentiment")),
		mcp.WithString("repo_name", mcp.Description("Only count reviews for this repository")),
	)
	return tool, s.handleStats
}

func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := request.GetInt("days", analytics.DefaultWindowDays)
	if days <= 0 {
		return mcp.NewToolResultError("days must be positive"), nil
	}
	sentiment, err := sentimentArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	now := s.now().UTC()
	reviews, err := s.store.ListReviews(ctx, store.ReviewListFilter{
		Sentiment: sentiment,
		RepoName:  request.GetString("repo_name", ""),
		Since:     now.Add(-2 * time.Duration(days) * 24 * time.Hour),
		Limit:     -1,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}
	return jsonResult(analytics.Summarize(reviews, days, now), "summary")
}

// revdash_list_repos
func (s *Server) listReposTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revdash_list_repos",
		mcp.WithDescription("List repositories subscribed for review scraping."),
		mcp.WithBoolean("enabled_only", mcp.Description("Only include enabled repositories")),
	)
	return tool, s.handleListRepos
}

func (s *Server) handleListRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repos, err := s.store.ListRepos(ctx, store.RepoListFilter{
		EnabledOnly: request.GetBool("enabled_only", false),
		Limit:       -1,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list repos: %v", err)), nil
	}
	if repos == nil {
		repos = []*models.Repo{}
	}
	return jsonResult(repos, "repos")
}
