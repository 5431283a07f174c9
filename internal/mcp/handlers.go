package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/embedding"
	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/internal/search"
)

// UsageReporter reports provider usage and breaker state.
type UsageReporter interface {
	UsageStats(ctx context.Context) (*embedding.UsageStats, error)
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	engine *search.Engine
	usage  UsageReporter
	logger *zap.Logger
}

// SemanticSearch handles the semantic_search tool
func (h *Handlers) SemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	p := params(request)
	p.Query = query

	resp, err := h.engine.SemanticSearch(ctx, p)
	if err != nil {
		return h.toolError("semantic_search", err), nil
	}
	return mcp.NewToolResultJSON(resp)
}

// SimilarJobs handles the similar_jobs tool
func (h *Handlers) SimilarJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := requireID(request, "job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := h.engine.SimilarJobs(ctx, jobID, params(request))
	if err != nil {
		return h.toolError("similar_jobs", err), nil
	}
	return mcp.NewToolResultJSON(resp)
}

// MatchJobs handles the match_jobs tool
func (h *Handlers) MatchJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := requireID(request, "user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := h.engine.MatchJobsForUser(ctx, models.SystemCaller, userID, params(request))
	if err != nil {
		return h.toolError("match_jobs", err), nil
	}
	return mcp.NewToolResultJSON(resp)
}

// MatchCandidates handles the match_candidates tool
func (h *Handlers) MatchCandidates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := requireID(request, "job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := h.engine.MatchCandidatesForJob(ctx, models.SystemCaller, jobID, params(request))
	if err != nil {
		return h.toolError("match_candidates", err), nil
	}
	return mcp.NewToolResultJSON(resp)
}

// Compatibility handles the compatibility tool
func (h *Handlers) Compatibility(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := requireID(request, "user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jobID, err := requireID(request, "job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := h.engine.Compatibility(ctx, models.SystemCaller, userID, jobID)
	if err != nil {
		return h.toolError("compatibility", err), nil
	}
	return mcp.NewToolResultJSON(res)
}

// EmbeddingUsage handles the embedding_usage tool
func (h *Handlers) EmbeddingUsage(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.usage == nil {
		return mcp.NewToolResultError("embedding client not configured"), nil
	}
	stats, err := h.usage.UsageStats(ctx)
	if err != nil {
		return h.toolError("embedding_usage", err), nil
	}
	return mcp.NewToolResultJSON(stats)
}

func params(request mcp.CallToolRequest) models.SearchParams {
	return models.SearchParams{
		Limit:    request.GetInt("limit", 0),
		MinScore: request.GetFloat("min_score", 0),
	}
}

func requireID(request mcp.CallToolRequest, key string) (int64, error) {
	id, err := request.RequireInt(key)
	if err != nil {
		return 0, fmt.Errorf("%s argument is required and must be a number", key)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return int64(id), nil
}

// toolError turns err into a tool-level error result. Failures the caller
// can act on are reported plainly; the rest are logged.
func (h *Handlers) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, errs.ErrNotIndexedYet):
		return mcp.NewToolResultError(fmt.Sprintf("not indexed yet: %v. Run `wantokmatch index` or wait for background indexing.", err))
	case search.IsClientError(err):
		return mcp.NewToolResultError(err.Error())
	default:
		h.logger.Error("tool failed", zap.String("tool", tool), zap.Error(err))
		return mcp.NewToolResultErrorFromErr(tool+" failed", err)
	}
}
