// Package mcp exposes the matching engine as Model Context Protocol tools.
// Every tool runs with operator rights.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/search"
	"github.com/hyperjump/wantokmatch/pkg/utils"
)

func limitProperty(def int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Maximum number of results to return",
		"default":     def,
	}
}

func minScoreProperty(def float64) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Minimum cosine similarity between 0 and 1",
		"default":     def,
	}
}

func idProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
	}
}

// RegisterTools registers the six matching tools with s.
func RegisterTools(s *mcpserver.MCPServer, engine *search.Engine, usage UsageReporter, logger *zap.Logger) *Handlers {
	logger = utils.OrNop(logger)
	h := &Handlers{engine: engine, usage: usage, logger: logger}
	sem, match, similar := engine.SemanticBounds(), engine.MatchBounds(), engine.SimilarBounds()

	s.AddTool(mcp.Tool{
		Name: "semantic_search",
		Description: "Search active job postings with free text. Tok Pisin job terms and PNG place " +
			"abbreviations are expanded to English. Falls back to keyword search when nothing scores above min_score.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text, e.g. \"painim wok long mining\"",
				},
				"limit":     limitProperty(sem.DefaultLimit),
				"min_score": minScoreProperty(sem.DefaultMinScore),
			},
			Required: []string{"query"},
		},
	}, h.SemanticSearch)

	s.AddTool(mcp.Tool{
		Name:        "similar_jobs",
		Description: "Find active jobs similar to an active job.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"job_id":    idProperty("Job ID"),
				"limit":     limitProperty(similar.DefaultLimit),
				"min_score": minScoreProperty(similar.DefaultMinScore),
			},
			Required: []string{"job_id"},
		},
	}, h.SimilarJobs)

	s.AddTool(mcp.Tool{
		Name:        "match_jobs",
		Description: "Recommend active jobs for a job seeker based on their indexed profile.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id":   idProperty("Job seeker user ID"),
				"limit":     limitProperty(match.DefaultLimit),
				"min_score": minScoreProperty(match.DefaultMinScore),
			},
			Required: []string{"user_id"},
		},
	}, h.MatchJobs)

	s.AddTool(mcp.Tool{
		Name:        "match_candidates",
		Description: "Recommend active job seekers for a job in any status.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"job_id":    idProperty("Job ID"),
				"limit":     limitProperty(match.DefaultLimit),
				"min_score": minScoreProperty(match.DefaultMinScore),
			},
			Required: []string{"job_id"},
		},
	}, h.MatchCandidates)

	s.AddTool(mcp.Tool{
		Name:        "compatibility",
		Description: "Score how well a job seeker fits an active job, with a per-factor breakdown, strengths, weaknesses and tips.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": idProperty("Job seeker user ID"),
				"job_id":  idProperty("Job ID"),
			},
			Required: []string{"user_id", "job_id"},
		},
	}, h.Compatibility)

	s.AddTool(mcp.Tool{
		Name:        "embedding_usage",
		Description: "Report today's embedding provider usage, remaining daily quota and circuit breaker state.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.EmbeddingUsage)

	return h
}
