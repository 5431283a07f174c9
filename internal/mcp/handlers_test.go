package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wantokmatch/internal/config"
	"github.com/hyperjump/wantokmatch/internal/embedding"
	"github.com/hyperjump/wantokmatch/internal/indexer"
	"github.com/hyperjump/wantokmatch/internal/keyword"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/internal/search"
	"github.com/hyperjump/wantokmatch/internal/storage"
	"github.com/hyperjump/wantokmatch/internal/storage/storagetest"
	"github.com/hyperjump/wantokmatch/internal/usage"
	"github.com/hyperjump/wantokmatch/internal/vector"
)

func newHandlers(t *testing.T) (*Handlers, *indexer.Indexer) {
	t.Helper()
	board := storagetest.New(t)
	board.Employer(1, "Porgera Gold", "Porgera Gold Ltd")
	board.Job(storagetest.Job{ID: 10, EmployerID: 1, Title: "Mine Engineer",
		Description: "Underground mining operations", Skills: []string{"blasting"}})
	board.Job(storagetest.Job{ID: 11, EmployerID: 1, Title: "Camp Cook", Description: "Kitchen work"})
	board.Seeker(storagetest.Seeker{ID: 20, Name: "Kila", Headline: "Blaster", Skills: []string{"blasting"}})

	src, err := storage.OpenSQLite(board.Path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	ledger, err := usage.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	client := embedding.NewClient(embedding.NewMockProvider(config.ProviderConfig{Dimensions: 16}), nil, nil, ledger,
		embedding.WithMinDelay(0), embedding.WithRetry(1, time.Millisecond))
	store, err := vector.Open(":memory:", client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })

	var cfg config.Config
	config.ApplyDefaults(&cfg)
	engine := search.NewEngine(store, src, nil, cfg.Search, search.WithKeywordIndex(kw))

	s := mcpserver.NewMCPServer("wantokmatch", "test", mcpserver.WithToolCapabilities(false))
	h := RegisterTools(s, engine, client, nil)
	return h, indexer.NewIndexer(src, store, indexer.WithKeywordIndex(kw))
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestSemanticSearchTool(t *testing.T) {
	h, _ := newHandlers(t)
	ctx := context.Background()

	res, err := h.SemanticSearch(ctx, call(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	// Nothing is indexed in the vector store, so the keyword index answers.
	res, err = h.SemanticSearch(ctx, call(map[string]interface{}{"query": "haus kuk", "limit": float64(5)}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var out models.SemanticResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, models.MethodFTSFallback, out.Method)
	assert.Contains(t, out.QueryExpanded, "kitchen cooking chef hospitality")
}

func TestIDTools(t *testing.T) {
	h, idx := newHandlers(t)
	ctx := context.Background()

	res, err := h.SimilarJobs(ctx, call(map[string]interface{}{"job_id": "ten"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.MatchJobs(ctx, call(map[string]interface{}{"user_id": float64(20)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(text(t, res), "not indexed yet"), text(t, res))

	_, err = idx.Sync(ctx)
	require.NoError(t, err)

	for name, fn := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"similar_jobs":     h.SimilarJobs,
		"match_candidates": h.MatchCandidates,
	} {
		res, err := fn(ctx, call(map[string]interface{}{"job_id": float64(10)}))
		require.NoError(t, err, name)
		assert.False(t, res.IsError, "%s: %s", name, text(t, res))
	}

	res, err = h.MatchJobs(ctx, call(map[string]interface{}{"user_id": float64(20), "min_score": 0.1}))
	require.NoError(t, err)
	assert.False(t, res.IsError, text(t, res))

	res, err = h.MatchCandidates(ctx, call(map[string]interface{}{"job_id": float64(999)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCompatibilityTool(t *testing.T) {
	h, idx := newHandlers(t)
	ctx := context.Background()
	_, err := idx.Sync(ctx)
	require.NoError(t, err)

	res, err := h.Compatibility(ctx, call(map[string]interface{}{"user_id": float64(20)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.Compatibility(ctx, call(map[string]interface{}{"user_id": float64(20), "job_id": float64(10)}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var out models.CompatibilityResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.NotNil(t, out.Breakdown.Semantic, "both vectors are stored")
	assert.Equal(t, 35, out.Breakdown.Skills)
}

func TestEmbeddingUsageTool(t *testing.T) {
	h, _ := newHandlers(t)
	res, err := h.EmbeddingUsage(context.Background(), call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out embedding.UsageStats
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	require.Len(t, out.Providers, 1)
	assert.Equal(t, "primary", out.Providers[0].Role)
}
