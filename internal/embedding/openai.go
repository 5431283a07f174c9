package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/wantokmatch/internal/config"
	"github.com/sashabaranov/go-openai"
)

// OpenAI embeds through the OpenAI embeddings API.
type OpenAI struct {
	cfg    config.ProviderConfig
	client *openai.Client
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI returns an OpenAI provider. BaseURL may point at any
// OpenAI-compatible endpoint.
func NewOpenAI(cfg config.ProviderConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAI{cfg: cfg, client: openai.NewClientWithConfig(oc)}
}

func (o *OpenAI) Name() string     { return config.ProviderOpenAI }
func (o *OpenAI) Model() string    { return o.cfg.Model }
func (o *OpenAI) Dimensions() int  { return o.cfg.Dimensions }
func (o *OpenAI) MaxBatch() int    { return o.cfg.MaxBatch }
func (o *OpenAI) Configured() bool { return o.cfg.APIKey != "" }

func (o *OpenAI) Limits() Limits {
	return Limits{DailyRequests: o.cfg.DailyRequests, DailyEmbeddings: o.cfg.DailyEmbeddings}
}

// Embed ignores intent; OpenAI models embed queries and documents alike.
func (o *OpenAI) Embed(ctx context.Context, texts []string, _ Intent) ([][]float32, error) {
	req := openai.EmbeddingRequestStrings{
		Input:          texts,
		Model:          openai.EmbeddingModel(o.cfg.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	// Only the text-embedding-3 family can shorten its output.
	if strings.HasPrefix(o.cfg.Model, "text-embedding-3") {
		req.Dimensions = o.cfg.Dimensions
	}

	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai returned embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
