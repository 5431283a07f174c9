package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/hyperjump/wantokmatch/internal/config"
)

// Cohere embeds through the Cohere embed API.
type Cohere struct {
	cfg    config.ProviderConfig
	client *cohereclient.Client
}

var _ Provider = (*Cohere)(nil)

// NewCohere returns a Cohere provider. It is unconfigured without an API key.
func NewCohere(cfg config.ProviderConfig, hc *http.Client) *Cohere {
	if hc == nil {
		hc = newHTTPClient(0)
	}
	opts := []option.RequestOption{
		option.WithToken(cfg.APIKey),
		option.WithHTTPClient(hc),
		// Client retries and the breaker own retry policy.
		option.WithMaxAttempts(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Cohere{cfg: cfg, client: cohereclient.NewClient(opts...)}
}

func (c *Cohere) Name() string     { return config.ProviderCohere }
func (c *Cohere) Model() string    { return c.cfg.Model }
func (c *Cohere) Dimensions() int  { return c.cfg.Dimensions }
func (c *Cohere) MaxBatch() int    { return c.cfg.MaxBatch }
func (c *Cohere) Configured() bool { return c.cfg.APIKey != "" }

func (c *Cohere) Limits() Limits {
	return Limits{DailyRequests: c.cfg.DailyRequests, DailyEmbeddings: c.cfg.DailyEmbeddings}
}

// Embed sends intent as the input type; v3 models embed queries and
// documents into different regions of the same space.
func (c *Cohere) Embed(ctx context.Context, texts []string, intent Intent) ([][]float32, error) {
	req := &cohere.EmbedRequest{
		Texts:          texts,
		InputType:      cohere.EmbedInputType(intent).Ptr(),
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	}
	if c.cfg.Model != "" {
		req.Model = cohere.String(c.cfg.Model)
	}
	resp, err := c.client.Embed(ctx, req)
	if err != nil {
		return nil, err
	}

	var floats [][]float64
	switch {
	case resp.EmbeddingsByType != nil && resp.EmbeddingsByType.Embeddings != nil:
		floats = resp.EmbeddingsByType.Embeddings.Float
	case resp.EmbeddingsFloats != nil:
		floats = resp.EmbeddingsFloats.Embeddings
	}
	if len(floats) == 0 {
		return nil, errors.New("invalid cohere response: missing embeddings")
	}
	if len(floats) != len(texts) {
		return nil, fmt.Errorf("cohere returned %d embeddings for %d texts", len(floats), len(texts))
	}
	out := make([][]float32, len(floats))
	for i, v := range floats {
		out[i] = make([]float32, len(v))
		for j, f := range v {
			out[i][j] = float32(f)
		}
	}
	return out, nil
}
