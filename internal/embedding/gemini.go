package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hyperjump/wantokmatch/internal/config"
	"google.golang.org/genai"
)

// Gemini embeds through the Gemini API.
type Gemini struct {
	cfg    config.ProviderConfig
	client *genai.Client
}

var _ Provider = (*Gemini)(nil)

// NewGemini returns a Gemini provider. Without an API key no client is
// created and the provider reports itself unconfigured.
func NewGemini(ctx context.Context, cfg config.ProviderConfig, hc *http.Client) (*Gemini, error) {
	g := &Gemini{cfg: cfg}
	if cfg.APIKey == "" {
		return g, nil
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) Name() string     { return config.ProviderGemini }
func (g *Gemini) Model() string    { return g.cfg.Model }
func (g *Gemini) Dimensions() int  { return g.cfg.Dimensions }
func (g *Gemini) MaxBatch() int    { return g.cfg.MaxBatch }
func (g *Gemini) Configured() bool { return g.client != nil }

func (g *Gemini) Limits() Limits {
	return Limits{DailyRequests: g.cfg.DailyRequests, DailyEmbeddings: g.cfg.DailyEmbeddings}
}

func (g *Gemini) Embed(ctx context.Context, texts []string, intent Intent) ([][]float32, error) {
	if g.client == nil {
		return nil, fmt.Errorf("gemini: no API key configured")
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{TaskType: geminiTaskType(intent)}
	if g.cfg.Dimensions > 0 {
		dims := int32(g.cfg.Dimensions)
		cfg.OutputDimensionality = &dims
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.cfg.Model, contents, cfg)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

func geminiTaskType(intent Intent) string {
	if intent == IntentQuery {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}
