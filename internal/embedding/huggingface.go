package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/wantokmatch/internal/config"
)

// HuggingFace calls the Inference API feature-extraction endpoint, one text
// per request. The API key is optional.
type HuggingFace struct {
	cfg  config.ProviderConfig
	http *http.Client
}

var _ Provider = (*HuggingFace)(nil)

// NewHuggingFace returns a HuggingFace provider.
func NewHuggingFace(cfg config.ProviderConfig, hc *http.Client) *HuggingFace {
	if hc == nil {
		hc = newHTTPClient(0)
	}
	return &HuggingFace{cfg: cfg, http: hc}
}

func (h *HuggingFace) Name() string     { return config.ProviderHuggingFace }
func (h *HuggingFace) Model() string    { return h.cfg.Model }
func (h *HuggingFace) Dimensions() int  { return h.cfg.Dimensions }
func (h *HuggingFace) MaxBatch() int    { return 1 }
func (h *HuggingFace) Configured() bool { return h.cfg.BaseURL != "" }

func (h *HuggingFace) Limits() Limits {
	return Limits{DailyRequests: h.cfg.DailyRequests, DailyEmbeddings: h.cfg.DailyEmbeddings}
}

type hfRequest struct {
	Inputs  string    `json:"inputs"`
	Options hfOptions `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func (h *HuggingFace) Embed(ctx context.Context, texts []string, _ Intent) ([][]float32, error) {
	url := strings.TrimRight(h.cfg.BaseURL, "/") + "/models/" + h.cfg.Model
	headers := map[string]string{}
	if h.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + h.cfg.APIKey
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		var raw json.RawMessage
		req := hfRequest{Inputs: text, Options: hfOptions{WaitForModel: true}}
		if err := postJSON(ctx, h.http, url, headers, req, &raw); err != nil {
			return nil, err
		}
		vec, err := decodeFeatures(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// decodeFeatures accepts a pooled vector or per-token vectors, which are
// mean-pooled.
func decodeFeatures(raw json.RawMessage) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err == nil {
		if len(vec) == 0 {
			return nil, errors.New("invalid huggingface response: empty vector")
		}
		return vec, nil
	}

	var tokens [][]float32
	if err := json.Unmarshal(raw, &tokens); err != nil || len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, fmt.Errorf("invalid huggingface response: %s", snippet(raw))
	}
	pooled := make([]float32, len(tokens[0]))
	for _, tok := range tokens {
		if len(tok) != len(pooled) {
			return nil, errors.New("invalid huggingface response: ragged token vectors")
		}
		for i, v := range tok {
			pooled[i] += v
		}
	}
	n := float32(len(tokens))
	for i := range pooled {
		pooled[i] /= n
	}
	return pooled, nil
}
