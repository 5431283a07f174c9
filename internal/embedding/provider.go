// Package embedding turns text into vectors through third-party embedding
// APIs. A Client routes each call to the primary provider, guarded by a
// circuit breaker, rate limiter and daily caps, and falls back to a secondary
// provider when the primary cannot serve.
package embedding

import (
	"context"

	"go.uber.org/zap"
)

// Intent tells the provider whether the text is being indexed or searched for.
type Intent string

const (
	IntentDocument Intent = "search_document"
	IntentQuery    Intent = "search_query"
)

// Limits are a provider's daily soft caps. Zero means unlimited.
type Limits struct {
	DailyRequests   int64 `json:"daily_requests"`
	DailyEmbeddings int64 `json:"daily_embeddings"`
}

// Provider is one embedding backend.
type Provider interface {
	Name() string
	Model() string
	Dimensions() int
	// MaxBatch is the most texts one Embed call accepts.
	MaxBatch() int
	Limits() Limits
	// Configured reports whether the provider has the credentials it needs.
	Configured() bool
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string, intent Intent) ([][]float32, error)
}

// Result is the outcome of a Client call.
type Result struct {
	Vectors    [][]float32 `json:"vectors"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
	Provider   string      `json:"provider"`
	Cached     bool        `json:"cached,omitempty"`
}

func logFields(p Provider) []zap.Field {
	return []zap.Field{zap.String("provider", p.Name()), zap.String("model", p.Model())}
}
