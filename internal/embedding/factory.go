package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/config"
	"github.com/hyperjump/wantokmatch/internal/resilience"
	"github.com/hyperjump/wantokmatch/internal/usage"
	"github.com/hyperjump/wantokmatch/pkg/utils"
)

// NewProvider creates the named provider variant.
// Supported names: "cohere", "openai", "gemini", "huggingface", "mock". "none" returns nil.
func NewProvider(ctx context.Context, name string, cfg config.EmbeddingConfig) (Provider, error) {
	hc := newHTTPClient(cfg.RequestTimeout)
	switch name {
	case config.ProviderCohere:
		return NewCohere(cfg.Cohere, hc), nil
	case config.ProviderHuggingFace:
		return NewHuggingFace(cfg.HuggingFace, hc), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI), nil
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.Gemini, hc)
	case config.ProviderMock:
		return NewMockProvider(cfg.Mock), nil
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: cohere, openai, gemini, huggingface, mock, none)", name)
	}
}

// NewClientFromConfig builds the primary and fallback providers, the circuit
// breaker and a Client wired to ledger.
func NewClientFromConfig(ctx context.Context, cfg config.EmbeddingConfig, ledger usage.Ledger, logger *zap.Logger) (*Client, error) {
	logger = utils.OrNop(logger)
	primary, err := NewProvider(ctx, cfg.Primary, cfg)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}
	fallback, err := NewProvider(ctx, cfg.Fallback, cfg)
	if err != nil {
		return nil, fmt.Errorf("fallback provider: %w", err)
	}
	if primary == nil && fallback == nil {
		return nil, fmt.Errorf("no embedding provider selected")
	}
	if primary != nil && !primary.Configured() {
		logger.Warn("primary embedding provider has no credentials, every call goes to the fallback",
			logFields(primary)...)
	}

	breaker := resilience.New(
		resilience.WithThreshold(cfg.Breaker.Threshold),
		resilience.WithWindow(cfg.Breaker.Window),
		resilience.WithRecoveryTimeout(cfg.Breaker.RecoveryTimeout),
		resilience.WithLogger(logger.Named("breaker")),
	)

	return NewClient(primary, fallback, breaker, ledger,
		WithLogger(logger),
		WithMinDelay(cfg.MinDelay),
		WithRetry(cfg.MaxRetries, cfg.BaseBackoff),
		WithRequestTimeout(cfg.RequestTimeout),
		WithCapRatio(cfg.CapRatio),
		WithQueryCache(cfg.QueryCacheSize),
	), nil
}
