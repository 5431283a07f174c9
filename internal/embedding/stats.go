package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/wantokmatch/internal/resilience"
)

// ProviderUsage is one provider's usage today.
type ProviderUsage struct {
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	Model      string     `json:"model"`
	Dimensions int        `json:"dimensions"`
	Configured bool       `json:"configured"`
	Available  bool       `json:"available"`
	Requests   int64      `json:"requests"`
	Embeddings int64      `json:"embeddings"`
	Errors     int64      `json:"errors"`
	RunErrors  int64      `json:"run_errors"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
	DailyLimit Limits     `json:"daily_limit"`
	// Remaining is nil for unlimited providers.
	Remaining *Limits `json:"remaining,omitempty"`
}

// UsageStats reports usage for today's ledger date and the breaker state.
type UsageStats struct {
	Date      string                  `json:"date"`
	Providers []ProviderUsage         `json:"providers"`
	Breaker   resilience.BreakerStats `json:"circuit_breaker"`
}

// UsageStats reports today's usage. It does not move the breaker out of OPEN.
func (c *Client) UsageStats(ctx context.Context) (*UsageStats, error) {
	stats := &UsageStats{Breaker: c.breaker.Stats()}
	if c.ledger != nil {
		stats.Date = c.ledger.Date()
	}

	for _, entry := range []struct {
		role string
		p    Provider
	}{{"primary", c.primary}, {"fallback", c.fallback}} {
		if entry.p == nil {
			continue
		}
		pu, err := c.providerUsage(ctx, entry.p, entry.role)
		if err != nil {
			return nil, err
		}
		stats.Providers = append(stats.Providers, pu)
	}
	return stats, nil
}

func (c *Client) providerUsage(ctx context.Context, p Provider, role string) (ProviderUsage, error) {
	lim := p.Limits()
	pu := ProviderUsage{
		Name:       p.Name(),
		Role:       role,
		Model:      p.Model(),
		Dimensions: p.Dimensions(),
		Configured: p.Configured(),
		DailyLimit: lim,
	}
	c.mu.Lock()
	pu.RunErrors = c.runErrors[p.Name()]
	c.mu.Unlock()

	if c.ledger != nil {
		used, err := c.ledger.Today(ctx, p.Name())
		if err != nil {
			return pu, fmt.Errorf("read usage for %s: %w", p.Name(), err)
		}
		pu.Requests, pu.Embeddings, pu.Errors = used.Requests, used.Embeddings, used.Errors
		if !used.LastUsed.IsZero() {
			last := used.LastUsed
			pu.LastUsed = &last
		}
	}
	if lim.DailyRequests > 0 || lim.DailyEmbeddings > 0 {
		pu.Remaining = &Limits{
			DailyRequests:   remaining(lim.DailyRequests, pu.Requests),
			DailyEmbeddings: remaining(lim.DailyEmbeddings, pu.Embeddings),
		}
	}

	pu.Available = pu.Configured && c.underCaps(ctx, p) == nil
	if role == "primary" && c.breaker.State() == resilience.StateOpen {
		pu.Available = false
	}
	return pu, nil
}

func remaining(limit, used int64) int64 {
	if limit <= 0 {
		return 0
	}
	return max(limit-used, 0)
}
