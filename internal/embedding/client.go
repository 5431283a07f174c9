package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/resilience"
	"github.com/hyperjump/wantokmatch/internal/usage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Default call discipline for the primary provider.
const (
	DefaultMinDelay       = 650 * time.Millisecond
	DefaultMaxRetries     = 3
	DefaultBaseBackoff    = time.Second
	DefaultRequestTimeout = 60 * time.Second
	DefaultCapRatio       = 0.95
)

// Client routes embedding calls between a primary and a fallback provider.
// The primary is called through the rate limiter, with retries, and is
// guarded by the circuit breaker; the fallback is called once per chunk.
type Client struct {
	primary  Provider
	fallback Provider
	breaker  *resilience.ResilienceContext
	ledger   usage.Ledger
	limiter  *rate.Limiter
	cache    *QueryCache
	logger   *zap.Logger

	maxRetries     int
	baseBackoff    time.Duration
	requestTimeout time.Duration
	capRatio       float64

	mu        sync.Mutex
	runErrors map[string]int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMinDelay sets the minimum spacing between primary provider calls.
// Zero disables spacing.
func WithMinDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRetry sets the attempt budget and base backoff for the primary provider.
func WithRetry(maxAttempts int, baseBackoff time.Duration) ClientOption {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxRetries = maxAttempts
		}
		if baseBackoff >= 0 {
			c.baseBackoff = baseBackoff
		}
	}
}

// WithRequestTimeout bounds each provider call.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithCapRatio sets the share of a daily cap at which a provider is skipped.
func WithCapRatio(r float64) ClientOption {
	return func(c *Client) {
		if r > 0 {
			c.capRatio = r
		}
	}
}

// WithQueryCache caches up to size query vectors. Zero disables the cache.
func WithQueryCache(size int) ClientOption {
	return func(c *Client) { c.cache = NewQueryCache(size) }
}

// NewClient returns a Client. Either provider may be nil. A nil breaker gets
// the default thresholds.
func NewClient(primary, fallback Provider, breaker *resilience.ResilienceContext, ledger usage.Ledger, opts ...ClientOption) *Client {
	if breaker == nil {
		breaker = resilience.New()
	}
	c := &Client{
		primary:        primary,
		fallback:       fallback,
		breaker:        breaker,
		ledger:         ledger,
		limiter:        rate.NewLimiter(rate.Every(DefaultMinDelay), 1),
		logger:         zap.NewNop(),
		maxRetries:     DefaultMaxRetries,
		baseBackoff:    DefaultBaseBackoff,
		requestTimeout: DefaultRequestTimeout,
		capRatio:       DefaultCapRatio,
		runErrors:      make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breaker returns the circuit breaker guarding the primary provider.
func (c *Client) Breaker() *resilience.ResilienceContext { return c.breaker }

// Embed returns one vector per text, chunked to the batch size of the
// provider that would serve now. Every vector in the result comes from the
// same provider and model. It fails with errs.ErrProviderExhausted when
// neither provider could serve.
func (c *Client) Embed(ctx context.Context, texts []string, intent Intent) (*Result, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts provided for embedding", errs.ErrInvalidInput)
	}

	cacheable := intent == IntentQuery && c.cache != nil && len(texts) == 1
	if cacheable {
		if p := c.route(ctx); p != nil {
			if v, ok := c.cache.Get(cacheKey(intent, p.Model(), texts[0])); ok {
				return &Result{Vectors: [][]float32{v}, Model: p.Model(), Dimensions: len(v), Provider: p.Name(), Cached: true}, nil
			}
		}
	}

	res, err := c.embedChunks(ctx, texts, intent)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.Set(cacheKey(intent, res.Model, texts[0]), res.Vectors[0])
	}
	return res, nil
}

// EmbedBatch is Embed for callers that hand over a whole sync batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, intent Intent) (*Result, error) {
	return c.Embed(ctx, texts, intent)
}

// embedChunks embeds texts in order, one provider batch at a time.
func (c *Client) embedChunks(ctx context.Context, texts []string, intent Intent) (*Result, error) {
	size := len(texts)
	if p := c.route(ctx); p != nil && p.MaxBatch() > 0 {
		size = p.MaxBatch()
	}

	var out *Result
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		res, err := c.embed(ctx, texts[start:end], intent)
		if err != nil {
			if start == 0 && end == len(texts) {
				return nil, err
			}
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		if out == nil {
			out = res
			out.Vectors = append(make([][]float32, 0, len(texts)), res.Vectors...)
			continue
		}
		if res.Provider != out.Provider || res.Model != out.Model {
			return c.settleOnFallback(ctx, texts, start, end, out, res, intent)
		}
		out.Vectors = append(out.Vectors, res.Vectors...)
	}
	return out, nil
}

// settleOnFallback finishes a batch whose chunk [start, end) came back from
// a different provider than the chunks before it. Vectors from two models
// share no space, so the rest of the batch moves to the fallback.
func (c *Client) settleOnFallback(ctx context.Context, texts []string, start, end int, head, chunk *Result, intent Intent) (*Result, error) {
	fb := c.fallback
	mixed := fmt.Errorf("%w: batch split between %s and %s", errs.ErrProviderExhausted, head.Provider, chunk.Provider)
	if fb == nil || c.available(ctx, fb, false) != nil {
		return nil, mixed
	}
	c.logger.Warn("embedding provider changed mid-batch, finishing on the fallback",
		append(logFields(fb), zap.String("from", head.Provider), zap.String("to", chunk.Provider))...)

	switch fb.Name() {
	case head.Provider:
		// The primary recovered mid-batch.
		rest, err := c.callFallback(ctx, fb, texts[start:], intent)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", mixed, err)
		}
		head.Vectors = append(head.Vectors, rest.Vectors...)
		return head, nil
	case chunk.Provider:
		vectors := make([][]float32, 0, len(texts))
		before, err := c.callFallback(ctx, fb, texts[:start], intent)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", mixed, err)
		}
		vectors = append(append(vectors, before.Vectors...), chunk.Vectors...)
		if end < len(texts) {
			after, err := c.callFallback(ctx, fb, texts[end:], intent)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", mixed, err)
			}
			vectors = append(vectors, after.Vectors...)
		}
		return newResult(fb, vectors), nil
	}
	return nil, mixed
}

// route returns the provider a call would use right now, or nil.
func (c *Client) route(ctx context.Context) Provider {
	if c.primary != nil && c.available(ctx, c.primary, true) == nil {
		return c.primary
	}
	if c.fallback != nil && c.available(ctx, c.fallback, false) == nil {
		return c.fallback
	}
	return nil
}

func (c *Client) embed(ctx context.Context, texts []string, intent Intent) (*Result, error) {
	var failures []error

	if p := c.primary; p != nil {
		err := c.available(ctx, p, true)
		if err == nil {
			var res *Result
			res, err = c.callPrimary(ctx, p, texts, intent)
			if err == nil {
				return res, nil
			}
			c.logger.Error("primary embedding provider failed", append(logFields(p), zap.Error(err))...)
		} else {
			c.logger.Debug("skipping primary embedding provider", append(logFields(p), zap.Error(err))...)
		}
		failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))
	}

	if p := c.fallback; p != nil {
		err := c.available(ctx, p, false)
		if err == nil {
			var res *Result
			res, err = c.callFallback(ctx, p, texts, intent)
			if err == nil {
				return res, nil
			}
			c.logger.Error("fallback embedding provider failed", append(logFields(p), zap.Error(err))...)
		} else {
			c.logger.Debug("skipping fallback embedding provider", append(logFields(p), zap.Error(err))...)
		}
		failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))
	}

	if len(failures) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", errs.ErrProviderExhausted)
	}
	return nil, fmt.Errorf("%w: %w", errs.ErrProviderExhausted, errors.Join(failures...))
}

// available returns nil when p may be called now. guarded consults the
// circuit breaker, which may move it from OPEN to HALF_OPEN.
func (c *Client) available(ctx context.Context, p Provider, guarded bool) error {
	if !p.Configured() {
		return fmt.Errorf("%w: %s not configured", errs.ErrProviderUnavailable, p.Name())
	}
	if guarded && !c.breaker.CanAttempt() {
		st := c.breaker.Stats()
		return fmt.Errorf("%w: circuit %s, recovery in %s", errs.ErrProviderUnavailable, st.State, st.RecoveryIn)
	}
	return c.underCaps(ctx, p)
}

func (c *Client) underCaps(ctx context.Context, p Provider) error {
	if c.ledger == nil {
		return nil
	}
	lim := p.Limits()
	if lim.DailyRequests <= 0 && lim.DailyEmbeddings <= 0 {
		return nil
	}
	used, err := c.ledger.Today(ctx, p.Name())
	if err != nil {
		c.logger.Warn("reading usage ledger", append(logFields(p), zap.Error(err))...)
		return nil
	}
	if lim.DailyRequests > 0 && float64(used.Requests) >= float64(lim.DailyRequests)*c.capRatio {
		return fmt.Errorf("%w: %s approaching daily request limit (%d/%d)", errs.ErrProviderUnavailable, p.Name(), used.Requests, lim.DailyRequests)
	}
	if lim.DailyEmbeddings > 0 && float64(used.Embeddings) >= float64(lim.DailyEmbeddings)*c.capRatio {
		return fmt.Errorf("%w: %s approaching daily embedding limit (%d/%d)", errs.ErrProviderUnavailable, p.Name(), used.Embeddings, lim.DailyEmbeddings)
	}
	return nil
}

func (c *Client) callPrimary(ctx context.Context, p Provider, texts []string, intent Intent) (*Result, error) {
	var vectors [][]float32
	err := retryWithBackoff(ctx, c.maxRetries, c.baseBackoff, IsTransient, func(attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		v, err := c.call(ctx, p, texts, intent)
		if err != nil {
			if attempt < c.maxRetries && IsTransient(err) {
				c.logger.Warn("embedding attempt failed, retrying",
					append(logFields(p), zap.Int("attempt", attempt), zap.Error(err))...)
			}
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		c.failed(ctx, p)
		c.breaker.RecordFailure()
		if IsTransient(err) {
			return nil, fmt.Errorf("%w: %w", errs.ErrProviderTransient, err)
		}
		return nil, err
	}

	c.breaker.RecordSuccess()
	c.succeeded(ctx, p, len(vectors))
	return newResult(p, vectors), nil
}

// callFallback sends texts in chunks of the fallback's batch size, once each.
func (c *Client) callFallback(ctx context.Context, p Provider, texts []string, intent Intent) (*Result, error) {
	size := max(p.MaxBatch(), 1)
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		v, err := c.call(ctx, p, texts[start:end], intent)
		if err != nil {
			c.failed(ctx, p)
			return nil, err
		}
		c.succeeded(ctx, p, len(v))
		vectors = append(vectors, v...)
	}
	return newResult(p, vectors), nil
}

// call makes one bounded provider call and checks the vector count.
func (c *Client) call(ctx context.Context, p Provider, texts []string, intent Intent) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	vectors, err := p.Embed(callCtx, texts, intent)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%s returned %d vectors for %d texts", p.Name(), len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *Client) succeeded(ctx context.Context, p Provider, embeddings int) {
	if c.ledger == nil {
		return
	}
	if _, err := c.ledger.RecordRequest(ctx, p.Name(), embeddings); err != nil {
		c.logger.Warn("recording usage", append(logFields(p), zap.Error(err))...)
	}
}

func (c *Client) failed(ctx context.Context, p Provider) {
	c.mu.Lock()
	c.runErrors[p.Name()]++
	c.mu.Unlock()
	if c.ledger == nil {
		return
	}
	if err := c.ledger.RecordError(ctx, p.Name()); err != nil {
		c.logger.Warn("recording usage error", append(logFields(p), zap.Error(err))...)
	}
}

func newResult(p Provider, vectors [][]float32) *Result {
	dims := p.Dimensions()
	if len(vectors) > 0 && len(vectors[0]) > 0 {
		dims = len(vectors[0])
	}
	return &Result{Vectors: vectors, Model: p.Model(), Dimensions: dims, Provider: p.Name()}
}
