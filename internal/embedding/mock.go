package embedding

import (
	"context"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/hyperjump/wantokmatch/internal/config"
	"github.com/hyperjump/wantokmatch/pkg/utils"
)

// MockProvider is a deterministic provider for tests and offline runs. Each
// word is hashed into a bucket so texts that share words score above zero,
// and the same text always gets the same vector.
type MockProvider struct {
	dimensions int
	maxBatch   int
	calls      atomic.Int64

	mu  sync.Mutex
	err error
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider returns a mock provider producing vectors of the given size.
func NewMockProvider(cfg config.ProviderConfig) *MockProvider {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 64
	}
	batch := cfg.MaxBatch
	if batch <= 0 {
		batch = 32
	}
	return &MockProvider{dimensions: dims, maxBatch: batch}
}

func (m *MockProvider) Name() string     { return config.ProviderMock }
func (m *MockProvider) Model() string    { return "mock-hash" }
func (m *MockProvider) Dimensions() int  { return m.dimensions }
func (m *MockProvider) MaxBatch() int    { return m.maxBatch }
func (m *MockProvider) Limits() Limits   { return Limits{} }
func (m *MockProvider) Configured() bool { return true }

// Calls returns how many Embed calls were made.
func (m *MockProvider) Calls() int { return int(m.calls.Load()) }

// FailWith makes every following Embed call return err; nil restores success.
func (m *MockProvider) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockProvider) Embed(ctx context.Context, texts []string, _ Intent) ([][]float32, error) {
	m.calls.Add(1)
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockProvider) vector(text string) []float32 {
	emb := make([]float32, m.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		emb[uint(HashString(w))%uint(m.dimensions)] += 1
	}
	if len(words) == 0 {
		h := HashString(text)
		for i := range emb {
			emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
		}
	}
	utils.NormalizeL2(emb)
	return emb
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
