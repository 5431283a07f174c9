package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	coherecore "github.com/cohere-ai/cohere-go/v2/core"
	"github.com/hyperjump/wantokmatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCohere_wireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embed", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model          string   `json:"model"`
			Texts          []string `json:"texts"`
			InputType      string   `json:"input_type"`
			EmbeddingTypes []string `json:"embedding_types"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "embed-english-v3.0", body.Model)
		assert.Equal(t, []string{"nurse", "driver"}, body.Texts)
		assert.Equal(t, "search_query", body.InputType)
		assert.Equal(t, []string{"float"}, body.EmbeddingTypes)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response_type":"embeddings_by_type","id":"x",` +
			`"embeddings":{"float":[[0.5,0.25],[0.125,1]]},"texts":["nurse","driver"]}`))
	}))
	defer srv.Close()

	c := NewCohere(config.ProviderConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "embed-english-v3.0"}, srv.Client())
	require.True(t, c.Configured())

	got, err := c.Embed(context.Background(), []string{"nurse", "driver"}, IntentQuery)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.25}, {0.125, 1}}, got)
}

func TestCohere_documentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			InputType string `json:"input_type"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "search_document", body.InputType)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response_type":"embeddings_by_type","id":"x","embeddings":{"float":[[1,0]]}}`))
	}))
	defer srv.Close()

	c := NewCohere(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	got, err := c.Embed(context.Background(), []string{"Boilermaker, Lae"}, IntentDocument)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCohere_errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"invalid api token"}`, false},
		{"bad request", http.StatusBadRequest, `{"message":"invalid input_type"}`, false},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, true},
		{"server error", http.StatusBadGateway, `{"message":"upstream"}`, true},
		{"unavailable", http.StatusServiceUnavailable, `{"message":"overloaded"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewCohere(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
			_, err := c.Embed(context.Background(), []string{"x"}, IntentDocument)
			require.Error(t, err)
			var apiErr *coherecore.APIError
			require.True(t, errors.As(err, &apiErr), "got %T: %v", err, err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, 1, calls, "the SDK must not retry on its own")
		})
	}
}

func TestCohere_missingEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response_type":"embeddings_by_type","id":"x","embeddings":{}}`))
	}))
	defer srv.Close()

	c := NewCohere(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	_, err := c.Embed(context.Background(), []string{"x"}, IntentDocument)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCohere_notConfiguredWithoutKey(t *testing.T) {
	assert.False(t, NewCohere(config.ProviderConfig{}, nil).Configured())
}

func TestHuggingFace_wireFormat(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/models/sentence-transformers/all-MiniLM-L6-v2", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body hfRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Options.WaitForModel)
		if body.Inputs == "tokens" {
			_, _ = w.Write([]byte(`[[1,2],[3,4]]`))
			return
		}
		_, _ = w.Write([]byte(`[0.5,0.25]`))
	}))
	defer srv.Close()

	h := NewHuggingFace(config.ProviderConfig{BaseURL: srv.URL, Model: "sentence-transformers/all-MiniLM-L6-v2"}, srv.Client())
	assert.Equal(t, 1, h.MaxBatch())

	got, err := h.Embed(context.Background(), []string{"pooled", "tokens"}, IntentDocument)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "one request per text")
	assert.Equal(t, []float32{0.5, 0.25}, got[0])
	assert.Equal(t, []float32{2, 3}, got[1], "token vectors are mean-pooled")
}

func TestHuggingFace_bearerWhenKeySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[1]`))
	}))
	defer srv.Close()

	h := NewHuggingFace(config.ProviderConfig{APIKey: "hf-key", BaseURL: srv.URL, Model: "m"}, srv.Client())
	_, err := h.Embed(context.Background(), []string{"x"}, IntentDocument)
	require.NoError(t, err)
}

func TestHuggingFace_invalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"loading"}`))
	}))
	defer srv.Close()

	h := NewHuggingFace(config.ProviderConfig{BaseURL: srv.URL, Model: "m"}, srv.Client())
	_, err := h.Embed(context.Background(), []string{"x"}, IntentDocument)
	assert.Error(t, err)
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider(config.ProviderConfig{Dimensions: 32})
	ctx := context.Background()

	a, err := m.Embed(ctx, []string{"security guard Lae", "security guard Lae"}, IntentDocument)
	require.NoError(t, err)
	assert.Equal(t, a[0], a[1], "deterministic")
	assert.Len(t, a[0], 32)

	var norm float64
	for _, v := range a[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	b, err := m.Embed(ctx, []string{"!!!"}, IntentQuery)
	require.NoError(t, err)
	assert.NotEqual(t, make([]float32, 32), b[0], "text without words still gets a non-zero vector")
	assert.Equal(t, 2, m.Calls())

	m.FailWith(errors.New("boom"))
	_, err = m.Embed(ctx, []string{"x"}, IntentQuery)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default().Embedding
	ctx := context.Background()
	for _, name := range []string{config.ProviderCohere, config.ProviderHuggingFace, config.ProviderOpenAI, config.ProviderGemini, config.ProviderMock} {
		p, err := NewProvider(ctx, name, cfg)
		require.NoError(t, err, name)
		require.NotNil(t, p, name)
		assert.Equal(t, name, p.Name())
	}

	p, err := NewProvider(ctx, config.ProviderNone, cfg)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = NewProvider(ctx, "bogus", cfg)
	assert.Error(t, err)
}
