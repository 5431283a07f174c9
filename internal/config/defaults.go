package config

import "time"

// Provider names accepted by embedding.primary and embedding.fallback.
const (
	ProviderCohere      = "cohere"
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
	ProviderMock        = "mock"
	ProviderNone        = "none"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.WriteTimeout == 0 {
		// Long enough for three 60s provider attempts plus backoff on a cold query.
		cfg.Server.WriteTimeout = 4 * time.Minute
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/embeddings.db"
	}
	if cfg.Storage.LedgerPath == "" {
		cfg.Storage.LedgerPath = "./data/usage"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./data/jobs.bleve"
	}
	if cfg.Source.DatabasePath == "" {
		cfg.Source.DatabasePath = "./data/wantokjobs.db"
	}
	if cfg.Source.UploadsDir == "" {
		cfg.Source.UploadsDir = "./data/uploads"
	}
	applyEmbeddingDefaults(&cfg.Embedding)
	applySearchDefaults(&cfg.Search)
	if cfg.Indexer.Workers == 0 {
		cfg.Indexer.Workers = 2
	}
	if cfg.Indexer.CVMaxChars == 0 {
		cfg.Indexer.CVMaxChars = 2000
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
}

func applyEmbeddingDefaults(e *EmbeddingConfig) {
	if e.Primary == "" {
		e.Primary = ProviderCohere
	}
	if e.Fallback == "" {
		e.Fallback = ProviderHuggingFace
	}
	providerDefaults(&e.Cohere, ProviderConfig{
		BaseURL: "https://api.cohere.com", Model: "embed-english-v3.0", Dimensions: 1024,
		MaxBatch: 96, DailyRequests: 1000, DailyEmbeddings: 50000,
	})
	providerDefaults(&e.OpenAI, ProviderConfig{
		Model: "text-embedding-3-small", Dimensions: 1536, MaxBatch: 96,
	})
	providerDefaults(&e.Gemini, ProviderConfig{
		Model: "text-embedding-004", Dimensions: 768, MaxBatch: 96,
	})
	providerDefaults(&e.HuggingFace, ProviderConfig{
		BaseURL: "https://router.huggingface.co/hf-inference", Model: "sentence-transformers/all-MiniLM-L6-v2",
		Dimensions: 384, MaxBatch: 1, DailyRequests: 10000, DailyEmbeddings: 10000,
	})
	providerDefaults(&e.Mock, ProviderConfig{Model: "mock-hash", Dimensions: 64, MaxBatch: 32})
	if e.MinDelay == 0 {
		e.MinDelay = 650 * time.Millisecond
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = 3
	}
	if e.BaseBackoff == 0 {
		e.BaseBackoff = time.Second
	}
	if e.RequestTimeout == 0 {
		e.RequestTimeout = 60 * time.Second
	}
	if e.CapRatio == 0 {
		e.CapRatio = 0.95
	}
	if e.QueryCacheSize == 0 {
		e.QueryCacheSize = 1000
	}
	if e.Breaker.Threshold == 0 {
		e.Breaker.Threshold = 5
	}
	if e.Breaker.Window == 0 {
		e.Breaker.Window = 10 * time.Minute
	}
	if e.Breaker.RecoveryTimeout == 0 {
		e.Breaker.RecoveryTimeout = 5 * time.Minute
	}
}

func providerDefaults(p *ProviderConfig, d ProviderConfig) {
	if p.BaseURL == "" {
		p.BaseURL = d.BaseURL
	}
	if p.Model == "" {
		p.Model = d.Model
	}
	if p.Dimensions == 0 {
		p.Dimensions = d.Dimensions
	}
	if p.MaxBatch == 0 {
		p.MaxBatch = d.MaxBatch
	}
	if p.DailyRequests == 0 {
		p.DailyRequests = d.DailyRequests
	}
	if p.DailyEmbeddings == 0 {
		p.DailyEmbeddings = d.DailyEmbeddings
	}
}

func applySearchDefaults(s *SearchConfig) {
	if s.SemanticDefaultLimit == 0 {
		s.SemanticDefaultLimit = 20
	}
	if s.SemanticMaxLimit == 0 {
		s.SemanticMaxLimit = 100
	}
	if s.SemanticMinScore == 0 {
		s.SemanticMinScore = 0.5
	}
	if s.MatchDefaultLimit == 0 {
		s.MatchDefaultLimit = 20
	}
	if s.MatchMaxLimit == 0 {
		s.MatchMaxLimit = 100
	}
	if s.MatchMinScore == 0 {
		s.MatchMinScore = 0.6
	}
	if s.SimilarDefaultLimit == 0 {
		s.SimilarDefaultLimit = 10
	}
	if s.SimilarMaxLimit == 0 {
		s.SimilarMaxLimit = 50
	}
	if s.SimilarMinScore == 0 {
		s.SimilarMinScore = 0.5
	}
}
