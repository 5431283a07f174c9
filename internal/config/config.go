// Package config provides configuration loading and structs for the wantokmatch server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Source    SourceConfig    `yaml:"source"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig holds paths for the state this service owns.
type StorageConfig struct {
	// DatabasePath is the SQLite file holding the embeddings table. It may be
	// the job board database itself.
	DatabasePath   string `yaml:"database_path"`
	LedgerPath     string `yaml:"ledger_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// SourceConfig points at the job board database, opened read only.
type SourceConfig struct {
	DatabasePath string `yaml:"database_path"`
	// UploadsDir is the directory cv_url paths such as /uploads/cvs/12-1700000000.pdf resolve against.
	UploadsDir string `yaml:"uploads_dir"`
}

// ProviderConfig configures one embedding provider variant.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxBatch   int    `yaml:"max_batch"`
	// DailyRequests and DailyEmbeddings are soft caps; 0 means unlimited.
	DailyRequests   int64 `yaml:"daily_requests"`
	DailyEmbeddings int64 `yaml:"daily_embeddings"`
}

// BreakerConfig configures the primary provider's circuit breaker.
type BreakerConfig struct {
	Threshold       int           `yaml:"threshold"`
	Window          time.Duration `yaml:"window"`
	RecoveryTimeout time.Duration `yaml:"recovery_timeout"`
}

// EmbeddingConfig selects the provider pair and the call discipline.
type EmbeddingConfig struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`

	Cohere      ProviderConfig `yaml:"cohere"`
	OpenAI      ProviderConfig `yaml:"openai"`
	Gemini      ProviderConfig `yaml:"gemini"`
	HuggingFace ProviderConfig `yaml:"huggingface"`
	Mock        ProviderConfig `yaml:"mock"`

	MinDelay       time.Duration `yaml:"min_delay"`
	MaxRetries     int           `yaml:"max_retries"`
	BaseBackoff    time.Duration `yaml:"base_backoff"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CapRatio       float64       `yaml:"cap_ratio"`
	QueryCacheSize int           `yaml:"query_cache_size"`
	Breaker        BreakerConfig `yaml:"breaker"`
}

// SearchConfig holds per-endpoint limits and thresholds.
type SearchConfig struct {
	SemanticDefaultLimit int     `yaml:"semantic_default_limit"`
	SemanticMaxLimit     int     `yaml:"semantic_max_limit"`
	SemanticMinScore     float64 `yaml:"semantic_min_score"`
	MatchDefaultLimit    int     `yaml:"match_default_limit"`
	MatchMaxLimit        int     `yaml:"match_max_limit"`
	MatchMinScore        float64 `yaml:"match_min_score"`
	SimilarDefaultLimit  int     `yaml:"similar_default_limit"`
	SimilarMaxLimit      int     `yaml:"similar_max_limit"`
	SimilarMinScore      float64 `yaml:"similar_min_score"`
	FuzzyFallback        bool    `yaml:"fuzzy_fallback"`
}

// IndexerConfig controls background embedding of jobs and profiles.
type IndexerConfig struct {
	Workers    int `yaml:"workers"`
	CVMaxChars int `yaml:"cv_max_chars"`
}

// WatchConfig controls the upload and database watcher.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.ExpandPaths(filepath.Dir(path))
	return &cfg, nil
}

// Default returns a configuration with every default applied, for runs without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	if wd, err := os.Getwd(); err == nil {
		cfg.ExpandPaths(wd)
	}
	return &cfg
}

// ExpandPaths makes every path in cfg absolute relative to configDir.
func (c *Config) ExpandPaths(configDir string) {
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Storage.LedgerPath = expandPath(c.Storage.LedgerPath, configDir)
	c.Storage.BleveIndexPath = expandPath(c.Storage.BleveIndexPath, configDir)
	c.Source.DatabasePath = expandPath(c.Source.DatabasePath, configDir)
	c.Source.UploadsDir = expandPath(c.Source.UploadsDir, configDir)
}

// expandPath converts a path to absolute. "~/" is the home directory; other
// relative paths are relative to configDir. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
