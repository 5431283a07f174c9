package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/compat"
	"github.com/hyperjump/wantokmatch/internal/config"
	"github.com/hyperjump/wantokmatch/internal/embedding"
	"github.com/hyperjump/wantokmatch/internal/extract"
	"github.com/hyperjump/wantokmatch/internal/indexer"
	"github.com/hyperjump/wantokmatch/internal/keyword"
	"github.com/hyperjump/wantokmatch/internal/search"
	"github.com/hyperjump/wantokmatch/internal/storage"
	"github.com/hyperjump/wantokmatch/internal/usage"
	"github.com/hyperjump/wantokmatch/internal/vector"
	"github.com/hyperjump/wantokmatch/pkg/utils"
)

// loadConfig reads .env, then the config file, then applies overrides.
// Without --config, ./config.yaml is used when it exists and built-in
// defaults otherwise.
func loadConfig() (*config.Config, string, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	applyOverrides(cfg, settings)
	if wd, err := os.Getwd(); err == nil {
		// Relative paths from the environment resolve against the working directory.
		cfg.ExpandPaths(wd)
	}
	return cfg, path, nil
}

// applyOverrides copies every key set in v (environment or flag) onto cfg.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	str("server.host", &cfg.Server.Host)
	str("storage.database_path", &cfg.Storage.DatabasePath)
	str("storage.ledger_path", &cfg.Storage.LedgerPath)
	str("storage.bleve_index_path", &cfg.Storage.BleveIndexPath)
	str("source.database_path", &cfg.Source.DatabasePath)
	str("source.uploads_dir", &cfg.Source.UploadsDir)
	str("embedding.primary", &cfg.Embedding.Primary)
	str("embedding.fallback", &cfg.Embedding.Fallback)
	str("embedding.cohere.api_key", &cfg.Embedding.Cohere.APIKey)
	str("embedding.huggingface.api_key", &cfg.Embedding.HuggingFace.APIKey)
	str("embedding.openai.api_key", &cfg.Embedding.OpenAI.APIKey)
	str("embedding.gemini.api_key", &cfg.Embedding.Gemini.APIKey)

	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("debug") && v.GetBool("debug") {
		cfg.Debug = true
	}
	if v.IsSet("watch.enabled") {
		cfg.Watch.Enabled = v.GetBool("watch.enabled")
	}
	if v.IsSet("watch.debounce") {
		cfg.Watch.Debounce = v.GetDuration("watch.debounce")
	}
}

// newLogger follows cfg.Debug. stderrOnly keeps stdout free for the MCP transport.
func newLogger(cfg *config.Config, stderrOnly bool) (*zap.Logger, error) {
	if stderrOnly {
		return utils.NewStderrLogger(cfg.Debug)
	}
	return utils.NewLogger(cfg.Debug)
}

// components holds the initialized services shared by every command.
type components struct {
	cfg     *config.Config
	logger  *zap.Logger
	source  *storage.SQLiteSource
	ledger  *usage.BadgerLedger
	client  *embedding.Client
	store   *vector.Store
	keyword *keyword.BleveIndex
	engine  *search.Engine
	indexer *indexer.Indexer
}

func (c *components) Close() {
	if c.keyword != nil {
		_ = c.keyword.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
	if c.ledger != nil {
		_ = c.ledger.Close()
	}
	if c.source != nil {
		_ = c.source.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *components, err error) {
	c := &components{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if _, statErr := os.Stat(cfg.Source.DatabasePath); errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("job board database not found at %s (set source.database_path or WANTOK_SOURCE_DATABASE_PATH)", cfg.Source.DatabasePath)
	}
	c.source, err = storage.OpenSQLite(cfg.Source.DatabasePath, storage.WithLogger(logger.Named("source")))
	if err != nil {
		return nil, err
	}

	c.ledger, err = usage.Open(cfg.Storage.LedgerPath, usage.WithLogger(logger.Named("ledger")))
	if err != nil {
		return nil, fmt.Errorf("failed to open usage ledger: %w", err)
	}

	c.client, err = embedding.NewClientFromConfig(ctx, cfg.Embedding, c.ledger, logger.Named("embedding"))
	if err != nil {
		return nil, err
	}

	c.store, err = vector.Open(cfg.Storage.DatabasePath, c.client, vector.WithLogger(logger.Named("vector")))
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Storage.BleveIndexPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	c.keyword, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	scorer := compat.NewScorer(c.store, logger.Named("compat"))
	c.engine = search.NewEngine(c.store, c.source, scorer, cfg.Search,
		search.WithLogger(logger.Named("search")),
		search.WithKeywordIndex(c.keyword),
	)
	c.indexer = indexer.NewIndexer(c.source, c.store,
		indexer.WithKeywordIndex(c.keyword),
		indexer.WithCVs(extract.NewExtractor(), cfg.Source.UploadsDir, cfg.Indexer.CVMaxChars),
		indexer.WithWorkers(cfg.Indexer.Workers),
		indexer.WithLogger(logger.Named("indexer")),
	)

	logger.Debug("components initialized",
		zap.String("source", cfg.Source.DatabasePath),
		zap.String("embeddings", cfg.Storage.DatabasePath),
		zap.String("primary", cfg.Embedding.Primary),
		zap.String("fallback", cfg.Embedding.Fallback),
	)
	return c, nil
}

// setup loads config, builds a logger and initializes components. The
// returned cleanup closes components and flushes the logger.
func setup(ctx context.Context, stderrOnly bool) (*components, func(), error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := newLogger(cfg, stderrOnly)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", cfg.Debug))

	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return c, func() {
		c.Close()
		_ = logger.Sync()
	}, nil
}
