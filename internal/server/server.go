// Package server provides the HTTP API for wantokmatch.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/config"
	"github.com/hyperjump/wantokmatch/internal/embedding"
	"github.com/hyperjump/wantokmatch/internal/indexer"
	"github.com/hyperjump/wantokmatch/internal/keyword"
	"github.com/hyperjump/wantokmatch/internal/search"
	"github.com/hyperjump/wantokmatch/internal/vector"
	"github.com/hyperjump/wantokmatch/pkg/utils"
)

// UsageReporter reports provider usage and breaker state.
type UsageReporter interface {
	UsageStats(ctx context.Context) (*embedding.UsageStats, error)
}

// StatsReporter summarises the embeddings table.
type StatsReporter interface {
	Stats(ctx context.Context) (*vector.Stats, error)
}

// Server is the HTTP server for the wantokmatch API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	usage   UsageReporter
	stats   StatsReporter
	keyword keyword.Index
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server

	// base outlives individual requests and is cancelled by Stop.
	base   context.Context
	cancel context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithKeywordIndex reports the full-text index size in /embeddings/stats.
func WithKeywordIndex(k keyword.Index) Option {
	return func(s *Server) { s.keyword = k }
}

// NewServer creates a server with the given dependencies. idx may be nil,
// in which case the indexing hooks answer 501.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	usage UsageReporter,
	stats StatsReporter,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	logger = utils.OrNop(logger)
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		engine:  engine,
		indexer: idx,
		usage:   usage,
		stats:   stats,
		config:  cfg,
		logger:  logger,
		base:    base,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(identify)

	r.Get("/health", s.handleHealth)

	r.Route("/search", func(r chi.Router) {
		r.Get("/semantic", s.handleSemantic)
		r.Get("/similar/{jobId}", s.handleSimilar)

		r.Group(func(r chi.Router) {
			r.Use(requireCaller)
			r.Get("/match-jobs/{userId}", s.handleMatchJobs)
			r.Get("/match-candidates/{jobId}", s.handleMatchCandidates)
			r.Get("/match-candidates/{jobId}/export.xlsx", s.handleExportCandidates)
			r.Get("/compatibility/{jobId}", s.handleCompatibility)
		})
	})

	r.Route("/embeddings", func(r chi.Router) {
		r.Use(requireCaller, requireAdmin)
		r.Get("/usage", s.handleUsage)
		r.Get("/stats", s.handleStats)
		r.Post("/sync", s.handleSync)
		r.Post("/jobs/{jobId}", s.handleIndexJob)
		r.Delete("/jobs/{jobId}", s.handleRemoveJob)
		r.Post("/profiles/{userId}", s.handleIndexProfile)
		r.Delete("/profiles/{userId}", s.handleRemoveProfile)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.Server.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.base },
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop cancels in-flight provider work and gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// detach returns a context that ignores the client going away or a request
// deadline, so retries and backoff run to completion, but still ends when
// the server stops.
func (s *Server) detach(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	stop := context.AfterFunc(s.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
