package commands

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/server"
	"github.com/hyperjump/wantokmatch/internal/watcher"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var syncOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Identity is taken from the X-User-ID and X-User-Role headers set by the
gateway in front of this service. With --watch, CV uploads and the job
board database are watched and re-indexed as they change.`,
		Example: `  wantokmatch serve
  wantokmatch serve --port 9000 --watch --sync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), syncOnStart)
		},
	}
	cmd.Flags().String("host", "", "listen host (overrides server.host)")
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	cmd.Flags().Bool("watch", false, "re-index on CV upload and database changes")
	cmd.Flags().BoolVar(&syncOnStart, "sync", false, "run a full sync in the background at startup")
	_ = settings.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = settings.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = settings.BindPFlag("watch.enabled", cmd.Flags().Lookup("watch"))
	return cmd
}

func runServe(ctx context.Context, syncOnStart bool) error {
	c, cleanup, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()
	logger := c.logger

	// Background work stops on shutdown.
	work, stopWork := context.WithCancel(context.Background())
	defer stopWork()

	if c.cfg.Watch.Enabled {
		w := newWatcher(work, c)
		if err := w.Start(work); err != nil {
			return err
		}
		defer w.Stop()
	}
	if syncOnStart {
		go func() {
			if _, err := c.indexer.Sync(work); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("startup sync failed", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(c.engine, c.indexer, c.client, c.store, c.cfg, logger,
		server.WithKeywordIndex(c.keyword))
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("host", c.cfg.Server.Host), zap.Int("port", c.cfg.Server.Port))
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	stopWork()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// newWatcher re-indexes a profile when its owner's CV changes and runs a full
// sync when the job board database changes.
func newWatcher(ctx context.Context, c *components) *watcher.Watcher {
	logger := c.logger.Named("watcher")
	dbPath := c.cfg.Source.DatabasePath
	if sameFile(dbPath, c.cfg.Storage.DatabasePath) {
		// Our own embedding writes would trigger a sync on every sync.
		logger.Warn("embeddings share the job board database, database changes are not watched",
			zap.String("path", dbPath))
		dbPath = ""
	}
	return watcher.NewWatcher(c.cfg.Source.UploadsDir, dbPath,
		func(userID int64) {
			if _, err := c.indexer.IndexProfile(ctx, userID); err != nil {
				if errors.Is(err, errs.ErrEntityNotFound) {
					logger.Debug("cv owner has no active profile", zap.Int64("user_id", userID))
					return
				}
				logger.Warn("profile re-index failed", zap.Int64("user_id", userID), zap.Error(err))
			}
		},
		func() {
			if _, err := c.indexer.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("sync after database change failed", zap.Error(err))
			}
		},
		watcher.WithDebounce(c.cfg.Watch.Debounce),
		watcher.WithLogger(logger),
	)
}

func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
