package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var syncFirst bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-index on CV uploads and job board changes",
		Long: `Watch the uploads directory and the job board database without serving HTTP.

A new or replaced CV named <user-id>-<timestamp>.<ext> re-indexes that job
seeker. Database writes trigger a full sync, which only calls the
embedding provider for texts that changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, cleanup, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			if syncFirst {
				report, err := c.indexer.Sync(ctx)
				if err != nil {
					return fmt.Errorf("initial sync: %w", err)
				}
				c.logger.Info("initial sync finished", zap.String("run_id", report.RunID))
			}

			w := newWatcher(ctx, c)
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", c.cfg.Source.UploadsDir)
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&syncFirst, "sync", true, "run a full sync before watching")
	return cmd
}
