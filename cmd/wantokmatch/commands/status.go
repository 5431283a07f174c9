package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/wantokmatch/internal/cli"
	"github.com/hyperjump/wantokmatch/internal/storage"
	"github.com/hyperjump/wantokmatch/internal/vector"
)

func writeJSON(cmd *cobra.Command, v interface{}) error {
	return cli.WriteJSON(cmd.OutOrStdout(), v)
}

// statusConfig holds configuration info returned by status.
type statusConfig struct {
	PrimaryProvider  string `json:"primary_provider"`
	FallbackProvider string `json:"fallback_provider"`
	SourceDatabase   string `json:"source_database"`
	UploadsDir       string `json:"uploads_dir"`
	DatabasePath     string `json:"database_path"`
	BleveIndexPath   string `json:"bleve_index_path"`
	LedgerPath       string `json:"ledger_path"`
}

type statusResponse struct {
	Embeddings       *vector.Stats      `json:"embeddings"`
	KeywordDocuments uint64             `json:"keyword_documents"`
	DiskUsage        *storage.DiskUsage `json:"disk_usage_bytes,omitempty"`
	Config           statusConfig       `json:"config"`
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show embedding and index status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := c.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			docs, err := c.keyword.DocCount()
			if err != nil {
				return err
			}
			cfg := c.cfg
			status := statusResponse{
				Embeddings:       stats,
				KeywordDocuments: docs,
				Config: statusConfig{
					PrimaryProvider:  cfg.Embedding.Primary,
					FallbackProvider: cfg.Embedding.Fallback,
					SourceDatabase:   cfg.Source.DatabasePath,
					UploadsDir:       cfg.Source.UploadsDir,
					DatabasePath:     cfg.Storage.DatabasePath,
					BleveIndexPath:   cfg.Storage.BleveIndexPath,
					LedgerPath:       cfg.Storage.LedgerPath,
				},
			}
			if du, err := storage.MeasureDisk(cfg.Storage); err == nil {
				status.DiskUsage = du
			}

			if format() == cli.OutputJSON {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "embeddings:         %d   # stored vectors\n", stats.Total)
			for _, t := range stats.ByType {
				fmt.Fprintf(out, "  %-8s          %d   # %s\n", t.EntityType, t.Count, t.Model)
			}
			if stats.Total > 0 {
				fmt.Fprintf(out, "dimensions:         %d-%d (avg %.0f)\n", stats.MinDimensions, stats.MaxDimensions, stats.AvgDimensions)
			}
			fmt.Fprintf(out, "keyword_documents:  %d   # active jobs in the full-text index\n", docs)
			if du := status.DiskUsage; du != nil {
				fmt.Fprintf(out, "disk_usage_bytes:   %d   # embeddings %d, keyword index %d, usage ledger %d\n",
					du.Total, du.Embeddings, du.Index, du.Ledger)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "# configuration")
			fmt.Fprintf(out, "primary_provider:   %s\n", status.Config.PrimaryProvider)
			fmt.Fprintf(out, "fallback_provider:  %s\n", status.Config.FallbackProvider)
			fmt.Fprintf(out, "source_database:    %s\n", status.Config.SourceDatabase)
			fmt.Fprintf(out, "uploads_dir:        %s\n", status.Config.UploadsDir)
			fmt.Fprintf(out, "database_path:      %s\n", status.Config.DatabasePath)
			fmt.Fprintf(out, "bleve_index_path:   %s\n", status.Config.BleveIndexPath)
			fmt.Fprintf(out, "ledger_path:        %s\n", status.Config.LedgerPath)
			return nil
		},
	}
}

// NewUsageCmd creates the usage command.
func NewUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show today's embedding provider usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			stats, err := c.client.UsageStats(cmd.Context())
			if err != nil {
				return err
			}
			return cli.WriteUsage(cmd.OutOrStdout(), stats, format())
		},
	}
}
