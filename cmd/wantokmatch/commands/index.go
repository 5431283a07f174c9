package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/wantokmatch/internal/cli"
	"github.com/hyperjump/wantokmatch/internal/indexer"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/internal/vector"
)

// NewIndexCmd creates the index command. Without a subcommand it runs a full sync.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed jobs and job seeker profiles",
		Long: `Embed every active job and job seeker profile, or a single entity.

Unchanged texts are served from stored embeddings and cost no provider
call, so a full sync is cheap to repeat.`,
		Example: `  wantokmatch index
  wantokmatch index job 42
  wantokmatch index profile 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			report, err := c.indexer.Sync(cmd.Context())
			if err != nil {
				return err
			}
			return writeSyncReport(cmd, report)
		},
	}
	cmd.AddCommand(
		newIndexEntityCmd(models.EntityJob, "Embed one job", func(idx *indexer.Indexer) indexFunc { return idx.IndexJob }),
		newIndexEntityCmd(models.EntityProfile, "Embed one job seeker profile", func(idx *indexer.Indexer) indexFunc { return idx.IndexProfile }),
	)
	return cmd
}

type indexFunc func(ctx context.Context, id int64) (*vector.UpsertResult, error)

func newIndexEntityCmd(entityType, short string, pick func(*indexer.Indexer) indexFunc) *cobra.Command {
	return &cobra.Command{
		Use:   entityType + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], entityType+" id")
			if err != nil {
				return err
			}
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := pick(c.indexer)(cmd.Context(), id)
			if err != nil {
				return err
			}
			if format() == cli.OutputJSON {
				return writeJSON(cmd, res)
			}
			cached := ""
			if res.Cached {
				cached = " (unchanged)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s %d with %s/%s, %d dimensions%s\n",
				entityType, id, res.Provider, res.Model, res.Dimensions, cached)
			return nil
		},
	}
}

func writeSyncReport(cmd *cobra.Command, report *indexer.SyncReport) error {
	if format() == cli.OutputJSON {
		return writeJSON(cmd, report)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sync %s finished in %s\n", report.RunID, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "jobs:      %d processed, %d unchanged, %d errors, %d removed\n",
		report.Jobs.Processed, report.Jobs.Cached, report.Jobs.Errors, report.JobsRemoved)
	fmt.Fprintf(out, "profiles:  %d processed, %d unchanged, %d errors, %d removed\n",
		report.Profiles.Processed, report.Profiles.Cached, report.Profiles.Errors, report.ProfilesRemoved)
	return nil
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a job or profile embedding",
	}
	for _, entityType := range []string{models.EntityJob, models.EntityProfile} {
		cmd.AddCommand(&cobra.Command{
			Use:   entityType + " <id>",
			Short: "Remove one " + entityType + " embedding",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], entityType+" id")
				if err != nil {
					return err
				}
				c, cleanup, err := setup(cmd.Context(), false)
				if err != nil {
					return err
				}
				defer cleanup()
				remove := c.indexer.RemoveProfile
				if entityType == models.EntityJob {
					remove = c.indexer.RemoveJob
				}
				deleted, err := remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if format() == cli.OutputJSON {
					return writeJSON(cmd, map[string]bool{"deleted": deleted})
				}
				if deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %d\n", entityType, id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "No embedding stored for %s %d\n", entityType, id)
				}
				return nil
			},
		})
	}
	return cmd
}

// NewClearCmd creates the clear command.
func NewClearCmd() *cobra.Command {
	var (
		entityType string
		yes        bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored embeddings",
		Long: `Delete every stored embedding, or only those of one entity type.

The next sync re-embeds everything it finds, which spends provider quota.`,
		Example: `  wantokmatch clear --yes
  wantokmatch clear --type profile --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch entityType {
			case "", models.EntityJob, models.EntityProfile:
			default:
				return fmt.Errorf("invalid --type %q: use job or profile", entityType)
			}
			if !yes {
				return errors.New("refusing to clear embeddings without --yes")
			}
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			if entityType == "" {
				if err := c.store.ClearAll(cmd.Context()); err != nil {
					return err
				}
				if !quiet {
					fmt.Fprintln(cmd.OutOrStdout(), "Cleared all embeddings")
				}
				return nil
			}
			n, err := c.store.ClearType(cmd.Context(), entityType)
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s embeddings\n", n, entityType)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "only clear this entity type (job or profile)")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
