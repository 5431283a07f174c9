package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/wantokmatch/internal/cli"
	"github.com/hyperjump/wantokmatch/internal/export"
	"github.com/hyperjump/wantokmatch/internal/models"
)

// searchFlags are the paging flags shared by every query command.
type searchFlags struct {
	limit    int
	minScore float64
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum results (0 = endpoint default)")
	cmd.Flags().Float64Var(&f.minScore, "min-score", 0, "minimum cosine similarity (0 = endpoint default)")
}

func (f *searchFlags) params() models.SearchParams {
	return models.SearchParams{Limit: f.limit, MinScore: f.minScore}
}

func parseID(arg, name string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, arg)
	}
	return id, nil
}

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		flags     searchFlags
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search active jobs by meaning",
		Long: `Search active jobs with a free-text query in English or Tok Pisin.

Tok Pisin terms are expanded with English equivalents. When the embedding
providers are unavailable or nothing clears the score threshold, the
keyword index answers instead (method "fts_fallback").

The query is all remaining arguments joined by spaces.`,
		Example: `  wantokmatch search wok ain long Lae
  wantokmatch search --limit 5 "painim wok long mining"
  wantokmatch search --server http://localhost:8090 haus kuk`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := flags.params()
			params.Query = strings.TrimSpace(strings.Join(args, " "))
			if serverURL != "" {
				resp, err := searchViaHTTP(cmd.Context(), serverURL, params)
				if err != nil {
					return err
				}
				return cli.WriteSemantic(cmd.OutOrStdout(), resp, format())
			}

			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			resp, err := c.engine.SemanticSearch(cmd.Context(), params)
			if err != nil {
				return err
			}
			return cli.WriteSemantic(cmd.OutOrStdout(), resp, format())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server instead of opening the stores (avoids index lock conflicts)")
	return cmd
}

// searchViaHTTP queries a running server's public semantic endpoint.
func searchViaHTTP(ctx context.Context, serverURL string, params models.SearchParams) (*models.SemanticResponse, error) {
	q := url.Values{"q": {params.Query}}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.MinScore > 0 {
		q.Set("min_score", strconv.FormatFloat(params.MinScore, 'f', -1, 64))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(serverURL, "/")+"/search/semantic?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out models.SemanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// NewSimilarCmd creates the similar command.
func NewSimilarCmd() *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "similar <job-id>",
		Short: "List active jobs similar to a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0], "job id")
			if err != nil {
				return err
			}
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			resp, err := c.engine.SimilarJobs(cmd.Context(), jobID, flags.params())
			if err != nil {
				return err
			}
			return cli.WriteJobMatches(cmd.OutOrStdout(), resp, format(), "similarity")
		},
	}
	flags.register(cmd)
	return cmd
}

// NewMatchJobsCmd creates the match-jobs command.
func NewMatchJobsCmd() *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "match-jobs <user-id>",
		Short: "Rank active jobs for a job seeker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			resp, err := c.engine.MatchJobsForUser(cmd.Context(), models.SystemCaller, userID, flags.params())
			if err != nil {
				return err
			}
			return cli.WriteJobMatches(cmd.OutOrStdout(), resp, format(), "match")
		},
	}
	flags.register(cmd)
	return cmd
}

// NewMatchCandidatesCmd creates the match-candidates command.
func NewMatchCandidatesCmd() *cobra.Command {
	var (
		flags    searchFlags
		xlsxPath string
	)
	cmd := &cobra.Command{
		Use:   "match-candidates <job-id>",
		Short: "Rank job seekers for a job",
		Long: `Rank active job seekers for a job by profile similarity.

With --xlsx the ranking is also written as a spreadsheet. A directory
argument gets a generated file name such as
candidates_Mine_Engineer_2026-10-19.xlsx.`,
		Example: `  wantokmatch match-candidates 42
  wantokmatch match-candidates --min-score 0.7 --xlsx ./exports 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0], "job id")
			if err != nil {
				return err
			}
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx := cmd.Context()
			resp, err := c.engine.MatchCandidatesForJob(ctx, models.SystemCaller, jobID, flags.params())
			if err != nil {
				return err
			}
			if xlsxPath != "" {
				job, err := c.engine.Job(ctx, jobID)
				if err != nil {
					return err
				}
				path, err := writeXLSX(xlsxPath, job, resp)
				if err != nil {
					return err
				}
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d candidates to %s\n", resp.Total, path)
				}
			}
			return cli.WriteCandidates(cmd.OutOrStdout(), resp, format())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the ranking to this .xlsx file or directory")
	return cmd
}

func writeXLSX(target string, job *models.Job, matches *models.CandidateMatches) (string, error) {
	path := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		path = filepath.Join(target, export.Filename(job, time.Now()))
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := export.WriteCandidates(f, matches); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

// NewCompatibilityCmd creates the compatibility command.
func NewCompatibilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compatibility <user-id> <job-id>",
		Short: "Explain how well a job seeker fits a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			jobID, err := parseID(args[1], "job id")
			if err != nil {
				return err
			}
			c, cleanup, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := c.engine.Compatibility(cmd.Context(), models.SystemCaller, userID, jobID)
			if err != nil {
				return err
			}
			return cli.WriteCompatibility(cmd.OutOrStdout(), res, format())
		},
	}
}
