// Package cli formats engine responses for the wantokmatch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/wantokmatch/internal/embedding"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat accepts "text", "json" or "" (text).
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSemantic writes a free-text search response.
func WriteSemantic(w io.Writer, resp *models.SemanticResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	fmt.Fprintf(w, "\nFound %d jobs (method: %s)\n", resp.Total, resp.Method)
	if resp.QueryExpanded != "" {
		fmt.Fprintf(w, "Expanded query: %s\n", resp.QueryExpanded)
	}
	if resp.Error != "" {
		fmt.Fprintf(w, "Semantic search unavailable: %s\n", resp.Error)
	}
	fmt.Fprintln(w)
	for i, j := range resp.Jobs {
		writeJob(w, i+1, j, j.SemanticScore, resp.Method != models.MethodFTSFallback)
	}
	return nil
}

// WriteJobMatches writes match-jobs and similar-jobs responses. scoreLabel
// names the score column ("match", "similarity").
func WriteJobMatches(w io.Writer, resp *models.JobMatches, format OutputFormat, scoreLabel string) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	fmt.Fprintf(w, "\nFound %d jobs\n\n", resp.Total)
	for i, j := range resp.Jobs {
		score := j.MatchScore
		if scoreLabel == "similarity" {
			score = j.SimilarityScore
		}
		writeJob(w, i+1, j, score, true)
	}
	return nil
}

func writeJob(w io.Writer, rank int, j *models.ScoredJob, score float64, showScore bool) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	if showScore {
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", rank, score)
	} else {
		fmt.Fprintf(w, "Rank: %d\n", rank)
	}
	fmt.Fprintf(w, "ID: %d\n", j.ID)
	fmt.Fprintf(w, "Title: %s\n", j.Title)
	if company := firstNonEmpty(j.CompanyName, j.EmployerName); company != "" {
		fmt.Fprintf(w, "Employer: %s\n", company)
	}
	if j.Location != "" {
		fmt.Fprintf(w, "Location: %s\n", j.Location)
	}
	if j.Description != "" {
		fmt.Fprintf(w, "\n%s\n", TruncateWords(j.Description, 40))
	}
	fmt.Fprintln(w)
}

// WriteCandidates writes a match-candidates response as a table.
func WriteCandidates(w io.Writer, resp *models.CandidateMatches, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	fmt.Fprintf(w, "\nFound %d candidates\n\n", resp.Total)
	if len(resp.Candidates) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tHEADLINE\tLOCATION\tMATCH")
	for i, c := range resp.Candidates {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%.1f%%\n",
			i+1, c.UserID, c.Name, utils.Truncate(c.Headline, 40), c.Location, c.MatchScore*100)
	}
	return tw.Flush()
}

// WriteCompatibility writes a compatibility breakdown.
func WriteCompatibility(w io.Writer, res *models.CompatibilityResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	fmt.Fprintf(w, "\nCompatibility: %d/100 (%s)\n\n", res.Score, res.Method)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	b := res.Breakdown
	fmt.Fprintf(tw, "skills\t%d\n", b.Skills)
	fmt.Fprintf(tw, "location\t%d\n", b.Location)
	fmt.Fprintf(tw, "experience\t%d\n", b.Experience)
	fmt.Fprintf(tw, "salary\t%d\n", b.Salary)
	fmt.Fprintf(tw, "industry\t%d\n", b.Industry)
	if b.Semantic != nil {
		fmt.Fprintf(tw, "semantic\t%d\n", *b.Semantic)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	writeList(w, "Strengths", res.Strengths)
	writeList(w, "Weaknesses", res.Weaknesses)
	writeList(w, "Tips", res.Tips)
	return nil
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, s := range items {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

// WriteUsage writes today's provider usage and the breaker state.
func WriteUsage(w io.Writer, stats *embedding.UsageStats, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, stats)
	}
	fmt.Fprintf(w, "date:     %s\n", stats.Date)
	fmt.Fprintf(w, "breaker:  %s", stats.Breaker.State)
	if stats.Breaker.RecoveryIn != "" {
		fmt.Fprintf(w, " (recovery in %s)", stats.Breaker.RecoveryIn)
	}
	fmt.Fprintf(w, "\n\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tPROVIDER\tMODEL\tDIMS\tREQUESTS\tEMBEDDINGS\tERRORS\tREMAINING")
	for _, p := range stats.Providers {
		remaining := "unlimited"
		if p.Remaining != nil {
			remaining = fmt.Sprintf("%d req / %d emb", p.Remaining.DailyRequests, p.Remaining.DailyEmbeddings)
		}
		if !p.Configured {
			remaining = "not configured"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			p.Role, p.Name, p.Model, p.Dimensions, p.Requests, p.Embeddings, p.Errors, remaining)
	}
	return tw.Flush()
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
