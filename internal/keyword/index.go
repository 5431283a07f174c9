// Package keyword provides the full-text job index used when semantic search
// has nothing to offer.
package keyword

import (
	"context"
	"regexp"
	"strings"

	"github.com/hyperjump/wantokmatch/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies matches in the job title. Default 3.0.
	TitleBoost float64
	// PhraseBoost multiplies the score when query terms appear next to each other.
	// Use 1.0 for no boost.
	PhraseBoost float64
	// FuzzyFallback retries with fuzzy term queries when the exact search finds nothing.
	FuzzyFallback bool
	// Fuzziness is the maximum edit distance for the fuzzy retry (1 or 2). Default 1.
	Fuzziness int
}

// Index defines full-text job operations.
type Index interface {
	IndexJob(ctx context.Context, job *models.Job) error
	Delete(ctx context.Context, jobID int64) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	DocCount() (uint64, error)
	// JobIDs lists every indexed job id, ascending.
	JobIDs(ctx context.Context) ([]int64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	JobID int64
	Score float64
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Sanitize replaces every character that is neither a word character nor
// whitespace with a space, so user input can never be parsed as query syntax.
func Sanitize(query string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(query, " "))
}
