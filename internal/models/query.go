package models

import (
	"fmt"
	"strings"

	"github.com/hyperjump/wantokmatch/internal/errs"
)

// Bounds are the default and maximum values for one endpoint's paging parameters.
type Bounds struct {
	DefaultLimit    int
	MaxLimit        int
	DefaultMinScore float64
}

// SearchParams are the limit and score threshold shared by every search endpoint.
// Query is only used by semantic search.
type SearchParams struct {
	Query    string  `json:"q,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
}

// Normalize applies b: a non-positive limit becomes the default, a limit above
// the maximum is capped, and a non-positive or out of range min score becomes the default.
func (p *SearchParams) Normalize(b Bounds) {
	if p.Limit <= 0 {
		p.Limit = b.DefaultLimit
	}
	if b.MaxLimit > 0 && p.Limit > b.MaxLimit {
		p.Limit = b.MaxLimit
	}
	if p.MinScore <= 0 || p.MinScore > 1 {
		p.MinScore = b.DefaultMinScore
	}
}

// ValidateQuery trims the query and normalizes the parameters.
// Returns an error wrapping errs.ErrInvalidInput if the query is empty.
func (p *SearchParams) ValidateQuery(b Bounds) error {
	p.Query = strings.TrimSpace(p.Query)
	if p.Query == "" {
		return fmt.Errorf("%w: query parameter \"q\" is required", errs.ErrInvalidInput)
	}
	p.Normalize(b)
	return nil
}
