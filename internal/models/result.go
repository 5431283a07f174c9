package models

// Search methods reported in responses.
const (
	MethodSemantic    = "semantic"
	MethodFTSFallback = "fts_fallback"
	MethodFTS         = "fts"
)

// ScoreEntry mirrors one vector store hit in a response. Full-text fallback
// entries carry a zero score and Method "fts".
type ScoreEntry struct {
	EntityID int64   `json:"entity_id,omitempty"`
	Score    float64 `json:"score"`
	Method   string  `json:"method,omitempty"`
}

// ScoredJob is a hydrated job with the score that ranked it. Only the field
// matching the endpoint is set.
type ScoredJob struct {
	*Job
	SemanticScore   float64 `json:"semantic_score,omitempty"`
	MatchScore      float64 `json:"match_score,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
}

// ScoredCandidate is a hydrated job seeker with its match score.
type ScoredCandidate struct {
	*Profile
	MatchScore float64 `json:"match_score"`
}

// SemanticResponse is returned by free-text job search.
type SemanticResponse struct {
	Jobs          []*ScoredJob `json:"jobs"`
	Scores        []ScoreEntry `json:"scores"`
	QueryExpanded string       `json:"query_expanded"`
	Method        string       `json:"method"`
	Total         int          `json:"total"`
	Error         string       `json:"error,omitempty"`
}

// JobMatches is returned by the match-jobs and similar-jobs endpoints.
type JobMatches struct {
	Jobs   []*ScoredJob `json:"jobs"`
	Scores []ScoreEntry `json:"scores"`
	Total  int          `json:"total"`
}

// CandidateMatches is returned by the match-candidates endpoint.
type CandidateMatches struct {
	Candidates []*ScoredCandidate `json:"candidates"`
	Scores     []ScoreEntry       `json:"scores"`
	Total      int                `json:"total"`
}

// ScoreEntries converts vector store matches to response entries.
func ScoreEntries(matches []Match) []ScoreEntry {
	out := make([]ScoreEntry, len(matches))
	for i, m := range matches {
		out[i] = ScoreEntry{EntityID: m.EntityID, Score: m.Score}
	}
	return out
}
