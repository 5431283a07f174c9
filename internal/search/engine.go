// Package search answers the job board's search and matching queries by
// combining the vector store, the job board database and the full-text index.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/compat"
	"github.com/hyperjump/wantokmatch/internal/config"
	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/expand"
	"github.com/hyperjump/wantokmatch/internal/keyword"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/internal/storage"
)

// VectorSearcher is the read side of the vector store.
type VectorSearcher interface {
	Search(ctx context.Context, query, entityType string, limit int, minScore float64) ([]models.Match, error)
	FindSimilar(ctx context.Context, entityType string, entityID int64, limit int, minScore float64) ([]models.Match, error)
	FindSimilarAcross(ctx context.Context, sourceType string, sourceID int64, targetType string, limit int, minScore float64) ([]models.Match, error)
	GetVector(ctx context.Context, entityType string, entityID int64) ([]float32, error)
}

// Engine performs semantic search and matching.
type Engine struct {
	vectors VectorSearcher
	source  storage.Source
	keyword keyword.Index
	scorer  *compat.Scorer
	config  config.SearchConfig
	logger  *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithKeywordIndex enables the full-text fallback.
func WithKeywordIndex(k keyword.Index) EngineOption {
	return func(e *Engine) { e.keyword = k }
}

// NewEngine creates a search engine. A nil scorer gets one reading from vectors.
func NewEngine(vectors VectorSearcher, source storage.Source, scorer *compat.Scorer, cfg config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		vectors: vectors,
		source:  source,
		scorer:  scorer,
		config:  cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scorer == nil {
		e.scorer = compat.NewScorer(vectors, e.logger)
	}
	return e
}

// SemanticBounds returns the paging bounds of free-text search.
func (e *Engine) SemanticBounds() models.Bounds {
	return models.Bounds{
		DefaultLimit:    e.config.SemanticDefaultLimit,
		MaxLimit:        e.config.SemanticMaxLimit,
		DefaultMinScore: e.config.SemanticMinScore,
	}
}

// MatchBounds returns the paging bounds of the job and candidate match endpoints.
func (e *Engine) MatchBounds() models.Bounds {
	return models.Bounds{
		DefaultLimit:    e.config.MatchDefaultLimit,
		MaxLimit:        e.config.MatchMaxLimit,
		DefaultMinScore: e.config.MatchMinScore,
	}
}

// SimilarBounds returns the paging bounds of similar-jobs lookups.
func (e *Engine) SimilarBounds() models.Bounds {
	return models.Bounds{
		DefaultLimit:    e.config.SimilarDefaultLimit,
		MaxLimit:        e.config.SimilarMaxLimit,
		DefaultMinScore: e.config.SimilarMinScore,
	}
}

// SemanticSearch finds active jobs for a free-text query, Tok Pisin included.
// When the vector search fails or finds nothing above the threshold the
// response comes from the full-text index instead, with Method set to
// models.MethodFTSFallback. Only an empty query or a database failure is
// returned as an error.
func (e *Engine) SemanticSearch(ctx context.Context, params models.SearchParams) (*models.SemanticResponse, error) {
	if err := params.ValidateQuery(e.SemanticBounds()); err != nil {
		return nil, err
	}
	expanded := expand.Expand(params.Query)

	matches, err := e.vectors.Search(ctx, params.Query, models.EntityJob, params.Limit, params.MinScore)
	if err != nil {
		e.logger.Warn("semantic search failed, using full-text fallback",
			zap.String("query", params.Query), zap.Error(err))
		return e.fallback(ctx, expanded, params.Limit, err)
	}
	if len(matches) == 0 {
		return e.fallback(ctx, expanded, params.Limit, nil)
	}

	jobs, err := e.hydrateJobs(ctx, matches, func(j *models.ScoredJob, score float64) { j.SemanticScore = score })
	if err != nil {
		return nil, err
	}
	return &models.SemanticResponse{
		Jobs:          jobs,
		Scores:        models.ScoreEntries(matches),
		QueryExpanded: expanded,
		Method:        models.MethodSemantic,
		Total:         len(jobs),
	}, nil
}

// fallback answers from the full-text index. cause, when set, is reported in
// the response's error field.
func (e *Engine) fallback(ctx context.Context, expanded string, limit int, cause error) (*models.SemanticResponse, error) {
	resp := &models.SemanticResponse{
		Jobs:          []*models.ScoredJob{},
		Scores:        []models.ScoreEntry{},
		QueryExpanded: expanded,
		Method:        models.MethodFTSFallback,
	}
	if cause != nil {
		resp.Error = cause.Error()
	}
	if e.keyword == nil {
		return resp, nil
	}

	hits, err := e.keyword.Search(ctx, expanded, limit, &keyword.SearchOptions{FuzzyFallback: e.config.FuzzyFallback})
	if err != nil {
		e.logger.Warn("full-text fallback failed", zap.Error(err))
		if resp.Error == "" {
			resp.Error = err.Error()
		}
		return resp, nil
	}
	if len(hits) == 0 {
		return resp, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.JobID
	}
	rows, err := e.source.GetJobs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	byID := make(map[int64]*models.Job, len(rows))
	for _, j := range rows {
		byID[j.ID] = j
	}
	// Index order is the ranking; jobs closed since they were indexed drop out.
	for _, h := range hits {
		j, ok := byID[h.JobID]
		if !ok {
			continue
		}
		resp.Jobs = append(resp.Jobs, &models.ScoredJob{Job: j})
		resp.Scores = append(resp.Scores, models.ScoreEntry{EntityID: j.ID, Method: models.MethodFTS})
	}
	resp.Total = len(resp.Jobs)
	return resp, nil
}

// MatchJobsForUser recommends active jobs for a job seeker's stored profile
// vector. Callers other than the user need the admin role.
func (e *Engine) MatchJobsForUser(ctx context.Context, caller *models.Caller, userID int64, params models.SearchParams) (*models.JobMatches, error) {
	if !caller.IsAdmin() && !caller.Is(userID) {
		return nil, fmt.Errorf("%w: can only view matches for your own profile", errs.ErrNotAuthorized)
	}
	params.Normalize(e.MatchBounds())

	if err := e.requireVector(ctx, models.EntityProfile, userID); err != nil {
		return nil, err
	}
	matches, err := e.vectors.FindSimilarAcross(ctx, models.EntityProfile, userID, models.EntityJob, params.Limit, params.MinScore)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &models.JobMatches{Jobs: []*models.ScoredJob{}, Scores: []models.ScoreEntry{}}, nil
	}
	jobs, err := e.hydrateJobs(ctx, matches, func(j *models.ScoredJob, score float64) { j.MatchScore = score })
	if err != nil {
		return nil, err
	}
	return &models.JobMatches{Jobs: jobs, Scores: models.ScoreEntries(matches), Total: len(jobs)}, nil
}

// MatchCandidatesForJob recommends active job seekers for a job. The caller
// must be an employer owning the job, or an admin. The job may be in any status.
func (e *Engine) MatchCandidatesForJob(ctx context.Context, caller *models.Caller, jobID int64, params models.SearchParams) (*models.CandidateMatches, error) {
	if !caller.HasRole(models.RoleEmployer, models.RoleAdmin) {
		return nil, fmt.Errorf("%w: employer or admin role required", errs.ErrNotAuthorized)
	}
	params.Normalize(e.MatchBounds())

	job, err := e.source.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && job.EmployerID != caller.UserID {
		return nil, fmt.Errorf("%w: can only view candidates for your own jobs", errs.ErrNotAuthorized)
	}
	if err := e.requireVector(ctx, models.EntityJob, jobID); err != nil {
		return nil, err
	}

	matches, err := e.vectors.FindSimilarAcross(ctx, models.EntityJob, jobID, models.EntityProfile, params.Limit, params.MinScore)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &models.CandidateMatches{Candidates: []*models.ScoredCandidate{}, Scores: []models.ScoreEntry{}}, nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.EntityID
	}
	profiles, err := e.source.GetCandidates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	scores := scoreMap(matches)
	candidates := make([]*models.ScoredCandidate, 0, len(profiles))
	for _, p := range profiles {
		candidates = append(candidates, &models.ScoredCandidate{Profile: p, MatchScore: scores[p.UserID]})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].MatchScore != candidates[j].MatchScore {
			return candidates[i].MatchScore > candidates[j].MatchScore
		}
		return candidates[i].UserID < candidates[j].UserID
	})
	return &models.CandidateMatches{Candidates: candidates, Scores: models.ScoreEntries(matches), Total: len(candidates)}, nil
}

// SimilarJobs finds active jobs resembling an active job.
func (e *Engine) SimilarJobs(ctx context.Context, jobID int64, params models.SearchParams) (*models.JobMatches, error) {
	params.Normalize(e.SimilarBounds())

	job, err := e.source.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Active() {
		return nil, fmt.Errorf("job %d: %w", jobID, errs.ErrEntityNotFound)
	}
	if err := e.requireVector(ctx, models.EntityJob, jobID); err != nil {
		return nil, err
	}

	matches, err := e.vectors.FindSimilar(ctx, models.EntityJob, jobID, params.Limit, params.MinScore)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &models.JobMatches{Jobs: []*models.ScoredJob{}, Scores: []models.ScoreEntry{}}, nil
	}
	jobs, err := e.hydrateJobs(ctx, matches, func(j *models.ScoredJob, score float64) { j.SimilarityScore = score })
	if err != nil {
		return nil, err
	}
	return &models.JobMatches{Jobs: jobs, Scores: models.ScoreEntries(matches), Total: len(jobs)}, nil
}

// Compatibility scores a job seeker against an active job. Callers other
// than the job seeker need the admin role.
func (e *Engine) Compatibility(ctx context.Context, caller *models.Caller, userID, jobID int64) (*models.CompatibilityResult, error) {
	if !caller.IsAdmin() && !caller.Is(userID) {
		return nil, fmt.Errorf("%w: can only score your own profile", errs.ErrNotAuthorized)
	}
	profile, err := e.source.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	job, err := e.source.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Active() {
		return nil, fmt.Errorf("job %d: %w", jobID, errs.ErrEntityNotFound)
	}
	return e.scorer.Score(ctx, profile, job, true)
}

// Job returns a job in any status.
func (e *Engine) Job(ctx context.Context, jobID int64) (*models.Job, error) {
	return e.source.GetJob(ctx, jobID)
}

func (e *Engine) requireVector(ctx context.Context, entityType string, id int64) error {
	vec, err := e.vectors.GetVector(ctx, entityType, id)
	if err != nil {
		return fmt.Errorf("failed to read %s vector: %w", entityType, err)
	}
	if vec == nil {
		return fmt.Errorf("%s %d: %w", entityType, id, errs.ErrNotIndexedYet)
	}
	return nil
}

// hydrateJobs loads the active jobs behind matches, attaches each score with
// set and sorts by score descending. Ties keep the lower id first.
func (e *Engine) hydrateJobs(ctx context.Context, matches []models.Match, set func(*models.ScoredJob, float64)) ([]*models.ScoredJob, error) {
	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.EntityID
	}
	rows, err := e.source.GetJobs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	scores := scoreMap(matches)
	jobs := make([]*models.ScoredJob, 0, len(rows))
	for _, j := range rows {
		sj := &models.ScoredJob{Job: j}
		set(sj, scores[j.ID])
		jobs = append(jobs, sj)
	}
	sort.SliceStable(jobs, func(a, b int) bool {
		sa, sb := jobScore(jobs[a]), jobScore(jobs[b])
		if sa != sb {
			return sa > sb
		}
		return jobs[a].ID < jobs[b].ID
	})
	return jobs, nil
}

func jobScore(j *models.ScoredJob) float64 {
	return j.SemanticScore + j.MatchScore + j.SimilarityScore
}

func scoreMap(matches []models.Match) map[int64]float64 {
	m := make(map[int64]float64, len(matches))
	for _, match := range matches {
		m[match.EntityID] = match.Score
	}
	return m
}

// IsClientError reports whether err is the caller's fault rather than a failure.
func IsClientError(err error) bool {
	return errors.Is(err, errs.ErrInvalidInput) ||
		errors.Is(err, errs.ErrNotAuthorized) ||
		errors.Is(err, errs.ErrEntityNotFound) ||
		errors.Is(err, errs.ErrNotIndexedYet)
}
