// Package compat scores how well a job seeker fits a job. The score is a
// weighted rule set over profile and job fields, optionally boosted by the
// cosine similarity of their stored embeddings.
package compat

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/internal/vector"
	"github.com/hyperjump/wantokmatch/pkg/utils"
)

const (
	// skillsScale maps the 0-40 raw skills score onto its 35 point weight.
	skillsScale      = 0.875
	maxSemanticBoost = 20.0
)

// VectorReader reads stored vectors. It never embeds.
type VectorReader interface {
	GetVector(ctx context.Context, entityType string, entityID int64) ([]float32, error)
}

// Scorer computes compatibility results.
type Scorer struct {
	vectors VectorReader
	logger  *zap.Logger
}

// NewScorer returns a Scorer. vectors may be nil, which disables the semantic boost.
func NewScorer(vectors VectorReader, logger *zap.Logger) *Scorer {
	logger = utils.OrNop(logger)
	return &Scorer{vectors: vectors, logger: logger}
}

// Score rates profile against job. It fails only when both are nil; a
// single missing side scores every factor at its neutral value.
func (s *Scorer) Score(ctx context.Context, profile *models.Profile, job *models.Job, useSemantic bool) (*models.CompatibilityResult, error) {
	if profile == nil && job == nil {
		return nil, fmt.Errorf("%w: profile and job are both missing", errs.ErrInvalidInput)
	}

	res := &models.CompatibilityResult{Tips: []string{}, Method: models.CompatTraditional}
	if profile == nil || job == nil {
		total := neutralSkills*skillsScale + neutralLocation + neutralExperience + neutralSalary + neutralIndustry
		res.Breakdown = models.Breakdown{
			Skills:     round(neutralSkills * skillsScale),
			Location:   neutralLocation,
			Experience: neutralExperience,
			Salary:     neutralSalary,
			Industry:   neutralIndustry,
		}
		res.Score = clampScore(total)
		res.Strengths = strengths(res.Breakdown)
		res.Weaknesses = weaknesses(res.Breakdown)
		return res, nil
	}

	var boost float64
	if useSemantic {
		if b, ok := s.semanticBoost(ctx, profile.UserID, job.ID); ok && b > 0 {
			boost = b
			v := round(b)
			res.Breakdown.Semantic = &v
		}
	}

	skillsRaw, missing := matchSkills(profile, job)
	skills := skillsRaw * skillsScale
	res.Breakdown.Skills = round(skills)
	if len(missing) > 0 {
		res.Tips = append(res.Tips, fmt.Sprintf("Add %s to your skills to improve match", strings.Join(missing[:min(2, len(missing))], ", ")))
	}

	res.Breakdown.Location = matchLocation(profile, job)

	experience, tip := matchExperience(profile, job)
	res.Breakdown.Experience = experience
	if tip != "" {
		res.Tips = append(res.Tips, tip)
	}

	res.Breakdown.Salary = matchSalary(profile, job)
	res.Breakdown.Industry = matchIndustry(profile, job)

	total := skills + float64(res.Breakdown.Location+res.Breakdown.Experience+res.Breakdown.Salary+res.Breakdown.Industry) + boost
	res.Score = clampScore(total)
	res.Strengths = strengths(res.Breakdown)
	res.Weaknesses = weaknesses(res.Breakdown)
	if res.Breakdown.Semantic != nil {
		res.Method = models.CompatHybrid
	}
	return res, nil
}

// semanticBoost returns cosine × 20 when both vectors are stored. Missing
// vectors, read errors and dimension mismatches skip the boost. Callers drop
// non-positive boosts: dissimilar embeddings never subtract from the rules.
func (s *Scorer) semanticBoost(ctx context.Context, userID, jobID int64) (float64, bool) {
	if s.vectors == nil {
		return 0, false
	}
	pv, err := s.vectors.GetVector(ctx, models.EntityProfile, userID)
	if err != nil || pv == nil {
		s.logger.Debug("no profile vector for compatibility", zap.Int64("user_id", userID), zap.Error(err))
		return 0, false
	}
	jv, err := s.vectors.GetVector(ctx, models.EntityJob, jobID)
	if err != nil || jv == nil {
		s.logger.Debug("no job vector for compatibility", zap.Int64("job_id", jobID), zap.Error(err))
		return 0, false
	}
	sim, err := vector.CosineSimilarity(pv, jv)
	if err != nil {
		s.logger.Debug("semantic boost skipped", zap.Int64("user_id", userID), zap.Int64("job_id", jobID), zap.Error(err))
		return 0, false
	}
	return sim * maxSemanticBoost, true
}

// clampScore rounds total into 0..100.
func clampScore(total float64) int {
	return round(math.Max(0, math.Min(total, 100)))
}

func round(f float64) int {
	return int(math.Round(f))
}
