package compat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/models"
)

type mapVectors map[string][]float32

func (m mapVectors) GetVector(_ context.Context, entityType string, entityID int64) ([]float32, error) {
	if entityID < 0 {
		return nil, errors.New("read failed")
	}
	return m[entityType], nil
}

func TestScore_SkillsPartialMatch(t *testing.T) {
	s := NewScorer(nil, nil)
	profile := &models.Profile{Skills: []string{"Excel"}}
	job := &models.Job{Skills: []string{"excel", "Payroll"}}

	res, err := s.Score(context.Background(), profile, job, false)
	require.NoError(t, err)
	// raw 20, contribution 17.5
	assert.Equal(t, 18, res.Breakdown.Skills)
	assert.Equal(t, []string{"Add Payroll to your skills to improve match"}, res.Tips)
	// 17.5 + location 10 + experience 8 + salary 8 + industry 5
	assert.Equal(t, 49, res.Score)
	assert.Equal(t, models.CompatTraditional, res.Method)
	assert.Nil(t, res.Breakdown.Semantic)
}

func TestMatchSkills(t *testing.T) {
	tests := []struct {
		name        string
		user, job   []string
		wantRaw     float64
		wantMissing []string
	}{
		{"no job skills", []string{"x"}, nil, 20, nil},
		{"no user skills", nil, []string{"a", "b", "c"}, 0, []string{"a", "b", "c"}},
		{"substring either way", []string{"heavy equipment operation", "js"}, []string{"Equipment", "JSON"}, 40, nil},
		{"none", []string{"cooking"}, []string{"welding"}, 0, []string{"welding"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, missing := matchSkills(&models.Profile{Skills: tt.user}, &models.Job{Skills: tt.job})
			assert.InDelta(t, tt.wantRaw, raw, 1e-9)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestScore_TipListsFirstTwoMissing(t *testing.T) {
	res, err := NewScorer(nil, nil).Score(context.Background(),
		&models.Profile{Skills: []string{"typing"}},
		&models.Job{Skills: []string{"a", "b", "c"}}, false)
	require.NoError(t, err)
	assert.Equal(t, "Add a, b to your skills to improve match", res.Tips[0])
	assert.Contains(t, res.Weaknesses, "Consider adding more relevant skills")
}

func TestMatchLocation(t *testing.T) {
	tests := []struct {
		name                 string
		userLoc, userCountry string
		jobLoc, jobCountry   string
		want                 int
	}{
		{"job unspecified", "Lae", "", "", "", 10},
		{"remote", "", "", "Remote (PNG)", "", 20},
		{"user unspecified", "", "", "Lae", "", 5},
		{"exact", "lae", "", "Lae", "", 20},
		{"same country", "Goroka", "PNG", "Lae", "png", 12},
		{"partial", "Port Moresby", "", "Port Moresby, NCD", "", 15},
		{"elsewhere", "Wewak", "", "Kimbe", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchLocation(
				&models.Profile{Location: tt.userLoc, Country: tt.userCountry},
				&models.Job{Location: tt.jobLoc, Country: tt.jobCountry})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchExperience(t *testing.T) {
	history := func(n int) []models.WorkEntry { return make([]models.WorkEntry, n) }
	tests := []struct {
		level   string
		entries int
		want    int
		tip     bool
	}{
		{"", 3, 8, false},
		{"Entry Level", 2, 15, false},
		{"junior", 3, 10, false},
		{"Mid", 2, 15, false},
		{"intermediate", 1, 5, true},
		{"mid", 6, 10, false},
		{"Senior", 5, 15, false},
		{"team lead", 4, 3, true},
		{"executive", 10, 8, false},
	}
	for _, tt := range tests {
		got, tip := matchExperience(&models.Profile{WorkHistory: history(tt.entries)}, &models.Job{ExperienceLevel: tt.level})
		if got != tt.want || (tip != "") != tt.tip {
			t.Errorf("matchExperience(%q, %d) = %d, %q", tt.level, tt.entries, got, tip)
		}
	}
}

func TestMatchSalary(t *testing.T) {
	tests := []struct {
		name             string
		jobMin, jobMax   float64
		userMin, userMax float64
		want             int
	}{
		{"no job salary", 0, 0, 1000, 0, 8},
		{"no expectation", 500, 900, 0, 0, 8},
		{"meets", 500, 1000, 1000, 0, 15},
		{"min only close", 850, 0, 1000, 0, 10},
		{"below", 500, 700, 1000, 0, 3},
		{"max only expectation", 500, 700, 0, 2000, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchSalary(
				&models.Profile{DesiredSalaryMin: tt.userMin, DesiredSalaryMax: tt.userMax},
				&models.Job{SalaryMin: tt.jobMin, SalaryMax: tt.jobMax})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchIndustry(t *testing.T) {
	assert.Equal(t, 5, matchIndustry(&models.Profile{}, &models.Job{}))
	assert.Equal(t, 10, matchIndustry(&models.Profile{Skills: []string{"Mining"}}, &models.Job{Industry: "Mining & Resources"}))
	assert.Equal(t, 3, matchIndustry(&models.Profile{Skills: []string{"retail"}}, &models.Job{Industry: "Mining"}))
}

func TestScore_SemanticBoost(t *testing.T) {
	vecs := mapVectors{
		models.EntityProfile: {1, 0},
		models.EntityJob:     {1, 0},
	}
	s := NewScorer(vecs, nil)
	profile := &models.Profile{UserID: 1}
	job := &models.Job{ID: 2}

	res, err := s.Score(context.Background(), profile, job, true)
	require.NoError(t, err)
	require.NotNil(t, res.Breakdown.Semantic)
	assert.Equal(t, 20, *res.Breakdown.Semantic)
	assert.Equal(t, models.CompatHybrid, res.Method)
	// 17.5 + 10 + 8 + 8 + 5 + 20
	assert.Equal(t, 69, res.Score)

	plain, err := s.Score(context.Background(), profile, job, false)
	require.NoError(t, err)
	assert.Nil(t, plain.Breakdown.Semantic)
	assert.Equal(t, 49, plain.Score)
}

func TestScore_SemanticSkipped(t *testing.T) {
	ctx := context.Background()
	mismatch := NewScorer(mapVectors{models.EntityProfile: {1, 0, 0}, models.EntityJob: {1, 0}}, nil)
	res, err := mismatch.Score(ctx, &models.Profile{UserID: 1}, &models.Job{ID: 1}, true)
	require.NoError(t, err)
	assert.Nil(t, res.Breakdown.Semantic)
	assert.Equal(t, models.CompatTraditional, res.Method)

	missing := NewScorer(mapVectors{models.EntityJob: {1, 0}}, nil)
	res, err = missing.Score(ctx, &models.Profile{UserID: 1}, &models.Job{ID: 1}, true)
	require.NoError(t, err)
	assert.Nil(t, res.Breakdown.Semantic)

	failing := NewScorer(mapVectors{}, nil)
	res, err = failing.Score(ctx, &models.Profile{UserID: -1}, &models.Job{ID: 1}, true)
	require.NoError(t, err)
	assert.Nil(t, res.Breakdown.Semantic)
}

func TestScore_OppositeVectorsAddNoBoost(t *testing.T) {
	s := NewScorer(mapVectors{models.EntityProfile: {-1, 0}, models.EntityJob: {1, 0}}, nil)
	// Weak pair: no user skills, far location, junior for a senior role, low pay, other industry.
	profile := &models.Profile{UserID: 1, Location: "Wewak", DesiredSalaryMin: 5000}
	job := &models.Job{ID: 2, Skills: []string{"blasting"}, Location: "Porgera", ExperienceLevel: "senior",
		SalaryMax: 1000, Industry: "Mining"}

	res, err := s.Score(context.Background(), profile, job, true)
	require.NoError(t, err)
	assert.Nil(t, res.Breakdown.Semantic)
	assert.Equal(t, models.CompatTraditional, res.Method)
	// skills 0, location 0, experience 3, salary 3, industry 3
	assert.Equal(t, 9, res.Score)
	assert.GreaterOrEqual(t, res.Score, 0)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-11))
	assert.Equal(t, 0, clampScore(-0.4))
	assert.Equal(t, 57, clampScore(56.5))
	assert.Equal(t, 100, clampScore(131))
}

func TestScore_ClampedTo100(t *testing.T) {
	s := NewScorer(mapVectors{models.EntityProfile: {1}, models.EntityJob: {1}}, nil)
	profile := &models.Profile{
		UserID: 1, Skills: []string{"mining"}, Location: "Lae", DesiredSalaryMin: 100,
		WorkHistory: make([]models.WorkEntry, 6),
	}
	job := &models.Job{ID: 1, Skills: []string{"mining"}, Location: "Lae", ExperienceLevel: "senior",
		SalaryMax: 200, Industry: "mining"}
	res, err := s.Score(context.Background(), profile, job, true)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, []string{"Strong skills match", "Great location fit", "Right experience level", "Salary expectations met"}, res.Strengths)
	assert.Empty(t, res.Weaknesses)
}

func TestScore_MissingSides(t *testing.T) {
	s := NewScorer(nil, nil)
	_, err := s.Score(context.Background(), nil, nil, true)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	res, err := s.Score(context.Background(), nil, &models.Job{Skills: []string{"x"}}, true)
	require.NoError(t, err)
	assert.Equal(t, models.Breakdown{Skills: 18, Location: 10, Experience: 8, Salary: 8, Industry: 5}, res.Breakdown)
	assert.Equal(t, 49, res.Score)
	assert.Empty(t, res.Tips)
}
