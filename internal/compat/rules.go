package compat

import (
	"strings"

	"github.com/hyperjump/wantokmatch/internal/models"
)

// Neutral factor values, used when a side gives nothing to compare.
const (
	neutralSkills     = 20.0
	neutralLocation   = 10
	neutralExperience = 8
	neutralSalary     = 8
	neutralIndustry   = 5
)

// matchSkills returns the raw 0-40 skills score and the job skills the
// profile lacks, in job order.
func matchSkills(p *models.Profile, j *models.Job) (float64, []string) {
	if len(j.Skills) == 0 {
		return neutralSkills, nil
	}
	user := lowerAll(p.Skills)
	if len(user) == 0 {
		return 0, j.Skills
	}
	var matched int
	var missing []string
	for _, js := range j.Skills {
		jl := strings.ToLower(js)
		if anyOverlap(user, jl) {
			matched++
		} else {
			missing = append(missing, js)
		}
	}
	return float64(matched) / float64(len(j.Skills)) * 40, missing
}

func matchLocation(p *models.Profile, j *models.Job) int {
	jobLoc := strings.ToLower(strings.TrimSpace(j.Location))
	if jobLoc == "" {
		return neutralLocation
	}
	if strings.Contains(jobLoc, "remote") {
		return 20
	}
	userLoc := strings.ToLower(strings.TrimSpace(p.Location))
	if userLoc == "" {
		return 5
	}
	if userLoc == jobLoc {
		return 20
	}
	userCountry := strings.ToLower(strings.TrimSpace(p.Country))
	if userCountry != "" && userCountry == strings.ToLower(strings.TrimSpace(j.Country)) {
		return 12
	}
	if strings.Contains(jobLoc, userLoc) || strings.Contains(userLoc, jobLoc) {
		return 15
	}
	return 0
}

// matchExperience counts work history entries as the experience measure.
func matchExperience(p *models.Profile, j *models.Job) (int, string) {
	level := strings.ToLower(j.ExperienceLevel)
	if level == "" {
		return neutralExperience, ""
	}
	years := len(p.WorkHistory)
	switch {
	case strings.Contains(level, "entry") || strings.Contains(level, "junior"):
		if years <= 2 {
			return 15, ""
		}
		return 10, ""
	case strings.Contains(level, "mid") || strings.Contains(level, "intermediate"):
		switch {
		case years >= 2 && years <= 5:
			return 15, ""
		case years < 2:
			return 5, "Add more work experience to improve match for mid-level roles"
		default:
			return 10, ""
		}
	case strings.Contains(level, "senior") || strings.Contains(level, "lead"):
		if years >= 5 {
			return 15, ""
		}
		return 3, "Add more senior-level experience to match this role"
	}
	return neutralExperience, ""
}

func matchSalary(p *models.Profile, j *models.Job) int {
	if j.SalaryMin == 0 && j.SalaryMax == 0 {
		return neutralSalary
	}
	if p.DesiredSalaryMin == 0 && p.DesiredSalaryMax == 0 {
		return neutralSalary
	}
	jobMax := j.SalaryMax
	if jobMax == 0 {
		jobMax = j.SalaryMin
	}
	userMin := p.DesiredSalaryMin
	switch {
	case jobMax >= userMin:
		return 15
	case jobMax >= userMin*0.8:
		return 10
	}
	return 3
}

func matchIndustry(p *models.Profile, j *models.Job) int {
	industry := strings.ToLower(strings.TrimSpace(j.Industry))
	if industry == "" {
		return neutralIndustry
	}
	if anyOverlap(lowerAll(p.Skills), industry) {
		return 10
	}
	return 3
}

func strengths(b models.Breakdown) []string {
	out := []string{}
	if b.Skills >= 30 {
		out = append(out, "Strong skills match")
	}
	if b.Location >= 15 {
		out = append(out, "Great location fit")
	}
	if b.Experience >= 12 {
		out = append(out, "Right experience level")
	}
	if b.Salary >= 12 {
		out = append(out, "Salary expectations met")
	}
	return out
}

func weaknesses(b models.Breakdown) []string {
	out := []string{}
	if b.Skills < 20 {
		out = append(out, "Consider adding more relevant skills")
	}
	if b.Location < 10 {
		out = append(out, "Location may not be ideal")
	}
	if b.Experience < 8 {
		out = append(out, "Experience level may not match")
	}
	return out
}

// anyOverlap reports whether any item contains s or is contained in it.
func anyOverlap(items []string, s string) bool {
	for _, it := range items {
		if strings.Contains(it, s) || strings.Contains(s, it) {
			return true
		}
	}
	return false
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
