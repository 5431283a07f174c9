// Package models defines the entities read from the job board database and
// the results produced by the matching engine.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Entity types stored in the embeddings table.
const (
	EntityJob     = "job"
	EntityProfile = "profile"
)

// Job is an active or historical job posting, hydrated with employer details.
type Job struct {
	ID              int64     `json:"id"`
	EmployerID      int64     `json:"employer_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Requirements    []string  `json:"requirements,omitempty"`
	Skills          []string  `json:"skills,omitempty"`
	Location        string    `json:"location,omitempty"`
	Country         string    `json:"country,omitempty"`
	JobType         string    `json:"job_type,omitempty"`
	ExperienceLevel string    `json:"experience_level,omitempty"`
	Industry        string    `json:"industry,omitempty"`
	SalaryMin       float64   `json:"salary_min,omitempty"`
	SalaryMax       float64   `json:"salary_max,omitempty"`
	SalaryCurrency  string    `json:"salary_currency,omitempty"`
	Status          string    `json:"status"`
	EmployerName    string    `json:"employer_name,omitempty"`
	CompanyName     string    `json:"company_name,omitempty"`
	LogoURL         string    `json:"logo_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Active reports whether the job is visible to job seekers.
func (j *Job) Active() bool {
	return j != nil && j.Status == "active"
}

// WorkEntry is one item of a job seeker's work history.
type WorkEntry struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	StartYear   int    `json:"start_year,omitempty"`
	EndYear     int    `json:"end_year,omitempty"`
	Description string `json:"description,omitempty"`
}

// Profile is a job seeker profile joined with its user row.
type Profile struct {
	UserID           int64       `json:"id"`
	Name             string      `json:"name"`
	Email            string      `json:"email,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	Status           string      `json:"-"`
	Headline         string      `json:"headline,omitempty"`
	Location         string      `json:"location,omitempty"`
	Country          string      `json:"country,omitempty"`
	Bio              string      `json:"bio,omitempty"`
	Skills           []string    `json:"skills,omitempty"`
	WorkHistory      []WorkEntry `json:"work_history,omitempty"`
	Education        []string    `json:"education,omitempty"`
	DesiredJobType   string      `json:"desired_job_type,omitempty"`
	DesiredSalaryMin float64     `json:"desired_salary_min,omitempty"`
	DesiredSalaryMax float64     `json:"desired_salary_max,omitempty"`
	Availability     string      `json:"availability,omitempty"`
	CVURL            string      `json:"cv_url,omitempty"`
}

// Active reports whether the owning account is active. An empty status is
// treated as active because older databases have no status column.
func (p *Profile) Active() bool {
	return p != nil && (p.Status == "" || p.Status == "active")
}

// ParseList decodes a column holding either a JSON array of strings or a
// comma separated list. Entries are trimmed and empty entries dropped.
func ParseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		var objects []map[string]any
		if json.Unmarshal([]byte(raw), &objects) == nil {
			for _, o := range objects {
				if s := firstString(o, "name", "title", "degree", "skill"); s != "" {
					items = append(items, s)
				}
			}
		} else {
			items = strings.Split(raw, ",")
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseWorkHistory decodes the work_history JSON column. Entries may be
// objects with loosely named fields or plain title strings; anything
// unparseable yields nil.
func ParseWorkHistory(raw string) []WorkEntry {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var entries []WorkEntry
	if err := json.Unmarshal([]byte(raw), &entries); err == nil {
		return entries
	}
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	entries = make([]WorkEntry, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			entries = append(entries, WorkEntry{Title: v})
		case map[string]any:
			entries = append(entries, WorkEntry{
				Title:       firstString(v, "title", "position", "role"),
				Company:     firstString(v, "company", "employer", "organisation", "organization"),
				Description: firstString(v, "description", "summary"),
			})
		}
	}
	return entries
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
