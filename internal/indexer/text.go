package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/pkg/utils"
)

// JobText is the text embedded for a job. Field labels keep short postings
// from collapsing into a bag of words.
func JobText(j *models.Job) string {
	var b textBuilder
	b.add("", j.Title)
	b.add("Company", j.CompanyName)
	b.add("Location", joinNonEmpty(", ", j.Location, j.Country))
	b.add("Industry", j.Industry)
	b.add("Job type", j.JobType)
	b.add("Experience", j.ExperienceLevel)
	b.add("Skills", strings.Join(j.Skills, ", "))
	b.add("Requirements", strings.Join(j.Requirements, "; "))
	b.add("", j.Description)
	return b.String()
}

// ProfileText is the text embedded for a job seeker. cvText is the already
// extracted and capped CV excerpt, or "".
func ProfileText(p *models.Profile, cvText string) string {
	var b textBuilder
	b.add("", p.Headline)
	b.add("Skills", strings.Join(p.Skills, ", "))
	b.add("Location", joinNonEmpty(", ", p.Location, p.Country))
	b.add("", p.Bio)
	for _, w := range p.WorkHistory {
		entry := w.Title
		if w.Company != "" {
			entry = joinNonEmpty(" at ", w.Title, w.Company)
		}
		b.add("Experience", joinNonEmpty(". ", entry, w.Description))
	}
	b.add("Education", strings.Join(p.Education, ", "))
	b.add("Looking for", p.DesiredJobType)
	b.add("CV", cvText)
	return b.String()
}

type textBuilder struct {
	parts []string
}

func (t *textBuilder) add(label, value string) {
	value = utils.CollapseSpace(value)
	if value == "" {
		return
	}
	if label != "" {
		value = fmt.Sprintf("%s: %s", label, value)
	}
	t.parts = append(t.parts, value)
}

func (t *textBuilder) String() string {
	return strings.Join(t.parts, "\n")
}

func joinNonEmpty(sep string, items ...string) string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}
