// Package export writes candidate match results as spreadsheets for employers.
package export

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/wantokmatch/internal/models"
)

// SheetName is the worksheet holding the candidate rows.
const SheetName = "Candidates"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{"Rank", "Name", "Email", "Phone", "Headline", "Location", "Skills", "Match %"}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename returns the attachment name for a job's candidate export.
func Filename(job *models.Job, now time.Time) string {
	title := "job"
	if job != nil && strings.TrimSpace(job.Title) != "" {
		title = unsafeFilename.ReplaceAllString(job.Title, "_")
	}
	return fmt.Sprintf("candidates_%s_%s.xlsx", title, now.UTC().Format("2006-01-02"))
}

// WriteCandidates writes one header row and one row per candidate, in rank order.
func WriteCandidates(w io.Writer, matches *models.CandidateMatches) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetName, "A1", lastCol, bold); err != nil {
		return err
	}

	if matches != nil {
		for i, c := range matches.Candidates {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			row := []interface{}{
				i + 1,
				c.Name,
				c.Email,
				c.Phone,
				c.Headline,
				location(c.Profile),
				strings.Join(c.Skills, ", "),
				math.Round(c.MatchScore*1000) / 10,
			}
			if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "B", "C", 24)
	_ = f.SetColWidth(SheetName, "E", "G", 32)
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}

func location(p *models.Profile) string {
	if p == nil {
		return ""
	}
	switch {
	case p.Location != "" && p.Country != "":
		return p.Location + ", " + p.Country
	case p.Location != "":
		return p.Location
	default:
		return p.Country
	}
}
