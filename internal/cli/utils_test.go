package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/wantokmatch/internal/embedding"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/internal/resilience"
)

func sampleSemantic() *models.SemanticResponse {
	return &models.SemanticResponse{
		Jobs: []*models.ScoredJob{
			{
				Job: &models.Job{ID: 10, Title: "Mine Engineer", CompanyName: "Porgera Gold Ltd",
					Location: "Enga", Description: "Underground mining operations"},
				SemanticScore: 0.82,
			},
		},
		Scores:        []models.ScoreEntry{{EntityID: 10, Score: 0.82}},
		QueryExpanded: "wok ain mining mine miner",
		Method:        models.MethodSemantic,
		Total:         1,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestWriteSemantic_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSemantic(&buf, sampleSemantic(), OutputJSON); err != nil {
		t.Fatalf("WriteSemantic(json): %v", err)
	}
	var decoded models.SemanticResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Method != models.MethodSemantic || decoded.Total != 1 {
		t.Errorf("decoded method=%q total=%d", decoded.Method, decoded.Total)
	}
	if len(decoded.Jobs) != 1 || decoded.Jobs[0].ID != 10 || decoded.Jobs[0].SemanticScore != 0.82 {
		t.Errorf("decoded jobs = %+v", decoded.Jobs)
	}
}

func TestWriteSemantic_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSemantic(&buf, sampleSemantic(), OutputText); err != nil {
		t.Fatalf("WriteSemantic(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 jobs", "method: semantic", "Expanded query: wok ain mining",
		"Rank: 1 | Score: 0.8200", "ID: 10", "Mine Engineer", "Porgera Gold Ltd", "Enga"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSemantic_textFallback(t *testing.T) {
	resp := sampleSemantic()
	resp.Method = models.MethodFTSFallback
	resp.Error = "provider unavailable"
	var buf bytes.Buffer
	if err := WriteSemantic(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Semantic search unavailable: provider unavailable") {
		t.Errorf("missing fallback reason:\n%s", out)
	}
	if strings.Contains(out, "Score:") {
		t.Errorf("fallback results carry no score:\n%s", out)
	}
}

func TestWriteJobMatches_similarityScore(t *testing.T) {
	resp := &models.JobMatches{
		Jobs:  []*models.ScoredJob{{Job: &models.Job{ID: 3, Title: "Driller"}, SimilarityScore: 0.7, MatchScore: 0.1}},
		Total: 1,
	}
	var buf bytes.Buffer
	if err := WriteJobMatches(&buf, resp, OutputText, "similarity"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Score: 0.7000") {
		t.Errorf("expected similarity score:\n%s", buf.String())
	}
}

func TestWriteCandidates_text(t *testing.T) {
	resp := &models.CandidateMatches{
		Candidates: []*models.ScoredCandidate{
			{Profile: &models.Profile{UserID: 20, Name: "Kila", Headline: "Blaster", Location: "Lae"}, MatchScore: 0.876},
		},
		Total: 1,
	}
	var buf bytes.Buffer
	if err := WriteCandidates(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 candidates", "RANK", "Kila", "Blaster", "87.6%"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteCandidates_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCandidates(&buf, &models.CandidateMatches{}, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "RANK") {
		t.Errorf("empty result should have no table:\n%s", buf.String())
	}
}

func TestWriteCompatibility_text(t *testing.T) {
	semantic := 20
	res := &models.CompatibilityResult{
		Score:     74,
		Breakdown: models.Breakdown{Skills: 35, Location: 15, Semantic: &semantic},
		Strengths: []string{"Strong skills match"},
		Tips:      []string{"Add a headline"},
		Method:    models.CompatHybrid,
	}
	var buf bytes.Buffer
	if err := WriteCompatibility(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Compatibility: 74/100 (hybrid)", "semantic", "Strengths:", "- Strong skills match", "Tips:"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(out, "Weaknesses") {
		t.Errorf("empty lists are omitted:\n%s", out)
	}
}

func TestWriteUsage_text(t *testing.T) {
	stats := &embedding.UsageStats{
		Date: "2026-10-19",
		Providers: []embedding.ProviderUsage{
			{Name: "cohere", Role: "primary", Model: "embed-english-v3.0", Dimensions: 1024, Configured: true,
				Requests: 3, Embeddings: 40, Remaining: &embedding.Limits{DailyRequests: 997, DailyEmbeddings: 49960}},
			{Name: "huggingface", Role: "fallback", Model: "all-MiniLM-L6-v2", Dimensions: 384},
		},
		Breaker: resilience.BreakerStats{State: resilience.StateOpen, RecoveryIn: "4m0s"},
	}
	var buf bytes.Buffer
	if err := WriteUsage(&buf, stats, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"2026-10-19", "OPEN (recovery in 4m0s)", "997 req / 49960 emb", "not configured"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
