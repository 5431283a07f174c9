package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/wantokmatch/internal/indexer"
	"github.com/hyperjump/wantokmatch/internal/storage/storagetest"
)

// newTestConfig seeds a job board and writes a config using the mock
// provider, with all state under a temp dir.
func newTestConfig(t *testing.T) string {
	t.Helper()
	board := storagetest.New(t)
	board.Employer(1, "Porgera Gold", "Porgera Gold Ltd")
	board.Job(storagetest.Job{ID: 10, EmployerID: 1, Title: "Mine Engineer",
		Description: "Underground mining operations and blasting", Skills: []string{"blasting", "drilling"}})
	board.Job(storagetest.Job{ID: 11, EmployerID: 1, Title: "Camp Cook",
		Description: "Kitchen work for the mine camp", Skills: []string{"cooking"}})
	board.Seeker(storagetest.Seeker{ID: 20, Name: "Kila", Headline: "Blaster", Skills: []string{"blasting", "drilling"}})

	dir := t.TempDir()
	cfg := `
source:
  database_path: ` + board.Path + `
  uploads_dir: uploads
storage:
  database_path: data/embeddings.db
  ledger_path: data/usage
  bleve_index_path: data/jobs.bleve
embedding:
  primary: mock
  fallback: none
  min_delay: 1ms
  base_backoff: 1ms
  mock:
    dimensions: 16
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestCommands_IndexAndQuery(t *testing.T) {
	cfg := newTestConfig(t)

	// Nothing indexed yet.
	if _, err := run(t, "--config", cfg, "match-jobs", "20"); err == nil || !strings.Contains(err.Error(), "not indexed") {
		t.Errorf("match-jobs before sync: err = %v", err)
	}

	out := mustRun(t, "--config", cfg, "--format", "json", "index")
	var report indexer.SyncReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("sync report is not JSON: %v\n%s", err, out)
	}
	if report.RunID == "" || report.Jobs.Processed != 2 || report.Profiles.Processed != 1 {
		t.Errorf("sync report = %+v", report)
	}

	// A second sync costs nothing.
	out = mustRun(t, "--config", cfg, "index")
	if !strings.Contains(out, "jobs:      2 processed, 2 unchanged, 0 errors") {
		t.Errorf("second sync should be fully cached:\n%s", out)
	}

	out = mustRun(t, "--config", cfg, "search", "underground", "mining", "blasting")
	if !strings.Contains(out, "Mine Engineer") {
		t.Errorf("search output missing job:\n%s", out)
	}

	out = mustRun(t, "--config", cfg, "match-jobs", "--min-score", "0.01", "20")
	if !strings.Contains(out, "Mine Engineer") {
		t.Errorf("match-jobs output missing job:\n%s", out)
	}

	exports := t.TempDir()
	out = mustRun(t, "--config", cfg, "match-candidates", "--min-score", "0.01", "--xlsx", exports, "10")
	if !strings.Contains(out, "Kila") {
		t.Errorf("match-candidates output missing candidate:\n%s", out)
	}
	files, _ := filepath.Glob(filepath.Join(exports, "candidates_Mine_Engineer_*.xlsx"))
	if len(files) != 1 {
		t.Errorf("expected one export file, got %v", files)
	}

	out = mustRun(t, "--config", cfg, "compatibility", "20", "10")
	if !strings.Contains(out, "Compatibility:") || !strings.Contains(out, "hybrid") {
		t.Errorf("compatibility output:\n%s", out)
	}

	out = mustRun(t, "--config", cfg, "--format", "json", "status")
	var status statusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("status is not JSON: %v\n%s", err, out)
	}
	if status.Embeddings.Total != 3 || status.KeywordDocuments != 2 {
		t.Errorf("status = %+v", status)
	}
	if du := status.DiskUsage; du == nil || du.Embeddings == 0 || du.Index == 0 ||
		du.Total != du.Embeddings+du.Index+du.Ledger {
		t.Errorf("disk usage = %+v", du)
	}

	out = mustRun(t, "--config", cfg, "usage")
	if !strings.Contains(out, "mock") || !strings.Contains(out, "CLOSED") {
		t.Errorf("usage output:\n%s", out)
	}
}

func TestCommands_DeleteAndClear(t *testing.T) {
	cfg := newTestConfig(t)
	mustRun(t, "--config", cfg, "index", "job", "10")
	mustRun(t, "--config", cfg, "index", "profile", "20")

	out := mustRun(t, "--config", cfg, "delete", "job", "10")
	if !strings.Contains(out, "Deleted job 10") {
		t.Errorf("delete output: %s", out)
	}
	out = mustRun(t, "--config", cfg, "delete", "job", "10")
	if !strings.Contains(out, "No embedding stored for job 10") {
		t.Errorf("second delete output: %s", out)
	}

	out = mustRun(t, "--config", cfg, "clear", "--type", "profile", "--yes")
	if !strings.Contains(out, "Cleared 1 profile embeddings") {
		t.Errorf("clear output: %s", out)
	}

	if _, err := run(t, "--config", cfg, "index", "job", "999"); err == nil {
		t.Error("indexing a missing job should fail")
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	cfg := newTestConfig(t)
	t.Setenv("COHERE_API_KEY", "co-key")
	t.Setenv("WANTOK_EMBEDDING_FALLBACK", "mock")
	t.Setenv("WANTOK_SERVER_PORT", "9191")

	NewRootCmd()
	cfgFile = cfg
	t.Cleanup(func() { cfgFile = "" })

	loaded, path, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if path != cfg {
		t.Errorf("path = %q, want %q", path, cfg)
	}
	if loaded.Embedding.Cohere.APIKey != "co-key" {
		t.Errorf("cohere key = %q", loaded.Embedding.Cohere.APIKey)
	}
	if loaded.Embedding.Fallback != "mock" {
		t.Errorf("fallback = %q", loaded.Embedding.Fallback)
	}
	if loaded.Server.Port != 9191 {
		t.Errorf("port = %d", loaded.Server.Port)
	}
	if loaded.Embedding.Primary != "mock" {
		t.Errorf("primary from file = %q", loaded.Embedding.Primary)
	}
	if !filepath.IsAbs(loaded.Storage.DatabasePath) {
		t.Errorf("storage path should be absolute: %q", loaded.Storage.DatabasePath)
	}
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "board.db")
	if !sameFile(a, filepath.Join(dir, ".", "board.db")) {
		t.Error("equivalent paths should match")
	}
	if sameFile(a, filepath.Join(dir, "embeddings.db")) {
		t.Error("different files should not match")
	}
	if sameFile("", a) {
		t.Error("empty path never matches")
	}
}
