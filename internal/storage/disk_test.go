package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/wantokmatch/internal/config"
)

func writeSized(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Repeat("x", n)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMeasureDisk(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StorageConfig{
		DatabasePath:   filepath.Join(dir, "embeddings.db"),
		BleveIndexPath: filepath.Join(dir, "jobs.bleve"),
		LedgerPath:     filepath.Join(dir, "usage"),
	}
	writeSized(t, cfg.DatabasePath, 100)
	writeSized(t, cfg.DatabasePath+"-wal", 40)
	writeSized(t, cfg.DatabasePath+"-shm", 8)
	writeSized(t, filepath.Join(cfg.BleveIndexPath, "index_meta.json"), 20)
	writeSized(t, filepath.Join(cfg.BleveIndexPath, "store", "root.bolt"), 300)
	writeSized(t, filepath.Join(cfg.LedgerPath, "000001.vlog"), 50)
	writeSized(t, filepath.Join(cfg.LedgerPath, "MANIFEST"), 5)
	// Unrelated files beside the state must not count.
	writeSized(t, filepath.Join(dir, "wantokjobs.db"), 1000)

	got, err := MeasureDisk(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := DiskUsage{Embeddings: 148, Index: 320, Ledger: 55, Total: 523}
	if *got != want {
		t.Errorf("MeasureDisk = %+v, want %+v", *got, want)
	}
}

func TestMeasureDisk_freshInstall(t *testing.T) {
	dir := t.TempDir()
	got, err := MeasureDisk(config.StorageConfig{
		DatabasePath:   filepath.Join(dir, "embeddings.db"),
		BleveIndexPath: filepath.Join(dir, "jobs.bleve"),
		LedgerPath:     filepath.Join(dir, "usage"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if *got != (DiskUsage{}) {
		t.Errorf("nothing written yet, got %+v", *got)
	}
}

func TestMeasureDisk_inMemoryAndUnset(t *testing.T) {
	dir := t.TempDir()
	writeSized(t, filepath.Join(dir, "usage", "000001.vlog"), 12)
	got, err := MeasureDisk(config.StorageConfig{
		DatabasePath: ":memory:",
		LedgerPath:   filepath.Join(dir, "usage"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Embeddings != 0 || got.Index != 0 || got.Ledger != 12 || got.Total != 12 {
		t.Errorf("MeasureDisk = %+v", *got)
	}
}
