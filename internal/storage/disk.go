package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/wantokmatch/internal/config"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL or
// rollback-journal mode.
var sqliteSidecars = []string{"-wal", "-shm", "-journal"}

// DiskUsage is the on-disk footprint of the matcher's own state, in bytes.
type DiskUsage struct {
	Embeddings int64 `json:"embeddings"`
	Index      int64 `json:"keyword_index"`
	Ledger     int64 `json:"usage_ledger"`
	Total      int64 `json:"total"`
}

// MeasureDisk sizes the embeddings database with its SQLite sidecars, the
// Bleve index directory and the usage ledger directory. Paths that do not
// exist yet count as zero.
func MeasureDisk(cfg config.StorageConfig) (*DiskUsage, error) {
	var u DiskUsage
	var err error
	if u.Embeddings, err = sqliteSize(cfg.DatabasePath); err != nil {
		return nil, err
	}
	if u.Index, err = treeSize(cfg.BleveIndexPath); err != nil {
		return nil, err
	}
	if u.Ledger, err = treeSize(cfg.LedgerPath); err != nil {
		return nil, err
	}
	u.Total = u.Embeddings + u.Index + u.Ledger
	return &u, nil
}

func sqliteSize(dbPath string) (int64, error) {
	if dbPath == "" || dbPath == ":memory:" {
		return 0, nil
	}
	total, err := treeSize(dbPath)
	if err != nil {
		return 0, err
	}
	for _, suffix := range sqliteSidecars {
		n, err := treeSize(dbPath + suffix)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// treeSize returns the size of a file, or the summed size of every regular
// file below a directory.
func treeSize(p string) (int64, error) {
	if p == "" {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return total, err
}
