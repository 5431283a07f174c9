package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/embedding"
	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/expand"
	"github.com/hyperjump/wantokmatch/internal/models"
)

const sqliteTime = "2006-01-02 15:04:05"

// Embedder is the part of the embedding client the store needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string, intent embedding.Intent) (*embedding.Result, error)
}

// Store owns the embeddings table. Search is a linear scan over every vector
// of one entity type.
type Store struct {
	db       *sql.DB
	embedder Embedder
	logger   *zap.Logger
}

// UpsertResult describes what Upsert stored. Cached means the text was
// unchanged and no provider was called.
type UpsertResult struct {
	Dimensions int    `json:"dimensions"`
	Model      string `json:"model"`
	Provider   string `json:"provider"`
	Cached     bool   `json:"cached"`
}

// Item is one entity to embed in BatchUpsert.
type Item struct {
	EntityType string
	EntityID   int64
	Text       string
}

// BatchStats counts BatchUpsert outcomes.
type BatchStats struct {
	Processed int `json:"processed"`
	Cached    int `json:"cached"`
	Errors    int `json:"errors"`
}

// TypeCount is one row of Stats.ByType.
type TypeCount struct {
	EntityType string `json:"entity_type"`
	Model      string `json:"model"`
	Count      int64  `json:"count"`
}

// Stats summarises the embeddings table.
type Stats struct {
	Total         int64       `json:"total"`
	ByType        []TypeCount `json:"by_type"`
	AvgDimensions float64     `json:"avg_dimensions"`
	MinDimensions int         `json:"min_dimensions"`
	MaxDimensions int         `json:"max_dimensions"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens or creates the SQLite database at dbPath and ensures the
// embeddings table exists. Parent directories are created if needed.
func Open(dbPath string, embedder Embedder, opts ...Option) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{db: db, embedder: embedder, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		text_hash TEXT NOT NULL,
		vector BLOB NOT NULL,
		dimensions INTEGER NOT NULL,
		model TEXT NOT NULL,
		provider TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT DEFAULT (datetime('now')),
		UNIQUE(entity_type, entity_id)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_entity ON embeddings(entity_type, entity_id);
	CREATE INDEX IF NOT EXISTS idx_embeddings_hash ON embeddings(text_hash);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func validType(entityType string) error {
	if entityType != models.EntityJob && entityType != models.EntityProfile {
		return fmt.Errorf("%w: unknown entity type %q", errs.ErrInvalidInput, entityType)
	}
	return nil
}

// Upsert embeds text for the entity unless the stored text hash already
// matches. Text is expanded before hashing and embedding.
func (s *Store) Upsert(ctx context.Context, entityType string, entityID int64, text string) (*UpsertResult, error) {
	if err := validType(entityType); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required for embedding", errs.ErrInvalidInput)
	}

	expanded := expand.Expand(text)
	hash := TextHash(expanded)

	existing, err := s.Get(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.TextHash == hash {
		return &UpsertResult{
			Dimensions: existing.Dimensions,
			Model:      existing.Model,
			Provider:   existing.Provider,
			Cached:     true,
		}, nil
	}

	res, err := s.embedder.Embed(ctx, []string{expanded}, embedding.IntentDocument)
	if err != nil {
		return nil, fmt.Errorf("embed %s %d: %w", entityType, entityID, err)
	}
	vec := res.Vectors[0]

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO embeddings (entity_type, entity_id, text_hash, vector, dimensions, model, provider)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			text_hash = excluded.text_hash,
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			model = excluded.model,
			provider = excluded.provider,
			updated_at = datetime('now')`,
		entityType, entityID, hash, EncodeVector(vec), len(vec), res.Model, res.Provider,
	)
	if err != nil {
		return nil, fmt.Errorf("store embedding for %s %d: %w", entityType, entityID, err)
	}

	s.logger.Debug("stored embedding",
		zap.String("entity_type", entityType),
		zap.Int64("entity_id", entityID),
		zap.String("provider", res.Provider),
		zap.Int("dimensions", len(vec)))
	return &UpsertResult{Dimensions: len(vec), Model: res.Model, Provider: res.Provider}, nil
}

// BatchUpsert upserts every item in order. A failed item is logged and
// counted; it does not stop the batch.
func (s *Store) BatchUpsert(ctx context.Context, items []Item) BatchStats {
	var stats BatchStats
	for _, item := range items {
		res, err := s.Upsert(ctx, item.EntityType, item.EntityID, item.Text)
		if err != nil {
			s.logger.Error("failed to embed entity",
				zap.String("entity_type", item.EntityType),
				zap.Int64("entity_id", item.EntityID),
				zap.Error(err))
			stats.Errors++
			continue
		}
		stats.Processed++
		if res.Cached {
			stats.Cached++
		}
	}
	return stats
}

// Search embeds query with query intent and returns the entities of
// entityType scoring at least minScore, best first.
func (s *Store) Search(ctx context.Context, query, entityType string, limit int, minScore float64) ([]models.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query text is required", errs.ErrInvalidInput)
	}
	if err := validType(entityType); err != nil {
		return nil, err
	}
	res, err := s.embedder.Embed(ctx, []string{expand.Expand(query)}, embedding.IntentQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.scan(ctx, res.Vectors[0], entityType, 0, false, limit, minScore)
}

// FindSimilar ranks other entities of the same type against the stored
// vector of (entityType, entityID). An entity without a vector yields an
// empty list.
func (s *Store) FindSimilar(ctx context.Context, entityType string, entityID int64, limit int, minScore float64) ([]models.Match, error) {
	return s.FindSimilarAcross(ctx, entityType, entityID, entityType, limit, minScore)
}

// FindSimilarAcross ranks entities of targetType against the stored vector
// of (sourceType, sourceID). The source is excluded only when both types
// are the same.
func (s *Store) FindSimilarAcross(ctx context.Context, sourceType string, sourceID int64, targetType string, limit int, minScore float64) ([]models.Match, error) {
	if err := validType(targetType); err != nil {
		return nil, err
	}
	source, err := s.GetVector(ctx, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return []models.Match{}, nil
	}
	return s.scan(ctx, source, targetType, sourceID, sourceType == targetType, limit, minScore)
}

func (s *Store) scan(ctx context.Context, query []float32, entityType string, skipID int64, skip bool, limit int, minScore float64) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, vector FROM embeddings WHERE entity_type = ?`, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []models.Match{}
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		if skip && id == skipID {
			continue
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			s.logger.Warn("skipping corrupt vector", zap.String("entity_type", entityType), zap.Int64("entity_id", id), zap.Error(err))
			continue
		}
		if len(vec) != len(query) {
			// Written by a different model.
			continue
		}
		score, err := CosineSimilarity(query, vec)
		if err != nil {
			continue
		}
		if score >= minScore {
			matches = append(matches, models.Match{EntityID: id, Score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].EntityID < matches[j].EntityID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GetVector returns the stored vector, or nil, nil when there is none.
func (s *Store) GetVector(ctx context.Context, entityType string, entityID int64) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeVector(blob)
}

// Get returns the full record, or nil, nil when there is none.
func (s *Store) Get(ctx context.Context, entityType string, entityID int64) (*models.EmbeddingRecord, error) {
	var rec models.EmbeddingRecord
	var blob []byte
	var created, updated sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, entity_type, entity_id, text_hash, vector, dimensions, model, provider, created_at, updated_at
		 FROM embeddings WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID,
	).Scan(&rec.ID, &rec.EntityType, &rec.EntityID, &rec.TextHash, &blob, &rec.Dimensions,
		&rec.Model, &rec.Provider, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Vector, err = DecodeVector(blob); err != nil {
		return nil, err
	}
	rec.CreatedAt = parseTime(created)
	rec.UpdatedAt = parseTime(updated)
	return &rec, nil
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.Parse(sqliteTime, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Delete removes the entity's vector and reports whether one existed.
func (s *Store) Delete(ctx context.Context, entityType string, entityID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM embeddings WHERE entity_type = ? AND entity_id = ?`, entityType, entityID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// EntityIDs lists the ids of every stored vector of entityType, ascending.
func (s *Store) EntityIDs(ctx context.Context, entityType string) ([]int64, error) {
	if err := validType(entityType); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id FROM embeddings WHERE entity_type = ? ORDER BY entity_id`, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearType removes every vector of entityType and returns how many were removed.
func (s *Store) ClearType(ctx context.Context, entityType string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE entity_type = ?`, entityType)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearAll removes every vector.
func (s *Store) ClearAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM embeddings`)
	return err
}

// Stats returns counts per entity type and model and the dimension range.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByType: []TypeCount{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&st.Total); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_type, model, COUNT(*) FROM embeddings
		 GROUP BY entity_type, model ORDER BY entity_type, model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.EntityType, &tc.Model, &tc.Count); err != nil {
			return nil, err
		}
		st.ByType = append(st.ByType, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	var minD, maxD sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT AVG(dimensions), MIN(dimensions), MAX(dimensions) FROM embeddings`,
	).Scan(&avg, &minD, &maxD); err != nil {
		return nil, err
	}
	st.AvgDimensions = avg.Float64
	st.MinDimensions = int(minD.Int64)
	st.MaxDimensions = int(maxD.Int64)
	return st, nil
}
