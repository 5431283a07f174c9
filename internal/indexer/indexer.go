// Package indexer keeps the embeddings table and the keyword index in step
// with the job board: single-entity hooks and a full sync.
package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/extract"
	"github.com/hyperjump/wantokmatch/internal/keyword"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/internal/storage"
	"github.com/hyperjump/wantokmatch/internal/vector"
)

// VectorStore is the part of vector.Store the indexer writes to.
type VectorStore interface {
	Upsert(ctx context.Context, entityType string, entityID int64, text string) (*vector.UpsertResult, error)
	Delete(ctx context.Context, entityType string, entityID int64) (bool, error)
	EntityIDs(ctx context.Context, entityType string) ([]int64, error)
}

// Indexer embeds jobs and profiles read from the job board.
type Indexer struct {
	source     storage.Source
	store      VectorStore
	keyword    keyword.Index
	extractor  *extract.Extractor
	uploadsDir string
	cvMaxChars int
	workers    int
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithKeywordIndex keeps idx in step with active jobs.
func WithKeywordIndex(k keyword.Index) IndexerOption {
	return func(idx *Indexer) { idx.keyword = k }
}

// WithCVs folds up to maxChars of each uploaded CV into the profile text.
// cv_url values resolve against uploadsDir.
func WithCVs(e *extract.Extractor, uploadsDir string, maxChars int) IndexerOption {
	return func(idx *Indexer) {
		idx.extractor = e
		idx.uploadsDir = uploadsDir
		idx.cvMaxChars = maxChars
	}
}

// WithWorkers sets the sync pool size. Values below 1 mean 1.
func WithWorkers(n int) IndexerOption {
	return func(idx *Indexer) { idx.workers = max(n, 1) }
}

// NewIndexer creates an indexer reading from source and writing to store.
func NewIndexer(source storage.Source, store VectorStore, opts ...IndexerOption) *Indexer {
	idx := &Indexer{source: source, store: store, workers: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexJob embeds one job. A job that exists but is not active is removed
// from both indexes and reported as not found.
func (idx *Indexer) IndexJob(ctx context.Context, jobID int64) (*vector.UpsertResult, error) {
	job, err := idx.source.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Active() {
		if _, err := idx.RemoveJob(ctx, jobID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("job %d is %s: %w", jobID, job.Status, errs.ErrEntityNotFound)
	}
	return idx.indexJob(ctx, job)
}

func (idx *Indexer) indexJob(ctx context.Context, job *models.Job) (*vector.UpsertResult, error) {
	if idx.keyword != nil {
		if err := idx.keyword.IndexJob(ctx, job); err != nil {
			idx.logger.Warn("keyword index update failed", zap.Int64("job_id", job.ID), zap.Error(err))
		}
	}
	res, err := idx.store.Upsert(ctx, models.EntityJob, job.ID, JobText(job))
	if err != nil {
		return nil, err
	}
	idx.logger.Debug("job indexed", zap.Int64("job_id", job.ID), zap.Bool("cached", res.Cached))
	return res, nil
}

// IndexProfile embeds one job seeker profile, CV excerpt included. Profiles
// of inactive users are removed and reported as not found.
func (idx *Indexer) IndexProfile(ctx context.Context, userID int64) (*vector.UpsertResult, error) {
	p, err := idx.source.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.Active() {
		if _, err := idx.RemoveProfile(ctx, userID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("user %d is %s: %w", userID, p.Status, errs.ErrEntityNotFound)
	}
	return idx.indexProfile(ctx, p)
}

func (idx *Indexer) indexProfile(ctx context.Context, p *models.Profile) (*vector.UpsertResult, error) {
	res, err := idx.store.Upsert(ctx, models.EntityProfile, p.UserID, ProfileText(p, idx.cvText(p)))
	if err != nil {
		return nil, err
	}
	idx.logger.Debug("profile indexed", zap.Int64("user_id", p.UserID), zap.Bool("cached", res.Cached))
	return res, nil
}

// cvText returns the CV excerpt for p. Extraction failures are logged and
// the profile is embedded without it.
func (idx *Indexer) cvText(p *models.Profile) string {
	if idx.extractor == nil || p.CVURL == "" {
		return ""
	}
	text, err := idx.extractor.CVText(idx.uploadsDir, p.CVURL, idx.cvMaxChars)
	if err != nil {
		idx.logger.Warn("cv extraction failed",
			zap.Int64("user_id", p.UserID), zap.String("cv_url", p.CVURL), zap.Error(err))
		return ""
	}
	return text
}

// RemoveJob deletes a job's embedding and keyword entry. It reports whether
// an embedding existed.
func (idx *Indexer) RemoveJob(ctx context.Context, jobID int64) (bool, error) {
	if idx.keyword != nil {
		if err := idx.keyword.Delete(ctx, jobID); err != nil {
			return false, fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	return idx.store.Delete(ctx, models.EntityJob, jobID)
}

// RemoveProfile deletes a profile's embedding.
func (idx *Indexer) RemoveProfile(ctx context.Context, userID int64) (bool, error) {
	return idx.store.Delete(ctx, models.EntityProfile, userID)
}

// SyncReport summarises one full sync.
type SyncReport struct {
	RunID    string            `json:"run_id"`
	Jobs     vector.BatchStats `json:"jobs"`
	Profiles vector.BatchStats `json:"profiles"`
	Duration time.Duration     `json:"duration"`

	// Stale entries pruned by the run.
	JobsRemoved     int `json:"jobs_removed"`
	ProfilesRemoved int `json:"profiles_removed"`
}

// Sync embeds every active job and every active profile, then prunes
// embeddings and keyword entries of jobs that are no longer active and of
// profiles whose user is inactive or gone. Per-entity failures are logged
// and counted; only failing to list entities aborts the run. Unchanged
// texts are cache hits and cost no provider call.
func (idx *Indexer) Sync(ctx context.Context) (*SyncReport, error) {
	start := time.Now()
	report := &SyncReport{RunID: uuid.New().String()}
	log := idx.logger.With(zap.String("run_id", report.RunID))

	jobs, err := idx.source.ListActiveJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	profiles, err := idx.source.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	log.Info("sync started", zap.Int("jobs", len(jobs)), zap.Int("profiles", len(profiles)))

	pool, err := ants.NewPool(idx.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	count := func(stats *vector.BatchStats, res *vector.UpsertResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			stats.Errors++
		case res.Cached:
			stats.Processed++
			stats.Cached++
		default:
			stats.Processed++
		}
	}
	submit := func(stats *vector.BatchStats, entityType string, entityID int64, task func() (*vector.UpsertResult, error)) {
		if ctx.Err() != nil {
			count(stats, nil, ctx.Err())
			return
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			res, err := task()
			if err != nil {
				log.Error("failed to embed entity",
					zap.String("entity_type", entityType), zap.Int64("entity_id", entityID), zap.Error(err))
			}
			count(stats, res, err)
		})
		if err != nil {
			wg.Done()
			count(stats, nil, err)
		}
	}

	for _, j := range jobs {
		submit(&report.Jobs, models.EntityJob, j.ID, func() (*vector.UpsertResult, error) { return idx.indexJob(ctx, j) })
	}
	for _, p := range profiles {
		submit(&report.Profiles, models.EntityProfile, p.UserID, func() (*vector.UpsertResult, error) { return idx.indexProfile(ctx, p) })
	}
	wg.Wait()

	if ctx.Err() == nil {
		activeJobs := make(map[int64]bool, len(jobs))
		for _, j := range jobs {
			activeJobs[j.ID] = true
		}
		activeProfiles := make(map[int64]bool, len(profiles))
		for _, p := range profiles {
			activeProfiles[p.UserID] = true
		}
		report.JobsRemoved = idx.prune(ctx, log, models.EntityJob, activeJobs, idx.RemoveJob)
		report.ProfilesRemoved = idx.prune(ctx, log, models.EntityProfile, activeProfiles, idx.RemoveProfile)
	}

	report.Duration = time.Since(start)
	log.Info("sync finished",
		zap.Any("jobs", report.Jobs), zap.Any("profiles", report.Profiles),
		zap.Int("jobs_removed", report.JobsRemoved), zap.Int("profiles_removed", report.ProfilesRemoved),
		zap.Duration("duration", report.Duration))
	return report, ctx.Err()
}

// prune removes every stored entityType entry whose id is not in active.
// Jobs are also looked up in the keyword index, which can hold entries whose
// embedding failed. Failures are logged; the count is of entries removed.
func (idx *Indexer) prune(ctx context.Context, log *zap.Logger, entityType string, active map[int64]bool,
	remove func(context.Context, int64) (bool, error)) int {
	stale := map[int64]bool{}
	ids, err := idx.store.EntityIDs(ctx, entityType)
	if err != nil {
		log.Error("failed to list stored embeddings", zap.String("entity_type", entityType), zap.Error(err))
	}
	for _, id := range ids {
		if !active[id] {
			stale[id] = true
		}
	}
	if entityType == models.EntityJob && idx.keyword != nil {
		kwIDs, err := idx.keyword.JobIDs(ctx)
		if err != nil {
			log.Error("failed to list keyword index", zap.Error(err))
		}
		for _, id := range kwIDs {
			if !active[id] {
				stale[id] = true
			}
		}
	}

	removed := 0
	for id := range stale {
		if _, err := remove(ctx, id); err != nil {
			log.Error("failed to remove stale entity",
				zap.String("entity_type", entityType), zap.Int64("entity_id", id), zap.Error(err))
			continue
		}
		removed++
	}
	return removed
}
