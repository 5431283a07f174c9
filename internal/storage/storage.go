// Package storage reads jobs and job seeker profiles from the job board
// database. The matching engine never writes to it.
package storage

import (
	"context"

	"github.com/hyperjump/wantokmatch/internal/models"
)

// Source is the read-only view of the job board used for hydration and indexing.
type Source interface {
	// GetJob returns a job in any status, or an error wrapping errs.ErrEntityNotFound.
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	// GetJobs returns the active jobs among ids, in no particular order.
	GetJobs(ctx context.Context, ids []int64) ([]*models.Job, error)
	// GetProfile returns a job seeker profile, or an error wrapping errs.ErrEntityNotFound.
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	// GetCandidates returns the profiles of active users among ids.
	GetCandidates(ctx context.Context, userIDs []int64) ([]*models.Profile, error)

	ListActiveJobs(ctx context.Context) ([]*models.Job, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)

	Close() error
}
