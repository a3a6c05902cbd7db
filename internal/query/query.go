// Package query provides read-only projections over the job store, shared
// by the one-shot CLI commands and the live-refreshing TUI. Every read is a
// consistent snapshot; the façade never blocks writers.
package query

import (
	"context"

	"github.com/nanobanan/banana/internal/db/models"
	"github.com/nanobanan/banana/internal/db/repos"
)

// Service exposes the read side of the job store
type Service struct {
	repo *repos.JobRepository
}

// NewService creates a query service over the given repository
func NewService(repo *repos.JobRepository) *Service {
	return &Service{repo: repo}
}

// List returns jobs matching the filter, newest first
func (s *Service) List(ctx context.Context, filter repos.Filter, opts *models.ListOptions) ([]models.Job, error) {
	return s.repo.List(ctx, filter, opts)
}

// Get returns a single job's full detail
func (s *Service) Get(ctx context.Context, id string) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// Count returns the number of jobs matching the filter
func (s *Service) Count(ctx context.Context, filter repos.Filter) (int64, error) {
	return s.repo.Count(ctx, filter)
}

// Counts returns per-status job totals for the TUI status bar
func (s *Service) Counts(ctx context.Context) (map[models.JobStatus]int64, error) {
	counts := make(map[models.JobStatus]int64)
	for _, status := range []models.JobStatus{
		models.JobStatusQueued,
		models.JobStatusRunning,
		models.JobStatusCompleted,
		models.JobStatusFailed,
	} {
		n, err := s.repo.Count(ctx, repos.Filter{Status: status})
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}
