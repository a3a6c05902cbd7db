// Package repos provides access to job-related database operations
package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nanobanan/banana/internal/db/models"
)

// Store-level sentinel errors surfaced to the immediate caller
var (
	// ErrNotFound is returned when no job exists for the given ID
	ErrNotFound = errors.New("job not found")
	// ErrDuplicateID is returned when a created job collides on ID; the
	// caller must regenerate the ID and retry
	ErrDuplicateID = errors.New("duplicate job id")
	// ErrStaleTransition is returned when the persisted status no longer
	// matches the expected status of a conditional update. The losing
	// writer must abort without side effects.
	ErrStaleTransition = errors.New("stale transition")
)

// Filter narrows list queries
type Filter struct {
	// Status restricts results to a single status; JobStatusUnknown matches all
	Status models.JobStatus
	// IDPrefix restricts results to IDs starting with the given prefix
	IDPrefix string
}

// JobRepository provides access to job-related database operations
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record. The job must be queued; every job enters
// the state machine at its initial state.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id must be set before create")
	}
	if job.Status != models.JobStatusQueued {
		return fmt.Errorf("new jobs must be created queued, got %s", job.Status)
	}
	err := r.db.WithContext(ctx).Create(job).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("job %s: %w", job.ID, ErrDuplicateID)
	}
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Transition atomically moves a job from expected to next, applying the
// associated field updates in the same statement. It is the sole write path
// after creation. A mismatch between expected and the persisted status
// yields ErrStaleTransition and leaves the record untouched.
func (r *JobRepository) Transition(ctx context.Context, id string, expected, next models.JobStatus, fields map[string]interface{}) error {
	if !models.ValidTransition(expected, next) {
		return fmt.Errorf("transition %s -> %s is not permitted", expected, next)
	}

	updates := map[string]interface{}{
		models.JobStatusField:    next,
		models.JobUpdatedAtField: time.Now().UTC(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to transition job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("job %s is %s, expected %s: %w", id, current.Status, expected, ErrStaleTransition)
	}
	return nil
}

// GetByID retrieves a job by its ID
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// List returns jobs matching the filter, newest first
func (r *JobRepository) List(ctx context.Context, filter Filter, opts *models.ListOptions) ([]models.Job, error) {
	opts = opts.WithDefaults()

	var jobs []models.Job
	q := r.db.WithContext(ctx).Model(&models.Job{})

	// Unknown status means no status filter
	if filter.Status != models.JobStatusUnknown {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.IDPrefix != "" {
		q = q.Where("id LIKE ?", filter.IDPrefix+"%")
	}

	err := q.Limit(opts.Limit).Offset(opts.Offset).
		Order(models.JobCreatedAtField + " DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Count returns the number of jobs matching the filter
func (r *JobRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Job{})
	if filter.Status != models.JobStatusUnknown {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.IDPrefix != "" {
		q = q.Where("id LIKE ?", filter.IDPrefix+"%")
	}
	err := q.Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

// Delete removes a job from history. This is an explicit administrative
// purge; nothing in the engine deletes rows.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Job{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAll removes every job from history and returns the purge count
func (r *JobRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Job{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
