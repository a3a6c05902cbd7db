package repos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/nanobanan/banana/internal/db/models"
)

type JobRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestJobRepository(t *testing.T) {
	suite.Run(t, new(JobRepositoryTestSuite))
}

func (s *JobRepositoryTestSuite) TestCreate() {
	job := s.createTestJob()
	s.NotZero(job.ID)

	found, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusQueued, found.Status)
	s.Equal(0, found.Attempts)
	s.Equal(job.Prompt, found.Prompt)
	s.Equal(job.Params.Model, found.Params.Model)
}

func (s *JobRepositoryTestSuite) TestCreateDuplicateID() {
	original := s.createTestJob()

	dup := models.NewGenerateJob("another prompt", original.Params)
	dup.ID = original.ID
	err := s.jobRepo.Create(s.ctx, dup)
	s.ErrorIs(err, ErrDuplicateID)
}

func (s *JobRepositoryTestSuite) TestCreateRejectsNonQueued() {
	job := models.NewGenerateJob("prompt", models.Params{})
	job.Status = models.JobStatusRunning
	s.Error(s.jobRepo.Create(s.ctx, job))

	job.ID = ""
	job.Status = models.JobStatusQueued
	s.Error(s.jobRepo.Create(s.ctx, job), "create must reject an empty id")
}

func (s *JobRepositoryTestSuite) TestGetByID() {
	original := s.createTestJob()

	found, err := s.jobRepo.GetByID(s.ctx, original.ID)
	s.NoError(err)
	s.Equal(original.ID, found.ID)

	_, err = s.jobRepo.GetByID(s.ctx, "bn_missing1")
	s.ErrorIs(err, ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestTransition() {
	job := s.createTestJob()

	err := s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusQueued, models.JobStatusRunning, map[string]interface{}{
		models.JobAttemptsField: 1,
	})
	s.NoError(err)

	updated, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusRunning, updated.Status)
	s.Equal(1, updated.Attempts)
	s.False(updated.UpdatedAt.Before(job.UpdatedAt))
}

func (s *JobRepositoryTestSuite) TestTransitionStale() {
	job := s.createTestJob()

	// First claim wins
	err := s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusQueued, models.JobStatusRunning, nil)
	s.NoError(err)

	// Second writer with a stale expectation loses and changes nothing
	err = s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusQueued, models.JobStatusFailed, map[string]interface{}{
		models.JobErrorKindField: models.ErrorKindCancelled,
	})
	s.ErrorIs(err, ErrStaleTransition)

	current, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusRunning, current.Status)
	s.Equal(models.ErrorKindNone, current.ErrorKind)
}

func (s *JobRepositoryTestSuite) TestTransitionNotFound() {
	err := s.jobRepo.Transition(s.ctx, "bn_missing1", models.JobStatusQueued, models.JobStatusRunning, nil)
	s.ErrorIs(err, ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestTransitionRejectsInvalidEdge() {
	job := s.createTestJob()

	// Queued jobs cannot complete without running
	err := s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusQueued, models.JobStatusCompleted, nil)
	s.Error(err)

	// Terminal states accept no further transitions
	s.NoError(s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusQueued, models.JobStatusRunning, nil))
	s.NoError(s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusRunning, models.JobStatusCompleted, nil))
	err = s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusCompleted, models.JobStatusFailed, nil)
	s.Error(err)
}

func (s *JobRepositoryTestSuite) TestTransitionPersistsImages() {
	job := s.createTestJob()
	s.NoError(s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusQueued, models.JobStatusRunning, nil))

	images := models.Images{{Index: 0, MIMEType: "image/png", Data: "aGVsbG8="}}
	err := s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusRunning, models.JobStatusCompleted, map[string]interface{}{
		models.JobImagesField: images,
	})
	s.NoError(err)

	done, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Len(done.Images, 1)
	s.Equal("image/png", done.Images[0].MIMEType)
	s.Equal("aGVsbG8=", done.Images[0].Data)
}

func (s *JobRepositoryTestSuite) TestList() {
	first := s.createTestJob()
	time.Sleep(5 * time.Millisecond)
	second := s.createTestJob()

	s.NoError(s.jobRepo.Transition(s.ctx, first.ID, models.JobStatusQueued, models.JobStatusRunning, nil))

	// No filter returns everything, newest first
	jobs, err := s.jobRepo.List(s.ctx, Filter{}, nil)
	s.NoError(err)
	s.Require().Len(jobs, 2)
	s.Equal(second.ID, jobs[0].ID)
	s.Equal(first.ID, jobs[1].ID)

	// Status filter
	jobs, err = s.jobRepo.List(s.ctx, Filter{Status: models.JobStatusQueued}, nil)
	s.NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(second.ID, jobs[0].ID)

	// ID prefix filter
	jobs, err = s.jobRepo.List(s.ctx, Filter{IDPrefix: first.ID[:6]}, nil)
	s.NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(first.ID, jobs[0].ID)

	// Limit
	jobs, err = s.jobRepo.List(s.ctx, Filter{}, &models.ListOptions{Limit: 1})
	s.NoError(err)
	s.Len(jobs, 1)
}

func (s *JobRepositoryTestSuite) TestCount() {
	s.createTestJob()
	job := s.createTestJob()
	s.NoError(s.jobRepo.Transition(s.ctx, job.ID, models.JobStatusQueued, models.JobStatusRunning, nil))

	total, err := s.jobRepo.Count(s.ctx, Filter{})
	s.NoError(err)
	s.Equal(int64(2), total)

	queued, err := s.jobRepo.Count(s.ctx, Filter{Status: models.JobStatusQueued})
	s.NoError(err)
	s.Equal(int64(1), queued)
}

func (s *JobRepositoryTestSuite) TestDelete() {
	job := s.createTestJob()

	s.NoError(s.jobRepo.Delete(s.ctx, job.ID))

	_, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.ErrorIs(err, ErrNotFound)

	err = s.jobRepo.Delete(s.ctx, job.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestDeleteAll() {
	s.createTestJob()
	s.createTestJob()

	n, err := s.jobRepo.DeleteAll(s.ctx)
	s.NoError(err)
	s.Equal(int64(2), n)

	total, err := s.jobRepo.Count(s.ctx, Filter{})
	s.NoError(err)
	s.Zero(total)
}
