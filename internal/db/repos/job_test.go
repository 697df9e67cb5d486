package repos

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/epicwp/bulkagent/internal/db/models"
)

func (s *RepoSuite) TestJobCreateDefaultsToPending() {
	run := s.createRun("add tags")
	jobs := s.createJobs(run.ID, 101)

	fetched, err := s.jobs.GetByID(s.ctx, jobs[0].ID)
	s.Require().NoError(err)
	s.Equal(models.JobStatusPending, fetched.Status)
	s.Equal(int64(101), fetched.ProductID)
}

func (s *RepoSuite) TestJobGetByIDNotFound() {
	_, err := s.jobs.GetByID(s.ctx, 999)
	s.Require().Error(err)
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
}

func (s *RepoSuite) TestJobListByRunKeepsCreationOrder() {
	run := s.createRun("add tags")
	other := s.createRun("other")
	s.createJobs(run.ID, 103, 101, 102)
	s.createJobs(other.ID, 999)

	jobs, err := s.jobs.ListByRun(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Len(jobs, 3)
	s.Equal(int64(103), jobs[0].ProductID)
	s.Equal(int64(101), jobs[1].ProductID)
	s.Equal(int64(102), jobs[2].ProductID)
}

func (s *RepoSuite) TestJobNextPendingDispatchOrder() {
	run := s.createRun("add tags")
	created := s.createJobs(run.ID, 101, 102)

	next, err := s.jobs.NextPending(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().NotNil(next)
	s.Equal(created[0].ID, next.ID)

	s.Require().NoError(next.Start(time.Now()))
	s.Require().NoError(next.Complete(time.Now()))
	s.Require().NoError(s.jobs.Update(s.ctx, next))

	next, err = s.jobs.NextPending(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().NotNil(next)
	s.Equal(created[1].ID, next.ID)

	s.Require().NoError(next.Cancel(time.Now()))
	s.Require().NoError(s.jobs.Update(s.ctx, next))

	next, err = s.jobs.NextPending(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Nil(next)
}

func (s *RepoSuite) TestJobCountByRun() {
	run := s.createRun("add tags")
	jobs := s.createJobs(run.ID, 101, 102, 103)

	s.Require().NoError(jobs[0].Start(time.Now()))
	s.Require().NoError(jobs[0].Complete(time.Now()))
	s.Require().NoError(s.jobs.Update(s.ctx, jobs[0]))

	total, err := s.jobs.CountByRun(s.ctx, run.ID, "")
	s.Require().NoError(err)
	s.Equal(int64(3), total)

	completed, err := s.jobs.CountByRun(s.ctx, run.ID, models.JobStatusCompleted)
	s.Require().NoError(err)
	s.Equal(int64(1), completed)

	pending, err := s.jobs.CountByRun(s.ctx, run.ID, models.JobStatusPending)
	s.Require().NoError(err)
	s.Equal(int64(2), pending)
}

func (s *RepoSuite) TestJobProductIDsByRun() {
	run := s.createRun("add tags")
	s.createJobs(run.ID, 101, 102)

	ids, err := s.jobs.ProductIDsByRun(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Len(ids, 2)
	s.Contains(ids, int64(101))
	s.Contains(ids, int64(102))
}

func (s *RepoSuite) TestJobListPendingByRun() {
	run := s.createRun("add tags")
	jobs := s.createJobs(run.ID, 101, 102)

	s.Require().NoError(jobs[0].Cancel(time.Now()))
	s.Require().NoError(s.jobs.Update(s.ctx, jobs[0]))

	pending, err := s.jobs.ListPendingByRun(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(int64(102), pending[0].ProductID)
}
