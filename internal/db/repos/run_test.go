package repos

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/epicwp/bulkagent/internal/db/models"
)

func (s *RepoSuite) TestRunCreateDefaultsToPending() {
	run := s.createRun("add tags")

	fetched, err := s.runs.GetByID(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Equal("add tags", fetched.Task)
	s.Equal(models.RunStatusPending, fetched.Status)
	s.Nil(fetched.StartedAt)
}

func (s *RepoSuite) TestRunCreateRejectsEmptyTask() {
	err := s.runs.Create(s.ctx, &models.Run{})
	s.Error(err)
}

func (s *RepoSuite) TestRunGetByIDNotFound() {
	_, err := s.runs.GetByID(s.ctx, 999)
	s.Require().Error(err)
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
}

func (s *RepoSuite) TestRunUpdatePersistsTransition() {
	run := s.createRun("add tags")

	s.Require().NoError(run.Start(time.Now()))
	s.Require().NoError(s.runs.Update(s.ctx, run))

	fetched, err := s.runs.GetByID(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusRunning, fetched.Status)
	s.NotNil(fetched.StartedAt)
}

func (s *RepoSuite) TestRunGetLatest() {
	latest, err := s.runs.GetLatest(s.ctx)
	s.Require().NoError(err)
	s.Nil(latest)

	s.createRun("first")
	second := s.createRun("second")

	latest, err = s.runs.GetLatest(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(second.ID, latest.ID)
}

func (s *RepoSuite) TestRunListFiltersByStatus() {
	pending := s.createRun("pending one")
	finished := s.createRun("finished one")
	s.Require().NoError(finished.Start(time.Now()))
	s.Require().NoError(finished.Complete(time.Now()))
	s.Require().NoError(s.runs.Update(s.ctx, finished))

	all, err := s.runs.List(s.ctx, nil, nil)
	s.Require().NoError(err)
	s.Len(all, 2)

	resumable, err := s.runs.List(s.ctx, []models.RunStatus{models.RunStatusPending, models.RunStatusPaused}, nil)
	s.Require().NoError(err)
	s.Require().Len(resumable, 1)
	s.Equal(pending.ID, resumable[0].ID)
}

func (s *RepoSuite) TestRunListHonorsLimit() {
	for i := 0; i < 3; i++ {
		s.createRun("bulk")
	}

	runs, err := s.runs.List(s.ctx, nil, &models.ListOptions{Limit: 2})
	s.Require().NoError(err)
	s.Len(runs, 2)
}

func (s *RepoSuite) TestRunCountAndDeleteAll() {
	s.createRun("one")
	s.createRun("two")

	count, err := s.runs.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	deleted, err := s.runs.DeleteAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), deleted)

	count, err = s.runs.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}
