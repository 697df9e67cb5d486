package services

import (
	"errors"
	"time"

	"github.com/epicwp/bulkagent/internal/db/models"
	"github.com/epicwp/bulkagent/internal/llm"
)

func (s *ServiceSuite) TestCreateRunCollapsesDuplicateProducts() {
	run, err := s.runs.Create(s.ctx, "add tags", []int64{101, 102, 101})
	s.Require().NoError(err)
	s.Equal(models.RunStatusPending, run.Status)

	jobs, err := s.runs.Jobs(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	s.Equal(int64(101), jobs[0].ProductID)
	s.Equal(int64(102), jobs[1].ProductID)
	for _, job := range jobs {
		s.Equal(models.JobStatusPending, job.Status)
	}

	summary, err := s.runs.Summary(s.ctx, run)
	s.Require().NoError(err)
	s.Equal(int64(2), summary.TotalJobs)
	s.Equal(int64(0), summary.CompletedJobs)
	s.Equal(0.0, summary.Progress)
}

func (s *ServiceSuite) TestCreateRunRejectsEmptyTask() {
	_, err := s.runs.Create(s.ctx, "", []int64{101})
	s.Error(err)
}

func (s *ServiceSuite) TestStartProcessesAllJobsInOrder() {
	run, err := s.runs.Create(s.ctx, "improve titles", []int64{101, 102})
	s.Require().NoError(err)

	client := &scriptedClient{responses: []*llm.Response{
		updateTitleResponse(101, "Crimson Mug"),
		stopResponse("First done."),
		updateTitleResponse(102, "Azure Mug"),
		stopResponse("Second done."),
	}}

	s.Require().NoError(s.runs.Start(s.ctx, run, s.newAgentProcessor(client)))

	s.Equal(models.RunStatusCompleted, run.Status)
	s.NotNil(run.StartedAt)
	s.NotNil(run.FinishedAt)

	jobs, err := s.runs.Jobs(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	for _, job := range jobs {
		s.Equal(models.JobStatusCompleted, job.Status)
	}

	first, err := s.store.GetProduct(s.ctx, 101)
	s.Require().NoError(err)
	s.Equal("Crimson Mug", first.Title)
	second, err := s.store.GetProduct(s.ctx, 102)
	s.Require().NoError(err)
	s.Equal("Azure Mug", second.Title)

	summary, err := s.runs.Summary(s.ctx, run)
	s.Require().NoError(err)
	s.Equal(1.0, summary.Progress)
}

func (s *ServiceSuite) TestStartWithStubProcessor() {
	run, err := s.runs.Create(s.ctx, "add tags", []int64{101, 102})
	s.Require().NoError(err)

	performer := &stubPerformer{completed: true}
	s.Require().NoError(s.runs.Start(s.ctx, run, NewProcessor(performer, s.jobRepo, s.bus)))

	// dispatched strictly in creation order
	s.Equal([]int64{101, 102}, performer.products)
	s.Equal(models.RunStatusCompleted, run.Status)
}

func (s *ServiceSuite) TestStartRefusesExhaustedFinalRun() {
	run, err := s.runs.Create(s.ctx, "add tags", []int64{101})
	s.Require().NoError(err)
	s.Require().NoError(s.runs.Start(s.ctx, run, NewProcessor(&stubPerformer{completed: true}, s.jobRepo, s.bus)))

	err = s.runs.Start(s.ctx, run, NewProcessor(&stubPerformer{completed: true}, s.jobRepo, s.bus))
	s.Require().Error(err)
	s.True(errors.Is(err, ErrRunFinished))
}

func (s *ServiceSuite) TestExtendSkipsExistingProducts() {
	run, err := s.runs.Create(s.ctx, "add tags", []int64{101})
	s.Require().NoError(err)

	added, err := s.runs.Extend(s.ctx, run.ID, []int64{101, 102})
	s.Require().NoError(err)
	s.Equal(1, added)

	jobs, err := s.runs.Jobs(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Len(jobs, 2)
}

func (s *ServiceSuite) TestExtendReopensFinishedRun() {
	run, err := s.runs.Create(s.ctx, "add tags", []int64{101})
	s.Require().NoError(err)
	s.Require().NoError(s.runs.Start(s.ctx, run, NewProcessor(&stubPerformer{completed: true}, s.jobRepo, s.bus)))
	s.Equal(models.RunStatusCompleted, run.Status)

	added, err := s.runs.Extend(s.ctx, run.ID, []int64{102})
	s.Require().NoError(err)
	s.Equal(1, added)

	// the appended pending job makes the finished run startable again
	performer := &stubPerformer{completed: true}
	s.Require().NoError(s.runs.Start(s.ctx, run, NewProcessor(performer, s.jobRepo, s.bus)))
	s.Equal([]int64{102}, performer.products)
	s.Equal(models.RunStatusCompleted, run.Status)
}

func (s *ServiceSuite) TestPause() {
	run, err := s.runs.Create(s.ctx, "add tags", []int64{101})
	s.Require().NoError(err)

	// pausing a pending run is invalid
	_, err = s.runs.Pause(s.ctx, run.ID)
	s.Error(err)

	s.Require().NoError(run.Start(time.Now()))
	s.Require().NoError(s.runRepo.Update(s.ctx, run))

	paused, err := s.runs.Pause(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusPaused, paused.Status)
}

func (s *ServiceSuite) TestCancelCancelsPendingJobs() {
	run, err := s.runs.Create(s.ctx, "add tags", []int64{101, 102})
	s.Require().NoError(err)

	cancelled, err := s.runs.Cancel(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusCancelled, cancelled.Status)

	jobs, err := s.runs.Jobs(s.ctx, run.ID)
	s.Require().NoError(err)
	for _, job := range jobs {
		s.Equal(models.JobStatusCancelled, job.Status)
	}

	// cancelling twice is an error
	_, err = s.runs.Cancel(s.ctx, run.ID)
	s.Error(err)
}

func (s *ServiceSuite) TestLatest() {
	_, err := s.runs.Latest(s.ctx)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrNoRuns))

	s.mustCreateRun("first", 101)
	second := s.mustCreateRun("second", 102)

	latest, err := s.runs.Latest(s.ctx)
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)
}

func (s *ServiceSuite) TestListAvailableOnly() {
	resumable := s.mustCreateRun("resumable", 101)
	finished := s.mustCreateRun("finished", 102)
	s.Require().NoError(s.runs.Start(s.ctx, finished, NewProcessor(&stubPerformer{completed: true}, s.jobRepo, s.bus)))

	summaries, err := s.runs.List(s.ctx, true, nil)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal(resumable.ID, summaries[0].ID)

	all, err := s.runs.List(s.ctx, false, nil)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ServiceSuite) TestClearAllReportsCounts() {
	run := s.mustCreateRun("add tags", 101, 102)
	s.Require().NoError(s.runs.Start(s.ctx, run, s.newAgentProcessor(&scriptedClient{responses: []*llm.Response{
		updateTitleResponse(101, "Crimson Mug"),
		stopResponse("Done."),
		updateTitleResponse(102, "Azure Mug"),
		stopResponse("Done."),
	}})))

	counts, err := s.runs.ClearAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), counts.Runs)
	s.Equal(int64(2), counts.Jobs)
	s.Equal(int64(2), counts.Rollbacks)

	_, err = s.runs.Latest(s.ctx)
	s.True(errors.Is(err, ErrNoRuns))
}

func (s *ServiceSuite) mustCreateRun(task string, productIDs ...int64) *models.Run {
	run, err := s.runs.Create(s.ctx, task, productIDs)
	s.Require().NoError(err)
	return run
}
