package services

import (
	"context"
	"errors"

	"github.com/epicwp/bulkagent/internal/db/models"
	"github.com/epicwp/bulkagent/internal/events"
)

// finishedRecorder collects job-finished events
type finishedRecorder struct {
	events []events.Event
}

func (r *finishedRecorder) record(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (s *ServiceSuite) pendingJob(productID int64) *models.Job {
	run := s.mustCreateRun("add tags", productID)
	jobs, err := s.runs.Jobs(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	return &jobs[0]
}

func (s *ServiceSuite) TestProcessCompletesJob() {
	recorder := &finishedRecorder{}
	s.bus.Subscribe(events.TypeJobFinished, recorder.record)

	job := s.pendingJob(101)
	processor := NewProcessor(&stubPerformer{completed: true}, s.jobRepo, s.bus)

	s.True(processor.Process(s.ctx, job, "add tags"))

	fetched, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobStatusCompleted, fetched.Status)
	s.NotNil(fetched.StartedAt)
	s.NotNil(fetched.FinishedAt)

	s.Require().Len(recorder.events, 1)
	s.Equal(job.ID, recorder.events[0].JobID)
	s.True(recorder.events[0].Success)
}

func (s *ServiceSuite) TestProcessAgentErrorFailsJobWithFeedback() {
	recorder := &finishedRecorder{}
	s.bus.Subscribe(events.TypeJobFinished, recorder.record)

	job := s.pendingJob(101)
	performer := &stubPerformer{err: errors.New("completion failed: connection refused")}
	processor := NewProcessor(performer, s.jobRepo, s.bus)

	s.False(processor.Process(s.ctx, job, "add tags"))

	fetched, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobStatusFailed, fetched.Status)
	s.NotEmpty(fetched.Feedback)
	s.Contains(fetched.Feedback, "connection refused")

	// job-finished fires exactly once, also on the failure path
	s.Require().Len(recorder.events, 1)
	s.False(recorder.events[0].Success)
}

func (s *ServiceSuite) TestProcessNonCompletionFailsJob() {
	recorder := &finishedRecorder{}
	s.bus.Subscribe(events.TypeJobFinished, recorder.record)

	job := s.pendingJob(101)
	processor := NewProcessor(&stubPerformer{completed: false}, s.jobRepo, s.bus)

	s.False(processor.Process(s.ctx, job, "add tags"))

	fetched, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobStatusFailed, fetched.Status)

	s.Require().Len(recorder.events, 1)
	s.False(recorder.events[0].Success)
}

func (s *ServiceSuite) TestProcessRefusesFinalJob() {
	recorder := &finishedRecorder{}
	s.bus.Subscribe(events.TypeJobFinished, recorder.record)

	job := s.pendingJob(101)
	s.Require().NoError(job.Cancel(s.runs.now()))
	s.Require().NoError(s.jobRepo.Update(s.ctx, job))

	processor := NewProcessor(&stubPerformer{completed: true}, s.jobRepo, s.bus)
	s.False(processor.Process(s.ctx, job, "add tags"))

	// the job never started, so no lifecycle events fired
	s.Empty(recorder.events)
}

func (s *ServiceSuite) TestProcessBeforePerformTaskPrecedesFinish() {
	var order []events.Type
	s.bus.Subscribe(events.TypeBeforePerformTask, func(_ context.Context, e events.Event) error {
		order = append(order, e.Type)
		return nil
	})
	s.bus.Subscribe(events.TypeJobFinished, func(_ context.Context, e events.Event) error {
		order = append(order, e.Type)
		return nil
	})

	job := s.pendingJob(101)
	NewProcessor(&stubPerformer{completed: true}, s.jobRepo, s.bus).Process(s.ctx, job, "add tags")

	s.Equal([]events.Type{events.TypeBeforePerformTask, events.TypeJobFinished}, order)
}
