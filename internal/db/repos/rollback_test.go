package repos

import (
	"encoding/json"

	"github.com/epicwp/bulkagent/internal/db/models"
)

func (s *RepoSuite) createRollbackRecord(jobID uint, property, value string) *models.RollbackRecord {
	record := &models.RollbackRecord{
		JobID:         jobID,
		Property:      property,
		PreviousValue: json.RawMessage(value),
	}
	s.Require().NoError(s.rollbacks.Create(s.ctx, record))
	return record
}

func (s *RepoSuite) TestRollbackCreateDefaultsToUnapplied() {
	run := s.createRun("add tags")
	job := s.createJobs(run.ID, 101)[0]

	record := s.createRollbackRecord(job.ID, "title", `"Old Title"`)
	s.Equal(models.RollbackStatusUnapplied, record.Status)
}

func (s *RepoSuite) TestRollbackCreateRejectsEmptyValue() {
	run := s.createRun("add tags")
	job := s.createJobs(run.ID, 101)[0]

	err := s.rollbacks.Create(s.ctx, &models.RollbackRecord{JobID: job.ID, Property: "title"})
	s.Error(err)
}

func (s *RepoSuite) TestRollbackListUnappliedByJobInOrder() {
	run := s.createRun("add tags")
	jobs := s.createJobs(run.ID, 101, 102)

	first := s.createRollbackRecord(jobs[0].ID, "title", `"Old Title"`)
	second := s.createRollbackRecord(jobs[0].ID, "tags", `["red","blue"]`)
	s.createRollbackRecord(jobs[1].ID, "title", `"Other"`)

	applied := s.createRollbackRecord(jobs[0].ID, "description", `"Old Description"`)
	s.Require().NoError(applied.MarkApplied())
	s.Require().NoError(s.rollbacks.Update(s.ctx, applied))

	records, err := s.rollbacks.ListUnappliedByJob(s.ctx, jobs[0].ID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(first.ID, records[0].ID)
	s.Equal(second.ID, records[1].ID)
}

func (s *RepoSuite) TestRollbackCountUnappliedByJob() {
	run := s.createRun("add tags")
	job := s.createJobs(run.ID, 101)[0]

	s.createRollbackRecord(job.ID, "title", `"Old Title"`)
	s.createRollbackRecord(job.ID, "tags", `["red"]`)

	count, err := s.rollbacks.CountUnappliedByJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func (s *RepoSuite) TestRollbackDeleteAll() {
	run := s.createRun("add tags")
	job := s.createJobs(run.ID, 101)[0]
	s.createRollbackRecord(job.ID, "title", `"Old Title"`)

	deleted, err := s.rollbacks.DeleteAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)
}
