package services

import (
	"encoding/json"
	"time"

	"github.com/epicwp/bulkagent/internal/db/models"
	"github.com/epicwp/bulkagent/internal/events"
	"github.com/epicwp/bulkagent/internal/llm"
)

// runSingleJob processes the run's single job through the real agent with
// the given scripted responses and returns the job
func (s *ServiceSuite) runSingleJob(productID int64, responses ...*llm.Response) *models.Job {
	run := s.mustCreateRun("edit product", productID)
	client := &scriptedClient{responses: responses}
	s.Require().NoError(s.runs.Start(s.ctx, run, s.newAgentProcessor(client)))

	jobs, err := s.runs.Jobs(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	return &jobs[0]
}

func (s *ServiceSuite) TestCaptureRecordsPreviousValue() {
	job := s.runSingleJob(101,
		updateTitleResponse(101, "Crimson Mug"),
		stopResponse("Done."),
	)

	records, err := s.rollbackRepo.ListUnappliedByJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("title", records[0].Property)
	s.Equal(models.RollbackStatusUnapplied, records[0].Status)
	s.JSONEq(`"Red Mug"`, string(records[0].PreviousValue))
}

func (s *ServiceSuite) TestCaptureSkipsEmptyPreviousValue() {
	job := s.runSingleJob(102,
		&llm.Response{
			FinishReason: llm.FinishReasonToolCalls,
			ToolCalls: []llm.ToolCall{{
				ID:   "call_1",
				Type: "function",
				Function: llm.FunctionCall{
					Name:      "update_product_short_description",
					Arguments: `{"product_id": 102, "short_description": "A fine blue mug."}`,
				},
			}},
		},
		stopResponse("Done."),
	)

	// the product had no short description, so there is nothing to restore
	count, err := s.engine.PendingCount(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}

func (s *ServiceSuite) TestCaptureIgnoresToolsOutsideJob() {
	_, err := s.registry.Execute(s.ctx, "update_product_title", map[string]interface{}{
		"product_id": float64(101),
		"title":      "Renamed Outside",
	})
	s.Require().NoError(err)

	var count int64
	s.Require().NoError(s.db.Model(&models.RollbackRecord{}).Count(&count).Error)
	s.Equal(int64(0), count)
}

func (s *ServiceSuite) TestCaptureMarkerExpires() {
	job := s.pendingJob(101)

	marked := time.Now()
	s.engine.now = func() time.Time { return marked }
	s.bus.Publish(s.ctx, events.Event{Type: events.TypeBeforePerformTask, JobID: job.ID})

	// past the TTL the marker no longer attributes tool calls to the job
	s.engine.now = func() time.Time { return marked.Add(DefaultMarkerTTL + time.Second) }
	_, err := s.registry.Execute(s.ctx, "update_product_title", map[string]interface{}{
		"product_id": float64(101),
		"title":      "Too Late",
	})
	s.Require().NoError(err)

	count, err := s.engine.PendingCount(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}

func (s *ServiceSuite) TestRollbackRestoresPreviousValue() {
	job := s.runSingleJob(101,
		updateTitleResponse(101, "Crimson Mug"),
		stopResponse("Done."),
	)

	product, err := s.store.GetProduct(s.ctx, 101)
	s.Require().NoError(err)
	s.Equal("Crimson Mug", product.Title)

	applied, err := s.engine.Rollback(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(1, applied)

	product, err = s.store.GetProduct(s.ctx, 101)
	s.Require().NoError(err)
	s.Equal("Red Mug", product.Title)

	// records are consumed: a second rollback applies nothing
	applied, err = s.engine.Rollback(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(0, applied)
}

func (s *ServiceSuite) TestRollbackRestoresTags() {
	job := s.runSingleJob(101,
		&llm.Response{
			FinishReason: llm.FinishReasonToolCalls,
			ToolCalls: []llm.ToolCall{{
				ID:   "call_1",
				Type: "function",
				Function: llm.FunctionCall{
					Name:      "update_product_tags",
					Arguments: `{"product_id": 101, "tags": ["kitchen", "ceramic", "gift"]}`,
				},
			}},
		},
		stopResponse("Done."),
	)

	applied, err := s.engine.Rollback(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(1, applied)

	product, err := s.store.GetProduct(s.ctx, 101)
	s.Require().NoError(err)
	s.Equal([]string{"kitchen"}, product.Tags)
}

func (s *ServiceSuite) TestRollbackRunCoversEveryJob() {
	run := s.mustCreateRun("improve titles", 101, 102)
	client := &scriptedClient{responses: []*llm.Response{
		updateTitleResponse(101, "Crimson Mug"),
		stopResponse("Done."),
		updateTitleResponse(102, "Azure Mug"),
		stopResponse("Done."),
	}}
	s.Require().NoError(s.runs.Start(s.ctx, run, s.newAgentProcessor(client)))

	applied, err := s.engine.RollbackRun(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Equal(2, applied)

	first, err := s.store.GetProduct(s.ctx, 101)
	s.Require().NoError(err)
	s.Equal("Red Mug", first.Title)
	second, err := s.store.GetProduct(s.ctx, 102)
	s.Require().NoError(err)
	s.Equal("Blue Mug", second.Title)
}

func (s *ServiceSuite) TestRollbackSkipsUnmappedProperty() {
	job := s.pendingJob(101)
	record := &models.RollbackRecord{
		JobID:         job.ID,
		Property:      "price",
		PreviousValue: json.RawMessage(`"9.99"`),
	}
	s.Require().NoError(s.rollbackRepo.Create(s.ctx, record))

	applied, err := s.engine.Rollback(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(0, applied)

	// the record stays unapplied rather than being silently consumed
	count, err := s.engine.PendingCount(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *ServiceSuite) TestPendingCount() {
	job := s.runSingleJob(101,
		updateTitleResponse(101, "Crimson Mug"),
		stopResponse("Done."),
	)

	count, err := s.engine.PendingCount(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}
