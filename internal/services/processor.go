package services

import (
	"context"
	"time"

	"github.com/epicwp/bulkagent/internal/db/models"
	"github.com/epicwp/bulkagent/internal/db/repos"
	"github.com/epicwp/bulkagent/internal/events"
	"github.com/epicwp/bulkagent/internal/logger"
)

// TaskPerformer runs one bounded conversation for a task on a product.
// Implemented by the agent package; narrowed to an interface for testing.
type TaskPerformer interface {
	PerformTask(ctx context.Context, task string, productID int64) (bool, error)
}

// Processor executes exactly one job end-to-end and guarantees the job is
// left in a terminal state even when the agent fails hard.
type Processor struct {
	agent   TaskPerformer
	jobRepo *repos.JobRepository
	bus     *events.Bus
	now     func() time.Time
}

var _ JobProcessor = (*Processor)(nil)

// NewProcessor creates a new job processor
func NewProcessor(agent TaskPerformer, jobRepo *repos.JobRepository, bus *events.Bus) *Processor {
	return &Processor{
		agent:   agent,
		jobRepo: jobRepo,
		bus:     bus,
		now:     time.Now,
	}
}

// Process transitions the job through start/running, invokes the agent and
// finalizes the status. The job-finished event fires exactly once on every
// path, success, non-completion or hard failure, so listeners can always
// clear their per-job state.
func (p *Processor) Process(ctx context.Context, job *models.Job, task string) (success bool) {
	if err := job.Start(p.now()); err != nil {
		logger.Errorf("Job %d cannot start: %v", job.ID, err)
		return false
	}
	if err := p.jobRepo.Update(ctx, job); err != nil {
		logger.Errorf("Failed to persist job %d start: %v", job.ID, err)
		return false
	}

	logger.InfoWithFields("Job started", map[string]interface{}{
		"job_id":     job.ID,
		"product_id": job.ProductID,
	})

	p.bus.Publish(ctx, events.Event{
		Type:  events.TypeBeforePerformTask,
		JobID: job.ID,
	})
	defer func() {
		p.bus.Publish(ctx, events.Event{
			Type:    events.TypeJobFinished,
			JobID:   job.ID,
			Success: success,
		})
	}()

	completed, err := p.agent.PerformTask(ctx, task, job.ProductID)

	switch {
	case err != nil:
		p.finalize(ctx, job, func(now time.Time) error { return job.Fail(now, err.Error()) })
		logger.ErrorWithFields("Job failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		return false
	case !completed:
		p.finalize(ctx, job, func(now time.Time) error { return job.Fail(now, "") })
		logger.WarnWithFields("Job did not complete", map[string]interface{}{
			"job_id": job.ID,
		})
		return false
	default:
		p.finalize(ctx, job, job.Complete)
		logger.InfoWithFields("Job completed", map[string]interface{}{
			"job_id": job.ID,
		})
		return true
	}
}

// finalize applies a terminal transition and persists it. Persistence
// errors are logged, not propagated: the caller has no better terminal
// state to move to.
func (p *Processor) finalize(ctx context.Context, job *models.Job, transition func(time.Time) error) {
	if err := transition(p.now()); err != nil {
		logger.Errorf("Job %d transition failed: %v", job.ID, err)
		return
	}
	if err := p.jobRepo.Update(ctx, job); err != nil {
		logger.Errorf("Failed to persist job %d status: %v", job.ID, err)
	}
}
