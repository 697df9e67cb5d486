// Package services coordinates runs, jobs and rollbacks on top of the
// repositories.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epicwp/bulkagent/internal/db/models"
	"github.com/epicwp/bulkagent/internal/db/repos"
	"github.com/epicwp/bulkagent/internal/logger"
)

// ErrRunFinished is returned when a run in a final state with no pending
// jobs is asked to start again
var ErrRunFinished = errors.New("run is already completed, failed, or cancelled")

// ErrNoRuns is returned when a latest-run lookup finds nothing
var ErrNoRuns = errors.New("no runs found")

// JobProcessor executes one job end-to-end. Implemented by Processor;
// narrowed to an interface so run processing can be tested with a stub.
type JobProcessor interface {
	Process(ctx context.Context, job *models.Job, task string) bool
}

// ClearCounts reports how many rows a clear-all removed per table
type ClearCounts struct {
	Runs      int64 `json:"runs"`
	Jobs      int64 `json:"jobs"`
	Rollbacks int64 `json:"rollbacks"`
}

// Run handles run-related operations
type Run struct {
	runRepo      *repos.RunRepository
	jobRepo      *repos.JobRepository
	rollbackRepo *repos.RollbackRepository
	now          func() time.Time
}

// NewRunService creates a new instance of the run service
func NewRunService(runRepo *repos.RunRepository, jobRepo *repos.JobRepository, rollbackRepo *repos.RollbackRepository) *Run {
	return &Run{
		runRepo:      runRepo,
		jobRepo:      jobRepo,
		rollbackRepo: rollbackRepo,
		now:          time.Now,
	}
}

// Create creates a run with one pending job per product ID. Duplicate IDs
// in the input are collapsed, first occurrence wins.
func (s *Run) Create(ctx context.Context, task string, productIDs []int64) (*models.Run, error) {
	run := &models.Run{Task: task}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if _, err := s.addJobs(ctx, run.ID, productIDs, nil); err != nil {
		return nil, err
	}
	return run, nil
}

// Extend appends jobs for the given product IDs to an existing run,
// skipping products the run already targets. Returns the number of jobs
// actually added.
func (s *Run) Extend(ctx context.Context, runID uint, productIDs []int64) (int, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return 0, err
	}

	existing, err := s.jobRepo.ProductIDsByRun(ctx, run.ID)
	if err != nil {
		return 0, err
	}
	return s.addJobs(ctx, run.ID, productIDs, existing)
}

func (s *Run) addJobs(ctx context.Context, runID uint, productIDs []int64, seen map[int64]struct{}) (int, error) {
	if seen == nil {
		seen = make(map[int64]struct{}, len(productIDs))
	}
	var jobs []*models.Job
	for _, productID := range productIDs {
		if _, dup := seen[productID]; dup {
			continue
		}
		seen[productID] = struct{}{}
		jobs = append(jobs, &models.Job{RunID: runID, ProductID: productID})
	}
	if err := s.jobRepo.CreateBatch(ctx, jobs); err != nil {
		return 0, fmt.Errorf("failed to create jobs: %w", err)
	}
	return len(jobs), nil
}

// Get retrieves a run by ID
func (s *Run) Get(ctx context.Context, runID uint) (*models.Run, error) {
	return s.runRepo.GetByID(ctx, runID)
}

// Latest retrieves the most recently created run
func (s *Run) Latest(ctx context.Context) (*models.Run, error) {
	run, err := s.runRepo.GetLatest(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoRuns
	}
	return run, nil
}

// Jobs returns all jobs of a run in creation order
func (s *Run) Jobs(ctx context.Context, runID uint) ([]models.Job, error) {
	return s.jobRepo.ListByRun(ctx, runID)
}

// NextPendingJob returns the oldest pending job of the run, or nil
func (s *Run) NextPendingJob(ctx context.Context, runID uint) (*models.Job, error) {
	return s.jobRepo.NextPending(ctx, runID)
}

// Summary builds the display representation of a run
func (s *Run) Summary(ctx context.Context, run *models.Run) (models.RunSummary, error) {
	total, err := s.jobRepo.CountByRun(ctx, run.ID, "")
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("failed to count jobs: %w", err)
	}
	completed, err := s.jobRepo.CountByRun(ctx, run.ID, models.JobStatusCompleted)
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("failed to count completed jobs: %w", err)
	}
	return models.RunSummary{
		ID:            run.ID,
		Status:        run.Status,
		Task:          run.Task,
		CompletedJobs: completed,
		TotalJobs:     total,
		Progress:      models.Progress(completed, total),
		CreatedAt:     run.CreatedAt,
	}, nil
}

// List returns run summaries, newest first. With availableOnly set, only
// runs that can still be resumed are returned.
func (s *Run) List(ctx context.Context, availableOnly bool, opts *models.ListOptions) ([]models.RunSummary, error) {
	var statuses []models.RunStatus
	if availableOnly {
		statuses = []models.RunStatus{models.RunStatusPending, models.RunStatusPaused}
	}
	runs, err := s.runRepo.List(ctx, statuses, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	summaries := make([]models.RunSummary, 0, len(runs))
	for i := range runs {
		summary, err := s.Summary(ctx, &runs[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Start transitions the run to running and drives the processor over its
// pending jobs in creation order until none remain, then completes the run.
// A run in a final state is only started again when a later extension left
// it with pending jobs; otherwise the request is refused as a caller error.
func (s *Run) Start(ctx context.Context, run *models.Run, processor JobProcessor) error {
	next, err := s.jobRepo.NextPending(ctx, run.ID)
	if err != nil {
		return err
	}

	if run.Status.IsFinal() {
		if next == nil {
			return fmt.Errorf("%w: run %d", ErrRunFinished, run.ID)
		}
		// Extended after finishing: reopen for the appended jobs.
		run.Status = models.RunStatusRunning
	} else if err := run.Start(s.now()); err != nil {
		return err
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("failed to persist run start: %w", err)
	}

	logger.InfoWithFields("Run started", map[string]interface{}{
		"run_id": run.ID,
		"task":   run.Task,
	})

	for next != nil {
		processor.Process(ctx, next, run.Task)

		next, err = s.jobRepo.NextPending(ctx, run.ID)
		if err != nil {
			return err
		}
	}

	if err := run.Complete(s.now()); err != nil {
		return err
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("failed to persist run completion: %w", err)
	}

	logger.InfoWithFields("Run completed", map[string]interface{}{
		"run_id": run.ID,
	})
	return nil
}

// Pause transitions a running run to paused
func (s *Run) Pause(ctx context.Context, runID uint) (*models.Run, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := run.Pause(); err != nil {
		return nil, err
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist run pause: %w", err)
	}
	return run, nil
}

// Cancel transitions the run and its still-pending jobs to cancelled. An
// in-flight job is not interrupted; cancellation only prevents future
// dispatch.
func (s *Run) Cancel(ctx context.Context, runID uint) (*models.Run, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := run.Cancel(s.now()); err != nil {
		return nil, err
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist run cancellation: %w", err)
	}

	pending, err := s.jobRepo.ListPendingByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	for i := range pending {
		job := &pending[i]
		if err := job.Cancel(s.now()); err != nil {
			return nil, err
		}
		if err := s.jobRepo.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to persist job cancellation: %w", err)
		}
	}

	logger.InfoWithFields("Run cancelled", map[string]interface{}{
		"run_id":         run.ID,
		"cancelled_jobs": len(pending),
	})
	return run, nil
}

// ClearAll deletes every run, job and rollback record, returning per-table counts
func (s *Run) ClearAll(ctx context.Context) (ClearCounts, error) {
	var counts ClearCounts
	var err error

	if counts.Rollbacks, err = s.rollbackRepo.DeleteAll(ctx); err != nil {
		return counts, fmt.Errorf("failed to clear rollback records: %w", err)
	}
	if counts.Jobs, err = s.jobRepo.DeleteAll(ctx); err != nil {
		return counts, fmt.Errorf("failed to clear jobs: %w", err)
	}
	if counts.Runs, err = s.runRepo.DeleteAll(ctx); err != nil {
		return counts, fmt.Errorf("failed to clear runs: %w", err)
	}
	return counts, nil
}
