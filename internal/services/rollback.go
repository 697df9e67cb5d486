package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/epicwp/bulkagent/internal/db/models"
	"github.com/epicwp/bulkagent/internal/db/repos"
	"github.com/epicwp/bulkagent/internal/events"
	"github.com/epicwp/bulkagent/internal/logger"
	"github.com/epicwp/bulkagent/internal/tools"
)

// DefaultMarkerTTL bounds how long a current-job marker stays valid without
// being cleared. The job-finished event normally clears it; the TTL is the
// safety net against a missed clear.
const DefaultMarkerTTL = 60 * time.Second

// RollbackEngine captures pre-mutation values of product properties during
// a job's tool calls and restores them on demand. It is wired as a listener
// on the tool registry's and job processor's lifecycle events.
type RollbackEngine struct {
	registry     *tools.Registry
	jobRepo      *repos.JobRepository
	rollbackRepo *repos.RollbackRepository
	ttl          time.Duration
	now          func() time.Time

	mu           sync.Mutex
	currentJobID uint
	markedAt     time.Time
}

// NewRollbackEngine creates a rollback engine over the given registry and repositories
func NewRollbackEngine(registry *tools.Registry, jobRepo *repos.JobRepository, rollbackRepo *repos.RollbackRepository) *RollbackEngine {
	return &RollbackEngine{
		registry:     registry,
		jobRepo:      jobRepo,
		rollbackRepo: rollbackRepo,
		ttl:          DefaultMarkerTTL,
		now:          time.Now,
	}
}

// Register subscribes the engine to the lifecycle events it observes
func (e *RollbackEngine) Register(bus *events.Bus) {
	bus.Subscribe(events.TypeBeforePerformTask, e.handleBeforePerformTask)
	bus.Subscribe(events.TypeJobFinished, e.handleJobFinished)
	bus.Subscribe(events.TypeBeforeToolExecute, e.handleBeforeToolExecute)
}

func (e *RollbackEngine) handleBeforePerformTask(_ context.Context, event events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentJobID = event.JobID
	e.markedAt = e.now()
	return nil
}

func (e *RollbackEngine) handleJobFinished(_ context.Context, event events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentJobID == event.JobID {
		e.currentJobID = 0
	}
	return nil
}

// currentJob returns the marked job, or 0 when no job is marked or the
// marker has expired.
func (e *RollbackEngine) currentJob() uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentJobID == 0 {
		return 0
	}
	if e.now().Sub(e.markedAt) > e.ttl {
		e.currentJobID = 0
		return 0
	}
	return e.currentJobID
}

// handleBeforeToolExecute snapshots the current value of the property a
// mutating tool is about to change. Read-only tools have no property
// mapping and are ignored, as is everything outside a marked job.
func (e *RollbackEngine) handleBeforeToolExecute(ctx context.Context, event events.Event) error {
	jobID := e.currentJob()
	if jobID == 0 {
		return nil
	}

	property, ok := tools.PropertyForUpdateTool(event.ToolName)
	if !ok {
		return nil
	}
	binding, ok := property.Tools()
	if !ok {
		return nil
	}

	job, err := e.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("rollback capture: %w", err)
	}

	previous, err := e.registry.Execute(ctx, binding.FetchTool, map[string]interface{}{
		"product_id": job.ProductID,
	})
	if err != nil {
		return fmt.Errorf("rollback capture: fetch %s: %w", binding.FetchTool, err)
	}
	if isEmptyValue(previous) {
		// Nothing to restore later; an absent value is not captured.
		return nil
	}

	serialized, err := json.Marshal(previous)
	if err != nil {
		return fmt.Errorf("rollback capture: serialize %s: %w", property, err)
	}

	record := &models.RollbackRecord{
		JobID:         jobID,
		Property:      string(property),
		PreviousValue: serialized,
	}
	if err := e.rollbackRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("rollback capture: store record: %w", err)
	}

	logger.DebugWithFields("Captured previous value", map[string]interface{}{
		"job_id":   jobID,
		"property": string(property),
	})
	return nil
}

// Rollback re-applies the unapplied records of a job in creation order,
// marking each applied as it is consumed. A record whose property has no
// update tool is skipped; a record that fails to re-apply is logged and
// left unapplied, the remaining records are still processed. Returns the
// number of records applied.
func (e *RollbackEngine) Rollback(ctx context.Context, jobID uint) (int, error) {
	job, err := e.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return 0, err
	}

	records, err := e.rollbackRepo.ListUnappliedByJob(ctx, jobID)
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range records {
		record := &records[i]

		binding, ok := tools.Property(record.Property).Tools()
		if !ok {
			logger.Warnf("Rollback record %d references unmapped property %q, skipping", record.ID, record.Property)
			continue
		}

		var previous interface{}
		if err := json.Unmarshal(record.PreviousValue, &previous); err != nil {
			logger.Errorf("Rollback record %d has an unreadable previous value: %v", record.ID, err)
			continue
		}

		_, err := e.registry.Execute(ctx, binding.UpdateTool, map[string]interface{}{
			"product_id":   job.ProductID,
			binding.ArgKey: previous,
		})
		if err != nil {
			logger.Errorf("Rollback record %d failed to apply: %v", record.ID, err)
			continue
		}

		if err := record.MarkApplied(); err != nil {
			logger.Errorf("Rollback record %d: %v", record.ID, err)
			continue
		}
		if err := e.rollbackRepo.Update(ctx, record); err != nil {
			logger.Errorf("Rollback record %d failed to persist: %v", record.ID, err)
			continue
		}
		applied++
	}

	if applied > 0 {
		logger.InfoWithFields("Rollback applied", map[string]interface{}{
			"job_id":  jobID,
			"applied": applied,
		})
	}
	return applied, nil
}

// RollbackRun rolls back every job of a run, in job creation order
func (e *RollbackEngine) RollbackRun(ctx context.Context, runID uint) (int, error) {
	jobs, err := e.jobRepo.ListByRun(ctx, runID)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range jobs {
		applied, err := e.Rollback(ctx, jobs[i].ID)
		if err != nil {
			return total, err
		}
		total += applied
	}
	return total, nil
}

// PendingCount reports how many records a rollback of the job would apply
func (e *RollbackEngine) PendingCount(ctx context.Context, jobID uint) (int64, error) {
	return e.rollbackRepo.CountUnappliedByJob(ctx, jobID)
}

// isEmptyValue reports whether a fetched previous value is empty or absent
func isEmptyValue(v interface{}) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case []string:
		return len(value) == 0
	case []interface{}:
		return len(value) == 0
	default:
		return false
	}
}
