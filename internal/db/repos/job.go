package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/epicwp/bulkagent/internal/db/models"
)

// JobRepository provides access to job-related database operations
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job in the database
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// CreateBatch creates a batch of jobs in a single insert
func (r *JobRepository) CreateBatch(ctx context.Context, jobs []*models.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(jobs).Error
}

// Update persists the current state of an existing job
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// GetByID retrieves a job by its ID
func (r *JobRepository) GetByID(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).First(&job, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListByRun returns all jobs of a run in creation order
func (r *JobRepository) ListByRun(ctx context.Context, runID uint) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where(&models.Job{RunID: runID}).
		Order("id ASC").
		Find(&jobs).Error
	return jobs, err
}

// NextPending returns the oldest pending job of a run, or nil when the run
// has no pending job left. Jobs are dispatched strictly in creation order.
func (r *JobRepository) NextPending(ctx context.Context, runID uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where(&models.Job{RunID: runID, Status: models.JobStatusPending}).
		Order("id ASC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next pending job: %w", err)
	}
	return &job, nil
}

// CountByRun returns the number of jobs of a run, optionally filtered by status
func (r *JobRepository) CountByRun(ctx context.Context, runID uint, status models.JobStatus) (int64, error) {
	qry := &models.Job{RunID: runID}
	if status != "" {
		qry.Status = status
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).Where(qry).Count(&count).Error
	return count, err
}

// ProductIDsByRun returns the set of product IDs already targeted by a run's
// jobs. Used for duplicate detection when extending a run.
func (r *JobRepository) ProductIDsByRun(ctx context.Context, runID uint) (map[int64]struct{}, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where(&models.Job{RunID: runID}).
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get product ids for run %d: %w", runID, err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// ListPendingByRun returns the pending jobs of a run in creation order
func (r *JobRepository) ListPendingByRun(ctx context.Context, runID uint) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where(&models.Job{RunID: runID, Status: models.JobStatusPending}).
		Order("id ASC").
		Find(&jobs).Error
	return jobs, err
}

// DeleteAll removes every job and returns the number of deleted rows
func (r *JobRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&models.Job{})
	return result.RowsAffected, result.Error
}
