package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/epicwp/bulkagent/internal/db/models"
)

// RollbackRepository provides access to rollback-record database operations
type RollbackRepository struct {
	db *gorm.DB
}

// NewRollbackRepository creates a new rollback repository instance
func NewRollbackRepository(db *gorm.DB) *RollbackRepository {
	return &RollbackRepository{db: db}
}

// Create creates a new rollback record in the database
func (r *RollbackRepository) Create(ctx context.Context, record *models.RollbackRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Update persists the current state of an existing rollback record
func (r *RollbackRepository) Update(ctx context.Context, record *models.RollbackRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// ListUnappliedByJob returns the unapplied records of a job in creation
// order, which is the order they must be re-applied in.
func (r *RollbackRepository) ListUnappliedByJob(ctx context.Context, jobID uint) ([]models.RollbackRecord, error) {
	var records []models.RollbackRecord
	err := r.db.WithContext(ctx).
		Where(&models.RollbackRecord{JobID: jobID, Status: models.RollbackStatusUnapplied}).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rollback records for job %d: %w", jobID, err)
	}
	return records, nil
}

// CountUnappliedByJob returns how many records a rollback of the job would apply
func (r *RollbackRepository) CountUnappliedByJob(ctx context.Context, jobID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RollbackRecord{}).
		Where(&models.RollbackRecord{JobID: jobID, Status: models.RollbackStatusUnapplied}).
		Count(&count).Error
	return count, err
}

// DeleteAll removes every rollback record and returns the number of deleted rows
func (r *RollbackRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&models.RollbackRecord{})
	return result.RowsAffected, result.Error
}
