// Package repos provides access to run, job and rollback record storage
package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/epicwp/bulkagent/internal/db/models"
)

// RunRepository provides access to run-related database operations
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new run repository instance
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create creates a new run in the database
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update persists the current state of an existing run
func (r *RunRepository) Update(ctx context.Context, run *models.Run) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID
func (r *RunRepository) GetByID(ctx context.Context, id uint) (*models.Run, error) {
	var run models.Run
	err := r.db.WithContext(ctx).First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// GetLatest retrieves the most recently created run, or nil if none exist
func (r *RunRepository) GetLatest(ctx context.Context) (*models.Run, error) {
	var run models.Run
	err := r.db.WithContext(ctx).
		Order("id DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return &run, nil
}

// List returns runs ordered newest first. When statuses is non-empty only
// runs in one of the given statuses are returned.
func (r *RunRepository) List(ctx context.Context, statuses []models.RunStatus, opts *models.ListOptions) ([]models.Run, error) {
	listOpts := models.ListOptions{}
	if opts != nil {
		listOpts = *opts
	}
	listOpts = listOpts.WithDefaults()

	db := r.db.WithContext(ctx).Model(&models.Run{})
	if len(statuses) > 0 {
		db = db.Where(models.RunStatusField+" IN ?", statuses)
	}

	var runs []models.Run
	err := db.
		Limit(listOpts.Limit).Offset(listOpts.Offset).
		Order(models.RunCreatedAtField + " DESC").
		Find(&runs).Error
	return runs, err
}

// Count returns the total number of runs
func (r *RunRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Run{}).Count(&count).Error
	return count, err
}

// DeleteAll removes every run and returns the number of deleted rows
func (r *RunRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&models.Run{})
	return result.RowsAffected, result.Error
}
