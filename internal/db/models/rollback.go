package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RollbackStatus represents whether a rollback record has been consumed
type RollbackStatus string

// Rollback status constants
const (
	// RollbackStatusUnapplied indicates the captured value has not been restored yet
	RollbackStatusUnapplied RollbackStatus = "unapplied"
	// RollbackStatusApplied indicates the captured value has been restored
	RollbackStatusApplied RollbackStatus = "applied"
)

// String returns the string representation of the rollback status
func (s RollbackStatus) String() string {
	return string(s)
}

// RollbackRecord captures the pre-mutation value of a single product property
// observed during a job's tool calls. A record is consumed exactly once:
// applying it flips the status to applied and it is never re-applied.
type RollbackRecord struct {
	gorm.Model
	JobID         uint            `json:"job_id" gorm:"not null;index"`
	Property      string          `json:"property" gorm:"not null"`
	PreviousValue json.RawMessage `json:"previous_value" gorm:"type:jsonb"`
	Status        RollbackStatus  `json:"status" gorm:"not null;index"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index"`
}

// Validate ensures that the rollback record data is valid
func (r *RollbackRecord) Validate() error {
	if r.JobID == 0 {
		return fmt.Errorf("rollback record job_id cannot be zero")
	}
	if r.Property == "" {
		return fmt.Errorf("rollback record property cannot be empty")
	}
	if len(r.PreviousValue) == 0 {
		return fmt.Errorf("rollback record previous value cannot be empty")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new rollback record
func (r *RollbackRecord) BeforeCreate(_ *gorm.DB) error {
	if r.Status == "" {
		r.Status = RollbackStatusUnapplied
	}
	return r.Validate()
}

// MarkApplied consumes the record. Consuming an already applied record is an
// error so a double rollback can never restore the same value twice.
func (r *RollbackRecord) MarkApplied() error {
	if r.Status == RollbackStatusApplied {
		return fmt.Errorf("rollback record %d is already applied", r.ID)
	}
	r.Status = RollbackStatusApplied
	return nil
}
