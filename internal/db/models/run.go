package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Field names for the run model
const (
	// RunCreatedAtField is the database field name for the run creation timestamp
	RunCreatedAtField = "created_at"
	// RunStatusField is the database field name for the run status
	RunStatusField = "status"
)

// RunStatus represents the current state of a run
type RunStatus string

// Run status constants
const (
	// RunStatusPending indicates the run has been created but not started
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the run is currently being processed
	RunStatusRunning RunStatus = "running"
	// RunStatusPaused indicates the run was interrupted and can be resumed
	RunStatusPaused RunStatus = "paused"
	// RunStatusCompleted indicates all jobs of the run have been processed
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates the run has failed
	RunStatusFailed RunStatus = "failed"
	// RunStatusCancelled indicates the run was cancelled
	RunStatusCancelled RunStatus = "cancelled"
)

// String returns the string representation of the run status
func (s RunStatus) String() string {
	return string(s)
}

// IsFinal reports whether the status is terminal, i.e. the run will never be
// dispatched again.
func (s RunStatus) IsFinal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// IsActive reports whether the run is currently being processed
func (s RunStatus) IsActive() bool {
	return s == RunStatusRunning
}

// IsPending reports whether the run is waiting to be processed
func (s RunStatus) IsPending() bool {
	return s == RunStatusPending
}

// CanBeResumed reports whether a start/resume request is valid for this status
func (s RunStatus) CanBeResumed() bool {
	return s == RunStatusPending || s == RunStatusPaused
}

// CanBeCancelled reports whether a cancel request is valid for this status
func (s RunStatus) CanBeCancelled() bool {
	return s == RunStatusPending || s == RunStatusRunning || s == RunStatusPaused
}

// ParseRunStatus converts a string to a RunStatus type
func ParseRunStatus(str string) (RunStatus, error) {
	switch RunStatus(str) {
	case RunStatusPending, RunStatusRunning, RunStatusPaused,
		RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return RunStatus(str), nil
	default:
		return "", fmt.Errorf("invalid run status: %s", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for RunStatus
func (s *RunStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseRunStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// Run represents a batch of jobs sharing a single task instruction.
// The task is immutable after creation; every job of the run reads it
// through its run.
type Run struct {
	gorm.Model
	Task       string     `json:"task" gorm:"not null;type:text"`
	Status     RunStatus  `json:"status" gorm:"not null;index"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index"`
}

// Validate ensures that the run data is valid
func (r *Run) Validate() error {
	if r.Task == "" {
		return fmt.Errorf("run task cannot be empty")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new run
func (r *Run) BeforeCreate(_ *gorm.DB) error {
	if r.Status == "" {
		r.Status = RunStatusPending
	}
	return r.Validate()
}

// Start transitions the run to running. StartedAt is set on the first entry
// only, so pausing and resuming never touches it. Starting a run in a final
// state is a caller error.
func (r *Run) Start(now time.Time) error {
	if r.Status.IsFinal() {
		return fmt.Errorf("run %d is already %s and cannot be started", r.ID, r.Status)
	}
	if r.Status == RunStatusRunning {
		return nil
	}
	r.Status = RunStatusRunning
	if r.StartedAt == nil {
		r.StartedAt = &now
	}
	return nil
}

// Pause transitions a running run to paused without touching timestamps
func (r *Run) Pause() error {
	if r.Status != RunStatusRunning {
		return fmt.Errorf("run %d is %s and cannot be paused", r.ID, r.Status)
	}
	r.Status = RunStatusPaused
	return nil
}

// Complete transitions the run to completed and sets FinishedAt once
func (r *Run) Complete(now time.Time) error {
	return r.finish(RunStatusCompleted, now)
}

// Fail transitions the run to failed and sets FinishedAt once
func (r *Run) Fail(now time.Time) error {
	return r.finish(RunStatusFailed, now)
}

// Cancel transitions the run to cancelled and sets FinishedAt once
func (r *Run) Cancel(now time.Time) error {
	if !r.Status.CanBeCancelled() {
		return fmt.Errorf("run %d is %s and cannot be cancelled", r.ID, r.Status)
	}
	return r.finish(RunStatusCancelled, now)
}

func (r *Run) finish(status RunStatus, now time.Time) error {
	if r.Status.IsFinal() {
		return fmt.Errorf("run %d is already %s", r.ID, r.Status)
	}
	r.Status = status
	if r.FinishedAt == nil {
		r.FinishedAt = &now
	}
	return nil
}

// RunSummary is the display representation of a run used by listing surfaces
type RunSummary struct {
	ID            uint      `json:"id"`
	Status        RunStatus `json:"status"`
	Task          string    `json:"task"`
	CompletedJobs int64     `json:"completed_jobs"`
	TotalJobs     int64     `json:"total_jobs"`
	Progress      float64   `json:"progress"`
	CreatedAt     time.Time `json:"created_at"`
}

// Progress returns the completed fraction, guarding the empty-run case
func Progress(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total)
}
