package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Field names for the job model
const (
	// JobCreatedAtField is the database field name for the job creation timestamp
	JobCreatedAtField = "created_at"
	// JobRunIDField is the database field name for the owning run
	JobRunIDField = "run_id"
	// JobStatusField is the database field name for the job status
	JobStatusField = "status"
)

// JobStatus represents the current state of a job
type JobStatus string

// Job status constants
const (
	// JobStatusPending indicates the job is waiting to be processed
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job has finished successfully
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job did not finish successfully
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was cancelled before completion
	JobStatusCancelled JobStatus = "cancelled"
)

// String returns the string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// IsFinal reports whether the status is terminal
func (s JobStatus) IsFinal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// IsActive reports whether the job is currently being processed
func (s JobStatus) IsActive() bool {
	return s == JobStatusRunning
}

// IsPending reports whether the job is waiting to be processed
func (s JobStatus) IsPending() bool {
	return s == JobStatusPending
}

// ParseJobStatus converts a string to a JobStatus type
func ParseJobStatus(str string) (JobStatus, error) {
	switch JobStatus(str) {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return JobStatus(str), nil
	default:
		return "", fmt.Errorf("invalid job status: %s", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for JobStatus
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseJobStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// Job represents one unit of agentic work: a single product processed with
// the task instruction of its run. The task itself is never stored on the
// job; it is read through the run.
type Job struct {
	gorm.Model
	RunID      uint       `json:"run_id" gorm:"not null;index"`
	ProductID  int64      `json:"product_id" gorm:"not null;index"`
	Status     JobStatus  `json:"status" gorm:"not null;index"`
	Feedback   string     `json:"feedback,omitempty" gorm:"type:text"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index"`
}

// Validate ensures that the job data is valid
func (j *Job) Validate() error {
	if j.RunID == 0 {
		return fmt.Errorf("job run_id cannot be zero")
	}
	if j.ProductID == 0 {
		return fmt.Errorf("job product_id cannot be zero")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new job
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	return j.Validate()
}

// Start transitions the job to running and sets StartedAt once. Starting a
// job that is already running is a no-op so a resumed run can pick up a job
// left behind by a crash without tripping the precondition.
func (j *Job) Start(now time.Time) error {
	if j.Status == JobStatusRunning {
		return nil
	}
	if j.Status != JobStatusPending {
		return fmt.Errorf("job %d is %s and cannot be started", j.ID, j.Status)
	}
	j.Status = JobStatusRunning
	if j.StartedAt == nil {
		j.StartedAt = &now
	}
	return nil
}

// Complete transitions a running job to completed
func (j *Job) Complete(now time.Time) error {
	if j.Status != JobStatusRunning {
		return fmt.Errorf("job %d is %s and cannot be completed", j.ID, j.Status)
	}
	return j.finish(JobStatusCompleted, now)
}

// Fail transitions the job to failed, storing the failure text in Feedback
func (j *Job) Fail(now time.Time, feedback string) error {
	if j.Status.IsFinal() {
		return fmt.Errorf("job %d is already %s", j.ID, j.Status)
	}
	j.Feedback = feedback
	return j.finish(JobStatusFailed, now)
}

// Cancel transitions a pending or running job to cancelled
func (j *Job) Cancel(now time.Time) error {
	if j.Status.IsFinal() {
		return fmt.Errorf("job %d is already %s", j.ID, j.Status)
	}
	return j.finish(JobStatusCancelled, now)
}

func (j *Job) finish(status JobStatus, now time.Time) error {
	j.Status = status
	if j.FinishedAt == nil {
		j.FinishedAt = &now
	}
	return nil
}
