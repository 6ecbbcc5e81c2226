// Package conversion provides the shared plumbing every conversion
// operation runs through: upload validation, the job lifecycle, and the
// two-phase result commit into the download registry.
package conversion

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a conversion job.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job tracks a single conversion request. Jobs are request-scoped:
// created at dispatch, mutated exactly once on completion or failure,
// and never shared across handlers.
type Job struct {
	ID          uuid.UUID
	Operation   string
	Status      Status
	Inputs      []string
	OutputPath  string
	CreatedAt   time.Time
	CompletedAt time.Time
	Error       string
}

// NewJob creates a pending job for the given operation.
func NewJob(operation string, inputs ...string) *Job {
	return &Job{
		ID:        uuid.New(),
		Operation: operation,
		Status:    StatusPending,
		Inputs:    inputs,
		CreatedAt: time.Now(),
	}
}

// Complete marks the job done with the given output.
func (j *Job) Complete(outputPath string) {
	j.Status = StatusDone
	j.OutputPath = outputPath
	j.CompletedAt = time.Now()
}

// Fail marks the job failed with the given cause.
func (j *Job) Fail(err error) {
	j.Status = StatusFailed
	j.Error = err.Error()
	j.CompletedAt = time.Now()
}

// Duration returns how long the job ran.
func (j *Job) Duration() time.Duration {
	if j.CompletedAt.IsZero() {
		return time.Since(j.CreatedAt)
	}
	return j.CompletedAt.Sub(j.CreatedAt)
}
