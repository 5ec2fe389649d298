package schedule

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus defines completion-job states
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusDone      JobStatus = "DONE"
	JobStatusCancelled JobStatus = "CANCELLED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job is a durable deferred-completion task keyed by transfer ID. It is
// written in the same database transaction as the debit, so a process restart
// never loses a pending completion, and administrative reversal cancels the
// row instead of racing an in-process timer.
type Job struct {
	ID            int64      `json:"id"`
	TransferID    uuid.UUID  `json:"transfer_id"`
	Status        JobStatus  `json:"status"`
	RunAt         time.Time  `json:"run_at"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// NewJob schedules a completion for the transfer after the given delay
func NewJob(transferID uuid.UUID, delay time.Duration) *Job {
	now := time.Now()
	return &Job{
		TransferID: transferID,
		Status:     JobStatusPending,
		RunAt:      now.Add(delay),
		Attempts:   0,
		CreatedAt:  now,
	}
}

// IncrementAttempts records a processing attempt
func (j *Job) IncrementAttempts() {
	j.Attempts++
	now := time.Now()
	j.LastAttemptAt = &now
}
