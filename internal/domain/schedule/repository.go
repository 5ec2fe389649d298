package schedule

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages durable completion-job persistence
type Repository interface {
	Create(ctx context.Context, job *Job) error

	// GetDue returns pending jobs whose run_at has passed, oldest first
	GetDue(ctx context.Context, limit int) ([]*Job, error)
	GetByTransferID(ctx context.Context, transferID uuid.UUID) (*Job, error)
	UpdateStatus(ctx context.Context, id int64, status JobStatus) error

	// CancelByTransferID marks a pending job cancelled; no-op (nil) when the
	// job already ran or was cancelled.
	CancelByTransferID(ctx context.Context, transferID uuid.UUID) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrJobNotFound indicates missing completion job
type ErrJobNotFound struct {
	ID int64
}

func (e ErrJobNotFound) Error() string {
	return "completion job not found: " + strconv.FormatInt(e.ID, 10)
}

// Is matches any ErrJobNotFound when the target carries a zero ID
func (e ErrJobNotFound) Is(target error) bool {
	t, ok := target.(ErrJobNotFound)
	if !ok {
		return false
	}
	if t.ID == 0 {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateJob indicates a completion job already exists for the transfer
type ErrDuplicateJob struct {
	TransferID uuid.UUID
}

func (e ErrDuplicateJob) Error() string {
	return "duplicate completion job for transfer: " + e.TransferID.String()
}
