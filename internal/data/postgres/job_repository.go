package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/novabank/core-banking/internal/domain/schedule"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

// JobRepository implements the schedule.Repository interface for PostgreSQL
type JobRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewJobRepository creates a new PostgreSQL completion-job repository
func NewJobRepository(logger *slog.Logger, db *persistence.PostgresDB) schedule.Repository {
	return &JobRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. Job creation happens in the
// same transaction as the debit; cancellation in the same transaction as the
// reversal.
func (r *JobRepository) WithTx(tx pgx.Tx) schedule.Repository {
	return &JobRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new pending completion job
func (r *JobRepository) Create(ctx context.Context, job *schedule.Job) error {
	query := `
		INSERT INTO transfer_jobs (transfer_id, status, run_at, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		job.TransferID,
		job.Status,
		job.RunAt,
		job.Attempts,
		job.CreatedAt,
	).Scan(&job.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return schedule.ErrDuplicateJob{TransferID: job.TransferID}
		}
		r.logger.Error("Failed to create completion job", "transfer_id", job.TransferID.String(), "error", err)
		return fmt.Errorf("failed to create completion job: %w", err)
	}

	return nil
}

// GetDue returns pending jobs whose run_at has passed, oldest first.
// Duplicate pickup across pollers is tolerated: completion is idempotent on
// the transfer-row status.
func (r *JobRepository) GetDue(ctx context.Context, limit int) ([]*schedule.Job, error) {
	query := `
		SELECT id, transfer_id, status, run_at, attempts, created_at, last_attempt_at
		FROM transfer_jobs
		WHERE status = $1 AND run_at <= NOW()
		ORDER BY run_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, schedule.JobStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get due completion jobs", "error", err)
		return nil, fmt.Errorf("failed to get due completion jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*schedule.Job
	for rows.Next() {
		var job schedule.Job
		err := rows.Scan(
			&job.ID,
			&job.TransferID,
			&job.Status,
			&job.RunAt,
			&job.Attempts,
			&job.CreatedAt,
			&job.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan completion job", "error", err)
			return nil, fmt.Errorf("failed to scan completion job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over completion jobs", "error", err)
		return nil, fmt.Errorf("error iterating over completion jobs: %w", err)
	}

	return jobs, nil
}

// GetByTransferID retrieves the job for a transfer
func (r *JobRepository) GetByTransferID(ctx context.Context, transferID uuid.UUID) (*schedule.Job, error) {
	query := `
		SELECT id, transfer_id, status, run_at, attempts, created_at, last_attempt_at
		FROM transfer_jobs
		WHERE transfer_id = $1
	`

	var job schedule.Job
	err := r.querier.QueryRow(ctx, query, transferID).Scan(
		&job.ID,
		&job.TransferID,
		&job.Status,
		&job.RunAt,
		&job.Attempts,
		&job.CreatedAt,
		&job.LastAttemptAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrJobNotFound{ID: 0}
		}
		r.logger.Error("Failed to get completion job by transfer ID", "transfer_id", transferID.String(), "error", err)
		return nil, fmt.Errorf("failed to get completion job by transfer ID: %w", err)
	}

	return &job, nil
}

// UpdateStatus updates the job status and last attempt timestamp
func (r *JobRepository) UpdateStatus(ctx context.Context, id int64, status schedule.JobStatus) error {
	query := `
		UPDATE transfer_jobs
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update completion job status", "id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to update completion job status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return schedule.ErrJobNotFound{ID: id}
	}

	return nil
}

// CancelByTransferID marks a still-pending job cancelled. Zero rows affected
// means the job already ran or was cancelled, which is not an error: the
// transfer-row status check makes the remaining race a no-op.
func (r *JobRepository) CancelByTransferID(ctx context.Context, transferID uuid.UUID) error {
	query := `
		UPDATE transfer_jobs
		SET status = $1, last_attempt_at = $2
		WHERE transfer_id = $3 AND status = $4
	`

	_, err := r.querier.Exec(ctx, query, schedule.JobStatusCancelled, time.Now(), transferID, schedule.JobStatusPending)
	if err != nil {
		r.logger.Error("Failed to cancel completion job", "transfer_id", transferID.String(), "error", err)
		return fmt.Errorf("failed to cancel completion job: %w", err)
	}

	return nil
}

// IncrementAttempts increments the retry counter and updates last attempt time
func (r *JobRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE transfer_jobs
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to increment completion job attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment completion job attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return schedule.ErrJobNotFound{ID: id}
	}

	return nil
}
