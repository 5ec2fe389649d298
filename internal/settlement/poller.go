package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/novabank/core-banking/internal/config"
	"github.com/novabank/core-banking/internal/domain/schedule"
)

// Poller drains due completion jobs onto a worker pool
type Poller struct {
	jobRepo          schedule.Repository
	completer        Completer
	pool             *ants.Pool
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

// NewPoller creates a poller with its own worker pool
func NewPoller(
	cfg *config.SchedulerConfig,
	jobRepo schedule.Repository,
	completer Completer,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Poller{
		jobRepo:          jobRepo,
		completer:        completer,
		pool:             pool,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}, nil
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting settlement poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"worker_pool_size", p.pool.Cap(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Settlement poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processDueJobs(ctx); err != nil {
				p.logger.Error("Error during batch processing of due completion jobs", "error", err)
			}
		}
	}
}

// processDueJobs fetches one batch of due jobs and completes them on the
// worker pool, waiting for the batch so ticks do not overlap
func (p *Poller) processDueJobs(ctx context.Context) error {
	jobs, err := p.jobRepo.GetDue(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get due completion jobs: %w", err)
	}

	if len(jobs) == 0 {
		p.logger.Debug("No due completion jobs found.")
		return nil
	}

	p.logger.Info("Fetched due completion jobs", "count", len(jobs))

	var wg sync.WaitGroup
	for _, job := range jobs {
		job := job
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			p.processJob(ctx, job)
		})
		if err != nil {
			wg.Done()
			p.logger.Error("Failed to submit completion job to worker pool",
				"job_id", job.ID, "transfer_id", job.TransferID.String(), "error", err)
		}
	}
	wg.Wait()
	return nil
}

// processJob attempts one completion; the job is retired inside the
// completion transaction, so failures here leave it due for the next tick
func (p *Poller) processJob(ctx context.Context, job *schedule.Job) {
	if err := p.completer.Complete(ctx, job.TransferID); err != nil {
		p.logger.Error("Failed to complete transfer",
			"job_id", job.ID,
			"transfer_id", job.TransferID.String(),
			"current_attempts", job.Attempts,
			"error", err,
		)

		if errInc := p.jobRepo.IncrementAttempts(ctx, job.ID); errInc != nil {
			p.logger.Error("Failed to increment attempts for completion job", "job_id", job.ID, "error", errInc)
			return
		}

		if job.Attempts+1 >= p.maxRetryAttempts {
			p.logger.Warn("Max retry attempts reached for completion job, marking as FAILED",
				"job_id", job.ID,
				"transfer_id", job.TransferID.String(),
				"attempts_made", job.Attempts+1,
			)
			if errUpdate := p.jobRepo.UpdateStatus(ctx, job.ID, schedule.JobStatusFailed); errUpdate != nil {
				p.logger.Error("Failed to mark completion job FAILED after max retries", "job_id", job.ID, "error", errUpdate)
				return
			}
			// The transfer must not stay PROCESSING with no job left to
			// drive it: fail it and refund the debit.
			if errFail := p.completer.Fail(ctx, job.TransferID, err.Error()); errFail != nil {
				p.logger.Error("Failed to fail transfer after exhausted attempts",
					"job_id", job.ID, "transfer_id", job.TransferID.String(), "error", errFail)
			}
		}
	}
}

// Shutdown releases the worker pool
func (p *Poller) Shutdown() {
	p.logger.Info("Shutting down settlement worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}
