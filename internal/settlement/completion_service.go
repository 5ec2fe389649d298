// Package settlement completes transfers after their configured delay. The
// worker polls the durable job table and drives each due transfer through
// its completion in one database transaction, so a crash between poll and
// commit never loses or double-applies a completion.
package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/domain/audit"
	"github.com/novabank/core-banking/internal/domain/schedule"
	"github.com/novabank/core-banking/internal/domain/shared"
	"github.com/novabank/core-banking/internal/domain/transaction"
	"github.com/novabank/core-banking/internal/domain/transfer"
	"github.com/novabank/core-banking/internal/platform/messaging/producers"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

// Completer finishes one transfer by ID, or fails it terminally once the
// poller gives up on it
type Completer interface {
	Complete(ctx context.Context, transferID uuid.UUID) error
	Fail(ctx context.Context, transferID uuid.UUID, reason string) error
}

// CompletionServiceImpl implements the Completer interface
type CompletionServiceImpl struct {
	txm             persistence.TxManager
	accountRepo     account.Repository
	transferRepo    transfer.Repository
	transactionRepo transaction.Repository
	jobRepo         schedule.Repository
	auditRepo       audit.Repository
	events          producers.MessagePublisher
	logger          *slog.Logger
}

// NewCompletionService creates a new completion service. The event producer
// may be nil; completion then happens silently.
func NewCompletionService(
	logger *slog.Logger,
	txm persistence.TxManager,
	accountRepo account.Repository,
	transferRepo transfer.Repository,
	transactionRepo transaction.Repository,
	jobRepo schedule.Repository,
	auditRepo audit.Repository,
	events producers.MessagePublisher,
) *CompletionServiceImpl {
	return &CompletionServiceImpl{
		txm:             txm,
		accountRepo:     accountRepo,
		transferRepo:    transferRepo,
		transactionRepo: transactionRepo,
		jobRepo:         jobRepo,
		auditRepo:       auditRepo,
		events:          events,
		logger:          logger,
	}
}

// Complete marks the transfer COMPLETED, advances its debit-side ledger
// entries, and credits an internal recipient by amount (fees are not
// forwarded), all in one database transaction. The transfer row lock makes
// the operation idempotent: a duplicate firing or a transfer already
// reversed by an admin is a no-op that still retires the job.
func (s *CompletionServiceImpl) Complete(ctx context.Context, transferID uuid.UUID) error {
	var t *transfer.Transfer
	completed := false

	err := s.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.transferRepo.WithTx(tx).LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}

		switch t.Status {
		case transfer.StatusPending, transfer.StatusApproved, transfer.StatusProcessing:
		default:
			// Already completed, reversed, or failed. Retire the job.
			return s.retireJob(ctx, tx, transferID)
		}

		if t.Status != transfer.StatusProcessing {
			if err := t.MarkStatus(transfer.StatusProcessing); err != nil {
				return err
			}
		}
		if err := t.MarkStatus(transfer.StatusCompleted); err != nil {
			return err
		}
		if err := s.transferRepo.WithTx(tx).Update(ctx, t); err != nil {
			return err
		}

		if err := s.transactionRepo.WithTx(tx).CompleteDebitsByTransferID(ctx, t.ID); err != nil {
			return err
		}

		if t.IsInternal() {
			recipient, err := s.accountRepo.WithTx(tx).LockForUpdate(ctx, *t.ToAccountID)
			if err != nil {
				return err
			}
			balanceBefore := recipient.Balance
			if err := recipient.Credit(t.Amount); err != nil {
				return err
			}
			if err := s.accountRepo.WithTx(tx).Update(ctx, recipient); err != nil {
				return err
			}

			entry, err := transaction.New(recipient.ID, &t.ID, transaction.TypeDeposit, transaction.StatusCompleted,
				t.Amount, balanceBefore, recipient.Balance, "Transfer "+t.Reference+" received")
			if err != nil {
				return err
			}
			if err := s.transactionRepo.WithTx(tx).Create(ctx, entry); err != nil {
				return err
			}
		}

		if err := s.retireJob(ctx, tx, transferID); err != nil {
			return err
		}

		completed = true
		return nil
	})
	if err != nil {
		return err
	}

	if !completed {
		s.logger.Info("Completion skipped, transfer no longer in progress",
			"transfer_id", transferID.String(),
			"status", string(t.Status),
		)
		return nil
	}

	s.logger.Info("Transfer completed",
		"transfer_id", t.ID.String(),
		"reference", t.Reference,
		"amount", t.Amount,
	)
	s.writeAudit(ctx, "transfer.complete", t, map[string]any{
		"amount": t.Amount,
		"fee":    t.FeeAmount,
	})
	s.publishCompleted(ctx, t)
	return nil
}

// Fail terminally fails a transfer the poller has given up on: refunds
// total_amount to the sender with a CREDIT ledger entry and marks the
// transfer FAILED, in one database transaction. Transfers that reached a
// terminal state in the meantime are left alone.
func (s *CompletionServiceImpl) Fail(ctx context.Context, transferID uuid.UUID, reason string) error {
	var t *transfer.Transfer
	failed := false

	err := s.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.transferRepo.WithTx(tx).LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}

		switch t.Status {
		case transfer.StatusPending, transfer.StatusApproved, transfer.StatusProcessing:
		default:
			return nil
		}

		sender, err := s.accountRepo.WithTx(tx).LockForUpdate(ctx, t.FromAccountID)
		if err != nil {
			return err
		}
		balanceBefore := sender.Balance
		if err := sender.Credit(t.TotalAmount); err != nil {
			return err
		}
		if err := s.accountRepo.WithTx(tx).Update(ctx, sender); err != nil {
			return err
		}
		entry, err := transaction.New(sender.ID, &t.ID, transaction.TypeCredit, transaction.StatusCompleted,
			t.TotalAmount, balanceBefore, sender.Balance, "Refund for failed transfer "+t.Reference)
		if err != nil {
			return err
		}
		if err := s.transactionRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}

		if t.Status != transfer.StatusProcessing {
			if err := t.MarkStatus(transfer.StatusProcessing); err != nil {
				return err
			}
		}
		t.FailureReason = reason
		if err := t.MarkStatus(transfer.StatusFailed); err != nil {
			return err
		}
		if err := s.transferRepo.WithTx(tx).Update(ctx, t); err != nil {
			return err
		}

		failed = true
		return nil
	})
	if err != nil {
		return err
	}
	if !failed {
		return nil
	}

	s.logger.Warn("Transfer failed after exhausted completion attempts",
		"transfer_id", t.ID.String(),
		"reference", t.Reference,
		"reason", reason,
	)
	s.writeAudit(ctx, "transfer.fail", t, map[string]any{
		"reason":          reason,
		"refunded_amount": t.TotalAmount,
	})
	return nil
}

// writeAudit records a scheduler-driven mutation. The scheduler has no human
// actor, so records carry the zero actor id. Best effort.
func (s *CompletionServiceImpl) writeAudit(ctx context.Context, action string, t *transfer.Transfer, detail map[string]any) {
	record := audit.NewRecord(uuid.Nil, action, "transfer", t.ID.String(), detail)
	if err := s.auditRepo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to write audit record", "action", action, "transfer_id", t.ID.String(), "error", err)
	}
}

// retireJob marks the completion job DONE within the same transaction as the
// completion itself
func (s *CompletionServiceImpl) retireJob(ctx context.Context, tx pgx.Tx, transferID uuid.UUID) error {
	job, err := s.jobRepo.WithTx(tx).GetByTransferID(ctx, transferID)
	if err != nil {
		if errors.Is(err, schedule.ErrJobNotFound{}) {
			return nil
		}
		return err
	}
	if job.Status != schedule.JobStatusPending {
		return nil
	}
	return s.jobRepo.WithTx(tx).UpdateStatus(ctx, job.ID, schedule.JobStatusDone)
}

// publishCompleted emits the status notification. Fire-and-forget: a publish
// failure never unwinds the committed completion.
func (s *CompletionServiceImpl) publishCompleted(ctx context.Context, t *transfer.Transfer) {
	if s.events == nil {
		return
	}

	sender, err := s.accountRepo.GetByID(ctx, t.FromAccountID)
	if err != nil {
		s.logger.Error("Failed to resolve sender for completion event", "transfer_id", t.ID.String(), "error", err)
		return
	}

	event := shared.NotificationEvent{
		UserID:    sender.UserID,
		EventType: shared.EventTransferCompleted,
		Amount:    t.Amount,
		Currency:  t.Currency,
		Reference: t.Reference,
		Timestamp: time.Now(),
	}
	if err := s.events.Publish(ctx, t.Reference, event); err != nil {
		s.logger.Error("Failed to publish completion event", "transfer_id", t.ID.String(), "error", err)
	}
}
