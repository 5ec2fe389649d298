package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
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
	"github.com/novabank/core-banking/internal/domain/user"
	"github.com/novabank/core-banking/internal/platform/messaging/producers"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

// AdminServiceImpl implements the AdminService interface. All four operations
// run their balance arithmetic inside one database transaction with
// pessimistic row locks, sender account always locked before any recipient.
type AdminServiceImpl struct {
	txm             persistence.TxManager
	accountRepo     account.Repository
	transferRepo    transfer.Repository
	transactionRepo transaction.Repository
	jobRepo         schedule.Repository
	auditRepo       audit.Repository
	userRepo        user.Repository
	events          producers.MessagePublisher
	emails          producers.MessagePublisher
	completionDelay time.Duration
	logger          *slog.Logger
}

// NewAdminService creates a new admin service. The email producer may be nil
// when no email topic is configured.
func NewAdminService(
	logger *slog.Logger,
	txm persistence.TxManager,
	accountRepo account.Repository,
	transferRepo transfer.Repository,
	transactionRepo transaction.Repository,
	jobRepo schedule.Repository,
	auditRepo audit.Repository,
	userRepo user.Repository,
	events producers.MessagePublisher,
	emails producers.MessagePublisher,
	completionDelay time.Duration,
) AdminService {
	return &AdminServiceImpl{
		txm:             txm,
		accountRepo:     accountRepo,
		transferRepo:    transferRepo,
		transactionRepo: transactionRepo,
		jobRepo:         jobRepo,
		auditRepo:       auditRepo,
		userRepo:        userRepo,
		events:          events,
		emails:          emails,
		completionDelay: completionDelay,
		logger:          logger,
	}
}

// Approve releases a held PENDING transfer: marks it APPROVED and schedules
// its completion job.
func (s *AdminServiceImpl) Approve(ctx context.Context, adminID, transferID uuid.UUID) (*transfer.Transfer, error) {
	var t *transfer.Transfer

	err := s.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.transferRepo.WithTx(tx).LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t.Status != transfer.StatusPending {
			return transfer.ErrInvalidForApproval
		}

		if err := t.MarkStatus(transfer.StatusApproved); err != nil {
			return err
		}
		if err := s.transferRepo.WithTx(tx).Update(ctx, t); err != nil {
			return err
		}
		return s.jobRepo.WithTx(tx).Create(ctx, schedule.NewJob(t.ID, s.completionDelay))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer approved", "transfer_id", t.ID.String(), "admin_id", adminID.String())
	s.writeAudit(ctx, adminID, "transfer.approve", t, nil)

	return t, nil
}

// Decline rejects a held transfer: refunds total_amount to the sender with a
// CREDIT ledger entry, cancels any completion job, and marks it REJECTED.
func (s *AdminServiceImpl) Decline(ctx context.Context, adminID, transferID uuid.UUID, reason string) (*transfer.Transfer, error) {
	var t *transfer.Transfer

	err := s.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.transferRepo.WithTx(tx).LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t.Status != transfer.StatusPending && t.Status != transfer.StatusApproved {
			return transfer.ErrNotDeclinable
		}

		if err := s.creditAccount(ctx, tx, t.FromAccountID, t.TotalAmount, &t.ID,
			"Refund for declined transfer "+t.Reference); err != nil {
			return err
		}

		if err := s.jobRepo.WithTx(tx).CancelByTransferID(ctx, t.ID); err != nil {
			return err
		}

		t.FailureReason = reason
		if err := t.MarkStatus(transfer.StatusRejected); err != nil {
			return err
		}
		return s.transferRepo.WithTx(tx).Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer declined", "transfer_id", t.ID.String(), "admin_id", adminID.String(), "reason", reason)
	s.writeAudit(ctx, adminID, "transfer.decline", t, map[string]any{"reason": reason})
	s.notify(ctx, t, shared.EventTransferRejected,
		"Transfer "+t.Reference+" declined",
		fmt.Sprintf("Your transfer %s was declined and %s has been returned to your account.",
			t.Reference, formatAmount(t.TotalAmount, t.Currency)))

	return t, nil
}

// Reverse undoes a transfer at any non-terminal point of its lifecycle:
// credits total_amount back to the sender, claws back the recipient credit
// when a completed internal transfer already forwarded funds, cancels any
// pending completion job, and marks the transfer CANCELLED. The transfer row
// lock serializes this against the settlement worker.
func (s *AdminServiceImpl) Reverse(ctx context.Context, adminID, transferID uuid.UUID) (*transfer.Transfer, error) {
	var t *transfer.Transfer

	err := s.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.transferRepo.WithTx(tx).LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t.Status.IsTerminal() {
			return transfer.ErrNotReversible
		}
		wasCompleted := t.Status == transfer.StatusCompleted

		if err := s.creditAccount(ctx, tx, t.FromAccountID, t.TotalAmount, &t.ID,
			"Reversal of transfer "+t.Reference); err != nil {
			return err
		}

		// The recipient was only credited once the transfer completed;
		// fees are not clawed back because they were never forwarded.
		if wasCompleted && t.IsInternal() {
			if err := s.debitAccount(ctx, tx, *t.ToAccountID, t.Amount, &t.ID,
				"Reversal of transfer "+t.Reference); err != nil {
				return err
			}
		}

		if err := s.jobRepo.WithTx(tx).CancelByTransferID(ctx, t.ID); err != nil {
			return err
		}

		if err := t.MarkStatus(transfer.StatusCancelled); err != nil {
			return err
		}
		return s.transferRepo.WithTx(tx).Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer reversed", "transfer_id", t.ID.String(), "admin_id", adminID.String())
	s.writeAudit(ctx, adminID, "transfer.reverse", t, nil)
	s.notify(ctx, t, shared.EventTransferReversed,
		"Transfer "+t.Reference+" reversed",
		fmt.Sprintf("Your transfer %s was reversed and %s has been returned to your account.",
			t.Reference, formatAmount(t.TotalAmount, t.Currency)))

	return t, nil
}

// Edit changes the amount and/or internal destination of a COMPLETED
// transfer. The two deltas are orthogonal and applied in a strict order:
//  1. reverse the old recipient at the old amount
//  2. credit the new recipient at the new amount
//  3. adjust the sender by the net delta, only when the destination is
//     unchanged (a destination change already rebalances through steps 1+2)
//
// When both amount and destination change, the old recipient gives back the
// old amount and the new recipient receives the new amount; the sender is not
// touched. This is the documented move-and-resize semantics.
func (s *AdminServiceImpl) Edit(ctx context.Context, cmd EditCommand) (*transfer.Transfer, error) {
	if cmd.NewAmount == nil && cmd.NewToAccountID == nil {
		return nil, transfer.ErrEmptyEdit
	}
	if cmd.NewAmount != nil && *cmd.NewAmount <= 0 {
		return nil, account.ErrInvalidAmount
	}

	var t *transfer.Transfer

	err := s.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.transferRepo.WithTx(tx).LockForUpdate(ctx, cmd.TransferID)
		if err != nil {
			return err
		}
		if t.Status != transfer.StatusCompleted {
			return transfer.ErrNotEditable
		}

		oldAmount := t.Amount
		newAmount := oldAmount
		if cmd.NewAmount != nil {
			newAmount = *cmd.NewAmount
		}

		destinationChanged := cmd.NewToAccountID != nil &&
			(t.ToAccountID == nil || *cmd.NewToAccountID != *t.ToAccountID)
		if destinationChanged && *cmd.NewToAccountID == t.FromAccountID {
			return transfer.ErrSameAccount
		}

		// Lock order is fixed: sender, then old recipient, then new
		// recipient. Deltas are applied afterwards in their own order.
		accountRepo := s.accountRepo.WithTx(tx)

		var sender *account.Account
		if !destinationChanged && newAmount != oldAmount {
			if sender, err = accountRepo.LockForUpdate(ctx, t.FromAccountID); err != nil {
				return err
			}
		}

		var oldRecipient *account.Account
		if t.IsInternal() {
			if oldRecipient, err = accountRepo.LockForUpdate(ctx, *t.ToAccountID); err != nil {
				return err
			}
		}

		newRecipient := oldRecipient
		if destinationChanged {
			if newRecipient, err = accountRepo.LockForUpdate(ctx, *cmd.NewToAccountID); err != nil {
				if errors.Is(err, account.ErrAccountNotFound{}) {
					return transfer.ErrRecipientNotFound
				}
				return err
			}
			if newRecipient.Currency != t.Currency {
				return account.ErrCurrencyMismatch
			}
		}

		// Step 1: reverse the old recipient at the old amount
		if oldRecipient != nil {
			if err := s.applyDebit(ctx, tx, oldRecipient, oldAmount, &t.ID,
				"Edit reversal of transfer "+t.Reference); err != nil {
				return err
			}
		}

		// Step 2: credit the new recipient at the new amount
		if newRecipient != nil {
			if err := s.applyCredit(ctx, tx, newRecipient, newAmount, &t.ID,
				"Edit credit for transfer "+t.Reference); err != nil {
				return err
			}
		}

		// Step 3: net delta on the sender, destination unchanged only
		if sender != nil {
			delta := newAmount - oldAmount
			if delta > 0 {
				if err := s.applyDebit(ctx, tx, sender, delta, &t.ID,
					"Edit adjustment for transfer "+t.Reference); err != nil {
					return err
				}
			} else if delta < 0 {
				if err := s.applyCredit(ctx, tx, sender, -delta, &t.ID,
					"Edit refund for transfer "+t.Reference); err != nil {
					return err
				}
			}
		}

		t.Amount = newAmount
		t.TotalAmount = newAmount + t.FeeAmount
		if destinationChanged {
			t.ToAccountID = cmd.NewToAccountID
		}
		t.UpdatedAt = time.Now()
		return s.transferRepo.WithTx(tx).Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	detail := map[string]any{"amount": t.Amount}
	if cmd.NewToAccountID != nil {
		detail["to_account_id"] = cmd.NewToAccountID.String()
	}
	s.logger.Info("Transfer edited", "transfer_id", t.ID.String(), "admin_id", cmd.AdminID.String())
	s.writeAudit(ctx, cmd.AdminID, "transfer.edit", t, detail)
	s.notify(ctx, t, shared.EventTransferEdited,
		"Transfer "+t.Reference+" amended",
		fmt.Sprintf("Your transfer %s was amended to %s.",
			t.Reference, formatAmount(t.Amount, t.Currency)))

	return t, nil
}

// creditAccount locks the account, applies the credit, and writes the paired
// CREDIT ledger entry
func (s *AdminServiceImpl) creditAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, transferID *uuid.UUID, description string) error {
	acc, err := s.accountRepo.WithTx(tx).LockForUpdate(ctx, accountID)
	if err != nil {
		return err
	}
	return s.applyCredit(ctx, tx, acc, amount, transferID, description)
}

// debitAccount locks the account, applies the debit, and writes the paired
// WITHDRAWAL ledger entry
func (s *AdminServiceImpl) debitAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, transferID *uuid.UUID, description string) error {
	acc, err := s.accountRepo.WithTx(tx).LockForUpdate(ctx, accountID)
	if err != nil {
		return err
	}
	return s.applyDebit(ctx, tx, acc, amount, transferID, description)
}

func (s *AdminServiceImpl) applyCredit(ctx context.Context, tx pgx.Tx, acc *account.Account, amount int64, transferID *uuid.UUID, description string) error {
	balanceBefore := acc.Balance
	if err := acc.Credit(amount); err != nil {
		return err
	}
	if err := s.accountRepo.WithTx(tx).Update(ctx, acc); err != nil {
		return err
	}

	entry, err := transaction.New(acc.ID, transferID, transaction.TypeCredit, transaction.StatusCompleted,
		amount, balanceBefore, acc.Balance, description)
	if err != nil {
		return err
	}
	return s.transactionRepo.WithTx(tx).Create(ctx, entry)
}

func (s *AdminServiceImpl) applyDebit(ctx context.Context, tx pgx.Tx, acc *account.Account, amount int64, transferID *uuid.UUID, description string) error {
	balanceBefore := acc.Balance
	if err := acc.Debit(amount); err != nil {
		return err
	}
	if err := s.accountRepo.WithTx(tx).Update(ctx, acc); err != nil {
		return err
	}

	entry, err := transaction.New(acc.ID, transferID, transaction.TypeWithdrawal, transaction.StatusCompleted,
		amount, balanceBefore, acc.Balance, description)
	if err != nil {
		return err
	}
	return s.transactionRepo.WithTx(tx).Create(ctx, entry)
}

func (s *AdminServiceImpl) writeAudit(ctx context.Context, adminID uuid.UUID, action string, t *transfer.Transfer, detail map[string]any) {
	record := audit.NewRecord(adminID, action, "transfer", t.ID.String(), detail)
	if err := s.auditRepo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to write audit record", "action", action, "transfer_id", t.ID.String(), "error", err)
	}
}

// notify publishes the status event and queues a best-effort email to the
// sender. Neither failure surfaces to the caller.
func (s *AdminServiceImpl) notify(ctx context.Context, t *transfer.Transfer, eventType shared.EventType, subject, body string) {
	sender, err := s.accountRepo.GetByID(ctx, t.FromAccountID)
	if err != nil {
		s.logger.Error("Failed to resolve sender for notification", "transfer_id", t.ID.String(), "error", err)
		return
	}

	if s.events != nil {
		event := shared.NotificationEvent{
			UserID:    sender.UserID,
			EventType: eventType,
			Amount:    t.Amount,
			Currency:  t.Currency,
			Reference: t.Reference,
			Timestamp: time.Now(),
		}
		if err := s.events.Publish(ctx, t.Reference, event); err != nil {
			s.logger.Error("Failed to publish transfer event", "transfer_id", t.ID.String(), "error", err)
		}
	}

	if s.emails == nil {
		return
	}
	owner, err := s.userRepo.GetByID(ctx, sender.UserID)
	if err != nil || owner.Email == "" {
		s.logger.Warn("Skipping email notification, no address for user", "user_id", sender.UserID.String())
		return
	}
	request := shared.EmailRequest{
		UserID:    owner.ID,
		To:        owner.Email,
		Subject:   subject,
		Body:      body,
		Reference: t.Reference,
		Timestamp: time.Now(),
	}
	if err := s.emails.Publish(ctx, t.Reference, request); err != nil {
		s.logger.Error("Failed to queue email request", "transfer_id", t.ID.String(), "error", err)
	}
}

// formatAmount renders minor units as a decimal string with the currency code
func formatAmount(amount int64, currency string) string {
	var buf bytes.Buffer
	if amount < 0 {
		buf.WriteByte('-')
		amount = -amount
	}
	fmt.Fprintf(&buf, "%d.%02d %s", amount/100, amount%100, currency)
	return buf.String()
}
