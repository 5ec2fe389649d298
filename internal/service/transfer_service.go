package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novabank/core-banking/internal/config"
	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/domain/audit"
	"github.com/novabank/core-banking/internal/domain/schedule"
	"github.com/novabank/core-banking/internal/domain/shared"
	"github.com/novabank/core-banking/internal/domain/transaction"
	"github.com/novabank/core-banking/internal/domain/transfer"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

// FeeScheduleFromConfig builds the per-subtype fee schedule from the
// configured business values
func FeeScheduleFromConfig(cfg *config.TransferConfig) transfer.FeeSchedule {
	return transfer.FeeSchedule{
		transfer.TypeInternal:      0,
		transfer.TypeDomestic:      cfg.FeeDomestic,
		transfer.TypeACH:           cfg.FeeACH,
		transfer.TypeWire:          cfg.FeeWire,
		transfer.TypeInternational: cfg.FeeInternational,
	}
}

// TransferServiceImpl implements the TransferService interface
type TransferServiceImpl struct {
	txm             persistence.TxManager
	accountRepo     account.Repository
	transferRepo    transfer.Repository
	transactionRepo transaction.Repository
	jobRepo         schedule.Repository
	auditRepo       audit.Repository
	pins            PinVerifier
	fees            transfer.FeeSchedule
	completionDelay time.Duration
	reviewThreshold int64
	logger          *slog.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(
	logger *slog.Logger,
	txm persistence.TxManager,
	accountRepo account.Repository,
	transferRepo transfer.Repository,
	transactionRepo transaction.Repository,
	jobRepo schedule.Repository,
	auditRepo audit.Repository,
	pins PinVerifier,
	cfg *config.TransferConfig,
) TransferService {
	return &TransferServiceImpl{
		txm:             txm,
		accountRepo:     accountRepo,
		transferRepo:    transferRepo,
		transactionRepo: transactionRepo,
		jobRepo:         jobRepo,
		auditRepo:       auditRepo,
		pins:            pins,
		fees:            FeeScheduleFromConfig(cfg),
		completionDelay: cfg.CompletionDelay,
		reviewThreshold: cfg.ReviewThreshold,
		logger:          logger,
	}
}

// Initiate runs the initiation protocol. Order matters: ownership and
// recipient resolution complete before the PIN check, the PIN check completes
// before any balance mutation, and the debit, transfer row, ledger entry, and
// completion job are written in one database transaction.
func (s *TransferServiceImpl) Initiate(ctx context.Context, cmd InitiateCommand) (*transfer.Transfer, error) {
	if !cmd.Type.Valid() {
		return nil, transfer.ErrInvalidType
	}
	if cmd.Amount <= 0 {
		return nil, account.ErrInvalidAmount
	}

	sender, err := s.accountRepo.GetByID(ctx, cmd.FromAccountID)
	if err != nil {
		return nil, err
	}
	if sender.UserID != cmd.UserID {
		return nil, account.ErrNotAccountOwner{AccountID: cmd.FromAccountID, UserID: cmd.UserID}
	}
	if !sender.IsActive() {
		return nil, account.ErrAccountInactive
	}

	t, err := s.resolveRecipient(ctx, sender, cmd)
	if err != nil {
		return nil, err
	}

	if err := s.pins.Verify(ctx, cmd.UserID, cmd.Pin); err != nil {
		return nil, err
	}

	t.FeeAmount = s.fees.Fee(cmd.Type)
	t.TotalAmount = t.Amount + t.FeeAmount

	held := s.reviewThreshold > 0 && t.Amount > s.reviewThreshold
	entryStatus := transaction.StatusProcessing
	if held {
		t.Status = transfer.StatusPending
		entryStatus = transaction.StatusPending
	}

	err = s.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		locked, err := s.accountRepo.WithTx(tx).LockForUpdate(ctx, sender.ID)
		if err != nil {
			return err
		}

		balanceBefore := locked.Balance
		if err := locked.Debit(t.TotalAmount); err != nil {
			return err
		}
		if err := s.accountRepo.WithTx(tx).Update(ctx, locked); err != nil {
			return err
		}

		if err := s.transferRepo.WithTx(tx).Create(ctx, t); err != nil {
			return err
		}

		entry, err := transaction.New(locked.ID, &t.ID, transaction.TypeWithdrawal, entryStatus,
			t.TotalAmount, balanceBefore, locked.Balance, debitDescription(t))
		if err != nil {
			return err
		}
		if err := s.transactionRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}

		if !held {
			if err := s.jobRepo.WithTx(tx).Create(ctx, schedule.NewJob(t.ID, s.completionDelay)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !isBusinessRejection(err) {
			s.recordFailedTransfer(ctx, t, err)
		}
		return nil, err
	}

	s.logger.Info("Transfer initiated",
		"transfer_id", t.ID.String(),
		"reference", t.Reference,
		"type", string(t.Type),
		"status", string(t.Status),
		"amount", t.Amount,
		"fee", t.FeeAmount,
	)

	s.writeAudit(ctx, cmd.UserID, "transfer.initiate", t, map[string]any{
		"type":   string(t.Type),
		"amount": t.Amount,
		"fee":    t.FeeAmount,
		"status": string(t.Status),
	})

	return t, nil
}

// resolveRecipient builds the transfer row with its destination fully
// resolved. No mutation happens here.
func (s *TransferServiceImpl) resolveRecipient(ctx context.Context, sender *account.Account, cmd InitiateCommand) (*transfer.Transfer, error) {
	now := time.Now()
	t := &transfer.Transfer{
		ID:            uuid.New(),
		Reference:     shared.NewReference("TRF"),
		Type:          cmd.Type,
		Status:        transfer.StatusProcessing,
		FromAccountID: sender.ID,
		Currency:      sender.Currency,
		Amount:        cmd.Amount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch cmd.Type {
	case transfer.TypeInternal:
		if cmd.ToAccountID == nil {
			return nil, transfer.ErrRecipientNotFound
		}
		if *cmd.ToAccountID == sender.ID {
			return nil, transfer.ErrSameAccount
		}
		recipient, err := s.accountRepo.GetByID(ctx, *cmd.ToAccountID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return nil, transfer.ErrRecipientNotFound
			}
			return nil, err
		}
		if !recipient.IsActive() {
			return nil, transfer.ErrRecipientInactive
		}
		if recipient.Currency != sender.Currency {
			return nil, account.ErrCurrencyMismatch
		}
		t.ToAccountID = &recipient.ID

	case transfer.TypeDomestic:
		// Domestic account numbers belong to other banks and stay
		// unresolved; the snapshot is display-only.
		if cmd.ToAccountNumber == "" {
			return nil, transfer.ErrRecipientNotFound
		}
		t.ToAccountNumber = cmd.ToAccountNumber
		t.Recipient = cmd.Recipient

	case transfer.TypeACH, transfer.TypeWire, transfer.TypeInternational:
		if cmd.Recipient.Name == "" {
			return nil, transfer.ErrRecipientNotFound
		}
		t.Recipient = cmd.Recipient
	}

	return t, nil
}

// isBusinessRejection reports whether the atomic unit failed on a business
// rule. Rejected attempts leave no rows behind and the caller gets the
// domain error as-is.
func isBusinessRejection(err error) bool {
	return errors.Is(err, account.ErrInsufficientFunds) || errors.Is(err, account.ErrAccountInactive)
}

// recordFailedTransfer writes a FAILED transfer row after an infrastructure
// failure rolled the atomic unit back, so the aborted attempt stays visible.
// Best effort.
func (s *TransferServiceImpl) recordFailedTransfer(ctx context.Context, t *transfer.Transfer, cause error) {
	t.Status = transfer.StatusFailed
	t.FailureReason = cause.Error()
	t.UpdatedAt = time.Now()

	if err := s.transferRepo.Create(ctx, t); err != nil {
		s.logger.Error("Failed to record failed transfer",
			"transfer_id", t.ID.String(),
			"cause", cause,
			"error", err,
		)
	}
}

func (s *TransferServiceImpl) writeAudit(ctx context.Context, actorID uuid.UUID, action string, t *transfer.Transfer, detail map[string]any) {
	record := audit.NewRecord(actorID, action, "transfer", t.ID.String(), detail)
	if err := s.auditRepo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to write audit record", "action", action, "transfer_id", t.ID.String(), "error", err)
	}
}

// GetTransferByID retrieves a transfer, enforcing sender-account ownership
func (s *TransferServiceImpl) GetTransferByID(ctx context.Context, userID, id uuid.UUID) (*transfer.Transfer, error) {
	t, err := s.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.checkOwnership(ctx, userID, t)
}

// GetTransferByReference retrieves a transfer by its public reference
func (s *TransferServiceImpl) GetTransferByReference(ctx context.Context, userID uuid.UUID, reference string) (*transfer.Transfer, error) {
	t, err := s.transferRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.checkOwnership(ctx, userID, t)
}

func (s *TransferServiceImpl) checkOwnership(ctx context.Context, userID uuid.UUID, t *transfer.Transfer) (*transfer.Transfer, error) {
	sender, err := s.accountRepo.GetByID(ctx, t.FromAccountID)
	if err != nil {
		return nil, err
	}
	if sender.UserID != userID {
		return nil, account.ErrNotAccountOwner{AccountID: sender.ID, UserID: userID}
	}
	return t, nil
}

func debitDescription(t *transfer.Transfer) string {
	if t.FeeAmount > 0 {
		return "Transfer " + t.Reference + " (incl. fee)"
	}
	return "Transfer " + t.Reference
}
