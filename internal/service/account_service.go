package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/domain/audit"
	"github.com/novabank/core-banking/internal/domain/shared"
	"github.com/novabank/core-banking/internal/domain/transaction"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	txm             persistence.TxManager
	accountRepo     account.Repository
	transactionRepo transaction.Repository
	auditRepo       audit.Repository
	logger          *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	logger *slog.Logger,
	txm persistence.TxManager,
	accountRepo account.Repository,
	transactionRepo transaction.Repository,
	auditRepo audit.Repository,
) AccountService {
	return &AccountServiceImpl{
		txm:             txm,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		auditRepo:       auditRepo,
		logger:          logger,
	}
}

// CreateAccount opens a new active account with a generated account number
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, userID uuid.UUID, currency string, initialBalance int64) (*account.Account, error) {
	acc, err := account.NewAccount(userID, shared.NewAccountNumber(), currency, initialBalance)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account created",
		"account_id", acc.ID.String(),
		"user_id", userID.String(),
		"currency", currency,
	)

	record := audit.NewRecord(userID, "account.create", "account", acc.ID.String(), map[string]any{
		"currency":        currency,
		"initial_balance": initialBalance,
	})
	if err := s.auditRepo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to write audit record", "action", "account.create", "account_id", acc.ID.String(), "error", err)
	}

	return acc, nil
}

// GetAccountByID retrieves an account by its ID, returns ErrAccountNotFound if not found
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// Deposit credits the account under its row lock and writes the paired
// DEPOSIT ledger entry in the same database transaction
func (s *AccountServiceImpl) Deposit(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*account.Account, error) {
	if description == "" {
		description = "Deposit"
	}

	var acc *account.Account
	err := s.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		acc, err = s.accountRepo.WithTx(tx).LockForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		balanceBefore := acc.Balance
		if err := acc.Credit(amount); err != nil {
			return err
		}
		if err := s.accountRepo.WithTx(tx).Update(ctx, acc); err != nil {
			return err
		}

		entry, err := transaction.New(acc.ID, nil, transaction.TypeDeposit, transaction.StatusCompleted,
			amount, balanceBefore, acc.Balance, description)
		if err != nil {
			return err
		}
		return s.transactionRepo.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deposit applied", "account_id", accountID.String(), "amount", amount)

	record := audit.NewRecord(acc.UserID, "account.deposit", "account", acc.ID.String(), map[string]any{
		"amount": amount,
	})
	if err := s.auditRepo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to write audit record", "action", "account.deposit", "account_id", acc.ID.String(), "error", err)
	}

	return acc, nil
}

// GetTransactionsByAccountID retrieves a paginated ledger history, newest
// first. Returns entries, total count, and any error.
func (s *AccountServiceImpl) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.transactionRepo.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.transactionRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
