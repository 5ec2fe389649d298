// Package postgres provides PostgreSQL implementations of the domain
// repositories. Every balance-bearing row is read under an exclusive lock
// before mutation; no optimistic fallback exists on these paths.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

// uniqueViolation is the PostgreSQL error code for constraint violations we
// translate into domain errors
const uniqueViolation = "23505"

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, account_number, currency, status, balance, available_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.UserID,
		acc.AccountNumber,
		acc.Currency,
		acc.Status,
		acc.Balance,
		acc.AvailableBalance,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return account.ErrDuplicateAccountNumber{AccountNumber: acc.AccountNumber}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, user_id, account_number, currency, status, balance, available_balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	return r.scanAccount(r.querier.QueryRow(ctx, query, id), id)
}

// GetByAccountNumber retrieves an account by its account number. Returns
// nil, nil when no account carries the number (domestic transfers keep the
// number unresolved).
func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*account.Account, error) {
	query := `
		SELECT id, user_id, account_number, currency, status, balance, available_balance, created_at, updated_at
		FROM accounts
		WHERE account_number = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, accountNumber), uuid.Nil)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, nil
		}
		return nil, err
	}
	return acc, nil
}

// Update persists balance and status changes
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET status = $1, balance = $2, available_balance = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Status,
		acc.Balance,
		acc.AvailableBalance,
		acc.UpdatedAt,
		acc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: acc.ID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account and returns its
// current state. Must be called within a transaction; the lock is held until
// commit or rollback.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, user_id, account_number, currency, status, balance, available_balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, id), id)
	if err != nil {
		if !errors.Is(err, account.ErrAccountNotFound{}) {
			r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		}
		return nil, err
	}
	return acc, nil
}

func (r *AccountRepository) scanAccount(row pgx.Row, id uuid.UUID) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.UserID,
		&acc.AccountNumber,
		&acc.Currency,
		&acc.Status,
		&acc.Balance,
		&acc.AvailableBalance,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}
