package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/novabank/core-banking/internal/domain/transaction"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

const transactionColumns = `id, reference, account_id, transfer_id, type, status, amount,
		balance_before, balance_after, description, created_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL ledger repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. Ledger entries must be
// written in the same database transaction as the balance mutation they record.
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a ledger entry
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, reference, account_id, transfer_id, type, status, amount,
			balance_before, balance_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.Reference,
		txn.AccountID,
		txn.TransferID,
		txn.Type,
		txn.Status,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		nullableString(txn.Description),
		txn.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Error("Ledger reference collision", "reference", txn.Reference)
			return fmt.Errorf("ledger reference collision for %s: %w", txn.Reference, err)
		}
		r.logger.Error("Failed to create transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger entry by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	rowTxn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return rowTxn, nil
}

// GetByAccountID retrieves a page of ledger entries for an account, newest first
func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get transactions by account", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transactions by account: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// CountByAccountID returns the number of ledger entries for an account
func (r *TransactionRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions by account", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions by account: %w", err)
	}
	return count, nil
}

// GetByTransferID retrieves all ledger entries linked to a transfer
func (r *TransactionRepository) GetByTransferID(ctx context.Context, transferID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE transfer_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, transferID)
	if err != nil {
		r.logger.Error("Failed to get transactions by transfer", "transfer_id", transferID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transactions by transfer: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// CompleteDebitsByTransferID advances the sender-side entries of a transfer
// to COMPLETED in lockstep with the parent transfer
func (r *TransactionRepository) CompleteDebitsByTransferID(ctx context.Context, transferID uuid.UUID) error {
	query := `
		UPDATE transactions
		SET status = $1
		WHERE transfer_id = $2
		  AND type IN ($3, $4, $5, $6)
		  AND status IN ($7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		transaction.StatusCompleted,
		transferID,
		transaction.TypeWithdrawal,
		transaction.TypeDebit,
		transaction.TypePayment,
		transaction.TypeFee,
		transaction.StatusPending,
		transaction.StatusProcessing,
	)
	if err != nil {
		r.logger.Error("Failed to complete debit transactions", "transfer_id", transferID.String(), "error", err)
		return fmt.Errorf("failed to complete debit transactions: %w", err)
	}

	return nil
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	var description *string
	err := row.Scan(
		&txn.ID,
		&txn.Reference,
		&txn.AccountID,
		&txn.TransferID,
		&txn.Type,
		&txn.Status,
		&txn.Amount,
		&txn.BalanceBefore,
		&txn.BalanceAfter,
		&description,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Description = derefString(description)
	return &txn, nil
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return txns, nil
}
