package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/novabank/core-banking/internal/domain/transfer"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

const transferColumns = `id, reference, type, status, from_account_id, to_account_id, to_account_number,
		recipient_name, recipient_bank, recipient_last4, currency, amount, fee_amount, total_amount,
		failure_reason, created_at, updated_at, processed_at`

// TransferRepository implements the transfer.Repository interface for PostgreSQL
type TransferRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransferRepository creates a new PostgreSQL transfer repository
func NewTransferRepository(logger *slog.Logger, db *persistence.PostgresDB) transfer.Repository {
	return &TransferRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *TransferRepository) WithTx(tx pgx.Tx) transfer.Repository {
	return &TransferRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new transfer. The unique constraint on reference fails
// loudly on the negligible chance of a collision.
func (r *TransferRepository) Create(ctx context.Context, t *transfer.Transfer) error {
	query := `
		INSERT INTO transfers (id, reference, type, status, from_account_id, to_account_id, to_account_number,
			recipient_name, recipient_bank, recipient_last4, currency, amount, fee_amount, total_amount,
			failure_reason, created_at, updated_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.Reference,
		t.Type,
		t.Status,
		t.FromAccountID,
		t.ToAccountID,
		nullableString(t.ToAccountNumber),
		nullableString(t.Recipient.Name),
		nullableString(t.Recipient.BankName),
		nullableString(t.Recipient.AccountLast4),
		t.Currency,
		t.Amount,
		t.FeeAmount,
		t.TotalAmount,
		nullableString(t.FailureReason),
		t.CreatedAt,
		t.UpdatedAt,
		t.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return transfer.ErrDuplicateReference{Reference: t.Reference}
		}
		r.logger.Error("Failed to create transfer", "id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to create transfer: %w", err)
	}

	return nil
}

// GetByID retrieves a transfer by its ID
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1
	`

	return r.scanTransfer(r.querier.QueryRow(ctx, query, id), id)
}

// GetByReference retrieves a transfer by its reference number
func (r *TransferRepository) GetByReference(ctx context.Context, reference string) (*transfer.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE reference = $1
	`

	return r.scanTransfer(r.querier.QueryRow(ctx, query, reference), uuid.Nil)
}

// LockForUpdate obtains a pessimistic lock on the transfer row. Completion
// and administrative paths both take it before re-checking status.
func (r *TransferRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1
		FOR UPDATE
	`

	t, err := r.scanTransfer(r.querier.QueryRow(ctx, query, id), id)
	if err != nil {
		if !errors.Is(err, transfer.ErrTransferNotFound{}) {
			r.logger.Error("Failed to lock transfer for update", "id", id.String(), "error", err)
		}
		return nil, err
	}
	return t, nil
}

// Update persists status, amount and recipient changes
func (r *TransferRepository) Update(ctx context.Context, t *transfer.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $1, to_account_id = $2, to_account_number = $3, recipient_name = $4, recipient_bank = $5,
			recipient_last4 = $6, amount = $7, fee_amount = $8, total_amount = $9, failure_reason = $10,
			updated_at = $11, processed_at = $12
		WHERE id = $13
	`

	result, err := r.querier.Exec(ctx, query,
		t.Status,
		t.ToAccountID,
		nullableString(t.ToAccountNumber),
		nullableString(t.Recipient.Name),
		nullableString(t.Recipient.BankName),
		nullableString(t.Recipient.AccountLast4),
		t.Amount,
		t.FeeAmount,
		t.TotalAmount,
		nullableString(t.FailureReason),
		t.UpdatedAt,
		t.ProcessedAt,
		t.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transfer", "id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transfer.ErrTransferNotFound{TransferID: t.ID}
	}

	return nil
}

func (r *TransferRepository) scanTransfer(row pgx.Row, id uuid.UUID) (*transfer.Transfer, error) {
	var t transfer.Transfer
	var toAccountNumber, recipientName, recipientBank, recipientLast4, failureReason *string
	err := row.Scan(
		&t.ID,
		&t.Reference,
		&t.Type,
		&t.Status,
		&t.FromAccountID,
		&t.ToAccountID,
		&toAccountNumber,
		&recipientName,
		&recipientBank,
		&recipientLast4,
		&t.Currency,
		&t.Amount,
		&t.FeeAmount,
		&t.TotalAmount,
		&failureReason,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transfer.ErrTransferNotFound{TransferID: id}
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	t.ToAccountNumber = derefString(toAccountNumber)
	t.Recipient = transfer.RecipientSnapshot{
		Name:         derefString(recipientName),
		BankName:     derefString(recipientBank),
		AccountLast4: derefString(recipientLast4),
	}
	t.FailureReason = derefString(failureReason)
	return &t, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
